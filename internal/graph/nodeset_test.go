package graph

import "testing"

func TestNodeSet_Intersect(t *testing.T) {
	a := NewNodeSet("x", "y", "z")
	b := NewNodeSet("y", "z", "w")

	got := a.Intersect(b)
	if !got.Equal(NewNodeSet("y", "z")) {
		t.Fatalf("unexpected intersection %s", got)
	}
}

func TestNodeSet_EqualTreatsEmptySetsEqual(t *testing.T) {
	if !(NodeSet{}).Equal(NewNodeSet()) {
		t.Fatalf("empty sets must be equal")
	}
	if NewNodeSet("x").Equal(NewNodeSet("y")) {
		t.Fatalf("different singletons must not be equal")
	}
}

func TestNodeSet_SortedIsDeterministic(t *testing.T) {
	s := NewNodeSet("c", "a", "b")

	got := s.Sorted()
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected order %v", got)
	}
	if s.String() != "{a, b, c}" {
		t.Fatalf("unexpected string %s", s)
	}
}

func TestNodeSet_ContainsOnNilSet(t *testing.T) {
	var s NodeSet
	if s.Contains("x") {
		t.Fatalf("nil set contains nothing")
	}
	if s.Len() != 0 {
		t.Fatalf("nil set has zero length")
	}
}

package graph

import (
	"sort"
	"strings"
)

// NodeSet is a duplicate-free set of nodes. The empty set is a valid,
// meaningful value.
type NodeSet map[Node]struct{}

func NewNodeSet(nodes ...Node) NodeSet {
	s := make(NodeSet, len(nodes))
	for _, n := range nodes {
		s[n] = struct{}{}
	}
	return s
}

func (s NodeSet) Add(n Node) {
	s[n] = struct{}{}
}

func (s NodeSet) Contains(n Node) bool {
	_, ok := s[n]
	return ok
}

func (s NodeSet) Len() int { return len(s) }

func (s NodeSet) Clone() NodeSet {
	out := make(NodeSet, len(s))
	for n := range s {
		out[n] = struct{}{}
	}
	return out
}

// Union adds every node of other into s.
func (s NodeSet) Union(other NodeSet) {
	for n := range other {
		s[n] = struct{}{}
	}
}

// Intersect returns the nodes present in both sets.
func (s NodeSet) Intersect(other NodeSet) NodeSet {
	small, big := s, other
	if len(big) < len(small) {
		small, big = big, small
	}
	out := NodeSet{}
	for n := range small {
		if big.Contains(n) {
			out.Add(n)
		}
	}
	return out
}

func (s NodeSet) Equal(other NodeSet) bool {
	if len(s) != len(other) {
		return false
	}
	for n := range s {
		if !other.Contains(n) {
			return false
		}
	}
	return true
}

// Sorted returns the nodes in lexicographic order, for deterministic
// diagnostics and tests.
func (s NodeSet) Sorted() []Node {
	out := make([]Node, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s NodeSet) String() string {
	parts := make([]string, 0, len(s))
	for _, n := range s.Sorted() {
		parts = append(parts, string(n))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

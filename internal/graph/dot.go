package graph

import (
	"fmt"
	"strings"
	"sync"

	"github.com/awalterschulze/gographviz"
)

// Snapshot is a Context backed by a DOT description of the dependency
// graph. Nodes declare their markers and scope as attributes, edges their
// kind:
//
//	digraph {
//	    card  [markers="credit_card", scope="checkout"];
//	    store [markers="store", scope="checkout"];
//	    card -> store [kind="data"];
//	}
//
// Edges without a kind attribute default to data. The graph-level markers
// attribute may declare markers no node currently carries.
type Snapshot struct {
	scopes  map[string]NodeSet
	markers map[Marker]NodeSet
	adj     map[Node][]halfEdge

	mu       sync.Mutex
	closures map[closureKey]NodeSet
}

type halfEdge struct {
	to   Node
	kind EdgeKind
}

type closureKey struct {
	from Node
	kind EdgeKind
}

const defaultScope = "main"

// LoadDOT parses a DOT document into an immutable snapshot.
func LoadDOT(dot string) (*Snapshot, error) {
	ast, err := gographviz.ParseString(dot)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DOT: %w", err)
	}

	g := gographviz.NewGraph()
	if err := gographviz.Analyse(ast, g); err != nil {
		return nil, fmt.Errorf("failed to analyze DOT: %w", err)
	}

	s := &Snapshot{
		scopes:   map[string]NodeSet{},
		markers:  map[Marker]NodeSet{},
		adj:      map[Node][]halfEdge{},
		closures: map[closureKey]NodeSet{},
	}

	for _, m := range splitList(getAttr(g.Attrs, "markers")) {
		s.declareMarker(Marker(m))
	}

	for _, n := range g.Nodes.Nodes {
		node := Node(n.Name)

		scope := getAttr(n.Attrs, "scope")
		if scope == "" {
			scope = defaultScope
		}
		if s.scopes[scope] == nil {
			s.scopes[scope] = NodeSet{}
		}
		s.scopes[scope].Add(node)

		for _, m := range splitList(getAttr(n.Attrs, "markers")) {
			s.declareMarker(Marker(m))
			s.markers[Marker(m)].Add(node)
		}

		if _, ok := s.adj[node]; !ok {
			s.adj[node] = nil
		}
	}

	for _, e := range g.Edges.Edges {
		src, dst := Node(e.Src), Node(e.Dst)
		if _, ok := s.adj[src]; !ok {
			return nil, fmt.Errorf("edge references unknown source node %q", e.Src)
		}
		if _, ok := s.adj[dst]; !ok {
			return nil, fmt.Errorf("edge references unknown destination node %q", e.Dst)
		}

		kind := Data
		if raw := getAttr(e.Attrs, "kind"); raw != "" {
			kind, err = ParseEdgeKind(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid kind on edge %s->%s: %w", e.Src, e.Dst, err)
			}
		}

		s.adj[src] = append(s.adj[src], halfEdge{to: dst, kind: kind})
	}

	return s, nil
}

func (s *Snapshot) declareMarker(m Marker) {
	if s.markers[m] == nil {
		s.markers[m] = NodeSet{}
	}
}

func (s *Snapshot) Scopes() []string {
	out := make([]string, 0, len(s.scopes))
	for name := range s.scopes {
		out = append(out, name)
	}
	return out
}

func (s *Snapshot) ScopeNodes(scope string) NodeSet {
	nodes, ok := s.scopes[scope]
	if !ok {
		return NodeSet{}
	}
	return nodes.Clone()
}

func (s *Snapshot) HasMarker(m Marker, n Node) bool {
	return s.markers[m].Contains(n)
}

func (s *Snapshot) MarkerDeclared(m Marker) bool {
	_, ok := s.markers[m]
	return ok
}

func (s *Snapshot) Influencees(n Node, kind EdgeKind) NodeSet {
	key := closureKey{from: n, kind: kind}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.closures[key]; ok {
		return cached.Clone()
	}

	out := s.traverse(n, kind, nil)
	s.closures[key] = out
	return out.Clone()
}

func (s *Snapshot) InfluenceesExcluding(n Node, kind EdgeKind, excluded NodeSet) NodeSet {
	if excluded.Len() == 0 {
		return s.Influencees(n, kind)
	}
	// not memoized: the excluded set varies per query
	return s.traverse(n, kind, excluded)
}

// traverse walks the edge relation from start and collects reachable nodes.
// For Data only data edges are followed. For Control any edge is followed
// but a node counts as influenced only once the path has crossed at least
// one control edge: a value influences execution of everything downstream
// of the first branch it feeds.
func (s *Snapshot) traverse(start Node, kind EdgeKind, excluded NodeSet) NodeSet {
	type state struct {
		node    Node
		viaCtrl bool
	}

	out := NodeSet{}
	seen := map[state]struct{}{}
	stack := []state{{node: start}}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, e := range s.adj[cur.node] {
			if excluded.Contains(e.to) {
				continue
			}

			next := state{node: e.to, viaCtrl: cur.viaCtrl}
			switch kind {
			case Data:
				if e.kind != Data {
					continue
				}
			case Control:
				if e.kind == Control {
					next.viaCtrl = true
				}
			}

			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}

			if kind == Data || next.viaCtrl {
				out.Add(e.to)
			}
			stack = append(stack, next)
		}
	}

	return out
}

// getAttr reads a Graphviz attribute value, stripping surrounding quotes.
func getAttr(attrs gographviz.Attrs, key string) string {
	val, ok := attrs[gographviz.Attr(key)]
	if !ok {
		return ""
	}

	val = strings.TrimSpace(val)

	if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
		val = val[1 : len(val)-1]
	}

	return val
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

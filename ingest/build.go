package ingest

import (
	"fmt"
	"sort"

	"github.com/cpogcore/cpog/pog"
	"github.com/cpogcore/cpog/z"
)

type rawEdge struct {
	child int
	lits  []z.Lit
}

type rawNode struct {
	kind  NodeKind
	id    int
	edges []rawEdge
}

// Builder accumulates DnnfVis events and, once parsing finishes, builds a
// pog.Graph out of them.
type Builder struct {
	nodes map[int]*rawNode
	order []int
}

// NewBuilder creates an empty d-DNNF builder.
func NewBuilder() *Builder {
	return &Builder{nodes: map[int]*rawNode{}}
}

// Node implements DnnfVis.
func (b *Builder) Node(kind NodeKind, id int) {
	if _, ok := b.nodes[id]; !ok {
		b.order = append(b.order, id)
	}
	b.nodes[id] = &rawNode{kind: kind, id: id}
}

// Edge implements DnnfVis.
func (b *Builder) Edge(parent, child int, lits []z.Lit) {
	n := b.nodes[parent]
	if n == nil {
		n = &rawNode{id: parent}
		b.nodes[parent] = n
	}
	n.edges = append(n.edges, rawEdge{child: child, lits: lits})
}

// Eof implements DnnfVis.
func (b *Builder) Eof() {}

// chooseRoot picks the true root among nodes with no incoming edge. When
// several indegree-0 candidates exist — the source format permits an
// explicit disconnected true/false placeholder alongside the real root —
// this implementation deterministically picks the smallest external node
// id, documented as an Open Question resolution in DESIGN.md.
func (b *Builder) chooseRoot() (int, error) {
	indeg := map[int]int{}
	for id := range b.nodes {
		indeg[id] = 0
	}
	for _, n := range b.nodes {
		for _, e := range n.edges {
			indeg[e.child]++
		}
	}
	var candidates []int
	for id, d := range indeg {
		if d == 0 {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return 0, fmt.Errorf("ingest: no indegree-0 root candidate found")
	}
	sort.Ints(candidates)
	return candidates[0], nil
}

// Build converts the accumulated d-DNNF into a pog.Graph over a CNF with
// variables 1..maxInputVar, returning the graph and its root literal.
func (b *Builder) Build(maxInputVar z.Var) (*pog.Graph, z.Lit, error) {
	rootID, err := b.chooseRoot()
	if err != nil {
		return nil, z.LitNull, err
	}
	g := pog.NewGraph(maxInputVar)
	memo := map[int]z.Lit{}
	var visit func(id int) (z.Lit, error)
	visiting := map[int]bool{}
	visit = func(id int) (z.Lit, error) {
		if lit, ok := memo[id]; ok {
			return lit, nil
		}
		if visiting[id] {
			return z.LitNull, fmt.Errorf("ingest: cycle detected at node %d", id)
		}
		visiting[id] = true
		defer delete(visiting, id)

		n := b.nodes[id]
		if n == nil {
			return z.LitNull, fmt.Errorf("ingest: reference to undefined node %d", id)
		}
		var result z.Lit
		switch n.kind {
		case KindTrue:
			result = z.True
		case KindFalse:
			result = z.False
		case KindAnd:
			children, err := resolveEdges(g, n.edges, visit)
			if err != nil {
				return z.LitNull, err
			}
			result = g.AddAnd(children...)
		case KindOr:
			if len(n.edges) != 2 {
				return z.LitNull, fmt.Errorf("ingest: OR node %d has %d children, want 2", id, len(n.edges))
			}
			children, err := resolveEdges(g, n.edges, visit)
			if err != nil {
				return z.LitNull, err
			}
			result = g.AddOr(children[0], children[1])
		default:
			return z.LitNull, fmt.Errorf("ingest: node %d has unknown/unset kind", id)
		}
		memo[id] = result
		return result, nil
	}
	root, err := visit(rootID)
	if err != nil {
		return nil, z.LitNull, err
	}
	g.Root = root
	return g, root, nil
}

// resolveEdges resolves each child edge to a literal, wrapping it in an
// implicit AND node with its edge-label literals when the edge carries any,
// per spec.md §6's "literal labels collected on an edge induce an implicit
// AND wrapper node between parent and child".
func resolveEdges(g *pog.Graph, edges []rawEdge, visit func(int) (z.Lit, error)) ([]z.Lit, error) {
	out := make([]z.Lit, 0, len(edges))
	for _, e := range edges {
		childLit, err := visit(e.child)
		if err != nil {
			return nil, err
		}
		if len(e.lits) == 0 {
			out = append(out, childLit)
			continue
		}
		wrapped := g.AddAnd(append([]z.Lit{childLit}, e.lits...)...)
		out = append(out, wrapped)
	}
	return out, nil
}

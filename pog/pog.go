// Package pog implements the POG (AND/OR/SKOLEM/TRUE/FALSE node graph) of
// spec.md §4.5: a DAG built incrementally by the d-DNNF ingest layer, then
// compressed and renumbered before its defining clauses are emitted into
// the clause store. The node arena mirrors the teacher's logic.C strash
// design (github.com/irifrance/g/logic), generalized from a single AND/NOT
// basis to the POG's five node kinds.
package pog

import (
	"fmt"

	"github.com/cpogcore/cpog/internal/store"
	"github.com/cpogcore/cpog/z"
)

// Kind is a POG node's type.
type Kind int

const (
	KindAnd Kind = iota
	KindOr
	KindSkolem
)

func (k Kind) String() string {
	switch k {
	case KindAnd:
		return "AND"
	case KindOr:
		return "OR"
	case KindSkolem:
		return "SKOLEM"
	default:
		return "?"
	}
}

// Lemma is a cached proof of a shared OR node's implication, keyed by a
// signature over the splitting literal and the sorted set of reduced
// argument clause ids, per spec.md §3/§4.6.
type Lemma struct {
	Signature  uint64
	ArgMap     map[store.CID]store.CID // active-clause id -> original-clause id
	Duplicates map[store.CID]bool
	Split      z.Lit
	JID        store.CID
}

// Node is one POG record, per spec.md §3.
type Node struct {
	Kind     Kind
	XVar     z.Var
	Children []z.Lit

	// DefiningCID is the id of the first clause in this node's defining
	// block, set by Concretize.
	DefiningCID store.CID

	Indegree int
	TreeSize int

	Lemmas []*Lemma
}

// Graph is the POG: a growable arena of nodes whose xvars occupy a
// contiguous range starting at StartExtVar, plus the designated root
// literal (set once ingest finishes).
type Graph struct {
	MaxInputVar z.Var
	StartExtVar z.Var

	nodes     map[z.Var]*Node
	order     []z.Var // xvars in creation order; topological after Compress
	highWater z.Var   // next xvar/extension-variable id to allocate

	Root z.Lit
}

// NewGraph creates an empty POG over a CNF with variables 1..maxInputVar.
func NewGraph(maxInputVar z.Var) *Graph {
	return &Graph{
		MaxInputVar: maxInputVar,
		StartExtVar: maxInputVar + 1,
		nodes:       map[z.Var]*Node{},
		highWater:   maxInputVar + 1,
	}
}

// Node returns the node for xvar, or nil if v names an input variable or is
// out of range.
func (g *Graph) Node(v z.Var) *Node { return g.nodes[v] }

// Order returns node xvars in their current (topological, after Compress)
// order.
func (g *Graph) Order() []z.Var { return g.order }

func (g *Graph) nextVar() z.Var {
	v := g.highWater
	g.highWater++
	return v
}

// AllocExtVar reserves a fresh extension variable above every node and
// every previously allocated variable in this graph, for use by reasoner
// machinery (e.g. the bundled-AND-gate validate_literals construction) that
// needs a variable the POG itself will never assign to a node.
func (g *Graph) AllocExtVar() z.Var {
	return g.nextVar()
}

func (g *Graph) countRef(lit z.Lit) {
	if lit.IsConst() {
		return
	}
	if v := lit.Var(); v >= g.StartExtVar {
		if n := g.nodes[v]; n != nil {
			n.Indegree++
		}
	}
}

func (g *Graph) newNode(kind Kind, children []z.Lit) z.Lit {
	xvar := g.nextVar()
	n := &Node{Kind: kind, XVar: xvar, Children: append([]z.Lit(nil), children...)}
	g.nodes[xvar] = n
	g.order = append(g.order, xvar)
	for _, c := range children {
		g.countRef(c)
	}
	return xvar.Pos()
}

// AddAnd creates an AND node over children (zero or more literals) and
// returns its extension literal.
func (g *Graph) AddAnd(children ...z.Lit) z.Lit {
	return g.newNode(KindAnd, children)
}

// AddOr creates an OR node over exactly two children and returns its
// extension literal. The two-argument signature enforces spec.md §3's
// invariant that OR has degree exactly 2.
func (g *Graph) AddOr(a, b z.Lit) z.Lit {
	return g.newNode(KindOr, []z.Lit{a, b})
}

// AddSkolem creates a SKOLEM node over lits, the literals of projection
// (non-data) variables this node existentially covers. It panics if any
// variable occurs in both polarities among lits, per spec.md §4.5's
// Skolem-soundness check.
func (g *Graph) AddSkolem(lits []z.Lit) z.Lit {
	checkSkolemSound(lits)
	return g.newNode(KindSkolem, lits)
}

func checkSkolemSound(lits []z.Lit) {
	seen := map[z.Var]z.Lit{}
	for _, l := range lits {
		if prev, ok := seen[l.Var()]; ok && prev != l {
			panic(fmt.Sprintf("pog: skolem node unsound: variable %v occurs in both polarities", l.Var()))
		}
		seen[l.Var()] = l
	}
}

// ComputeTreeSizes fills in TreeSize for every node in g.order (which must
// already be topologically sorted, children before parents): sum of
// children's tree sizes plus degree plus 1, 0 for SKOLEM; an input-variable
// literal reference counts 1 and a constant reference counts 0.
func (g *Graph) ComputeTreeSizes() {
	for _, v := range g.order {
		n := g.nodes[v]
		if n.Kind == KindSkolem {
			n.TreeSize = 0
			continue
		}
		size := 1 + len(n.Children)
		for _, c := range n.Children {
			size += g.childTreeSize(c)
		}
		n.TreeSize = size
	}
}

func (g *Graph) childTreeSize(lit z.Lit) int {
	if lit.IsConst() {
		return 0
	}
	if v := lit.Var(); v >= g.StartExtVar {
		if cn := g.nodes[v]; cn != nil {
			return cn.TreeSize
		}
	}
	return 1
}

// DAGSize returns the total number of nodes reachable from root (including
// root), counted once each regardless of indegree.
func (g *Graph) DAGSize(root z.Lit) int {
	seen := map[z.Var]bool{}
	var visit func(lit z.Lit)
	visit = func(lit z.Lit) {
		if lit.IsConst() {
			return
		}
		v := lit.Var()
		if v < g.StartExtVar || seen[v] {
			return
		}
		seen[v] = true
		n := g.nodes[v]
		if n == nil {
			return
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(root)
	return len(seen)
}

// FindSplittingLiteral scans the two children vectors of an OR node's
// arguments a and b (treating a non-AND argument as a length-1 array of
// itself) for some literal l present in a and -l present in b. It returns l,
// or LitNull if none is found, per spec.md §4.5.
func (g *Graph) FindSplittingLiteral(a, b z.Lit) z.Lit {
	la := g.argLits(a)
	lb := g.argLits(b)
	negB := map[z.Lit]bool{}
	for _, l := range lb {
		negB[l.Not()] = true
	}
	for _, l := range la {
		if negB[l] {
			return l
		}
	}
	return z.LitNull
}

// argLits returns the literal vector a splitting search treats lit as: its
// AND node's children if it is a positive reference to an AND node, else a
// singleton of itself.
func (g *Graph) argLits(lit z.Lit) []z.Lit {
	if lit.IsConst() {
		return []z.Lit{lit}
	}
	v := lit.Var()
	if v < g.StartExtVar {
		return []z.Lit{lit}
	}
	n := g.nodes[v]
	if n == nil || n.Kind != KindAnd || !lit.IsPos() {
		return []z.Lit{lit}
	}
	return n.Children
}

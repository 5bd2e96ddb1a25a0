package pog

import (
	"github.com/cpogcore/cpog/internal/store"
	"github.com/cpogcore/cpog/z"
)

// Concretize emits, for every node in g.Order() (which must already be in
// topological order — the shape Compress's pass 2 produces), its defining
// clauses into st, recording each node's DefiningCID as the first clause of
// its block, per spec.md §4.5:
//
//   - AND(c1..ck):  {xvar, -c1, ..., -ck}  and  {-xvar, ci} for each i.
//   - OR(c1,c2):    {-xvar, c1, c2}  and  {xvar, -ci} for each i.
//   - SKOLEM(l1..lk): {xvar}. The k reverse clauses {-xvar, li} are only
//     materialized when explicitDeletion is set; otherwise they are virtual
//     (implicitly true but never added to the store, per spec.md §4.5).
func Concretize(st *store.Store, g *Graph, explicitDeletion bool) {
	for _, v := range g.Order() {
		n := g.nodes[v]
		xvar := n.XVar.Pos()
		switch n.Kind {
		case KindAnd:
			fwd := make([]z.Lit, 0, len(n.Children)+1)
			fwd = append(fwd, xvar)
			for _, c := range n.Children {
				fwd = append(fwd, c.Not())
			}
			first := st.AddInput(store.NewClause(fwd))
			n.DefiningCID = first
			for _, c := range n.Children {
				st.AddInput(store.NewClause([]z.Lit{xvar.Not(), c}))
			}
		case KindOr:
			c1, c2 := n.Children[0], n.Children[1]
			first := st.AddInput(store.NewClause([]z.Lit{xvar.Not(), c1, c2}))
			n.DefiningCID = first
			st.AddInput(store.NewClause([]z.Lit{xvar, c1.Not()}))
			st.AddInput(store.NewClause([]z.Lit{xvar, c2.Not()}))
		case KindSkolem:
			first := st.AddInput(store.NewClause([]z.Lit{xvar}))
			n.DefiningCID = first
			if explicitDeletion {
				for _, l := range n.Children {
					st.AddInput(store.NewClause([]z.Lit{xvar.Not(), l}))
				}
			}
		}
	}
}

// DefiningBlockSize returns the number of clauses concretize emits for a
// node of kind with the given child count, used by callers that need to
// compute a node's clause-id range without re-running Concretize.
func DefiningBlockSize(kind Kind, nChildren int, explicitDeletion bool) int {
	switch kind {
	case KindAnd:
		return 1 + nChildren
	case KindOr:
		return 3
	case KindSkolem:
		if explicitDeletion {
			return 1 + nChildren
		}
		return 1
	default:
		return 0
	}
}

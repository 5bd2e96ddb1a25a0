package justify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cpogcore/cpog/internal/reason"
	"github.com/cpogcore/cpog/internal/store"
	"github.com/cpogcore/cpog/internal/watch"
	"github.com/cpogcore/cpog/pog"
	"github.com/cpogcore/cpog/z"
)

func lit(i int32) z.Lit { return z.Var(i).Pos() }

func newEngine(g *pog.Graph, st *store.Store) *Engine {
	w := watch.New(st)
	r := reason.New(st, w)
	return New(g, st, r, Config{MonolithicThreshold: 0, TreeRatioThreshold: 1e9})
}

// TestJustifySkolem checks that a SKOLEM node's literal is asserted citing
// only its own defining clause.
func TestJustifySkolem(t *testing.T) {
	g := pog.NewGraph(3)
	skLit := g.AddSkolem([]z.Lit{lit(2), lit(3)})
	g.Root = skLit

	st := store.New()
	pog.Concretize(st, g, false)

	e := newEngine(g, st)
	cid, err := e.Justify(skLit, z.LitNull, false)
	require.NoError(t, err)
	c := st.Get(cid)
	require.NotNil(t, c)
	require.Len(t, c.Lits, 1)
	require.Equal(t, skLit, c.Lits[0])
}

// TestJustifyAndWithLiteralChildren exercises the literal-child validation
// path (one literal at a time, since MultiLiteral is unset) on a small AND
// node over two input literals.
func TestJustifyAndWithLiteralChildren(t *testing.T) {
	g := pog.NewGraph(2)
	andLit := g.AddAnd(lit(1), lit(2))
	g.Root = andLit

	st := store.New()
	st.AddInput(store.NewClause([]z.Lit{lit(1)}))
	st.AddInput(store.NewClause([]z.Lit{lit(2)}))
	pog.Concretize(st, g, false)

	e := newEngine(g, st)
	e.R.PushAssigned(lit(1))
	e.R.PushAssigned(lit(2))

	cid, err := e.Justify(andLit, z.LitNull, false)
	require.NoError(t, err)
	require.NotEqual(t, store.CIDNull, cid)
}

package deletion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpogcore/cpog/internal/reason"
	"github.com/cpogcore/cpog/internal/store"
	"github.com/cpogcore/cpog/internal/watch"
	"github.com/cpogcore/cpog/pog"
	"github.com/cpogcore/cpog/z"
)

func lit(i int32) z.Lit { return z.Var(i).Pos() }

func TestDeleteStructuralImpliedClause(t *testing.T) {
	g := pog.NewGraph(2)
	andLit := g.AddAnd(lit(1), lit(2))
	g.Root = andLit

	st := store.New()
	// An input clause implied by the AND node: {1, 2} (any of its
	// literals alone is implied, and the OR of them certainly is).
	cid := st.AddInput(store.NewClause([]z.Lit{lit(1), lit(2)}))
	nInputOriginal := st.NInput()
	pog.Concretize(st, g, false)

	w := watch.New(st)
	r := reason.New(st, w)
	rootUnit := st.AddProof(store.NewClause([]z.Lit{andLit}))

	p := New(g, st, r, rootUnit, nInputOriginal)
	ce, err := p.DeleteAll(ModeStructural)
	require.NoError(t, err)
	assert.Nil(t, ce, "expected no counterexample")
	assert.True(t, st.IsDeleted(cid), "expected input clause to be deleted")
}

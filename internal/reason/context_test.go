package reason

import (
	"testing"

	"github.com/cpogcore/cpog/internal/store"
	"github.com/cpogcore/cpog/internal/watch"
	"github.com/cpogcore/cpog/z"
)

func v(i int32) z.Var { return z.Var(i) }

func newTestReasoner() (*Reasoner, *store.Store) {
	st := store.New()
	w := watch.New(st)
	return New(st, w), st
}

func addAndActivate(t *testing.T, r *Reasoner, st *store.Store, lits ...z.Lit) store.CID {
	t.Helper()
	cid := st.AddInput(store.NewClause(lits))
	r.Activate(cid)
	return cid
}

// TestContextRestoresState checks the invariant from spec.md §8: after
// new_context(); ...; pop_context(); the set of active clauses, unit
// literals, and assigned-literal vector equal their pre-call values.
func TestContextRestoresState(t *testing.T) {
	r, st := newTestReasoner()
	addAndActivate(t, r, st, v(1).Pos(), v(2).Pos())
	addAndActivate(t, r, st, v(3).Pos())

	preActive := r.ActiveClauses()
	preTrailLen := len(r.trail)

	r.NewContext()
	r.PushAssigned(v(1).Neg())
	extra := addAndActivate(t, r, st, v(4).Pos(), v(5).Pos())
	if conflict := r.BCP(false); conflict != store.CIDNull {
		t.Fatalf("unexpected conflict: %v", conflict)
	}
	r.PopContext()

	postActive := r.ActiveClauses()
	if len(postActive) != len(preActive) {
		t.Fatalf("active clause count changed: pre=%v post=%v", preActive, postActive)
	}
	for i := range preActive {
		if preActive[i] != postActive[i] {
			t.Fatalf("active clause set diverged: pre=%v post=%v", preActive, postActive)
		}
	}
	if r.IsActive(extra) {
		t.Fatalf("clause activated inside the popped context is still active")
	}
	if len(r.trail) != preTrailLen {
		t.Fatalf("trail length changed: pre=%d post=%d", preTrailLen, len(r.trail))
	}
	if r.Value(v(1).Pos()) != 0 {
		t.Fatalf("v1 should be unassigned after pop, got %d", r.Value(v(1).Pos()))
	}
}

// TestBCPDerivesUnit exercises a minimal 2WL unit-propagation chain: {1,2},
// {-1} assumed, should derive 2 as a unit with no conflict.
func TestBCPDerivesUnit(t *testing.T) {
	r, st := newTestReasoner()
	addAndActivate(t, r, st, v(1).Pos(), v(2).Pos())

	r.NewContext()
	defer r.PopContext()
	r.PushAssigned(v(1).Neg())
	if conflict := r.BCP(false); conflict != store.CIDNull {
		t.Fatalf("unexpected conflict: %v", conflict)
	}
	if r.Value(v(2).Pos()) != 1 {
		t.Fatalf("expected v2 to be derived true, got %d", r.Value(v(2).Pos()))
	}
}

// TestBCPConflict checks that propagating into a contradiction emits an
// empty (or otherwise falsified) proof clause and is detectable via BCP's
// return value.
func TestBCPConflict(t *testing.T) {
	r, st := newTestReasoner()
	addAndActivate(t, r, st, v(1).Pos(), v(2).Pos())
	addAndActivate(t, r, st, v(1).Pos(), v(2).Neg())
	addAndActivate(t, r, st, v(1).Neg())

	if conflict := r.BCP(false); conflict == store.CIDNull {
		t.Fatalf("expected a conflict to be found")
	} else {
		c := st.Get(conflict)
		if c == nil || len(c.Lits) != 0 {
			t.Fatalf("expected emitted conflict clause to be empty, got %v", c)
		}
	}
}

func TestPartitionClauses(t *testing.T) {
	r, st := newTestReasoner()
	addAndActivate(t, r, st, v(1).Pos(), v(2).Pos())
	addAndActivate(t, r, st, v(2).Pos(), v(3).Pos())
	addAndActivate(t, r, st, v(4).Pos(), v(5).Pos())

	p := r.PartitionClauses()
	if p.Count() != 2 {
		t.Fatalf("expected 2 components, got %d", p.Count())
	}
	if len(p.Of(v(1))) != 2 {
		t.Fatalf("expected component of v1 to hold 2 clauses, got %d", len(p.Of(v(1))))
	}
	if len(p.Of(v(4))) != 1 {
		t.Fatalf("expected component of v4 to hold 1 clause, got %d", len(p.Of(v(4))))
	}
}

func TestRupValidate(t *testing.T) {
	r, st := newTestReasoner()
	addAndActivate(t, r, st, v(1).Pos(), v(2).Pos())
	addAndActivate(t, r, st, v(1).Neg(), v(2).Pos())

	// {2} is implied: negating it (-2) plus the two binary clauses forces
	// v1 both true and false.
	_, hints, ok := r.RupValidate([]z.Lit{v(2).Pos()}, false)
	if !ok {
		t.Fatalf("expected RUP validation of {2} to succeed")
	}
	if len(hints) == 0 {
		t.Fatalf("expected a non-empty hint list")
	}
}

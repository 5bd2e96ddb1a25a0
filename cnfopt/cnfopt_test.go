package cnfopt

import (
	"testing"

	"github.com/cpogcore/cpog/z"
)

func lit(i int32) z.Lit { return z.Var(i).Pos() }
func nlit(i int32) z.Lit { return z.Var(i).Neg() }

func TestUnitPropagateDerivesKeepUnit(t *testing.T) {
	c := New(3, map[z.Var]bool{2: true})
	c.AddClause([]z.Lit{lit(1)})
	c.AddClause([]z.Lit{nlit(1), lit(2)})

	c.UnitPropagate()
	if c.UNSAT {
		t.Fatalf("unexpected UNSAT")
	}
	found := false
	for _, u := range c.Units {
		if u == lit(2) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected keep-variable unit 2 to be recorded, got %v", c.Units)
	}
}

func TestUnitPropagateConflict(t *testing.T) {
	c := New(1, nil)
	c.AddClause([]z.Lit{lit(1)})
	c.AddClause([]z.Lit{nlit(1)})

	c.UnitPropagate()
	if !c.UNSAT {
		t.Fatalf("expected UNSAT")
	}
}

func TestOrderedBVEEliminatesNonKeepVar(t *testing.T) {
	// v2 appears once positive, once negative, among clauses over v1, v3.
	c := New(3, map[z.Var]bool{1: true, 3: true})
	c.AddClause([]z.Lit{lit(1), lit(2)})
	c.AddClause([]z.Lit{nlit(2), lit(3)})

	c.OrderedBVE(4)
	for id, cl := range c.clauses {
		for _, l := range cl.lits {
			if l.Var() == 2 {
				t.Fatalf("clause %d still mentions eliminated variable 2: %v", id, cl.lits)
			}
		}
	}
	if !c.hasEqual(sortedCopy([]z.Lit{lit(1), lit(3)})) {
		t.Fatalf("expected resolvent {1,3} to be present")
	}
}

func TestOrderedBVESkipsKeepVar(t *testing.T) {
	c := New(2, map[z.Var]bool{1: true})
	c.AddClause([]z.Lit{lit(1), lit(2)})
	c.AddClause([]z.Lit{nlit(1), lit(2)})

	c.OrderedBVE(100)
	for _, cl := range c.clauses {
		for _, l := range cl.lits {
			if l.Var() == 1 {
				return // found: v1 was not eliminated
			}
		}
	}
	t.Fatalf("expected keep-variable 1 to survive BVE")
}

func TestResolveTautology(t *testing.T) {
	a := []z.Lit{lit(1), lit(2)}
	b := []z.Lit{nlit(1), nlit(2)}
	if r := resolve(a, b, 1); r != nil {
		t.Fatalf("expected tautology (nil), got %v", r)
	}
}

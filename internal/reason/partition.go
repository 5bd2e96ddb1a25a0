package reason

import (
	"github.com/cpogcore/cpog/internal/store"
	"github.com/cpogcore/cpog/z"
)

// Partition is the result of partitioning the active clause set by
// variable connectivity: every clause is assigned to exactly one
// representative variable's component.
type Partition struct {
	VarToRep map[z.Var]z.Var
	RepToCID map[z.Var][]store.CID
}

// uf is a small union-find over variables.
type uf struct{ parent map[z.Var]z.Var }

func newUF() *uf { return &uf{parent: map[z.Var]z.Var{}} }

func (u *uf) find(v z.Var) z.Var {
	if _, ok := u.parent[v]; !ok {
		u.parent[v] = v
		return v
	}
	root := v
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[v] != root {
		u.parent[v], v = root, u.parent[v]
	}
	return root
}

func (u *uf) union(a, b z.Var) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

// PartitionClauses runs union-find over variables that co-occur in the
// active clauses (after BCP has removed satisfied ones), producing the
// var→representative map and representative→clause-ids map that
// justify's AND-node structural proof uses to recurse independently over
// each child's disjoint clause subset.
func (r *Reasoner) PartitionClauses() Partition {
	u := newUF()
	active := r.ActiveClauses()
	simplified := make(map[store.CID]*store.Clause, len(active))
	for _, cid := range active {
		c := r.St.Get(cid)
		if c == nil {
			continue
		}
		sc, ok := store.Simplify(c, func(m z.Lit) bool { return r.Value(m) == 1 })
		if !ok || sc == nil || len(sc.Lits) == 0 {
			continue
		}
		simplified[cid] = sc
		first := sc.Lits[0].Var()
		u.find(first)
		for _, l := range sc.Lits[1:] {
			u.union(first, l.Var())
		}
	}
	p := Partition{VarToRep: map[z.Var]z.Var{}, RepToCID: map[z.Var][]store.CID{}}
	for cid, sc := range simplified {
		if len(sc.Lits) == 0 {
			continue
		}
		rep := u.find(sc.Lits[0].Var())
		for _, l := range sc.Lits {
			p.VarToRep[l.Var()] = rep
		}
		p.RepToCID[rep] = append(p.RepToCID[rep], cid)
	}
	return p
}

// Count returns the number of distinct components found.
func (p Partition) Count() int { return len(p.RepToCID) }

// Of returns the clause ids belonging to the component containing v.
func (p Partition) Of(v z.Var) []store.CID {
	rep, ok := p.VarToRep[v]
	if !ok {
		return nil
	}
	return p.RepToCID[rep]
}

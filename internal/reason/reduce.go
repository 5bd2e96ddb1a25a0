package reason

import (
	"fmt"

	"github.com/cpogcore/cpog/internal/store"
	"github.com/cpogcore/cpog/z"
)

// reduceRun is the escape hatch of spec.md §4.3: it snapshots the active
// clause set (simplified by current units) and hands off to the injected
// SAT/LRAT pipeline to justify lit.
func (r *Reasoner) reduceRun(lit z.Lit) (store.CID, error) {
	if r.Reduce == nil {
		return store.CIDNull, fmt.Errorf("reason: reduce_run invoked for %v but no external solver is configured", lit)
	}
	return r.Reduce(r, lit)
}

// ExtractCNF returns the active clauses simplified under the current unit
// assignment, skipping satisfied clauses, for handing to an external
// solver. Empty (falsified) clauses are impossible here: BCP would already
// have found the conflict.
func (r *Reasoner) ExtractCNF() []*store.Clause {
	active := r.ActiveClauses()
	out := make([]*store.Clause, 0, len(active))
	for _, cid := range active {
		c := r.St.Get(cid)
		if c == nil {
			continue
		}
		sc, ok := store.Simplify(c, func(m z.Lit) bool { return r.Value(m) == 1 })
		if !ok || sc == nil {
			continue
		}
		out = append(out, sc)
	}
	return out
}

package reason

import (
	"github.com/cpogcore/cpog/internal/store"
	"github.com/cpogcore/cpog/z"
)

// BCP runs unit propagation to a fixed point (or, if bounded, until
// BCPLimit trail entries have been processed). It returns the id of a
// newly-emitted conflict clause if propagation derives falsity under the
// current context, or CIDNull otherwise.
//
// On conflict, the emitted clause's hints are the justifying ids of every
// trail literal whose negation the conflicting clause needed, followed by
// the conflicting clause itself — the same construction rup_validate uses.
func (r *Reasoner) BCP(bounded bool) store.CID {
	if r.pendingConflict != nil {
		cid := *r.pendingConflict
		r.pendingConflict = nil
		return r.emitConflict(cid)
	}
	steps := 0
	for r.propHead < len(r.trail) {
		lit := r.trail[r.propHead].lit
		r.propHead++
		conflict, units := r.W.Propagate(lit, r)
		if conflict != nil {
			return r.emitConflict(conflict.CID)
		}
		for _, u := range units {
			if r.Value(u.Lit) == -1 {
				return r.emitConflict(u.CID)
			}
			if r.Value(u.Lit) == 0 {
				r.PushDerived(u.Lit, u.CID)
			}
		}
		steps++
		if bounded && r.BCPLimit > 0 && steps >= r.BCPLimit {
			return store.CIDNull
		}
	}
	return store.CIDNull
}

// emitConflict backtracks the justifying-id graph from conflictCID and
// asserts the empty clause (the current context is inconsistent), returning
// its id.
func (r *Reasoner) emitConflict(conflictCID store.CID) store.CID {
	hints := r.backtrackHints(conflictCID)
	cid := r.St.AddProof(&store.Clause{Lits: nil, Canonized: true, Hints: hints})
	r.lastHints = hints
	return cid
}

// backtrackHints walks backward from a conflicting (or to-be-validated)
// clause through the justifying-clause graph, collecting a minimal set of
// hint clause ids in an order where each hint's own justification appears
// before it.
func (r *Reasoner) backtrackHints(seedCID store.CID) []store.CID {
	visited := map[store.CID]bool{}
	var hints []store.CID
	var visitFalse func(lit z.Lit)
	visitFalse = func(falseLit z.Lit) {
		// falseLit is false: its negation must be a derived/assumed unit.
		cid, ok := r.St.UnitOf(int32(falseLit.Not()))
		if !ok || cid == store.CIDNull || visited[cid] {
			return
		}
		visited[cid] = true
		c := r.St.Get(cid)
		for _, l := range c.Lits {
			if l != falseLit.Not() {
				visitFalse(l)
			}
		}
		hints = append(hints, cid)
	}
	visited[seedCID] = true
	c := r.St.Get(seedCID)
	for _, l := range c.Lits {
		visitFalse(l)
	}
	hints = append(hints, seedCID)
	return hints
}

package reason

import (
	"fmt"

	"github.com/cpogcore/cpog/internal/store"
	"github.com/cpogcore/cpog/z"
)

// Mode selects how far validate_literal is willing to go to prove a
// literal, per spec.md §4.3.
type Mode int

const (
	ModeBBCP Mode = iota // bounded BCP only
	ModeBCP              // unbounded BCP, no SAT fallback
	ModeFull             // BCP, falling back to reduce_run (SAT+LRAT) on failure
	ModeSAT              // go straight to reduce_run
)

// RupValidate negates every literal of target as a temporary assumption,
// propagates, and — on conflict — backtracks the justifying-id graph to a
// minimal hint set. If add is true, the target clause itself is asserted
// into the proof (with those hints) and its id is returned; otherwise only
// the hints are returned.
func (r *Reasoner) RupValidate(target []z.Lit, add bool) (cid store.CID, hints []store.CID, ok bool) {
	r.NewContext()
	defer r.PopContext()
	for _, l := range target {
		if r.Value(l.Not()) == 1 {
			// negation of l already true under this context: the
			// assumption is already in force, nothing to push.
			continue
		}
		if r.Value(l.Not()) == -1 {
			continue
		}
		r.PushAssigned(l.Not())
		if conflictCID := r.pushOnlyBCP(); conflictCID != store.CIDNull {
			return r.finishRup(target, add, conflictCID)
		}
	}
	conflictCID := r.pushOnlyBCP()
	if conflictCID == store.CIDNull {
		return store.CIDNull, nil, false
	}
	return r.finishRup(target, add, conflictCID)
}

// pushOnlyBCP is BCP without re-deriving a proof clause, used while still
// pushing target's negated literals one at a time (mirrors bcp(bounded)
// but reports the raw conflict id, deferring hint construction to the
// caller which knows the full target).
func (r *Reasoner) pushOnlyBCP() store.CID {
	if r.pendingConflict != nil {
		cid := *r.pendingConflict
		r.pendingConflict = nil
		return cid
	}
	for r.propHead < len(r.trail) {
		lit := r.trail[r.propHead].lit
		r.propHead++
		conflict, units := r.W.Propagate(lit, r)
		if conflict != nil {
			return conflict.CID
		}
		for _, u := range units {
			if r.Value(u.Lit) == -1 {
				return u.CID
			}
			if r.Value(u.Lit) == 0 {
				r.PushDerived(u.Lit, u.CID)
			}
		}
	}
	return store.CIDNull
}

func (r *Reasoner) finishRup(target []z.Lit, add bool, conflictCID store.CID) (store.CID, []store.CID, bool) {
	hints := r.backtrackHints(conflictCID)
	if !add {
		return store.CIDNull, hints, true
	}
	// asserted outside the temporary context so the clause survives PopContext.
	return r.AssertClause(target, hints), hints, true
}

// AssertClause asserts lits as a RUP-checkable proof clause with the given
// hints, outside of any temporary validation scope, and returns its id.
func (r *Reasoner) AssertClause(lits []z.Lit, hints []store.CID) store.CID {
	c := store.NewClause(lits)
	c.Hints = hints
	cid := r.St.AddProof(c)
	r.lastHints = hints
	return cid
}

// ValidateLiteral proves lit under the current context using mode, and
// registers it as a derived unit on success. It returns the id of the
// clause that makes lit a unit.
func (r *Reasoner) ValidateLiteral(lit z.Lit, mode Mode) (store.CID, error) {
	if r.Value(lit) == 1 {
		cid, _ := r.St.UnitOf(int32(lit))
		return cid, nil
	}
	if mode == ModeSAT {
		return r.reduceRun(lit)
	}
	r.NewContext()
	r.PushAssigned(lit.Not())
	conflictCID := r.BCP(mode == ModeBBCP)
	r.PopContextKeepingResult()
	if conflictCID != store.CIDNull {
		hints := r.LastHints()
		cid := r.AssertClause([]z.Lit{lit}, hints)
		r.PushDerived(lit, cid)
		return cid, nil
	}
	if mode == ModeFull {
		return r.reduceRun(lit)
	}
	return store.CIDNull, fmt.Errorf("reason: validate_literal(%v, %v) failed to find a conflict", lit, mode)
}

// PopContextKeepingResult is PopContext, named to make call sites read as
// "undo the speculative assumption, we already extracted what we needed".
func (r *Reasoner) PopContextKeepingResult() { r.PopContext() }

// ValidateLiterals bulk-validates a list of literals: it first tries
// ModeBBCP on each independently. Any that fail are bundled into a single
// throwaway AND-shaped extension variable e (reverse clause {e,¬l1,...,¬lk}
// plus one forward clause {¬e,li} per unresolved li); e is validated once
// via ModeFull, and each unresolved li then follows from e in two hints:
// its forward clause and e's validating clause.
func (r *Reasoner) ValidateLiterals(lits []z.Lit, freshVar func() z.Var) (map[z.Lit]store.CID, error) {
	result := map[z.Lit]store.CID{}
	var unresolved []z.Lit
	for _, l := range lits {
		cid, err := r.ValidateLiteral(l, ModeBBCP)
		if err == nil {
			result[l] = cid
			continue
		}
		unresolved = append(unresolved, l)
	}
	if len(unresolved) == 0 {
		return result, nil
	}
	e := freshVar().Pos()
	reverseLits := append([]z.Lit{e}, negatedAll(unresolved)...)
	reverseCID := r.St.AddProof(store.NewClause(reverseLits))
	r.Activate(reverseCID)
	forwardCID := map[z.Lit]store.CID{}
	for _, l := range unresolved {
		cid := r.St.AddProof(store.NewClause([]z.Lit{e.Not(), l}))
		r.Activate(cid)
		forwardCID[l] = cid
	}
	eCID, err := r.ValidateLiteral(e, ModeFull)
	if err != nil {
		return nil, fmt.Errorf("reason: validate_literals: %w", err)
	}
	for _, l := range unresolved {
		cid := r.AssertClause([]z.Lit{l}, []store.CID{forwardCID[l], eCID})
		r.PushDerived(l, cid)
		result[l] = cid
	}
	return result, nil
}

func negatedAll(lits []z.Lit) []z.Lit {
	out := make([]z.Lit, len(lits))
	for i, l := range lits {
		out[i] = l.Not()
	}
	return out
}

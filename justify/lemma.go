package justify

import (
	"github.com/cpogcore/cpog/internal/store"
	"github.com/cpogcore/cpog/pog"
	"github.com/cpogcore/cpog/z"
)

// activationCache caches the activation literal minted for a given
// simplified-clause body (by hash), so repeated lemma extraction over the
// same reduced body reuses one auxiliary clause instead of minting a fresh
// one every time, per spec.md §3's "aux clauses outlive the lemma that
// created them" lifecycle note.
type activationCache struct {
	byHash map[uint64]z.Lit
}

func newActivationCache() *activationCache {
	return &activationCache{byHash: map[uint64]z.Lit{}}
}

// tryLemma attempts the lemma-cache path of spec.md §4.6's rule 3 for an
// eligible OR node n: if a prior instance with a matching signature exists,
// it is applied; otherwise this becomes the first occurrence, which proves
// structurally and installs the result for later reuse. ok is false only
// when lemma extraction fails (callers fall through to the plain structural
// rule in that case); eligibility is checked by the caller via wantLemma.
func (e *Engine) tryLemma(n *pog.Node, lit, split z.Lit) (store.CID, bool, error) {
	if e.lemmaCache == nil {
		e.lemmaCache = newActivationCache()
	}
	sig, argMap, err := e.extractLemma(split)
	if err != nil {
		return store.CIDNull, false, err
	}
	for _, lm := range n.Lemmas {
		if lm.Signature == sig {
			cid, err := e.applyLemma(lit, split, lm, argMap)
			return cid, true, err
		}
	}
	lm := &pog.Lemma{Signature: sig, ArgMap: argMap, Split: split}
	n.Lemmas = append(n.Lemmas, lm)
	cid, err := e.justifyOr(n, lit)
	lm.JID = cid
	return cid, true, err
}

// extractLemma builds a lemma signature from the current active-clause set:
// for each active clause, it simplifies against current units; clauses that
// changed get an auxiliary clause (keyed by its simplified body, with a
// fresh or reused activation literal), and the sorted set of those aux ids
// is hashed together with split.
func (e *Engine) extractLemma(split z.Lit) (uint64, map[store.CID]store.CID, error) {
	var auxIDs []store.CID
	argMap := map[store.CID]store.CID{}
	for _, cid := range e.R.ActiveClauses() {
		orig := e.St.Get(cid)
		if orig == nil {
			continue
		}
		simplified, ok := store.Simplify(orig, func(l z.Lit) bool { return e.R.Value(l) == 1 })
		if !ok || simplified == nil {
			continue // satisfied under the current context
		}
		if litsEqual(simplified.Lits, orig.Lits) {
			continue // unchanged: no aux needed
		}
		auxCID := e.getOrCreateAux(simplified)
		auxIDs = append(auxIDs, auxCID)
		argMap[auxCID] = cid
	}
	sortCIDs(auxIDs)
	h := uint64(1469598103934665603)
	h = mix(h, uint64(split))
	for _, id := range auxIDs {
		h = mix(h, uint64(id))
	}
	return h, argMap, nil
}

func mix(h, v uint64) uint64 {
	h ^= v + 0x9E3779B97F4A7C15
	h *= 1099511628211
	return h
}

func litsEqual(a, b []z.Lit) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortCIDs(ids []store.CID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// getOrCreateAux returns the auxiliary clause id for simplified's body,
// minting a fresh activation literal (a reasoner extension variable the
// POG will never assign to a node) the first time this body is seen.
func (e *Engine) getOrCreateAux(simplified *store.Clause) store.CID {
	bodyHash := store.Hash(&store.Clause{Lits: simplified.Lits, Canonized: true})
	actLit, ok := e.lemmaCache.byHash[bodyHash]
	if !ok {
		actLit = e.G.AllocExtVar().Pos()
		e.lemmaCache.byHash[bodyHash] = actLit
	}
	withAct := &store.Clause{Lits: simplified.Lits, Canonized: true, ActivatingLit: actLit}
	cid, fresh := e.St.AddAux(withAct, store.Hash(withAct))
	if fresh {
		e.R.Activate(cid)
	}
	return cid
}

// applyLemma re-derives each argument of an existing lemma instance lm
// under the current context, then asserts lit from those re-derivations
// plus the lemma's own justifying clause, per spec.md §4.6's "Subsequent
// occurrences: apply" flow.
func (e *Engine) applyLemma(lit, split z.Lit, lm *pog.Lemma, argMap map[store.CID]store.CID) (store.CID, error) {
	var argCIDs []store.CID
	for auxCID, origCID := range lm.ArgMap {
		aux := e.St.Get(auxCID)
		orig := e.St.Get(origCID)
		if aux == nil || orig == nil {
			continue
		}
		hints := []store.CID{auxCID, origCID}
		for _, l := range orig.Lits {
			if cid, ok := e.St.UnitOf(int32(l.Not())); ok {
				hints = append(hints, cid)
			}
		}
		actLit := aux.ActivatingLit
		cid := e.R.AssertClause([]z.Lit{actLit}, hints)
		e.R.PushDerived(actLit, cid)
		argCIDs = append(argCIDs, cid)
	}
	clauseLits := []z.Lit{lit}
	if split != z.LitNull {
		clauseLits = append(clauseLits, split.Not())
	}
	hints := append(argCIDs, lm.JID)
	cid := e.R.AssertClause(clauseLits, hints)
	e.R.PushDerived(lit, cid)
	return cid, nil
}

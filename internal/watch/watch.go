// Package watch implements the two-watched-literal index over the active
// clause set, with checkpoint/restore so bounded BCP attempts under nested
// reasoner contexts can be rolled back cheaply.
package watch

import (
	"github.com/cpogcore/cpog/internal/store"
	"github.com/cpogcore/cpog/z"
)

// Values gives the watcher read access to the current assignment (1 true,
// -1 false, 0 unassigned) without it owning the trail itself; the trail is
// owned by the reasoner's context stack.
type Values interface {
	Value(m z.Lit) int8
}

// entry is one watch-list member: the clause being watched, and the other
// watched literal kept alongside it as a "blocking literal" so propagate
// can skip a full clause scan when the blocker is already true.
type entry struct {
	cid     store.CID
	blocker z.Lit
}

// Watcher indexes every active clause's two watched literals. A clause is
// listed under the negation of each of its two watched literals: when a
// literal l is asserted true, every clause listed under l has a watched
// literal that just became false and must be re-examined.
type Watcher struct {
	st    *store.Store
	lists map[z.Lit][]entry
	// pair records each active clause's current two watched literals, so
	// Checkpoint/Restore can snapshot and restore them precisely.
	pair map[store.CID][2]z.Lit
}

// New creates an empty watcher over st.
func New(st *store.Store) *Watcher {
	return &Watcher{st: st, lists: map[z.Lit][]entry{}, pair: map[store.CID][2]z.Lit{}}
}

func val(vals Values, m z.Lit) int8 { return vals.Value(m) }

// Conflict is returned by Setup/Propagate when a clause has no remaining
// unassigned watched-literal candidate and is not satisfied.
type Conflict struct {
	CID store.CID
}

// Unit names a clause that became unit, and the single literal it forces.
type Unit struct {
	CID store.CID
	Lit z.Lit
}

// Setup installs watches for every clause in cids given the current
// assignment vals: it moves an unassigned (or satisfied) literal into each
// of the clause's first two positions. A clause with zero candidate
// literals is an immediate conflict; with exactly one, it is unit (and is
// appended to units for the caller to enqueue).
func (w *Watcher) Setup(cids []store.CID, vals Values, units *[]Unit) *Conflict {
	for _, cid := range cids {
		if c := w.setupOne(cid, vals, units); c != nil {
			return c
		}
	}
	return nil
}

func (w *Watcher) setupOne(cid store.CID, vals Values, units *[]Unit) *Conflict {
	c := w.st.Get(cid)
	if c == nil || c.IsTautology {
		return nil
	}
	lits := c.Lits
	if len(lits) == 0 {
		return &Conflict{CID: cid}
	}
	if len(lits) == 1 {
		if val(vals, lits[0]) != -1 {
			w.pair[cid] = [2]z.Lit{lits[0], lits[0]}
			if val(vals, lits[0]) == 0 && units != nil {
				*units = append(*units, Unit{cid, lits[0]})
			}
			return nil
		}
		return &Conflict{CID: cid}
	}
	// find up to two candidate positions: satisfied or unassigned beat falsified
	cand := make([]int, 0, 2)
	for i, l := range lits {
		if val(vals, l) != -1 {
			cand = append(cand, i)
			if len(cand) == 2 {
				break
			}
		}
	}
	switch len(cand) {
	case 0:
		return &Conflict{CID: cid}
	case 1:
		i := cand[0]
		lits[0], lits[i] = lits[i], lits[0]
		w.pair[cid] = [2]z.Lit{lits[0], lits[0]}
		if val(vals, lits[0]) == 0 && units != nil {
			*units = append(*units, Unit{cid, lits[0]})
		}
		return nil
	default:
		i, j := cand[0], cand[1]
		lits[0], lits[i] = lits[i], lits[0]
		if j == 0 {
			j = i
		}
		lits[1], lits[j] = lits[j], lits[1]
		w.install(cid, lits[0], lits[1])
		return nil
	}
}

func (w *Watcher) install(cid store.CID, a, b z.Lit) {
	w.pair[cid] = [2]z.Lit{a, b}
	w.lists[a.Not()] = append(w.lists[a.Not()], entry{cid: cid, blocker: b})
	w.lists[b.Not()] = append(w.lists[b.Not()], entry{cid: cid, blocker: a})
}

// Remove uninstalls a clause's watches, e.g. when it is deactivated.
func (w *Watcher) Remove(cid store.CID) {
	pr, ok := w.pair[cid]
	if !ok {
		return
	}
	delete(w.pair, cid)
	if pr[0] == pr[1] {
		return // unit clause, never installed in lists
	}
	w.removeFrom(pr[0].Not(), cid)
	w.removeFrom(pr[1].Not(), cid)
}

func (w *Watcher) removeFrom(key z.Lit, cid store.CID) {
	es := w.lists[key]
	for i, e := range es {
		if e.cid == cid {
			w.lists[key] = append(es[:i], es[i+1:]...)
			return
		}
	}
}

// Propagate scans the watch list for l (the literal just asserted true) and
// returns any clause whose remaining watched literal could not be swapped
// out, plus the set of literals that became unit as a result. It mutates
// each affected clause's leading two positions in place.
func (w *Watcher) Propagate(l z.Lit, vals Values) (conflict *Conflict, units []Unit) {
	es := w.lists[l]
	keep := es[:0]
	for i := 0; i < len(es); i++ {
		e := es[i]
		if val(vals, e.blocker) == 1 {
			keep = append(keep, e)
			continue
		}
		c := w.st.Get(e.cid)
		if c == nil {
			continue
		}
		lits := c.Lits
		// l.Not() is one of the two watched literals and is now false;
		// find its position.
		pos := 0
		if lits[0] != l.Not() {
			pos = 1
		}
		other := lits[1-pos]
		found := -1
		for k := 2; k < len(lits); k++ {
			if val(vals, lits[k]) != -1 {
				found = k
				break
			}
		}
		if found >= 0 {
			lits[pos], lits[found] = lits[found], lits[pos]
			newLit := lits[pos]
			w.pair[e.cid] = [2]z.Lit{newLit, other}
			w.lists[newLit.Not()] = append(w.lists[newLit.Not()], entry{cid: e.cid, blocker: other})
			continue
		}
		// no replacement: clause is unit on `other`, or a conflict if
		// other is also false.
		keep = append(keep, e)
		switch val(vals, other) {
		case -1:
			w.lists[l] = append(append([]entry{}, keep...), es[i+1:]...)
			return &Conflict{CID: e.cid}, units
		case 0:
			units = append(units, Unit{e.cid, other})
		}
	}
	w.lists[l] = keep
	return nil, units
}

// Checkpoint is an opaque snapshot sufficient to restore the watcher to its
// current state after a bounded/speculative propagation attempt.
type Checkpoint struct {
	listLens map[z.Lit]int
	pairs    map[store.CID][2]z.Lit
}

// Save captures the current lengths of every touched watch list and the
// current watched pair of every active clause in cids, so Restore can
// truncate/undo precisely without copying the whole watcher.
func (w *Watcher) Save(touched []z.Lit, cids []store.CID) Checkpoint {
	cp := Checkpoint{listLens: map[z.Lit]int{}, pairs: map[store.CID][2]z.Lit{}}
	for _, l := range touched {
		cp.listLens[l] = len(w.lists[l])
	}
	for _, cid := range cids {
		if pr, ok := w.pair[cid]; ok {
			cp.pairs[cid] = pr
		}
	}
	return cp
}

// Restore truncates every recorded watch list back to its saved length and
// restores each clause's watched pair, externally re-canonizing the
// clause's leading two positions to match.
func (w *Watcher) Restore(cp Checkpoint) {
	for l, n := range cp.listLens {
		if len(w.lists[l]) > n {
			w.lists[l] = w.lists[l][:n]
		}
	}
	for cid, pr := range cp.pairs {
		w.pair[cid] = pr
		if c := w.st.Get(cid); c != nil {
			store.Rearrange(c, pr[0], pr[1])
		}
	}
}

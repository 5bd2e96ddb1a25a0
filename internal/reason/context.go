// Package reason implements the CNF reasoner: a context-stacked
// unit-propagation engine with two-watched-literal BCP, RUP hint synthesis,
// variable-disjoint clause partitioning, and the SAT-solver escape hatch
// used when structural justification fails.
package reason

import (
	"fmt"
	"sort"

	"github.com/cpogcore/cpog/internal/store"
	"github.com/cpogcore/cpog/internal/watch"
	"github.com/cpogcore/cpog/z"
)

// trailEntry is one (literal, justifying clause) pair on the trail.
// Justifying is store.CIDNull for an assumed (not derived) literal.
type trailEntry struct {
	lit       z.Lit
	justifying store.CID
}

type clearedEntry struct {
	lit     z.Lit
	prevCid store.CID
	hadUnit bool
}

type marker struct {
	trail, cleared, activated int
}

// Reasoner is the CNF reasoner: the clause store, the watcher over the
// active clause set, the current assignment, and the LIFO context stack.
type Reasoner struct {
	St *store.Store
	W  *watch.Watcher

	vals map[z.Var]int8

	trail    []trailEntry
	propHead int

	activeSet map[store.CID]bool

	markers        []marker
	clearedStack   []clearedEntry
	activatedStack []store.CID

	// BCPLimit bounds the number of trail entries processed in a single
	// bounded (BBCP) call; 0 means unlimited.
	BCPLimit int

	// Reduce is the escape hatch to the external SAT/LRAT pipeline; nil
	// disables MODE_FULL/reduce_run (tests that don't need it may leave
	// it unset; reduce_run then returns an error).
	Reduce ReduceFunc

	// pendingConflict holds a conflict discovered synchronously inside
	// Activate (a freshly activated clause can itself conflict with the
	// current assignment); BCP drains it on its next call.
	pendingConflict *store.CID

	// lastHints holds the hint list for the assertion most recently
	// emitted by BCP's conflict path or RupValidate; valid only
	// immediately after the call that populated it.
	lastHints []store.CID
}

// LastHints returns the hint clause ids for the most recent conflict
// assertion or RUP validation.
func (r *Reasoner) LastHints() []store.CID { return r.lastHints }

// ReduceFunc runs the SAT+LRAT pipeline to justify literal l under the
// reasoner's current active clause set, asserting proof clauses as it goes,
// and returns the id of the clause that makes l a unit.
type ReduceFunc func(r *Reasoner, l z.Lit) (store.CID, error)

// New creates a reasoner over st, with watcher w already constructed on the
// same store.
func New(st *store.Store, w *watch.Watcher) *Reasoner {
	return &Reasoner{
		St:        st,
		W:         w,
		vals:      map[z.Var]int8{},
		activeSet: map[store.CID]bool{},
	}
}

// Value implements watch.Values.
func (r *Reasoner) Value(m z.Lit) int8 {
	s := r.vals[m.Var()]
	if s == 0 {
		return 0
	}
	if m.IsPos() {
		return s
	}
	return -s
}

func (r *Reasoner) setVal(m z.Lit, s int8) {
	if m.IsPos() {
		r.vals[m.Var()] = s
	} else {
		r.vals[m.Var()] = -s
	}
}

func (r *Reasoner) unsetVal(m z.Lit) {
	delete(r.vals, m.Var())
}

// IsActive reports whether cid is currently in the active clause set.
func (r *Reasoner) IsActive(cid store.CID) bool { return r.activeSet[cid] }

// ActiveClauses returns the currently active clause ids, in ascending
// order. Intended for snapshotting (extract_cnf, partitioning).
func (r *Reasoner) ActiveClauses() []store.CID {
	out := make([]store.CID, 0, len(r.activeSet))
	for cid, on := range r.activeSet {
		if on {
			out = append(out, cid)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Activate adds cid to the active set and installs its watches, recording
// the activation on the current frame so PopContext can undo it.
func (r *Reasoner) Activate(cid store.CID) {
	if r.activeSet[cid] {
		return
	}
	r.activeSet[cid] = true
	r.activatedStack = append(r.activatedStack, cid)
	var units []watch.Unit
	if conflict := r.W.Setup([]store.CID{cid}, r, &units); conflict != nil {
		// A freshly activated clause found already-conflicting: record as
		// a trail conflict via bcp's normal machinery next call.
		r.pendingConflict = &conflict.CID
		return
	}
	for _, u := range units {
		r.PushDerived(u.Lit, u.CID)
	}
}

// Deactivate removes cid from the active set immediately (not frame
// scoped); used by the deletion prover's RUP mode and lemma-context setup.
func (r *Reasoner) Deactivate(cid store.CID) {
	if !r.activeSet[cid] {
		return
	}
	r.activeSet[cid] = false
	r.W.Remove(cid)
}

// PushAssigned records an externally-caused (not unit-propagated)
// assignment of lit, with no justifying clause.
func (r *Reasoner) PushAssigned(lit z.Lit) {
	if r.Value(lit) == -1 {
		panic(fmt.Sprintf("reason: conflicting assignment of %v", lit))
	}
	if r.Value(lit) == 1 {
		return
	}
	r.setVal(lit, 1)
	r.trail = append(r.trail, trailEntry{lit, store.CIDNull})
	r.St.SetUnit(int32(lit), store.CIDNull)
}

// PushDerived records a unit-propagated assignment of lit, justified by cid.
func (r *Reasoner) PushDerived(lit z.Lit, cid store.CID) {
	if r.Value(lit) == -1 {
		panic(fmt.Sprintf("reason: conflicting derivation of %v", lit))
	}
	if r.Value(lit) == 1 {
		return
	}
	r.setVal(lit, 1)
	r.trail = append(r.trail, trailEntry{lit, cid})
	r.St.SetUnit(int32(lit), cid)
}

// ClearLiteral temporarily revokes lit's unit registration (and value),
// recording enough to restore it on the next PopContext; used when a
// lemma context must reason only over activation-gated aux clauses rather
// than the literal unit context surrounding it.
func (r *Reasoner) ClearLiteral(lit z.Lit) {
	cid, ok := r.St.UnitOf(int32(lit))
	r.clearedStack = append(r.clearedStack, clearedEntry{lit, cid, ok})
	r.unsetVal(lit)
	r.St.ClearUnit(int32(lit))
}

// NewContext opens a new frame on the context stack.
func (r *Reasoner) NewContext() {
	r.markers = append(r.markers, marker{
		trail:     len(r.trail),
		cleared:   len(r.clearedStack),
		activated: len(r.activatedStack),
	})
}

// PopContext unwinds to the most recently opened frame: deactivates clauses
// activated since, undoes trail assignments since (in reverse), and
// re-inserts cleared literals (in the order they were cleared).
func (r *Reasoner) PopContext() {
	if len(r.markers) == 0 {
		panic("reason: PopContext without NewContext")
	}
	m := r.markers[len(r.markers)-1]
	r.markers = r.markers[:len(r.markers)-1]

	for i := len(r.activatedStack) - 1; i >= m.activated; i-- {
		cid := r.activatedStack[i]
		r.activeSet[cid] = false
		r.W.Remove(cid)
	}
	r.activatedStack = r.activatedStack[:m.activated]

	for i := len(r.trail) - 1; i >= m.trail; i-- {
		e := r.trail[i]
		r.unsetVal(e.lit)
		r.St.ClearUnit(int32(e.lit))
	}
	r.trail = r.trail[:m.trail]
	if r.propHead > len(r.trail) {
		r.propHead = len(r.trail)
	}

	for i := m.cleared; i < len(r.clearedStack); i++ {
		ce := r.clearedStack[i]
		if ce.hadUnit {
			r.St.SetUnit(int32(ce.lit), ce.prevCid)
			r.setVal(ce.lit, 1)
		}
	}
	r.clearedStack = r.clearedStack[:m.cleared]
}

// Depth returns the number of open context frames.
func (r *Reasoner) Depth() int { return len(r.markers) }

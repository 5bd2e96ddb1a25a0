// Package cnfopt implements the pre-ingest CNF optimizer of spec.md §4.4: a
// standalone clause representation (distinct from internal/store, since this
// runs before any proof is produced) supporting alternating unit
// propagation and bounded-degree variable elimination before the formula is
// handed to the external d-DNNF compiler.
package cnfopt

import (
	"bufio"
	"fmt"
	"sort"

	"github.com/cpogcore/cpog/z"
)

// CNF is a mutable clause set keyed for fast per-literal lookup, mirroring
// the teacher's dimacs reader shape but adding the occurrence index BVE
// needs.
type CNF struct {
	NVar    z.Var
	clauses map[int]*clause // id -> clause; ids never reused once deleted
	nextID  int
	byLit   map[z.Lit]map[int]bool // literal -> set of clause ids containing it
	byHash  map[uint64][]int

	// Keep marks the data/show variables that unit_propagate and BVE must
	// never eliminate.
	Keep map[z.Var]bool

	// Units accumulates every unit literal derived so far, restricted to
	// keep-variables, in derivation order (spec.md §4.4).
	Units []z.Lit

	// UNSAT is set once unit_propagate derives the empty clause.
	UNSAT bool
}

type clause struct {
	lits []z.Lit
}

// New creates an empty optimizer state for a formula over nvar variables,
// with the given keep-variable set.
func New(nvar z.Var, keep map[z.Var]bool) *CNF {
	return &CNF{
		NVar:    nvar,
		clauses: map[int]*clause{},
		byLit:   map[z.Lit]map[int]bool{},
		byHash:  map[uint64][]int{},
		Keep:    keep,
	}
}

func sortedCopy(lits []z.Lit) []z.Lit {
	out := append([]z.Lit(nil), lits...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func hashOf(lits []z.Lit) uint64 {
	h := uint64(1469598103934665603)
	for _, l := range lits {
		h ^= uint64(l) + 0x9E3779B97F4A7C15
		h *= 1099511628211
	}
	return h
}

func dedupSorted(lits []z.Lit) ([]z.Lit, bool) {
	out := lits[:0]
	for i, l := range lits {
		if i > 0 {
			if l == out[len(out)-1] {
				continue
			}
			if l == out[len(out)-1].Not() {
				return nil, true // tautology
			}
		}
		out = append(out, l)
	}
	return out, false
}

// AddClause inserts a clause (not yet canonized) into the optimizer's index
// and returns its id.
func (c *CNF) AddClause(lits []z.Lit) int {
	sorted := sortedCopy(lits)
	deduped, taut := dedupSorted(sorted)
	if taut {
		return -1
	}
	id := c.nextID
	c.nextID++
	cl := &clause{lits: deduped}
	c.clauses[id] = cl
	for _, l := range deduped {
		if c.byLit[l] == nil {
			c.byLit[l] = map[int]bool{}
		}
		c.byLit[l][id] = true
	}
	h := hashOf(deduped)
	c.byHash[h] = append(c.byHash[h], id)
	return id
}

func (c *CNF) removeClause(id int) {
	cl, ok := c.clauses[id]
	if !ok {
		return
	}
	delete(c.clauses, id)
	for _, l := range cl.lits {
		delete(c.byLit[l], id)
	}
}

func (c *CNF) hasEqual(lits []z.Lit) bool {
	h := hashOf(lits)
	for _, id := range c.byHash[h] {
		cl, ok := c.clauses[id]
		if !ok {
			continue
		}
		if litsEqual(cl.lits, lits) {
			return true
		}
	}
	return false
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

// posNeg returns the clause ids in which v occurs positively and negatively.
func (c *CNF) posNeg(v z.Var) (pos, neg []int) {
	for id := range c.byLit[v.Pos()] {
		pos = append(pos, id)
	}
	for id := range c.byLit[v.Neg()] {
		neg = append(neg, id)
	}
	return
}

// UnitPropagate runs classic unit propagation to a fixed point (or to the
// empty clause). It returns true if it made progress (derived at least one
// new unit or proved UNSAT).
func (c *CNF) UnitPropagate() bool {
	progress := false
	for {
		var unitID int = -1
		var unitLit z.Lit
		for id, cl := range c.clauses {
			if len(cl.lits) == 0 {
				c.UNSAT = true
				return true
			}
			if len(cl.lits) == 1 {
				unitID, unitLit = id, cl.lits[0]
				break
			}
		}
		if unitID == -1 {
			return progress
		}
		progress = true
		if c.Keep[unitLit.Var()] {
			c.Units = append(c.Units, unitLit)
		}
		c.assertLiteral(unitLit)
	}
}

// assertLiteral removes every clause satisfied by lit and shrinks every
// clause containing lit.Not(), detecting the empty clause.
func (c *CNF) assertLiteral(lit z.Lit) {
	for id := range c.byLit[lit] {
		c.removeClause(id)
	}
	falsified := make([]int, 0)
	for id := range c.byLit[lit.Not()] {
		falsified = append(falsified, id)
	}
	for _, id := range falsified {
		cl := c.clauses[id]
		newLits := make([]z.Lit, 0, len(cl.lits)-1)
		for _, l := range cl.lits {
			if l != lit.Not() {
				newLits = append(newLits, l)
			}
		}
		c.removeClause(id)
		if len(newLits) == 0 {
			c.UNSAT = true
			c.clauses[c.nextID] = &clause{lits: nil}
			c.nextID++
			return
		}
		c.reinsert(newLits)
	}
}

func (c *CNF) reinsert(lits []z.Lit) {
	id := c.nextID
	c.nextID++
	cl := &clause{lits: lits}
	c.clauses[id] = cl
	for _, l := range lits {
		if c.byLit[l] == nil {
			c.byLit[l] = map[int]bool{}
		}
		c.byLit[l][id] = true
	}
	c.byHash[hashOf(lits)] = append(c.byHash[hashOf(lits)], id)
}

// OrderedBVE eliminates every non-keep variable v (ascending) whose
// degree bound |pos|*|neg| - (|pos|+|neg|) <= maxDegree^2 - 2*maxDegree
// permits resolution, adding deduplicated resolvents and deleting all
// clauses mentioning v. Adding a resolvent that reintroduces a smaller
// variable retreats the sweep pointer to it, per spec.md §4.4. It returns
// true if it eliminated at least one variable.
func (c *CNF) OrderedBVE(maxDegree int) bool {
	bound := maxDegree*maxDegree - 2*maxDegree
	progress := false
	v := z.Var(1)
	for v <= c.NVar {
		if c.Keep[v] {
			v++
			continue
		}
		pos, neg := c.posNeg(v)
		degree := len(pos)*len(neg) - (len(pos) + len(neg))
		if len(pos) == 0 && len(neg) == 0 {
			v++
			continue
		}
		if degree > bound {
			v++
			continue
		}
		retreat := c.eliminate(v, pos, neg)
		progress = true
		if retreat != 0 && retreat < v {
			v = retreat
			continue
		}
		v++
	}
	return progress
}

// eliminate resolves out v across every pos/neg clause pair, installing
// non-tautological, non-duplicate resolvents, then deletes the originals.
// It returns the smallest variable id introduced by a resolvent that is
// less than v (0 if none), so the caller can retreat the sweep pointer.
func (c *CNF) eliminate(v z.Var, pos, neg []int) z.Var {
	retreat := z.Var(0)
	for _, pid := range pos {
		pcl, ok := c.clauses[pid]
		if !ok {
			continue
		}
		for _, nid := range neg {
			ncl, ok := c.clauses[nid]
			if !ok {
				continue
			}
			resolvent := resolve(pcl.lits, ncl.lits, v)
			if resolvent == nil {
				continue // tautology
			}
			if c.hasEqual(resolvent) {
				continue
			}
			c.AddClause(resolvent)
			for _, l := range resolvent {
				if lv := l.Var(); lv < v && (retreat == 0 || lv < retreat) {
					retreat = lv
				}
			}
		}
	}
	for _, id := range pos {
		c.removeClause(id)
	}
	for _, id := range neg {
		c.removeClause(id)
	}
	return retreat
}

// resolve returns the sorted, deduplicated resolvent of a clause containing
// v.Pos() and one containing v.Neg(), or nil if the resolvent is a
// tautology (some other variable appears with both phases).
func resolve(a, b []z.Lit, v z.Var) []z.Lit {
	merged := make([]z.Lit, 0, len(a)+len(b)-2)
	for _, l := range a {
		if l.Var() != v {
			merged = append(merged, l)
		}
	}
	for _, l := range b {
		if l.Var() != v {
			merged = append(merged, l)
		}
	}
	sorted := sortedCopy(merged)
	deduped, taut := dedupSorted(sorted)
	if taut {
		return nil
	}
	return deduped
}

// Optimize alternates UnitPropagate and OrderedBVE(maxDegree) passes while
// either makes progress, per spec.md §4.4.
func (c *CNF) Optimize(maxDegree int) {
	for {
		up := c.UnitPropagate()
		if c.UNSAT {
			return
		}
		bve := c.OrderedBVE(maxDegree)
		if !up && !bve {
			return
		}
	}
}

// WriteDIMACS emits the current clause set as a DIMACS CNF, with the
// remembered keep-variable units prepended as unit clauses, per spec.md
// §4.4's final emission step.
func (c *CNF) WriteDIMACS(w *bufio.Writer) error {
	ids := make([]int, 0, len(c.clauses))
	for id := range c.clauses {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	nclauses := len(c.Units) + len(ids)
	if c.UNSAT {
		nclauses++
	}
	if _, err := fmt.Fprintf(w, "p cnf %d %d\n", int(c.NVar), nclauses); err != nil {
		return err
	}
	for _, u := range c.Units {
		if _, err := fmt.Fprintf(w, "%d 0\n", u.Dimacs()); err != nil {
			return err
		}
	}
	if c.UNSAT {
		if _, err := fmt.Fprintln(w, "0"); err != nil {
			return err
		}
	}
	for _, id := range ids {
		cl := c.clauses[id]
		for _, l := range cl.lits {
			if _, err := fmt.Fprintf(w, "%d ", l.Dimacs()); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, "0"); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Package deletion implements the input-clause deletion prover of spec.md
// §4.7: once every POG node has been justified, each original input clause
// must be proved implied by the POG's root (so it can be deleted from the
// proof's active set) or the run fails with a counter-model.
package deletion

import (
	"fmt"

	"github.com/cpogcore/cpog/internal/reason"
	"github.com/cpogcore/cpog/internal/store"
	"github.com/cpogcore/cpog/pog"
	"github.com/cpogcore/cpog/z"
)

// Mode selects the deletion strategy.
type Mode int

const (
	// ModeStructural labels each node with whether its sub-function
	// implies the target clause, then emits a hint chain from that
	// labeling. The default, per spec.md §4.7.
	ModeStructural Mode = iota
	// ModeRUP deactivates all original clauses, activates the root unit
	// and every POG defining clause, and RUP-validates each original
	// clause's deletion directly.
	ModeRUP
)

// Prover runs the deletion phase over a concretized, fully-justified POG.
type Prover struct {
	G        *pog.Graph
	St       *store.Store
	R        *reason.Reasoner
	RootUnit store.CID // the clause that makes the POG's root literal a unit

	// NInputOriginal bounds the clause-id range this prover deletes: only
	// ids 1..NInputOriginal are genuine original input clauses. pog.Concretize
	// appends its own Tseitin defining clauses to the same store range via
	// AddInput, so St.NInput() alone overcounts once concretization has run.
	NInputOriginal store.CID

	// Deletions accumulates one record per clause deleted by DeleteAll, in
	// the order they were deleted, for the proof emitter to turn into 'd'
	// directives.
	Deletions []DeletionRecord
}

// DeletionRecord is one deleted input clause and the hint chain that
// justifies its deletion.
type DeletionRecord struct {
	Clause store.CID
	Hints  []store.CID
}

// New creates a deletion prover. nInputOriginal is the number of genuine
// input clauses, before pog.Concretize appended its defining clauses to the
// same store range.
func New(g *pog.Graph, st *store.Store, r *reason.Reasoner, rootUnit store.CID, nInputOriginal store.CID) *Prover {
	return &Prover{G: g, St: st, R: r, RootUnit: rootUnit, NInputOriginal: nInputOriginal}
}

// Counterexample is a partial assignment witnessing that the POG's root
// does not imply an input clause: it satisfies the POG's semantics while
// falsifying the clause.
type Counterexample struct {
	Clause    store.CID
	Partial   map[z.Var]bool
}

// DeleteAll runs the deletion phase over every input clause in id order
// under mode, returning the first counterexample encountered (if any).
func (p *Prover) DeleteAll(mode Mode) (*Counterexample, error) {
	switch mode {
	case ModeStructural:
		return p.deleteStructural()
	case ModeRUP:
		return p.deleteRUP()
	default:
		return nil, fmt.Errorf("deletion: unknown mode %d", mode)
	}
}

// implication caches, per node xvar, whether that node's sub-function is
// known to imply the clause currently being deleted, and the hint(s) that
// justify the label.
type implication struct {
	implies map[z.Var]bool
	hint    map[z.Var]store.CID
}

// deleteStructural implements spec.md §4.7's structural mode: for each
// input clause (in id order), label every node with implies_clause, then
// either emit the deletion with a hint chain rooted at the POG's root, or
// synthesize a counterexample.
func (p *Prover) deleteStructural() (*Counterexample, error) {
	for cid := store.CID(1); cid <= p.NInputOriginal; cid++ {
		c := p.St.Get(cid)
		if c == nil {
			continue // already deleted, or never existed at this id
		}
		lits := map[z.Lit]bool{}
		for _, l := range c.Lits {
			lits[l] = true
		}
		imp := &implication{implies: map[z.Var]bool{}, hint: map[z.Var]store.CID{}}
		rootImplies := p.label(p.G.Root, lits, imp)
		if !rootImplies {
			return p.counterexample(cid, lits, imp), nil
		}
		hints := append([]store.CID{p.RootUnit}, p.collectHints(p.G.Root, imp)...)
		p.emitDeletion(cid, hints)
	}
	return nil, nil
}

// label computes implies_clause for every node reachable from lit
// (memoized in imp), bottom-up, and returns the label for lit itself.
func (p *Prover) label(lit z.Lit, clauseLits map[z.Lit]bool, imp *implication) bool {
	if lit.IsConst() {
		if lit == z.True {
			return clauseImpliedByTrue(clauseLits)
		}
		return true
	}
	if lit.Var() < p.G.StartExtVar {
		return clauseLits[lit] // a leaf literal implies the clause iff it's in it
	}
	if v, ok := imp.implies[lit.Var()]; ok {
		if !lit.IsPos() {
			return false
		}
		return v
	}
	n := p.G.Node(lit.Var())
	var result bool
	switch n.Kind {
	case pog.KindAnd, pog.KindSkolem:
		result = false
		for i, c := range n.Children {
			if p.label(c, clauseLits, imp) {
				result = true
				imp.hint[n.XVar] = n.DefiningCID + store.CID(i+1)
				break
			}
		}
	case pog.KindOr:
		result = p.label(n.Children[0], clauseLits, imp) && p.label(n.Children[1], clauseLits, imp)
		if result {
			imp.hint[n.XVar] = n.DefiningCID
		}
	}
	imp.implies[n.XVar] = result
	if !lit.IsPos() {
		return false // negative reference to a node is never used by this prover
	}
	return result
}

func clauseImpliedByTrue(clauseLits map[z.Lit]bool) bool { return len(clauseLits) > 0 }

// collectHints walks the implication labeling from root, gathering each
// node's recorded hint in postorder (children before parents).
func (p *Prover) collectHints(root z.Lit, imp *implication) []store.CID {
	visited := map[z.Var]bool{}
	var hints []store.CID
	var visit func(lit z.Lit)
	visit = func(lit z.Lit) {
		if lit.IsConst() || lit.Var() < p.G.StartExtVar {
			return
		}
		v := lit.Var()
		if visited[v] {
			return
		}
		visited[v] = true
		n := p.G.Node(v)
		for _, c := range n.Children {
			visit(c)
		}
		if h, ok := imp.hint[v]; ok {
			hints = append(hints, h)
		}
	}
	visit(root)
	return hints
}

// emitDeletion asserts the deletion line { C, unit_cid_for_root, hints... }
// and marks the clause deleted in the store.
func (p *Prover) emitDeletion(cid store.CID, hints []store.CID) {
	p.St.Delete(cid)
	p.Deletions = append(p.Deletions, DeletionRecord{Clause: cid, Hints: hints})
}

// counterexample synthesizes a partial assignment that satisfies the POG
// but falsifies clauseLits, per spec.md §4.7: for AND/SKOLEM, propagate the
// enforced assignment from the clause's negation down; for OR, pick a
// child whose implies flag is false.
func (p *Prover) counterexample(cid store.CID, clauseLits map[z.Lit]bool, imp *implication) *Counterexample {
	partial := map[z.Var]bool{}
	for l := range clauseLits {
		partial[l.Var()] = !l.IsPos()
	}
	var descend func(lit z.Lit)
	descend = func(lit z.Lit) {
		if lit.IsConst() || lit.Var() < p.G.StartExtVar {
			return
		}
		n := p.G.Node(lit.Var())
		switch n.Kind {
		case pog.KindOr:
			for _, c := range n.Children {
				if !imp.implies[c.Var()] {
					descend(c)
					return
				}
			}
		case pog.KindAnd, pog.KindSkolem:
			for _, c := range n.Children {
				descend(c)
			}
		}
	}
	descend(p.G.Root)
	return &Counterexample{Clause: cid, Partial: partial}
}

// deleteRUP implements spec.md §4.7's alternative RUP mode: deactivate all
// original clauses, activate the root-unit clause and every POG defining
// clause, then RUP-validate each original clause's deletion.
func (p *Prover) deleteRUP() (*Counterexample, error) {
	for cid := store.CID(1); cid <= p.NInputOriginal; cid++ {
		p.R.Deactivate(cid)
	}
	if p.RootUnit != store.CIDNull {
		p.R.Activate(p.RootUnit)
	}
	for _, v := range p.G.Order() {
		n := p.G.Node(v)
		start := n.DefiningCID
		n2 := pog.DefiningBlockSize(n.Kind, len(n.Children), false)
		for i := 0; i < n2; i++ {
			p.R.Activate(start + store.CID(i))
		}
	}
	for cid := store.CID(1); cid <= p.NInputOriginal; cid++ {
		c := p.St.Get(cid)
		if c == nil {
			continue
		}
		_, hints, ok := p.R.RupValidate(c.Lits, false)
		if !ok {
			return &Counterexample{Clause: cid}, nil
		}
		p.emitDeletion(cid, hints)
	}
	return nil, nil
}

// Package justify implements the justification engine of spec.md §4.6: it
// recursively proves, for each POG node, that its defining clauses together
// with the current reasoner context imply the node's extension literal,
// emitting RUP-checkable asserted clauses with hints.
//
// It uses two strategies — "structural" (decompose by node type, partition
// clauses across node-typed AND children) and "monolithic" (reduce the
// active clause set and shell out to the reasoner's SAT/LRAT escape hatch)
// — with a size/shape-driven fallback between them, and a lemma cache keyed
// by signature so that proofs of shared OR sub-DAGs are computed once.
package justify

import (
	"fmt"

	"github.com/cpogcore/cpog/internal/store"
	"github.com/cpogcore/cpog/pog"
	"github.com/cpogcore/cpog/internal/reason"
	"github.com/cpogcore/cpog/z"
)

// Config gathers the strategy-selection thresholds of spec.md §6's CLI
// surface that this package consumes.
type Config struct {
	UseLemmas            bool
	MultiLiteral         bool
	NoMutex              bool
	MonolithicThreshold  int
	TreeRatioThreshold   float64
}

// Engine ties the POG, the clause store, and the reasoner together to run
// the justification algorithm over a single compressed, concretized graph.
type Engine struct {
	G   *pog.Graph
	St  *store.Store
	R   *reason.Reasoner
	Cfg Config

	lemmaCache *activationCache

	// mutexProved records, per OR node xvar, whether this engine
	// established the two children's mutual exclusion via a SAT/RUP-proved
	// mutex clause (as opposed to a syntactic splitting literal, which
	// emitProof can always re-check structurally without consulting this
	// map). Populated only by justifyOr.
	mutexProved map[z.Var]bool
}

// New creates a justification engine over an already-concretized graph.
func New(g *pog.Graph, st *store.Store, r *reason.Reasoner, cfg Config) *Engine {
	return &Engine{G: g, St: st, R: r, Cfg: cfg, mutexProved: map[z.Var]bool{}}
}

// MutexProved reports whether xvar's OR node had its mutual exclusion
// established by a SAT/RUP-proved mutex clause during justification (rather
// than a syntactic splitting literal, or not at all).
func (e *Engine) MutexProved(xvar z.Var) bool { return e.mutexProved[xvar] }

// Justify proves lit under the current reasoner context and returns the id
// of the clause that makes it a unit, per the priority-ordered rules of
// spec.md §4.6. split is the splitting literal supplied by an OR parent (0
// if none); useLemma enables the lemma-cache path for eligible nodes.
func (e *Engine) Justify(lit z.Lit, split z.Lit, useLemma bool) (store.CID, error) {
	if lit.Var() < e.G.StartExtVar {
		// Rule 1: lit names an input variable directly.
		return e.R.ValidateLiteral(lit, reason.ModeFull)
	}
	n := e.G.Node(lit.Var())
	if n == nil {
		return store.CIDNull, fmt.Errorf("justify: no POG node for variable %v", lit.Var())
	}

	dagSize := e.G.DAGSize(lit)
	ratio := 0.0
	if dagSize > 0 {
		ratio = float64(n.TreeSize) / float64(dagSize)
	}
	if n.TreeSize < e.Cfg.MonolithicThreshold || ratio > e.Cfg.TreeRatioThreshold {
		return e.justifyMonolithic(lit, split)
	}

	if useLemma && e.Cfg.UseLemmas && wantLemma(n) {
		if cid, ok, err := e.tryLemma(n, lit, split); ok {
			return cid, err
		}
	}

	switch n.Kind {
	case pog.KindOr:
		return e.justifyOr(n, lit)
	case pog.KindAnd:
		return e.justifyAnd(n, lit, split)
	case pog.KindSkolem:
		return e.justifySkolem(n, lit)
	default:
		return store.CIDNull, fmt.Errorf("justify: unknown node kind for %v", lit)
	}
}

// wantLemma reports whether n is eligible for the lemma cache: an OR node
// referenced by at least two parents, per spec.md §4.6.
func wantLemma(n *pog.Node) bool {
	return n.Kind == pog.KindOr && n.Indegree >= 2
}

// justifyMonolithic pushes -lit (and split, if supplied) as a temporary
// context, then defers the proof to the reasoner's SAT/LRAT escape hatch
// over the resulting active clause set, per spec.md §4.3's reduce_run and
// §4.6's "Monolithic proof" rule.
func (e *Engine) justifyMonolithic(lit, split z.Lit) (store.CID, error) {
	e.R.NewContext()
	defer e.R.PopContext()
	if split != z.LitNull {
		e.R.PushAssigned(split)
		if conflict := e.R.BCP(false); conflict != store.CIDNull {
			return conflict, nil
		}
	}
	if e.R.Value(lit) != 1 {
		e.R.PushAssigned(lit.Not())
	}
	return e.R.ValidateLiteral(lit, reason.ModeSAT)
}

// proveMutex asserts the clause {¬c0, ¬c1} via RUP, establishing that an
// OR node's two children are mutually exclusive under the current context
// when no syntactic splitting literal does the job for free, per spec.md
// §8's OR-mutex property and the SAT-proved-mutex-clause case of §6's
// --no-mutex flag. Returns false if RUP cannot discharge it; the node is
// then left to emit as a weak sum.
func (e *Engine) proveMutex(c0, c1 z.Lit) (store.CID, bool) {
	target := []z.Lit{c0.Not(), c1.Not()}
	_, hints, ok := e.R.RupValidate(target, false)
	if !ok {
		return store.CIDNull, false
	}
	return e.R.AssertClause(target, hints), true
}

// justifySkolem emits lit's single assertion citing only its node's
// defining clause as a hint, per spec.md §4.6.
func (e *Engine) justifySkolem(n *pog.Node, lit z.Lit) (store.CID, error) {
	cid := e.R.AssertClause([]z.Lit{lit}, []store.CID{n.DefiningCID})
	e.R.PushDerived(lit, cid)
	return cid, nil
}

// justifyOr implements the OR node proof of spec.md §4.6: it finds the
// splitting literal between the two children, justifies each under the
// matching context assumption, and combines the two sub-proofs (or emits a
// single assertion if one child trivially discharges).
func (e *Engine) justifyOr(n *pog.Node, lit z.Lit) (store.CID, error) {
	c0, c1 := n.Children[0], n.Children[1]
	split := e.G.FindSplittingLiteral(c0, c1)

	if split == z.LitNull && !e.Cfg.NoMutex {
		if _, ok := e.proveMutex(c0, c1); ok {
			e.mutexProved[n.XVar] = true
		}
	}

	proveChild := func(assume, child z.Lit) (store.CID, []store.CID, bool, error) {
		if split != z.LitNull && e.R.Value(assume) == 1 {
			// the assumption already holds as a unit: trivial discharge.
			cid, _ := e.St.UnitOf(int32(child))
			return cid, nil, true, nil
		}
		e.R.NewContext()
		defer e.R.PopContext()
		if split != z.LitNull {
			e.R.PushAssigned(assume)
			if conflict := e.R.BCP(false); conflict != store.CIDNull {
				return conflict, e.R.LastHints(), false, nil
			}
		}
		jid, err := e.Justify(child, split, true)
		if err != nil {
			return store.CIDNull, nil, false, err
		}
		return jid, nil, false, nil
	}

	assume0, assume1 := split, split.Not()
	if split == z.LitNull {
		assume0, assume1 = z.LitNull, z.LitNull
	}
	jid0, _, trivial0, err := proveChild(assume0, c0)
	if err != nil {
		return store.CIDNull, err
	}
	jid1, _, trivial1, err := proveChild(assume1, c1)
	if err != nil {
		return store.CIDNull, err
	}

	hints0 := []store.CID{n.DefiningCID + 1, jid0}
	hints1 := []store.CID{n.DefiningCID + 2, jid1}

	if trivial0 || trivial1 || split == z.LitNull {
		hints := hints1
		if trivial1 {
			hints = hints0
		}
		cid := e.R.AssertClause([]z.Lit{lit}, hints)
		e.R.PushDerived(lit, cid)
		return cid, nil
	}

	implCID := e.R.AssertClause([]z.Lit{split.Not(), lit}, hints0)
	cid := e.R.AssertClause([]z.Lit{lit}, append(append([]store.CID{}, hints1...), implCID))
	e.R.PushDerived(lit, cid)
	return cid, nil
}

// justifyAnd implements the AND node proof of spec.md §4.6: literal
// children are validated (in bulk when MultiLiteral is set, one at a time
// otherwise), SKOLEM children contribute only their
// defining clause as a hint, and node-typed children are recursively
// justified over their own disjoint partition of the active clause set.
func (e *Engine) justifyAnd(n *pog.Node, lit, split z.Lit) (store.CID, error) {
	e.R.NewContext()
	defer e.R.PopContext()

	var assumed []z.Lit
	if split != z.LitNull {
		e.R.PushAssigned(split)
		if conflict := e.R.BCP(false); conflict != store.CIDNull {
			return conflict, nil
		}
		assumed = append(assumed, split)
	}

	var hints []store.CID
	var literalChildren []z.Lit
	var skolemChildren []*pog.Node
	var nodeChildren []z.Lit

	for _, c := range n.Children {
		if c.Var() < e.G.StartExtVar || c.IsConst() {
			literalChildren = append(literalChildren, c)
			continue
		}
		cn := e.G.Node(c.Var())
		if cn != nil && cn.Kind == pog.KindSkolem && c.IsPos() {
			skolemChildren = append(skolemChildren, cn)
			continue
		}
		nodeChildren = append(nodeChildren, c)
	}

	if len(literalChildren) > 0 {
		if e.Cfg.MultiLiteral {
			freshVar := freshVarAbove(e.G)
			validated, err := e.R.ValidateLiterals(literalChildren, freshVar)
			if err != nil {
				return store.CIDNull, fmt.Errorf("justify: and-node literal validation: %w", err)
			}
			for _, c := range literalChildren {
				hints = append(hints, validated[c])
			}
		} else {
			for _, c := range literalChildren {
				cid, err := e.R.ValidateLiteral(c, reason.ModeFull)
				if err != nil {
					return store.CIDNull, fmt.Errorf("justify: and-node literal validation: %w", err)
				}
				hints = append(hints, cid)
			}
		}
	}
	for _, sk := range skolemChildren {
		hints = append(hints, sk.DefiningCID)
	}

	if len(nodeChildren) > 0 {
		part := e.R.PartitionClauses()
		if part.Count() == len(nodeChildren) {
			// One component per node-typed child: restrict the active set to
			// each child's own partition before recursing, so the recursive
			// call can never lean on a sibling's clauses.
			for _, c := range nodeChildren {
				allowed := map[store.CID]bool{}
				for _, cid := range part.Of(c.Var()) {
					allowed[cid] = true
				}
				removed := e.restrictActive(allowed)
				jid, err := e.Justify(c, 0, true)
				e.restoreActive(removed)
				if err != nil {
					return store.CIDNull, err
				}
				hints = append(hints, jid)
			}
		} else {
			// Couldn't find a clean partitioning: give up on structural
			// decomposition for this node entirely and defer to monolithic
			// proof of lit itself.
			return e.justifyMonolithic(lit, split)
		}
	}

	hints = append(hints, n.DefiningCID)
	clauseLits := append([]z.Lit{lit}, negateAll(assumed)...)
	cid := e.R.AssertClause(clauseLits, hints)
	e.R.PushDerived(lit, cid)
	return cid, nil
}

// restrictActive deactivates every currently active clause not in allowed,
// returning the deactivated ids so restoreActive can put them back once the
// restricted recursion is done.
func (e *Engine) restrictActive(allowed map[store.CID]bool) []store.CID {
	var removed []store.CID
	for _, cid := range e.R.ActiveClauses() {
		if !allowed[cid] {
			e.R.Deactivate(cid)
			removed = append(removed, cid)
		}
	}
	return removed
}

// restoreActive reactivates clauses previously removed by restrictActive.
func (e *Engine) restoreActive(cids []store.CID) {
	for _, cid := range cids {
		e.R.Activate(cid)
	}
}

func negateAll(lits []z.Lit) []z.Lit {
	out := make([]z.Lit, len(lits))
	for i, l := range lits {
		out[i] = l.Not()
	}
	return out
}

// freshVarAbove returns a fresh-variable allocator rooted above every xvar
// the graph has assigned so far, advancing g's extension-variable counter
// so POG and reasoner extension variables never collide.
func freshVarAbove(g *pog.Graph) func() z.Var {
	return func() z.Var {
		return g.AllocExtVar()
	}
}

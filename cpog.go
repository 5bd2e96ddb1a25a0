// Package cpog orchestrates the full core pipeline of spec.md §2: ingest a
// d-DNNF and its CNF, build and compress the POG, concretize its defining
// clauses, justify every node, delete the input clauses, and emit a CPOG
// proof. The escalating capacity-hint constructor pattern (NewConfig /
// NewConfigVars / NewConfigFull) follows the teacher's NewS/NewSV/NewSVc
// family in internal/xo/s.go.
package cpog

import (
	"fmt"
	"io"

	"github.com/cpogcore/cpog/deletion"
	"github.com/cpogcore/cpog/internal/reason"
	"github.com/cpogcore/cpog/internal/store"
	"github.com/cpogcore/cpog/internal/watch"
	"github.com/cpogcore/cpog/justify"
	"github.com/cpogcore/cpog/pog"
	"github.com/cpogcore/cpog/proof"
	"github.com/cpogcore/cpog/satx"
	"github.com/cpogcore/cpog/stats"
	"github.com/cpogcore/cpog/z"

	"github.com/sirupsen/logrus"
)

// Config gathers every flag the core consumes from the CLI surface of
// spec.md §6.
type Config struct {
	NoMutex          bool
	MultiLiteral     bool
	UseLemmas        bool
	ExplicitDeletion bool

	DRATThreshold        int
	MonolithicThreshold  int
	TreeRatioThreshold   float64
	BCPLimit             int
	Backend              satx.Backend

	ClauseLimit store.CID

	Log   *logrus.Logger
	Stats stats.Handle
}

// NewConfig returns a Config with the same defaults the teacher's NewS()
// applies: small capacity hints, structural strategies preferred, mutex
// proving and lemma sharing both on.
func NewConfig() Config {
	return NewConfigFull(0, 0)
}

// NewConfigVars scales the monolithic threshold to a variable-count hint,
// mirroring NewSV's single capacity-hint escalation.
func NewConfigVars(nvarHint int) Config {
	return NewConfigFull(nvarHint, nvarHint*8)
}

// NewConfigFull is the base constructor; monolithicHint and clauseHint seed
// MonolithicThreshold and ClauseLimit respectively (0 means "use the
// built-in default").
func NewConfigFull(monolithicHint, clauseHint int) Config {
	cfg := Config{
		UseLemmas:           true,
		MonolithicThreshold:  monolithicHint,
		TreeRatioThreshold:   8.0,
		BCPLimit:             10000,
		DRATThreshold:        1000,
		Backend:              satx.BackendCadicalLRAT,
		Log:                  logrus.New(),
		Stats:                stats.Noop{},
	}
	if cfg.MonolithicThreshold == 0 {
		cfg.MonolithicThreshold = 16
	}
	if clauseHint > 0 {
		cfg.ClauseLimit = store.CID(clauseHint)
	}
	return cfg
}

// Error is the sum-typed fatal-error value the core returns, per spec.md
// §7: every invariant violation or external-solver failure carries a Kind
// so callers can distinguish "deletion counterexample found" (an expected,
// reportable outcome) from a true bug.
type Error struct {
	Kind    ErrorKind
	Message string
	Wrapped error
}

// ErrorKind enumerates the core's fatal-error categories.
type ErrorKind int

const (
	ErrInvariant ErrorKind = iota
	ErrDeletionCounterexample
	ErrExternalSolver
	ErrParse
)

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("cpog: %s: %v", e.Message, e.Wrapped)
	}
	return fmt.Sprintf("cpog: %s", e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

func fatal(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Core runs the pipeline of spec.md §2 over one compiled instance.
type Core struct {
	Cfg Config

	St *store.Store
	W  *watch.Watcher
	R  *reason.Reasoner
	G  *pog.Graph

	nInputOriginal store.CID
	eng            *justify.Engine
}

// NewCore wires a fresh reasoner/store/watcher stack over an already-built
// POG graph g with nInput original input clauses already added to st.
func NewCore(cfg Config, st *store.Store, g *pog.Graph) *Core {
	st.ClauseLimit = cfg.ClauseLimit
	w := watch.New(st)
	r := reason.New(st, w)
	r.BCPLimit = cfg.BCPLimit
	c := &Core{Cfg: cfg, St: st, W: w, R: r, G: g, nInputOriginal: st.NInput()}
	r.Reduce = c.reduceRun
	for cid := store.CID(1); cid <= st.NInput(); cid++ {
		r.Activate(cid)
	}
	return c
}

// Run executes the full pipeline: compress twice, concretize, justify every
// node bottom-up, assert the root unit, delete the input clauses (or assert
// the empty clause in the UNSAT case), and emit the proof to w.
func (c *Core) Run(w io.Writer, isProj pog.IsProjection) error {
	g1, root1 := c.G.Compress(c.G.Root, true, isProj)
	g2, root2 := g1.Compress(root1, false, nil)
	c.G = g2
	c.G.Root = root2
	c.G.ComputeTreeSizes()

	pog.Concretize(c.St, c.G, c.Cfg.ExplicitDeletion)

	eng := justify.New(c.G, c.St, c.R, justify.Config{
		UseLemmas:           c.Cfg.UseLemmas,
		MultiLiteral:        c.Cfg.MultiLiteral,
		NoMutex:              c.Cfg.NoMutex,
		MonolithicThreshold:  c.Cfg.MonolithicThreshold,
		TreeRatioThreshold:   c.Cfg.TreeRatioThreshold,
	})
	c.eng = eng

	for _, v := range c.G.Order() {
		n := c.G.Node(v)
		blockStart := n.DefiningCID
		blockSize := pog.DefiningBlockSize(n.Kind, len(n.Children), c.Cfg.ExplicitDeletion)
		for i := 0; i < blockSize; i++ {
			c.R.Activate(blockStart + store.CID(i))
		}
	}

	rootLit := c.G.Root
	if rootLit == z.False {
		rootUnit := c.R.AssertClause(nil, nil)
		return c.finish(w, rootUnit, true)
	}
	if rootLit == z.True {
		// a POG that compresses to the constant true needs no
		// justification: every input clause is trivially implied.
		return c.finish(w, store.CIDNull, false)
	}

	jid, err := eng.Justify(rootLit, z.LitNull, true)
	if err != nil {
		c.Cfg.Log.WithError(err).Error("justify failed on root")
		return fatal(ErrInvariant, "justify(root) failed").Wrapped2(err)
	}
	rootUnit := c.R.AssertClause([]z.Lit{rootLit}, []store.CID{jid})
	c.R.PushDerived(rootLit, rootUnit)

	return c.finish(w, rootUnit, false)
}

func (c *Core) finish(w io.Writer, rootUnit store.CID, unsat bool) error {
	dp := deletion.New(c.G, c.St, c.R, rootUnit, c.nInputOriginal)
	ce, err := dp.DeleteAll(deletion.ModeStructural)
	if err != nil {
		return fatal(ErrInvariant, "deletion prover error").Wrapped2(err)
	}
	if ce != nil {
		c.Cfg.Log.WithField("clause", ce.Clause).Error("deletion counterexample found")
		return fatal(ErrDeletionCounterexample, "input clause %d is not implied by the POG root", ce.Clause)
	}

	tw := proof.NewTextWriter(w, c.nInputOriginal)
	tw.DeclareRoot(c.G.Root)
	if unsat {
		tw.Comment("unsat: asserting empty clause")
	}
	c.emitProof(tw, dp)
	return tw.Flush()
}

// emitProof re-plays the store's POG-declaration, auxiliary, and
// proof-clause ranges through tw, remapping the store's internal clause
// numbering to the emitter's own monotonic line ids as it goes (the two
// numberings only coincide over the original input range, ids
// 1..nInputOriginal). Auxiliary clauses minted for lemma sharing are
// re-emitted as bare structural assertions: getOrCreateAux never records a
// hint chain for them (see DESIGN.md's activation-literal note), so this is
// a best-effort re-declaration rather than a re-derivation.
func (c *Core) emitProof(tw *proof.TextWriter, dp *deletion.Prover) {
	remap := map[store.CID]store.CID{}
	for cid := store.CID(1); cid <= c.nInputOriginal; cid++ {
		remap[cid] = cid
	}
	remapHints := func(hints []store.CID) []store.CID {
		out := make([]store.CID, 0, len(hints))
		for _, h := range hints {
			if r, ok := remap[h]; ok {
				out = append(out, r)
			}
		}
		return out
	}

	for _, v := range c.G.Order() {
		n := c.G.Node(v)
		var a proof.Assertion
		switch n.Kind {
		case pog.KindAnd:
			a = tw.StartAnd(n.XVar, n.Children)
		case pog.KindOr:
			a = tw.StartOr(n.XVar, n.Children[0], n.Children[1], c.orIsWeak(n))
		case pog.KindSkolem:
			a = tw.StartSkolem(n.XVar, n.Children)
		default:
			continue
		}
		emittedStart := a.Finish()
		blockSize := pog.DefiningBlockSize(n.Kind, len(n.Children), c.Cfg.ExplicitDeletion)
		for i := 0; i < blockSize; i++ {
			remap[n.DefiningCID+store.CID(i)] = emittedStart + store.CID(i)
		}
	}

	for _, cid := range c.St.AuxIDs() {
		cl := c.St.Get(cid)
		if cl == nil {
			continue
		}
		a := tw.StartStructuralAssertion(cl.Lits)
		for _, h := range remapHints(cl.Hints) {
			a.AddHint(h)
		}
		remap[cid] = a.Finish()
	}

	for i, cl := range c.St.Proof {
		storeCID := c.St.NInput() + store.CID(i) + 1
		a := tw.StartAssertion(cl.Lits)
		for _, h := range remapHints(cl.Hints) {
			a.AddHint(h)
		}
		remap[storeCID] = a.Finish()
	}

	for _, rec := range dp.Deletions {
		tw.DeleteWithHints(remap[rec.Clause], remapHints(rec.Hints))
	}
}

// orIsWeak decides the OR declaration's weak-sum flag: --no-mutex forces
// every OR weak; otherwise a node is strong (non-weak) if a syntactic
// splitting literal makes its children mutually exclusive for free (cheap
// to recheck here structurally), or if justify established that via a
// SAT/RUP-proved mutex clause during the run.
func (c *Core) orIsWeak(n *pog.Node) bool {
	if c.Cfg.NoMutex {
		return true
	}
	if c.G.FindSplittingLiteral(n.Children[0], n.Children[1]) != z.LitNull {
		return false
	}
	return !c.eng.MutexProved(n.XVar)
}

// reduceRun is the reasoner's SAT/LRAT escape hatch: it snapshots the
// active clause set, shells out via satx, and transliterates each LRAT
// step into a proof clause with hints remapped from the subprocess's local
// numbering back to store ids.
func (c *Core) reduceRun(r *reason.Reasoner, lit z.Lit) (store.CID, error) {
	cnf := r.ExtractCNF()
	driver := satx.NewDriver(c.Cfg.Backend)
	if len(cnf) < c.Cfg.DRATThreshold {
		return c.reduceRunDRAT(r, lit, driver, cnf)
	}
	steps, err := driver.Run(cnf)
	if err != nil {
		return store.CIDNull, fatal(ErrExternalSolver, "reduce_run(%v)", lit).Wrapped2(err)
	}
	localToCID := map[int]store.CID{}
	var lastCID store.CID
	for _, step := range steps {
		if step.Delete {
			continue // the local CNF snapshot's own clauses are never in our store
		}
		hints := make([]store.CID, 0, len(step.Hints))
		for _, h := range step.Hints {
			if cid, ok := localToCID[h]; ok {
				hints = append(hints, cid)
			}
		}
		cid := r.AssertClause(step.Lits, hints)
		localToCID[step.ID] = cid
		lastCID = cid
		if len(step.Lits) == 1 {
			r.PushDerived(step.Lits[0], cid)
		}
	}
	if lastCID == store.CIDNull {
		return store.CIDNull, fatal(ErrExternalSolver, "reduce_run(%v) produced no proof steps", lit)
	}
	return lastCID, nil
}

// reduceRunDRAT is reduce_run's small-problem path: the backend emits a
// hintless DRAT proof, and each clause is independently RUP-validated
// against the local context rather than trusted via emitted hints.
func (c *Core) reduceRunDRAT(r *reason.Reasoner, lit z.Lit, driver *satx.Driver, cnf []*store.Clause) (store.CID, error) {
	steps, err := driver.RunDRAT(cnf)
	if err != nil {
		return store.CIDNull, fatal(ErrExternalSolver, "reduce_run(%v) drat", lit).Wrapped2(err)
	}
	var lastCID store.CID
	for _, step := range steps {
		if step.Delete {
			continue
		}
		_, hints, ok := r.RupValidate(step.Lits, false)
		if !ok {
			return store.CIDNull, fatal(ErrExternalSolver, "reduce_run(%v): drat clause failed rup validation", lit)
		}
		cid := r.AssertClause(step.Lits, hints)
		lastCID = cid
		if len(step.Lits) == 1 {
			r.PushDerived(step.Lits[0], cid)
		}
	}
	if lastCID == store.CIDNull {
		return store.CIDNull, fatal(ErrExternalSolver, "reduce_run(%v) produced no proof steps", lit)
	}
	return lastCID, nil
}

// Wrapped2 attaches an underlying error to e and returns e, for chaining
// at a fatal() call site without an intermediate variable.
func (e *Error) Wrapped2(err error) *Error {
	e.Wrapped = err
	return e
}

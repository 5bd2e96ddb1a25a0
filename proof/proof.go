// Package proof implements the CPOG proof emitter of spec.md §4.8/§6: an
// interface over the output side of the proof stream, and a text-format
// writer implementing every directive.
package proof

import (
	"bufio"
	"fmt"
	"io"

	"github.com/cpogcore/cpog/internal/store"
	"github.com/cpogcore/cpog/z"
)

// Emitter is the output side of the CPOG proof stream, per spec.md §4.8.
// Implementations need not be safe for concurrent use; the core is
// single-threaded (spec.md §5).
type Emitter interface {
	DeclareRoot(lit z.Lit)

	StartAssertion(lits []z.Lit) Assertion
	StartStructuralAssertion(lits []z.Lit) Assertion
	StartAnd(xvar z.Var, args []z.Lit) Assertion
	StartOr(xvar z.Var, a, b z.Lit, weak bool) Assertion
	StartSkolem(xvar z.Var, args []z.Lit) Assertion

	ClauseDeletion(cids []store.CID)
	Comment(text string)
}

// Assertion accumulates hints for one in-progress directive line, then
// finishes it.
type Assertion interface {
	AddHint(cid store.CID)
	Finish() store.CID
}

// TextWriter is the reference Emitter: it writes the one-directive-per-line
// CPOG text format of spec.md §6 directly to an io.Writer, assigning clause
// ids monotonically as lines are emitted.
type TextWriter struct {
	w      *bufio.Writer
	nextID store.CID
}

// NewTextWriter creates a TextWriter whose first emitted clause id is
// nInput+1 (input clauses occupy 1..nInput implicitly, per spec.md §6).
func NewTextWriter(w io.Writer, nInput store.CID) *TextWriter {
	return &TextWriter{w: bufio.NewWriter(w), nextID: nInput + 1}
}

// Flush flushes any buffered output.
func (t *TextWriter) Flush() error { return t.w.Flush() }

func writeLits(w *bufio.Writer, lits []z.Lit) {
	for _, l := range lits {
		fmt.Fprintf(w, "%d ", l.Dimacs())
	}
	fmt.Fprint(w, "0")
}

// DeclareRoot emits `r lit`.
func (t *TextWriter) DeclareRoot(lit z.Lit) {
	fmt.Fprintf(t.w, "r %d\n", lit.Dimacs())
}

type lineAssertion struct {
	t      *TextWriter
	prefix string
	lits   []z.Lit
	hints  []store.CID
	cid    store.CID
}

func (t *TextWriter) startLine(prefix string, lits []z.Lit) Assertion {
	cid := t.nextID
	t.nextID++
	return &lineAssertion{t: t, prefix: prefix, lits: lits, cid: cid}
}

// StartAssertion begins an `a` (RUP-asserted) clause line.
func (t *TextWriter) StartAssertion(lits []z.Lit) Assertion { return t.startLine("a", lits) }

// StartStructuralAssertion begins an `as` (structurally-asserted) clause line.
func (t *TextWriter) StartStructuralAssertion(lits []z.Lit) Assertion {
	return t.startLine("as", lits)
}

// StartAnd emits a `p` AND-declaration block header: `<cid> p <xvar> args... 0`.
func (t *TextWriter) StartAnd(xvar z.Var, args []z.Lit) Assertion {
	cid := t.nextID
	t.nextID += store.CID(len(args)) + 1
	fmt.Fprintf(t.w, "%d p %d ", cid, int32(xvar))
	writeLits(t.w, args)
	fmt.Fprint(t.w, "\n")
	return &noopAssertion{cid: cid}
}

// StartOr emits an `s` (or weak `S`) OR-declaration block header.
func (t *TextWriter) StartOr(xvar z.Var, a, b z.Lit, weak bool) Assertion {
	cid := t.nextID
	t.nextID += 3
	tag := "s"
	if weak {
		tag = "S"
	}
	fmt.Fprintf(t.w, "%d %s %d %d %d 0\n", cid, tag, int32(xvar), a.Dimacs(), b.Dimacs())
	return &noopAssertion{cid: cid}
}

// StartSkolem emits a `t` SKOLEM-declaration block header.
func (t *TextWriter) StartSkolem(xvar z.Var, args []z.Lit) Assertion {
	cid := t.nextID
	t.nextID += store.CID(len(args)) + 1
	fmt.Fprintf(t.w, "%d t %d ", cid, int32(xvar))
	writeLits(t.w, args)
	fmt.Fprint(t.w, "\n")
	return &noopAssertion{cid: cid}
}

// noopAssertion is returned by the declaration starters, whose lines are
// already fully written with no trailing hint list; AddHint is a no-op and
// Finish just returns the recorded block-start cid.
type noopAssertion struct{ cid store.CID }

func (n *noopAssertion) AddHint(store.CID) {}
func (n *noopAssertion) Finish() store.CID { return n.cid }

func (a *lineAssertion) AddHint(cid store.CID) { a.hints = append(a.hints, cid) }

func (a *lineAssertion) Finish() store.CID {
	fmt.Fprintf(a.t.w, "%d %s ", a.cid, a.prefix)
	writeLits(a.t.w, a.lits)
	fmt.Fprint(a.t.w, "  ")
	for _, h := range a.hints {
		fmt.Fprintf(a.t.w, "%d ", h)
	}
	fmt.Fprint(a.t.w, "0\n")
	return a.cid
}

// ClauseDeletion emits one hintless batch delete line (`D c1 c2 ... 0`)
// covering every id in cids, whatever their number; a RUP-checked deletion
// with hints goes through DeleteWithHints instead.
func (t *TextWriter) ClauseDeletion(cids []store.CID) {
	fmt.Fprint(t.w, "D ")
	for _, c := range cids {
		fmt.Fprintf(t.w, "%d ", c)
	}
	fmt.Fprint(t.w, "0\n")
}

// DeleteWithHints emits a single RUP-checked deletion: `d cid h1 h2 ... 0`.
func (t *TextWriter) DeleteWithHints(cid store.CID, hints []store.CID) {
	fmt.Fprintf(t.w, "d %d ", cid)
	for _, h := range hints {
		fmt.Fprintf(t.w, "%d ", h)
	}
	fmt.Fprint(t.w, "0\n")
}

// Comment emits a `c ...` line.
func (t *TextWriter) Comment(text string) {
	fmt.Fprintf(t.w, "c %s\n", text)
}

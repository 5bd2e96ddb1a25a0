package proof

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cpogcore/cpog/internal/store"
	"github.com/cpogcore/cpog/z"
)

func lit(i int32) z.Lit { return z.Var(i).Pos() }

func TestTextWriterAssertion(t *testing.T) {
	var buf bytes.Buffer
	w := NewTextWriter(&buf, 3)

	a := w.StartAssertion([]z.Lit{lit(4)})
	a.AddHint(store.CID(1))
	a.AddHint(store.CID(2))
	cid := a.Finish()
	w.Flush()

	if cid != 4 {
		t.Fatalf("expected first assertion cid to be 4, got %d", cid)
	}
	out := buf.String()
	if !strings.Contains(out, "4 a 4 0  1 2 0\n") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestTextWriterAndDeclaration(t *testing.T) {
	var buf bytes.Buffer
	w := NewTextWriter(&buf, 0)
	a := w.StartAnd(z.Var(5), []z.Lit{lit(1), lit(2)})
	cid := a.Finish()
	w.Flush()
	if cid != 1 {
		t.Fatalf("expected AND block to start at cid 1, got %d", cid)
	}
	if !strings.Contains(buf.String(), "1 p 5 1 2 0\n") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestTextWriterDeleteWithHints(t *testing.T) {
	var buf bytes.Buffer
	w := NewTextWriter(&buf, 0)
	w.DeleteWithHints(store.CID(7), []store.CID{1, 2, 3})
	w.Flush()
	if !strings.Contains(buf.String(), "d 7 1 2 3 0\n") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

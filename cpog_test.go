package cpog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cpogcore/cpog/internal/store"
	"github.com/cpogcore/cpog/pog"
	"github.com/cpogcore/cpog/z"
)

func lit(i int32) z.Lit { return z.Var(i).Pos() }

// TestCoreRunAndOfTwoInputs exercises the full pipeline over a POG whose
// root is a single AND node of two input literals, each already forced
// true by a unit input clause: small enough that every node justifies
// structurally, so the run never touches the satx subprocess.
func TestCoreRunAndOfTwoInputs(t *testing.T) {
	st := store.New()
	st.AddInput(store.NewClause([]z.Lit{lit(1)}))
	st.AddInput(store.NewClause([]z.Lit{lit(2)}))

	g := pog.NewGraph(2)
	andLit := g.AddAnd(lit(1), lit(2))
	g.Root = andLit

	cfg := NewConfig()
	// force structural justification: this tiny graph would otherwise fall
	// under the monolithic-threshold shortcut and shell out to satx, which
	// isn't available in a test environment.
	cfg.MonolithicThreshold = 0
	cfg.TreeRatioThreshold = 1e9
	core := NewCore(cfg, st, g)

	var buf bytes.Buffer
	if err := core.Run(&buf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "r ") {
		t.Fatalf("expected proof to declare a root, got: %q", out)
	}
	if !strings.Contains(out, " p ") {
		t.Fatalf("expected an AND declaration line, got: %q", out)
	}
}

func TestNewConfigEscalation(t *testing.T) {
	base := NewConfig()
	if base.MonolithicThreshold != 16 {
		t.Fatalf("expected default monolithic threshold 16, got %d", base.MonolithicThreshold)
	}
	scaled := NewConfigVars(100)
	if scaled.MonolithicThreshold != 100 {
		t.Fatalf("expected scaled monolithic threshold 100, got %d", scaled.MonolithicThreshold)
	}
	if scaled.ClauseLimit != 800 {
		t.Fatalf("expected clause limit 800, got %d", scaled.ClauseLimit)
	}
}

package satx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cpogcore/cpog/internal/store"
	"github.com/cpogcore/cpog/z"
)

func TestParseLRATAdditionAndDeletion(t *testing.T) {
	text := "3 1 2 0 1 2 0\n4 d 1 2 0\n"
	steps, err := parseLRAT(strings.NewReader(text))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	add := steps[0]
	if add.ID != 3 || add.Delete {
		t.Fatalf("unexpected addition step: %+v", add)
	}
	wantLits := []z.Lit{z.Dimacs2Lit(1), z.Dimacs2Lit(2)}
	if len(add.Lits) != len(wantLits) || add.Lits[0] != wantLits[0] || add.Lits[1] != wantLits[1] {
		t.Fatalf("unexpected literals: %v", add.Lits)
	}
	if len(add.Hints) != 2 || add.Hints[0] != 1 || add.Hints[1] != 2 {
		t.Fatalf("unexpected hints: %v", add.Hints)
	}

	del := steps[1]
	if del.ID != 4 || !del.Delete {
		t.Fatalf("unexpected deletion step: %+v", del)
	}
	if len(del.DelIDs) != 2 || del.DelIDs[0] != 1 || del.DelIDs[1] != 2 {
		t.Fatalf("unexpected deletion ids: %v", del.DelIDs)
	}
}

func TestWriteDIMACS(t *testing.T) {
	cnf := []*store.Clause{
		store.NewClause([]z.Lit{z.Dimacs2Lit(1), z.Dimacs2Lit(-2)}),
		store.NewClause([]z.Lit{z.Dimacs2Lit(2)}),
	}
	var buf bytes.Buffer
	if err := writeDIMACS(&buf, cnf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "p cnf 2 2\n") {
		t.Fatalf("unexpected header: %q", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), out)
	}
}

func TestDriverDefaultsSolverPath(t *testing.T) {
	d := NewDriver(BackendKissatDRAT)
	if d.solverPath() != "kissat" {
		t.Fatalf("expected kissat, got %q", d.solverPath())
	}
	d2 := NewDriver(BackendCadicalLRAT)
	if d2.solverPath() != "cadical" {
		t.Fatalf("expected cadical, got %q", d2.solverPath())
	}
	d2.SolverPath = "/opt/bin/cadical"
	if d2.solverPath() != "/opt/bin/cadical" {
		t.Fatalf("expected override to take effect")
	}
}

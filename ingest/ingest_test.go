package ingest

import (
	"strings"
	"testing"

	"github.com/cpogcore/cpog/z"
)

type recordingVis struct {
	nvar, ncls int
	lits       []z.Lit
	show       []z.Var
	projType   string
}

func (r *recordingVis) Init(nvar, nclauses int) { r.nvar, r.ncls = nvar, nclauses }
func (r *recordingVis) Add(m z.Lit)             { r.lits = append(r.lits, m) }
func (r *recordingVis) Show(vars []z.Var)       { r.show = vars }
func (r *recordingVis) ProjType(kind string)    { r.projType = kind }
func (r *recordingVis) Eof()                    {}

func TestReadCnf(t *testing.T) {
	input := "c a comment\nc p show 1 2 0\nc t pmc\np cnf 3 2\n1 2 0\n-1 3 0\n"
	v := &recordingVis{}
	if err := ReadCnf(strings.NewReader(input), v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.nvar != 3 || v.ncls != 2 {
		t.Fatalf("unexpected header: %d %d", v.nvar, v.ncls)
	}
	if len(v.show) != 2 || v.show[0] != 1 || v.show[1] != 2 {
		t.Fatalf("unexpected show vars: %v", v.show)
	}
	if v.projType != "pmc" {
		t.Fatalf("unexpected proj type: %q", v.projType)
	}
	want := []z.Lit{z.Dimacs2Lit(1), z.Dimacs2Lit(2), z.LitNull, z.Dimacs2Lit(-1), z.Dimacs2Lit(3), z.LitNull}
	if len(v.lits) != len(want) {
		t.Fatalf("unexpected literal stream: %v", v.lits)
	}
	for i := range want {
		if v.lits[i] != want[i] {
			t.Fatalf("literal %d: got %v want %v", i, v.lits[i], want[i])
		}
	}
}

func TestBuildSimpleOr(t *testing.T) {
	b := NewBuilder()
	b.Node(KindOr, 1)
	b.Node(KindTrue, 2)
	b.Node(KindFalse, 3)
	b.Edge(1, 2, []z.Lit{z.Dimacs2Lit(1)})
	b.Edge(1, 3, []z.Lit{z.Dimacs2Lit(-1)})
	b.Eof()

	g, root, err := b.Build(z.Var(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n := g.Node(root.Var())
	if n == nil || n.Kind.String() != "OR" {
		t.Fatalf("expected root to be an OR node, got %v", n)
	}
}

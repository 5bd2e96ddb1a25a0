package pog

import (
	"testing"

	"github.com/cpogcore/cpog/internal/store"
	"github.com/cpogcore/cpog/z"
)

func lit(i int32) z.Lit  { return z.Var(i).Pos() }
func nlit(i int32) z.Lit { return z.Var(i).Neg() }

func TestAddAndIndegreeAndTreeSize(t *testing.T) {
	g := NewGraph(3)
	andLit := g.AddAnd(lit(1), lit(2))
	orLit := g.AddOr(andLit, lit(3))
	g.Root = orLit

	g.ComputeTreeSizes()
	andNode := g.Node(andLit.Var())
	orNode := g.Node(orLit.Var())
	if andNode.Indegree != 1 {
		t.Fatalf("expected AND node indegree 1, got %d", andNode.Indegree)
	}
	if andNode.TreeSize != 1+2+1+1 { // degree(2)+1 + two leaf children(1 each)
		t.Fatalf("unexpected AND tree size %d", andNode.TreeSize)
	}
	if orNode.TreeSize <= andNode.TreeSize {
		t.Fatalf("OR tree size should exceed its AND child's")
	}
}

func TestSkolemSoundnessPanics(t *testing.T) {
	g := NewGraph(3)
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic on unsound skolem node")
		}
	}()
	g.AddSkolem([]z.Lit{lit(2), nlit(2)})
}

func TestFindSplittingLiteral(t *testing.T) {
	g := NewGraph(4)
	a := g.AddAnd(lit(1), lit(2))
	b := g.AddAnd(nlit(1), lit(3))
	if split := g.FindSplittingLiteral(a, b); split != lit(1) && split != nlit(1) {
		t.Fatalf("expected splitting literal on variable 1, got %v", split)
	}
}

func TestCompressFoldsConstants(t *testing.T) {
	g := NewGraph(2)
	andLit := g.AddAnd(lit(1), z.True)
	g.Root = andLit

	ng, newRoot := g.Compress(g.Root, true, nil)
	if newRoot != lit(1) {
		t.Fatalf("expected AND with a TRUE child to collapse to its other argument, got %v", newRoot)
	}
	_ = ng
}

func TestCompressORComplementaryBecomesTrue(t *testing.T) {
	g := NewGraph(2)
	orLit := g.AddOr(lit(1), nlit(1))
	g.Root = orLit

	_, newRoot := g.Compress(g.Root, true, nil)
	if newRoot != z.True {
		t.Fatalf("expected OR of complementary literals to fold to TRUE, got %v", newRoot)
	}
}

func TestCompressSiphonsProjectionLiterals(t *testing.T) {
	g := NewGraph(3)
	// v3 is a projection (non-data) variable appearing as an AND child.
	andLit := g.AddAnd(lit(1), lit(3))
	g.Root = andLit

	isProj := func(v z.Var) bool { return v == 3 }
	ng, newRoot := g.Compress(g.Root, true, isProj)
	n := ng.Node(newRoot.Var())
	if n == nil {
		t.Fatalf("expected compressed root to be a node, got constant/leaf %v", newRoot)
	}
	if n.Kind != KindAnd {
		t.Fatalf("expected AND node to survive with a Skolem sibling child, got %v", n.Kind)
	}
	foundSkolemChild := false
	for _, c := range n.Children {
		if cn := ng.Node(c.Var()); cn != nil && cn.Kind == KindSkolem {
			foundSkolemChild = true
			if len(cn.Children) != 1 || cn.Children[0] != lit(3) {
				t.Fatalf("expected siphoned skolem node over {3}, got %v", cn.Children)
			}
		}
	}
	if !foundSkolemChild {
		t.Fatalf("expected a skolem sibling child after siphoning projection literal 3")
	}
}

func TestConcretizeEmitsDefiningClauses(t *testing.T) {
	g := NewGraph(2)
	andLit := g.AddAnd(lit(1), lit(2))
	g.Root = andLit
	ng, newRoot := g.Compress(g.Root, false, nil)

	st := store.New()
	Concretize(st, ng, false)

	n := ng.Node(newRoot.Var())
	if n.DefiningCID == store.CIDNull {
		t.Fatalf("expected a defining cid to be recorded")
	}
	fwd := st.Get(n.DefiningCID)
	if fwd == nil || len(fwd.Lits) != 3 {
		t.Fatalf("expected AND's forward clause to have 3 literals, got %v", fwd)
	}
}

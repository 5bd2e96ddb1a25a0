package pog

import "github.com/cpogcore/cpog/z"

// IsProjection reports whether v is an existentially-projected (non-data)
// variable, i.e. one that may appear only inside SKOLEM nodes once
// compression is finished.
type IsProjection func(v z.Var) bool

// Compress rewrites g into a fresh graph containing only nodes reachable
// from root, per spec.md §4.5.
//
// With optimize=true (pass 1) it folds constants and absorbs syntactic
// identities: TRUE/FALSE children are removed from/propagate through
// AND and OR; a degree-1 AND collapses to its argument; an OR with a TRUE
// child, or two complementary children, becomes TRUE; an AND whose
// children contain both l and -l becomes FALSE; chains of SKOLEM children
// merge into one SKOLEM sibling; projection literals appearing as AND
// children are siphoned into a sibling SKOLEM node.
//
// With optimize=false (pass 2) no folding rules run: the graph is simply
// renumbered into topological order, which is the shape concretize needs.
func (g *Graph) Compress(root z.Lit, optimize bool, isProj IsProjection) (*Graph, z.Lit) {
	order := g.topoOrderFrom(root)
	ng := NewGraph(g.MaxInputVar)
	remap := map[z.Var]z.Lit{}

	remapLit := func(lit z.Lit) z.Lit {
		if lit.IsConst() || lit.Var() < g.StartExtVar {
			return lit
		}
		base, ok := remap[lit.Var()]
		if !ok {
			// Unreachable child never visited (shouldn't happen given
			// topoOrderFrom covers everything reachable from root).
			return lit
		}
		if lit.IsPos() {
			return base
		}
		return base.Not()
	}

	for _, v := range order {
		n := g.nodes[v]
		children := make([]z.Lit, len(n.Children))
		for i, c := range n.Children {
			children[i] = remapLit(c)
		}
		var result z.Lit
		switch n.Kind {
		case KindAnd:
			if optimize {
				result = ng.foldAnd(children, isProj)
			} else {
				result = ng.AddAnd(children...)
			}
		case KindOr:
			if optimize {
				result = ng.foldOr(children[0], children[1])
			} else {
				result = ng.AddOr(children[0], children[1])
			}
		case KindSkolem:
			if optimize {
				result = ng.foldSkolem(children)
			} else {
				result = ng.AddSkolem(children)
			}
		}
		remap[v] = result
	}
	newRoot := remapLit(root)
	return ng, newRoot
}

// topoOrderFrom returns the xvars reachable from root in children-before-
// parents order via a post-order DFS.
func (g *Graph) topoOrderFrom(root z.Lit) []z.Var {
	visited := map[z.Var]bool{}
	var order []z.Var
	var visit func(lit z.Lit)
	visit = func(lit z.Lit) {
		if lit.IsConst() {
			return
		}
		v := lit.Var()
		if v < g.StartExtVar || visited[v] {
			return
		}
		visited[v] = true
		n := g.nodes[v]
		if n == nil {
			return
		}
		for _, c := range n.Children {
			visit(c)
		}
		order = append(order, v)
	}
	visit(root)
	return order
}

// foldAnd applies the AND folding rules of pass 1 to already-remapped
// children, siphoning projection literals (and chains of SKOLEM-node
// children) into a sibling SKOLEM node.
func (ng *Graph) foldAnd(children []z.Lit, isProj IsProjection) z.Lit {
	var keep []z.Lit
	var skolemLits []z.Lit
	seen := map[z.Lit]bool{}
	seenVar := map[z.Var]z.Lit{}

	addKeep := func(l z.Lit) bool {
		if seen[l] {
			return true
		}
		if prev, ok := seenVar[l.Var()]; ok && prev != l {
			return false // l contradicts a previously-added literal
		}
		seen[l] = true
		seenVar[l.Var()] = l
		keep = append(keep, l)
		return true
	}
	addSkolem := func(ls []z.Lit) {
		for _, l := range ls {
			dup := false
			for _, have := range skolemLits {
				if have == l {
					dup = true
					break
				}
			}
			if !dup {
				skolemLits = append(skolemLits, l)
			}
		}
	}

	for _, c := range children {
		switch {
		case c == z.True:
			continue // TRUE children removed from AND
		case c == z.False:
			return z.False // FALSE child makes the whole AND FALSE
		case c.Var() >= ng.StartExtVar && ng.nodes[c.Var()] != nil && ng.nodes[c.Var()].Kind == KindSkolem && c.IsPos():
			addSkolem(ng.nodes[c.Var()].Children)
		case c.Var() < ng.StartExtVar && isProj != nil && isProj(c.Var()):
			addSkolem([]z.Lit{c})
		default:
			if !addKeep(c) {
				return z.False
			}
		}
	}

	if len(skolemLits) > 0 {
		skLit := ng.AddSkolem(skolemLits)
		if !addKeep(skLit) {
			return z.False
		}
	}

	switch len(keep) {
	case 0:
		return z.True // empty AND
	case 1:
		return keep[0] // degree-1 AND collapses to its argument
	default:
		return ng.AddAnd(keep...)
	}
}

// foldOr applies the OR folding rules of pass 1 to already-remapped
// children a, b.
func (ng *Graph) foldOr(a, b z.Lit) z.Lit {
	if a == z.True || b == z.True {
		return z.True
	}
	if a == b.Not() {
		return z.True // complementary literals
	}
	if a == z.False {
		return b
	}
	if b == z.False {
		return a
	}
	return ng.AddOr(a, b)
}

// foldSkolem applies Skolem-chain merging to an already-remapped literal
// set: any literal that is itself a positive reference to a SKOLEM node is
// replaced by that node's own literals, then Skolem soundness is
// re-checked.
func (ng *Graph) foldSkolem(lits []z.Lit) z.Lit {
	var merged []z.Lit
	seen := map[z.Lit]bool{}
	add := func(l z.Lit) {
		if !seen[l] {
			seen[l] = true
			merged = append(merged, l)
		}
	}
	for _, l := range lits {
		if l.Var() >= ng.StartExtVar && ng.nodes[l.Var()] != nil && ng.nodes[l.Var()].Kind == KindSkolem && l.IsPos() {
			for _, inner := range ng.nodes[l.Var()].Children {
				add(inner)
			}
			continue
		}
		add(l)
	}
	return ng.AddSkolem(merged)
}

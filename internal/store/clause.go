// Package store implements the append-only, content-addressed clause store:
// input clauses, proof clauses emitted as the proof stream grows, and
// sparsely-numbered auxiliary clauses shared across lemma instances.
package store

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/cpogcore/cpog/z"
)

// CID is a clause id. Ids 1..NInput are input clauses (by source position),
// NInput+1.. are proof clauses in emission order, and a sparse range above
// NInput+NProof holds auxiliary clauses.
type CID uint32

// CIDNull marks "no clause".
const CIDNull CID = 0

// Clause is an ordered-then-canonized multiset of literals, per spec.md §3.
type Clause struct {
	Lits          []z.Lit
	IsTautology   bool
	Canonized     bool
	ActivatingLit z.Lit // 0 if the clause is always in force

	// Hints records the clause ids that justify this clause, for proof
	// clauses asserted via Reasoner.AssertClause; nil for input and
	// auxiliary clauses, which carry no hint list of their own.
	Hints []CID
}

// Canon returns a canonized copy of lits: sorted ascending by |lit|,
// duplicates collapsed, and tautology (both x and -x present) detected.
func Canon(lits []z.Lit) Clause {
	ls := make([]z.Lit, len(lits))
	copy(ls, lits)
	sort.Slice(ls, func(i, j int) bool {
		return absVar(ls[i]) < absVar(ls[j]) || (absVar(ls[i]) == absVar(ls[j]) && ls[i] < ls[j])
	})
	deduped := ls[:0]
	for i, l := range ls {
		if i > 0 && l == deduped[len(deduped)-1] {
			continue
		}
		deduped = append(deduped, l)
	}
	for i := 1; i < len(deduped); i++ {
		if deduped[i].Var() == deduped[i-1].Var() {
			// x and -x are adjacent once sorted by |var|: a tautology.
			return Clause{Lits: []z.Lit{deduped[i-1], deduped[i]}, IsTautology: true, Canonized: true}
		}
	}
	return Clause{Lits: deduped, IsTautology: false, Canonized: true}
}

func absVar(m z.Lit) z.Var {
	return m.Var()
}

// NewClause creates a canonized clause with no activating literal.
func NewClause(lits []z.Lit) *Clause {
	c := Canon(lits)
	return &c
}

// Equal reports whether two clauses are equal in canonical form.
func Equal(a, b *Clause) bool {
	ca, cb := a, b
	if !ca.Canonized {
		cc := Canon(ca.Lits)
		ca = &cc
	}
	if !cb.Canonized {
		cc := Canon(cb.Lits)
		cb = &cc
	}
	if len(ca.Lits) != len(cb.Lits) {
		return false
	}
	for i := range ca.Lits {
		if ca.Lits[i] != cb.Lits[i] {
			return false
		}
	}
	return true
}

const hashModulus = uint64(2147483647) // 2^31 - 1, Mersenne prime, per original source

// varHash is a per-variable random table seeded once, deterministically,
// so hashes are stable within (but not necessarily across) a process run.
var varHash = struct {
	table []uint64
	rng   *rand.Rand
}{rng: rand.New(rand.NewSource(1))}

func varHashOf(v z.Var) uint64 {
	t := varHash.table
	for z.Var(len(t)) <= v {
		t = append(t, varHash.rng.Uint64()%hashModulus)
	}
	varHash.table = t
	return t[v]
}

// nextHashInt folds one literal into a running hash: each variable gets a
// random table entry value, a negative literal contributes 1 + M - value
// instead of value, and the contribution is multiplied into the running
// hash mod M, matching the original source's random()-seeded next_hash_int.
func nextHashInt(sofar uint64, lit z.Lit) uint64 {
	vval := varHashOf(lit.Var())
	var lval uint64
	if lit < 0 {
		lval = 1 + hashModulus - vval
	} else {
		lval = vval
	}
	return (lval * sofar) % hashModulus
}

// Hash computes the clause's hash over its canonical literal sequence.
func Hash(c *Clause) uint64 {
	cc := c
	if !cc.Canonized {
		ccv := Canon(cc.Lits)
		cc = &ccv
	}
	h := uint64(1)
	for _, l := range cc.Lits {
		h = nextHashInt(h, l)
	}
	return h
}

// Simplify returns the residual of c under asserted unit literals units
// (a set, tested via the has callback): nil if some unit satisfies c
// (c's literal equals a true unit), else c with every literal whose
// negation is a true unit removed. Tautologies pass through unaffected.
func Simplify(c *Clause, has func(z.Lit) bool) (*Clause, bool) {
	if c.IsTautology {
		return c, true
	}
	out := make([]z.Lit, 0, len(c.Lits))
	for _, l := range c.Lits {
		if has(l) {
			return nil, false
		}
		if has(l.Not()) {
			continue
		}
		out = append(out, l)
	}
	return &Clause{Lits: out, Canonized: c.Canonized, ActivatingLit: c.ActivatingLit}, true
}

// Rearrange places lit1 and lit2 at positions 0 and 1 of c's literal slice,
// used to restore watched positions after a watcher rollback.
func Rearrange(c *Clause, lit1, lit2 z.Lit) {
	swapTo := func(lit z.Lit, pos int) {
		for i, l := range c.Lits {
			if l == lit {
				c.Lits[i], c.Lits[pos] = c.Lits[pos], c.Lits[i]
				return
			}
		}
	}
	swapTo(lit1, 0)
	if len(c.Lits) > 1 {
		swapTo(lit2, 1)
	}
}

func (c *Clause) String() string {
	return fmt.Sprintf("%v", c.Lits)
}

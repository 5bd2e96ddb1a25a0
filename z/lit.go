// Package z defines the literal and variable data model shared by every
// other package in this module: a signed, nonzero integer literal whose
// sign is phase and whose magnitude is a variable id.
package z

import (
	"fmt"
	"math"
)

// Var is a variable id. 0 is reserved to mean "absent".
type Var int32

// TrueID is a distinguished variable id acting as a constant-true literal
// during POG compression. It is chosen far outside the range of any real
// input or extension variable.
const TrueID Var = math.MaxInt32

// Lit is a signed nonzero integer literal: sign is phase, magnitude is the
// variable id. LitNull is the zero literal, used as a clause terminator and
// an absent-value sentinel.
type Lit int32

// LitNull is the absent/terminator literal.
const LitNull Lit = 0

// True is the constant-true literal used internally during compression.
var True = Var(TrueID).Pos()

// False is the constant-false literal, the negation of True.
var False = True.Not()

// Pos returns the positive literal of v.
func (v Var) Pos() Lit {
	return Lit(v)
}

// Neg returns the negative literal of v.
func (v Var) Neg() Lit {
	return Lit(-int32(v))
}

// Var returns the variable underlying m.
func (m Lit) Var() Var {
	if m < 0 {
		return Var(-int32(m))
	}
	return Var(m)
}

// Not returns the negation of m.
func (m Lit) Not() Lit {
	return -m
}

// IsPos reports whether m is a positive literal.
func (m Lit) IsPos() bool {
	return m > 0
}

// Sign returns 1 for a positive literal, -1 for a negative one.
func (m Lit) Sign() int {
	if m < 0 {
		return -1
	}
	return 1
}

// Dimacs2Lit converts a DIMACS-style signed integer (nonzero) to a Lit.
func Dimacs2Lit(d int) Lit {
	return Lit(d)
}

// Dimacs returns the DIMACS-style signed integer for m.
func (m Lit) Dimacs() int {
	return int(m)
}

// String renders m as a DIMACS literal, or "v<id>" for the bare variable.
func (m Lit) String() string {
	return fmt.Sprintf("%d", int32(m))
}

func (v Var) String() string {
	return fmt.Sprintf("v%d", int32(v))
}

// IsConst reports whether m is the constant True or False literal.
func (m Lit) IsConst() bool {
	return m.Var() == TrueID
}

// Copyright 2016 The Gini Authors. All rights reserved.  Use of this source
// code is governed by a license that can be found in the License file.

package z

import "testing"

func TestLitDimacs(t *testing.T) {
	for i := 1; i < 100; i++ {
		if Dimacs2Lit(i).Dimacs() != i {
			t.Errorf("dimacs conversion %d", i)
		}
		if Dimacs2Lit(-i).Dimacs() != -i {
			t.Errorf("dimacs - conversion %d", i)
		}
		if !Dimacs2Lit(i).IsPos() {
			t.Errorf("not positive: %d", i)
		}
		if Dimacs2Lit(-i).IsPos() {
			t.Errorf("not negative: -%d", i)
		}
	}
}

func TestVar(t *testing.T) {
	v := Var(33)
	m := v.Pos()
	n := v.Neg()
	if m.Sign() != 1 {
		t.Errorf("wrong sign for pos lit %d", m.Sign())
	}
	if n.Sign() != -1 {
		t.Errorf("wrong sign for neg lit %d", m.Sign())
	}
	if m.Not() != n {
		t.Errorf("lit pos/neg not negations")
	}
	if m.Var() != v || n.Var() != v {
		t.Errorf("generated lits not same var")
	}
}

func TestConstLits(t *testing.T) {
	if !True.IsConst() || !False.IsConst() {
		t.Errorf("True/False should be const literals")
	}
	if True.Not() != False {
		t.Errorf("False should be negation of True")
	}
}

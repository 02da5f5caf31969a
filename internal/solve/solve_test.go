// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package solve

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestSolve(t *testing.T) {
	g := mat.NewSymDense(3, []float64{
		4, 1, 0,
		1, 3, 1,
		0, 1, 2,
	})
	want := []float64{1, -2, 3}
	b := mat.NewVecDense(3, nil)
	b.MulVec(g, mat.NewVecDense(3, want))

	c, err := Solve(g, b)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	for i, w := range want {
		if math.Abs(c.AtVec(i)-w) > 1e-12 {
			t.Errorf("c[%d]=%g; want %g", i, c.AtVec(i), w)
		}
	}
}

func TestDeterminantGuard(t *testing.T) {
	tests := []struct {
		g       []float64
		wantErr bool
	}{
		{[]float64{1, 0, 0, 1}, false},
		{[]float64{1, 1, 1, 1}, true},
		{[]float64{0.09, 0, 0, 0.1}, true},
		{[]float64{0.2, 0, 0, 0.1}, false},
		{[]float64{-1, 0, 0, 1}, false},
	}
	for _, test := range tests {
		var s Solver
		err := s.Factorize(mat.NewDense(2, 2, test.g))
		if (err != nil) != test.wantErr {
			t.Errorf("g=%v: err=%v; want error %v", test.g, err, test.wantErr)
		}
		if err != nil && !errors.Is(err, ErrSingular) {
			t.Errorf("g=%v: err=%v; want ErrSingular", test.g, err)
		}
	}
}

func TestInverse(t *testing.T) {
	g := mat.NewSymDense(2, []float64{2, 1, 1, 3})
	var s Solver
	if err := s.Factorize(g); err != nil {
		t.Fatalf("err=%v", err)
	}
	if math.Abs(s.Det-5) > 1e-12 {
		t.Errorf("det=%g; want 5", s.Det)
	}
	var inv, prod mat.Dense
	if err := s.InverseTo(&inv); err != nil {
		t.Fatalf("err=%v", err)
	}
	prod.Mul(g, &inv)
	if !mat.EqualApprox(&prod, mat.NewDiagDense(2, []float64{1, 1}), 1e-12) {
		t.Errorf("g*inv=\n%v\nwant identity", mat.Formatted(&prod))
	}
}

func TestInverseReusedSolver(t *testing.T) {
	var s Solver
	for _, g := range []*mat.SymDense{
		mat.NewSymDense(3, []float64{4, 1, 0, 1, 3, 1, 0, 1, 2}),
		mat.NewSymDense(2, []float64{2, 1, 1, 3}),
		mat.NewSymDense(1, []float64{0.5}),
	} {
		n, _ := g.Dims()
		if err := s.Factorize(g); err != nil {
			t.Fatalf("n=%d: err=%v", n, err)
		}
		var inv, prod mat.Dense
		if err := s.InverseTo(&inv); err != nil {
			t.Fatalf("n=%d: err=%v", n, err)
		}
		if r, c := inv.Dims(); r != n || c != n {
			t.Fatalf("n=%d: inverse is %dx%d; want %dx%d", n, r, c, n, n)
		}
		prod.Mul(g, &inv)
		eye := mat.NewDiagDense(n, nil)
		for i := 0; i < n; i++ {
			eye.SetDiag(i, 1)
		}
		if !mat.EqualApprox(&prod, eye, 1e-12) {
			t.Errorf("n=%d: g*inv=\n%v\nwant identity", n, mat.Formatted(&prod))
		}
	}
}

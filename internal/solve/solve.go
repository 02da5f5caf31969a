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

// Package solve solves the small symmetric normal equations G c = Q^T y of a tone curve fit,
// rejecting near-singular Gram matrices.
package solve

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Default lower bound on |det(G)| for a Gram matrix to be considered usable
const DefaultMinDet = 0.01

var ErrSingular = errors.New("singular gram matrix")

// Normal equations solver. Holds an LU factorization which is reused across calls,
// so a Solver must not be shared between goroutines
type Solver struct {
	MinDet float64 // determinant guard, DefaultMinDet if zero
	Det    float64 // determinant of the last factorized matrix
	n      int     // order of the last factorized matrix
	lu     mat.LU
}

// Factorizes the Gram matrix g, failing with ErrSingular if |det(g)| is not above the guard
func (s *Solver) Factorize(g mat.Matrix) error {
	minDet := s.MinDet
	if minDet == 0 {
		minDet = DefaultMinDet
	}
	s.n, _ = g.Dims()
	s.lu.Factorize(g)
	s.Det = s.lu.Det()
	if !(math.Abs(s.Det) > minDet) {
		return fmt.Errorf("%w: |det|=%g <= %g", ErrSingular, math.Abs(s.Det), minDet)
	}
	return nil
}

// Solves the factorized system for right hand side b, writing the coefficients into dst
func (s *Solver) SolveTo(dst *mat.VecDense, b mat.Vector) error {
	if err := s.lu.SolveVecTo(dst, false, b); err != nil {
		return fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return nil
}

// Calculates the inverse of the factorized matrix into dst
func (s *Solver) InverseTo(dst *mat.Dense) error {
	n := s.n
	eye := mat.NewDiagDense(n, nil)
	for i := 0; i < n; i++ {
		eye.SetDiag(i, 1)
	}
	if err := s.lu.SolveTo(dst, false, eye); err != nil {
		return fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return nil
}

// Solves g c = b in one step with the default guard
func Solve(g mat.Matrix, b mat.Vector) (*mat.VecDense, error) {
	var s Solver
	if err := s.Factorize(g); err != nil {
		return nil, err
	}
	c := mat.NewVecDense(b.Len(), nil)
	return c, s.SolveTo(c, b)
}

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

package design

import (
	"github.com/mlnoga/tonematch/internal/binning"
	"gonum.org/v1/gonum/mat"
)

// Builds the dense N x Knots(bins) design matrix Q for the given samples and their bin assignment
func Build(b Basis, borders binning.Borders, a *binning.Assignment, data []float64) *mat.Dense {
	bins := borders.Bins()
	q := mat.NewDense(len(data), b.Knots(bins), nil)
	for i, x := range data {
		k := a.Bin[i]
		lo, hi := b.Weights(borders.Local(x, k))
		q.Set(i, k, lo)
		if b == PiecewiseLinear {
			q.Set(i, k+1, hi)
		}
	}
	return q
}

// Calculates the Gram matrix G = Q^T Q
func Gram(q *mat.Dense) *mat.SymDense {
	_, c := q.Dims()
	g := mat.NewSymDense(c, nil)
	g.SymOuterK(1, q.T())
	return g
}

// Calculates the right hand side Q^T y of the normal equations
func Rhs(q *mat.Dense, y []float64) *mat.VecDense {
	_, c := q.Dims()
	v := mat.NewVecDense(c, nil)
	v.MulVec(q.T(), mat.NewVecDense(len(y), y))
	return v
}

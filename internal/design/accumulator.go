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
	"gonum.org/v1/gonum/mat"
)

// Accumulates G = Q^T Q and Q^T y one sample at a time, without materializing Q.
// Reusable across windows; the zero value is ready to use after Reset
type Accumulator struct {
	Basis Basis
	G     *mat.SymDense
	QtY   *mat.VecDense
	n     int
}

// Clears the accumulator for a tone curve with the given number of bins
func (acc *Accumulator) Reset(b Basis, bins int) {
	acc.Basis = b
	acc.n = b.Knots(bins)
	if acc.G == nil {
		acc.G, acc.QtY = &mat.SymDense{}, &mat.VecDense{}
	}
	acc.G.Reset()
	acc.G.ReuseAsSym(acc.n)
	acc.QtY.Reset()
	acc.QtY.ReuseAsVec(acc.n)
}

// Adds a sample with fitted value y in bin k at local coordinate r
func (acc *Accumulator) Add(k int, r, y float64) {
	g := acc.G.RawSymmetric()
	v := acc.QtY.RawVector()
	if acc.Basis != PiecewiseLinear {
		g.Data[k*g.Stride+k]++
		v.Data[k*v.Inc] += y
		return
	}
	lo, hi := 1-r, r
	g.Data[k*g.Stride+k] += lo * lo
	g.Data[(k+1)*g.Stride+k+1] += hi * hi
	g.Data[k*g.Stride+k+1] += lo * hi
	v.Data[k*v.Inc] += lo * y
	v.Data[(k+1)*v.Inc] += hi * y
}

// Returns the number of coefficients
func (acc *Accumulator) Knots() int { return acc.n }

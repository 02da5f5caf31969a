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

// Package design builds the basis ("design") matrix that maps tone curve knots
// to samples, and its Gram matrix for the normal equations.
package design

import (
	"fmt"
	"strings"

	"github.com/mlnoga/tonematch/internal/binning"
	"gonum.org/v1/gonum/floats"
)

// Offset of the finite outer borders of a piecewise linear basis from the data range
const BorderEpsilon = 1e-6

// Kind of tone curve basis
type Basis int

const (
	PiecewiseConstant Basis = iota // one step per bin
	PiecewiseLinear                // continuous, one knot per border
)

var basisNames = []string{"piecewiseConstant", "piecewiseLinear"}

func (b Basis) String() string {
	if b < 0 || int(b) >= len(basisNames) {
		return fmt.Sprintf("Basis(%d)", int(b))
	}
	return basisNames[b]
}

// Parses a basis name, case-insensitive. Accepts pwc and pwl as short forms
func ParseBasis(s string) (Basis, error) {
	switch strings.ToLower(s) {
	case "pwc":
		return PiecewiseConstant, nil
	case "pwl":
		return PiecewiseLinear, nil
	}
	for i, n := range basisNames {
		if strings.EqualFold(n, s) {
			return Basis(i), nil
		}
	}
	return 0, fmt.Errorf("unknown basis %q", s)
}

func (b Basis) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

func (b *Basis) UnmarshalText(text []byte) (err error) {
	*b, err = ParseBasis(string(text))
	return err
}

// Returns the number of tone curve coefficients for the given number of bins
func (b Basis) Knots(bins int) int {
	if b == PiecewiseLinear {
		return bins + 1
	}
	return bins
}

// Creates bin borders for the given inner cut points. Piecewise constant bases use infinite
// outer borders, piecewise linear ones need finite borders around the data range
func (b Basis) Borders(cuts, data []float64) binning.Borders {
	if b == PiecewiseLinear {
		return binning.Bounded(cuts, floats.Min(data), floats.Max(data), BorderEpsilon)
	}
	return binning.Unbounded(cuts)
}

// Returns the design matrix weights of a sample in bin k with local coordinate r.
// Piecewise linear samples put weight lo on knot k and hi on knot k+1.
// Piecewise constant samples put weight 1 on coefficient k, and hi is zero
func (b Basis) Weights(r float64) (lo, hi float64) {
	if b == PiecewiseLinear {
		return 1 - r, r
	}
	return 1, 0
}

// Evaluates the tone curve with coefficients c at a sample in bin k with local coordinate r
func (b Basis) Eval(c []float64, k int, r float64) float64 {
	if b == PiecewiseLinear {
		return (1-r)*c[k] + r*c[k+1]
	}
	return c[k]
}

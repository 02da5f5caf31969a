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

// Package binning assigns samples to the intervals between ascending bin borders
// and keeps per-bin sample lists ("slices").
package binning

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrEmptyBin   = errors.New("empty bin")
	ErrOutOfRange = errors.New("sample outside bin borders")
)

// Ascending bin borders. Bin k is the half-open interval [b[k], b[k+1]).
type Borders []float64

// Returns the number of bins
func (b Borders) Bins() int { return len(b) - 1 }

// Creates borders from inner cut points with infinite outer sentinels
func Unbounded(cuts []float64) Borders {
	b := make(Borders, len(cuts)+2)
	b[0] = math.Inf(-1)
	copy(b[1:], cuts)
	b[len(b)-1] = math.Inf(1)
	return b
}

// Creates borders from inner cut points with finite outer sentinels min-eps and max+eps
func Bounded(cuts []float64, min, max, eps float64) Borders {
	b := make(Borders, len(cuts)+2)
	b[0] = min - eps
	copy(b[1:], cuts)
	b[len(b)-1] = max + eps
	return b
}

// Returns the bin containing x, i.e. j-1 for the smallest j with x<b[j]. Returns -1 if x is out of range
func (b Borders) Bin(x float64) int {
	if !(x >= b[0]) {
		return -1
	}
	j := sort.Search(len(b), func(j int) bool { return x < b[j] })
	if j == len(b) {
		return -1
	}
	return j - 1
}

// Returns the local coordinate of x in bin k, in [0,1) for x inside the bin
func (b Borders) Local(x float64, k int) float64 {
	return (x - b[k]) / (b[k+1] - b[k])
}

// Bin assignment of a set of samples
type Assignment struct {
	Bin    []int   // sample index -> bin index
	Slices [][]int // bin index -> ascending sample indices
}

// Assigns each sample to a bin. Fails with ErrEmptyBin if any bin stays empty
func Assign(borders Borders, data []float64) (a *Assignment, err error) {
	a = &Assignment{}
	return a, a.Assign(borders, data)
}

// Assigns each sample to a bin, reusing the memory of the receiver
func (a *Assignment) Assign(borders Borders, data []float64) error {
	bins := borders.Bins()
	if bins < 1 {
		return fmt.Errorf("%d borders do not form a bin", len(borders))
	}
	if cap(a.Bin) < len(data) {
		a.Bin = make([]int, len(data))
	}
	a.Bin = a.Bin[:len(data)]
	if cap(a.Slices) < bins {
		a.Slices = append(a.Slices[:cap(a.Slices)], make([][]int, bins-cap(a.Slices))...)
	}
	a.Slices = a.Slices[:bins]
	for k := range a.Slices {
		a.Slices[k] = a.Slices[k][:0]
	}

	for i, x := range data {
		k := borders.Bin(x)
		if k < 0 {
			return fmt.Errorf("%w: sample %d value %g borders [%g,%g)", ErrOutOfRange, i, x, borders[0], borders[bins])
		}
		a.Bin[i] = k
		a.Slices[k] = append(a.Slices[k], i)
	}
	for k, s := range a.Slices {
		if len(s) == 0 {
			return fmt.Errorf("%w: bin %d of %d", ErrEmptyBin, k, bins)
		}
	}
	return nil
}

// Returns the number of samples in bin k
func (a *Assignment) Count(k int) int { return len(a.Slices[k]) }

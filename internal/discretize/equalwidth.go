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

package discretize

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Splits the data range into bins of equal width. Empty bins are not detected
// here; binning.Assign rejects them.
type EqualWidth struct{}

func (EqualWidth) Choose(data []float64, bins int) (cuts []float64, err error) {
	if cuts, done, err := trivial(data, bins); done {
		return cuts, err
	}
	min, max := floats.Min(data), floats.Max(data)
	if !(max > min) {
		return nil, fmt.Errorf("%w: uniform data %g", ErrDiscretization, min)
	}
	width := (max - min) / float64(bins)
	cuts = make([]float64, bins-1)
	for k := range cuts {
		cuts[k] = min + float64(k+1)*width
	}
	return cuts, checkIncreasing(cuts)
}

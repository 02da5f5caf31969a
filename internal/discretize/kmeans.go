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
	"sort"

	"gonum.org/v1/gonum/floats"
)

// One-dimensional k-means (Lloyd iterations). Centres start at the mid-quantiles
// of the sorted data, so results are deterministic.
type KMeans struct {
	Iterations int // maximum number of assignment/update rounds
}

func (km KMeans) Choose(data []float64, bins int) (cuts []float64, err error) {
	if cuts, done, err := trivial(data, bins); done {
		return cuts, err
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	n := len(sorted)

	centres := make([]float64, bins)
	for k := range centres {
		centres[k] = sorted[(2*k+1)*n/(2*bins)]
	}
	cuts = make([]float64, bins-1)
	if err := midpoints(cuts, centres); err != nil {
		return nil, err
	}

	iterations := km.Iterations
	if iterations <= 0 {
		iterations = DefaultKMeansIterations
	}
	for it := 0; it < iterations; it++ {
		// clusters are contiguous ranges of the sorted data
		changed, lo := false, 0
		for k := 0; k < bins; k++ {
			hi := n
			if k < bins-1 {
				hi = sort.SearchFloat64s(sorted, cuts[k])
			}
			if hi <= lo {
				return nil, fmt.Errorf("%w: empty cluster %d after %d iterations", ErrDiscretization, k, it)
			}
			mean := floats.Sum(sorted[lo:hi]) / float64(hi-lo)
			if mean != centres[k] {
				centres[k], changed = mean, true
			}
			lo = hi
		}
		if err := midpoints(cuts, centres); err != nil {
			return nil, err
		}
		if !changed {
			break
		}
	}
	return cuts, nil
}

// Stores midpoints between consecutive centres into cuts
func midpoints(cuts, centres []float64) error {
	for k := range cuts {
		cuts[k] = 0.5 * (centres[k] + centres[k+1])
	}
	return checkIncreasing(cuts)
}

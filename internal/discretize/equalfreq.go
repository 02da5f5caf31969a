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

	"gonum.org/v1/gonum/stat"
)

// Splits the data into bins holding roughly the same number of samples.
// Each cut lies halfway between an empirical quantile and the next larger
// distinct value, so ties never straddle a cut.
type EqualFrequency struct{}

func (EqualFrequency) Choose(data []float64, bins int) (cuts []float64, err error) {
	if cuts, done, err := trivial(data, bins); done {
		return cuts, err
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	return equalFrequencyCuts(sorted, bins)
}

// Calculates equal frequency cuts from sorted data
func equalFrequencyCuts(sorted []float64, bins int) (cuts []float64, err error) {
	n := len(sorted)
	cuts = make([]float64, bins-1)
	for k := range cuts {
		q := stat.Quantile(float64(k+1)/float64(bins), stat.Empirical, sorted, nil)
		next := sort.Search(n, func(i int) bool { return sorted[i] > q })
		if next == n {
			return nil, fmt.Errorf("%w: quantile %d/%d is the maximum", ErrDiscretization, k+1, bins)
		}
		cuts[k] = 0.5 * (q + sorted[next])
	}
	return cuts, checkIncreasing(cuts)
}

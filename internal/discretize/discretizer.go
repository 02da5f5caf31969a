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

// Package discretize splits one-dimensional intensity samples into
// ascending bins. Implementations return inner cut points only; callers add
// the outer sentinels.
package discretize

import (
	"errors"
	"fmt"
	"strings"
)

// Signals that data cannot be split into the requested number of nonempty groups.
// Callers retry with one bin less.
var ErrDiscretization = errors.New("cannot split data into requested number of bins")

// A discretization strategy
type Discretizer interface {
	// Returns bins-1 strictly increasing inner cut points for the given data.
	// A value v belongs to the lowest bin whose upper cut point is greater than v.
	Choose(data []float64, bins int) (cuts []float64, err error)
}

// Enumerated type for discretization strategies
type Kind int

const (
	KindEqualWidth Kind = iota
	KindKMeans
	KindEqualFrequency
)

var kindNames = []string{"equalWidth", "kMeans", "equalFrequency"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Parses a kind from its name, case-insensitive
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if strings.EqualFold(n, s) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown discretizer kind '%s'", s)
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) (err error) {
	*k, err = ParseKind(string(b))
	return err
}

// Default iteration limit for one-dimensional k-means
const DefaultKMeansIterations = 28

// Creates a discretizer of the given kind. Iterations only apply to k-means,
// values <=0 select DefaultKMeansIterations.
func New(kind Kind, iterations int) (Discretizer, error) {
	switch kind {
	case KindEqualWidth:
		return EqualWidth{}, nil
	case KindEqualFrequency:
		return EqualFrequency{}, nil
	case KindKMeans:
		if iterations <= 0 {
			iterations = DefaultKMeansIterations
		}
		return KMeans{Iterations: iterations}, nil
	}
	return nil, fmt.Errorf("unknown discretizer kind %d", int(kind))
}

// Checks the trivial cases shared by all strategies. Done is true if cuts is final.
func trivial(data []float64, bins int) (cuts []float64, done bool, err error) {
	if bins < 1 {
		return nil, true, fmt.Errorf("%w: %d bins requested", ErrDiscretization, bins)
	}
	if len(data) < bins {
		return nil, true, fmt.Errorf("%w: %d samples for %d bins", ErrDiscretization, len(data), bins)
	}
	if bins == 1 {
		return []float64{}, true, nil
	}
	return nil, false, nil
}

// Returns an error unless cuts are strictly increasing
func checkIncreasing(cuts []float64) error {
	for i := 1; i < len(cuts); i++ {
		if !(cuts[i] > cuts[i-1]) {
			return fmt.Errorf("%w: cut points %v not strictly increasing", ErrDiscretization, cuts)
		}
	}
	return nil
}

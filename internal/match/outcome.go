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

package match

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/mlnoga/tonematch/internal/binning"
	"github.com/mlnoga/tonematch/internal/discretize"
	"github.com/mlnoga/tonematch/internal/solve"
)

var (
	ErrDegenerateVariance = errors.New("degenerate variance")
	ErrUnratable          = errors.New("no usable bin count")
)

// Outcome of scoring one window
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeDiscretizationFailure
	OutcomeSingularDesignMatrix
	OutcomeDegenerateVariance
	OutcomeUnratable
	OutcomeOther
)

var outcomeNames = []string{"ok", "discretizationFailure", "singularDesignMatrix", "degenerateVariance", "unratable", "other"}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Maps an error from the fitting pipeline onto an outcome
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrUnratable):
		return OutcomeUnratable
	case errors.Is(err, ErrDegenerateVariance):
		return OutcomeDegenerateVariance
	case errors.Is(err, solve.ErrSingular):
		return OutcomeSingularDesignMatrix
	case errors.Is(err, discretize.ErrDiscretization), errors.Is(err, binning.ErrEmptyBin), errors.Is(err, binning.ErrOutOfRange):
		return OutcomeDiscretizationFailure
	}
	return OutcomeOther
}

// Outcome counters of a matching run. Windows count as ok, degenerate or unratable,
// back-offs count every rejected bin count on the way
type Stats struct {
	OK                     atomic.Int64
	DiscretizationBackoffs atomic.Int64
	SingularBackoffs       atomic.Int64
	DegenerateVariance     atomic.Int64
	Unratable              atomic.Int64
}

// Counts a window outcome, or a back-off for recoverable failures. Nil receivers are ignored
func (s *Stats) count(o Outcome) {
	if s == nil {
		return
	}
	switch o {
	case OutcomeOK:
		s.OK.Add(1)
	case OutcomeDiscretizationFailure:
		s.DiscretizationBackoffs.Add(1)
	case OutcomeSingularDesignMatrix:
		s.SingularBackoffs.Add(1)
	case OutcomeDegenerateVariance:
		s.DegenerateVariance.Add(1)
	case OutcomeUnratable, OutcomeOther:
		s.Unratable.Add(1)
	}
}

// Returns the number of scored windows
func (s *Stats) Windows() int64 {
	return s.OK.Load() + s.DegenerateVariance.Load() + s.Unratable.Load()
}

func (s *Stats) String() string {
	return fmt.Sprintf("ok %d degenerate %d unratable %d, back-offs: discretization %d singular %d",
		s.OK.Load(), s.DegenerateVariance.Load(), s.Unratable.Load(), s.DiscretizationBackoffs.Load(), s.SingularBackoffs.Load())
}

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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mlnoga/tonematch/internal/design"
	"github.com/mlnoga/tonematch/internal/discretize"
	"github.com/mlnoga/tonematch/internal/solve"
)

// Evaluation granularity: which side of a comparison gets discretized
type Granularity int

const (
	Simple Granularity = iota // template discretized once, window values fitted
	WtP                       // window discretized per position, template values fitted
	Sym                       // choose between Simple and WtP from image statistics
)

var granularityNames = []string{"simple", "wtp", "sym"}

func (g Granularity) String() string {
	if g < 0 || int(g) >= len(granularityNames) {
		return fmt.Sprintf("Granularity(%d)", int(g))
	}
	return granularityNames[g]
}

func ParseGranularity(s string) (Granularity, error) {
	for i, n := range granularityNames {
		if strings.EqualFold(n, s) {
			return Granularity(i), nil
		}
	}
	return 0, fmt.Errorf("unknown granularity %q", s)
}

func (g Granularity) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

func (g *Granularity) UnmarshalText(text []byte) (err error) {
	*g, err = ParseGranularity(string(text))
	return err
}

// Ranking key for the isotonic penalty. The ranked side is the one that gets discretized,
// so an explicit key fixes Simple (template) or WtP (window) regardless of the granularity
type OrderKey int

const (
	OrderAuto     OrderKey = iota // the discretized side
	OrderTemplate                 // template reference intensities
	OrderWindow                   // observed window intensities
)

var orderKeyNames = []string{"auto", "template", "window"}

func (o OrderKey) String() string {
	if o < 0 || int(o) >= len(orderKeyNames) {
		return fmt.Sprintf("OrderKey(%d)", int(o))
	}
	return orderKeyNames[o]
}

func ParseOrderKey(s string) (OrderKey, error) {
	for i, n := range orderKeyNames {
		if strings.EqualFold(n, s) {
			return OrderKey(i), nil
		}
	}
	return 0, fmt.Errorf("unknown penalty order key %q", s)
}

func (o OrderKey) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *OrderKey) UnmarshalText(text []byte) (err error) {
	*o, err = ParseOrderKey(string(text))
	return err
}

// Default variance guards per basis
const (
	DefaultEpsilonPWC = 1e-4
	DefaultEpsilonPWL = 1e-2
)

// Matcher configuration
type Config struct {
	Bins                int             `json:"bins"`                // requested bins, reduced on failure
	SymSimpleBins       int             `json:"symSimpleBins"`       // bins when the Sym selector picks Simple
	FloorBins           int             `json:"floorBins"`           // lowest usable bin count, 2 or 1
	Discretizer         discretize.Kind `json:"discretizer"`
	Basis               design.Basis    `json:"basis"`
	Granularity         Granularity     `json:"granularity"`
	BlendWeight         float64         `json:"blendWeight"`         // isotonic penalty applies above 0.5
	PenaltyOrderKey     OrderKey        `json:"penaltyOrderKey"`
	VarianceEpsilon     float64         `json:"varianceEpsilon"`     // 0 selects the basis default
	MinDet              float64         `json:"minDet"`
	KMeansIterations    int             `json:"kMeansIterations"`
	MinMeanBinOccupancy float64         `json:"minMeanBinOccupancy"` // samples per bin required to accept a discretization
	Workers             int             `json:"workers"`             // 0 uses all available threads
}

func DefaultConfig() *Config {
	return &Config{
		Bins:                8,
		SymSimpleBins:       4,
		FloorBins:           2,
		Discretizer:         discretize.KindEqualWidth,
		Basis:               design.PiecewiseLinear,
		Granularity:         Sym,
		BlendWeight:         1,
		PenaltyOrderKey:     OrderAuto,
		VarianceEpsilon:     0,
		MinDet:              solve.DefaultMinDet,
		KMeansIterations:    discretize.DefaultKMeansIterations,
		MinMeanBinOccupancy: 2.5,
		Workers:             0,
	}
}

// Unmarshals a configuration, taking defaults for missing keys
func (c *Config) UnmarshalJSON(data []byte) error {
	type defaults Config
	def := defaults(*DefaultConfig())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*c = Config(def)
	return nil
}

// Checks value ranges
func (c *Config) Validate() error {
	if c.FloorBins != 1 && c.FloorBins != 2 {
		return fmt.Errorf("floor bins %d must be 1 or 2", c.FloorBins)
	}
	if c.Bins < c.FloorBins {
		return fmt.Errorf("bins %d below floor %d", c.Bins, c.FloorBins)
	}
	if c.SymSimpleBins < c.FloorBins {
		return fmt.Errorf("sym simple bins %d below floor %d", c.SymSimpleBins, c.FloorBins)
	}
	if c.BlendWeight < 0 || c.BlendWeight > 1 {
		return fmt.Errorf("blend weight %g outside [0,1]", c.BlendWeight)
	}
	if c.VarianceEpsilon < 0 {
		return fmt.Errorf("negative variance epsilon %g", c.VarianceEpsilon)
	}
	if !(c.MinDet > 0) {
		return fmt.Errorf("determinant guard %g must be positive", c.MinDet)
	}
	if c.KMeansIterations < 1 {
		return fmt.Errorf("k-means iterations %d must be positive", c.KMeansIterations)
	}
	if !(c.MinMeanBinOccupancy > 0) {
		return fmt.Errorf("mean bin occupancy %g must be positive", c.MinMeanBinOccupancy)
	}
	if c.Workers < 0 {
		return fmt.Errorf("negative worker count %d", c.Workers)
	}
	if c.Granularity < Simple || c.Granularity > Sym {
		return fmt.Errorf("invalid granularity %v", c.Granularity)
	}
	if c.PenaltyOrderKey < OrderAuto || c.PenaltyOrderKey > OrderWindow {
		return fmt.Errorf("invalid penalty order key %v", c.PenaltyOrderKey)
	}
	if c.Basis != design.PiecewiseConstant && c.Basis != design.PiecewiseLinear {
		return fmt.Errorf("invalid basis %v", c.Basis)
	}
	return nil
}

// Returns the effective variance guard
func (c *Config) Epsilon() float64 {
	if c.VarianceEpsilon > 0 {
		return c.VarianceEpsilon
	}
	if c.Basis == design.PiecewiseConstant {
		return DefaultEpsilonPWC
	}
	return DefaultEpsilonPWL
}

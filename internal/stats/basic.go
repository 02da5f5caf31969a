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

// Package stats calculates basic image statistics, histograms and local standard deviations.
package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Basic statistics on data arrays
type BasicStats struct {
	Min    float32 // Minimum
	Max    float32 // Maximum
	Mean   float32 // Mean (average)
	StdDev float32 // Standard deviation (norm 2, sigma)
	Median float32 // Median
	MAD    float32 // Median absolute deviation, normalized to Gaussian sigma
}

// Pretty print basic stats to string
func (s *BasicStats) String() string {
	return fmt.Sprintf("Min %.6g Max %.6g Mean %.6g StdDev %.6g Median %.6g MAD %.6g",
		s.Min, s.Max, s.Mean, s.StdDev, s.Median, s.MAD)
}

// Pretty print basic stats to CSV header
func (s *BasicStats) ToCSVHeader() string {
	return "Min,Max,Mean,StdDev,Median,MAD"
}

// Pretty print basic stats to CSV line item
func (s *BasicStats) ToCSVLine() string {
	return fmt.Sprintf("%.6g,%.6g,%.6g,%.6g,%.6g,%.6g", s.Min, s.Max, s.Mean, s.StdDev, s.Median, s.MAD)
}

// Calculate basic statistics for a data array. NaNs are skipped
func CalcBasicStats(data []float32) (s *BasicStats) {
	xs := make([]float64, 0, len(data))
	for _, d := range data {
		if !math.IsNaN(float64(d)) {
			xs = append(xs, float64(d))
		}
	}
	s = &BasicStats{}
	if len(xs) == 0 {
		return s
	}
	mean, stdDev := MeanStdDev(xs)
	sort.Float64s(xs)
	median := stat.Quantile(0.5, stat.Empirical, xs, nil)
	s.Min, s.Max = float32(xs[0]), float32(xs[len(xs)-1])
	s.Mean, s.StdDev, s.Median = float32(mean), float32(stdDev), float32(median)

	for i, x := range xs {
		xs[i] = math.Abs(x - median)
	}
	sort.Float64s(xs)
	s.MAD = float32(stat.Quantile(0.5, stat.Empirical, xs, nil) * 1.4826) // normalize to Gaussian std dev
	return s
}

// Returns mean and population standard deviation
func MeanStdDev(xs []float64) (mean, stdDev float64) {
	return stat.PopMeanStdDev(xs, nil)
}

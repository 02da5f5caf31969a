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


package ops

import (
	"fmt"

	"github.com/mlnoga/tonematch/internal/match"
	"github.com/mlnoga/tonematch/internal/stats"
)

// Statistics of one image
type ImageStats struct {
	ID       int               `json:"id"`
	FileName string            `json:"fileName"`
	Basic    *stats.BasicStats `json:"basic"`
	Mode     float32           `json:"mode"`   // histogram mode from a Gaussian fit, the median if the fit fails
	Spread   float32           `json:"spread"` // standard deviation of the Gaussian fit, -1 if the fit fails
}

// Calculates statistics for many images in parallel
type OpStats struct {
	FilePatterns []string `json:"filePatterns"`
	HistoBins    int      `json:"histoBins"`
}

func NewOpStats(filePatterns []string) *OpStats {
	return &OpStats{FilePatterns: filePatterns, HistoBins: 256}
}

func (op *OpStats) Apply(c *match.Context) ([]*ImageStats, error) {
	loads, err := NewOpLoadMany(op.FilePatterns, c)
	if err != nil {
		return nil, err
	}
	results := make([]*ImageStats, len(loads))
	err = parallel(len(loads), c.MaxThreads, func(i int) error {
		img, err := loads[i].Apply(c)
		if err != nil {
			return err
		}
		s := &ImageStats{ID: img.ID, FileName: img.FileName, Basic: stats.CalcBasicStats(img.Data)}
		s.Mode, s.Spread = op.mode(img.Data, s.Basic)
		fmt.Fprintf(c.Log, "%d: %s Mode %.6g Spread %.6g\n", img.ID, s.Basic, s.Mode, s.Spread)
		results[i] = s
		return nil
	})
	return results, err
}

func (op *OpStats) mode(data []float32, b *stats.BasicStats) (mode, spread float32) {
	bins := op.HistoBins
	if bins < 2 {
		bins = 256
	}
	if !(b.Max > b.Min) {
		return b.Min, 0
	}
	histo := make([]int32, bins)
	stats.Histogram(data, b.Min, b.Max, histo)
	mode, spread, err := stats.GetModeStdDevFromHistogram(histo, b.Min, b.Max)
	if err != nil {
		return b.Median, -1
	}
	return mode, spread
}

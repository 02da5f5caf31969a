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
	"image"
	"math"
	"sort"

	"github.com/mlnoga/tonematch/internal/pool"
	"github.com/mlnoga/tonematch/internal/raster"
)

// Scores of a template at all valid anchor positions of an image
type ScoreMap struct {
	Origin      image.Point   // anchor position of score (0,0) in the search image
	Scores      *raster.Image // per-position scores, 1 where unratable
	Granularity Granularity   // granularity used
	Bins        int           // requested bin count
	Stats       *Stats
}

// A candidate match position
type Hit struct {
	Pos   image.Point // anchor position in the search image
	Score float32
}

// Returns the score for the given anchor position in the search image
func (sm *ScoreMap) At(p image.Point) float32 {
	p = p.Sub(sm.Origin)
	return sm.Scores.At(p.X, p.Y)
}

// Returns up to k ratable positions with the lowest scores, keeping hits at least minDist
// apart in each axis. Equal scores are ordered by position
func (sm *ScoreMap) Best(k, minDist int) []Hit {
	data, w := sm.Scores.Data, sm.Scores.Width
	idx := make([]int, 0, len(data))
	for i, s := range data {
		if s < Sentinel && !math.IsNaN(float64(s)) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool { return data[idx[a]] < data[idx[b]] })

	hits := []Hit{}
nextCandidate:
	for _, i := range idx {
		if len(hits) >= k {
			break
		}
		pos := sm.Origin.Add(image.Pt(i%w, i/w))
		for _, h := range hits {
			d := h.Pos.Sub(pos)
			if abs(d.X) < minDist && abs(d.Y) < minDist {
				continue nextCandidate
			}
		}
		hits = append(hits, Hit{pos, data[i]})
	}
	return hits
}

// Returns the score raster to the memory pool. The score map must not be used afterwards
func (sm *ScoreMap) Release() {
	if sm.Scores != nil {
		pool.Float32.Put(sm.Scores.Data)
		sm.Scores = nil
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

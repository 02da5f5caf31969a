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
	"fmt"
	"time"

	"github.com/mlnoga/tonematch/internal/pool"
	"github.com/mlnoga/tonematch/internal/raster"
)

// Scores the template at every position of the image where it fits entirely.
// Windows which cannot be rated score 1. Scores are identical for any number of workers
func (m *Matcher) Apply2(img *raster.Image, tpl *Template) (*ScoreMap, error) {
	start := time.Now()
	b := tpl.Bounds()
	outW, outH := img.Width-b.Dx()+1, img.Height-b.Dy()+1
	if outW < 1 || outH < 1 {
		return nil, fmt.Errorf("template %d of size %dx%d exceeds image %s", tpl.ID(), b.Dx(), b.Dy(), img.DimensionsToString())
	}
	workers := m.cfg.Workers
	if workers < 1 {
		workers = m.ctx.MaxThreads
	}
	if workers < 1 {
		workers = 1
	}

	// output raster, per-worker scratch and the integral images of the Sym selector
	needed := int64(outW*outH)*4 + int64(workers*tpl.Len())*8*8
	if m.cfg.Granularity == Sym {
		needed += int64((img.Width+1)*(img.Height+1))*16 + int64(outW*outH)*4
	}
	if budget := m.ctx.budget(); budget > 0 && needed > budget {
		return nil, fmt.Errorf("matching %s image needs %d MB, exceeding budget of %d MB",
			img.DimensionsToString(), needed>>20, budget>>20)
	}

	st := &Stats{}
	minLocalStdDev, err := m.imageContrast(img, tpl)
	if err != nil {
		return nil, err
	}
	g, bins := m.resolve(tpl.StdDev(), minLocalStdDev)
	var p *plan
	if g == Simple {
		p = m.plan(tpl, bins)
		p.countBackoffs(st)
	}

	// linear offsets of the samples relative to the anchor
	offsets := make([]int, tpl.Len())
	for i, s := range tpl.Samples() {
		offsets[i] = s.Offset.Y*img.Width + s.Offset.X
	}
	origin := b.Min.Mul(-1)
	scores := pool.Float32.Get(outW * outH)

	// split into 8*workers row batches, limit parallelism to workers
	numBatches := 8 * workers
	batchSize := (outH + numBatches - 1) / numBatches
	sem := make(chan bool, workers)
	for lower := 0; lower < outH; lower += batchSize {
		upper := lower + batchSize
		if upper > outH {
			upper = outH
		}

		sem <- true
		go func(lower, upper int) {
			defer func() { <-sem }()
			ws := m.workspaces.Get().(*workspace)
			defer m.workspaces.Put(ws)
			ws.window = resize(ws.window, tpl.Len())
			for y := lower; y < upper; y++ {
				for x := 0; x < outW; x++ {
					anchor := (y+origin.Y)*img.Width + x + origin.X
					for i, o := range offsets {
						ws.window[i] = float64(img.Data[anchor+o])
					}
					score, err := m.fitWindow(ws, g, bins, p, tpl, ws.window, st, nil)
					st.count(Classify(err))
					scores[y*outW+x] = float32(score)
				}
			}
		}(lower, upper)
	}
	for i := 0; i < cap(sem); i++ { // wait for goroutines to finish
		sem <- true
	}

	fmt.Fprintf(m.ctx.Log, "%d: Matched template %d (%d samples) over %dx%d positions with %v granularity, %d bins, %d workers in %v: %v\n",
		img.ID, tpl.ID(), tpl.Len(), outW, outH, g, bins, workers, time.Since(start).Round(time.Millisecond), st)

	return &ScoreMap{
		Origin:      origin,
		Scores:      raster.NewImage(outW, outH, scores),
		Granularity: g,
		Bins:        bins,
		Stats:       st,
	}, nil
}

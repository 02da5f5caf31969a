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

// Package match scores image windows against templates under an unknown monotonic
// tone mapping. A tone curve is fitted between the intensities of window and template,
// and its residual is combined with the distance of the curve from monotonicity.
package match

import (
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/mlnoga/tonematch/internal/discretize"
	"github.com/mlnoga/tonematch/internal/pool"
	"github.com/mlnoga/tonematch/internal/raster"
	"github.com/mlnoga/tonematch/internal/stats"
)

// Tone mapping invariant template matcher. Safe for concurrent use
type Matcher struct {
	cfg  Config
	ctx  *Context
	disc discretize.Discretizer

	mu    sync.Mutex
	bound int64         // ID of the template the cached plans belong to
	plans map[int]*plan // Simple discretizations of the bound template, by requested bins

	workspaces sync.Pool
}

// Creates a matcher with the given configuration. A nil context logs nowhere
func New(cfg *Config, ctx *Context) (*Matcher, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = &Context{Log: io.Discard, MaxThreads: 1}
	}
	if ctx.Log == nil {
		c := *ctx
		c.Log = io.Discard
		ctx = &c
	}
	disc, err := discretize.New(cfg.Discretizer, cfg.KMeansIterations)
	if err != nil {
		return nil, err
	}
	m := &Matcher{cfg: *cfg, ctx: ctx, disc: disc}
	m.workspaces.New = func() interface{} { return &workspace{} }
	return m, nil
}

// Returns a copy of the configuration
func (m *Matcher) Config() Config { return m.cfg }

// Returns the cached Simple discretization of the template, rebinding the cache if the template changed
func (m *Matcher) plan(tpl *Template, bins int) *plan {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.plans == nil || m.bound != tpl.ID() {
		m.bound, m.plans = tpl.ID(), make(map[int]*plan)
	}
	p := m.plans[bins]
	if p == nil {
		p = m.newPlan(tpl, bins)
		m.plans[bins] = p
	}
	return p
}

// Scores a window of intensities in template sample order. Windows which cannot be rated
// score 1; errors are returned only for mismatched inputs. Without a search image, the Sym
// selector compares the template contrast with that of the window itself
func (m *Matcher) Compare(tpl *Template, window []float64) (float64, error) {
	return m.compare(tpl, window, -1, nil)
}

// Returns the contrast the Sym selector compares the template against: the minimum local
// standard deviation of the image over the template bounding box. 0 for other granularities
func (m *Matcher) imageContrast(img *raster.Image, tpl *Template) (float64, error) {
	if m.cfg.Granularity != Sym {
		return 0, nil
	}
	b := tpl.Bounds()
	return stats.MinLocalStdDev(img.Data, img.Width, img.Height, b.Dx(), b.Dy())
}

// Scores a window. A negative minLocalStdDev selects the window's own standard deviation
func (m *Matcher) compare(tpl *Template, window []float64, minLocalStdDev float64, ex *Explanation) (float64, error) {
	if len(window) != tpl.Len() {
		return Sentinel, fmt.Errorf("window has %d values, template %d has %d samples", len(window), tpl.ID(), tpl.Len())
	}
	if minLocalStdDev < 0 {
		_, minLocalStdDev = stats.MeanStdDev(window)
	}
	g, bins := m.resolve(tpl.StdDev(), minLocalStdDev)
	var p *plan
	if g == Simple {
		p = m.plan(tpl, bins)
	}

	ws := m.workspaces.Get().(*workspace)
	defer m.workspaces.Put(ws)
	score, err := m.fitWindow(ws, g, bins, p, tpl, window, nil, ex)
	if ex != nil {
		ex.Granularity, ex.Outcome, ex.Err, ex.Score = g, Classify(err), err, score
	}
	return score, nil
}

// Gathers the window of the image anchored at the given position, in template sample order
func gather(dst []float64, img *raster.Image, tpl *Template, at image.Point) ([]float64, error) {
	if r := tpl.Bounds().Add(at); !r.In(img.Bounds()) {
		return nil, fmt.Errorf("template %d at %v covers %v, outside image bounds %v", tpl.ID(), at, r, img.Bounds())
	}
	for i, s := range tpl.Samples() {
		p := at.Add(s.Offset)
		dst[i] = float64(img.At(p.X, p.Y))
	}
	return dst, nil
}

// Scores the template anchored at the given position of the image. The Sym selector
// decides from the whole image, as in Apply2
func (m *Matcher) Evaluate(img *raster.Image, tpl *Template, at image.Point) (float64, error) {
	buf := pool.Float64.Get(tpl.Len())
	defer pool.Float64.Put(buf)
	window, err := gather(buf, img, tpl, at)
	if err != nil {
		return Sentinel, err
	}
	contrast, err := m.imageContrast(img, tpl)
	if err != nil {
		return Sentinel, err
	}
	return m.compare(tpl, window, contrast, nil)
}

// Returns the full fit record of the template anchored at the given position of the image
func (m *Matcher) Explain(img *raster.Image, tpl *Template, at image.Point) (*Explanation, error) {
	window, err := gather(make([]float64, tpl.Len()), img, tpl, at)
	if err != nil {
		return nil, err
	}
	contrast, err := m.imageContrast(img, tpl)
	if err != nil {
		return nil, err
	}
	return m.explain(tpl, window, contrast)
}

// Returns the full fit record of a window of intensities in template sample order.
// The Sym selector works as in Compare
func (m *Matcher) ExplainWindow(tpl *Template, window []float64) (*Explanation, error) {
	return m.explain(tpl, window, -1)
}

func (m *Matcher) explain(tpl *Template, window []float64, minLocalStdDev float64) (*Explanation, error) {
	ex := &Explanation{}
	if _, err := m.compare(tpl, window, minLocalStdDev, ex); err != nil {
		return nil, err
	}
	return ex, nil
}

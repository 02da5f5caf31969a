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
	"testing"

	"github.com/mlnoga/tonematch/internal/design"
	"github.com/mlnoga/tonematch/internal/raster"
	"github.com/valyala/fastrand"
)

// Lays out values row by row in an image three pixels wide
func gridImage(values []float64) *raster.Image {
	img := raster.NewImage(3, (len(values)+2)/3, nil)
	for i, v := range values {
		img.Data[i] = float32(v)
	}
	return img
}

func randomImage(width, height int, seed uint32) *raster.Image {
	var rng fastrand.RNG
	rng.Seed(seed)
	img := raster.NewImage(width, height, nil)
	for i := range img.Data {
		img.Data[i] = float32(rng.Uint32n(256))
	}
	return img
}

func patchTemplate(t *testing.T, img *raster.Image, r image.Rectangle) *Template {
	t.Helper()
	ref, err := img.SubImage(r)
	if err != nil {
		t.Fatalf("SubImage: %v", err)
	}
	tpl, err := NewTemplateFromImage(ref, nil)
	if err != nil {
		t.Fatalf("NewTemplateFromImage: %v", err)
	}
	return tpl
}

func TestApply2DeterministicAcrossWorkers(t *testing.T) {
	img := randomImage(40, 30, 3)
	tpl := patchTemplate(t, img, image.Rect(10, 8, 15, 13))
	for _, g := range []Granularity{Simple, WtP, Sym} {
		var ref []float32
		for _, workers := range []int{1, 4, 7} {
			m := newMatcher(t, func(c *Config) { c.Granularity, c.Workers = g, workers })
			sm, err := m.Apply2(img, tpl)
			if err != nil {
				t.Fatalf("%v workers %d: err=%v", g, workers, err)
			}
			if sm.Scores.Width != 36 || sm.Scores.Height != 26 {
				t.Fatalf("%v: score map %s; want 36x26", g, sm.Scores.DimensionsToString())
			}
			if ref == nil {
				ref = append([]float32(nil), sm.Scores.Data...)
				continue
			}
			for i, s := range sm.Scores.Data {
				if s != ref[i] {
					t.Errorf("%v workers %d: score[%d]=%g; want %g", g, workers, i, s, ref[i])
					break
				}
			}
			sm.Release()
		}
	}
}

func TestApply2FindsPatch(t *testing.T) {
	img := randomImage(32, 24, 8)
	tpl := patchTemplate(t, img, image.Rect(20, 5, 25, 10))
	m := newMatcher(t, func(c *Config) { c.Granularity = WtP })
	sm, err := m.Apply2(img, tpl)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	hits := sm.Best(3, 5)
	if len(hits) == 0 || hits[0].Pos != image.Pt(20, 5) {
		t.Fatalf("hits=%v; want best at (20,5)", hits)
	}
	if hits[0].Score > 1e-6 {
		t.Errorf("score at patch %g; want 0", hits[0].Score)
	}
	if got := sm.Stats.Windows(); got != int64(28*20) {
		t.Errorf("%d windows counted; want %d", got, 28*20)
	}
}

func TestApply2MatchesEvaluate(t *testing.T) {
	img := randomImage(20, 16, 21)
	tpl := patchTemplate(t, img, image.Rect(3, 4, 7, 8))
	for _, g := range []Granularity{Simple, WtP, Sym} {
		m := newMatcher(t, func(c *Config) { c.Granularity, c.Workers = g, 3 })
		sm, err := m.Apply2(img, tpl)
		if err != nil {
			t.Fatalf("err=%v", err)
		}
		for _, p := range []image.Point{{0, 0}, {3, 4}, {16, 12}, {9, 2}} {
			score, err := m.Evaluate(img, tpl, p)
			if err != nil {
				t.Fatalf("Evaluate(%v): %v", p, err)
			}
			if float32(score) != sm.At(p) {
				t.Errorf("%v: Evaluate(%v)=%g; Apply2 %g", g, p, score, sm.At(p))
			}
		}
		if _, err := m.Evaluate(img, tpl, image.Pt(17, 0)); err == nil {
			t.Errorf("Evaluate outside image succeeded; want error")
		}
	}
}

// Scales the reference intensities of a template, dropping its reference raster
func scaledTemplate(t *testing.T, tpl *Template, a float64) *Template {
	t.Helper()
	samples := make([]Sample, tpl.Len())
	for i, s := range tpl.Samples() {
		samples[i] = Sample{s.Offset, a * s.Value}
	}
	scaled, err := NewTemplate(samples, nil)
	if err != nil {
		t.Fatalf("NewTemplate: %v", err)
	}
	return scaled
}

func TestSymUsesImageContrastEverywhere(t *testing.T) {
	textured := randomImage(20, 16, 21)
	flatPatch := randomImage(20, 16, 21)
	for y := 10; y < 16; y++ {
		for x := 12; x < 20; x++ {
			flatPatch.Set(x, y, 42)
		}
	}
	tests := []struct {
		name string
		img  *raster.Image
		want Granularity
	}{
		{"textured", textured, Simple},
		{"flat patch", flatPatch, WtP},
	}
	for _, tt := range tests {
		// low contrast template, flatter than any textured window but not than a flat one
		tpl := scaledTemplate(t, patchTemplate(t, textured, image.Rect(3, 4, 7, 8)), 0.05)
		m := newMatcher(t, func(c *Config) { c.Granularity, c.Workers = Sym, 2 })
		sm, err := m.Apply2(tt.img, tpl)
		if err != nil {
			t.Fatalf("%s: err=%v", tt.name, err)
		}
		if sm.Granularity != tt.want {
			t.Errorf("%s: Apply2 granularity=%v; want %v", tt.name, sm.Granularity, tt.want)
		}
		for _, p := range []image.Point{{0, 0}, {5, 3}, {9, 2}, {16, 12}} {
			ex, err := m.Explain(tt.img, tpl, p)
			if err != nil {
				t.Fatalf("%s: Explain(%v): %v", tt.name, p, err)
			}
			if ex.Granularity != sm.Granularity {
				t.Errorf("%s: Explain(%v) granularity=%v; Apply2 %v", tt.name, p, ex.Granularity, sm.Granularity)
			}
			score, err := m.Evaluate(tt.img, tpl, p)
			if err != nil {
				t.Fatalf("%s: Evaluate(%v): %v", tt.name, p, err)
			}
			if float32(score) != sm.At(p) {
				t.Errorf("%s: Evaluate(%v)=%g; Apply2 %g", tt.name, p, score, sm.At(p))
			}
		}
	}
}

func TestApply2CountsPlanBackoffsOnEveryRun(t *testing.T) {
	// two levels in 9 samples: three equal-width bins leave the middle one empty
	tpl := gridTemplate(t, []float64{0, 0, 0, 0, 0, 1, 1, 1, 1})
	img := randomImage(8, 6, 5)
	m := newMatcher(t, func(c *Config) {
		c.Granularity, c.Basis, c.Workers = Simple, design.PiecewiseConstant, 1
	})
	var want int64
	for run := 0; run < 3; run++ {
		sm, err := m.Apply2(img, tpl)
		if err != nil {
			t.Fatalf("run %d: err=%v", run, err)
		}
		got := sm.Stats.DiscretizationBackoffs.Load() + sm.Stats.SingularBackoffs.Load()
		if run == 0 {
			want = got
		}
		if got == 0 || got != want {
			t.Errorf("run %d: %d back-offs; want %d and nonzero", run, got, want)
		}
	}
}

func TestApply2UniformImageIsUnratable(t *testing.T) {
	img := raster.NewImage(12, 10, nil)
	for i := range img.Data {
		img.Data[i] = 42
	}
	tpl := patchTemplate(t, randomImage(3, 3, 4), image.Rect(0, 0, 3, 3))
	m := newMatcher(t, nil)
	sm, err := m.Apply2(img, tpl)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	for i, s := range sm.Scores.Data {
		if s != 1 {
			t.Fatalf("score[%d]=%g; want 1", i, s)
		}
	}
	if n := sm.Stats.DegenerateVariance.Load(); n != int64(len(sm.Scores.Data)) {
		t.Errorf("%d degenerate windows; want %d", n, len(sm.Scores.Data))
	}
	if hits := sm.Best(5, 1); len(hits) != 0 {
		t.Errorf("hits=%v; want none", hits)
	}
}

func TestApply2SparseTemplateOrigin(t *testing.T) {
	img := randomImage(16, 16, 12)
	samples := []Sample{}
	for _, off := range []image.Point{{-2, -1}, {0, 0}, {1, 2}, {2, -1}, {-1, 1}, {0, 2}, {1, 0}, {-2, 2}} {
		samples = append(samples, Sample{off, float64(img.At(8+off.X, 8+off.Y))})
	}
	tpl, err := NewTemplate(samples, nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if b := tpl.Bounds(); b != image.Rect(-2, -1, 3, 3) {
		t.Fatalf("bounds %v; want (-2,-1)-(3,3)", b)
	}
	m := newMatcher(t, func(c *Config) { c.Granularity, c.FloorBins = WtP, 1 })
	sm, err := m.Apply2(img, tpl)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if sm.Origin != image.Pt(2, 1) || sm.Scores.Width != 12 || sm.Scores.Height != 13 {
		t.Errorf("origin %v size %s; want (2,1) 12x13", sm.Origin, sm.Scores.DimensionsToString())
	}
	if s := sm.At(image.Pt(8, 8)); s > 1e-6 {
		t.Errorf("score at source %g; want 0", s)
	}
}

func TestApply2MemoryBudget(t *testing.T) {
	img := raster.NewImage(600, 600, nil)
	tpl := patchTemplate(t, randomImage(3, 3, 5), image.Rect(0, 0, 3, 3))
	m, err := New(DefaultConfig(), &Context{MemoryMB: 1, MaxThreads: 2})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, err := m.Apply2(img, tpl); err == nil {
		t.Errorf("Apply2 beyond memory budget succeeded; want error")
	}
}

func TestApply2TemplateLargerThanImage(t *testing.T) {
	m := newMatcher(t, nil)
	tpl := patchTemplate(t, randomImage(8, 8, 6), image.Rect(0, 0, 8, 8))
	if _, err := m.Apply2(randomImage(5, 9, 7), tpl); err == nil {
		t.Errorf("oversized template succeeded; want error")
	}
}

func TestBestSuppressesNeighbours(t *testing.T) {
	scores := raster.NewImage(5, 1, []float32{0.3, 0.1, 0.2, 1, 0.4})
	sm := &ScoreMap{Origin: image.Pt(10, 20), Scores: scores}
	hits := sm.Best(3, 2)
	want := []Hit{{image.Pt(11, 20), 0.1}, {image.Pt(14, 20), 0.4}}
	if len(hits) != len(want) {
		t.Fatalf("hits=%v; want %v", hits, want)
	}
	for i := range want {
		if hits[i] != want[i] {
			t.Errorf("hits[%d]=%v; want %v", i, hits[i], want[i])
		}
	}
}

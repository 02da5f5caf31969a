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
	"image"
	"sync/atomic"

	"github.com/mlnoga/tonematch/internal/raster"
	"github.com/mlnoga/tonematch/internal/stats"
)

var templateIDs atomic.Int64

// A template sample: reference intensity at an offset from the anchor
type Sample struct {
	Offset image.Point
	Value  float64
}

// An immutable matching template. Each template has a process-unique ID, which keys
// the cached discretizations of a Matcher
type Template struct {
	id      int64
	samples []Sample
	ref     *raster.Image // reference raster for the contrast heuristic, may be nil

	bounds   image.Rectangle
	values   []float64
	variance float64
	stdDev   float64
}

// Creates a template from explicit samples. Samples are copied
func NewTemplate(samples []Sample, ref *raster.Image) (*Template, error) {
	if len(samples) == 0 {
		return nil, errors.New("template without samples")
	}
	t := &Template{
		id:      templateIDs.Add(1),
		samples: append([]Sample(nil), samples...),
		ref:     ref,
		values:  make([]float64, len(samples)),
	}
	t.bounds = image.Rectangle{samples[0].Offset, samples[0].Offset.Add(image.Pt(1, 1))}
	for i, s := range samples {
		t.values[i] = s.Value
		t.bounds = t.bounds.Union(image.Rectangle{s.Offset, s.Offset.Add(image.Pt(1, 1))})
	}
	_, t.stdDev = stats.MeanStdDev(t.values)
	t.variance = t.stdDev * t.stdDev
	if ref != nil {
		s := stats.CalcBasicStats(ref.Data)
		t.stdDev = float64(s.StdDev)
	}
	return t, nil
}

// Creates a template from every pixel of a reference raster, anchored at its top left corner.
// If mask is given, only pixels with nonzero mask values are used
func NewTemplateFromImage(ref, mask *raster.Image) (*Template, error) {
	if mask != nil && (mask.Width != ref.Width || mask.Height != ref.Height) {
		return nil, fmt.Errorf("mask %s differs from template %s", mask.DimensionsToString(), ref.DimensionsToString())
	}
	samples := make([]Sample, 0, len(ref.Data))
	for y := 0; y < ref.Height; y++ {
		for x := 0; x < ref.Width; x++ {
			if mask != nil && mask.At(x, y) == 0 {
				continue
			}
			samples = append(samples, Sample{image.Pt(x, y), float64(ref.At(x, y))})
		}
	}
	return NewTemplate(samples, ref)
}

// Returns the process-unique ID of the template
func (t *Template) ID() int64 { return t.id }

// Returns the samples. Must not be modified
func (t *Template) Samples() []Sample { return t.samples }

// Returns the reference raster, nil if none
func (t *Template) Ref() *raster.Image { return t.ref }

// Returns the bounding box of the sample offsets
func (t *Template) Bounds() image.Rectangle { return t.bounds }

// Returns the number of samples
func (t *Template) Len() int { return len(t.values) }

// Returns the reference intensities in sample order. Must not be modified
func (t *Template) Values() []float64 { return t.values }

// Returns the standard deviation used by the contrast heuristic: of the reference raster if
// present, else of the sample values
func (t *Template) StdDev() float64 { return t.stdDev }

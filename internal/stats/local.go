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

package stats

import (
	"fmt"
	"image"
	"math"
)

// Integral images of values and squared values, with a zero first row and column
type Integral struct {
	Width, Height int
	Sum           []float64 // (Width+1)*(Height+1) prefix sums
	SumSq         []float64 // (Width+1)*(Height+1) prefix sums of squares
}

// Calculates the integral images of the given row-major data
func NewIntegral(data []float32, width, height int) *Integral {
	stride := width + 1
	in := &Integral{
		Width:  width,
		Height: height,
		Sum:    make([]float64, stride*(height+1)),
		SumSq:  make([]float64, stride*(height+1)),
	}
	for y := 0; y < height; y++ {
		rowSum, rowSumSq := 0.0, 0.0
		for x := 0; x < width; x++ {
			v := float64(data[y*width+x])
			rowSum += v
			rowSumSq += v * v
			i := (y+1)*stride + x + 1
			in.Sum[i] = in.Sum[i-stride] + rowSum
			in.SumSq[i] = in.SumSq[i-stride] + rowSumSq
		}
	}
	return in
}

func (in *Integral) window(s []float64, r image.Rectangle) float64 {
	stride := in.Width + 1
	return s[r.Max.Y*stride+r.Max.X] - s[r.Min.Y*stride+r.Max.X] - s[r.Max.Y*stride+r.Min.X] + s[r.Min.Y*stride+r.Min.X]
}

// Returns mean and population standard deviation of the values within the rectangle
func (in *Integral) MeanStdDev(r image.Rectangle) (mean, stdDev float64) {
	n := float64(r.Dx() * r.Dy())
	mean = in.window(in.Sum, r) / n
	variance := in.window(in.SumSq, r)/n - mean*mean
	if variance < 0 {
		variance = 0 // cancellation
	}
	return mean, math.Sqrt(variance)
}

// Calculates the standard deviation of every w x h window of the image. Output has
// (width-w+1)*(height-h+1) values, indexed by the window's top left corner
func LocalStdDev(data []float32, width, height, w, h int) ([]float32, error) {
	if w < 1 || h < 1 || w > width || h > height {
		return nil, fmt.Errorf("window %dx%d does not fit image %dx%d", w, h, width, height)
	}
	in := NewIntegral(data, width, height)
	outW, outH := width-w+1, height-h+1
	out := make([]float32, outW*outH)
	for y := 0; y < outH; y++ {
		for x := 0; x < outW; x++ {
			_, s := in.MeanStdDev(image.Rect(x, y, x+w, y+h))
			out[y*outW+x] = float32(s)
		}
	}
	return out, nil
}

// Returns the minimum standard deviation over all w x h windows of the image
func MinLocalStdDev(data []float32, width, height, w, h int) (float64, error) {
	local, err := LocalStdDev(data, width, height, w, h)
	if err != nil {
		return 0, err
	}
	min := math.Inf(1)
	for _, s := range local {
		if float64(s) < min {
			min = float64(s)
		}
	}
	return min, nil
}

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

// Package raster holds grayscale float32 images and converts them from and to standard image formats.
package raster

import (
	"fmt"
	"image"
)

// A grayscale image with float32 intensities in row-major order
type Image struct {
	ID       int       // Sequential ID number, for log output
	FileName string    // Original file name, if any, for log output
	Width    int       // Width in pixels
	Height   int       // Height in pixels
	Data     []float32 // The image data, Width*Height values
}

// Creates an image of the given size. Data is not copied, allocated if nil
func NewImage(width, height int, data []float32) *Image {
	if data == nil {
		data = make([]float32, width*height)
	}
	return &Image{Width: width, Height: height, Data: data}
}

// Returns the bounds of the image, anchored at the origin
func (img *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, img.Width, img.Height)
}

// Returns the pixel value at the given location
func (img *Image) At(x, y int) float32 {
	return img.Data[y*img.Width+x]
}

// Sets the pixel value at the given location
func (img *Image) Set(x, y int, v float32) {
	img.Data[y*img.Width+x] = v
}

// Copies the given rectangle into a new image. The rectangle must lie within the image bounds
func (img *Image) SubImage(r image.Rectangle) (*Image, error) {
	if !r.In(img.Bounds()) || r.Empty() {
		return nil, fmt.Errorf("rectangle %v not within image bounds %v", r, img.Bounds())
	}
	sub := NewImage(r.Dx(), r.Dy(), nil)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		copy(sub.Data[(y-r.Min.Y)*sub.Width:(y-r.Min.Y+1)*sub.Width], img.Data[y*img.Width+r.Min.X:y*img.Width+r.Max.X])
	}
	sub.FileName = img.FileName
	return sub, nil
}

func (img *Image) DimensionsToString() string {
	return fmt.Sprintf("%dx%d", img.Width, img.Height)
}

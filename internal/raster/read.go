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

package raster

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"os"

	"github.com/lucasb-eyer/go-colorful"
	_ "golang.org/x/image/tiff" // register decoder
)

// Reads a TIFF, PNG or JPEG file into a grayscale image
func ReadFile(fileName string) (*Image, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, err := Decode(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	img.FileName = fileName
	return img, nil
}

// Decodes a TIFF, PNG or JPEG stream into a grayscale image
func Decode(r io.Reader) (*Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return FromImage(src), nil
}

// Converts a standard image into a grayscale image with intensities in [0,255].
// Gray images keep their values, color images are converted to CIE L*
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	img := NewImage(b.Dx(), b.Dy(), nil)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		yoffset := (y - b.Min.Y) * img.Width
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Data[yoffset+x-b.Min.X] = Luminance(src.At(x, y))
		}
	}
	return img
}

// Returns the luminance of the given color on a scale of [0,255]
func Luminance(c color.Color) float32 {
	switch g := c.(type) {
	case color.Gray:
		return float32(g.Y)
	case color.Gray16:
		return float32(g.Y) / 257
	}
	col, ok := colorful.MakeColor(c)
	if !ok {
		return 0 // fully transparent
	}
	l, _, _ := col.Lab()
	return float32(l * 255)
}

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
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math"
	"os"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/tiff"
)

// Endpoints of the heat map color scale, for low and high values
var (
	HeatMapLow  = colorful.Color{R: 1, G: 0.85, B: 0.1}
	HeatMapHigh = colorful.Color{R: 0.05, G: 0.05, B: 0.35}
)

// Write a grayscale image to 16-bit TIFF, scaling [min,max] to the full range
func (img *Image) WriteTIFF16ToFile(fileName string, min, max float32) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	defer writer.Flush()

	return img.WriteTIFF16(writer, min, max)
}

// Write a grayscale image to 16-bit TIFF, scaling [min,max] to the full range
func (img *Image) WriteTIFF16(writer io.Writer, min, max float32) error {
	gray := image.NewGray16(img.Bounds())
	scale := 1 / (max - min)
	for y := 0; y < img.Height; y++ {
		yoffset := y * img.Width
		for x := 0; x < img.Width; x++ {
			v := normalize(img.Data[yoffset+x], min, scale)
			gray.SetGray16(x, y, color.Gray16{Y: uint16(v * 65535)})
		}
	}
	return tiff.Encode(writer, gray, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// Write an image to JPG as a heat map, blending from HeatMapLow at min to HeatMapHigh at max
func (img *Image) WriteHeatMapJPGToFile(fileName string, min, max float32, quality int) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	defer writer.Flush()

	return img.WriteHeatMapJPG(writer, min, max, quality)
}

// Write an image to JPG as a heat map, blending from HeatMapLow at min to HeatMapHigh at max
func (img *Image) WriteHeatMapJPG(writer io.Writer, min, max float32, quality int) error {
	rgba := image.NewRGBA(img.Bounds())
	scale := 1 / (max - min)
	for y := 0; y < img.Height; y++ {
		yoffset := y * img.Width
		for x := 0; x < img.Width; x++ {
			v := normalize(img.Data[yoffset+x], min, scale)
			r, g, b := HeatMapColor(v).RGB255()
			rgba.SetRGBA(x, y, color.RGBA{r, g, b, 255})
		}
	}
	return jpeg.Encode(writer, rgba, &jpeg.Options{Quality: quality})
}

// Returns the heat map color for a value in [0,1]
func HeatMapColor(v float32) colorful.Color {
	return HeatMapLow.BlendHcl(HeatMapHigh, float64(v)).Clamped()
}

// Scales v into [0,1]. NaNs become zero, else output breaks
func normalize(v, min, scale float32) float32 {
	v = (v - min) * scale
	if math.IsNaN(float64(v)) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

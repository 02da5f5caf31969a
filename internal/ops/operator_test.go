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
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/mlnoga/tonematch/internal/match"
	"github.com/valyala/fastrand"
)

func writePNG(t *testing.T, fileName string, width, height int, value func(x, y int) uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Pix[y*img.Stride+x] = value(x, y)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	if err := os.WriteFile(fileName, buf.Bytes(), 0666); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// Writes a random image and a template cut from it at the given position
func writeScene(t *testing.T, dir string, at image.Point) (imageFile, templateFile string) {
	t.Helper()
	const width, height, tw, th = 30, 24, 6, 6
	var rng fastrand.RNG
	rng.Seed(7)
	pix := make([]uint8, width*height)
	for i := range pix {
		pix[i] = uint8(rng.Uint32n(256))
	}
	imageFile, templateFile = filepath.Join(dir, "image.png"), filepath.Join(dir, "template.png")
	writePNG(t, imageFile, width, height, func(x, y int) uint8 { return pix[y*width+x] })
	writePNG(t, templateFile, tw, th, func(x, y int) uint8 { return pix[(y+at.Y)*width+x+at.X] })
	return imageFile, templateFile
}

func testContext() *match.Context {
	return &match.Context{Log: io.Discard, MaxThreads: 3}
}

func TestOpMatchFindsTemplate(t *testing.T) {
	dir := t.TempDir()
	at := image.Pt(11, 9)
	imageFile, templateFile := writeScene(t, dir, at)

	op := NewOpMatchDefault()
	op.Image, op.Template = imageFile, templateFile
	op.Best = 3
	op.Save = NewOpSave(filepath.Join(dir, "scores.tif"))
	op.Preview = NewOpSave(filepath.Join(dir, "scores.jpg"))
	sm, hits, err := op.Apply(testContext())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer sm.Release()

	if sm.Scores.Width != 25 || sm.Scores.Height != 19 {
		t.Errorf("score map %s; want 25x19", sm.Scores.DimensionsToString())
	}
	if len(hits) == 0 || hits[0].Pos != at {
		t.Fatalf("hits %v; want first at %v", hits, at)
	}
	if hits[0].Score > 1e-6 {
		t.Errorf("best score %g; want ~0", hits[0].Score)
	}
	for _, name := range []string{"scores.tif", "scores.jpg"} {
		if fi, err := os.Stat(filepath.Join(dir, name)); err != nil || fi.Size() == 0 {
			t.Errorf("output %s missing: %v", name, err)
		}
	}
}

func TestOpMatchMask(t *testing.T) {
	dir := t.TempDir()
	at := image.Pt(3, 4)
	imageFile, templateFile := writeScene(t, dir, at)
	maskFile := filepath.Join(dir, "mask.png")
	writePNG(t, maskFile, 6, 6, func(x, y int) uint8 {
		if (x+y)%2 == 0 {
			return 255
		}
		return 0
	})

	op := NewOpMatchDefault()
	op.Image, op.Template, op.Mask = imageFile, templateFile, maskFile
	sm, hits, err := op.Apply(testContext())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer sm.Release()
	if len(hits) == 0 || hits[0].Pos != at {
		t.Errorf("hits %v; want first at %v", hits, at)
	}
}

func TestOpMatchMissingFile(t *testing.T) {
	op := NewOpMatchDefault()
	op.Image, op.Template = filepath.Join(t.TempDir(), "none.png"), "none.png"
	if _, _, err := op.Apply(testContext()); err == nil {
		t.Errorf("Apply with missing image succeeded; want error")
	}
}

func TestOpExplain(t *testing.T) {
	dir := t.TempDir()
	at := image.Pt(5, 2)
	imageFile, templateFile := writeScene(t, dir, at)
	op := &OpExplain{Image: imageFile, Template: templateFile, At: at}
	ex, err := op.Apply(testContext())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if ex.Outcome != match.OutcomeOK || ex.Score > 1e-6 {
		t.Errorf("outcome %v score %g; want ok and ~0", ex.Outcome, ex.Score)
	}
	op.At = image.Pt(100, 100)
	if _, err := op.Apply(testContext()); err == nil {
		t.Errorf("Apply outside image succeeded; want error")
	}
}

func TestOpStats(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 8, 8, func(x, y int) uint8 { return uint8(x * 10) })
	writePNG(t, filepath.Join(dir, "b.png"), 4, 4, func(x, y int) uint8 { return 42 })

	res, err := NewOpStats([]string{filepath.Join(dir, "*.png")}).Apply(testContext())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("%d results; want 2", len(res))
	}
	if res[0].Basic.Min != 0 || res[0].Basic.Max != 70 {
		t.Errorf("a.png min %g max %g; want 0 70", res[0].Basic.Min, res[0].Basic.Max)
	}
	if res[1].Mode != 42 || res[1].Spread != 0 {
		t.Errorf("b.png mode %g spread %g; want 42 0", res[1].Mode, res[1].Spread)
	}

	if _, err := NewOpStats([]string{filepath.Join(dir, "*.tif")}).Apply(testContext()); err == nil {
		t.Errorf("Apply without matching files succeeded; want error")
	}
}

func TestOpMatchUnmarshalDefaults(t *testing.T) {
	var op OpMatch
	if err := json.Unmarshal([]byte(`{"image":"a.png","config":{"bins":5}}`), &op); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if op.Image != "a.png" || op.Best != 5 {
		t.Errorf("image %q best %d; want a.png 5", op.Image, op.Best)
	}
	want := match.DefaultConfig()
	want.Bins = 5
	if *op.Config != *want {
		t.Errorf("config %+v; want %+v", *op.Config, *want)
	}
}

func TestIsPathAllowed(t *testing.T) {
	for _, c := range []struct {
		path string
		want bool
	}{
		{"a.png", true},
		{"sub/a.png", true},
		{"/etc/passwd", false},
		{"../a.png", false},
		{"sub/../../a.png", false},
	} {
		if got := IsPathAllowed(c.path); got != c.want {
			t.Errorf("IsPathAllowed(%q)=%v; want %v", c.path, got, c.want)
		}
	}
	op := &OpMatch{Image: "a.png", Template: "b.png", Save: NewOpSave("/tmp/x.tif")}
	if err := op.CheckPaths(); err == nil {
		t.Errorf("CheckPaths with absolute save path succeeded; want error")
	}
}

func TestParallelJoinsErrors(t *testing.T) {
	errOdd := errors.New("odd")
	seen := make([]bool, 9)
	err := parallel(len(seen), 4, func(i int) error {
		seen[i] = true
		if i%2 == 1 {
			return errOdd
		}
		return nil
	})
	if !errors.Is(err, errOdd) {
		t.Errorf("err=%v; want %v", err, errOdd)
	}
	for i, s := range seen {
		if !s {
			t.Errorf("index %d not run", i)
		}
	}
}

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


// Package ops wires file loading, matching, diagnostics and saving into operators
// shared by the command line tool and the HTTP API.
package ops

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/mlnoga/tonematch/internal/match"
	"github.com/mlnoga/tonematch/internal/raster"
)

// Runs f for indices 0..n-1 with the given concurrency limit. Errors of all
// invocations are joined in index order
func parallel(n, maxThreads int, f func(i int) error) error {
	if maxThreads < 1 {
		maxThreads = 1
	}
	errs := make([]error, n)
	limiter := make(chan bool, maxThreads)
	for i := 0; i < n; i++ {
		limiter <- true
		go func(i int) {
			defer func() { <-limiter }()
			errs[i] = f(i)
		}(i)
	}
	for i := 0; i < cap(limiter); i++ { // wait for goroutines to finish
		limiter <- true
	}
	return errors.Join(errs...)
}

// Returns true if a path is considered safe, i.e. not an absolute path,
// and doesn't contain the ".." characters to change to a parent directory
func IsPathAllowed(p string) bool {
	if filepath.IsAbs(p) {
		return false // relative paths only
	}
	if strings.Contains(p, "..") {
		return false // no going outside the tree
	}
	return true
}

// Loads a single image from a file
type OpLoad struct {
	ID       int    `json:"id"`
	FileName string `json:"fileName"`
}

func NewOpLoad(id int, fileName string) *OpLoad {
	return &OpLoad{ID: id, FileName: fileName}
}

func (op *OpLoad) Apply(c *match.Context) (*raster.Image, error) {
	img, err := raster.ReadFile(op.FileName)
	if err != nil {
		return nil, err
	}
	img.ID = op.ID
	fmt.Fprintf(c.Log, "%d: Loaded %s pixel image from %s\n", img.ID, img.DimensionsToString(), img.FileName)
	return img, nil
}

// Turns filename wildcards into a list of load operators
func NewOpLoadMany(filePatterns []string, c *match.Context) ([]*OpLoad, error) {
	ops := []*OpLoad{}
	for _, pattern := range filePatterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			ops = append(ops, NewOpLoad(len(ops), m))
		}
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("no files to load from pattern %v", filePatterns)
	}
	fmt.Fprintf(c.Log, "Found %d files:\n", len(ops))
	for _, op := range ops {
		fmt.Fprintf(c.Log, "%d: %s\n", op.ID, op.FileName)
	}
	return ops, nil
}

// Saves a score map under a given filename, with pattern expansion for %d based on the image id.
// Suffix .tif or .tiff writes 16-bit TIFF, .jpg or .jpeg a heat map preview
type OpSave struct {
	Active      bool   `json:"active"`
	FilePattern string `json:"filePattern"`
}

func NewOpSave(filePattern string) *OpSave {
	return &OpSave{Active: filePattern != "", FilePattern: filePattern}
}

// Writes scores in [0,1], unratable positions included
func (op *OpSave) Apply(img *raster.Image, c *match.Context) error {
	if op == nil || !op.Active || op.FilePattern == "" {
		return nil
	}
	fileName := op.FilePattern
	if strings.Contains(fileName, "%d") {
		fileName = fmt.Sprintf(op.FilePattern, img.ID)
	}
	fnLower := strings.ToLower(fileName)

	var err error
	if strings.HasSuffix(fnLower, ".tif") || strings.HasSuffix(fnLower, ".tiff") {
		fmt.Fprintf(c.Log, "%d: Writing %s pixel 16-bit TIFF to %s\n", img.ID, img.DimensionsToString(), fileName)
		err = img.WriteTIFF16ToFile(fileName, 0, float32(match.Sentinel))
	} else if strings.HasSuffix(fnLower, ".jpeg") || strings.HasSuffix(fnLower, ".jpg") {
		fmt.Fprintf(c.Log, "%d: Writing %s pixel heat map JPEG to %s\n", img.ID, img.DimensionsToString(), fileName)
		err = img.WriteHeatMapJPGToFile(fileName, 0, float32(match.Sentinel), 95)
	} else {
		err = errors.New("unknown suffix")
	}
	if err != nil {
		return fmt.Errorf("%d: error writing to file %s: %w", img.ID, fileName, err)
	}
	return nil
}

// Loads an image, and a template with optional mask, and builds the template
func loadImageAndTemplate(imageFile, templateFile, maskFile string, c *match.Context) (*raster.Image, *match.Template, error) {
	img, err := NewOpLoad(0, imageFile).Apply(c)
	if err != nil {
		return nil, nil, err
	}
	ref, err := NewOpLoad(1, templateFile).Apply(c)
	if err != nil {
		return nil, nil, err
	}
	var mask *raster.Image
	if maskFile != "" {
		if mask, err = NewOpLoad(2, maskFile).Apply(c); err != nil {
			return nil, nil, err
		}
	}
	tpl, err := match.NewTemplateFromImage(ref, mask)
	if err != nil {
		return nil, nil, err
	}
	return img, tpl, nil
}

// Matches a template against an image, reports the best hits and saves the score map
type OpMatch struct {
	Image    string        `json:"image"`
	Template string        `json:"template"`
	Mask     string        `json:"mask"` // nonzero pixels select template samples, blank for all
	Config   *match.Config `json:"config"`
	Best     int           `json:"best"`    // number of hits to report
	MinDist  int           `json:"minDist"` // minimum hit distance per axis, 0 for half the template size
	Save     *OpSave       `json:"save"`
	Preview  *OpSave       `json:"preview"`
}

func NewOpMatchDefault() *OpMatch {
	return &OpMatch{Config: match.DefaultConfig(), Best: 5}
}

// Unmarshals an operator, taking defaults for missing keys
func (op *OpMatch) UnmarshalJSON(data []byte) error {
	type defaults OpMatch
	def := defaults(*NewOpMatchDefault())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpMatch(def)
	return nil
}

// Checks the file names against IsPathAllowed
func (op *OpMatch) CheckPaths() error {
	for _, p := range []string{op.Image, op.Template, op.Mask, savePattern(op.Save), savePattern(op.Preview)} {
		if p != "" && !IsPathAllowed(p) {
			return fmt.Errorf("path %s outside current directory tree", p)
		}
	}
	return nil
}

func savePattern(op *OpSave) string {
	if op == nil {
		return ""
	}
	return op.FilePattern
}

// Runs the match. The caller releases the returned score map
func (op *OpMatch) Apply(c *match.Context) (*match.ScoreMap, []match.Hit, error) {
	img, tpl, err := loadImageAndTemplate(op.Image, op.Template, op.Mask, c)
	if err != nil {
		return nil, nil, err
	}
	m, err := match.New(op.Config, c)
	if err != nil {
		return nil, nil, err
	}
	sm, err := m.Apply2(img, tpl)
	if err != nil {
		return nil, nil, err
	}
	sm.Scores.ID, sm.Scores.FileName = img.ID, img.FileName

	minDist := op.MinDist
	if minDist <= 0 {
		b := tpl.Bounds()
		minDist = (b.Dx() + 1) / 2
		if d := (b.Dy() + 1) / 2; d < minDist {
			minDist = d
		}
	}
	hits := sm.Best(op.Best, minDist)
	for i, h := range hits {
		fmt.Fprintf(c.Log, "%d: Hit %d at %d,%d score %.6f\n", img.ID, i, h.Pos.X, h.Pos.Y, h.Score)
	}

	if err = op.Save.Apply(sm.Scores, c); err != nil {
		sm.Release()
		return nil, nil, err
	}
	if err = op.Preview.Apply(sm.Scores, c); err != nil {
		sm.Release()
		return nil, nil, err
	}
	return sm, hits, nil
}

// Explains the fit of a template at one anchor position of an image
type OpExplain struct {
	Image    string        `json:"image"`
	Template string        `json:"template"`
	Mask     string        `json:"mask"`
	At       image.Point   `json:"at"`
	Config   *match.Config `json:"config"`
}

func (op *OpExplain) Apply(c *match.Context) (*match.Explanation, error) {
	img, tpl, err := loadImageAndTemplate(op.Image, op.Template, op.Mask, c)
	if err != nil {
		return nil, err
	}
	m, err := match.New(op.Config, c)
	if err != nil {
		return nil, err
	}
	ex, err := m.Explain(img, tpl, op.At)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(c.Log, "%d: Template %d at %d,%d: %v granularity, %d bins, outcome %v, d %.6f, penalty %.6f, score %.6f\n",
		img.ID, tpl.ID(), op.At.X, op.At.Y, ex.Granularity, ex.Bins, ex.Outcome, ex.D, ex.Penalty, ex.Score)
	return ex, nil
}

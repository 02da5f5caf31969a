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

// Package isotonic implements weighted isotonic regression with the pool adjacent violators
// algorithm (PAVA).
package isotonic

import (
	"sort"
)

// Reusable scratch memory for isotonic regression. Not safe for concurrent use
type Workspace struct {
	mean  []float64 // block means
	wt    []float64 // block weights
	size  []int     // block lengths
	order []int
	py    []float64
	pw    []float64
	out   []float64
}

// Calculates the non-decreasing sequence closest to y in weighted least squares.
// Weights must be positive, nil means unit weights. Writes to dst if it has sufficient capacity
func Fit(dst, y, w []float64) []float64 {
	var ws Workspace
	return ws.Fit(dst, y, w)
}

// Calculates the non-decreasing sequence closest to y in weighted least squares, reusing workspace memory
func (ws *Workspace) Fit(dst, y, w []float64) []float64 {
	ws.mean, ws.wt, ws.size = ws.mean[:0], ws.wt[:0], ws.size[:0]
	for i, yi := range y {
		m, wi, sz := yi, 1.0, 1
		if w != nil {
			wi = w[i]
		}
		// merge backwards while the previous block violates monotonicity
		for j := len(ws.mean) - 1; j >= 0 && ws.mean[j] > m; j-- {
			tw := ws.wt[j] + wi
			m = (ws.mean[j]*ws.wt[j] + m*wi) / tw
			wi = tw
			sz += ws.size[j]
			ws.mean, ws.wt, ws.size = ws.mean[:j], ws.wt[:j], ws.size[:j]
		}
		ws.mean, ws.wt, ws.size = append(ws.mean, m), append(ws.wt, wi), append(ws.size, sz)
	}

	dst = resize(dst, len(y))
	i := 0
	for b, m := range ws.mean {
		for end := i + ws.size[b]; i < end; i++ {
			dst[i] = m
		}
	}
	return dst
}

// Calculates the isotonic regression of y in the order given by key, and returns the result
// in the original order of y. Ties in key keep their original relative order
func (ws *Workspace) FitByKey(dst, y, w, key []float64) []float64 {
	n := len(y)
	ws.order = ws.order[:0]
	for i := 0; i < n; i++ {
		ws.order = append(ws.order, i)
	}
	sort.SliceStable(ws.order, func(a, b int) bool { return key[ws.order[a]] < key[ws.order[b]] })

	ws.py = resize(ws.py, n)
	if w != nil {
		ws.pw = resize(ws.pw, n)
	}
	for i, o := range ws.order {
		ws.py[i] = y[o]
		if w != nil {
			ws.pw[i] = w[o]
		}
	}
	pw := ws.pw
	if w == nil {
		pw = nil
	}
	ws.out = ws.Fit(ws.out, ws.py, pw)

	dst = resize(dst, n)
	for i, o := range ws.order {
		dst[o] = ws.out[i]
	}
	return dst
}

// Calculates the weighted sum of squared differences. Nil weights mean unit weights
func SSE(y, yhat, w []float64) float64 {
	sum := 0.0
	for i := range y {
		d := y[i] - yhat[i]
		if w != nil {
			sum += w[i] * d * d
		} else {
			sum += d * d
		}
	}
	return sum
}

func resize(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}

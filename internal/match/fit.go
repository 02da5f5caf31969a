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
	"fmt"

	"github.com/mlnoga/tonematch/internal/binning"
	"github.com/mlnoga/tonematch/internal/design"
	"github.com/mlnoga/tonematch/internal/isotonic"
	"github.com/mlnoga/tonematch/internal/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Full record of one window fit, for diagnostics
type Explanation struct {
	Granularity Granularity `json:"granularity"`
	Outcome     Outcome     `json:"outcome"`
	Err         error       `json:"-"`
	Bins        int         `json:"bins"`     // accepted bin count
	Borders     []float64   `json:"borders"`  // bin borders of the discretized side
	Det         float64     `json:"det"`      // determinant of the Gram matrix
	Curve       []float64   `json:"curve"`    // unconstrained tone curve coefficients
	Fitted      []float64   `json:"fitted"`   // Q c, per sample
	Isotonic    []float64   `json:"isotonic"` // isotonic projection, per bin or per sample
	SSE         float64     `json:"sse"`      // residual of the unconstrained fit
	SST         float64     `json:"sst"`      // total sum of squares of the fitted side
	Shift       float64     `json:"shift"`    // squared distance to the isotonic projection
	D           float64     `json:"d"`        // normalized residual
	Penalty     float64     `json:"penalty"`
	Score       float64     `json:"score"`
}

func variance(xs []float64) float64 {
	_, s := stats.MeanStdDev(xs)
	return s * s
}

// Discretizes x with the largest usable bin count not above start, and solves the normal
// equations for fitting y. With nil y, the inverse Gram matrix is calculated instead
func (m *Matcher) backoff(ws *workspace, x, y []float64, start int, st *Stats) error {
	maxBins := int(float64(len(x)) / m.cfg.MinMeanBinOccupancy)
	if start > maxBins {
		start = maxBins
	}
	lastErr := fmt.Errorf("%d samples support at most %d bins", len(x), maxBins)
	for bins := start; bins >= m.cfg.FloorBins; bins-- {
		err := m.tryBins(ws, x, y, bins)
		if err == nil {
			return nil
		}
		if o := Classify(err); o == OutcomeDiscretizationFailure || o == OutcomeSingularDesignMatrix {
			st.count(o)
		}
		lastErr = err
	}
	return fmt.Errorf("%w at floor of %d bins: %v", ErrUnratable, m.cfg.FloorBins, lastErr)
}

func (m *Matcher) tryBins(ws *workspace, x, y []float64, bins int) error {
	cuts, err := m.disc.Choose(x, bins)
	if err != nil {
		return err
	}
	ws.borders = m.cfg.Basis.Borders(cuts, x)
	if err = ws.assign.Assign(ws.borders, x); err != nil {
		return err
	}
	ws.bins = bins

	ws.local = resize(ws.local, len(x))
	ws.acc.Reset(m.cfg.Basis, bins)
	for i, xi := range x {
		k, r := ws.assign.Bin[i], 0.0
		if m.cfg.Basis == design.PiecewiseLinear {
			r = ws.borders.Local(xi, k)
		}
		ws.local[i] = r
		yi := 0.0
		if y != nil {
			yi = y[i]
		}
		ws.acc.Add(k, r, yi)
	}

	ws.solver.MinDet = m.cfg.MinDet
	if err = ws.solver.Factorize(ws.acc.G); err != nil {
		return err
	}
	if y == nil {
		ws.inv.Reset()
		return ws.solver.InverseTo(&ws.inv)
	}
	ws.coef.Reset()
	return ws.solver.SolveTo(&ws.coef, ws.acc.QtY)
}

// Discretizes the template values for Simple granularity, recording the back-offs taken
func (m *Matcher) newPlan(tpl *Template, bins int) *plan {
	if tpl.variance < m.cfg.Epsilon() {
		return &plan{err: fmt.Errorf("%w: template variance %g", ErrDegenerateVariance, tpl.variance)}
	}
	var ws workspace
	var st Stats
	err := m.backoff(&ws, tpl.values, nil, bins, &st)
	p := &plan{
		err:                    err,
		discretizationBackoffs: st.DiscretizationBackoffs.Load(),
		singularBackoffs:       st.SingularBackoffs.Load(),
	}
	if err != nil {
		return p
	}
	p.bins, p.borders = ws.bins, ws.borders
	p.bin = append([]int(nil), ws.assign.Bin...)
	p.local = append([]float64(nil), ws.local...)
	p.counts = append([]float64(nil), ws.countBins()...)
	p.inv = mat.DenseCopyOf(&ws.inv)
	p.det = ws.solver.Det
	return p
}

// Scores one window of intensities against the template. Returns the sentinel and the
// reason if the window cannot be rated
func (m *Matcher) fitWindow(ws *workspace, g Granularity, bins int, p *plan, tpl *Template, window []float64, st *Stats, ex *Explanation) (float64, error) {
	eps := m.cfg.Epsilon()
	if tpl.variance < eps {
		return Sentinel, fmt.Errorf("%w: template variance %g", ErrDegenerateVariance, tpl.variance)
	}
	if v := variance(window); v < eps {
		return Sentinel, fmt.Errorf("%w: window variance %g", ErrDegenerateVariance, v)
	}
	basis := m.cfg.Basis

	var x, y, local, counts []float64
	var bin []int
	var borders binning.Borders
	var det float64
	if g == Simple {
		if p.err != nil {
			return Sentinel, p.err
		}
		x, y = tpl.values, window
		ws.qty.Reset()
		ws.qty.ReuseAsVec(basis.Knots(p.bins))
		q := ws.qty.RawVector().Data
		for i, yi := range y {
			k := p.bin[i]
			lo, hi := basis.Weights(p.local[i])
			q[k] += lo * yi
			if basis == design.PiecewiseLinear {
				q[k+1] += hi * yi
			}
		}
		ws.coef.Reset()
		ws.coef.MulVec(p.inv, &ws.qty)
		bins, borders, bin, local, counts, det = p.bins, p.borders, p.bin, p.local, p.counts, p.det
	} else {
		x, y = window, tpl.values
		if err := m.backoff(ws, x, y, bins, st); err != nil {
			return Sentinel, err
		}
		bins, borders, bin, local, counts, det = ws.bins, ws.borders, ws.assign.Bin, ws.local, ws.countBins(), ws.solver.Det
	}
	coef := ws.coef.RawVector().Data

	// unconstrained residual, normalized by the variance of the fitted side
	mean := floats.Sum(y) / float64(len(y))
	ws.fitted = resize(ws.fitted, len(y))
	sse, sst := 0.0, 0.0
	for i, yi := range y {
		fi := basis.Eval(coef, bin[i], local[i])
		ws.fitted[i] = fi
		sse += (yi - fi) * (yi - fi)
		sst += (yi - mean) * (yi - mean)
	}
	d := clamp01(sse / sst)

	shift, penalty := 0.0, 0.0
	if m.cfg.BlendWeight > 0.5 {
		shift = m.shift(ws, coef, counts, x, tpl.values, window)
		if explained := sst - sse; explained > 0 {
			penalty = clamp01(shift / explained)
		}
	}
	score := Combine(d, penalty, m.cfg.BlendWeight)

	if ex != nil {
		q := design.Build(basis, borders, &binning.Assignment{Bin: bin}, x)
		var fitted mat.VecDense
		fitted.MulVec(q, mat.NewVecDense(len(coef), coef))
		ex.Bins, ex.Det = bins, det
		ex.Borders = append([]float64(nil), borders...)
		ex.Curve = append([]float64(nil), coef...)
		ex.Fitted = append([]float64(nil), fitted.RawVector().Data...)
		if m.cfg.BlendWeight > 0.5 {
			ex.Isotonic = append([]float64(nil), ws.isoOut...)
		}
		ex.SSE, ex.SST, ex.Shift, ex.D, ex.Penalty = sse, sst, shift, d, penalty
	}
	return score, nil
}

// Calculates the squared distance between the fitted tone curve and its isotonic projection
func (m *Matcher) shift(ws *workspace, coef, counts, x, tplValues, window []float64) float64 {
	if m.cfg.Basis == design.PiecewiseConstant && m.cfg.PenaltyOrderKey == OrderAuto {
		// bin means in bin order, weighted by occupancy
		ws.isoOut = ws.iso.Fit(ws.isoOut, coef, counts)
		return isotonic.SSE(coef, ws.isoOut, counts)
	}
	key := x
	switch m.cfg.PenaltyOrderKey {
	case OrderTemplate:
		key = tplValues
	case OrderWindow:
		key = window
	}
	ws.isoOut = ws.iso.FitByKey(ws.isoOut, ws.fitted, nil, key)
	return isotonic.SSE(ws.fitted, ws.isoOut, nil)
}

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
	"github.com/mlnoga/tonematch/internal/binning"
	"github.com/mlnoga/tonematch/internal/design"
	"github.com/mlnoga/tonematch/internal/isotonic"
	"github.com/mlnoga/tonematch/internal/solve"
	"gonum.org/v1/gonum/mat"
)

// Scratch memory for scoring windows, owned by one goroutine at a time and reused across windows
type workspace struct {
	assign  binning.Assignment
	acc     design.Accumulator
	solver  solve.Solver
	coef    mat.VecDense // tone curve coefficients
	qty     mat.VecDense // Q^T y for cached template discretizations
	inv     mat.Dense    // inverse Gram matrix for cached template discretizations
	borders binning.Borders
	bins    int
	local   []float64 // local coordinate of each sample within its bin
	counts  []float64 // samples per bin
	fitted  []float64 // tone curve value at each sample
	window  []float64 // gathered window intensities
	iso     isotonic.Workspace
	isoOut  []float64
}

// Discretization of a template for Simple granularity. Computed once per template and bin count,
// then shared read-only between workers
type plan struct {
	err     error
	bins    int
	borders binning.Borders
	bin     []int
	local   []float64
	counts  []float64
	inv     *mat.Dense
	det     float64

	discretizationBackoffs int64 // rejected bin counts while discretizing the template
	singularBackoffs       int64
}

// Adds the back-offs of discretizing the template to the counters of a run
func (p *plan) countBackoffs(st *Stats) {
	if st == nil {
		return
	}
	st.DiscretizationBackoffs.Add(p.discretizationBackoffs)
	st.SingularBackoffs.Add(p.singularBackoffs)
}

func resize(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}

// Fills per-bin sample counts from the current assignment
func (ws *workspace) countBins() []float64 {
	ws.counts = resize(ws.counts, ws.bins)
	for k := range ws.counts {
		ws.counts[k] = float64(ws.assign.Count(k))
	}
	return ws.counts
}

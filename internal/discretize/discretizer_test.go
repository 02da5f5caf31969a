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

package discretize

import (
	"errors"
	"math"
	"testing"

	"github.com/valyala/fastrand"
)

type chooseTestCase struct {
	Name string
	Data []float64
	Bins int
	Cuts []float64
}

func TestEqualWidth(t *testing.T) {
	tcs := []chooseTestCase{
		{"one bin", []float64{3, 1, 2}, 1, []float64{}},
		{"two bins", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, 2, []float64{5}},
		{"four bins", []float64{0, 8, 1, 7}, 4, []float64{2, 4, 6}},
	}
	for _, tc := range tcs {
		cuts, err := EqualWidth{}.Choose(tc.Data, tc.Bins)
		if err != nil {
			t.Errorf("%s: err=%v; want nil", tc.Name, err)
			continue
		}
		if len(cuts) != len(tc.Cuts) {
			t.Errorf("%s: cuts=%v; want %v", tc.Name, cuts, tc.Cuts)
			continue
		}
		for i := range cuts {
			if math.Abs(cuts[i]-tc.Cuts[i]) > 1e-12 {
				t.Errorf("%s: cuts[%d]=%g; want %g", tc.Name, i, cuts[i], tc.Cuts[i])
			}
		}
	}
}

func TestUniformDataFails(t *testing.T) {
	data := []float64{4, 4, 4, 4, 4, 4}
	for _, kind := range []Kind{KindEqualWidth, KindKMeans, KindEqualFrequency} {
		d, err := New(kind, 0)
		if err != nil {
			t.Fatalf("New(%v): %v", kind, err)
		}
		for bins := 2; bins <= 4; bins++ {
			if _, err := d.Choose(data, bins); !errors.Is(err, ErrDiscretization) {
				t.Errorf("%v bins=%d err=%v; want ErrDiscretization", kind, bins, err)
			}
		}
		if cuts, err := d.Choose(data, 1); err != nil || len(cuts) != 0 {
			t.Errorf("%v bins=1 cuts=%v err=%v; want no cuts", kind, cuts, err)
		}
	}
}

func TestTooFewSamples(t *testing.T) {
	if _, err := (EqualFrequency{}).Choose([]float64{1, 2}, 3); !errors.Is(err, ErrDiscretization) {
		t.Errorf("err=%v; want ErrDiscretization", err)
	}
}

func TestEqualFrequencyBalanced(t *testing.T) {
	rng := fastrand.RNG{}
	rng.Seed(17)
	data := make([]float64, 1000)
	for i := range data {
		x := float64(rng.Uint32n(1<<20)) / (1 << 20)
		data[i] = x * x * x // heavily skewed
	}
	bins := 5
	cuts, err := EqualFrequency{}.Choose(data, bins)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	counts := countBins(data, cuts)
	for k, c := range counts {
		if c < 180 || c > 220 {
			t.Errorf("bin %d holds %d samples; want about %d", k, c, len(data)/bins)
		}
	}
}

func TestEqualFrequencyTiesStayTogether(t *testing.T) {
	data := []float64{1, 1, 1, 1, 1, 1, 2, 3}
	cuts, err := EqualFrequency{}.Choose(data, 2)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if cuts[0] <= 1 || cuts[0] >= 2 {
		t.Errorf("cut=%g; want in (1,2)", cuts[0])
	}
}

func TestKMeansSeparatesClusters(t *testing.T) {
	data := []float64{0.9, 1.0, 1.1, 5.0, 5.2, 4.8, 10.1, 9.9, 10.0}
	cuts, err := KMeans{Iterations: DefaultKMeansIterations}.Choose(data, 3)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(cuts) != 2 || cuts[0] <= 1.1 || cuts[0] >= 4.8 || cuts[1] <= 5.2 || cuts[1] >= 9.9 {
		t.Errorf("cuts=%v; want one cut in each gap", cuts)
	}
	counts := countBins(data, cuts)
	for k, c := range counts {
		if c != 3 {
			t.Errorf("cluster %d holds %d; want 3", k, c)
		}
	}
}

func TestKMeansDeterministic(t *testing.T) {
	rng := fastrand.RNG{}
	rng.Seed(5)
	data := make([]float64, 200)
	for i := range data {
		data[i] = float64(rng.Uint32n(1000))
	}
	a, errA := KMeans{}.Choose(data, 6)
	b, errB := KMeans{}.Choose(data, 6)
	if errA != nil || errB != nil {
		t.Fatalf("errA=%v errB=%v", errA, errB)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("cuts[%d] %g != %g", i, a[i], b[i])
		}
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindEqualWidth, KindKMeans, KindEqualFrequency} {
		p, err := ParseKind(k.String())
		if err != nil || p != k {
			t.Errorf("ParseKind(%s)=%v,%v; want %v", k, p, err, k)
		}
	}
	if _, err := ParseKind("median"); err == nil {
		t.Errorf("ParseKind(median) succeeded; want error")
	}
}

// Counts samples per bin with the same rule as binning.Assign
func countBins(data, cuts []float64) []int {
	counts := make([]int, len(cuts)+1)
	for _, x := range data {
		k := 0
		for k < len(cuts) && !(x < cuts[k]) {
			k++
		}
		counts[k]++
	}
	return counts
}

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

// Picks the evaluation granularity from the contrast of template and search image.
// A template flatter than every window of the image is discretized once with few bins,
// otherwise each window is discretized on its own
func SelectGranularity(templateStdDev, minLocalStdDev float64) Granularity {
	if templateStdDev < minLocalStdDev {
		return Simple
	}
	return WtP
}

// Resolves the configured granularity into a concrete one and its requested bin count.
// An explicit penalty order key names the discretized side, since ranking the fitted
// side by its own values leaves the isotonic penalty without effect. The key therefore
// overrides the granularity where the two disagree
func (m *Matcher) resolve(templateStdDev, minLocalStdDev float64) (Granularity, int) {
	g := m.cfg.Granularity
	if g == Sym {
		g = SelectGranularity(templateStdDev, minLocalStdDev)
	}
	switch m.cfg.PenaltyOrderKey {
	case OrderTemplate:
		g = Simple
	case OrderWindow:
		g = WtP
	}
	if g == Simple && m.cfg.Granularity == Sym {
		return g, m.cfg.SymSimpleBins
	}
	return g, m.cfg.Bins
}

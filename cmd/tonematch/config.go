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


package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/mlnoga/tonematch/internal/design"
	"github.com/mlnoga/tonematch/internal/discretize"
	"github.com/mlnoga/tonematch/internal/match"
)

var configFile = flag.String("config", "", "load matcher configuration from JSON `file`; flags set explicitly take precedence")

var (
	bins        = flag.Int("bins", 8, "requested number of bins, reduced automatically where the data cannot support them")
	symBins     = flag.Int("symSimpleBins", 4, "bins used when the sym granularity selects simple")
	floorBins   = flag.Int("floorBins", 2, "lowest bin count tried before a window is unratable, 2 or 1")
	disc        = flag.String("discretizer", "equalWidth", "discretizer, one of equalWidth, kMeans, equalFrequency")
	basis       = flag.String("basis", "piecewiseLinear", "tone curve basis, one of piecewiseConstant, piecewiseLinear")
	granularity = flag.String("granularity", "sym", "discretization granularity. simple=template once, wtp=every window, sym=choose by contrast")
	blend       = flag.Float64("blend", 1, "blend weight in [0,1]; above 0.5 adds the monotonicity penalty")
	orderKey    = flag.String("order", "auto", "ranking key for the monotonicity penalty, one of auto, template, window")
	epsilon     = flag.Float64("eps", 0, "variance below which a window is unratable, 0=basis default")
	minDet      = flag.Float64("minDet", 0.01, "smallest acceptable determinant of the Gram matrix")
	kmIter      = flag.Int("kMeansIter", 28, "iteration cap for the k-means discretizer")
	occupancy   = flag.Float64("occupancy", 2.5, "minimum mean number of samples per bin")
	workers     = flag.Int("workers", 0, "number of worker threads, 0=all logical cores")
)

// Returns the matcher configuration from the optional JSON file, overridden by explicitly set flags
func loadConfig() (*match.Config, error) {
	cfg := match.DefaultConfig()
	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			return nil, err
		}
		if err = json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", *configFile, err)
		}
	}
	var err error
	flag.Visit(func(f *flag.Flag) {
		if err == nil {
			err = applyFlag(cfg, f.Name)
		}
	})
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func applyFlag(cfg *match.Config, name string) (err error) {
	switch name {
	case "bins":
		cfg.Bins = *bins
	case "symSimpleBins":
		cfg.SymSimpleBins = *symBins
	case "floorBins":
		cfg.FloorBins = *floorBins
	case "discretizer":
		cfg.Discretizer, err = discretize.ParseKind(*disc)
	case "basis":
		cfg.Basis, err = design.ParseBasis(*basis)
	case "granularity":
		cfg.Granularity, err = match.ParseGranularity(*granularity)
	case "blend":
		cfg.BlendWeight = *blend
	case "order":
		cfg.PenaltyOrderKey, err = match.ParseOrderKey(*orderKey)
	case "eps":
		cfg.VarianceEpsilon = *epsilon
	case "minDet":
		cfg.MinDet = *minDet
	case "kMeansIter":
		cfg.KMeansIterations = *kmIter
	case "occupancy":
		cfg.MinMeanBinOccupancy = *occupancy
	case "workers":
		cfg.Workers = *workers
	}
	return err
}

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
	"image"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/klauspost/cpuid"
	nl "github.com/mlnoga/tonematch/internal"
	"github.com/mlnoga/tonematch/internal/match"
	"github.com/mlnoga/tonematch/internal/ops"
	"github.com/mlnoga/tonematch/internal/rest"
	"github.com/mlnoga/tonematch/internal/stats"
	"github.com/pbnjay/memory"
)

const version = "0.1.0"

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
	memprofile = flag.String("memprofile", "", "write memory profile to `file`")
)

var (
	out  = flag.String("out", "scores.tif", "save 16-bit score map to `file`, blank for none")
	jpg  = flag.String("jpg", "%auto", "save heat map preview of scores as JPEG to `file`. `%auto` replaces suffix of output file with .jpg")
	log  = flag.String("log", "%auto", "save log output to `file`. `%auto` replaces suffix of output file with .log")
	mask = flag.String("mask", "", "use only template pixels where the mask `file` is nonzero")
)

var (
	best    = flag.Int("best", 5, "report the k best matching positions")
	minDist = flag.Int("minDist", 0, "minimum distance between reported positions in each axis, 0=half the template size")
	atX     = flag.Int("x", 0, "anchor x coordinate for eval")
	atY     = flag.Int("y", 0, "anchor y coordinate for eval")
)

var (
	addr   = flag.String("addr", ":8080", "listen address for serve")
	chroot = flag.String("chroot", "", "chroot to `dir` before serving (requires root)")
	setuid = flag.Int("setuid", -1, "change to user `id` before serving, -1=keep")
)

func main() {
	logWriter := nl.LogWriter()
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(logWriter, `Tonematch Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (match|eval|stats|serve|legal|version) (img.png ... )

Commands:
  match   Match template against image: match image template
  eval    Explain the fit at one position: eval -x X -y Y image template
  stats   Show image statistics
  serve   Serve the HTTP API
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Initialize logging to file in addition to stdout, if selected
	if *log == "%auto" {
		if *out != "" {
			*log = strings.TrimSuffix(*out, filepath.Ext(*out)) + ".log"
		} else {
			*log = ""
		}
	}
	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}
	if *log != "" && (args[0] == "match" || args[0] == "eval" || args[0] == "stats") {
		if err := nl.LogAlsoToFile(*log); err != nil {
			nl.LogFatalf("Unable to open logfile '%s': %s\n", *log, err.Error())
		}
	}

	// Also auto-select JPEG output target
	if *jpg == "%auto" {
		if *out != "" {
			*jpg = strings.TrimSuffix(*out, filepath.Ext(*out)) + ".jpg"
		} else {
			*jpg = ""
		}
	}

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			nl.LogFatal("Could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			nl.LogFatal("Could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	var err error
	switch args[0] {
	case "match":
		err = cmdMatch(args[1:], logWriter)

	case "eval":
		err = cmdEval(args[1:], logWriter)

	case "stats":
		err = cmdStats(args[1:], logWriter)

	case "serve":
		if err = rest.MakeSandbox(*chroot, *setuid, logWriter); err == nil {
			fmt.Fprintf(logWriter, "Serving on %s\n", *addr)
			err = rest.Serve(*addr)
		}

	case "legal":
		cmdLegal()

	case "version":
		fmt.Fprintf(logWriter, "Version %s\n", version)
		fmt.Fprintf(logWriter, "%s, %d physical / %d logical cores, %d MiB memory\n",
			cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores, memory.TotalMemory()/1024/1024)

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	fmt.Fprintf(logWriter, "\nDone after %v\n", time.Since(start))

	// Store memory profile if flagged
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			nl.LogFatal("Could not create memory profile: ", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			nl.LogFatal("Could not write allocation profile: ", err)
		}
	}

	if err != nil {
		nl.LogFatalf("Error: %s\n", err.Error())
	}
	nl.LogClose()
}

// Matches a template against an image, saving the score map and reporting the best positions
func cmdMatch(args []string, logWriter io.Writer) error {
	if len(args) != 2 {
		return fmt.Errorf("match needs an image and a template, got %d arguments", len(args))
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	op := ops.NewOpMatchDefault()
	op.Image, op.Template, op.Mask, op.Config = args[0], args[1], *mask, cfg
	op.Best, op.MinDist = *best, *minDist
	op.Save, op.Preview = ops.NewOpSave(*out), ops.NewOpSave(*jpg)
	if err = printSettings(logWriter, op); err != nil {
		return err
	}

	sm, _, err := op.Apply(match.NewContext(logWriter))
	if err != nil {
		return err
	}
	defer sm.Release()
	fmt.Fprintf(logWriter, "%d: Scores %s\n", sm.Scores.ID, sm.Scores.DimensionsToString())
	return nil
}

// Explains the fit of a template at one position of an image
func cmdEval(args []string, logWriter io.Writer) error {
	if len(args) != 2 {
		return fmt.Errorf("eval needs an image and a template, got %d arguments", len(args))
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	op := &ops.OpExplain{Image: args[0], Template: args[1], Mask: *mask, At: image.Pt(*atX, *atY), Config: cfg}
	ex, err := op.Apply(match.NewContext(logWriter))
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "Bins %d Det %.6g Borders %.6g\n", ex.Bins, ex.Det, ex.Borders)
	fmt.Fprintf(logWriter, "Curve    %.6g\n", ex.Curve)
	if ex.Isotonic != nil {
		fmt.Fprintf(logWriter, "Isotonic %.6g\n", ex.Isotonic)
	}
	fmt.Fprintf(logWriter, "SSE %.6g SST %.6g Shift %.6g\n", ex.SSE, ex.SST, ex.Shift)
	if ex.Err != nil {
		fmt.Fprintf(logWriter, "Unratable: %s\n", ex.Err.Error())
	}
	return nil
}

// Shows statistics of the given images, followed by a CSV table
func cmdStats(args []string, logWriter io.Writer) error {
	res, err := ops.NewOpStats(args).Apply(match.NewContext(logWriter))
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "\nID,FileName,%s,Mode,Spread\n", (&stats.BasicStats{}).ToCSVHeader())
	for _, s := range res {
		fmt.Fprintf(logWriter, "%d,%s,%s,%.6g,%.6g\n", s.ID, s.FileName, s.Basic.ToCSVLine(), s.Mode, s.Spread)
	}
	return nil
}

func printSettings(logWriter io.Writer, settings interface{}) error {
	m, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "Settings:\n%s\n", string(m))
	return nil
}

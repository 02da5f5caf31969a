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


// Package rest exposes matching over an HTTP API.
package rest

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
	"math"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/mlnoga/tonematch/internal/match"
	"github.com/mlnoga/tonematch/internal/ops"
	"github.com/mlnoga/tonematch/internal/pool"
)

func NewRouter() *gin.Engine {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/evaluate", postEvaluate)
			v1.POST("/match", postMatch)
			v1.POST("/stats", postStats)
		}
	}
	return r
}

// Listens and serves on the given address, e.g. ":8080"
func Serve(addr string) error {
	return NewRouter().Run(addr)
}

func getPing(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "pong",
	})
}

func printArgs(logWriter io.Writer, prefix, suffix string, args interface{}) error {
	m, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "%s%s%s", prefix, string(m), suffix)
	return nil
}

// Serializes writes from parallel operators
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// Starts a plain text streaming response
func startStream(c *gin.Context) io.Writer {
	c.Writer.Header().Set("Content-Type", "text/plain")
	c.Writer.WriteHeader(http.StatusOK)
	return &lockedWriter{w: c.Writer}
}

type sampleArgs struct {
	X     int     `json:"x"`
	Y     int     `json:"y"`
	Value float64 `json:"value"`
}

type postEvaluateArgs struct {
	Samples []sampleArgs  `json:"samples" binding:"required"`
	Window  []float64     `json:"window" binding:"required"`
	Config  *match.Config `json:"config"`
}

// Explanation with infinite borders replaced by null, as JSON has no infinities
type explanationJSON struct {
	*match.Explanation
	Borders []*float64 `json:"borders"`
}

func finite(xs []float64) []*float64 {
	res := make([]*float64, len(xs))
	for i := range xs {
		if !math.IsInf(xs[i], 0) && !math.IsNaN(xs[i]) {
			res[i] = &xs[i]
		}
	}
	return res
}

func postEvaluate(c *gin.Context) {
	var args postEvaluateArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	samples := make([]match.Sample, len(args.Samples))
	for i, s := range args.Samples {
		samples[i] = match.Sample{Offset: image.Pt(s.X, s.Y), Value: s.Value}
	}
	tpl, err := match.NewTemplate(samples, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := match.New(args.Config, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ex, err := m.ExplainWindow(tpl, args.Window)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, explanationJSON{ex, finite(ex.Borders)})
}

func postMatch(c *gin.Context) {
	args := ops.NewOpMatchDefault()
	if err := c.ShouldBindJSON(args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := args.CheckPaths(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logWriter := startStream(c)
	if err := printArgs(logWriter, "Arguments:\n", "\n", args); err != nil {
		fmt.Fprintf(logWriter, "Error printing arguments: %s\n", err.Error())
		return
	}

	sm, _, err := args.Apply(match.NewContext(logWriter))
	if err != nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
	} else {
		sm.Release()
		pool.ClearPools()
	}
	c.Writer.Flush()
}

func postStats(c *gin.Context) {
	args := ops.NewOpStats(nil)
	if err := c.ShouldBindJSON(args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, p := range args.FilePatterns {
		if !ops.IsPathAllowed(p) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("path %s outside current directory tree", p)})
			return
		}
	}

	logWriter := startStream(c)
	if err := printArgs(logWriter, "Arguments:\n", "\n", args); err != nil {
		fmt.Fprintf(logWriter, "Error printing arguments: %s\n", err.Error())
		return
	}

	if _, err := args.Apply(match.NewContext(logWriter)); err != nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
	}
	c.Writer.Flush()
}

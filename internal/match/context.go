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
	"io"
	"runtime"

	"github.com/klauspost/cpuid"
	"github.com/pbnjay/memory"
)

// An execution context for matchers
type Context struct {
	Log        io.Writer
	MemoryMB   int // memory.TotalMemory()/1024/1024, 0 if unknown
	MaxThreads int
}

func NewContext(log io.Writer) *Context {
	threads := cpuid.CPU.LogicalCores
	if procs := runtime.GOMAXPROCS(0); threads < 1 || threads > procs {
		threads = procs
	}
	return &Context{
		Log:        log,
		MemoryMB:   int(memory.TotalMemory() / 1024 / 1024),
		MaxThreads: threads,
	}
}

// Returns the memory budget for score rasters and scratch, in bytes. 0 means unlimited
func (c *Context) budget() int64 {
	return int64(c.MemoryMB) * 1024 * 1024 * 7 / 10
}

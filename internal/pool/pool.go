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

// Package pool recycles constant sized slices to reduce memory allocation overhead.
package pool

import (
	"runtime"
	"sync"
)

// Pools of constant sized slices of a given element type, keyed by size
type Pool[T any] struct {
	mu sync.RWMutex
	m  map[int]*sync.Pool
}

// Creates an empty pool
func New[T any]() *Pool[T] {
	return &Pool[T]{m: make(map[int]*sync.Pool)}
}

// Shared pools for image rasters and per-worker scratch
var (
	Float32 = New[float32]()
	Float64 = New[float64]()
)

// Returns the pool for slices of the given size
func (p *Pool[T]) sized(size int) *sync.Pool {
	p.mu.RLock()
	pool := p.m[size]
	p.mu.RUnlock()
	if pool != nil {
		return pool
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if pool = p.m[size]; pool == nil {
		pool = &sync.Pool{
			New: func() interface{} {
				return make([]T, size)
			},
		}
		p.m[size] = pool
	}
	return pool
}

// Retrieves a slice of given size from the pool. Contents are undefined
func (p *Pool[T]) Get(size int) []T {
	return p.sized(size).Get().([]T)
}

// Returns a slice to the pool
func (p *Pool[T]) Put(arr []T) {
	p.sized(cap(arr)).Put(arr[:cap(arr)])
}

// Drops all pooled slices
func (p *Pool[T]) Clear() {
	p.mu.Lock()
	p.m = make(map[int]*sync.Pool)
	p.mu.Unlock()
}

// Clears all shared pools and triggers garbage collection
func ClearPools() {
	Float32.Clear()
	Float64.Clear()
	runtime.GC()
}

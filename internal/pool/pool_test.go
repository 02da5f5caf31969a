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

package pool

import (
	"sync"
	"testing"
)

func TestGetPut(t *testing.T) {
	p := New[float64]()
	a := p.Get(16)
	if len(a) != 16 {
		t.Fatalf("len=%d; want 16", len(a))
	}
	p.Put(a[:3])
	b := p.Get(16)
	if len(b) != 16 {
		t.Errorf("len after reuse=%d; want 16", len(b))
	}
	if c := p.Get(5); len(c) != 5 {
		t.Errorf("len=%d; want 5", len(c))
	}
}

func TestConcurrentGet(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s := Float32.Get(n + j%3)
				if len(s) != n+j%3 {
					t.Errorf("len=%d; want %d", len(s), n+j%3)
				}
				Float32.Put(s)
			}
		}(i + 1)
	}
	wg.Wait()
	ClearPools()
}

// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package workerpool

import (
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/gomlx/exceptions"

	"github.com/kylasa/composable-kernel/tile"
)

func TestNew(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	if pool.NumWorkers() != 4 {
		t.Errorf("NumWorkers() = %d, want 4", pool.NumWorkers())
	}
}

func TestNewDefault(t *testing.T) {
	pool := New(0)
	defer pool.Close()

	if pool.NumWorkers() != runtime.GOMAXPROCS(0) {
		t.Errorf("NumWorkers() = %d, want %d", pool.NumWorkers(), runtime.GOMAXPROCS(0))
	}
}

func TestParallelFor(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	for _, n := range []int{0, 1, 3, 100, 101} {
		results := make([]int, n)
		pool.ParallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				results[i] += i * 2
			}
		})
		for i := range n {
			if results[i] != i*2 {
				t.Errorf("n=%d: results[%d] = %d, want %d", n, i, results[i], i*2)
			}
		}
	}
}

func TestParallelForAtomic(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	n := 100
	var calls atomic.Int32
	results := make([]int, n)
	pool.ParallelForAtomic(n, func(i int) {
		results[i] = i * 2
		calls.Add(1)
	})
	if calls.Load() != int32(n) {
		t.Errorf("fn called %d times, want %d", calls.Load(), n)
	}
	for i := range n {
		if results[i] != i*2 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i*2)
		}
	}
}

func TestRunGridVisitsEveryGroupOnce(t *testing.T) {
	pool := New(3)
	defer pool.Close()

	grid := tile.Dim3{M: 4, N: 3, K: 2}
	var visits [4][3][2]atomic.Int32
	pool.RunGrid(grid, func(x, y, z int) {
		visits[x][y][z].Add(1)
	})
	for x := range grid.M {
		for y := range grid.N {
			for z := range grid.K {
				if got := visits[x][y][z].Load(); got != 1 {
					t.Errorf("group (%d,%d,%d) ran %d times", x, y, z, got)
				}
			}
		}
	}
}

func TestRunGridReraisesPanic(t *testing.T) {
	pool := New(2)
	defer pool.Close()

	e := exceptions.Try(func() {
		pool.RunGrid(tile.Dim3{M: 8, N: 1, K: 1}, func(x, _, _ int) {
			if x == 5 {
				panic("group 5")
			}
		})
	})
	if e != "group 5" {
		t.Errorf("recovered %v, want the group's panic", e)
	}
}

func TestCloseMultipleTimes(t *testing.T) {
	pool := New(2)
	pool.Close()
	pool.Close()
}

func TestClosedPoolFallback(t *testing.T) {
	pool := New(4)
	pool.Close()

	n := 10
	results := make([]int, n)
	pool.ParallelForAtomic(n, func(i int) {
		results[i] = i
	})
	for i := range n {
		if results[i] != i {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i)
		}
	}
}

func BenchmarkRunGrid(b *testing.B) {
	pool := New(runtime.GOMAXPROCS(0))
	defer pool.Close()
	grid := tile.Dim3{M: 16, N: 16, K: 1}
	var sink atomic.Int64

	b.ResetTimer()
	for range b.N {
		pool.RunGrid(grid, func(x, y, _ int) {
			sink.Add(int64(x * y))
		})
	}
}

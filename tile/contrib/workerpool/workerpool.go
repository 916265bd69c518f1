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

// Package workerpool runs the groups of a launch grid on a fixed set of
// persistent goroutines.
//
// A Pool is created once and shared by every launch, so dispatching a grid
// costs one channel send per worker rather than one goroutine per group:
//
//	pool := workerpool.New(runtime.GOMAXPROCS(0))
//	defer pool.Close()
//
//	for _, args := range launches {
//	    stats, err := kernel.Launch(pool, args)
//	    ...
//	}
//
// Groups are claimed in no particular order and run concurrently; nothing
// orders one group after another.
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gomlx/exceptions"

	"github.com/kylasa/composable-kernel/tile"
)

// Pool is a persistent worker pool.
type Pool struct {
	numWorkers int
	jobs       chan job
	closeOnce  sync.Once
	closed     atomic.Bool
}

type job struct {
	fn   func()
	done *sync.WaitGroup
}

// New starts a pool of numWorkers goroutines; numWorkers <= 0 means
// GOMAXPROCS.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		numWorkers: numWorkers,
		jobs:       make(chan job, numWorkers*2),
	}
	for range numWorkers {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for j := range p.jobs {
		j.fn()
		j.done.Done()
	}
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close stops the workers once pending work completes. Calling Close more
// than once is safe; a closed pool runs work on the calling goroutine.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.jobs)
	})
}

// spread hands body to `workers` workers and waits for them. It falls back
// to the calling goroutine when the pool is closed or one worker suffices.
func (p *Pool) spread(workers int, body func()) {
	if workers <= 1 || p.closed.Load() {
		body()
		return
	}
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		p.jobs <- job{fn: body, done: &wg}
	}
	wg.Wait()
}

// ParallelFor calls fn on contiguous chunks covering [0, n), one chunk per
// worker, and waits for all of them.
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	workers := min(p.numWorkers, n)
	chunk := (n + workers - 1) / workers
	var next atomic.Int32
	p.spread(workers, func() {
		for {
			start := int(next.Add(1)-1) * chunk
			if start >= n {
				return
			}
			fn(start, min(start+chunk, n))
		}
	})
}

// ParallelForAtomic calls fn(i) for every i in [0, n). Workers claim indices
// one at a time, which balances uneven work.
func (p *Pool) ParallelForAtomic(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	var next atomic.Int32
	p.spread(min(p.numWorkers, n), func() {
		for {
			i := int(next.Add(1)) - 1
			if i >= n {
				return
			}
			fn(i)
		}
	})
}

// RunGrid calls fn once for every group of grid and waits for all of them.
//
// If a group panics, the remaining unclaimed groups are skipped and the first
// panic is re-raised on the calling goroutine. Groups already running finish.
func (p *Pool) RunGrid(grid tile.Dim3, fn func(x, y, z int)) {
	n := grid.M * grid.N * grid.K
	if n <= 0 {
		return
	}
	var (
		failed    atomic.Bool
		faultOnce sync.Once
		fault     any
	)
	p.ParallelForAtomic(n, func(i int) {
		if failed.Load() {
			return
		}
		x, y, z := i%grid.M, (i/grid.M)%grid.N, i/(grid.M*grid.N)
		if e := exceptions.Try(func() { fn(x, y, z) }); e != nil {
			faultOnce.Do(func() { fault = e })
			failed.Store(true)
		}
	})
	if fault != nil {
		panic(fault)
	}
}

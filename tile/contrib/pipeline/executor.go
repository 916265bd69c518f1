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

package pipeline

import (
	"errors"
	"fmt"

	"github.com/gomlx/exceptions"
	"golang.org/x/sync/errgroup"

	"github.com/kylasa/composable-kernel/tile"
)

// LaneAcc is the float32 micro tile one lane accumulates into, row-major.
type LaneAcc struct {
	Lane    int
	Origin  tile.Coord // position of the micro tile inside the block tile
	Lengths tile.Coord
	Values  []float32
}

// At returns element (i, j) of the micro tile.
func (a *LaneAcc) At(i, j int) float32 { return a.Values[i*a.Lengths[1]+j] }

// Row returns row i of the micro tile.
func (a *LaneAcc) Row(i int) []float32 {
	n := a.Lengths[1]
	return a.Values[i*n : (i+1)*n]
}

// Zero clears the micro tile.
func (a *LaneAcc) Zero() { clear(a.Values) }

// AccTile is the accumulator of one group: one micro tile per lane, tiling
// the block's M×N extent.
type AccTile struct {
	Shape tile.GemmShape
	Lanes []*LaneAcc
}

// NewAccTile allocates a zeroed accumulator for shape.
func NewAccTile(shape tile.GemmShape) *AccTile {
	micro := tile.Coord{shape.Micro.M, shape.Micro.N}
	t := &AccTile{Shape: shape, Lanes: make([]*LaneAcc, shape.LanesPerGroup())}
	for l := range t.Lanes {
		t.Lanes[l] = &LaneAcc{Lane: l, Origin: shape.MicroOrigin(l), Lengths: micro, Values: make([]float32, micro.Size())}
	}
	return t
}

// At returns the accumulated value at block coordinate c.
func (t *AccTile) At(c tile.Coord) float32 {
	mi, ni := c[0]/t.Shape.Micro.M, c[1]/t.Shape.Micro.N
	acc := t.Lanes[mi*t.Shape.Lanes.N+ni]
	return acc.At(c[0]-acc.Origin[0], c[1]-acc.Origin[1])
}

// MultiplyAccumulator is the inner block GEMM. Each lane calls it once per
// K tile with the group's scratch windows (a: MTile×KTile, b: NTile×KTile,
// both K-contiguous) and adds its micro tile of a·bᵀ into acc.
type MultiplyAccumulator[A, B tile.Element] interface {
	AccumulatorShape() tile.Coord
	MultiplyAccumulate(acc *LaneAcc, a *tile.Window[A], b *tile.Window[B])
}

// RunStats counts what one lane did during Run. Every lane runs the same
// program, so the counts are those of lane 0.
//
// SteadySteps counts every compute step followed by a scratch refill, in the
// hot loop and in the tail alike, so it is n-1 for every variant. A run
// without a hot loop (HotTrips == 0) still reports n-1 of them: its tail
// refills scratch between all but the last compute step.
type RunStats struct {
	Variant     Variant
	HotTrips    int
	SteadySteps int // compute steps followed by a scratch refill, hot or tail
	DrainSteps  int // compute steps with no memory movement after them
	MACs        int
	Reads       int // bulk reads per operand
	Commits     int // scratch writes per operand
	Barriers    int
}

// Options configures a Pipeline.
type Options[A, B tile.Element] struct {
	Shape tile.GemmShape
	Depth int
	MAC   MultiplyAccumulator[A, B]

	// AElementFunc and BElementFunc are applied to every operand element on
	// its way into scratch. Nil means identity.
	AElementFunc func(A) A
	BElementFunc func(B) B
}

// Pipeline runs the K loop of one group for a fixed tile shape and depth.
// It is safe to call Run from several goroutines with distinct arenas.
type Pipeline[A, B tile.Element] struct {
	shape tile.GemmShape
	depth int
	mac   MultiplyAccumulator[A, B]
	aFunc func(A) A
	bFunc func(B) B
	specs *Specializations
	dist  tile.Distribution
}

// New validates opts and builds the specialization table for opts.Depth.
func New[A, B tile.Element](opts Options[A, B]) (*Pipeline[A, B], error) {
	if err := opts.Shape.Validate(); err != nil {
		return nil, err
	}
	specs, err := NewSpecializations(opts.Depth)
	if err != nil {
		return nil, err
	}
	if opts.MAC == nil {
		return nil, errors.New("pipeline: a MultiplyAccumulator is required")
	}
	if got, want := opts.MAC.AccumulatorShape(), (tile.Coord{opts.Shape.Micro.M, opts.Shape.Micro.N}); got != want {
		return nil, fmt.Errorf("%w: multiply-accumulate works on %s micro tiles, shape needs %s",
			tile.ErrInvalidShape, got, want)
	}
	return &Pipeline[A, B]{
		shape: opts.Shape,
		depth: opts.Depth,
		mac:   opts.MAC,
		aFunc: opts.AElementFunc,
		bFunc: opts.BElementFunc,
		specs: specs,
		dist:  tile.Distribution{Lanes: opts.Shape.LanesPerGroup()},
	}, nil
}

// ScratchBytes returns the arena size a group needs for shape: the A tile
// rounded up to the scratch alignment, followed by the B tile.
func ScratchBytes[A, B tile.Element](shape tile.GemmShape) int {
	aBytes := tile.SizeOf[A]() * shape.Block.M * shape.Block.K
	bBytes := tile.SizeOf[B]() * shape.Block.N * shape.Block.K
	return tile.AlignUp(aBytes, tile.ScratchAlignment) + bBytes
}

// ScratchBytes returns the arena size Run needs.
func (p *Pipeline[A, B]) ScratchBytes() int { return ScratchBytes[A, B](p.shape) }

// Depth returns the prefetch depth.
func (p *Pipeline[A, B]) Depth() int { return p.depth }

// Shape returns the tile shape.
func (p *Pipeline[A, B]) Shape() tile.GemmShape { return p.shape }

// Distribution returns the lane distribution of operand windows.
func (p *Pipeline[A, B]) Distribution() tile.Distribution { return p.dist }

// Specializations returns the table of supported variants.
func (p *Pipeline[A, B]) Specializations() *Specializations { return p.specs }

// Select classifies a loop of n tiles and returns its scheduler.
func (p *Pipeline[A, B]) Select(n int) (State, *Scheduler, error) { return p.specs.Select(n) }

// laneFault carries the panic of a failed lane out of the errgroup.
type laneFault struct {
	lane  int
	value any
}

func (f *laneFault) Error() string { return fmt.Sprintf("lane %d panicked: %v", f.lane, f.value) }

// Run executes the K loop of n tiles with scheduler s.
//
// aWin (MTile×KTile) and bWin (NTile×KTile) are bulk windows positioned at the
// group's first K tile; Run moves private copies of them, the caller's
// windows are left untouched. arena must hold at least ScratchBytes bytes; it
// is carved afresh on every call.
//
// Errors are returned before any data moves. A panic in any lane is re-raised
// here once every lane has stopped.
func (p *Pipeline[A, B]) Run(s *Scheduler, aWin *tile.Window[A], bWin *tile.Window[B], n int, arena *tile.ScratchArena) (*AccTile, RunStats, error) {
	if s.Depth() != p.depth {
		return nil, RunStats{}, &UnsupportedTailError{Depth: p.depth, IterationCount: n, Variant: s.Variant(),
			Reason: fmt.Sprintf("scheduler was built for depth %d", s.Depth())}
	}
	plan, err := s.Plan(n)
	if err != nil {
		return nil, RunStats{}, err
	}
	block := p.shape.Block
	aLen, bLen := tile.Coord{block.M, block.K}, tile.Coord{block.N, block.K}
	if aWin.Lengths() != aLen || bWin.Lengths() != bLen {
		return nil, RunStats{}, fmt.Errorf("%w: operand windows %s and %s, want %s and %s",
			tile.ErrWindowShape, aWin.Lengths(), bWin.Lengths(), aLen, bLen)
	}
	if aWin.Distribution() != p.dist || bWin.Distribution() != p.dist {
		return nil, RunStats{}, fmt.Errorf("%w: operand windows must be distributed over %d lanes",
			tile.ErrWindowShape, p.dist.Lanes)
	}
	if arena.Size() < p.ScratchBytes() {
		exceptions.Panicf("pipeline: scratch arena holds %d bytes, need %d", arena.Size(), p.ScratchBytes())
	}

	arena.Reset()
	aScratch := scratchWindow(tile.ScratchSlice[A](arena, aLen.Size()), aLen, p.dist)
	bScratch := scratchWindow(tile.ScratchSlice[B](arena, bLen.Size()), bLen, p.dist)

	acc := NewAccTile(p.shape)
	barrier := NewBarrier(p.dist.Lanes)
	laneStats := make([]RunStats, p.dist.Lanes)
	var g errgroup.Group
	for lane := range p.dist.Lanes {
		g.Go(func() error {
			e := exceptions.Try(func() {
				laneStats[lane] = p.runLane(lane, plan, aWin.Clone(), bWin.Clone(), aScratch, bScratch, acc.Lanes[lane], barrier)
			})
			if e == nil {
				return nil
			}
			if err, ok := e.(error); ok && errors.Is(err, errBarrierBroken) {
				return nil
			}
			barrier.Break()
			return &laneFault{lane: lane, value: e}
		})
	}
	if err := g.Wait(); err != nil {
		panic(err.(*laneFault).value)
	}
	return acc, laneStats[0], nil
}

func scratchWindow[T tile.Element](data []T, lengths tile.Coord, dist tile.Distribution) *tile.Window[T] {
	view, err := tile.NewTensorView(data, lengths, tile.RowMajor, tile.Scratch)
	if err != nil {
		exceptions.Panicf("pipeline: scratch view: %v", err)
	}
	w, err := tile.NewWindow(view, lengths, tile.Coord{}, dist)
	if err != nil {
		exceptions.Panicf("pipeline: scratch window: %v", err)
	}
	return w
}

// runLane is the program every lane of a group runs.
func (p *Pipeline[A, B]) runLane(lane int, plan Plan, aw *tile.Window[A], bw *tile.Window[B],
	aScratch *tile.Window[A], bScratch *tile.Window[B], acc *LaneAcc, barrier *Barrier) RunStats {
	d, n := p.depth, plan.IterationCount
	kStep := tile.Coord{0, p.shape.Block.K}
	aStage := newLaneStager(aw, aScratch, p.dist, p.aFunc)
	bStage := newLaneStager(bw, bScratch, p.dist, p.bFunc)
	ring := NewStagingRing[A, B](d, aStage.size, bStage.size)
	stats := RunStats{Variant: plan.Variant(), HotTrips: plan.HotTrips}

	read := func(i int) {
		a, b := ring.Issue(i%d, i)
		aw.LoadLane(lane, a)
		bw.LoadLane(lane, b)
		aw.Move(kStep)
		bw.Move(kStep)
		stats.Reads++
	}
	commit := func(i int) {
		a, b := ring.Commit(i%d, i)
		aStage.commit(lane, a)
		bStage.commit(lane, b)
		stats.Commits++
	}
	wait := func() {
		barrier.Wait()
		stats.Barriers++
	}
	mac := func() {
		p.mac.MultiplyAccumulate(acc, aScratch, bScratch)
		stats.MACs++
	}

	// Prologue.
	for i := range min(n, d) {
		read(i)
	}
	commit(0)
	acc.Zero()

	// Hot loop: slot i%d is free again once tile i is in scratch, so it takes
	// tile i+d, as long as there is one.
	hotSteps := plan.HotSteps()
	for trip := range plan.HotTrips {
		for j := range d {
			i := trip*d + j
			if i+d < n {
				read(i + d)
			}
			wait()
			mac()
			wait()
			commit(i + 1)
			stats.SteadySteps++
		}
	}

	// Tail.
	tail := plan.TailSteps()
	for t := range tail {
		wait()
		mac()
		if t == tail-1 {
			stats.DrainSteps++
			break
		}
		wait()
		commit(hotSteps + t + 1)
		stats.SteadySteps++
	}
	return stats
}

// laneStager writes one lane's staged operand band into scratch.
type laneStager[T tile.Element] struct {
	dst        *tile.Window[T]
	from       tile.Order
	fn         func(T) T
	band, cols int
	size       int
	tmp        []T // reshuffle buffer; nil when no reshuffle is needed
}

func newLaneStager[T tile.Element](src, dst *tile.Window[T], dist tile.Distribution, fn func(T) T) *laneStager[T] {
	s := &laneStager[T]{
		dst:  dst,
		from: src.Order(),
		fn:   fn,
		band: dist.BandRows(src.Lengths()),
		cols: src.Lengths()[1],
		size: dist.LaneSize(src.Lengths()),
	}
	if s.from != dst.Order() {
		s.tmp = make([]T, s.size)
	}
	return s
}

func (s *laneStager[T]) commit(lane int, staged []T) {
	if s.fn != nil {
		for i, v := range staged {
			staged[i] = s.fn(v)
		}
	}
	if s.tmp == nil {
		s.dst.StoreLane(lane, staged, s.from)
		return
	}
	tile.ShuffleLane(s.tmp, staged, s.band, s.cols, s.from)
	s.dst.StoreLane(lane, s.tmp, s.from.Transposed())
}

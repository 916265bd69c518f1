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

package gemm

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"

	"github.com/kylasa/composable-kernel/tile"
	"github.com/kylasa/composable-kernel/tile/contrib/pipeline"
	"github.com/kylasa/composable-kernel/tile/contrib/workerpool"
)

// KernelOptions plugs collaborators into a kernel. Zero values select the
// defaults: BlockGemm, Default2DEpilogue and identity element functions.
type KernelOptions[A, B tile.Element] struct {
	MAC          pipeline.MultiplyAccumulator[A, B]
	Epilogue     Epilogue
	AElementFunc func(A) A
	BElementFunc func(B) B
}

// Kernel is a GEMM kernel for one configuration and operand types.
// It is safe for concurrent use.
type Kernel[A, B tile.Element] struct {
	cfg      Config
	part     TilePartitioner
	pipe     *pipeline.Pipeline[A, B]
	epilogue Epilogue
	arenas   sync.Pool // of *tile.ScratchArena
}

// NewKernel validates cfg and builds the kernel.
func NewKernel[A, B tile.Element](cfg Config, opts KernelOptions[A, B]) (*Kernel[A, B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mac := opts.MAC
	if mac == nil {
		mac = NewBlockGemm[A, B](cfg.Shape)
	}
	pipe, err := pipeline.New(pipeline.Options[A, B]{
		Shape:        cfg.Shape,
		Depth:        cfg.Depth,
		MAC:          mac,
		AElementFunc: opts.AElementFunc,
		BElementFunc: opts.BElementFunc,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedConfiguration, err)
	}
	k := &Kernel[A, B]{
		cfg:      cfg,
		part:     NewTilePartitioner(cfg.Shape),
		pipe:     pipe,
		epilogue: opts.Epilogue,
	}
	if k.epilogue == nil {
		k.epilogue = Default2DEpilogue{}
	}
	size := pipe.ScratchBytes()
	k.arenas.New = func() any { return tile.NewScratchArena(size) }
	return k, nil
}

// Config returns the kernel configuration.
func (k *Kernel[A, B]) Config() Config { return k.cfg }

// Partitioner returns the kernel's tile partitioner.
func (k *Kernel[A, B]) Partitioner() TilePartitioner { return k.part }

// Specializations returns the pipeline variants the kernel was built with.
func (k *Kernel[A, B]) Specializations() *pipeline.Specializations {
	return k.pipe.Specializations()
}

// GridSize returns the launch grid: M blocks, N blocks, K slices.
func (k *Kernel[A, B]) GridSize(m, n, kBatch int) tile.Dim3 {
	return k.part.GridSize(m, n, kBatch)
}

// BlockSize returns the number of lanes per group.
func (k *Kernel[A, B]) BlockSize() tile.Dim3 {
	return tile.Dim3{M: k.cfg.Shape.LanesPerGroup(), N: 1, K: 1}
}

// RequiredScratchBytes returns the scratch arena size of one group.
func (k *Kernel[A, B]) RequiredScratchBytes() int {
	return k.pipe.ScratchBytes()
}

// MakeKernelArgs builds views over h. It only fails when a leading dimension
// is smaller than its packed extent or a buffer is too small for the sizes
// and strides it claims; the remaining checks are CheckArgument's.
func (k *Kernel[A, B]) MakeKernelArgs(h HostArgs[A, B]) (KernelArgs[A, B], error) {
	prob := Problem{
		M: h.M, N: h.N, K: h.K, KBatch: h.KBatch,
		ALayout: k.cfg.ALayout, BLayout: k.cfg.BLayout, CLayout: k.cfg.CLayout,
		AType: tile.DataTypeOf[A](), BType: tile.DataTypeOf[B](),
		PadM: k.cfg.PadM, PadN: k.cfg.PadN, PadK: k.cfg.PadK,
	}
	if h.C != nil {
		prob.CType = h.C.DataType()
	}
	if h.M <= 0 || h.N <= 0 || h.K <= 0 || h.KBatch < 1 {
		return KernelArgs[A, B]{}, fmt.Errorf("%w: %s: sizes must be positive and kbatch at least 1", ErrUnsupportedArgument, prob)
	}

	ldA, err := leadingDim("A", h.StrideA, packedLD(k.cfg.ALayout, h.K, h.M))
	if err != nil {
		return KernelArgs[A, B]{}, err
	}
	aView, err := tile.NewStridedView(h.A, tile.Coord{h.M, h.K}, k.cfg.ALayout.Strides(ldA), tile.Bulk)
	if err != nil {
		return KernelArgs[A, B]{}, fmt.Errorf("%w: A: %w", ErrUnsupportedArgument, err)
	}
	// B is K×N in memory; the pipeline reads it as N×K.
	ldB, err := leadingDim("B", h.StrideB, packedLD(k.cfg.BLayout, h.N, h.K))
	if err != nil {
		return KernelArgs[A, B]{}, err
	}
	bs := k.cfg.BLayout.Strides(ldB)
	bView, err := tile.NewStridedView(h.B, tile.Coord{h.N, h.K}, tile.Coord{bs[1], bs[0]}, tile.Bulk)
	if err != nil {
		return KernelArgs[A, B]{}, fmt.Errorf("%w: B: %w", ErrUnsupportedArgument, err)
	}
	ldC, err := leadingDim("C", h.StrideC, packedLD(k.cfg.CLayout, h.N, h.M))
	if err != nil {
		return KernelArgs[A, B]{}, err
	}
	cView, err := NewOutputView(h.C, tile.Coord{h.M, h.N}, k.cfg.CLayout, ldC)
	if err != nil {
		return KernelArgs[A, B]{}, fmt.Errorf("%w: C: %w", ErrUnsupportedArgument, err)
	}

	splitK := k.part.SplitK(h.K, h.KBatch)
	return KernelArgs[A, B]{
		Problem: prob,
		A:       aView,
		B:       bView,
		C:       cView,
		SplitK:  splitK,
		NumLoop: k.part.LoopNum(splitK),
	}, nil
}

// packedLD returns the packed leading dimension of a rows×cols matrix: cols for
// row-major, rows for column-major.
func packedLD(l tile.Layout, cols, rows int) int {
	if l == tile.ColumnMajor {
		return rows
	}
	return cols
}

// leadingDim returns ld, or packed when ld is zero. A smaller leading
// dimension would alias rows (columns) and is rejected.
func leadingDim(operand string, ld, packed int) (int, error) {
	switch {
	case ld == 0:
		return packed, nil
	case ld < packed:
		return 0, fmt.Errorf("%w: %s: leading dimension %d is smaller than the packed %d",
			ErrUnsupportedArgument, operand, ld, packed)
	}
	return ld, nil
}

// CheckArgument returns nil if the kernel can run args, or an error wrapping
// ErrUnsupportedArgument (or pipeline.ErrUnsupportedTailConfiguration) that
// names the failed check.
func (k *Kernel[A, B]) CheckArgument(args KernelArgs[A, B]) error {
	p := args.Problem
	block := k.cfg.Shape.Block
	if args.A == nil || args.B == nil || args.C.Out == nil {
		return fmt.Errorf("%w: arguments were not built by MakeKernelArgs", ErrUnsupportedArgument)
	}
	if !p.PadM && p.M%block.M != 0 {
		return fmt.Errorf("%w: M=%d is not a multiple of the %d-row tile and M padding is off", ErrUnsupportedArgument, p.M, block.M)
	}
	if !p.PadN && p.N%block.N != 0 {
		return fmt.Errorf("%w: N=%d is not a multiple of the %d-column tile and N padding is off", ErrUnsupportedArgument, p.N, block.N)
	}
	if grain := p.KBatch * block.K; !p.PadK && p.K%grain != 0 {
		return fmt.Errorf("%w: K=%d is not a multiple of kbatch×KTile=%d and K padding is off", ErrUnsupportedArgument, p.K, grain)
	}
	if _, err := pipeline.Classify(args.NumLoop, k.cfg.Depth); err != nil {
		return err
	}
	return nil
}

// IsSupportedArgument reports whether CheckArgument accepts args.
func (k *Kernel[A, B]) IsSupportedArgument(args KernelArgs[A, B]) bool {
	err := k.CheckArgument(args)
	if err != nil {
		klog.Warningf("gemm: %v", err)
	}
	return err == nil
}

// LaunchStats describes a completed launch.
type LaunchStats struct {
	Grid     tile.Dim3
	Block    tile.Dim3
	State    pipeline.State
	Groups   int
	Group    pipeline.RunStats // every group runs the same schedule
	Duration time.Duration
}

// paddedCounter keeps counters updated by different groups on separate
// cache lines.
type paddedCounter struct {
	n atomic.Int64
	_ [tile.CacheLineSize - 8]byte
}

// Launch runs every group of the grid on pool and waits for them.
//
// Unsupported arguments are reported before any group starts, leaving C
// untouched. Once groups run there is no cancellation; a panic in a group is
// re-raised here.
func (k *Kernel[A, B]) Launch(pool *workerpool.Pool, args KernelArgs[A, B]) (LaunchStats, error) {
	if err := k.CheckArgument(args); err != nil {
		klog.Warningf("gemm: skipping launch of %s: %v", args.Problem, err)
		return LaunchStats{}, err
	}
	state, sched, err := k.pipe.Select(args.NumLoop)
	if err != nil {
		klog.Warningf("gemm: skipping launch of %s: %v", args.Problem, err)
		return LaunchStats{}, err
	}

	p := args.Problem
	grid := k.GridSize(p.M, p.N, p.KBatch)
	blocks := k.BlockSize()
	klog.V(1).Infof("Launching kernel with args: grid: {%d, %d, %d}, blocks: {%d, %d, %d}",
		grid.M, grid.N, grid.K, blocks.M, blocks.N, blocks.K)
	klog.V(2).Infof("gemm: %s, %s, %s", p, state, sched)

	shape := k.cfg.Shape
	dist := k.pipe.Distribution()
	aLen := tile.Coord{shape.Block.M, shape.Block.K}
	bLen := tile.Coord{shape.Block.N, shape.Block.K}
	perSlice := make([]paddedCounter, grid.K)
	var groupStats pipeline.RunStats
	var statsOnce sync.Once

	start := time.Now()
	pool.RunGrid(tile.Dim3{M: grid.M * grid.N, N: 1, K: grid.K}, func(x, _, z int) {
		iM, iN := k.part.TileIndex(x, p.N)
		kStart := z * args.SplitK
		aWin, err := tile.NewBlockWindow(args.A, aLen, aLen, tile.Coord{iM * shape.Block.M, kStart}, dist)
		if err != nil {
			exceptions.Panicf("gemm: A window of group (%d,%d,%d): %v", iM, iN, z, err)
		}
		bWin, err := tile.NewBlockWindow(args.B, bLen, bLen, tile.Coord{iN * shape.Block.N, kStart}, dist)
		if err != nil {
			exceptions.Panicf("gemm: B window of group (%d,%d,%d): %v", iM, iN, z, err)
		}

		arena := k.arenas.Get().(*tile.ScratchArena)
		defer k.arenas.Put(arena)
		acc, stats, err := k.pipe.Run(sched, aWin, bWin, args.NumLoop, arena)
		if err != nil {
			exceptions.Panicf("gemm: group (%d,%d,%d): %v", iM, iN, z, err)
		}
		k.epilogue.Apply(acc, OutputWindow{
			View:   args.C,
			Origin: tile.Coord{iM * shape.Block.M, iN * shape.Block.N},
			Atomic: p.KBatch > 1,
		})
		statsOnce.Do(func() { groupStats = stats })
		perSlice[z].n.Add(1)
	})

	groups := 0
	for i := range perSlice {
		groups += int(perSlice[i].n.Load())
	}
	return LaunchStats{
		Grid:     grid,
		Block:    blocks,
		State:    state,
		Groups:   groups,
		Group:    groupStats,
		Duration: time.Since(start),
	}, nil
}

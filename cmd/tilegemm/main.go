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

// Command tilegemm runs one pipelined GEMM on random operands and checks the
// result against the reference product.
//
// Usage:
//
//	tilegemm -m 1024 -n 1024 -k 2048
//	tilegemm -m 256 -n 256 -k 4096 --split-k 4 --c-type bf16
//	tilegemm --preset mem --depth 3 --a-layout col -v 2
//
// The pipeline preset and prefetch depth default to CKTILE_PIPELINE and
// CKTILE_PREFETCH_STAGES; the log verbosity defaults to CKTILE_LOG_LEVEL.
package main

import (
	goflag "flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"k8s.io/klog/v2"

	"github.com/kylasa/composable-kernel/tile"
	"github.com/kylasa/composable-kernel/tile/contrib/gemm"
	"github.com/kylasa/composable-kernel/tile/contrib/workerpool"
)

type options struct {
	m, n, k int
	kBatch  int
	depth   int
	preset  string
	inType  string
	aLayout string
	bLayout string
	cLayout string
	cType   string
	pad     bool
	verify  bool
	seed    int64
	workers int
	rtol    float64
	atol    float64
	repeat  int
}

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "tilegemm",
		Short:         "Run a tiled, software-pipelined GEMM on random data",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := run(cmd, opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			klog.Flush()
			return err
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.m, "m", "m", 1024, "rows of A and C")
	f.IntVarP(&opts.n, "n", "n", 1024, "columns of B and C")
	f.IntVarP(&opts.k, "k", "k", 1024, "columns of A, rows of B")
	f.IntVar(&opts.kBatch, "split-k", 1, "number of K slices accumulated atomically into C")
	f.IntVar(&opts.depth, "depth", 0, "prefetch depth (2-8); 0 keeps the preset's")
	f.StringVar(&opts.preset, "preset", "", "pipeline preset: mem or compute; empty selects from the environment and CPU")
	f.StringVar(&opts.inType, "type", "fp32", "element type of A and B: fp32, fp16, bf16, fp8, bf8")
	f.StringVar(&opts.aLayout, "a-layout", "", "layout of A: row or col; empty keeps the preset's")
	f.StringVar(&opts.bLayout, "b-layout", "", "layout of B: row or col; empty keeps the preset's")
	f.StringVar(&opts.cLayout, "c-layout", "", "layout of C: row or col; empty keeps the preset's")
	f.StringVar(&opts.cType, "c-type", "fp32", "element type of C: fp32, fp64, fp16, bf16, fp8, bf8, int32")
	f.BoolVar(&opts.pad, "pad", true, "pad M, N and K so any size is accepted")
	f.BoolVar(&opts.verify, "verify", true, "compare C against the reference product")
	f.Int64Var(&opts.seed, "seed", 1, "random seed for the operands")
	f.IntVar(&opts.workers, "workers", 0, "worker goroutines; 0 uses GOMAXPROCS")
	f.Float64Var(&opts.rtol, "rtol", 1e-3, "relative tolerance of the verification")
	f.Float64Var(&opts.atol, "atol", 1e-3, "absolute tolerance of the verification; raised to the rounding bound of --c-type and --split-k")
	f.IntVar(&opts.repeat, "repeat", 1, "number of timed launches")

	// klog registers its flags on a standard flag set; -v defaults to CKTILE_LOG_LEVEL.
	klogFlags := goflag.NewFlagSet("klog", goflag.ExitOnError)
	klog.InitFlags(klogFlags)
	if lvl := gemm.LogLevelFromEnv(); lvl > 0 {
		_ = klogFlags.Set("v", strconv.Itoa(lvl))
	}
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)
	return cmd
}

func buildConfig(opts *options) (gemm.Config, error) {
	var cfg gemm.Config
	if opts.preset == "" {
		var err error
		if cfg, err = gemm.DefaultConfig(); err != nil {
			return cfg, err
		}
	} else {
		p, ok := gemm.ParsePreset(opts.preset)
		if !ok {
			return cfg, fmt.Errorf("unknown preset %q", opts.preset)
		}
		cfg = gemm.PresetConfig(p)
	}
	if opts.depth != 0 {
		cfg.Depth = opts.depth
	}
	for _, l := range []struct {
		flag, value string
		dst         *tile.Layout
	}{
		{"a-layout", opts.aLayout, &cfg.ALayout},
		{"b-layout", opts.bLayout, &cfg.BLayout},
		{"c-layout", opts.cLayout, &cfg.CLayout},
	} {
		if l.value == "" {
			continue
		}
		layout, ok := tile.ParseLayout(l.value)
		if !ok {
			return cfg, fmt.Errorf("--%s: unknown layout %q", l.flag, l.value)
		}
		*l.dst = layout
	}
	cfg.PadM, cfg.PadN, cfg.PadK = opts.pad, opts.pad, opts.pad
	return cfg, cfg.Validate()
}

func run(cmd *cobra.Command, opts *options) error {
	cfg, err := buildConfig(opts)
	if err != nil {
		return err
	}
	cType, ok := tile.ParseDataType(opts.cType)
	if !ok {
		return fmt.Errorf("--c-type: unknown type %q", opts.cType)
	}
	pool := workerpool.New(opts.workers)
	defer pool.Close()

	inType, ok := tile.ParseDataType(opts.inType)
	if !ok {
		return fmt.Errorf("--type: unknown type %q", opts.inType)
	}
	switch inType {
	case tile.FP32:
		return runTyped[float32](cmd, pool, cfg, cType, opts)
	case tile.FP16:
		return runTyped[tile.Float16](cmd, pool, cfg, cType, opts)
	case tile.BF16:
		return runTyped[tile.BFloat16](cmd, pool, cfg, cType, opts)
	case tile.FP8:
		return runTyped[tile.Float8E4M3](cmd, pool, cfg, cType, opts)
	case tile.BF8:
		return runTyped[tile.Float8E5M2](cmd, pool, cfg, cType, opts)
	}
	return fmt.Errorf("--type: %s inputs are not supported", inType)
}

func runTyped[T tile.Element](cmd *cobra.Command, pool *workerpool.Pool, cfg gemm.Config, cType tile.DataType, opts *options) error {
	k, err := gemm.NewKernel[T, T](cfg, gemm.KernelOptions[T, T]{})
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(opts.seed))
	from := tile.FromFloat32Func[T]()
	random := func(n int) []T {
		return lo.Times(n, func(int) T { return from(rng.Float32()*2 - 1) })
	}
	a, b := random(opts.m*opts.k), random(opts.k*opts.n)

	out := cmd.OutOrStdout()
	p := message.NewPrinter(language.English)
	p.Fprintf(out, "config: %s\n", cfg)
	p.Fprintf(out, "problem: %d x %d x %d, split-k %d, %s inputs, %s output, %d workers\n",
		opts.m, opts.n, opts.k, opts.kBatch, tile.DataTypeOf[T](), cType, pool.NumWorkers())

	var (
		args  gemm.KernelArgs[T, T]
		stats gemm.LaunchStats
	)
	for i := range max(opts.repeat, 1) {
		// C is zeroed for every launch: split-K groups add into it.
		c, err := gemm.NewOutput(cType, opts.m*opts.n)
		if err != nil {
			return err
		}
		args, err = k.MakeKernelArgs(gemm.HostArgs[T, T]{
			A: a, B: b, C: c,
			M: opts.m, N: opts.n, K: opts.k,
			KBatch: opts.kBatch,
		})
		if err != nil {
			return err
		}
		if stats, err = k.Launch(pool, args); err != nil {
			return err
		}
		flops := 2 * float64(opts.m) * float64(opts.n) * float64(opts.k)
		p.Fprintf(out, "run %d: %v, %.2f GFLOP/s\n", i, stats.Duration, flops/stats.Duration.Seconds()/1e9)
	}
	p.Fprintf(out, "grid %s, block %s, %d groups, pipeline %s\n", stats.Grid, stats.Block, stats.Groups, stats.State)
	p.Fprintf(out, "per group: %d MACs, %d steady steps, %d barriers, %d bytes of scratch\n",
		stats.Group.MACs, stats.Group.SteadySteps, stats.Group.Barriers, k.RequiredScratchBytes())

	if !opts.verify {
		return nil
	}
	want := gemm.Reference(pool, args.A, args.B)
	// Split-K into a narrow C rounds once per slice.
	atol := max(opts.atol, gemm.RoundingTolerance(cType, opts.kBatch, want))
	mm := gemm.Compare(args.C, want, opts.rtol, atol)
	if mm.Count > 0 {
		return fmt.Errorf("verification failed: %d of %d elements differ, first at %s, max error %g",
			mm.Count, len(want), mm.First, mm.MaxErr)
	}
	p.Fprintf(out, "verified %d elements, max error %g (atol %g)\n", len(want), mm.MaxErr, atol)
	return nil
}

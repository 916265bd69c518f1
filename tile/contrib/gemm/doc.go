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

// Package gemm computes C = A·B with a tiled, software-pipelined kernel.
//
// The problem is cut into MTile×NTile output blocks, and optionally into
// KBatch slices of the K axis (split-K). Each (block, slice) pair is one
// group. A group runs the K loop with package pipeline, then hands its
// float32 accumulator to an Epilogue that writes C. Split-K groups add into C
// atomically, so C must be zeroed before such a launch.
//
// Typical use:
//
//	cfg, _ := gemm.DefaultConfig()
//	kernel, err := gemm.NewKernel[float32, float32](cfg, gemm.KernelOptions[float32, float32]{})
//	kargs, err := kernel.MakeKernelArgs(gemm.HostArgs[float32, float32]{
//	    A: a, B: b, C: atomics.NewFloat32s(m * n), M: m, N: n, K: k, KBatch: 1,
//	})
//	stats, err := kernel.Launch(pool, kargs)
//
// A is M×K in cfg.ALayout, B is K×N in cfg.BLayout and C is M×N in
// cfg.CLayout. Arguments the kernel cannot handle are rejected with
// ErrUnsupportedArgument before anything is written.
package gemm

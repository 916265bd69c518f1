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

// Package pipeline schedules the K loop of a tiled GEMM.
//
// A group walks the K axis one tile at a time. Each tile is read from bulk
// memory into a lane-private staging ring, written into the group's scratch
// arena, and consumed by a multiply-accumulate step. Bulk reads run up to
// depth tiles ahead of compute, so the loop is split into three phases:
//
//	prologue  read the first min(n, depth) tiles, commit tile 0 to scratch
//	hot loop  trips of depth unrolled steps: read ahead, MAC, commit next
//	tail      drain the tiles still in flight, ending in a lone MAC
//
// Classify decides, for a trip count n and a depth, whether the hot loop runs
// and which tail drains it. The answer is a Variant, and each supported
// Variant maps to one Scheduler in a Specializations table built once per
// depth. Pipeline.Run executes a Scheduler with one goroutine per lane.
//
// Inside Run, inconsistencies (a staging slot reused before commit, an arena
// that is too small) are programming errors and panic; the panic of a failing
// lane is re-raised in the caller of Run after every lane has stopped.
package pipeline

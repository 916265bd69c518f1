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

// Package tile provides the data-movement building blocks of the tiled GEMM
// pipeline: element types, tensor views bound to a memory tier, lane
// distributions, distributed (per-lane) tiles and tile windows.
//
// Three memory tiers are modeled:
//   - Bulk: the operand and output matrices, shared by every group.
//   - Scratch: a fixed-size arena private to one group and shared by its lanes.
//   - Register: slices owned by exactly one lane.
//
// A Window binds a rectangular sub-tile (origin + lengths) of a TensorView to
// a lane Distribution. Loading a window yields a DistributedTile where every
// lane holds exactly the elements the distribution assigns it:
//
//	view, _ := tile.NewTensorView(a, tile.Coord{m, k}, tile.RowMajor, tile.Bulk)
//	w, _ := tile.NewWindow(view, tile.Coord{128, 64}, tile.Coord{0, 0}, tile.Distribution{Lanes: 4})
//	t := w.Load()
//	w.Move(tile.Coord{0, 64})
//
// Element types narrower than 32 bits (BFloat16, Float16, Float8E4M3,
// Float8E5M2) convert through float32; ToFloat32Func and FromFloat32Func
// return per-type converters that avoid interface boxing in inner loops.
package tile

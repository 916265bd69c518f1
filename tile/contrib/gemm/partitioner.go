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

import "github.com/kylasa/composable-kernel/tile"

// TilePartitioner maps a problem onto the launch grid of a tile shape.
// All methods are pure arithmetic.
type TilePartitioner struct {
	Shape tile.GemmShape
}

// NewTilePartitioner returns the partitioner for shape.
func NewTilePartitioner(shape tile.GemmShape) TilePartitioner {
	return TilePartitioner{Shape: shape}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// SplitK returns the K extent each of kBatch slices covers: K rounded up to a
// multiple of kBatch×KTile, divided by kBatch.
func (p TilePartitioner) SplitK(k, kBatch int) int {
	kt := p.Shape.Block.K
	return ceilDiv(k, kBatch*kt) * kt
}

// LoopNum returns how many K tiles cover splitK.
func (p TilePartitioner) LoopNum(splitK int) int {
	return ceilDiv(splitK, p.Shape.Block.K)
}

// GridSize returns the number of M blocks, N blocks and K slices.
func (p TilePartitioner) GridSize(m, n, kBatch int) tile.Dim3 {
	return tile.Dim3{M: ceilDiv(m, p.Shape.Block.M), N: ceilDiv(n, p.Shape.Block.N), K: kBatch}
}

// TileIndex maps a flat block index, numbered row-major over the N blocks of
// a problem with n columns, to its (M block, N block) coordinates.
func (p TilePartitioner) TileIndex(x, n int) (iM, iN int) {
	nBlocks := ceilDiv(n, p.Shape.Block.N)
	return x / nBlocks, x % nBlocks
}

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

package tile

import (
	"errors"
	"fmt"
)

// ErrInvalidShape is returned by GemmShape.Validate.
var ErrInvalidShape = errors.New("invalid tile shape")

// Dim3 holds per-axis values for the M, N and K axes of a GEMM.
type Dim3 struct {
	M, N, K int
}

// String formats d as "MxNxK".
func (d Dim3) String() string {
	return fmt.Sprintf("%dx%dx%d", d.M, d.N, d.K)
}

// GemmShape describes how one group tiles the problem:
//   - Block: the extents of the block tile (M_Tile, N_Tile, K_Tile).
//   - Lanes: how many lanes split each axis.
//   - Micro: the per-lane micro tile.
//
// Block = Lanes × Micro on every axis. The K axis is never split across lanes.
type GemmShape struct {
	Block Dim3
	Lanes Dim3
	Micro Dim3
}

// LanesPerGroup returns the number of cooperating lanes in one group.
func (s GemmShape) LanesPerGroup() int {
	return s.Lanes.M * s.Lanes.N
}

// Validate checks the shape invariants.
func (s GemmShape) Validate() error {
	for _, d := range []Dim3{s.Block, s.Lanes, s.Micro} {
		if d.M <= 0 || d.N <= 0 || d.K <= 0 {
			return fmt.Errorf("%w: all extents must be positive, got block %s lanes %s micro %s",
				ErrInvalidShape, s.Block, s.Lanes, s.Micro)
		}
	}
	if s.Lanes.K != 1 {
		return fmt.Errorf("%w: K lanes must be 1, got %d", ErrInvalidShape, s.Lanes.K)
	}
	if s.Block.M != s.Lanes.M*s.Micro.M || s.Block.N != s.Lanes.N*s.Micro.N || s.Block.K != s.Micro.K {
		return fmt.Errorf("%w: block %s != lanes %s × micro %s", ErrInvalidShape, s.Block, s.Lanes, s.Micro)
	}
	// Operand tiles are distributed over lanes in row bands.
	lanes := s.LanesPerGroup()
	if s.Block.M%lanes != 0 || s.Block.N%lanes != 0 {
		return fmt.Errorf("%w: block M=%d and N=%d must be multiples of the %d lanes per group",
			ErrInvalidShape, s.Block.M, s.Block.N, lanes)
	}
	return nil
}

// MicroOrigin returns where lane's micro tile starts inside the block tile.
func (s GemmShape) MicroOrigin(lane int) Coord {
	return Coord{(lane / s.Lanes.N) * s.Micro.M, (lane % s.Lanes.N) * s.Micro.N}
}

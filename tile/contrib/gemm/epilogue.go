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
	"github.com/kylasa/composable-kernel/tile"
	"github.com/kylasa/composable-kernel/tile/contrib/pipeline"
)

// OutputWindow is the block of C one group writes.
type OutputWindow struct {
	View   OutputView
	Origin tile.Coord // block origin in C
	// Atomic is set when several groups contribute to the block (split-K);
	// the epilogue must then add instead of store.
	Atomic bool
}

// Epilogue writes a group's accumulator into C.
type Epilogue interface {
	Apply(acc *pipeline.AccTile, out OutputWindow)
}

// Default2DEpilogue converts each lane's micro tile to the output type and
// writes it, clipping rows and columns that fall outside C.
type Default2DEpilogue struct{}

// Apply implements Epilogue.
func (Default2DEpilogue) Apply(acc *pipeline.AccTile, out OutputWindow) {
	v := out.View
	rowMajor := v.Layout() == tile.RowMajor
	for _, lane := range acc.Lanes {
		r0 := out.Origin[0] + lane.Origin[0]
		c0 := out.Origin[1] + lane.Origin[1]
		rows := min(lane.Lengths[0], v.Lengths[0]-r0)
		cols := min(lane.Lengths[1], v.Lengths[1]-c0)
		if rows <= 0 || cols <= 0 {
			continue
		}
		if rowMajor {
			for i := range rows {
				write(out, (r0+i)*v.Strides[0]+c0, lane.Row(i)[:cols])
			}
			continue
		}
		col := make([]float32, rows)
		for j := range cols {
			for i := range rows {
				col[i] = lane.At(i, j)
			}
			write(out, r0+(c0+j)*v.Strides[1], col)
		}
	}
}

func write(out OutputWindow, offset int, vals []float32) {
	if out.Atomic {
		out.View.Out.AtomicAddSpan(offset, vals)
	} else {
		out.View.Out.StoreSpan(offset, vals)
	}
}

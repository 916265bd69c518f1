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

	"github.com/kylasa/composable-kernel/tile"
	"github.com/kylasa/composable-kernel/tile/contrib/atomics"
)

// Problem describes one GEMM independently of its data.
type Problem struct {
	M, N, K int
	KBatch  int

	ALayout, BLayout, CLayout tile.Layout
	AType, BType, CType       tile.DataType

	PadM, PadN, PadK bool
}

// AccType is the accumulator type of every problem.
const AccType = tile.FP32

func (p Problem) String() string {
	return fmt.Sprintf("M=%d N=%d K=%d kbatch=%d A:%s/%s B:%s/%s C:%s/%s acc:%s",
		p.M, p.N, p.K, p.KBatch, p.AType, p.ALayout, p.BType, p.BLayout, p.CType, p.CLayout, AccType)
}

// HostArgs are the caller's buffers and sizes.
//
// A holds an M×K matrix and B a K×N matrix, in the kernel's layouts. Stride
// fields are leading dimensions; zero means packed. C receives the M×N
// result; for KBatch > 1 it must be zeroed before the launch.
type HostArgs[A, B tile.Element] struct {
	A []A
	B []B
	C atomics.Output

	M, N, K int

	StrideA, StrideB, StrideC int
	KBatch                    int
}

// KernelArgs are validated views over HostArgs plus the derived loop
// geometry. Build them with Kernel.MakeKernelArgs.
type KernelArgs[A, B tile.Element] struct {
	Problem Problem

	A *tile.TensorView[A] // M×K
	B *tile.TensorView[B] // N×K: B seen transposed, so K is dim 1 of both
	C OutputView

	SplitK  int
	NumLoop int
}

// OutputView addresses an atomics.Output as an M×N matrix.
type OutputView struct {
	Out     atomics.Output
	Lengths tile.Coord
	Strides tile.Coord
}

// NewOutputView checks that out holds an M×N matrix of the given layout and
// leading dimension.
func NewOutputView(out atomics.Output, lengths tile.Coord, layout tile.Layout, ld int) (OutputView, error) {
	if out == nil {
		return OutputView{}, fmt.Errorf("%w: nil output", tile.ErrViewBounds)
	}
	strides := layout.Strides(ld)
	last := (lengths[0]-1)*strides[0] + (lengths[1]-1)*strides[1]
	if lengths[0] <= 0 || lengths[1] <= 0 || last >= out.Len() {
		return OutputView{}, fmt.Errorf("%w: %s output with strides %s needs %d elements, have %d",
			tile.ErrViewBounds, lengths, strides, last+1, out.Len())
	}
	return OutputView{Out: out, Lengths: lengths, Strides: strides}, nil
}

// Layout returns the layout of the view.
func (v OutputView) Layout() tile.Layout {
	if v.Strides[1] == 1 {
		return tile.RowMajor
	}
	return tile.ColumnMajor
}

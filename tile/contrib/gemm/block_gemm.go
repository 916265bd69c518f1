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
	"sync"

	"github.com/kylasa/composable-kernel/tile"
	"github.com/kylasa/composable-kernel/tile/contrib/pipeline"
)

// BlockGemm is the default multiply-accumulate: each lane adds its micro tile
// of a·bᵀ, reading both operands K-contiguous from scratch.
//
// Operand rows are widened to float32 once per call into pooled buffers,
// then every accumulator element is a float32 dot product over K. A
// BlockGemm is shared by every lane of every group of a kernel.
type BlockGemm[A, B tile.Element] struct {
	micro tile.Coord
	toA   func(A) float32
	toB   func(B) float32
	rows2 bool
	bufs  sync.Pool // of *laneBufs
}

type laneBufs struct {
	a [2][]float32 // one or two A rows
	b []float32    // Micro.N rows of B, KTile each
}

// NewBlockGemm returns the block GEMM for shape. On CPUs with vector units
// it processes two accumulator rows per pass so each widened B row is reused.
func NewBlockGemm[A, B tile.Element](shape tile.GemmShape) *BlockGemm[A, B] {
	kt := shape.Block.K
	g := &BlockGemm[A, B]{
		micro: tile.Coord{shape.Micro.M, shape.Micro.N},
		toA:   tile.ToFloat32Func[A](),
		toB:   tile.ToFloat32Func[B](),
		rows2: tile.CurrentLevel() != tile.LevelGeneric,
	}
	g.bufs.New = func() any {
		return &laneBufs{
			a: [2][]float32{make([]float32, kt), make([]float32, kt)},
			b: make([]float32, shape.Micro.N*kt),
		}
	}
	return g
}

// AccumulatorShape implements pipeline.MultiplyAccumulator.
func (g *BlockGemm[A, B]) AccumulatorShape() tile.Coord { return g.micro }

// MultiplyAccumulate implements pipeline.MultiplyAccumulator.
func (g *BlockGemm[A, B]) MultiplyAccumulate(acc *pipeline.LaneAcc, a *tile.Window[A], b *tile.Window[B]) {
	kt := a.Lengths()[1]
	buf := g.bufs.Get().(*laneBufs)
	defer g.bufs.Put(buf)

	bView := b.View()
	bData, bs := bView.Data(), bView.Strides()
	for j := range acc.Lengths[1] {
		row := buf.b[j*kt : (j+1)*kt]
		base := (b.Origin()[0]+acc.Origin[1]+j)*bs[0] + b.Origin()[1]*bs[1]
		for k := range kt {
			row[k] = g.toB(bData[base+k*bs[1]])
		}
	}

	aView := a.View()
	aData, as := aView.Data(), aView.Strides()
	loadA := func(dst []float32, i int) {
		base := (a.Origin()[0]+acc.Origin[0]+i)*as[0] + a.Origin()[1]*as[1]
		for k := range kt {
			dst[k] = g.toA(aData[base+k*as[1]])
		}
	}

	rows := acc.Lengths[0]
	var i int
	if g.rows2 {
		for ; i+1 < rows; i += 2 {
			loadA(buf.a[0], i)
			loadA(buf.a[1], i+1)
			mulAddRows2(acc.Row(i), acc.Row(i+1), buf.a[0], buf.a[1], buf.b, kt)
		}
	}
	for ; i < rows; i++ {
		loadA(buf.a[0], i)
		mulAddRow(acc.Row(i), buf.a[0], buf.b, kt)
	}
}

// mulAddRow computes c[j] += a · b[j*kt:(j+1)*kt] for every j.
func mulAddRow(c, a, b []float32, kt int) {
	for j := range c {
		bRow := b[j*kt : (j+1)*kt]
		sum := c[j]
		for k, v := range a[:kt] {
			sum += v * bRow[k]
		}
		c[j] = sum
	}
}

// mulAddRows2 is mulAddRow on two rows at once, sharing each B row.
func mulAddRows2(c0, c1, a0, a1, b []float32, kt int) {
	a0, a1 = a0[:kt], a1[:kt]
	for j := range c0 {
		bRow := b[j*kt : (j+1)*kt]
		s0, s1 := c0[j], c1[j]
		for k, v := range bRow {
			s0 += a0[k] * v
			s1 += a1[k] * v
		}
		c0[j], c1[j] = s0, s1
	}
}

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

package atomics

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kylasa/composable-kernel/tile"
)

// hammer runs fn(g) on `goroutines` goroutines and waits for them.
func hammer(goroutines int, fn func(g int)) {
	var wg sync.WaitGroup
	for g := range goroutines {
		wg.Go(func() { fn(g) })
	}
	wg.Wait()
}

func TestFloat32sConcurrentAdd(t *testing.T) {
	const n, goroutines, reps = 5, 16, 100
	buf := NewFloat32s(n)
	hammer(goroutines, func(int) {
		for range reps {
			for i := range n {
				buf.AtomicAdd(i, 1)
			}
		}
	})
	for i, v := range buf.Values() {
		assert.Equal(t, float32(goroutines*reps), v, "element %d", i)
	}

	// AtomicAdd2 updates both neighbours.
	buf.AtomicAdd2(1, [2]float32{0.5, -0.5})
	assert.Equal(t, float32(goroutines*reps)+0.5, buf.Load(1))
	assert.Equal(t, float32(goroutines*reps)-0.5, buf.Load(2))
}

func TestFloat32sAtomicMax(t *testing.T) {
	buf := NewFloat32s(2)
	buf.StoreSpan(0, []float32{-100, -100})
	hammer(32, func(g int) {
		buf.AtomicMax2(0, [2]float32{float32(g), float32(-g)})
	})
	assert.Equal(t, float32(31), buf.Load(0))
	assert.Equal(t, float32(0), buf.Load(1))
}

func TestFloat64sConcurrentAdd(t *testing.T) {
	buf := NewFloat64s(3)
	hammer(8, func(g int) {
		for range 50 {
			buf.AtomicAdd2(0, [2]float64{1, 2})
			buf.AtomicMax(2, float64(g))
		}
	})
	assert.Equal(t, 400.0, buf.Load(0))
	assert.Equal(t, 800.0, buf.Load(1))
	assert.Equal(t, 7.0, buf.Load(2))
}

func TestInt32sConcurrentAdd(t *testing.T) {
	i32 := NewInt32s(3)
	hammer(10, func(g int) {
		for range 10 {
			i32.AtomicAdd(0, -1)
		}
		i32.AtomicAddSpan(1, []float32{2, 2.4})
	})
	assert.Equal(t, int32(-100), i32.Load(0))
	assert.Equal(t, int32(20), i32.Load(1))
	assert.Equal(t, int32(20), i32.Load(2), "2.4 rounds to 2 before the add")

	i32.AtomicMax(0, -200)
	assert.Equal(t, int32(-100), i32.Load(0))
	i32.AtomicMax(0, 1000)
	assert.Equal(t, float32(1000), i32.Float32At(0))
}

func TestUint32s(t *testing.T) {
	u32 := NewUint32s(1)
	hammer(10, func(int) {
		for range 10 {
			u32.AtomicAdd(0, 2)
		}
	})
	assert.Equal(t, uint32(200), u32.Load(0))
	u32.AtomicMax(0, 100)
	assert.Equal(t, uint32(200), u32.Load(0))
	u32.AtomicMax(0, 1000)
	assert.Equal(t, uint32(1000), u32.Load(0))
}

func TestInt32sStoreRounds(t *testing.T) {
	i32 := NewInt32s(5)
	i32.StoreSpan(0, []float32{2.5, -3.5, 7.49, 1e10, float32(math.NaN())})
	want := []int32{2, -4, 7, math.MaxInt32, 0}
	for i, w := range want {
		assert.Equal(t, w, i32.Load(i), "element %d", i)
	}
	assert.Equal(t, tile.INT32, i32.DataType())
	assert.Equal(t, 5, i32.Len())
}

func TestPackUnpackLaneOrder(t *testing.T) {
	h := [2]tile.BFloat16{tile.NewBFloat16(1), tile.NewBFloat16(-2)}
	w := Pack16x2(h)
	require.Equal(t, uint32(0xC000_3F80), w, "element 0 must sit in the low half")
	assert.Equal(t, h, Unpack16x2[tile.BFloat16](w))

	q := [4]tile.Float8E4M3{1, 2, 3, 4}
	w = Pack8x4(q)
	require.Equal(t, uint32(0x04030201), w)
	assert.Equal(t, q, Unpack8x4[tile.Float8E4M3](w))
}

// concurrentPackedSum has every goroutine add 1 to every element of buf, and
// checks the totals read back exactly.
func concurrentPackedSum(t *testing.T, buf Output, goroutines int) {
	t.Helper()
	ones := make([]float32, buf.Len())
	for i := range ones {
		ones[i] = 1
	}
	hammer(goroutines, func(int) {
		buf.AtomicAddSpan(0, ones)
	})
	for i := range buf.Len() {
		assert.Equal(t, float32(goroutines), buf.Float32At(i), "%s element %d", buf.DataType(), i)
	}
}

func TestPackedConcurrentSums(t *testing.T) {
	t.Run("bf16x2", func(t *testing.T) { concurrentPackedSum(t, NewPacked16x2[tile.BFloat16](7), 200) })
	t.Run("fp16x2", func(t *testing.T) { concurrentPackedSum(t, NewPacked16x2[tile.Float16](7), 1000) })
	// Integers stay exact up to 16 with 3 mantissa bits, up to 8 with 2.
	t.Run("fp8x4", func(t *testing.T) { concurrentPackedSum(t, NewPacked8x4[tile.Float8E4M3](9), 16) })
	t.Run("bf8x4", func(t *testing.T) { concurrentPackedSum(t, NewPacked8x4[tile.Float8E5M2](9), 8) })
}

func TestPackedWordAdd(t *testing.T) {
	bf := NewPacked16x2[tile.BFloat16](4)
	one := tile.NewBFloat16(1)
	hammer(64, func(int) {
		bf.AtomicAdd(0, [2]tile.BFloat16{one, one})
		bf.AtomicAdd(1, [2]tile.BFloat16{one, one})
	})
	for i := range 4 {
		assert.Equal(t, float32(64), bf.Float32At(i))
	}

	q := NewPacked8x4[tile.Float8E4M3](4)
	v := tile.NewFloat8E4M3(0.5)
	hammer(8, func(int) {
		q.AtomicAdd(0, [4]tile.Float8E4M3{v, v, v, v})
	})
	assert.Equal(t, [4]tile.Float8E4M3{
		tile.NewFloat8E4M3(4), tile.NewFloat8E4M3(4), tile.NewFloat8E4M3(4), tile.NewFloat8E4M3(4),
	}, q.Word(0))
}

func TestPackedSpanLeavesNeighboursAlone(t *testing.T) {
	buf := NewPacked8x4[tile.Float8E5M2](8)
	buf.StoreSpan(0, []float32{1, 1, 1, 1, 1, 1, 1, 1})
	// Two writers share word 0 and word 1 without overlapping elements.
	hammer(2, func(g int) {
		if g == 0 {
			buf.AtomicAddSpan(1, []float32{1, 1, 1})
		} else {
			buf.AtomicAddSpan(4, []float32{2, 2})
		}
	})
	want := []float32{1, 2, 2, 2, 3, 3, 1, 1}
	for i, w := range want {
		assert.Equal(t, w, buf.Float32At(i), "element %d", i)
	}

	h := NewPacked16x2[tile.Float16](3)
	h.StoreSpan(1, []float32{5, 6})
	assert.Equal(t, float32(0), h.Float32At(0))
	assert.Equal(t, float32(5), h.Float32At(1))
	assert.Equal(t, float32(6), h.Float32At(2))
	assert.Equal(t, tile.FP16, h.DataType())
}

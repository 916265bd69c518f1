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
	"sync/atomic"

	"github.com/kylasa/composable-kernel/tile"
)

// Output is an output buffer the epilogue can write float32 results into.
//
// StoreSpan and AtomicAddSpan address vals[i] at flat element offset+i.
// StoreSpan is for outputs that exactly one group writes; AtomicAddSpan is
// safe when several groups contribute to the same elements. Both are safe
// against concurrent writers of *neighbouring* elements that share a packed
// word.
type Output interface {
	Len() int
	DataType() tile.DataType
	StoreSpan(offset int, vals []float32)
	AtomicAddSpan(offset int, vals []float32)
	Float32At(i int) float32
}

// casUint32 applies update to *addr until its compare-and-swap succeeds.
func casUint32(addr *uint32, update func(old uint32) uint32) {
	for {
		old := atomic.LoadUint32(addr)
		if atomic.CompareAndSwapUint32(addr, old, update(old)) {
			return
		}
	}
}

func casUint64(addr *uint64, update func(old uint64) uint64) {
	for {
		old := atomic.LoadUint64(addr)
		if atomic.CompareAndSwapUint64(addr, old, update(old)) {
			return
		}
	}
}

// Float32s is a float32 output buffer.
type Float32s struct {
	bits []uint32
}

// NewFloat32s allocates n zeroed elements.
func NewFloat32s(n int) *Float32s {
	return &Float32s{bits: make([]uint32, n)}
}

// AtomicAdd adds v to element i.
func (b *Float32s) AtomicAdd(i int, v float32) {
	casUint32(&b.bits[i], func(old uint32) uint32 {
		return math.Float32bits(math.Float32frombits(old) + v)
	})
}

// AtomicAdd2 adds v[0] and v[1] to elements i and i+1, as two independent
// atomics.
func (b *Float32s) AtomicAdd2(i int, v [2]float32) {
	b.AtomicAdd(i, v[0])
	b.AtomicAdd(i+1, v[1])
}

// AtomicMax raises element i to v if v is larger.
func (b *Float32s) AtomicMax(i int, v float32) {
	casUint32(&b.bits[i], func(old uint32) uint32 {
		return math.Float32bits(max(math.Float32frombits(old), v))
	})
}

// AtomicMax2 is AtomicMax on elements i and i+1.
func (b *Float32s) AtomicMax2(i int, v [2]float32) {
	b.AtomicMax(i, v[0])
	b.AtomicMax(i+1, v[1])
}

// Load returns element i.
func (b *Float32s) Load(i int) float32 {
	return math.Float32frombits(atomic.LoadUint32(&b.bits[i]))
}

// Values returns a snapshot of the buffer.
func (b *Float32s) Values() []float32 {
	out := make([]float32, len(b.bits))
	for i := range out {
		out[i] = b.Load(i)
	}
	return out
}

// Len returns the number of elements.
func (b *Float32s) Len() int { return len(b.bits) }

// DataType returns tile.FP32.
func (b *Float32s) DataType() tile.DataType { return tile.FP32 }

// Float32At returns element i.
func (b *Float32s) Float32At(i int) float32 { return b.Load(i) }

// StoreSpan stores vals at offset.
func (b *Float32s) StoreSpan(offset int, vals []float32) {
	for i, v := range vals {
		atomic.StoreUint32(&b.bits[offset+i], math.Float32bits(v))
	}
}

// AtomicAddSpan adds vals at offset, one atomic per element.
func (b *Float32s) AtomicAddSpan(offset int, vals []float32) {
	for i, v := range vals {
		b.AtomicAdd(offset+i, v)
	}
}

// Float64s is a float64 output buffer.
type Float64s struct {
	bits []uint64
}

// NewFloat64s allocates n zeroed elements.
func NewFloat64s(n int) *Float64s {
	return &Float64s{bits: make([]uint64, n)}
}

// AtomicAdd adds v to element i.
func (b *Float64s) AtomicAdd(i int, v float64) {
	casUint64(&b.bits[i], func(old uint64) uint64 {
		return math.Float64bits(math.Float64frombits(old) + v)
	})
}

// AtomicAdd2 adds v[0] and v[1] to elements i and i+1.
func (b *Float64s) AtomicAdd2(i int, v [2]float64) {
	b.AtomicAdd(i, v[0])
	b.AtomicAdd(i+1, v[1])
}

// AtomicMax raises element i to v if v is larger.
func (b *Float64s) AtomicMax(i int, v float64) {
	casUint64(&b.bits[i], func(old uint64) uint64 {
		return math.Float64bits(max(math.Float64frombits(old), v))
	})
}

// Load returns element i.
func (b *Float64s) Load(i int) float64 {
	return math.Float64frombits(atomic.LoadUint64(&b.bits[i]))
}

// Len returns the number of elements.
func (b *Float64s) Len() int { return len(b.bits) }

// DataType returns tile.FP64.
func (b *Float64s) DataType() tile.DataType { return tile.FP64 }

// Float32At returns element i narrowed to float32.
func (b *Float64s) Float32At(i int) float32 { return float32(b.Load(i)) }

// StoreSpan stores vals at offset, widened to float64.
func (b *Float64s) StoreSpan(offset int, vals []float32) {
	for i, v := range vals {
		atomic.StoreUint64(&b.bits[offset+i], math.Float64bits(float64(v)))
	}
}

// AtomicAddSpan adds vals at offset in float64.
func (b *Float64s) AtomicAddSpan(offset int, vals []float32) {
	for i, v := range vals {
		b.AtomicAdd(offset+i, float64(v))
	}
}

// Int32s is an int32 buffer. Integer adds wrap on overflow.
type Int32s struct {
	vals []int32
}

// NewInt32s allocates n zeroed elements.
func NewInt32s(n int) *Int32s {
	return &Int32s{vals: make([]int32, n)}
}

// AtomicAdd adds v to element i.
func (b *Int32s) AtomicAdd(i int, v int32) {
	atomic.AddInt32(&b.vals[i], v)
}

// AtomicMax raises element i to v if v is larger.
func (b *Int32s) AtomicMax(i int, v int32) {
	for {
		old := atomic.LoadInt32(&b.vals[i])
		if old >= v || atomic.CompareAndSwapInt32(&b.vals[i], old, v) {
			return
		}
	}
}

// Load returns element i.
func (b *Int32s) Load(i int) int32 {
	return atomic.LoadInt32(&b.vals[i])
}

// Len returns the number of elements.
func (b *Int32s) Len() int { return len(b.vals) }

// DataType returns tile.INT32.
func (b *Int32s) DataType() tile.DataType { return tile.INT32 }

// Float32At returns element i as a float32.
func (b *Int32s) Float32At(i int) float32 { return float32(b.Load(i)) }

// StoreSpan stores vals at offset, rounded to the nearest integer.
func (b *Int32s) StoreSpan(offset int, vals []float32) {
	for i, v := range vals {
		atomic.StoreInt32(&b.vals[offset+i], roundInt32(v))
	}
}

// AtomicAddSpan adds vals at offset, each rounded to the nearest integer.
func (b *Int32s) AtomicAddSpan(offset int, vals []float32) {
	for i, v := range vals {
		b.AtomicAdd(offset+i, roundInt32(v))
	}
}

// roundInt32 rounds half to even and saturates at the int32 range.
func roundInt32(v float32) int32 {
	r := math.RoundToEven(float64(v))
	switch {
	case math.IsNaN(r):
		return 0
	case r >= math.MaxInt32:
		return math.MaxInt32
	case r <= math.MinInt32:
		return math.MinInt32
	}
	return int32(r)
}

// Uint32s is a uint32 buffer. Adds wrap on overflow.
type Uint32s struct {
	vals []uint32
}

// NewUint32s allocates n zeroed elements.
func NewUint32s(n int) *Uint32s {
	return &Uint32s{vals: make([]uint32, n)}
}

// AtomicAdd adds v to element i.
func (b *Uint32s) AtomicAdd(i int, v uint32) {
	atomic.AddUint32(&b.vals[i], v)
}

// AtomicMax raises element i to v if v is larger.
func (b *Uint32s) AtomicMax(i int, v uint32) {
	for {
		old := atomic.LoadUint32(&b.vals[i])
		if old >= v || atomic.CompareAndSwapUint32(&b.vals[i], old, v) {
			return
		}
	}
}

// Load returns element i.
func (b *Uint32s) Load(i int) uint32 {
	return atomic.LoadUint32(&b.vals[i])
}

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
	"sync/atomic"

	"github.com/kylasa/composable-kernel/tile"
)

// Half is the set of 16-bit floats Packed16x2 supports.
type Half interface {
	tile.BFloat16 | tile.Float16
}

// Quarter is the set of 8-bit floats Packed8x4 supports.
type Quarter interface {
	tile.Float8E4M3 | tile.Float8E5M2
}

// Pack16x2 packs v with v[0] in bits 0-15 and v[1] in bits 16-31.
func Pack16x2[H Half](v [2]H) uint32 {
	return uint32(uint16(v[0])) | uint32(uint16(v[1]))<<16
}

// Unpack16x2 is the inverse of Pack16x2.
func Unpack16x2[H Half](w uint32) [2]H {
	return [2]H{H(uint16(w)), H(uint16(w >> 16))}
}

// Pack8x4 packs v with v[i] in bits 8i to 8i+7.
func Pack8x4[Q Quarter](v [4]Q) uint32 {
	return uint32(uint8(v[0])) | uint32(uint8(v[1]))<<8 | uint32(uint8(v[2]))<<16 | uint32(uint8(v[3]))<<24
}

// Unpack8x4 is the inverse of Pack8x4.
func Unpack8x4[Q Quarter](w uint32) [4]Q {
	return [4]Q{Q(uint8(w)), Q(uint8(w >> 8)), Q(uint8(w >> 16)), Q(uint8(w >> 24))}
}

// packedWords is the shared storage of the packed buffers: n elements of
// width 32/perWord bits in ceil(n/perWord) words.
type packedWords struct {
	words   []uint32
	n       int
	perWord int
}

func newPackedWords(n, perWord int) packedWords {
	return packedWords{words: make([]uint32, (n+perWord-1)/perWord), n: n, perWord: perWord}
}

// updateSpan walks vals word by word. For each word it runs a CAS loop that
// unpacks the current value, lets combine rewrite the sub-elements selected by
// mask, and repacks. Sub-elements outside [offset, offset+len(vals)) are never
// rewritten.
func (p *packedWords) updateSpan(offset int, vals []float32, combine func(old uint32, contrib []float32, mask []bool) uint32) {
	contrib := make([]float32, p.perWord)
	mask := make([]bool, p.perWord)
	for i := 0; i < len(vals); {
		word := (offset + i) / p.perWord
		clear(mask)
		for lane := (offset + i) % p.perWord; lane < p.perWord && i < len(vals); lane++ {
			contrib[lane] = vals[i]
			mask[lane] = true
			i++
		}
		casUint32(&p.words[word], func(old uint32) uint32 {
			return combine(old, contrib, mask)
		})
	}
}

// Packed16x2 is an output buffer of 16-bit floats, two per 32-bit word.
type Packed16x2[H Half] struct {
	packedWords
	to   func(H) float32
	from func(float32) H
}

// NewPacked16x2 allocates n zeroed elements.
func NewPacked16x2[H Half](n int) *Packed16x2[H] {
	return &Packed16x2[H]{
		packedWords: newPackedWords(n, 2),
		to:          tile.ToFloat32Func[H](),
		from:        tile.FromFloat32Func[H](),
	}
}

// AtomicAdd adds v to the pair stored in word. Each sub-element is summed in
// float32 and rounded back to H.
func (b *Packed16x2[H]) AtomicAdd(word int, v [2]H) {
	casUint32(&b.words[word], func(old uint32) uint32 {
		cur := Unpack16x2[H](old)
		return Pack16x2([2]H{
			b.from(b.to(cur[0]) + b.to(v[0])),
			b.from(b.to(cur[1]) + b.to(v[1])),
		})
	})
}

// Word returns the pair stored in word.
func (b *Packed16x2[H]) Word(word int) [2]H {
	return Unpack16x2[H](atomic.LoadUint32(&b.words[word]))
}

// At returns element i.
func (b *Packed16x2[H]) At(i int) H {
	return b.Word(i / 2)[i%2]
}

// Len returns the number of elements.
func (b *Packed16x2[H]) Len() int { return b.n }

// DataType returns the element type.
func (b *Packed16x2[H]) DataType() tile.DataType { return tile.DataTypeOf[H]() }

// Float32At returns element i widened to float32.
func (b *Packed16x2[H]) Float32At(i int) float32 { return b.to(b.At(i)) }

// StoreSpan rounds vals and stores them at offset, leaving the other
// elements of the touched words as they are.
func (b *Packed16x2[H]) StoreSpan(offset int, vals []float32) {
	b.updateSpan(offset, vals, func(old uint32, contrib []float32, mask []bool) uint32 {
		cur := Unpack16x2[H](old)
		for lane := range cur {
			if mask[lane] {
				cur[lane] = b.from(contrib[lane])
			}
		}
		return Pack16x2(cur)
	})
}

// AtomicAddSpan adds vals at offset with one compare-and-swap per word.
func (b *Packed16x2[H]) AtomicAddSpan(offset int, vals []float32) {
	b.updateSpan(offset, vals, func(old uint32, contrib []float32, mask []bool) uint32 {
		cur := Unpack16x2[H](old)
		for lane := range cur {
			if mask[lane] {
				cur[lane] = b.from(b.to(cur[lane]) + contrib[lane])
			}
		}
		return Pack16x2(cur)
	})
}

// Packed8x4 is an output buffer of 8-bit floats, four per 32-bit word.
type Packed8x4[Q Quarter] struct {
	packedWords
	to   func(Q) float32
	from func(float32) Q
}

// NewPacked8x4 allocates n zeroed elements.
func NewPacked8x4[Q Quarter](n int) *Packed8x4[Q] {
	return &Packed8x4[Q]{
		packedWords: newPackedWords(n, 4),
		to:          tile.ToFloat32Func[Q](),
		from:        tile.FromFloat32Func[Q](),
	}
}

// AtomicAdd adds v to the four values stored in word.
func (b *Packed8x4[Q]) AtomicAdd(word int, v [4]Q) {
	casUint32(&b.words[word], func(old uint32) uint32 {
		cur := Unpack8x4[Q](old)
		for i := range cur {
			cur[i] = b.from(b.to(cur[i]) + b.to(v[i]))
		}
		return Pack8x4(cur)
	})
}

// Word returns the four values stored in word.
func (b *Packed8x4[Q]) Word(word int) [4]Q {
	return Unpack8x4[Q](atomic.LoadUint32(&b.words[word]))
}

// At returns element i.
func (b *Packed8x4[Q]) At(i int) Q {
	return b.Word(i / 4)[i%4]
}

// Len returns the number of elements.
func (b *Packed8x4[Q]) Len() int { return b.n }

// DataType returns the element type.
func (b *Packed8x4[Q]) DataType() tile.DataType { return tile.DataTypeOf[Q]() }

// Float32At returns element i widened to float32.
func (b *Packed8x4[Q]) Float32At(i int) float32 { return b.to(b.At(i)) }

// StoreSpan rounds vals and stores them at offset, leaving the other
// elements of the touched words as they are.
func (b *Packed8x4[Q]) StoreSpan(offset int, vals []float32) {
	b.updateSpan(offset, vals, func(old uint32, contrib []float32, mask []bool) uint32 {
		cur := Unpack8x4[Q](old)
		for lane := range cur {
			if mask[lane] {
				cur[lane] = b.from(contrib[lane])
			}
		}
		return Pack8x4(cur)
	})
}

// AtomicAddSpan adds vals at offset with one compare-and-swap per word.
func (b *Packed8x4[Q]) AtomicAddSpan(offset int, vals []float32) {
	b.updateSpan(offset, vals, func(old uint32, contrib []float32, mask []bool) uint32 {
		cur := Unpack8x4[Q](old)
		for lane := range cur {
			if mask[lane] {
				cur[lane] = b.from(b.to(cur[lane]) + contrib[lane])
			}
		}
		return Pack8x4(cur)
	})
}

var (
	_ Output = (*Float32s)(nil)
	_ Output = (*Float64s)(nil)
	_ Output = (*Int32s)(nil)
	_ Output = (*Packed16x2[tile.BFloat16])(nil)
	_ Output = (*Packed16x2[tile.Float16])(nil)
	_ Output = (*Packed8x4[tile.Float8E4M3])(nil)
	_ Output = (*Packed8x4[tile.Float8E5M2])(nil)
)

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
	"unsafe"

	"github.com/gomlx/exceptions"
)

// ScratchAlignment is the byte alignment of every region carved from a
// ScratchArena.
const ScratchAlignment = 16

// AlignUp rounds n up to a multiple of align.
func AlignUp(n, align int) int {
	return (n + align - 1) / align * align
}

// ScratchArena is the fixed-size scratch region of one group. It is sized
// once, carved into typed regions in the prologue and reused in place for
// every iteration.
type ScratchArena struct {
	words []uint64 // backing store; uint64 keeps the base 8-byte aligned
	size  int
	used  int
}

// NewScratchArena allocates an arena of size bytes.
func NewScratchArena(size int) *ScratchArena {
	return &ScratchArena{words: make([]uint64, (size+7)/8+ScratchAlignment/8), size: size}
}

// Size returns the capacity in bytes.
func (a *ScratchArena) Size() int { return a.size }

// Used returns the bytes carved so far.
func (a *ScratchArena) Used() int { return a.used }

// Reset releases every region so the arena can be carved again.
func (a *ScratchArena) Reset() { a.used = 0 }

// pad returns the offset of the first ScratchAlignment-aligned byte of the
// backing store.
func (a *ScratchArena) pad() int {
	p := int(uintptr(unsafe.Pointer(&a.words[0])))
	return AlignUp(p, ScratchAlignment) - p
}

// ScratchSlice carves count elements of T from the arena, starting at the
// next ScratchAlignment boundary.
func ScratchSlice[T Element](a *ScratchArena, count int) []T {
	start := AlignUp(a.used, ScratchAlignment)
	end := start + count*SizeOf[T]()
	if end > a.size {
		exceptions.Panicf("ScratchSlice: %d bytes at offset %d exceed the %d-byte arena", count*SizeOf[T](), start, a.size)
	}
	a.used = end
	if count == 0 {
		return nil
	}
	ptr := (*T)(unsafe.Add(unsafe.Pointer(&a.words[0]), a.pad()+start))
	return unsafe.Slice(ptr, count)
}

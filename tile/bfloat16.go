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

import "math"

// BFloat16 is a Brain Float 16 number: a float32 with the lower 16 mantissa
// bits dropped.
//
//	S | EEEEEEEE | MMMMMMM
type BFloat16 uint16

// Float32 widens b to float32. Exact.
func (b BFloat16) Float32() float32 {
	return math.Float32frombits(uint32(b) << 16)
}

// NewBFloat16 rounds f to the nearest BFloat16, ties to even.
func NewBFloat16(f float32) BFloat16 {
	bits := math.Float32bits(f)
	if bits&0x7FFFFFFF > 0x7F800000 {
		// Quiet the NaN, keep the sign.
		return BFloat16((bits >> 16) | 0x0040)
	}
	// Bit 15 is the rounding position; bit 16 breaks ties toward even.
	bits += 0x7FFF + ((bits >> 16) & 1)
	return BFloat16(bits >> 16)
}

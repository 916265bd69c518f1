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

// Package atomics combines partial results written concurrently by
// independent groups into shared output memory. It is the only channel groups
// use to communicate, and it is what makes split-K reductions correct.
//
// Word-wide element types (float32, float64, int32, uint32) update one
// machine word per element. Narrower types are packed into 32-bit words
// (Packed16x2 holds two 16-bit floats, Packed8x4 four 8-bit floats) and are
// updated with a compare-and-swap loop:
//
//	load word → unpack → add in float32 → repack → CAS, retry on conflict
//
// The loop has no retry bound; it returns once its CAS wins.
//
// Element 0 of a packed word always lives in the least significant bits (see
// Pack16x2, Pack8x4). This pins the lane order independently of host
// endianness.
//
// Operations a type does not support are absent from its method set or type
// constraint, so requesting them fails to compile rather than producing a
// wrong answer: for instance Packed16x2 has no AtomicMax, and there is no
// packed int8 buffer.
package atomics

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

import "fmt"

// Coord is a 2D coordinate or extent: {dim0, dim1}.
type Coord [2]int

// Add returns c + o.
func (c Coord) Add(o Coord) Coord {
	return Coord{c[0] + o[0], c[1] + o[1]}
}

// Size returns the number of elements of an extent.
func (c Coord) Size() int {
	return c[0] * c[1]
}

// String formats c as "{d0, d1}".
func (c Coord) String() string {
	return fmt.Sprintf("{%d, %d}", c[0], c[1])
}

// Layout is the memory order of a 2D matrix.
type Layout int

const (
	// RowMajor stores dim 1 contiguously.
	RowMajor Layout = iota
	// ColumnMajor stores dim 0 contiguously.
	ColumnMajor
)

// String returns "row" or "col".
func (l Layout) String() string {
	if l == ColumnMajor {
		return "col"
	}
	return "row"
}

// ParseLayout accepts "row"/"r" and "col"/"c".
func ParseLayout(s string) (Layout, bool) {
	switch s {
	case "row", "r", "R":
		return RowMajor, true
	case "col", "c", "C":
		return ColumnMajor, true
	}
	return RowMajor, false
}

// Strides returns the element strides of a matrix with the given leading
// dimension: the distance between consecutive rows (RowMajor) or columns
// (ColumnMajor).
func (l Layout) Strides(ld int) Coord {
	if l == ColumnMajor {
		return Coord{1, ld}
	}
	return Coord{ld, 1}
}

// MemoryTier is where a tensor view lives.
type MemoryTier int

const (
	Bulk MemoryTier = iota
	Scratch
	Register
)

// String returns the tier name.
func (t MemoryTier) String() string {
	switch t {
	case Bulk:
		return "bulk"
	case Scratch:
		return "scratch"
	case Register:
		return "register"
	}
	return "unknown"
}

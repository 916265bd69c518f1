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
	"errors"
	"fmt"
)

// ErrViewBounds is returned when a view's data slice is too short for its
// lengths and strides.
var ErrViewBounds = errors.New("tensor view out of bounds")

// TensorView is a strided 2D view of a slice in one memory tier.
//
// Element (i, j) lives at data[i*strides[0] + j*strides[1]]. Reads outside
// lengths return the zero value and writes outside lengths are dropped, which
// is how boundary padding is implemented.
type TensorView[T Element] struct {
	data    []T
	lengths Coord
	strides Coord
	tier    MemoryTier
}

// NewTensorView creates a packed view: the leading dimension equals the
// contiguous extent of the layout.
func NewTensorView[T Element](data []T, lengths Coord, layout Layout, tier MemoryTier) (*TensorView[T], error) {
	ld := lengths[1]
	if layout == ColumnMajor {
		ld = lengths[0]
	}
	return NewStridedView(data, lengths, layout.Strides(ld), tier)
}

// NewStridedView creates a view with explicit strides.
func NewStridedView[T Element](data []T, lengths, strides Coord, tier MemoryTier) (*TensorView[T], error) {
	if lengths[0] <= 0 || lengths[1] <= 0 {
		return nil, fmt.Errorf("%w: lengths %s must be positive", ErrViewBounds, lengths)
	}
	if strides[0] <= 0 || strides[1] <= 0 {
		return nil, fmt.Errorf("%w: strides %s must be positive", ErrViewBounds, strides)
	}
	last := (lengths[0]-1)*strides[0] + (lengths[1]-1)*strides[1]
	if last >= len(data) {
		return nil, fmt.Errorf("%w: lengths %s with strides %s need %d elements, have %d",
			ErrViewBounds, lengths, strides, last+1, len(data))
	}
	return &TensorView[T]{data: data, lengths: lengths, strides: strides, tier: tier}, nil
}

// Lengths returns the logical extent of the view.
func (v *TensorView[T]) Lengths() Coord { return v.lengths }

// Strides returns the element strides.
func (v *TensorView[T]) Strides() Coord { return v.strides }

// Tier returns the memory tier.
func (v *TensorView[T]) Tier() MemoryTier { return v.tier }

// Data returns the underlying slice.
func (v *TensorView[T]) Data() []T { return v.data }

// ContiguousAxis returns the axis with unit stride; dim 1 wins ties.
func (v *TensorView[T]) ContiguousAxis() int {
	if v.strides[1] == 1 {
		return 1
	}
	if v.strides[0] == 1 {
		return 0
	}
	return 1
}

// Offset returns the flat index of c, and false if c is outside the view.
func (v *TensorView[T]) Offset(c Coord) (int, bool) {
	if c[0] < 0 || c[1] < 0 || c[0] >= v.lengths[0] || c[1] >= v.lengths[1] {
		return 0, false
	}
	return c[0]*v.strides[0] + c[1]*v.strides[1], true
}

// At returns the element at c, or zero outside the view.
func (v *TensorView[T]) At(c Coord) T {
	if i, ok := v.Offset(c); ok {
		return v.data[i]
	}
	var zero T
	return zero
}

// Set writes the element at c. Writes outside the view are dropped.
func (v *TensorView[T]) Set(c Coord, x T) {
	if i, ok := v.Offset(c); ok {
		v.data[i] = x
	}
}

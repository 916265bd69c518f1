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

	"github.com/gomlx/exceptions"
)

// ErrWindowShape is returned when a window's extent is incompatible with its
// distribution or with the block shape it is declared for.
var ErrWindowShape = errors.New("incompatible window shape")

// Window is a movable rectangular view of a TensorView, distributed over the
// lanes of a group.
//
// A Window is a small value: the pipeline gives each lane its own copy, so
// Move only ever mutates lane-local state.
type Window[T Element] struct {
	view    *TensorView[T]
	origin  Coord
	lengths Coord
	dist    Distribution
}

// NewWindow creates a window of the given lengths at origin.
func NewWindow[T Element](view *TensorView[T], lengths, origin Coord, dist Distribution) (*Window[T], error) {
	if view == nil {
		return nil, fmt.Errorf("%w: nil view", ErrWindowShape)
	}
	if lengths[0] <= 0 || lengths[1] <= 0 {
		return nil, fmt.Errorf("%w: lengths %s must be positive", ErrWindowShape, lengths)
	}
	if err := dist.Check(lengths); err != nil {
		return nil, err
	}
	return &Window[T]{view: view, origin: origin, lengths: lengths, dist: dist}, nil
}

// NewBlockWindow is NewWindow with an additional check that lengths equal the
// declared block extent, so a mis-sized window is rejected before any data
// moves.
func NewBlockWindow[T Element](view *TensorView[T], lengths, block, origin Coord, dist Distribution) (*Window[T], error) {
	if lengths != block {
		return nil, fmt.Errorf("%w: window lengths %s do not match block shape %s", ErrWindowShape, lengths, block)
	}
	return NewWindow(view, lengths, origin, dist)
}

// Clone returns an independent copy sharing the same view.
func (w *Window[T]) Clone() *Window[T] {
	c := *w
	return &c
}

// Origin returns the window origin in view coordinates.
func (w *Window[T]) Origin() Coord { return w.origin }

// Lengths returns the window extent.
func (w *Window[T]) Lengths() Coord { return w.lengths }

// Distribution returns the lane distribution.
func (w *Window[T]) Distribution() Distribution { return w.dist }

// View returns the underlying tensor view.
func (w *Window[T]) View() *TensorView[T] { return w.view }

// Tier returns the memory tier of the underlying view.
func (w *Window[T]) Tier() MemoryTier { return w.view.tier }

// Move translates the origin by offset.
func (w *Window[T]) Move(offset Coord) {
	w.origin = w.origin.Add(offset)
}

// Order returns the lane order matching the view's contiguous axis: the order
// Load produces and the only order Store accepts.
func (w *Window[T]) Order() Order {
	return orderForAxis(w.view.ContiguousAxis())
}

// At returns the element at window coordinate c.
func (w *Window[T]) At(c Coord) T {
	return w.view.At(w.origin.Add(c))
}

// LoadLane fills dst with the elements lane owns, in w.Order().
func (w *Window[T]) LoadLane(lane int, dst []T) {
	band := w.dist.BandRows(w.lengths)
	cols := w.lengths[1]
	if len(dst) < band*cols {
		exceptions.Panicf("LoadLane: lane buffer has %d elements, need %d", len(dst), band*cols)
	}
	order := w.Order()
	row0 := w.origin[0] + lane*band
	for r := range band {
		for c := range cols {
			dst[laneIndex(r, c, band, cols, order)] = w.view.At(Coord{row0 + r, w.origin[1] + c})
		}
	}
}

// StoreLane writes lane's elements from src, which must be in w.Order().
func (w *Window[T]) StoreLane(lane int, src []T, order Order) {
	if order != w.Order() {
		exceptions.Panicf("StoreLane: %s tile does not match %s %s destination; shuffle first",
			order, w.view.tier, w.Order())
	}
	band := w.dist.BandRows(w.lengths)
	cols := w.lengths[1]
	if len(src) < band*cols {
		exceptions.Panicf("StoreLane: lane buffer has %d elements, need %d", len(src), band*cols)
	}
	row0 := w.origin[0] + lane*band
	for r := range band {
		for c := range cols {
			w.view.Set(Coord{row0 + r, w.origin[1] + c}, src[laneIndex(r, c, band, cols, order)])
		}
	}
}

// Load reads the whole window into a new distributed tile.
func (w *Window[T]) Load() *DistributedTile[T] {
	t := NewDistributedTile[T](w.lengths, w.dist, w.Order())
	for l := range w.dist.Lanes {
		w.LoadLane(l, t.lanes[l])
	}
	return t
}

// Store writes a distributed tile into the window.
func (w *Window[T]) Store(t *DistributedTile[T]) {
	if t.lengths != w.lengths || t.dist != w.dist {
		exceptions.Panicf("Store: tile %s over %d lanes does not fit window %s over %d lanes",
			t.lengths, t.dist.Lanes, w.lengths, w.dist.Lanes)
	}
	for l := range w.dist.Lanes {
		w.StoreLane(l, t.lanes[l], t.order)
	}
}

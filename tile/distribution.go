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
	"fmt"

	"github.com/gomlx/exceptions"
)

// Distribution assigns the elements of a tile to the lanes of a group.
//
// Lanes own contiguous bands of dim 0: lane l owns rows
// [l*rows/Lanes, (l+1)*rows/Lanes) and every column of those rows. Ownership
// depends only on the coordinate, never on the order in which a lane keeps
// its elements, so reordering (Shuffle) never moves data between lanes.
type Distribution struct {
	Lanes int
}

// Check returns an error if lengths cannot be split evenly over the lanes.
func (d Distribution) Check(lengths Coord) error {
	if d.Lanes <= 0 {
		return fmt.Errorf("%w: distribution needs at least one lane, got %d", ErrWindowShape, d.Lanes)
	}
	if lengths[0]%d.Lanes != 0 {
		return fmt.Errorf("%w: %d rows do not split over %d lanes", ErrWindowShape, lengths[0], d.Lanes)
	}
	return nil
}

// BandRows returns how many rows each lane owns for a tile of the given lengths.
func (d Distribution) BandRows(lengths Coord) int {
	return lengths[0] / d.Lanes
}

// LaneSize returns the number of elements each lane holds.
func (d Distribution) LaneSize(lengths Coord) int {
	return d.BandRows(lengths) * lengths[1]
}

// Owner returns the lane owning c.
func (d Distribution) Owner(c Coord, lengths Coord) int {
	return c[0] / d.BandRows(lengths)
}

// Order is the order in which a lane keeps its elements.
type Order int

const (
	// Dim1Fastest keeps each row of the band contiguous.
	Dim1Fastest Order = iota
	// Dim0Fastest keeps each column of the band contiguous.
	Dim0Fastest
)

// String returns the order name.
func (o Order) String() string {
	if o == Dim0Fastest {
		return "dim0-fastest"
	}
	return "dim1-fastest"
}

// Transposed returns the other order.
func (o Order) Transposed() Order {
	return 1 - o
}

// orderForAxis returns the order that matches a contiguous memory axis.
func orderForAxis(axis int) Order {
	if axis == 0 {
		return Dim0Fastest
	}
	return Dim1Fastest
}

// laneIndex returns the position of band-local (r, c) in a lane buffer.
func laneIndex(r, c, bandRows, cols int, order Order) int {
	if order == Dim0Fastest {
		return c*bandRows + r
	}
	return r*cols + c
}

// DistributedTile is a tile held in lane registers: one slice per lane.
type DistributedTile[T Element] struct {
	lengths Coord
	dist    Distribution
	order   Order
	lanes   [][]T
}

// NewDistributedTile allocates a zeroed distributed tile.
func NewDistributedTile[T Element](lengths Coord, dist Distribution, order Order) *DistributedTile[T] {
	if err := dist.Check(lengths); err != nil {
		exceptions.Panicf("NewDistributedTile: %v", err)
	}
	size := dist.LaneSize(lengths)
	t := &DistributedTile[T]{lengths: lengths, dist: dist, order: order, lanes: make([][]T, dist.Lanes)}
	for l := range t.lanes {
		t.lanes[l] = make([]T, size)
	}
	return t
}

// Lengths returns the tile extent.
func (t *DistributedTile[T]) Lengths() Coord { return t.lengths }

// Distribution returns the lane distribution.
func (t *DistributedTile[T]) Distribution() Distribution { return t.dist }

// Order returns the lane-local element order.
func (t *DistributedTile[T]) Order() Order { return t.order }

// Lane returns the registers of one lane.
func (t *DistributedTile[T]) Lane(lane int) []T { return t.lanes[lane] }

// At returns the element at tile coordinate c, wherever it lives.
func (t *DistributedTile[T]) At(c Coord) T {
	lane, idx := t.locate(c)
	return t.lanes[lane][idx]
}

// Set writes the element at tile coordinate c.
func (t *DistributedTile[T]) Set(c Coord, x T) {
	lane, idx := t.locate(c)
	t.lanes[lane][idx] = x
}

func (t *DistributedTile[T]) locate(c Coord) (lane, idx int) {
	band := t.dist.BandRows(t.lengths)
	lane = c[0] / band
	return lane, laneIndex(c[0]-lane*band, c[1], band, t.lengths[1], t.order)
}

// ShuffleLane reorders one lane's band from order `from` into dst, which then
// holds the same elements in from.Transposed() order. This is the register
// reshuffle used when an operand's memory layout does not match the
// orientation scratch memory expects.
func ShuffleLane[T Element](dst, src []T, bandRows, cols int, from Order) {
	if len(dst) < bandRows*cols || len(src) < bandRows*cols {
		exceptions.Panicf("ShuffleLane: buffers of %d and %d elements too short for a %dx%d band",
			len(dst), len(src), bandRows, cols)
	}
	to := from.Transposed()
	for r := range bandRows {
		for c := range cols {
			dst[laneIndex(r, c, bandRows, cols, to)] = src[laneIndex(r, c, bandRows, cols, from)]
		}
	}
}

// Shuffle returns a copy of t in the transposed lane order.
func Shuffle[T Element](t *DistributedTile[T]) *DistributedTile[T] {
	out := NewDistributedTile[T](t.lengths, t.dist, t.order.Transposed())
	band := t.dist.BandRows(t.lengths)
	for l := range t.lanes {
		ShuffleLane(out.lanes[l], t.lanes[l], band, t.lengths[1], t.order)
	}
	return out
}

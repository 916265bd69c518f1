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

package pipeline

import (
	"github.com/gomlx/exceptions"

	"github.com/kylasa/composable-kernel/tile"
)

type slotState uint8

const (
	slotEmpty slotState = iota
	slotStaged
)

// StagingRing holds the operand tiles a lane has read from bulk memory but
// not yet written to scratch. Each slot moves Empty -> Staged on Issue and
// back to Empty on Commit; any other transition panics.
type StagingRing[A, B tile.Element] struct {
	a     [][]A
	b     [][]B
	state []slotState
	tiles []int // tile index held by each staged slot
}

// NewStagingRing allocates depth slots of aSize and bSize elements.
func NewStagingRing[A, B tile.Element](depth, aSize, bSize int) *StagingRing[A, B] {
	r := &StagingRing[A, B]{
		a:     make([][]A, depth),
		b:     make([][]B, depth),
		state: make([]slotState, depth),
		tiles: make([]int, depth),
	}
	for i := range depth {
		r.a[i] = make([]A, aSize)
		r.b[i] = make([]B, bSize)
	}
	return r
}

// Depth returns the number of slots.
func (r *StagingRing[A, B]) Depth() int { return len(r.state) }

// InFlight returns the number of staged slots.
func (r *StagingRing[A, B]) InFlight() int {
	n := 0
	for _, s := range r.state {
		if s == slotStaged {
			n++
		}
	}
	return n
}

// Issue claims slot for tileIndex and returns the buffers to read it into.
func (r *StagingRing[A, B]) Issue(slot, tileIndex int) ([]A, []B) {
	if r.state[slot] != slotEmpty {
		exceptions.Panicf("staging slot %d still holds tile %d, cannot issue tile %d", slot, r.tiles[slot], tileIndex)
	}
	r.state[slot] = slotStaged
	r.tiles[slot] = tileIndex
	return r.a[slot], r.b[slot]
}

// Commit releases slot, which must hold tileIndex, and returns its buffers.
// They stay valid until the slot is issued again.
func (r *StagingRing[A, B]) Commit(slot, tileIndex int) ([]A, []B) {
	if r.state[slot] != slotStaged {
		exceptions.Panicf("staging slot %d is empty, cannot commit tile %d", slot, tileIndex)
	}
	if r.tiles[slot] != tileIndex {
		exceptions.Panicf("staging slot %d holds tile %d, cannot commit tile %d", slot, r.tiles[slot], tileIndex)
	}
	r.state[slot] = slotEmpty
	return r.a[slot], r.b[slot]
}

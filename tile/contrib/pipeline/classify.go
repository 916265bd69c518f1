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

import "fmt"

// State is the classification of one K loop. It is immutable once built;
// a State without a hot loop always has Tail == TailFull.
type State struct {
	IterationCount int
	Depth          int
	HotLoop        bool
	Tail           TailNumber
}

// Variant returns the specialization key of s.
func (s State) Variant() Variant {
	return Variant{HotLoop: s.HotLoop, Tail: s.Tail}
}

// TailSteps returns how many steps the tail runs.
func (s State) TailSteps() int {
	switch {
	case s.Tail != TailFull:
		return int(s.Tail)
	case s.HotLoop:
		return s.Depth
	default:
		return s.IterationCount
	}
}

// HotSteps returns how many steps the hot loop runs; always a multiple of
// Depth.
func (s State) HotSteps() int {
	return s.IterationCount - s.TailSteps()
}

func (s State) String() string {
	return fmt.Sprintf("n=%d depth=%d %s", s.IterationCount, s.Depth, s.Variant())
}

// HasHotLoop reports whether a loop of n tiles at the given depth runs the
// hot loop.
func HasHotLoop(n, depth int) bool {
	return n > depth
}

// TailNumberOf returns the tail tag of a loop of n tiles.
func TailNumberOf(n, depth int) TailNumber {
	if !HasHotLoop(n, depth) {
		return TailFull
	}
	return TailNumber(n % depth)
}

func checkDepth(n, depth int) error {
	if depth < MinPrefetchStages || depth > MaxPrefetchStages {
		return &UnsupportedTailError{Depth: depth, IterationCount: n,
			Reason: fmt.Sprintf("depth must be in [%d, %d]", MinPrefetchStages, MaxPrefetchStages)}
	}
	if n < 1 {
		return &UnsupportedTailError{Depth: depth, IterationCount: n, Reason: "the loop needs at least one tile"}
	}
	return nil
}

// Classify returns the state of a loop of n tiles at the given depth. It is
// a pure function of (n, depth).
func Classify(n, depth int) (State, error) {
	if err := checkDepth(n, depth); err != nil {
		return State{}, err
	}
	return State{
		IterationCount: n,
		Depth:          depth,
		HotLoop:        HasHotLoop(n, depth),
		Tail:           TailNumberOf(n, depth),
	}, nil
}

// NewState builds a state from a forced hot-loop flag and tail tag. The
// combination must be the one Classify derives for (n, depth).
func NewState(n, depth int, hot bool, tail TailNumber) (State, error) {
	want, err := Classify(n, depth)
	if err != nil {
		return State{}, err
	}
	forced := Variant{HotLoop: hot, Tail: tail}
	if forced != want.Variant() {
		reason := fmt.Sprintf("forced %s, loop classifies as %s", forced, want.Variant())
		if !hot && tail != TailFull {
			reason = "a loop without a hot loop always drains with TailFull"
		}
		return State{}, &UnsupportedTailError{Depth: depth, IterationCount: n, Variant: forced, Reason: reason}
	}
	return want, nil
}

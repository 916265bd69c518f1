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

// Supported prefetch depths (number of tiles in flight).
const (
	MinPrefetchStages = 2
	MaxPrefetchStages = 8
)

// TailNumber tags how the tail of the K loop drains.
//
// TailOne..TailSeven mean the tail runs that many steps; TailFull means it
// drains every tile in flight: depth tiles after a hot loop, or all n tiles
// when there is no hot loop.
type TailNumber int

const (
	TailFull TailNumber = iota
	TailOne
	TailTwo
	TailThree
	TailFour
	TailFive
	TailSix
	TailSeven
)

var tailNames = [...]string{"Full", "One", "Two", "Three", "Four", "Five", "Six", "Seven"}

func (t TailNumber) String() string {
	if t >= 0 && int(t) < len(tailNames) {
		return tailNames[t]
	}
	return fmt.Sprintf("TailNumber(%d)", int(t))
}

// valid reports whether t is one of the defined tags.
func (t TailNumber) valid() bool {
	return t >= TailFull && t <= TailSeven
}

// Variant identifies one specialization of the pipeline.
type Variant struct {
	HotLoop bool
	Tail    TailNumber
}

func (v Variant) String() string {
	if v.HotLoop {
		return "hot/" + v.Tail.String()
	}
	return "cold/" + v.Tail.String()
}

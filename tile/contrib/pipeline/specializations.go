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
	"cmp"
	"fmt"
	"slices"

	"github.com/samber/lo"
	"k8s.io/klog/v2"
)

// Scheduler is the compiled schedule of one Variant at one depth.
type Scheduler struct {
	depth   int
	variant Variant
}

// Depth returns the prefetch depth the scheduler was built for.
func (s *Scheduler) Depth() int { return s.depth }

// Variant returns the variant the scheduler runs.
func (s *Scheduler) Variant() Variant { return s.variant }

func (s *Scheduler) String() string {
	return fmt.Sprintf("depth %d %s", s.depth, s.variant)
}

// Plan is the phase split of one run.
type Plan struct {
	State
	HotTrips int // trips of Depth steps through the hot loop
}

// Plan returns the phase split for a loop of n tiles. The loop must classify
// as the scheduler's variant.
func (s *Scheduler) Plan(n int) (Plan, error) {
	st, err := Classify(n, s.depth)
	if err != nil {
		return Plan{}, err
	}
	if st.Variant() != s.variant {
		return Plan{}, &UnsupportedTailError{Depth: s.depth, IterationCount: n, Variant: s.variant,
			Reason: fmt.Sprintf("loop classifies as %s", st.Variant())}
	}
	return Plan{State: st, HotTrips: st.HotSteps() / s.depth}, nil
}

// Specializations is the closed table of schedulers for one depth:
// (hot, One..depth-1), (hot, Full) and (cold, Full).
type Specializations struct {
	depth int
	table map[Variant]*Scheduler
}

// NewSpecializations builds the table for depth.
func NewSpecializations(depth int) (*Specializations, error) {
	if err := checkDepth(1, depth); err != nil {
		return nil, err
	}
	tails := lo.Map(lo.RangeFrom(1, min(depth-1, int(TailSeven))), func(k int, _ int) Variant {
		return Variant{HotLoop: true, Tail: TailNumber(k)}
	})
	variants := append(tails, Variant{HotLoop: true, Tail: TailFull}, Variant{HotLoop: false, Tail: TailFull})
	table := lo.SliceToMap(variants, func(v Variant) (Variant, *Scheduler) {
		return v, &Scheduler{depth: depth, variant: v}
	})
	return &Specializations{depth: depth, table: table}, nil
}

// Depth returns the depth the table was built for.
func (t *Specializations) Depth() int { return t.depth }

// Variants lists the supported variants: cold first, then hot by tail tag
// with Full last.
func (t *Specializations) Variants() []Variant {
	vs := lo.Keys(t.table)
	slices.SortFunc(vs, func(a, b Variant) int {
		if a.HotLoop != b.HotLoop {
			return cmp.Compare(lo.Ternary(a.HotLoop, 1, 0), lo.Ternary(b.HotLoop, 1, 0))
		}
		return cmp.Compare(tailOrder(a.Tail), tailOrder(b.Tail))
	})
	return vs
}

// tailOrder sorts TailFull after every numbered tag.
func tailOrder(t TailNumber) int {
	if t == TailFull {
		return int(TailSeven) + 1
	}
	return int(t)
}

// LookupVariant returns the scheduler for v.
func (t *Specializations) LookupVariant(v Variant) (*Scheduler, error) {
	if !v.Tail.valid() {
		return nil, &UnsupportedTailError{Depth: t.depth, Variant: v, Reason: "unknown tail tag"}
	}
	s, ok := t.table[v]
	if !ok {
		return nil, &UnsupportedTailError{Depth: t.depth, Variant: v, Reason: "no specialization for this variant"}
	}
	return s, nil
}

// Lookup returns the scheduler for s, which must have been classified for
// the table's depth.
func (t *Specializations) Lookup(s State) (*Scheduler, error) {
	if s.Depth != t.depth {
		return nil, &UnsupportedTailError{Depth: t.depth, IterationCount: s.IterationCount, Variant: s.Variant(),
			Reason: fmt.Sprintf("state was classified for depth %d", s.Depth)}
	}
	sched, err := t.LookupVariant(s.Variant())
	if err != nil {
		err.(*UnsupportedTailError).IterationCount = s.IterationCount
		return nil, err
	}
	return sched, nil
}

// Select classifies a loop of n tiles and returns its scheduler.
func (t *Specializations) Select(n int) (State, *Scheduler, error) {
	st, err := Classify(n, t.depth)
	if err != nil {
		return State{}, nil, err
	}
	sched, err := t.Lookup(st)
	if err != nil {
		return State{}, nil, err
	}
	if klog.V(2).Enabled() {
		klog.Infof("pipeline: %s selected scheduler %s", st, sched)
	}
	return st, sched, nil
}

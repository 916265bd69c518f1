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

package gemm

import (
	"math"

	"github.com/kylasa/composable-kernel/tile"
	"github.com/kylasa/composable-kernel/tile/contrib/workerpool"
)

// Reference computes a·bᵀ (a is M×K, b is N×K) in float32 with a plain
// triple loop, rows spread over pool. The result is row-major M×N.
func Reference[A, B tile.Element](pool *workerpool.Pool, a *tile.TensorView[A], b *tile.TensorView[B]) []float32 {
	m, k := a.Lengths()[0], a.Lengths()[1]
	n := b.Lengths()[0]
	toA, toB := tile.ToFloat32Func[A](), tile.ToFloat32Func[B]()
	c := make([]float32, m*n)
	pool.ParallelFor(m, func(start, end int) {
		aRow := make([]float32, k)
		for i := start; i < end; i++ {
			for kk := range k {
				aRow[kk] = toA(a.At(tile.Coord{i, kk}))
			}
			for j := range n {
				var sum float32
				for kk, av := range aRow {
					sum += av * toB(b.At(tile.Coord{j, kk}))
				}
				c[i*n+j] = sum
			}
		}
	})
	return c
}

// Mismatch is the result of Compare.
type Mismatch struct {
	Count  int     // elements outside tolerance
	MaxErr float64 // largest absolute error
	First  tile.Coord
}

// Compare checks the M×N output of view against a row-major reference. An
// element passes when |got-want| <= atol + rtol×|want|; want is first rounded
// to the output type, so exact integer results compare equal. Split-K
// launches into narrow outputs round once per slice; pass an atol of at
// least RoundingTolerance for those.
func Compare(view OutputView, want []float32, rtol, atol float64) Mismatch {
	var res Mismatch
	round := roundTo(view.Out.DataType())
	m, n := view.Lengths[0], view.Lengths[1]
	for i := range m {
		for j := range n {
			got := float64(view.Out.Float32At(i*view.Strides[0] + j*view.Strides[1]))
			w := float64(round(want[i*n+j]))
			diff := math.Abs(got - w)
			if math.IsNaN(got) != math.IsNaN(w) {
				diff = math.Inf(1)
			}
			res.MaxErr = max(res.MaxErr, diff)
			if diff > atol+rtol*math.Abs(w) {
				if res.Count == 0 {
					res.First = tile.Coord{i, j}
				}
				res.Count++
			}
		}
	}
	return res
}

// RoundingTolerance returns the absolute error a correct launch may show on
// top of Compare's single rounding of want: every one of the kBatch slices
// rounds its partial sum into the dt output, each by up to half an ulp of the
// running value.
func RoundingTolerance(dt tile.DataType, kBatch int, want []float32) float64 {
	var scale float64
	for _, w := range want {
		if a := math.Abs(float64(w)); a > scale && !math.IsInf(a, 0) {
			scale = a
		}
	}
	// Running partial sums may exceed the final values; measure one binade up.
	return float64(max(kBatch, 1)) * ulp(dt, 2*scale)
}

// ulp returns the spacing of dt values at magnitude x.
func ulp(dt tile.DataType, x float64) float64 {
	var mantissa int
	switch dt {
	case tile.INT8, tile.INT32:
		return 1
	case tile.FP64:
		mantissa = 52
	case tile.FP32:
		mantissa = 23
	case tile.FP16:
		mantissa = 10
	case tile.BF16:
		mantissa = 7
	case tile.FP8:
		mantissa = 3
	case tile.BF8:
		mantissa = 2
	default:
		return 0
	}
	if x == 0 {
		return 0
	}
	_, exp := math.Frexp(x)
	return math.Ldexp(1, exp-1-mantissa)
}

// roundTo returns the float32 -> dt -> float32 round trip.
func roundTo(dt tile.DataType) func(float32) float32 {
	switch dt {
	case tile.BF16:
		return roundTrip[tile.BFloat16]()
	case tile.FP16:
		return roundTrip[tile.Float16]()
	case tile.FP8:
		return roundTrip[tile.Float8E4M3]()
	case tile.BF8:
		return roundTrip[tile.Float8E5M2]()
	case tile.INT32:
		return func(f float32) float32 { return float32(math.RoundToEven(float64(f))) }
	}
	return func(f float32) float32 { return f }
}

func roundTrip[T tile.Element]() func(float32) float32 {
	to, from := tile.ToFloat32Func[T](), tile.FromFloat32Func[T]()
	return func(f float32) float32 { return to(from(f)) }
}

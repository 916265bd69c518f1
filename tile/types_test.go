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
	"math"
	"testing"
)

func TestFloat8E4M3(t *testing.T) {
	tests := []struct {
		in   float32
		code uint8
		out  float32
	}{
		{0, 0x00, 0},
		{1, 0x38, 1},
		{-1, 0xB8, -1},
		{0.5, 0x30, 0.5},
		{448, 0x7E, 448},
		{1000, 0x7E, 448}, // saturates
		{float32(math.Inf(1)), 0x7E, 448},
		{1.0625, 0x38, 1},       // tie, rounds to even mantissa
		{1.1875, 0x3A, 1.25},    // tie, rounds up to even
		{0.001953125, 0x01, 0.001953125}, // 2^-9, smallest subnormal
	}
	for _, tt := range tests {
		got := NewFloat8E4M3(tt.in)
		if uint8(got) != tt.code {
			t.Errorf("NewFloat8E4M3(%v) = %#x, want %#x", tt.in, uint8(got), tt.code)
		}
		if f := got.Float32(); f != tt.out {
			t.Errorf("Float8E4M3(%#x).Float32() = %v, want %v", uint8(got), f, tt.out)
		}
	}
	if f := Float8E4M3(0x7F).Float32(); !math.IsNaN(float64(f)) {
		t.Errorf("0x7F = %v, want NaN", f)
	}
}

func TestFloat8E5M2(t *testing.T) {
	tests := []struct {
		in   float32
		code uint8
		out  float32
	}{
		{1, 0x3C, 1},
		{-2, 0xC0, -2},
		{57344, 0x7B, 57344},
		{1e6, 0x7B, 57344},
		{float32(math.Inf(-1)), 0xFC, float32(math.Inf(-1))},
		{1.125, 0x3C, 1}, // tie, rounds to even
	}
	for _, tt := range tests {
		got := NewFloat8E5M2(tt.in)
		if uint8(got) != tt.code {
			t.Errorf("NewFloat8E5M2(%v) = %#x, want %#x", tt.in, uint8(got), tt.code)
		}
		if f := got.Float32(); f != tt.out {
			t.Errorf("Float8E5M2(%#x).Float32() = %v, want %v", uint8(got), f, tt.out)
		}
	}
}

func TestFloat8RoundTripsEveryCode(t *testing.T) {
	for code := range 256 {
		q := Float8E4M3(code)
		if f := q.Float32(); !math.IsNaN(float64(f)) && NewFloat8E4M3(f) != q {
			t.Errorf("E4M3 %#x -> %v -> %#x", code, f, uint8(NewFloat8E4M3(f)))
		}
		r := Float8E5M2(code)
		if f := r.Float32(); !math.IsNaN(float64(f)) && NewFloat8E5M2(f) != r {
			t.Errorf("E5M2 %#x -> %v -> %#x", code, f, uint8(NewFloat8E5M2(f)))
		}
	}
}

func TestBFloat16Rounding(t *testing.T) {
	if got := NewBFloat16(1); got != 0x3F80 {
		t.Errorf("NewBFloat16(1) = %#x, want 0x3f80", uint16(got))
	}
	// 1 + 2^-8 is halfway between 1 and 1+2^-7: ties to even (1).
	if got := NewBFloat16(1 + 1.0/256).Float32(); got != 1 {
		t.Errorf("tie rounded to %v, want 1", got)
	}
	if got := NewBFloat16(float32(math.NaN())); !math.IsNaN(float64(got.Float32())) {
		t.Error("NaN did not survive conversion")
	}
}

func TestConvertersMatchDataType(t *testing.T) {
	checkRoundTrip[float32](t, FP32, 4)
	checkRoundTrip[float64](t, FP64, 8)
	checkRoundTrip[Float16](t, FP16, 2)
	checkRoundTrip[BFloat16](t, BF16, 2)
	checkRoundTrip[Float8E4M3](t, FP8, 1)
	checkRoundTrip[Float8E5M2](t, BF8, 1)
	checkRoundTrip[int8](t, INT8, 1)
	checkRoundTrip[int32](t, INT32, 4)
}

func checkRoundTrip[T Element](t *testing.T, want DataType, size int) {
	t.Helper()
	if got := DataTypeOf[T](); got != want {
		t.Errorf("DataTypeOf = %s, want %s", got, want)
	}
	if got := SizeOf[T](); got != size {
		t.Errorf("SizeOf[%s] = %d, want %d", want, got, size)
	}
	to, from := ToFloat32Func[T](), FromFloat32Func[T]()
	for _, v := range []float32{0, 1, -2, 3} {
		if got := to(from(v)); got != v {
			t.Errorf("%s round trip of %v = %v", want, v, got)
		}
	}
	if d, ok := ParseDataType(want.String()); !ok || d != want {
		t.Errorf("ParseDataType(%q) = %v, %v", want.String(), d, ok)
	}
}

func TestScratchSliceAlignment(t *testing.T) {
	a := NewScratchArena(AlignUp(3*2, ScratchAlignment) + 5*4)
	h := ScratchSlice[BFloat16](a, 3)
	f := ScratchSlice[float32](a, 5)
	if len(h) != 3 || len(f) != 5 {
		t.Fatalf("lengths %d, %d", len(h), len(f))
	}
	if a.Used() != 16+20 {
		t.Errorf("Used() = %d, want 36", a.Used())
	}
	for i := range f {
		f[i] = float32(i)
	}
	for i := range h {
		h[i] = NewBFloat16(-1)
	}
	for i := range f {
		if f[i] != float32(i) {
			t.Errorf("regions overlap: f[%d] = %v", i, f[i])
		}
	}
	a.Reset()
	if a.Used() != 0 {
		t.Errorf("Used() after Reset = %d", a.Used())
	}
}

func TestGemmShapeValidate(t *testing.T) {
	good := GemmShape{Block: Dim3{64, 32, 16}, Lanes: Dim3{2, 2, 1}, Micro: Dim3{32, 16, 16}}
	if err := good.Validate(); err != nil {
		t.Errorf("valid shape: %v", err)
	}
	if got := good.MicroOrigin(3); got != (Coord{32, 16}) {
		t.Errorf("MicroOrigin(3) = %v, want {32, 16}", got)
	}
	bad := good
	bad.Micro.M = 16
	if err := bad.Validate(); err == nil {
		t.Error("block != lanes × micro accepted")
	}
	bad = good
	bad.Lanes.K, bad.Micro.K = 2, 8
	if err := bad.Validate(); err == nil {
		t.Error("split K lanes accepted")
	}
}

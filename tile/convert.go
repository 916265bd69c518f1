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

import "github.com/x448/float16"

// ToFloat32Func returns the widening conversion for T.
//
// The type switch runs once here instead of once per element, so callers
// should hoist the returned function out of their inner loops.
func ToFloat32Func[T Element]() func(T) float32 {
	var zero T
	var fn any
	switch any(zero).(type) {
	case float32:
		fn = func(v float32) float32 { return v }
	case float64:
		fn = func(v float64) float32 { return float32(v) }
	case Float16:
		fn = func(v Float16) float32 { return v.Float32() }
	case BFloat16:
		fn = func(v BFloat16) float32 { return v.Float32() }
	case Float8E4M3:
		fn = func(v Float8E4M3) float32 { return v.Float32() }
	case Float8E5M2:
		fn = func(v Float8E5M2) float32 { return v.Float32() }
	case int8:
		fn = func(v int8) float32 { return float32(v) }
	case int32:
		fn = func(v int32) float32 { return float32(v) }
	}
	return fn.(func(T) float32)
}

// FromFloat32Func returns the narrowing conversion for T. Floating types
// round to nearest even; integer types truncate toward zero.
func FromFloat32Func[T Element]() func(float32) T {
	var zero T
	var fn any
	switch any(zero).(type) {
	case float32:
		fn = func(f float32) float32 { return f }
	case float64:
		fn = func(f float32) float64 { return float64(f) }
	case Float16:
		fn = float16.Fromfloat32
	case BFloat16:
		fn = NewBFloat16
	case Float8E4M3:
		fn = NewFloat8E4M3
	case Float8E5M2:
		fn = NewFloat8E5M2
	case int8:
		fn = func(f float32) int8 { return int8(f) }
	case int32:
		fn = func(f float32) int32 { return int32(f) }
	}
	return fn.(func(float32) T)
}

// ToFloat32 converts a single value. Prefer ToFloat32Func in loops.
func ToFloat32[T Element](v T) float32 {
	return ToFloat32Func[T]()(v)
}

// FromFloat32 converts a single value. Prefer FromFloat32Func in loops.
func FromFloat32[T Element](f float32) T {
	return FromFloat32Func[T]()(f)
}

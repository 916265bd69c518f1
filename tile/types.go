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

// Float16 is the IEEE 754 half precision type.
type Float16 = float16.Float16

// Element is the set of types a tensor view can hold.
type Element interface {
	float32 | float64 | BFloat16 | Float16 | Float8E4M3 | Float8E5M2 | int8 | int32
}

// DataType identifies an element type at runtime, for problem descriptors and
// scratch sizing.
type DataType int

const (
	// DataTypeUnknown is the zero value and never valid in a problem.
	DataTypeUnknown DataType = iota
	FP32
	FP64
	FP16
	BF16
	FP8 // OCP E4M3FN
	BF8 // OCP E5M2
	INT8
	INT32
)

// String returns the short name used in logs and CLI flags.
func (d DataType) String() string {
	switch d {
	case FP32:
		return "fp32"
	case FP64:
		return "fp64"
	case FP16:
		return "fp16"
	case BF16:
		return "bf16"
	case FP8:
		return "fp8"
	case BF8:
		return "bf8"
	case INT8:
		return "int8"
	case INT32:
		return "int32"
	default:
		return "unknown"
	}
}

// Size returns the element size in bytes, or 0 for DataTypeUnknown.
func (d DataType) Size() int {
	switch d {
	case FP64:
		return 8
	case FP32, INT32:
		return 4
	case FP16, BF16:
		return 2
	case FP8, BF8, INT8:
		return 1
	default:
		return 0
	}
}

// ParseDataType is the inverse of DataType.String.
func ParseDataType(s string) (DataType, bool) {
	for d := FP32; d <= INT32; d++ {
		if d.String() == s {
			return d, true
		}
	}
	return DataTypeUnknown, false
}

// DataTypeOf returns the DataType of T.
func DataTypeOf[T Element]() DataType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return FP32
	case float64:
		return FP64
	case Float16:
		return FP16
	case BFloat16:
		return BF16
	case Float8E4M3:
		return FP8
	case Float8E5M2:
		return BF8
	case int8:
		return INT8
	case int32:
		return INT32
	}
	return DataTypeUnknown
}

// SizeOf returns the size in bytes of one T.
func SizeOf[T Element]() int {
	return DataTypeOf[T]().Size()
}

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
	"fmt"

	"github.com/kylasa/composable-kernel/tile"
	"github.com/kylasa/composable-kernel/tile/contrib/atomics"
)

// NewOutput allocates a zeroed output buffer of n elements of type dt.
func NewOutput(dt tile.DataType, n int) (atomics.Output, error) {
	switch dt {
	case tile.FP32:
		return atomics.NewFloat32s(n), nil
	case tile.FP64:
		return atomics.NewFloat64s(n), nil
	case tile.INT32:
		return atomics.NewInt32s(n), nil
	case tile.BF16:
		return atomics.NewPacked16x2[tile.BFloat16](n), nil
	case tile.FP16:
		return atomics.NewPacked16x2[tile.Float16](n), nil
	case tile.FP8:
		return atomics.NewPacked8x4[tile.Float8E4M3](n), nil
	case tile.BF8:
		return atomics.NewPacked8x4[tile.Float8E5M2](n), nil
	}
	return nil, fmt.Errorf("%w: no output buffer for %s", ErrUnsupportedArgument, dt)
}

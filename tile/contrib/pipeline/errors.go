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
	"errors"
	"fmt"
)

// ErrUnsupportedTailConfiguration is matched (errors.Is) by every
// UnsupportedTailError.
var ErrUnsupportedTailConfiguration = errors.New("unsupported pipeline tail configuration")

// UnsupportedTailError reports a depth, trip count or variant no compiled
// specialization handles. The launch must be skipped.
type UnsupportedTailError struct {
	Depth          int
	IterationCount int
	Variant        Variant
	Reason         string
}

func (e *UnsupportedTailError) Error() string {
	return fmt.Sprintf("%v: %s (depth %d, %d iterations, %s)",
		ErrUnsupportedTailConfiguration, e.Reason, e.Depth, e.IterationCount, e.Variant)
}

func (e *UnsupportedTailError) Unwrap() error {
	return ErrUnsupportedTailConfiguration
}

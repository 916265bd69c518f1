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

import "errors"

// ErrUnsupportedArgument is wrapped by every argument check that fails. The
// launch is skipped and the output is left untouched.
var ErrUnsupportedArgument = errors.New("arguments not supported")

// ErrUnsupportedConfiguration is wrapped by Config.Validate.
var ErrUnsupportedConfiguration = errors.New("kernel configuration not supported")

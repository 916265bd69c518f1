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
	"os"
	"strconv"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// Level is the widest vector capability detected on this CPU. It only steers
// preset selection: the pipeline itself is portable Go.
type Level int

const (
	LevelGeneric Level = iota
	LevelNEON
	LevelAVX2
	LevelAVX512
)

// String returns a human-readable name for the level.
func (l Level) String() string {
	switch l {
	case LevelNEON:
		return "neon"
	case LevelAVX2:
		return "avx2"
	case LevelAVX512:
		return "avx512"
	default:
		return "generic"
	}
}

// CacheLineSize is the CPU cache line size in bytes, used to pad counters
// that different groups update concurrently.
const CacheLineSize = int(unsafe.Sizeof(cpu.CacheLinePad{}))

var currentLevel = detectLevel()

// CurrentLevel returns the detected level.
func CurrentLevel() Level {
	return currentLevel
}

// GenericEnv reports whether CKTILE_GENERIC is set, forcing LevelGeneric.
// Any non-empty value that does not parse as a bool counts as true.
func GenericEnv() bool {
	val := os.Getenv("CKTILE_GENERIC")
	if val == "" {
		return false
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}

func detectLevel() Level {
	if GenericEnv() {
		return LevelGeneric
	}
	switch {
	case cpu.X86.HasAVX512F:
		return LevelAVX512
	case cpu.X86.HasAVX2 && cpu.X86.HasFMA:
		return LevelAVX2
	case cpu.ARM64.HasASIMD:
		return LevelNEON
	}
	return LevelGeneric
}

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
	"os"
	"strconv"
	"strings"

	"k8s.io/klog/v2"

	"github.com/kylasa/composable-kernel/tile"
	"github.com/kylasa/composable-kernel/tile/contrib/pipeline"
)

// Config is the compile-time side of a kernel: tile shape, pipeline depth,
// padding and operand layouts.
//
// Without padding on an axis the problem must be a whole number of tiles on
// that axis (for K, a whole number of KBatch×KTile slices).
type Config struct {
	Name  string
	Shape tile.GemmShape
	Depth int

	PadM, PadN, PadK bool

	ALayout tile.Layout // layout of the M×K matrix A
	BLayout tile.Layout // layout of the K×N matrix B
	CLayout tile.Layout // layout of the M×N matrix C
}

// Validate checks the shape and depth.
func (c Config) Validate() error {
	if err := c.Shape.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedConfiguration, err)
	}
	if c.Depth < pipeline.MinPrefetchStages || c.Depth > pipeline.MaxPrefetchStages {
		return fmt.Errorf("%w: depth %d outside [%d, %d]", ErrUnsupportedConfiguration,
			c.Depth, pipeline.MinPrefetchStages, pipeline.MaxPrefetchStages)
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("%s: block %s lanes %s micro %s depth %d A:%s B:%s C:%s",
		c.Name, c.Shape.Block, c.Shape.Lanes, c.Shape.Micro, c.Depth, c.ALayout, c.BLayout, c.CLayout)
}

// Preset names a tuned tile configuration.
type Preset int

const (
	// PresetMemory favours bandwidth-bound problems: narrow N tiles, deep
	// prefetch.
	PresetMemory Preset = iota
	// PresetCompute favours compute-bound problems: large square tiles,
	// shallow prefetch.
	PresetCompute
)

func (p Preset) String() string {
	if p == PresetCompute {
		return "compute"
	}
	return "mem"
}

// ParsePreset accepts "mem", "memory" and "compute".
func ParsePreset(s string) (Preset, bool) {
	switch strings.ToLower(s) {
	case "mem", "memory":
		return PresetMemory, true
	case "compute":
		return PresetCompute, true
	}
	return 0, false
}

// MemoryPreset returns the memory-friendly configuration.
// 128×32×64 block tiles over 4×1 lanes of 32×32 micro tiles.
func MemoryPreset() Config {
	return Config{
		Name: "mem",
		Shape: tile.GemmShape{
			Block: tile.Dim3{M: 128, N: 32, K: 64},
			Lanes: tile.Dim3{M: 4, N: 1, K: 1},
			Micro: tile.Dim3{M: 32, N: 32, K: 64},
		},
		Depth:   4,
		ALayout: tile.RowMajor,
		BLayout: tile.ColumnMajor,
		CLayout: tile.RowMajor,
	}
}

// ComputePreset returns the compute-friendly configuration.
// 256×256×32 block tiles over 2×2 lanes of 128×128 micro tiles.
func ComputePreset() Config {
	return Config{
		Name: "compute",
		Shape: tile.GemmShape{
			Block: tile.Dim3{M: 256, N: 256, K: 32},
			Lanes: tile.Dim3{M: 2, N: 2, K: 1},
			Micro: tile.Dim3{M: 128, N: 128, K: 32},
		},
		Depth:   2,
		ALayout: tile.RowMajor,
		BLayout: tile.ColumnMajor,
		CLayout: tile.RowMajor,
	}
}

// PresetConfig returns the configuration of p.
func PresetConfig(p Preset) Config {
	if p == PresetCompute {
		return ComputePreset()
	}
	return MemoryPreset()
}

// Environment variables read by DefaultConfig and LogLevelFromEnv.
const (
	EnvPipeline       = "CKTILE_PIPELINE"
	EnvPrefetchStages = "CKTILE_PREFETCH_STAGES"
	EnvLogLevel       = "CKTILE_LOG_LEVEL"
)

// DefaultConfig picks a preset from CKTILE_PIPELINE, or from the detected
// CPU level when it is unset: wide vector units get the compute preset.
// CKTILE_PREFETCH_STAGES overrides the preset's depth.
func DefaultConfig() (Config, error) {
	preset := PresetMemory
	if tile.CurrentLevel() >= tile.LevelAVX2 {
		preset = PresetCompute
	}
	if val := os.Getenv(EnvPipeline); val != "" {
		p, ok := ParsePreset(val)
		if !ok {
			return Config{}, fmt.Errorf("%w: %s=%q, want mem or compute", ErrUnsupportedConfiguration, EnvPipeline, val)
		}
		preset = p
	}
	cfg := PresetConfig(preset)
	if val := os.Getenv(EnvPrefetchStages); val != "" {
		depth, err := strconv.Atoi(val)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s=%q: %w", ErrUnsupportedConfiguration, EnvPrefetchStages, val, err)
		}
		cfg.Depth = depth
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	klog.V(1).Infof("gemm: default config %s (cpu %s)", cfg, tile.CurrentLevel())
	return cfg, nil
}

// LogLevelFromEnv returns the verbosity requested by CKTILE_LOG_LEVEL, or 0.
func LogLevelFromEnv() int {
	val := os.Getenv(EnvLogLevel)
	if val == "" {
		return 0
	}
	level, err := strconv.Atoi(val)
	if err != nil || level < 0 {
		return 0
	}
	return level
}

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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kylasa/composable-kernel/tile"
)

func TestPresetsAreValid(t *testing.T) {
	for _, p := range []Preset{PresetMemory, PresetCompute} {
		cfg := PresetConfig(p)
		require.NoError(t, cfg.Validate(), "preset %s", p)
		assert.Equal(t, p.String(), cfg.Name)
		parsed, ok := ParsePreset(p.String())
		assert.True(t, ok)
		assert.Equal(t, p, parsed)
	}
	assert.Equal(t, tile.Dim3{M: 128, N: 32, K: 64}, MemoryPreset().Shape.Block)
	assert.Equal(t, tile.Dim3{M: 256, N: 256, K: 32}, ComputePreset().Shape.Block)
}

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv(EnvPipeline, "compute")
	t.Setenv(EnvPrefetchStages, "5")
	cfg, err := DefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, "compute", cfg.Name)
	assert.Equal(t, 5, cfg.Depth)

	t.Setenv(EnvPipeline, "mem")
	t.Setenv(EnvPrefetchStages, "")
	cfg, err = DefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, MemoryPreset(), cfg)

	t.Setenv(EnvPrefetchStages, "9")
	_, err = DefaultConfig()
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)

	t.Setenv(EnvPrefetchStages, "")
	t.Setenv(EnvPipeline, "fast")
	_, err = DefaultConfig()
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)
}

func TestLogLevelFromEnv(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	assert.Equal(t, 0, LogLevelFromEnv())
	t.Setenv(EnvLogLevel, "2")
	assert.Equal(t, 2, LogLevelFromEnv())
	t.Setenv(EnvLogLevel, "loud")
	assert.Equal(t, 0, LogLevelFromEnv())
}

func TestConfigValidate(t *testing.T) {
	cfg := MemoryPreset()
	cfg.Depth = 1
	assert.ErrorIs(t, cfg.Validate(), ErrUnsupportedConfiguration)

	cfg = MemoryPreset()
	cfg.Shape.Lanes.M = 3
	assert.ErrorIs(t, cfg.Validate(), tile.ErrInvalidShape)
}

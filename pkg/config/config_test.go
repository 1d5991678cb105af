// Copyright 2026 The Hegel Authors
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

package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestParsePartialFileOverridesOnlySetKeys(t *testing.T) {
	cfg, err := Parse([]byte(`default_meta_mode = "learning"

[guardrails]
enabled = false
`))
	require.NoError(t, err)
	assert.Equal(t, "learning", cfg.DefaultMetaMode)
	assert.False(t, cfg.Guardrails.Enabled)
	assert.Equal(t, "guardrails.yaml", cfg.Guardrails.RulesPath)
	assert.True(t, cfg.Archive.AutoRepair)
}

func TestParseExpandsEnvVars(t *testing.T) {
	t.Setenv("HEGEL_TEST_RULES_DIR", "/opt/hegel")
	cfg, err := Parse([]byte(`[guardrails]
rules_path = "${HEGEL_TEST_RULES_DIR}/guardrails.yaml"
`))
	require.NoError(t, err)
	assert.Equal(t, "/opt/hegel/guardrails.yaml", cfg.Guardrails.RulesPath)
}

func TestParseRejectsInvalidTOML(t *testing.T) {
	_, err := Parse([]byte("this is not valid toml ["))
	assert.Error(t, err)
}

func TestParseDefaultsGuardrailProviderToFile(t *testing.T) {
	cfg, err := Parse([]byte(`[guardrails]
enabled = true
`))
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Guardrails.Provider.Type)
}

func TestParseOverridesGuardrailProviderToConsul(t *testing.T) {
	cfg, err := Parse([]byte(`[guardrails.provider]
type = "consul"
consul_key = "hegel/guardrails"
`))
	require.NoError(t, err)
	assert.Equal(t, "consul", cfg.Guardrails.Provider.Type)
	assert.Equal(t, "hegel/guardrails", cfg.Guardrails.Provider.ConsulKey)
}

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

// Package config loads config.toml, the user-editable settings file the
// state directory layout names alongside guardrails.yaml. Values are
// decoded through an intermediate map so every string can go through an
// env-var expansion pass before landing in the typed Config.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"

	"github.com/hegel-dev/hegel/pkg/herr"
)

// GuardrailConfig controls the command-wrapping guardrail.
type GuardrailConfig struct {
	Enabled   bool           `mapstructure:"enabled" toml:"enabled"`
	RulesPath string         `mapstructure:"rules_path" toml:"rules_path"`
	Provider  ProviderConfig `mapstructure:"provider" toml:"provider"`
}

// ProviderConfig selects where guardrails.yaml is fetched from and watched
// for changes, per pkg/config/provider. Type defaults to "file" (the
// single-developer-machine case); "consul" and "zookeeper" centralize the
// rule list across a team, keying off ConsulKey or
// ZookeeperServers/ZookeeperPath respectively.
type ProviderConfig struct {
	Type             string   `mapstructure:"type" toml:"type"`
	ConsulKey        string   `mapstructure:"consul_key" toml:"consul_key"`
	ZookeeperServers []string `mapstructure:"zookeeper_servers" toml:"zookeeper_servers"`
	ZookeeperPath    string   `mapstructure:"zookeeper_path" toml:"zookeeper_path"`
}

// AdapterConfig holds config.toml's [adapter] table.
type AdapterConfig struct {
	// Preferred names an adapter. No code reads it: aggregation normalizes
	// each hook record by the registry's fixed adapter order whatever its
	// value.
	Preferred string `mapstructure:"preferred" toml:"preferred"`
}

// ArchiveConfig holds config.toml's [archive] table. No code reads
// AutoRepair or RepairOnStartup; they do not change when archive repair
// runs.
type ArchiveConfig struct {
	AutoRepair      bool `mapstructure:"auto_repair" toml:"auto_repair"`
	RepairOnStartup bool `mapstructure:"repair_on_startup" toml:"repair_on_startup"`
}

// Config is the decoded form of config.toml.
type Config struct {
	DefaultMetaMode string          `mapstructure:"default_meta_mode" toml:"default_meta_mode"`
	Guardrails      GuardrailConfig `mapstructure:"guardrails" toml:"guardrails"`
	Adapter         AdapterConfig   `mapstructure:"adapter" toml:"adapter"`
	Archive         ArchiveConfig   `mapstructure:"archive" toml:"archive"`
}

// Defaults returns the config used when config.toml is absent or omits a
// key; every field has a default so a fresh state directory works without
// one.
func Defaults() *Config {
	return &Config{
		DefaultMetaMode: "standard",
		Guardrails: GuardrailConfig{
			Enabled:   true,
			RulesPath: "guardrails.yaml",
			Provider:  ProviderConfig{Type: "file"},
		},
		Archive: ArchiveConfig{
			AutoRepair:      true,
			RepairOnStartup: false,
		},
	}
}

// Load reads and decodes config.toml at path. A missing file is not an
// error: Defaults() is returned unchanged, since every installed state
// directory must work without a config.toml ever having been written.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Defaults(), nil
	}
	if err != nil {
		return nil, herr.New(herr.KindStorageIO, "read "+path, err)
	}
	return Parse(data)
}

// Parse decodes config.toml content into a Config seeded with Defaults(),
// so a partial file only overrides the keys it sets.
func Parse(data []byte) (*Config, error) {
	var raw map[string]any
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, herr.New(herr.KindWorkflowLoad, "parse config.toml", err)
	}
	expandEnv(raw)

	cfg := Defaults()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, herr.New(herr.KindWorkflowLoad, "build config.toml decoder", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, herr.New(herr.KindWorkflowLoad, "decode config.toml", err)
	}
	return cfg, nil
}

// expandEnv walks a decoded TOML map in place, expanding ${VAR}/$VAR
// references in every string value (and string values nested in maps),
// the same pass hector's config loader applies before mapstructure sees
// the data. This lets guardrails.rules_path or archive toggles reference
// an environment variable, e.g. rules_path = "${HEGEL_HOME}/guardrails.yaml".
func expandEnv(v any) {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if s, ok := val.(string); ok {
				t[k] = os.ExpandEnv(s)
				continue
			}
			expandEnv(val)
		}
	case []any:
		for i, val := range t {
			if s, ok := val.(string); ok {
				t[i] = os.ExpandEnv(s)
				continue
			}
			expandEnv(val)
		}
	}
}

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

// Package provider abstracts where guardrails.yaml lives: a local file for
// a single developer machine, or a centralized key behind Consul or
// Zookeeper for a team that wants one rule list shared across machines.
// Every Provider can Load a current snapshot and Watch for the next change;
// the guardrail-wrapping command and the external TUI collaborator both
// embed a Provider rather than reading guardrails.yaml off disk directly.
package provider

import "github.com/hegel-dev/hegel/pkg/herr"

// Type names a Provider implementation.
type Type string

const (
	TypeFile      Type = "file"
	TypeConsul    Type = "consul"
	TypeZookeeper Type = "zookeeper"

	// TypeEtcd is a recognized but unimplemented provider type: no
	// retrieved pack member carries an etcd client, so New rejects it
	// rather than silently falling back to another provider.
	TypeEtcd Type = "etcd"
)

// Provider loads and watches a single configuration blob (guardrails.yaml
// content, verbatim bytes — parsing is the caller's job).
type Provider interface {
	// Load fetches the current value.
	Load() ([]byte, error)

	// Watch blocks until the value changes from last (or the Provider is
	// closed) and returns the new value. Callers loop: load, then watch
	// in a goroutine, feeding each new value back through their own
	// channel or reload path.
	Watch(last []byte) ([]byte, error)

	// Close releases the Provider's connection or watch handles. Watch
	// calls in flight return an error once Close runs.
	Close() error
}

// ErrUnimplementedProvider is returned by New for TypeEtcd.
var ErrUnimplementedProvider = herr.New(herr.KindWorkflowLoad, "etcd provider not implemented", nil)

// Options carries the union of every provider's connection parameters;
// only the fields relevant to Options.Type need to be set.
type Options struct {
	// Path is the local file path, for TypeFile.
	Path string

	// ConsulKey is the KV key holding guardrails.yaml content, for
	// TypeConsul. Consul agent address comes from the environment
	// (CONSUL_HTTP_ADDR) via api.DefaultConfig.
	ConsulKey string

	// ZookeeperServers and ZookeeperPath address an ensemble and znode,
	// for TypeZookeeper.
	ZookeeperServers []string
	ZookeeperPath    string
}

// New constructs the Provider named by typ from opts.
func New(typ Type, opts Options) (Provider, error) {
	switch typ {
	case TypeFile:
		return NewFileProvider(opts.Path)
	case TypeConsul:
		return NewConsulProvider(nil, opts.ConsulKey)
	case TypeZookeeper:
		return NewZookeeperProvider(opts.ZookeeperServers, opts.ZookeeperPath)
	case TypeEtcd:
		return nil, ErrUnimplementedProvider
	default:
		return nil, herr.Newf(herr.KindWorkflowLoad, nil, "unknown config provider type %q", typ)
	}
}

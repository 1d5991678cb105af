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

package provider

import (
	"github.com/hashicorp/consul/api"

	"github.com/hegel-dev/hegel/pkg/herr"
)

// ConsulProvider centralizes guardrails.yaml behind a single Consul KV key,
// for teams that want every developer machine enforcing the same rule list
// without distributing a file by hand.
type ConsulProvider struct {
	kv      *api.KV
	key     string
	waitIdx uint64
}

// NewConsulProvider connects to the Consul agent described by cfg (nil uses
// api.DefaultConfig, i.e. the CONSUL_HTTP_ADDR environment convention) and
// reads key.
func NewConsulProvider(cfg *api.Config, key string) (*ConsulProvider, error) {
	if cfg == nil {
		cfg = api.DefaultConfig()
	}
	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, herr.New(herr.KindStorageIO, "connect to consul", err)
	}
	return &ConsulProvider{kv: client.KV(), key: key}, nil
}

func (p *ConsulProvider) Load() ([]byte, error) {
	pair, meta, err := p.kv.Get(p.key, nil)
	if err != nil {
		return nil, herr.New(herr.KindStorageIO, "consul kv get "+p.key, err)
	}
	if pair == nil {
		return nil, herr.Newf(herr.KindStorageIO, nil, "consul key %q not found", p.key)
	}
	if meta != nil {
		p.waitIdx = meta.LastIndex
	}
	return pair.Value, nil
}

// Watch issues a blocking query against Consul's index-based long poll:
// the agent holds the request open until the key's ModifyIndex advances
// past waitIdx, or a server-side timeout elapses, in which case Watch loops
// and reissues the query rather than returning a spurious unchanged value.
func (p *ConsulProvider) Watch(last []byte) ([]byte, error) {
	for {
		pair, meta, err := p.kv.Get(p.key, &api.QueryOptions{WaitIndex: p.waitIdx})
		if err != nil {
			return nil, herr.New(herr.KindStorageIO, "consul kv watch "+p.key, err)
		}
		if pair == nil {
			continue
		}
		if meta != nil {
			p.waitIdx = meta.LastIndex
		}
		if string(pair.Value) == string(last) {
			continue
		}
		return pair.Value, nil
	}
}

// Close releases nothing and returns nil. A Watch call in flight is not
// interrupted: it keeps issuing blocking queries after Close returns.
func (p *ConsulProvider) Close() error {
	return nil
}

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
	"time"

	"github.com/go-zookeeper/zk"

	"github.com/hegel-dev/hegel/pkg/herr"
)

// ZookeeperProvider centralizes guardrails.yaml behind a single Zookeeper
// znode, the alternative to ConsulProvider for teams already running a ZK
// ensemble for other coordination.
type ZookeeperProvider struct {
	conn *zk.Conn
	path string
}

// NewZookeeperProvider connects to the given ensemble and reads path.
func NewZookeeperProvider(servers []string, path string) (*ZookeeperProvider, error) {
	conn, _, err := zk.Connect(servers, 15*time.Second)
	if err != nil {
		return nil, herr.New(herr.KindStorageIO, "connect to zookeeper", err)
	}
	return &ZookeeperProvider{conn: conn, path: path}, nil
}

func (p *ZookeeperProvider) Load() ([]byte, error) {
	data, _, err := p.conn.Get(p.path)
	if err != nil {
		return nil, herr.New(herr.KindStorageIO, "zookeeper get "+p.path, err)
	}
	return data, nil
}

// Watch registers a one-shot watch on path via GetW and blocks on its
// event channel; Zookeeper watches fire once, so Watch re-registers after
// every wakeup until it sees content that differs from last.
func (p *ZookeeperProvider) Watch(last []byte) ([]byte, error) {
	for {
		data, _, events, err := p.conn.GetW(p.path)
		if err != nil {
			return nil, herr.New(herr.KindStorageIO, "zookeeper watch "+p.path, err)
		}
		if string(data) != string(last) {
			return data, nil
		}
		ev, ok := <-events
		if !ok {
			return nil, herr.New(herr.KindStorageIO, "zookeeper watch "+p.path, nil)
		}
		if ev.Err != nil {
			return nil, herr.New(herr.KindStorageIO, "zookeeper watch "+p.path, ev.Err)
		}
	}
}

func (p *ZookeeperProvider) Close() error {
	p.conn.Close()
	return nil
}

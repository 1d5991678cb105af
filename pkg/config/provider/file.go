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
	"bytes"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/hegel-dev/hegel/pkg/herr"
)

// FileProvider watches a single file on the local filesystem. It backs the
// common case: one developer, one machine, guardrails.yaml sitting in the
// state directory.
type FileProvider struct {
	path    string
	watcher *fsnotify.Watcher
}

// NewFileProvider starts watching path. The fsnotify watcher is created
// eagerly so a caller that never calls Watch still pays the setup cost
// once, not on every Load.
func NewFileProvider(path string) (*FileProvider, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, herr.New(herr.KindStorageIO, "create file watcher", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, herr.New(herr.KindStorageIO, "watch "+path, err)
	}
	return &FileProvider{path: path, watcher: w}, nil
}

func (p *FileProvider) Load() ([]byte, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, herr.New(herr.KindStorageIO, "read "+p.path, err)
	}
	return data, nil
}

// Watch blocks on the underlying fsnotify event stream until a write or
// rename-on-commit event lands, then re-reads the file. It skips events
// that leave the content unchanged from last (editors commonly emit more
// than one event per save).
func (p *FileProvider) Watch(last []byte) ([]byte, error) {
	for {
		select {
		case ev, ok := <-p.watcher.Events:
			if !ok {
				return nil, herr.New(herr.KindStorageIO, "watch "+p.path, nil)
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			data, err := p.Load()
			if err != nil {
				return nil, err
			}
			if bytes.Equal(data, last) {
				continue
			}
			return data, nil
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return nil, herr.New(herr.KindStorageIO, "watch "+p.path, nil)
			}
			return nil, herr.New(herr.KindStorageIO, "watch "+p.path, err)
		}
	}
}

func (p *FileProvider) Close() error {
	return p.watcher.Close()
}

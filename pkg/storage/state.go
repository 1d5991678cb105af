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

package storage

import (
	"encoding/json"
	"os"

	"github.com/hegel-dev/hegel/pkg/herr"
)

const stateFileName = "state.json"
const sessionFileName = "current_session.json"

// LoadState reads state.json. A missing file yields an empty State, not an
// error.
func (s *Store) LoadState() (*State, error) {
	data, err := os.ReadFile(s.path(stateFileName))
	if os.IsNotExist(err) {
		return &State{}, nil
	}
	if err != nil {
		return nil, herr.New(herr.KindStorageIO, "read state.json", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, herr.New(herr.KindStateSchema, "decode state.json", err)
	}
	return &st, nil
}

// SaveState overwrites state.json using write-temp-then-rename so a reader
// never observes a truncated file.
func (s *Store) SaveState(st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return herr.New(herr.KindStorageIO, "encode state.json", err)
	}
	return s.atomicWrite(stateFileName, data)
}

// SaveCurrentSession overwrites current_session.json.
func (s *Store) SaveCurrentSession(meta *SessionMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return herr.New(herr.KindStorageIO, "encode current_session.json", err)
	}
	return s.atomicWrite(sessionFileName, data)
}

// LoadCurrentSession reads current_session.json. A missing file yields nil.
func (s *Store) LoadCurrentSession() (*SessionMetadata, error) {
	data, err := os.ReadFile(s.path(sessionFileName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, herr.New(herr.KindStorageIO, "read current_session.json", err)
	}
	var meta SessionMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, herr.New(herr.KindStateSchema, "decode current_session.json", err)
	}
	return &meta, nil
}

// atomicWrite commits name's contents via write-temp-then-rename in the
// store's root directory, so the rename is same-filesystem.
func (s *Store) atomicWrite(name string, data []byte) error {
	target := s.path(name)
	tmp, err := os.CreateTemp(s.Dir, "."+name+".tmp-*")
	if err != nil {
		return herr.New(herr.KindStorageIO, "create temp file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return herr.New(herr.KindStorageIO, "write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return herr.New(herr.KindStorageIO, "sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return herr.New(herr.KindStorageIO, "close temp file", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return herr.New(herr.KindStorageIO, "rename temp file into place", err)
	}
	return nil
}

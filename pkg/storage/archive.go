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
	"path/filepath"
	"sort"

	"github.com/hegel-dev/hegel/pkg/herr"
)

// WriteArchive serializes one archive under archive/<workflow_id>.json.
// This is the commit point for a workflow's finalization: callers must not
// delete the live logs until this returns nil.
func (s *Store) WriteArchive(a *WorkflowArchive) error {
	dir, err := s.ArchiveDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return herr.New(herr.KindStorageIO, "encode archive", err)
	}
	target := filepath.Join(dir, a.WorkflowID+".json")
	tmp, err := os.CreateTemp(dir, ".archive.tmp-*")
	if err != nil {
		return herr.New(herr.KindStorageIO, "create temp archive file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return herr.New(herr.KindStorageIO, "write temp archive file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return herr.New(herr.KindStorageIO, "sync temp archive file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return herr.New(herr.KindStorageIO, "close temp archive file", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return herr.New(herr.KindStorageIO, "rename archive into place", err)
	}
	return nil
}

// ReadArchives returns every archive under archive/, sorted by workflow_id
// ascending (lexicographic ISO-8601 order is chronological order).
func (s *Store) ReadArchives() ([]*WorkflowArchive, error) {
	dir, err := s.ArchiveDir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, herr.New(herr.KindStorageIO, "list archive dir", err)
	}
	var archives []*WorkflowArchive
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, herr.New(herr.KindStorageIO, "read archive "+e.Name(), err)
		}
		var a WorkflowArchive
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, herr.New(herr.KindStateSchema, "decode archive "+e.Name(), err)
		}
		archives = append(archives, &a)
	}
	sort.Slice(archives, func(i, j int) bool {
		return archives[i].WorkflowID < archives[j].WorkflowID
	})
	return archives, nil
}

// DeleteArchive removes a single archive file by workflow ID. Used only by
// the repair pipeline (§4.5) to remove superseded cowboy archives.
func (s *Store) DeleteArchive(workflowID string) error {
	dir, err := s.ArchiveDir()
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(dir, workflowID+".json")); err != nil && !os.IsNotExist(err) {
		return herr.New(herr.KindStorageIO, "remove archive "+workflowID, err)
	}
	return nil
}

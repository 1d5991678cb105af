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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hegel-dev/hegel/pkg/herr"
)

// SaveStash freezes a WorkflowState as a new stash entry at index 0,
// shifting every existing entry's index (and filename) up by one so
// indices remain the dense, newest-first prefix 0..N-1 the spec requires.
//
// Grounded on pkg/checkpoint's Storage.Save/Load/Clear shape (hector),
// adapted from session-state-keyed checkpoints to one-file-per-entry
// stashes, since Hegel has no session service to host them in.
func (s *Store) SaveStash(state *WorkflowState, message string, timestamp string) error {
	dir, err := s.StashDir()
	if err != nil {
		return err
	}
	entries, err := s.listStashFiles(dir)
	if err != nil {
		return err
	}
	// Shift existing entries up by one index, highest first to avoid
	// clobbering a not-yet-renamed target.
	sort.Sort(sort.Reverse(byStashIndex(entries)))
	for _, e := range entries {
		newPath := stashPath(dir, e.Index+1, e.Timestamp)
		if err := os.Rename(filepath.Join(dir, e.fileName), newPath); err != nil {
			return herr.New(herr.KindStorageIO, "reindex stash entry", err)
		}
	}

	entry := StashEntry{Index: 0, Timestamp: timestamp, Message: message, State: state}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return herr.New(herr.KindStorageIO, "encode stash entry", err)
	}
	if err := os.WriteFile(stashPath(dir, 0, timestamp), data, 0o644); err != nil {
		return herr.New(herr.KindStorageIO, "write stash entry", err)
	}
	return nil
}

// ListStashes returns all stash entries ordered newest-first (index 0
// first).
func (s *Store) ListStashes() ([]StashEntry, error) {
	dir, err := s.StashDir()
	if err != nil {
		return nil, err
	}
	files, err := s.listStashFiles(dir)
	if err != nil {
		return nil, err
	}
	sort.Sort(byStashIndex(files))
	var out []StashEntry
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(dir, f.fileName))
		if err != nil {
			return nil, herr.New(herr.KindStorageIO, "read stash entry", err)
		}
		var entry StashEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, herr.New(herr.KindStateSchema, "decode stash entry", err)
		}
		out = append(out, entry)
	}
	return out, nil
}

// LoadStash returns the stash entry at the given index.
func (s *Store) LoadStash(index int) (*StashEntry, error) {
	entries, err := s.ListStashes()
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Index == index {
			return &entries[i], nil
		}
	}
	return nil, herr.New(herr.KindStorageIO, fmt.Sprintf("no stash at index %d", index), nil)
}

// DeleteStash removes the stash entry at the given index and re-indexes
// the remaining entries so they still form a dense 0..N-1 prefix.
func (s *Store) DeleteStash(index int) error {
	dir, err := s.StashDir()
	if err != nil {
		return err
	}
	files, err := s.listStashFiles(dir)
	if err != nil {
		return err
	}
	sort.Sort(byStashIndex(files))

	found := false
	var kept []stashFile
	for _, f := range files {
		if f.Index == index {
			found = true
			continue
		}
		kept = append(kept, f)
	}
	if !found {
		return herr.New(herr.KindStorageIO, fmt.Sprintf("no stash at index %d", index), nil)
	}

	if err := os.Remove(filepath.Join(dir, stashFileName(index, files))); err != nil {
		return herr.New(herr.KindStorageIO, "remove stash entry", err)
	}

	// Re-index survivors to close the gap, preserving relative order.
	for i, f := range kept {
		newIndex := i
		if newIndex == f.Index {
			continue
		}
		oldPath := filepath.Join(dir, f.fileName)
		newPath := stashPath(dir, newIndex, f.Timestamp)
		if err := os.Rename(oldPath, newPath); err != nil {
			return herr.New(herr.KindStorageIO, "reindex stash entry", err)
		}
	}
	return nil
}

type stashFile struct {
	Index     int
	Timestamp string
	fileName  string
}

type byStashIndex []stashFile

func (b byStashIndex) Len() int           { return len(b) }
func (b byStashIndex) Less(i, j int) bool { return b[i].Index < b[j].Index }
func (b byStashIndex) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }

func (s *Store) listStashFiles(dir string) ([]stashFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, herr.New(herr.KindStorageIO, "list stash dir", err)
	}
	var out []stashFile
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		idx, ts, ok := parseStashFileName(e.Name())
		if !ok {
			continue
		}
		out = append(out, stashFile{Index: idx, Timestamp: ts, fileName: e.Name()})
	}
	return out, nil
}

func stashPath(dir string, index int, timestamp string) string {
	return filepath.Join(dir, fmt.Sprintf("%d-%s.json", index, sanitizeTimestamp(timestamp)))
}

func stashFileName(index int, files []stashFile) string {
	for _, f := range files {
		if f.Index == index {
			return f.fileName
		}
	}
	return ""
}

func parseStashFileName(name string) (index int, timestamp string, ok bool) {
	base := strings.TrimSuffix(name, ".json")
	parts := strings.SplitN(base, "-", 2)
	if len(parts) != 2 {
		return 0, "", false
	}
	idx, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", false
	}
	return idx, parts[1], true
}

func sanitizeTimestamp(ts string) string {
	return strings.NewReplacer(":", "", " ", "T").Replace(ts)
}

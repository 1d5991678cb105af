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
	"bufio"
	"encoding/json"
	"os"
	"syscall"

	"github.com/hegel-dev/hegel/pkg/herr"
)

const hooksLogName = "hooks.log"
const statesLogName = "states.log"

// No third-party file-locking library appears anywhere in the retrieved
// example pack, so the exclusive advisory lock around append+flush is
// built on syscall.Flock directly (see DESIGN.md).

// RawHookRecord is one agent-native hook event as read from stdin, with at
// most a timestamp injected by the Hook Ingestor. No adapter normalization
// happens before it reaches hooks.log — that runs later, during
// aggregation, so a single hooks.log can be replayed against a different
// adapter if the normalization logic changes.
type RawHookRecord = map[string]any

// AppendHook appends one raw hook record as a JSON line to hooks.log under
// an exclusive lock spanning the write and flush.
func (s *Store) AppendHook(raw RawHookRecord) error {
	line, err := json.Marshal(raw)
	if err != nil {
		return herr.New(herr.KindStorageIO, "encode hook record", err)
	}
	return s.lockedAppend(hooksLogName, line)
}

// AppendTransition appends one StateTransitionEvent as a JSON line to
// states.log under an exclusive lock spanning the write and flush.
func (s *Store) AppendTransition(ev StateTransitionEvent) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return herr.New(herr.KindStorageIO, "encode transition event", err)
	}
	return s.lockedAppend(statesLogName, line)
}

func (s *Store) lockedAppend(name string, line []byte) error {
	f, err := os.OpenFile(s.path(name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return herr.New(herr.KindStorageIO, "open "+name, err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return herr.New(herr.KindStorageLock, "lock "+name, err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	line = append(line, '\n')
	if _, err := f.Write(line); err != nil {
		return herr.New(herr.KindStorageIO, "append "+name, err)
	}
	// Flush precedes unlock (deferred above) so no concurrent reader can
	// observe a partial line.
	if err := f.Sync(); err != nil {
		return herr.New(herr.KindStorageIO, "sync "+name, err)
	}
	return nil
}

// ReadHooks reads all raw hook-log lines, skipping malformed lines rather
// than failing (the log is effectively external input once adapters/agents
// have written to it).
func (s *Store) ReadHooks() ([]RawHookRecord, []string) {
	return readJSONLines[RawHookRecord](s.path(hooksLogName))
}

// ReadTransitions reads all states.log lines, skipping malformed lines.
func (s *Store) ReadTransitions() ([]StateTransitionEvent, []string) {
	return readJSONLines[StateTransitionEvent](s.path(statesLogName))
}

func readJSONLines[T any](path string) ([]T, []string) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil
	}
	defer f.Close()

	var out []T
	var skipped []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var v T
		if err := json.Unmarshal([]byte(line), &v); err != nil {
			skipped = append(skipped, line)
			continue
		}
		out = append(out, v)
	}
	return out, skipped
}

// DeleteLiveLogs removes hooks.log and states.log. Used by the archive
// subsystem after a successful archive write; failure to delete is
// reported but must not invalidate the archive already on disk.
func (s *Store) DeleteLiveLogs() error {
	var firstErr error
	for _, name := range []string{hooksLogName, statesLogName} {
		if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = herr.New(herr.KindStorageIO, "remove "+name, err)
			}
		}
	}
	return firstErr
}

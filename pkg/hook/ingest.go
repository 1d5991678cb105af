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

// Package hook implements the Hook Ingestor: the thin, fast path invoked
// once per agent tool call. It does no adapter normalization — it only
// timestamps and appends the raw record, and recognizes SessionStart well
// enough to refresh current_session.json. Normalization happens later, in
// the Metrics Aggregator, so replaying hooks.log against a revised adapter
// never requires re-ingesting.
package hook

import (
	"bufio"
	"encoding/json"
	"io"
	"time"

	"github.com/hegel-dev/hegel/pkg/herr"
	"github.com/hegel-dev/hegel/pkg/storage"
)

// Clock is overridable in tests; defaults to time.Now.
type Clock func() time.Time

// Ingest reads exactly one line from r, timestamps it if needed, appends it
// to the store's hook log, and on a SessionStart event refreshes
// current_session.json.
func Ingest(store *storage.Store, r io.Reader, now Clock) error {
	if now == nil {
		now = time.Now
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return herr.New(herr.KindStorageIO, "read hook event from stdin", err)
		}
		return herr.New(herr.KindAdapterSchema, "no hook event on stdin", nil)
	}

	var raw storage.RawHookRecord
	if err := json.Unmarshal(scanner.Bytes(), &raw); err != nil {
		return herr.New(herr.KindAdapterSchema, "hook event is not valid JSON", err)
	}

	if ts, ok := raw["timestamp"].(string); !ok || ts == "" {
		raw["timestamp"] = now().UTC().Format(time.RFC3339)
	}

	if err := store.AppendHook(raw); err != nil {
		return err
	}

	if name, _ := raw["hook_event_name"].(string); name == string(storage.EventSessionStart) {
		meta := &storage.SessionMetadata{
			SessionID:      stringOf(raw["session_id"]),
			TranscriptPath: stringOf(raw["transcript_path"]),
			StartedAt:      stringOf(raw["timestamp"]),
		}
		if err := store.SaveCurrentSession(meta); err != nil {
			return err
		}
	}
	return nil
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

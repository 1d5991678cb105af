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

package adapter

import (
	"os"
	"time"

	"github.com/hegel-dev/hegel/pkg/storage"
)

// Cursor normalizes Cursor's hook schema, which has no timestamp field, no
// explicit tool_name/tool_input split, and identifies a session by
// generation_id rather than session_id.
type Cursor struct {
	// now is overridable in tests; defaults to time.Now.
	now func() time.Time
}

// NewCursor constructs the Cursor adapter.
func NewCursor() *Cursor {
	return &Cursor{now: time.Now}
}

func (c *Cursor) Name() string { return "cursor" }

func (c *Cursor) Detect() bool {
	return os.Getenv("CURSOR_TRACE_ID") != "" || os.Getenv("WORKSPACE_FOLDER_PATHS") != ""
}

func (c *Cursor) Normalize(raw Raw) (*storage.CanonicalHookEvent, error) {
	ts := stringField(raw, "timestamp")
	if ts == "" {
		ts = c.now().UTC().Format(time.RFC3339)
	}

	sessionID := stringField(raw, "generation_id")
	if sessionID == "" {
		sessionID = stringField(raw, "conversation_id")
	}
	if sessionID == "" {
		sessionID = fallbackSessionID()
	}

	toolName, toolInput := synthesizeTool(raw)

	ev := &storage.CanonicalHookEvent{
		Adapter:      c.Name(),
		EventType:    canonicalEventType(stringField(raw, "hook_event_name")),
		SessionID:    sessionID,
		ToolName:     toolName,
		ToolInput:    toolInput,
		Cwd:          stringField(raw, "workspace_roots_0"),
		Timestamp:    ts,
		FallbackUsed: stringField(raw, "timestamp") == "",
	}
	return ev, nil
}

// synthesizeTool recovers a Claude-shaped (tool_name, tool_input) pair from
// Cursor's flatter "command"/"file_path" style hook payload.
func synthesizeTool(raw Raw) (string, map[string]any) {
	if cmd := stringField(raw, "command"); cmd != "" {
		return "Bash", map[string]any{"command": cmd}
	}
	if path := stringField(raw, "file_path"); path != "" {
		return "Edit", map[string]any{"file_path": path}
	}
	if name := stringField(raw, "tool_name"); name != "" {
		if m, ok := raw["tool_input"].(map[string]any); ok {
			return name, m
		}
		return name, nil
	}
	return "", nil
}

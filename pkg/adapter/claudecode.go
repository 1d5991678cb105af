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

	"github.com/hegel-dev/hegel/pkg/storage"
)

// ClaudeCode normalizes Claude Code's hook schema, which already matches the
// canonical shape almost field-for-field.
type ClaudeCode struct{}

// NewClaudeCode constructs the Claude Code adapter.
func NewClaudeCode() *ClaudeCode { return &ClaudeCode{} }

func (c *ClaudeCode) Name() string { return "claudecode" }

func (c *ClaudeCode) Detect() bool {
	return os.Getenv("CLAUDECODE") != "" || os.Getenv("CLAUDE_CODE_ENTRYPOINT") != ""
}

func (c *ClaudeCode) Normalize(raw Raw) (*storage.CanonicalHookEvent, error) {
	sessionID := stringField(raw, "session_id")
	if sessionID == "" {
		sessionID = fallbackSessionID()
	}
	ev := &storage.CanonicalHookEvent{
		Adapter:   c.Name(),
		EventType: canonicalEventType(stringField(raw, "hook_event_name")),
		SessionID: sessionID,
		ToolName:  stringField(raw, "tool_name"),
		Cwd:       stringField(raw, "cwd"),
		TranscriptPath: stringField(raw, "transcript_path"),
		Timestamp: stringField(raw, "timestamp"),
	}
	if m, ok := raw["tool_input"].(map[string]any); ok {
		ev.ToolInput = m
	}
	if m, ok := raw["tool_response"].(map[string]any); ok {
		ev.ToolResponse = m
	}

	known := map[string]bool{
		"hook_event_name": true, "session_id": true, "tool_name": true,
		"cwd": true, "transcript_path": true, "timestamp": true,
		"tool_input": true, "tool_response": true,
	}
	if extra := extraFields(raw, known); len(extra) > 0 {
		ev.Extra = extra
	}
	return ev, nil
}

// canonicalEventType maps a hook_event_name string onto the canonical enum,
// falling back to Other(name) for anything Hegel does not special-case.
func canonicalEventType(name string) storage.CanonicalEventType {
	switch name {
	case "SessionStart":
		return storage.EventSessionStart
	case "SessionEnd":
		return storage.EventSessionEnd
	case "PreToolUse":
		return storage.EventPreToolUse
	case "PostToolUse":
		return storage.EventPostToolUse
	case "Stop":
		return storage.EventStop
	default:
		return storage.OtherEventType(name)
	}
}

func stringField(raw Raw, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}

func extraFields(raw Raw, known map[string]bool) map[string]any {
	var out map[string]any
	for k, v := range raw {
		if known[k] {
			continue
		}
		if out == nil {
			out = map[string]any{}
		}
		out[k] = v
	}
	return out
}

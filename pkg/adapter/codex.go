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
	"sync"

	"github.com/hegel-dev/hegel/pkg/storage"
)

// codexSessionState is the per-session cumulative counters Codex reports,
// so Hegel can recover the deltas the rest of the system expects.
type codexSessionState struct {
	model          string
	cumulativeIn   int
	cumulativeOut  int
	cumulativeCacheRead     int
	cumulativeCacheCreation int
}

// Codex normalizes Codex CLI's event stream. Unlike Claude Code, Codex
// reports cumulative token totals rather than per-turn deltas, and splits
// model selection out into its own event rather than echoing it on every
// tool call, so the adapter must keep state across calls.
type Codex struct {
	mu       sync.Mutex
	sessions map[string]*codexSessionState
}

// NewCodex constructs the Codex adapter.
func NewCodex() *Codex {
	return &Codex{sessions: map[string]*codexSessionState{}}
}

func (c *Codex) Name() string { return "codex" }

func (c *Codex) Detect() bool {
	return os.Getenv("CODEX_HOME") != "" || os.Getenv("CODEX_SESSION_ID") != ""
}

// modelPaths lists, in priority order, the nested locations Codex may
// carry a model name under: an event's own "info" object first, then the
// event's top level, then a flat "metadata" object.
var modelPaths = [][]string{
	{"info", "model"},
	{"info", "model_name"},
	{"info", "metadata", "model"},
	{"model"},
	{"metadata", "model"},
}

// resolveModel walks modelPaths against m and returns the first non-empty
// value found.
func resolveModel(m map[string]any) (string, bool) {
	for _, path := range modelPaths {
		if v := valueAtPath(m, path); v != "" {
			return v, true
		}
	}
	return "", false
}

func valueAtPath(m map[string]any, path []string) string {
	cur := m
	for i, key := range path {
		if cur == nil {
			return ""
		}
		if i == len(path)-1 {
			return stringField(cur, key)
		}
		next, _ := cur[key].(map[string]any)
		cur = next
	}
	return ""
}

func (c *Codex) Normalize(raw Raw) (*storage.CanonicalHookEvent, error) {
	sessionID := stringField(raw, "session_id")
	if sessionID == "" {
		sessionID = stringField(raw, "conversation_id")
	}
	if sessionID == "" {
		sessionID = fallbackSessionID()
	}

	c.mu.Lock()
	state, ok := c.sessions[sessionID]
	if !ok {
		state = &codexSessionState{}
		c.sessions[sessionID] = state
	}
	c.mu.Unlock()

	eventType, _ := raw["type"].(string)

	switch eventType {
	case "turn_context":
		c.mu.Lock()
		if m, ok := resolveModel(raw); ok {
			state.model = m
		}
		c.mu.Unlock()
		return nil, nil

	case "event_msg":
		msg, _ := raw["msg"].(map[string]any)
		if msg == nil || stringField(msg, "type") != "token_count" {
			return nil, nil
		}
		info, _ := msg["info"].(map[string]any)
		totalUsage, _ := info["total_token_usage"].(map[string]any)

		c.mu.Lock()
		inputDelta := saturatingDelta(&state.cumulativeIn, intField(totalUsage, "input_tokens"))
		outputDelta := saturatingDelta(&state.cumulativeOut, intField(totalUsage, "output_tokens"))
		cacheReadDelta := saturatingDelta(&state.cumulativeCacheRead, intField(totalUsage, "cached_input_tokens"))
		cacheCreationDelta := saturatingDelta(&state.cumulativeCacheCreation, intField(totalUsage, "reasoning_output_tokens"))

		model := state.model
		if m, ok := resolveModel(msg); ok {
			model = m
			state.model = m
		}
		c.mu.Unlock()

		if inputDelta == 0 && outputDelta == 0 && cacheReadDelta == 0 && cacheCreationDelta == 0 {
			return nil, nil
		}

		fallbackUsed := false
		if model == "" {
			model = "gpt-5"
			fallbackUsed = true
		}

		return &storage.CanonicalHookEvent{
			Adapter:      c.Name(),
			SessionID:    sessionID,
			EventType:    storage.OtherEventType("token_count"),
			Timestamp:    stringField(raw, "timestamp"),
			FallbackUsed: fallbackUsed,
			Extra: map[string]any{
				"model":                model,
				"input_delta":          inputDelta,
				"output_delta":         outputDelta,
				"cache_read_delta":     cacheReadDelta,
				"cache_creation_delta": cacheCreationDelta,
			},
		}, nil

	default:
		// Everything else (session lifecycle, tool calls) maps one-to-one
		// like Claude Code's schema, since Codex reuses the same hook
		// wrapper conventions for those events.
		ev := &storage.CanonicalHookEvent{
			Adapter:   c.Name(),
			SessionID: sessionID,
			EventType: canonicalEventType(stringField(raw, "hook_event_name")),
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
		if ev.EventType == "" || ev.EventType == storage.OtherEventType("") {
			return nil, nil
		}
		return ev, nil
	}
}

// saturatingDelta computes next-prev, clamped to zero, and advances prev to
// next. Codex's cumulative counters can be reset mid-session (a fresh
// sub-agent turn, a compaction) which would otherwise produce a negative
// delta.
func saturatingDelta(prev *int, next int) int {
	delta := next - *prev
	if delta < 0 {
		delta = 0
	}
	*prev = next
	return delta
}

func intField(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hegel-dev/hegel/pkg/storage"
)

func TestClaudeCodeNormalizePassesThroughKnownFields(t *testing.T) {
	c := NewClaudeCode()
	ev, err := c.Normalize(Raw{
		"hook_event_name": "PreToolUse",
		"session_id":      "sess-1",
		"tool_name":       "Bash",
		"tool_input":      map[string]any{"command": "go test ./..."},
		"cwd":              "/repo",
		"timestamp":        "2026-08-01T10:00:00Z",
		"permission_mode":  "acceptEdits",
	})
	require.NoError(t, err)
	assert.Equal(t, storage.EventPreToolUse, ev.EventType)
	assert.Equal(t, "sess-1", ev.SessionID)
	assert.Equal(t, "Bash", ev.ToolName)
	assert.Equal(t, "go test ./...", ev.ToolInput["command"])
	assert.Equal(t, "acceptEdits", ev.Extra["permission_mode"])
}

func TestClaudeCodeUnknownEventNameBecomesOther(t *testing.T) {
	c := NewClaudeCode()
	ev, err := c.Normalize(Raw{"hook_event_name": "Notification"})
	require.NoError(t, err)
	assert.Equal(t, storage.OtherEventType("Notification"), ev.EventType)
}

func TestCodexTurnContextEmitsNoEvent(t *testing.T) {
	c := NewCodex()
	ev, err := c.Normalize(Raw{
		"type":       "turn_context",
		"session_id": "s1",
		"model":      "gpt-5-codex",
	})
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestCodexTokenCountComputesDeltaAndSaturates(t *testing.T) {
	c := NewCodex()

	// First turn_context establishes a model.
	_, err := c.Normalize(Raw{"type": "turn_context", "session_id": "s1", "model": "gpt-5-codex"})
	require.NoError(t, err)

	first := Raw{
		"type":       "event_msg",
		"session_id": "s1",
		"timestamp":  "2026-08-01T10:00:00Z",
		"msg": map[string]any{
			"type": "token_count",
			"info": map[string]any{
				"total_token_usage": map[string]any{
					"input_tokens":  float64(100),
					"output_tokens": float64(50),
				},
			},
		},
	}
	ev1, err := c.Normalize(first)
	require.NoError(t, err)
	require.NotNil(t, ev1)
	assert.Equal(t, 100, ev1.Extra["input_delta"])
	assert.Equal(t, 50, ev1.Extra["output_delta"])
	assert.Equal(t, "gpt-5-codex", ev1.Extra["model"])

	// Second turn: cumulative counters go up, delta is the difference.
	second := Raw{
		"type":       "event_msg",
		"session_id": "s1",
		"msg": map[string]any{
			"type": "token_count",
			"info": map[string]any{
				"total_token_usage": map[string]any{
					"input_tokens":  float64(140),
					"output_tokens": float64(90),
				},
			},
		},
	}
	ev2, err := c.Normalize(second)
	require.NoError(t, err)
	assert.Equal(t, 40, ev2.Extra["input_delta"])
	assert.Equal(t, 40, ev2.Extra["output_delta"])

	// Cumulative counter resets (e.g. compaction): delta clamps to zero
	// instead of going negative.
	third := Raw{
		"type":       "event_msg",
		"session_id": "s1",
		"msg": map[string]any{
			"type": "token_count",
			"info": map[string]any{
				"total_token_usage": map[string]any{
					"input_tokens":  float64(10),
					"output_tokens": float64(5),
				},
			},
		},
	}
	// All deltas saturate to zero: the event is dropped rather than
	// reported as a zero-token no-op turn.
	ev3, err := c.Normalize(third)
	require.NoError(t, err)
	assert.Nil(t, ev3)
}

func TestCodexTokenCountFallsBackToGPT5WhenModelUnresolved(t *testing.T) {
	c := NewCodex()
	ev, err := c.Normalize(Raw{
		"type":       "event_msg",
		"session_id": "s1",
		"timestamp":  "2026-08-01T10:00:00Z",
		"msg": map[string]any{
			"type": "token_count",
			"info": map[string]any{
				"total_token_usage": map[string]any{
					"input_tokens":  float64(100),
					"output_tokens": float64(50),
				},
			},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "gpt-5", ev.Extra["model"])
	assert.True(t, ev.FallbackUsed)
}

func TestCodexResolvesModelFromNestedInfoPath(t *testing.T) {
	c := NewCodex()
	ev, err := c.Normalize(Raw{
		"type":       "event_msg",
		"session_id": "s1",
		"msg": map[string]any{
			"type": "token_count",
			"info": map[string]any{
				"model": "gpt-5-pro",
				"total_token_usage": map[string]any{
					"input_tokens":  float64(10),
					"output_tokens": float64(5),
				},
			},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "gpt-5-pro", ev.Extra["model"])
	assert.False(t, ev.FallbackUsed)
}

func TestCursorSynthesizesTimestampAndToolFromCommand(t *testing.T) {
	c := NewCursor()
	ev, err := c.Normalize(Raw{
		"hook_event_name": "PostToolUse",
		"generation_id":   "gen-1",
		"command":         "npm test",
	})
	require.NoError(t, err)
	assert.Equal(t, "gen-1", ev.SessionID)
	assert.Equal(t, "Bash", ev.ToolName)
	assert.Equal(t, "npm test", ev.ToolInput["command"])
	assert.NotEmpty(t, ev.Timestamp)
	assert.True(t, ev.FallbackUsed)
}

func TestRegistryDetectFixedOrder(t *testing.T) {
	r := NewRegistry()
	require.Len(t, r.All(), 3)
	assert.Equal(t, "claudecode", r.All()[0].Name())
	assert.Equal(t, "codex", r.All()[1].Name())
	assert.Equal(t, "cursor", r.All()[2].Name())
}

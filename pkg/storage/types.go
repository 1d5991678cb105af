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

// Package storage owns the state directory: atomic read/write of the
// current state, append-only event logs with exclusive locking, the
// archive directory, and the stash store. It is the only package that
// touches the filesystem layout described in the specification's external
// interfaces section.
package storage

// WorkflowState is the mutable record of an in-progress workflow.
type WorkflowState struct {
	WorkflowID     string   `json:"workflow_id,omitempty"`
	Mode           string   `json:"mode"`
	CurrentNode    string   `json:"current_node"`
	History        []string `json:"history"`
	MetaMode       string   `json:"meta_mode,omitempty"`
	PhaseStartTime string   `json:"phase_start_time,omitempty"`
	IsHandlebars   bool     `json:"is_handlebars"`
}

// SessionMetadata is written on every SessionStart hook event.
type SessionMetadata struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	StartedAt      string `json:"started_at"`
}

// WorkflowTotals is the cached, rebuildable cumulative summary the root
// State carries. It is never a source of truth — the archive set is.
type WorkflowTotals struct {
	WorkflowsCompleted int            `json:"workflows_completed"`
	WorkflowsAborted   int            `json:"workflows_aborted"`
	TotalTokens        TokenMetrics   `json:"total_tokens"`
	TotalDuration      float64        `json:"total_duration_seconds"`
	TotalCommits       int            `json:"total_commits"`
	ByMode             map[string]int `json:"by_mode,omitempty"`
}

// TokenMetrics is cumulative token usage within some window (a phase, a
// workflow, or the lifetime totals).
type TokenMetrics struct {
	Input           int `json:"input"`
	Output          int `json:"output"`
	CacheCreation   int `json:"cache_creation"`
	CacheRead       int `json:"cache_read"`
	AssistantTurns  int `json:"assistant_turns"`
}

// Add accumulates other into m.
func (m *TokenMetrics) Add(other TokenMetrics) {
	m.Input += other.Input
	m.Output += other.Output
	m.CacheCreation += other.CacheCreation
	m.CacheRead += other.CacheRead
	m.AssistantTurns += other.AssistantTurns
}

// GitInfo records the repository root detected for the current project. It
// is kept in state.json as stored; no code in this module sets or reads it.
type GitInfo struct {
	Root      string `json:"root,omitempty"`
	HasGit    bool   `json:"has_git"`
	CheckedAt string `json:"checked_at,omitempty"`
}

// State is the root persisted record at state.json.
type State struct {
	Workflow          *WorkflowState   `json:"workflow,omitempty"`
	SessionMetadata   *SessionMetadata `json:"session_metadata,omitempty"`
	CumulativeTotals  *WorkflowTotals  `json:"cumulative_totals,omitempty"`
	GitInfo           *GitInfo         `json:"git_info,omitempty"`
}

// CanonicalEventType enumerates the normalized hook event kinds.
type CanonicalEventType string

const (
	EventSessionStart CanonicalEventType = "SessionStart"
	EventSessionEnd   CanonicalEventType = "SessionEnd"
	EventPreToolUse   CanonicalEventType = "PreToolUse"
	EventPostToolUse  CanonicalEventType = "PostToolUse"
	EventStop         CanonicalEventType = "Stop"
)

// OtherEventType builds the canonical "Other(name)" representation used
// when an adapter sees an event name it does not otherwise recognize.
func OtherEventType(name string) CanonicalEventType {
	return CanonicalEventType("Other:" + name)
}

// CanonicalHookEvent is the normalized form every adapter produces.
type CanonicalHookEvent struct {
	Timestamp      string                 `json:"timestamp"`
	SessionID      string                 `json:"session_id,omitempty"`
	EventType      CanonicalEventType     `json:"event_type"`
	ToolName       string                 `json:"tool_name,omitempty"`
	ToolInput      map[string]any         `json:"tool_input,omitempty"`
	ToolResponse   map[string]any         `json:"tool_response,omitempty"`
	Cwd            string                 `json:"cwd,omitempty"`
	TranscriptPath string                 `json:"transcript_path,omitempty"`
	Adapter        string                 `json:"adapter,omitempty"`
	FallbackUsed   bool                   `json:"fallback_used,omitempty"`
	Extra          map[string]any         `json:"extra,omitempty"`
}

// StateTransitionEvent is one line of states.log.
type StateTransitionEvent struct {
	Timestamp  string `json:"timestamp"`
	WorkflowID string `json:"workflow_id,omitempty"`
	FromNode   string `json:"from_node"`
	ToNode     string `json:"to_node"`
	Phase      string `json:"phase"`
	Mode       string `json:"mode"`
}

// StashEntry is a frozen WorkflowState plus bookkeeping, stored under
// stashes/.
type StashEntry struct {
	Index     int            `json:"index"`
	Timestamp string         `json:"timestamp"`
	Message   string         `json:"message,omitempty"`
	State     *WorkflowState `json:"state"`
}

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

// GitCommit is attributed to a phase by timestamp.
type GitCommit struct {
	Hash          string `json:"hash"`
	Timestamp     string `json:"timestamp"`
	Message       string `json:"message"`
	Author        string `json:"author"`
	FilesChanged  int    `json:"files_changed"`
	Insertions    int    `json:"insertions"`
	Deletions     int    `json:"deletions"`
}

// PhaseArchive is the immutable, archived form of a PhaseMetrics window.
type PhaseArchive struct {
	PhaseName        string       `json:"phase_name"`
	WorkflowID       string       `json:"workflow_id,omitempty"`
	StartTime        string       `json:"start_time"`
	EndTime          string       `json:"end_time,omitempty"`
	DurationSeconds  float64      `json:"duration_seconds"`
	TokenMetrics     TokenMetrics `json:"token_metrics"`
	BashCommands     []BashCommandRecord   `json:"bash_commands,omitempty"`
	FileModifications []FileModRecord      `json:"file_modifications,omitempty"`
	GitCommits       []GitCommit  `json:"git_commits,omitempty"`
	IsSynthetic      bool         `json:"is_synthetic"`
}

// BashCommandRecord is one PostToolUse bash-tool invocation attributed to a
// phase.
type BashCommandRecord struct {
	Timestamp string `json:"timestamp"`
	Command   string `json:"command"`
}

// FileModRecord is one PostToolUse file-editing-tool invocation attributed
// to a phase.
type FileModRecord struct {
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
	Tool      string `json:"tool"`
}

// TransitionArchive is the immutable, archived form of a
// StateTransitionEvent.
type TransitionArchive struct {
	Timestamp string `json:"timestamp"`
	FromNode  string `json:"from_node"`
	ToNode    string `json:"to_node"`
}

// WorkflowArchive is the immutable per-workflow record written on
// termination.
type WorkflowArchive struct {
	WorkflowID  string               `json:"workflow_id"`
	Mode        string               `json:"mode"`
	CompletedAt string               `json:"completed_at"`
	SessionID   string               `json:"session_id,omitempty"`
	IsSynthetic bool                 `json:"is_synthetic"`
	Phases      []PhaseArchive       `json:"phases"`
	Transitions []TransitionArchive  `json:"transitions"`
	Totals      WorkflowTotals       `json:"totals"`
}

// TerminalNode reports the to_node of the archive's last transition, or ""
// if the archive has no transitions (a violation of the spec's invariant,
// but callers must be able to detect it to trigger repair).
func (a *WorkflowArchive) TerminalNode() string {
	if len(a.Transitions) == 0 {
		return ""
	}
	return a.Transitions[len(a.Transitions)-1].ToNode
}

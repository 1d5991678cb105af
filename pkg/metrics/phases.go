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

// Package metrics folds the live hook log, state-transition log, session
// transcript, and (on request) prior archives into per-phase telemetry. It
// is the only component that runs agent normalization — see the Hook
// Ingestor's package doc for why that is deferred this far.
package metrics

import (
	"sort"
	"time"

	"github.com/hegel-dev/hegel/pkg/storage"
)

// PhaseMetrics is the live (possibly still-open) form of an archived phase.
// It shares its shape with storage.PhaseArchive exactly, since a phase
// becomes an archive entry verbatim once the workflow terminates.
type PhaseMetrics = storage.PhaseArchive

// phaseWindow is an internal half-open interval used for bucketing.
type phaseWindow struct {
	name       string
	workflowID string
	start      time.Time
	end        *time.Time
}

func (w phaseWindow) contains(t time.Time) bool {
	if t.Before(w.start) {
		return false
	}
	if w.end == nil {
		return true
	}
	return t.Before(*w.end)
}

// buildPhaseWindows derives phase windows from a chronologically-ascending
// transition list. When the active workflow's current node is not the last
// logged to_node (start_node is entered without an `advance` call, so it
// never produces a StateTransitionEvent on its own), a synthetic transition
// into that node at its PhaseStartTime is appended, giving it the last,
// open window.
func buildPhaseWindows(transitions []storage.StateTransitionEvent, active *storage.WorkflowState) []phaseWindow {
	sorted := make([]storage.StateTransitionEvent, len(transitions))
	copy(sorted, transitions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	if active != nil && (len(sorted) == 0 || sorted[len(sorted)-1].ToNode != active.CurrentNode) {
		ts := active.PhaseStartTime
		if ts == "" {
			ts = sorted0Timestamp(sorted)
		}
		sorted = append(sorted, storage.StateTransitionEvent{
			Timestamp:  ts,
			WorkflowID: active.WorkflowID,
			FromNode:   "",
			ToNode:     active.CurrentNode,
			Phase:      active.CurrentNode,
			Mode:       active.Mode,
		})
	}

	windows := make([]phaseWindow, 0, len(sorted))
	for i, ev := range sorted {
		start, err := time.Parse(time.RFC3339, ev.Timestamp)
		if err != nil {
			continue
		}
		w := phaseWindow{name: ev.ToNode, workflowID: ev.WorkflowID, start: start}
		if i+1 < len(sorted) {
			if end, err := time.Parse(time.RFC3339, sorted[i+1].Timestamp); err == nil {
				w.end = &end
			}
		}
		windows = append(windows, w)
	}
	return windows
}

func sorted0Timestamp(sorted []storage.StateTransitionEvent) string {
	if len(sorted) == 0 {
		return time.Now().UTC().Format(time.RFC3339)
	}
	return sorted[0].Timestamp
}

// windowFor returns the index of the phase window containing t, resolving
// exact-boundary ties to the later phase (the window is half-open
// [start, end)).
func windowFor(windows []phaseWindow, t time.Time) (int, bool) {
	for i, w := range windows {
		if w.contains(t) {
			return i, true
		}
	}
	return 0, false
}

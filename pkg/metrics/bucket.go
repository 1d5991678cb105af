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

package metrics

import (
	"time"

	"github.com/hegel-dev/hegel/pkg/storage"
)

var fileEditTools = map[string]bool{
	"Edit": true, "Write": true, "MultiEdit": true, "NotebookEdit": true,
}

// bucketToolEvents attributes PostToolUse events to phases by timestamp and
// returns the most recently seen session ID.
func bucketToolEvents(events []*storage.CanonicalHookEvent, windows []phaseWindow, phases []PhaseMetrics) string {
	sessionID := ""
	for _, ev := range events {
		if ev.SessionID != "" {
			sessionID = ev.SessionID
		}
		if ev.EventType != storage.EventPostToolUse {
			continue
		}
		ts, err := time.Parse(time.RFC3339, ev.Timestamp)
		if err != nil {
			continue
		}
		idx, ok := windowFor(windows, ts)
		if !ok {
			continue
		}
		switch {
		case ev.ToolName == "Bash":
			cmd, _ := ev.ToolInput["command"].(string)
			phases[idx].BashCommands = append(phases[idx].BashCommands, storage.BashCommandRecord{
				Timestamp: ev.Timestamp,
				Command:   cmd,
			})
		case fileEditTools[ev.ToolName]:
			path, _ := ev.ToolInput["file_path"].(string)
			phases[idx].FileModifications = append(phases[idx].FileModifications, storage.FileModRecord{
				Timestamp: ev.Timestamp,
				Path:      path,
				Tool:      ev.ToolName,
			})
		}
	}
	return sessionID
}

func bucketTokenUsage(usages []tokenUsageAt, windows []phaseWindow, phases []PhaseMetrics) {
	for _, u := range usages {
		idx, ok := windowFor(windows, u.timestamp)
		if !ok {
			continue
		}
		phases[idx].TokenMetrics.Add(u.usage)
	}
}

// bucketCodexTokenDeltas folds Codex's per-event token deltas into phase
// totals. Claude/Cursor sessions derive tokens entirely from the
// transcript; Codex sessions have no equivalent transcript format Hegel
// understands, so its adapter's normalized token_count events are the only
// source for those sessions. Both paths run on every pass, without
// branching on which adapter is active.
func bucketCodexTokenDeltas(events []*storage.CanonicalHookEvent, windows []phaseWindow, phases []PhaseMetrics) {
	for _, ev := range events {
		if ev.Adapter != "codex" || ev.EventType != storage.OtherEventType("token_count") {
			continue
		}
		ts, err := time.Parse(time.RFC3339, ev.Timestamp)
		if err != nil {
			continue
		}
		idx, ok := windowFor(windows, ts)
		if !ok {
			continue
		}
		phases[idx].TokenMetrics.Add(storage.TokenMetrics{
			Input:          intOf(ev.Extra["input_delta"]),
			Output:         intOf(ev.Extra["output_delta"]),
			CacheRead:      intOf(ev.Extra["cache_read_delta"]),
			CacheCreation:  intOf(ev.Extra["cache_creation_delta"]),
			AssistantTurns: 1,
		})
	}
}

// prependArchives folds archived phases, transitions, and totals in ahead
// of the live result, since archives always come first chronologically.
func prependArchives(result *UnifiedMetrics, archives []*storage.WorkflowArchive) {
	var archivedPhases []PhaseMetrics
	var archivedTransitions []storage.StateTransitionEvent
	var totals storage.WorkflowTotals
	totals.ByMode = map[string]int{}

	for _, a := range archives {
		archivedPhases = append(archivedPhases, a.Phases...)
		for _, tr := range a.Transitions {
			archivedTransitions = append(archivedTransitions, storage.StateTransitionEvent{
				Timestamp:  tr.Timestamp,
				WorkflowID: a.WorkflowID,
				FromNode:   tr.FromNode,
				ToNode:     tr.ToNode,
				Phase:      tr.ToNode,
				Mode:       a.Mode,
			})
		}
		switch a.TerminalNode() {
		case "done":
			totals.WorkflowsCompleted++
		case "aborted":
			totals.WorkflowsAborted++
		}
		totals.ByMode[a.Mode]++
		for _, p := range a.Phases {
			totals.TotalTokens.Add(p.TokenMetrics)
			totals.TotalDuration += p.DurationSeconds
			totals.TotalCommits += len(p.GitCommits)
		}
	}

	result.PhaseMetrics = append(archivedPhases, result.PhaseMetrics...)
	result.StateTransitions = append(archivedTransitions, result.StateTransitions...)
	result.TokenMetrics.Add(totals.TotalTokens)
	result.archiveTotals = totals
}

// rebuildTotals derives cumulative_totals from the archives prependArchives
// folded in; the live workflow's phases are not counted, so a pass with
// IncludeArchives false yields zero totals. It is a cache, never a source
// of truth, per the data model.
func rebuildTotals(result *UnifiedMetrics) storage.WorkflowTotals {
	totals := result.archiveTotals
	if totals.ByMode == nil {
		totals.ByMode = map[string]int{}
	}
	return totals
}

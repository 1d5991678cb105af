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
	"sort"
	"time"

	"github.com/hegel-dev/hegel/pkg/adapter"
	"github.com/hegel-dev/hegel/pkg/storage"
)

// UnifiedMetrics is the aggregator's complete output for one state
// directory, covering both the live workflow (if any) and, optionally, the
// archived history.
type UnifiedMetrics struct {
	SessionID        string
	TokenMetrics     storage.TokenMetrics
	StateTransitions []storage.StateTransitionEvent
	PhaseMetrics     []PhaseMetrics
	CumulativeTotals storage.WorkflowTotals
	GitCommits       []storage.GitCommit
	SkippedHookLines []string

	// archiveTotals accumulates while folding in archives; rebuildTotals
	// reads it back out into CumulativeTotals.
	archiveTotals storage.WorkflowTotals
}

// Options controls one aggregation pass.
type Options struct {
	// IncludeArchives folds prior archives' phases and totals into the
	// result. Must be false while archiving a workflow, or its own phases
	// would be double-counted once the archive exists.
	IncludeArchives bool
	// Now is the current time for open-phase duration math; a zero value
	// means time.Now().
	Now time.Time
}

// Aggregate runs the full algorithm: parse states.log into phase windows,
// parse hooks.log for tool-derived metrics bucketed by phase, resolve token
// usage from the session transcript, and optionally fold in archives.
func Aggregate(store *storage.Store, registry *adapter.Registry, opts Options) (*UnifiedMetrics, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	state, err := store.LoadState()
	if err != nil {
		return nil, err
	}

	transitions, _ := store.ReadTransitions()
	sort.SliceStable(transitions, func(i, j int) bool { return transitions[i].Timestamp < transitions[j].Timestamp })

	windows := buildPhaseWindows(transitions, state.Workflow)
	phases := make([]PhaseMetrics, len(windows))
	for i, w := range windows {
		phases[i] = PhaseMetrics{
			PhaseName:   w.name,
			WorkflowID:  w.workflowID,
			StartTime:   w.start.Format(time.RFC3339),
			DurationSeconds: durationSeconds(w.start, w.end, now),
		}
		if w.end != nil {
			phases[i].EndTime = w.end.Format(time.RFC3339)
		}
	}

	rawHooks, skipped := store.ReadHooks()
	normalized, skippedNormalize := normalizeAll(registry, rawHooks)
	skipped = append(skipped, skippedNormalize...)

	sessionID := bucketToolEvents(normalized, windows, phases)

	transcriptPath := ""
	if state.SessionMetadata != nil {
		transcriptPath = state.SessionMetadata.TranscriptPath
		if sessionID == "" {
			sessionID = state.SessionMetadata.SessionID
		}
	}
	if transcriptPath == "" {
		transcriptPath = latestTranscriptFromHooks(rawHooks)
	}
	bucketTokenUsage(parseTranscript(transcriptPath), windows, phases)
	bucketCodexTokenDeltas(normalized, windows, phases)

	totals := storage.TokenMetrics{}
	for _, p := range phases {
		totals.Add(p.TokenMetrics)
	}

	result := &UnifiedMetrics{
		SessionID:        sessionID,
		TokenMetrics:     totals,
		StateTransitions: transitions,
		PhaseMetrics:     phases,
		SkippedHookLines: skipped,
	}

	if opts.IncludeArchives {
		archives, err := store.ReadArchives()
		if err != nil {
			return nil, err
		}
		prependArchives(result, archives)
	}

	result.CumulativeTotals = rebuildTotals(result)
	return result, nil
}

func durationSeconds(start time.Time, end *time.Time, now time.Time) float64 {
	if end != nil {
		return end.Sub(start).Seconds()
	}
	return now.Sub(start).Seconds()
}

// normalizeAll runs every raw hook record through the adapter registry,
// trying each adapter in fixed order until one produces a non-error,
// non-nil event. A record carrying the Codex marker (see hasAgentMarker) is
// handed to the Codex adapter directly. A record every adapter rejects is
// reported as skipped.
func normalizeAll(registry *adapter.Registry, raws []storage.RawHookRecord) ([]*storage.CanonicalHookEvent, []string) {
	var out []*storage.CanonicalHookEvent
	var skipped []string
	for _, raw := range raws {
		ev, ok := normalizeOne(registry, raw)
		if !ok {
			skipped = append(skipped, "unnormalizable hook record")
			continue
		}
		if ev != nil {
			out = append(out, ev)
		}
	}
	return out, skipped
}

func normalizeOne(registry *adapter.Registry, raw storage.RawHookRecord) (*storage.CanonicalHookEvent, bool) {
	// The Claude Code adapter, first in order, accepts any record, so Codex
	// records are routed before the ordered loop.
	if codex := registry.Get("codex"); codex != nil && hasAgentMarker(raw, codex.Name()) {
		ev, err := codex.Normalize(raw)
		return ev, err == nil
	}
	for _, a := range registry.All() {
		ev, err := a.Normalize(raw)
		if err != nil {
			continue
		}
		// nil, nil means this adapter recognized the shape but the record
		// deliberately produces no canonical output (e.g. Codex turn_context).
		if ev != nil || hasAgentMarker(raw, a.Name()) {
			return ev, true
		}
	}
	// Fall back to the first adapter's mapping so records from an
	// unrecognized agent still get a best-effort canonical form rather
	// than being dropped outright.
	if len(registry.All()) == 0 {
		return nil, false
	}
	ev, err := registry.All()[0].Normalize(raw)
	return ev, err == nil
}

// hasAgentMarker is a weak heuristic: Codex payloads carry a "type" field
// Claude/Cursor payloads do not use for event classification.
func hasAgentMarker(raw storage.RawHookRecord, adapterName string) bool {
	if adapterName != "codex" {
		return false
	}
	_, ok := raw["type"]
	return ok
}

func latestTranscriptFromHooks(raws []storage.RawHookRecord) string {
	latest := ""
	latestTS := ""
	for _, raw := range raws {
		name, _ := raw["hook_event_name"].(string)
		if name != string(storage.EventSessionStart) {
			continue
		}
		path, _ := raw["transcript_path"].(string)
		ts, _ := raw["timestamp"].(string)
		if path == "" {
			continue
		}
		if ts >= latestTS {
			latestTS = ts
			latest = path
		}
	}
	return latest
}

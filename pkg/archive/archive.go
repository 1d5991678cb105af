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

// Package archive implements the archive subsystem's business logic:
// finalizing a terminated workflow into an immutable archive, and the
// deterministic repair pipeline over the archive set. Storage's
// WriteArchive/ReadArchives/DeleteArchive own the on-disk encoding; this
// package owns what goes into an archive and how repair fixes one up.
package archive

import (
	"time"

	"github.com/hegel-dev/hegel/pkg/adapter"
	"github.com/hegel-dev/hegel/pkg/metrics"
	"github.com/hegel-dev/hegel/pkg/storage"
)

// GitLog abstracts the repository query archival needs, so tests can supply
// a fake history without a real git checkout. A production implementation
// shells out to `git log` the way the command-wrapping guardrail shells out
// to wrapped commands.
type GitLog interface {
	// CommitsSince returns commits authored at or after since, ascending by
	// timestamp. An empty result (including "no repository") is valid.
	CommitsSince(since time.Time) ([]storage.GitCommit, error)
}

// ArchiveAndCleanup finalizes the live workflow into an immutable archive
// and deletes the live logs. It aggregates metrics with IncludeArchives
// false, per the specification's explicit resolution of the source's
// double-counting ambiguity: an archive write must never fold in archives
// that precede it.
func ArchiveAndCleanup(store *storage.Store, registry *adapter.Registry, git GitLog, now time.Time) (*storage.WorkflowArchive, error) {
	state, err := store.LoadState()
	if err != nil {
		return nil, err
	}
	if state.Workflow == nil {
		return nil, nil
	}

	m, err := metrics.Aggregate(store, registry, metrics.Options{IncludeArchives: false, Now: now})
	if err != nil {
		return nil, err
	}

	phases := make([]storage.PhaseArchive, len(m.PhaseMetrics))
	copy(phases, m.PhaseMetrics)

	if git != nil && len(m.StateTransitions) > 0 {
		firstTS, err := time.Parse(time.RFC3339, m.StateTransitions[0].Timestamp)
		if err == nil {
			commits, err := git.CommitsSince(firstTS)
			if err == nil {
				attributeCommits(phases, commits, now)
			}
		}
	}

	transitions := make([]storage.TransitionArchive, len(m.StateTransitions))
	for i, t := range m.StateTransitions {
		transitions[i] = storage.TransitionArchive{Timestamp: t.Timestamp, FromNode: t.FromNode, ToNode: t.ToNode}
	}

	a := &storage.WorkflowArchive{
		WorkflowID:  state.Workflow.WorkflowID,
		Mode:        state.Workflow.Mode,
		CompletedAt: now.UTC().Format(time.RFC3339),
		SessionID:   m.SessionID,
		Phases:      phases,
		Transitions: transitions,
		Totals:      totalsFromPhases(phases),
	}

	if err := store.WriteArchive(a); err != nil {
		return nil, err
	}
	// Archive write is the commit point; log deletion is best-effort and
	// must not invalidate an already-valid archive.
	_ = store.DeleteLiveLogs()

	return a, nil
}

// attributeCommits assigns each commit to the phase whose [start, end)
// window contains its timestamp; a commit after the last phase's end but
// before completion attaches to the last phase.
func attributeCommits(phases []storage.PhaseArchive, commits []storage.GitCommit, completedAt time.Time) {
	if len(phases) == 0 {
		return
	}
	for _, c := range commits {
		ts, err := time.Parse(time.RFC3339, c.Timestamp)
		if err != nil {
			continue
		}
		idx := len(phases) - 1
		for i, p := range phases {
			start, err := time.Parse(time.RFC3339, p.StartTime)
			if err != nil {
				continue
			}
			var end time.Time
			if p.EndTime != "" {
				end, err = time.Parse(time.RFC3339, p.EndTime)
				if err != nil {
					continue
				}
			} else {
				end = completedAt
			}
			if !ts.Before(start) && ts.Before(end) {
				idx = i
				break
			}
		}
		phases[idx].GitCommits = append(phases[idx].GitCommits, c)
	}
}

func totalsFromPhases(phases []storage.PhaseArchive) storage.WorkflowTotals {
	var t storage.WorkflowTotals
	for _, p := range phases {
		t.TotalTokens.Add(p.TokenMetrics)
		t.TotalDuration += p.DurationSeconds
		t.TotalCommits += len(p.GitCommits)
	}
	return t
}

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

package archive

import (
	"time"

	"github.com/hegel-dev/hegel/pkg/storage"
)

// Report summarizes one repair run for the CLI to print.
type Report struct {
	Applied   []string
	Conflicts []string
}

const cowboyMode = "cowboy"

// Repair runs the fixed list of cleanup strategies over the archive set:
// terminal-node backfill, cowboy de-duplication, then gap coverage. Running
// it twice in a row is a no-op the second time.
func Repair(store *storage.Store, git GitLog, now time.Time) (*Report, error) {
	archives, err := store.ReadArchives()
	if err != nil {
		return nil, err
	}
	report := &Report{}
	original := make([]*storage.WorkflowArchive, len(archives))
	copy(original, archives)

	dirty := map[string]*storage.WorkflowArchive{}

	for _, a := range archives {
		if backfillAbortedNode(a, now) {
			dirty[a.WorkflowID] = a
			report.Applied = append(report.Applied, "aborted_backfill:"+a.WorkflowID)
		}
	}

	for i, a := range archives {
		if !isCowboy(a) || !isZeroDuration(a) {
			continue
		}
		boundary := now
		if i+1 < len(archives) {
			if next, err := time.Parse(time.RFC3339, archives[i+1].WorkflowID); err == nil && next.Before(now) {
				boundary = next
			}
		}
		if rewriteCowboyCompletion(a, boundary) {
			dirty[a.WorkflowID] = a
			report.Applied = append(report.Applied, "cowboy_zero_duration_fix:"+a.WorkflowID)
		}
	}

	archives, removedByDedup := dedupeConsecutiveCowboys(archives)
	for _, id := range removedByDedup {
		delete(dirty, id)
		report.Applied = append(report.Applied, "cowboy_dedup_removed:"+id)
	}

	toAdd, toRemove := planGapCoverage(archives, git, now)

	for _, a := range dirty {
		if err := store.WriteArchive(a); err != nil {
			return nil, err
		}
	}
	for _, id := range removedByDedup {
		if err := store.DeleteArchive(id); err != nil {
			return nil, err
		}
	}
	for _, id := range toRemove {
		if err := store.DeleteArchive(id); err != nil {
			return nil, err
		}
		report.Applied = append(report.Applied, "gap_cowboy_removed:"+id)
	}
	for _, a := range toAdd {
		if err := store.WriteArchive(a); err != nil {
			return nil, err
		}
		report.Applied = append(report.Applied, "gap_cowboy_added:"+a.WorkflowID)
	}

	return report, nil
}

func isCowboy(a *storage.WorkflowArchive) bool {
	return a.Mode == cowboyMode && a.IsSynthetic
}

func isZeroDuration(a *storage.WorkflowArchive) bool {
	return a.WorkflowID == a.CompletedAt
}

// backfillAbortedNode appends a synthetic aborted transition when an
// archive's transitions never reached a terminal node.
func backfillAbortedNode(a *storage.WorkflowArchive, now time.Time) bool {
	term := a.TerminalNode()
	if term == "done" || term == "aborted" || term == cowboyMode {
		return false
	}
	last := ""
	if len(a.Transitions) > 0 {
		last = a.Transitions[len(a.Transitions)-1].ToNode
	}
	a.Transitions = append(a.Transitions, storage.TransitionArchive{
		Timestamp: a.CompletedAt,
		FromNode:  last,
		ToNode:    "aborted",
	})
	_ = now
	return true
}

// rewriteCowboyCompletion extends a zero-duration cowboy's completion out
// to boundary, updating its single phase and transition to match.
func rewriteCowboyCompletion(a *storage.WorkflowArchive, boundary time.Time) bool {
	newCompleted := boundary.UTC().Format(time.RFC3339)
	if newCompleted == a.CompletedAt {
		return false
	}
	a.CompletedAt = newCompleted
	start, err := time.Parse(time.RFC3339, a.WorkflowID)
	if err == nil {
		for i := range a.Phases {
			a.Phases[i].EndTime = newCompleted
			a.Phases[i].DurationSeconds = boundary.Sub(start).Seconds()
		}
	}
	if n := len(a.Transitions); n > 0 {
		a.Transitions[n-1].Timestamp = newCompleted
	}
	a.Totals = totalsFromPhases(a.Phases)
	return true
}

// dedupeConsecutiveCowboys removes every synthetic cowboy in a run of
// consecutive synthetic cowboys except the first.
func dedupeConsecutiveCowboys(archives []*storage.WorkflowArchive) ([]*storage.WorkflowArchive, []string) {
	var kept []*storage.WorkflowArchive
	var removed []string
	inRun := false
	for _, a := range archives {
		if isCowboy(a) {
			if inRun {
				removed = append(removed, a.WorkflowID)
				continue
			}
			inRun = true
			kept = append(kept, a)
			continue
		}
		inRun = false
		kept = append(kept, a)
	}
	return kept, removed
}

// planGapCoverage enumerates, against the full pre-deletion archive set,
// which cowboys must be added or removed to satisfy the gap-coverage
// invariant. Deletion happens only after every gap has been examined, so an
// earlier gap's cleanup never perturbs a later gap's view of the archive
// set.
func planGapCoverage(archives []*storage.WorkflowArchive, git GitLog, now time.Time) (toAdd []*storage.WorkflowArchive, toRemove []string) {
	var nonSynthetic []*storage.WorkflowArchive
	for _, a := range archives {
		if !a.IsSynthetic {
			nonSynthetic = append(nonSynthetic, a)
		}
	}

	for i := 0; i+1 < len(nonSynthetic); i++ {
		prev, next := nonSynthetic[i], nonSynthetic[i+1]
		gapStart, err1 := time.Parse(time.RFC3339, prev.CompletedAt)
		gapEnd, err2 := time.Parse(time.RFC3339, next.WorkflowID)
		if err1 != nil || err2 != nil || !gapStart.Before(gapEnd) {
			continue
		}

		var existing []*storage.WorkflowArchive
		for _, a := range archives {
			if !isCowboy(a) {
				continue
			}
			wid, err := time.Parse(time.RFC3339, a.WorkflowID)
			if err != nil {
				continue
			}
			if !wid.Before(gapStart) && wid.Before(gapEnd) {
				existing = append(existing, a)
			}
		}

		var commits []storage.GitCommit
		if git != nil {
			all, err := git.CommitsSince(gapStart)
			if err == nil {
				for _, c := range all {
					ts, err := time.Parse(time.RFC3339, c.Timestamp)
					if err == nil && ts.Before(gapEnd) {
						commits = append(commits, c)
					}
				}
			}
		}

		if len(commits) == 0 {
			for _, a := range existing {
				toRemove = append(toRemove, a.WorkflowID)
			}
			continue
		}

		correct := false
		for _, a := range existing {
			if a.CompletedAt == next.WorkflowID {
				correct = true
				continue
			}
			toRemove = append(toRemove, a.WorkflowID)
		}
		if !correct {
			toAdd = append(toAdd, buildCowboy(gapStart, gapEnd, commits))
		}
	}
	return toAdd, toRemove
}

func buildCowboy(start, end time.Time, commits []storage.GitCommit) *storage.WorkflowArchive {
	startStr := start.UTC().Format(time.RFC3339)
	endStr := end.UTC().Format(time.RFC3339)
	phase := storage.PhaseArchive{
		PhaseName:       cowboyMode,
		StartTime:       startStr,
		EndTime:         endStr,
		DurationSeconds: end.Sub(start).Seconds(),
		GitCommits:      commits,
		IsSynthetic:     true,
	}
	return &storage.WorkflowArchive{
		WorkflowID:  startStr,
		Mode:        cowboyMode,
		CompletedAt: endStr,
		IsSynthetic: true,
		Phases:      []storage.PhaseArchive{phase},
		Transitions: []storage.TransitionArchive{{Timestamp: startStr, FromNode: "", ToNode: cowboyMode}},
		Totals:      totalsFromPhases([]storage.PhaseArchive{phase}),
	}
}

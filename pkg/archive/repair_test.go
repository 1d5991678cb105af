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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hegel-dev/hegel/pkg/storage"
)

type fakeGit struct {
	commits []storage.GitCommit
}

func (f *fakeGit) CommitsSince(since time.Time) ([]storage.GitCommit, error) {
	var out []storage.GitCommit
	for _, c := range f.commits {
		ts, err := time.Parse(time.RFC3339, c.Timestamp)
		if err == nil && !ts.Before(since) {
			out = append(out, c)
		}
	}
	return out, nil
}

func archiveDone(workflowID, completedAt string) *storage.WorkflowArchive {
	return &storage.WorkflowArchive{
		WorkflowID:  workflowID,
		Mode:        "discovery",
		CompletedAt: completedAt,
		Phases: []storage.PhaseArchive{
			{PhaseName: "spec", StartTime: workflowID, EndTime: completedAt, DurationSeconds: 1},
		},
		Transitions: []storage.TransitionArchive{{Timestamp: completedAt, FromNode: "spec", ToNode: "done"}},
	}
}

func TestRepairCreatesCowboyForGapWithCommits(t *testing.T) {
	store, err := storage.Open(t.TempDir())
	require.NoError(t, err)

	a := archiveDone("2026-08-01T10:00:00Z", "2026-08-01T10:30:00Z")
	b := archiveDone("2026-08-01T12:00:00Z", "2026-08-01T12:30:00Z")
	require.NoError(t, store.WriteArchive(a))
	require.NoError(t, store.WriteArchive(b))

	git := &fakeGit{commits: []storage.GitCommit{{Hash: "abc1234", Timestamp: "2026-08-01T11:00:00Z"}}}
	now := time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC)

	report, err := Repair(store, git, now)
	require.NoError(t, err)
	assert.NotEmpty(t, report.Applied)

	archives, err := store.ReadArchives()
	require.NoError(t, err)
	require.Len(t, archives, 3)

	var cowboy *storage.WorkflowArchive
	for _, arc := range archives {
		if arc.Mode == cowboyMode {
			cowboy = arc
		}
	}
	require.NotNil(t, cowboy)
	assert.Equal(t, "2026-08-01T10:30:00Z", cowboy.WorkflowID)
	assert.Equal(t, "2026-08-01T12:00:00Z", cowboy.CompletedAt)
	assert.True(t, cowboy.IsSynthetic)
}

func TestRepairIsIdempotentOnSecondRun(t *testing.T) {
	store, err := storage.Open(t.TempDir())
	require.NoError(t, err)

	a := archiveDone("2026-08-01T10:00:00Z", "2026-08-01T10:30:00Z")
	b := archiveDone("2026-08-01T12:00:00Z", "2026-08-01T12:30:00Z")
	require.NoError(t, store.WriteArchive(a))
	require.NoError(t, store.WriteArchive(b))

	git := &fakeGit{commits: []storage.GitCommit{{Hash: "abc1234", Timestamp: "2026-08-01T11:00:00Z"}}}
	now := time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC)

	_, err = Repair(store, git, now)
	require.NoError(t, err)
	first, err := store.ReadArchives()
	require.NoError(t, err)

	report2, err := Repair(store, git, now)
	require.NoError(t, err)
	assert.Empty(t, report2.Applied)

	second, err := store.ReadArchives()
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))
}

func TestRepairRemovesCowboyWhenGapHasNoGitActivity(t *testing.T) {
	store, err := storage.Open(t.TempDir())
	require.NoError(t, err)

	a := archiveDone("2026-08-01T10:00:00Z", "2026-08-01T10:30:00Z")
	b := archiveDone("2026-08-01T12:00:00Z", "2026-08-01T12:30:00Z")
	stray := buildCowboy(
		mustParse("2026-08-01T10:30:00Z"),
		mustParse("2026-08-01T12:00:00Z"),
		nil,
	)
	require.NoError(t, store.WriteArchive(a))
	require.NoError(t, store.WriteArchive(b))
	require.NoError(t, store.WriteArchive(stray))

	_, err = Repair(store, &fakeGit{}, time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	archives, err := store.ReadArchives()
	require.NoError(t, err)
	for _, arc := range archives {
		assert.NotEqual(t, cowboyMode, arc.Mode)
	}
}

func TestBackfillAbortedNodeOnMissingTerminal(t *testing.T) {
	store, err := storage.Open(t.TempDir())
	require.NoError(t, err)

	broken := &storage.WorkflowArchive{
		WorkflowID:  "2026-08-01T10:00:00Z",
		Mode:        "discovery",
		CompletedAt: "2026-08-01T10:30:00Z",
		Transitions: []storage.TransitionArchive{{Timestamp: "2026-08-01T10:15:00Z", FromNode: "spec", ToNode: "plan"}},
	}
	require.NoError(t, store.WriteArchive(broken))

	_, err = Repair(store, &fakeGit{}, time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	archives, err := store.ReadArchives()
	require.NoError(t, err)
	require.Len(t, archives, 1)
	assert.Equal(t, "aborted", archives[0].TerminalNode())
}

func mustParse(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hegel-dev/hegel/pkg/adapter"
	"github.com/hegel-dev/hegel/pkg/storage"
)

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestAggregateBucketsBashCommandsByPhase(t *testing.T) {
	store := openStore(t)

	require.NoError(t, store.SaveState(&storage.State{
		Workflow: &storage.WorkflowState{
			Mode:           "discovery",
			CurrentNode:    "plan",
			History:        []string{"spec", "plan"},
			PhaseStartTime: "2026-08-01T10:00:00Z",
		},
	}))
	require.NoError(t, store.AppendTransition(storage.StateTransitionEvent{
		Timestamp: "2026-08-01T10:00:00Z", FromNode: "spec", ToNode: "plan", Phase: "plan", Mode: "discovery",
	}))
	require.NoError(t, store.AppendHook(storage.RawHookRecord{
		"hook_event_name": "PostToolUse",
		"session_id":       "s1",
		"tool_name":        "Bash",
		"tool_input":       map[string]any{"command": "go test ./..."},
		"timestamp":        "2026-08-01T10:05:00Z",
	}))

	m, err := Aggregate(store, adapter.NewRegistry(), Options{Now: time.Date(2026, 8, 1, 10, 10, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, m.PhaseMetrics, 1)
	assert.Equal(t, "plan", m.PhaseMetrics[0].PhaseName)
	require.Len(t, m.PhaseMetrics[0].BashCommands, 1)
	assert.Equal(t, "go test ./...", m.PhaseMetrics[0].BashCommands[0].Command)
}

func TestAggregateSynthesizesOpenPhaseForFirstNode(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.SaveState(&storage.State{
		Workflow: &storage.WorkflowState{
			Mode: "discovery", CurrentNode: "spec", History: []string{"spec"},
			PhaseStartTime: "2026-08-01T09:00:00Z",
		},
	}))

	m, err := Aggregate(store, adapter.NewRegistry(), Options{Now: time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, m.PhaseMetrics, 1)
	assert.Equal(t, "spec", m.PhaseMetrics[0].PhaseName)
	assert.Equal(t, "", m.PhaseMetrics[0].EndTime)
	assert.InDelta(t, 1800, m.PhaseMetrics[0].DurationSeconds, 1)
}

func TestAggregateSameTimestampTieGoesToLaterPhase(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.SaveState(&storage.State{
		Workflow: &storage.WorkflowState{Mode: "discovery", CurrentNode: "plan", History: []string{"spec", "plan"}, PhaseStartTime: "2026-08-01T10:00:00Z"},
	}))
	require.NoError(t, store.AppendTransition(storage.StateTransitionEvent{
		Timestamp: "2026-08-01T09:00:00Z", FromNode: "", ToNode: "spec", Phase: "spec", Mode: "discovery",
	}))
	require.NoError(t, store.AppendTransition(storage.StateTransitionEvent{
		Timestamp: "2026-08-01T10:00:00Z", FromNode: "spec", ToNode: "plan", Phase: "plan", Mode: "discovery",
	}))
	require.NoError(t, store.AppendHook(storage.RawHookRecord{
		"hook_event_name": "PostToolUse", "tool_name": "Bash",
		"tool_input": map[string]any{"command": "boundary-command"},
		"timestamp":  "2026-08-01T10:00:00Z",
	}))

	m, err := Aggregate(store, adapter.NewRegistry(), Options{Now: time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, m.PhaseMetrics, 2)
	assert.Empty(t, m.PhaseMetrics[0].BashCommands)
	require.Len(t, m.PhaseMetrics[1].BashCommands, 1)
}

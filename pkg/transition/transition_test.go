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

package transition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hegel-dev/hegel/pkg/adapter"
	"github.com/hegel-dev/hegel/pkg/herr"
	"github.com/hegel-dev/hegel/pkg/storage"
	"github.com/hegel-dev/hegel/workflow"
)

const linearYAML = `
mode: discovery
start_node: spec
nodes:
  spec:
    prompt: "Write the spec."
    transitions:
      - when: spec_complete
        to: plan
  plan:
    prompt: "Write the plan."
    transitions:
      - when: plan_complete
        to: done
  done: {}
`

const researchYAML = `
mode: research
start_node: investigate
nodes:
  investigate:
    prompt: "Investigate."
    transitions:
      - when: done_complete
        to: done
  done: {}
`

type mapLoader map[string]string

func (m mapLoader) Load(mode string) (*workflow.Workflow, error) {
	src, ok := m[mode]
	if !ok {
		return nil, herr.New(herr.KindWorkflowLoad, "unknown workflow mode "+mode, nil)
	}
	return workflow.Parse([]byte(src))
}

type noGit struct{}

func (noGit) CommitsSince(since time.Time) ([]storage.GitCommit, error) { return nil, nil }

func newController(t *testing.T, loader mapLoader) *Controller {
	store, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	return &Controller{
		Store:    store,
		Registry: adapter.NewRegistry(),
		Loader:   loader,
		Git:      noGit{},
		Now:      func() time.Time { return time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC) },
	}
}

func TestStartWorkflowInitializesState(t *testing.T) {
	ctrl := newController(t, mapLoader{"discovery": linearYAML})
	out, err := ctrl.StartWorkflow("discovery", "standard")
	require.NoError(t, err)
	assert.Equal(t, "spec", out.ToNode)

	st, err := ctrl.Store.LoadState()
	require.NoError(t, err)
	require.NotNil(t, st.Workflow)
	assert.Equal(t, []string{"spec"}, st.Workflow.History)
}

func TestStartWorkflowFailsWhenActiveAndNonTerminal(t *testing.T) {
	ctrl := newController(t, mapLoader{"discovery": linearYAML})
	_, err := ctrl.StartWorkflow("discovery", "standard")
	require.NoError(t, err)

	_, err = ctrl.StartWorkflow("discovery", "standard")
	require.Error(t, err)
	var herrErr *herr.Error
	require.ErrorAs(t, err, &herrErr)
	assert.Equal(t, herr.KindWorkflowActive, herrErr.Kind)
}

func TestAdvanceIntraWorkflowAppendsTransitionAndLogsOnTerminal(t *testing.T) {
	ctrl := newController(t, mapLoader{"discovery": linearYAML})
	// No meta-mode: under "standard", discovery's done hops into execution.
	_, err := ctrl.StartWorkflow("discovery", "")
	require.NoError(t, err)

	out, err := ctrl.Advance(Next(), nil)
	require.NoError(t, err)
	assert.Equal(t, IntraWorkflow, out.Kind)
	assert.Equal(t, "plan", out.ToNode)

	transitions, skipped := ctrl.Store.ReadTransitions()
	assert.Empty(t, skipped)
	require.Len(t, transitions, 1)
	assert.Equal(t, "spec", transitions[0].FromNode)
	assert.Equal(t, "plan", transitions[0].ToNode)

	out, err = ctrl.Advance(Next(), nil)
	require.NoError(t, err)
	assert.Equal(t, "done", out.ToNode)

	st, err := ctrl.Store.LoadState()
	require.NoError(t, err)
	assert.Nil(t, st.Workflow)

	archives, err := ctrl.Store.ReadArchives()
	require.NoError(t, err)
	require.Len(t, archives, 1)
}

func TestAdvanceRepeatResolvesToEmptyClaimSet(t *testing.T) {
	ctrl := newController(t, mapLoader{"discovery": linearYAML})
	_, err := ctrl.StartWorkflow("discovery", "standard")
	require.NoError(t, err)

	out, err := ctrl.Advance(Repeat(), nil)
	require.NoError(t, err)
	assert.Equal(t, Stay, out.Kind)
	assert.Equal(t, "spec", out.ToNode)
}

func TestAbortWorkflowArchivesWithAbortedTerminal(t *testing.T) {
	ctrl := newController(t, mapLoader{"discovery": linearYAML})
	_, err := ctrl.StartWorkflow("discovery", "standard")
	require.NoError(t, err)

	require.NoError(t, ctrl.AbortWorkflow())

	st, err := ctrl.Store.LoadState()
	require.NoError(t, err)
	assert.Nil(t, st.Workflow)

	archives, err := ctrl.Store.ReadArchives()
	require.NoError(t, err)
	require.Len(t, archives, 1)
	assert.Equal(t, "aborted", archives[0].TerminalNode())
}

func TestPrevPromptFailsAtHistoryFloor(t *testing.T) {
	ctrl := newController(t, mapLoader{"discovery": linearYAML})
	_, err := ctrl.StartWorkflow("discovery", "standard")
	require.NoError(t, err)

	_, err = ctrl.PrevPrompt()
	require.Error(t, err)
	var herrErr *herr.Error
	require.ErrorAs(t, err, &herrErr)
	assert.Equal(t, herr.KindTransitionNotAllowed, herrErr.Kind)
}

func TestPrevPromptRestoresPriorNode(t *testing.T) {
	ctrl := newController(t, mapLoader{"discovery": linearYAML})
	_, err := ctrl.StartWorkflow("discovery", "standard")
	require.NoError(t, err)
	_, err = ctrl.Advance(Next(), nil)
	require.NoError(t, err)

	out, err := ctrl.PrevPrompt()
	require.NoError(t, err)
	assert.Equal(t, "spec", out.ToNode)

	st, err := ctrl.Store.LoadState()
	require.NoError(t, err)
	assert.Equal(t, "spec", st.Workflow.CurrentNode)
	assert.Equal(t, []string{"spec"}, st.Workflow.History)
}

func TestInterWorkflowTransitionUnderMetaMode(t *testing.T) {
	ctrl := newController(t, mapLoader{"research": researchYAML, "discovery": linearYAML})
	_, err := ctrl.StartWorkflow("research", "learning")
	require.NoError(t, err)

	out, err := ctrl.Advance(Custom("done_complete"), nil)
	require.NoError(t, err)
	require.Equal(t, InterWorkflow, out.Kind)
	assert.Equal(t, "discovery", out.ToWorkflow)
	assert.Equal(t, "spec", out.ToNode)

	st, err := ctrl.Store.LoadState()
	require.NoError(t, err)
	require.NotNil(t, st.Workflow)
	assert.Equal(t, "discovery", st.Workflow.Mode)
	assert.Equal(t, "learning", st.Workflow.MetaMode)
	assert.Equal(t, "spec", st.Workflow.CurrentNode)

	// Archiving research deleted its live logs, so only the hop into the
	// new workflow remains in states.log.
	transitions, _ := ctrl.Store.ReadTransitions()
	require.Len(t, transitions, 1)
	assert.Equal(t, "done", transitions[0].FromNode)
	assert.Equal(t, "spec", transitions[0].ToNode)
}

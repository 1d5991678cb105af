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

package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hegel-dev/hegel/pkg/metrics"
	"github.com/hegel-dev/hegel/pkg/storage"
)

const linearWorkflowYAML = `
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
    rules:
      - type: token_budget
        max_tokens: 5000
  done: {}
`

func TestParseValidWorkflow(t *testing.T) {
	wf, err := Parse([]byte(linearWorkflowYAML))
	require.NoError(t, err)
	assert.Equal(t, "spec", wf.StartNode)
	assert.True(t, wf.IsTerminal("done"))
	assert.False(t, wf.IsTerminal("spec"))
}

func TestParseRejectsBothPromptForms(t *testing.T) {
	_, err := Parse([]byte(`
start_node: a
nodes:
  a:
    prompt: "x"
    prompt_hbs: "y"
`))
	assert.Error(t, err)
}

func TestParseRejectsUnknownTransitionTarget(t *testing.T) {
	_, err := Parse([]byte(`
start_node: a
nodes:
  a:
    transitions:
      - when: go
        to: missing
`))
	assert.Error(t, err)
}

func TestParseRejectsUnreachableTerminal(t *testing.T) {
	_, err := Parse([]byte(`
start_node: a
nodes:
  a:
    transitions:
      - when: loop
        to: a
`))
	assert.Error(t, err)
}

func TestParseRejectsDoneWithPrompt(t *testing.T) {
	_, err := Parse([]byte(`
start_node: a
nodes:
  a:
    transitions:
      - when: go
        to: done
  done:
    prompt: "should not be allowed"
`))
	assert.Error(t, err)
}

func TestNextFiresInterruptFromCurrentPhaseMetrics(t *testing.T) {
	wf, err := Parse([]byte(linearWorkflowYAML))
	require.NoError(t, err)

	state := &storage.WorkflowState{CurrentNode: "spec", History: []string{"spec"}}
	m := &metrics.UnifiedMetrics{
		PhaseMetrics: []metrics.PhaseMetrics{
			{
				PhaseName: "spec",
				StartTime: "2026-08-01T10:00:00Z",
				TokenMetrics: storage.TokenMetrics{Input: 4000, Output: 2000},
			},
		},
	}
	now := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)

	res, err := Next(wf, state, map[string]bool{"spec_complete": true}, m, now, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Violation)
	assert.False(t, res.Transitioned)
	assert.Equal(t, "spec", res.Destination)
	assert.Contains(t, res.Prompt, "Token Budget")
	assert.Contains(t, res.Prompt, "6000 tokens (limit: 5000)")
}

func TestNextTransitionsWhenNoRuleFires(t *testing.T) {
	wf, err := Parse([]byte(linearWorkflowYAML))
	require.NoError(t, err)

	state := &storage.WorkflowState{CurrentNode: "spec", History: []string{"spec"}}
	m := &metrics.UnifiedMetrics{
		PhaseMetrics: []metrics.PhaseMetrics{
			{PhaseName: "spec", StartTime: "2026-08-01T10:00:00Z", TokenMetrics: storage.TokenMetrics{Input: 100}},
		},
	}
	res, err := Next(wf, state, map[string]bool{"spec_complete": true}, m, time.Now(), nil)
	require.NoError(t, err)
	assert.True(t, res.Transitioned)
	assert.Equal(t, "plan", res.Destination)
	assert.Equal(t, "Write the plan.", res.Prompt)
}

func TestNextStaysOnNoMatchingClaim(t *testing.T) {
	wf, err := Parse([]byte(linearWorkflowYAML))
	require.NoError(t, err)
	state := &storage.WorkflowState{CurrentNode: "spec", History: []string{"spec"}}
	res, err := Next(wf, state, map[string]bool{}, &metrics.UnifiedMetrics{}, time.Now(), nil)
	require.NoError(t, err)
	assert.False(t, res.Transitioned)
	assert.Equal(t, "spec", res.Destination)
}

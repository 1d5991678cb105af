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
	"time"

	"github.com/hegel-dev/hegel/pkg/herr"
	"github.com/hegel-dev/hegel/pkg/metrics"
	"github.com/hegel-dev/hegel/pkg/rules"
	"github.com/hegel-dev/hegel/pkg/storage"
)

// NextResult is what Next computes: either a destination to move to, or a
// reason to stay (no matching transition, or a rule interrupt).
type NextResult struct {
	Destination  string
	Prompt       string
	IsHandlebars bool
	Transitioned bool
	Violation    *rules.Violation
}

// Next implements the workflow engine's stateless step: resolve the first
// matching transition, evaluate the destination's rules against the
// currently open phase's metrics, and return either the destination's
// prompt or a synthesized interrupt. State mutation is the transition
// controller's job, not this function's.
func Next(wf *Workflow, state *storage.WorkflowState, claims map[string]bool, m *metrics.UnifiedMetrics, now time.Time, forced map[string]bool) (*NextResult, error) {
	current := wf.NodeNamed(state.CurrentNode)
	if current == nil {
		return nil, herr.New(herr.KindTransitionNotAllowed, "current node "+state.CurrentNode+" is not defined", nil)
	}

	destName := state.CurrentNode
	for _, t := range current.Transitions {
		if claims[t.When] {
			destName = t.To
			break
		}
	}
	dest := wf.NodeNamed(destName)
	if dest == nil {
		return nil, herr.New(herr.KindTransitionNotAllowed, "destination node "+destName+" is not defined", nil)
	}

	if len(dest.Rules) > 0 {
		ctx, ok := buildEvalContext(state, m, now)
		if ok {
			if v, fired := rules.Evaluate(dest.Rules, withForced(ctx, forced)); fired {
				return &NextResult{
					Destination: state.CurrentNode,
					Prompt:      synthesizeInterrupt(v),
					Violation:   v,
				}, nil
			}
		}
	}

	return &NextResult{
		Destination:  destName,
		Prompt:       promptOf(dest),
		IsHandlebars: dest.PromptHBS != "",
		Transitioned: destName != state.CurrentNode,
	}, nil
}

func promptOf(n *Node) string {
	if n.PromptHBS != "" {
		return n.PromptHBS
	}
	return n.Prompt
}

func withForced(ctx rules.EvalContext, forced map[string]bool) rules.EvalContext {
	ctx.Forced = forced
	return ctx
}

// buildEvalContext finds the currently open phase (matching
// state.CurrentNode) in the aggregated metrics and turns it into the
// evaluation context destination rules run against, per the scenario where
// a rule attached to a not-yet-entered node is checked against the
// activity that accumulated in the phase about to end.
func buildEvalContext(state *storage.WorkflowState, m *metrics.UnifiedMetrics, now time.Time) (rules.EvalContext, bool) {
	var current *metrics.PhaseMetrics
	for i := range m.PhaseMetrics {
		if m.PhaseMetrics[i].PhaseName == state.CurrentNode && m.PhaseMetrics[i].EndTime == "" {
			current = &m.PhaseMetrics[i]
		}
	}
	if current == nil {
		return rules.EvalContext{}, false
	}
	start, err := time.Parse(time.RFC3339, current.StartTime)
	if err != nil {
		return rules.EvalContext{}, false
	}

	var priorHasCommit []bool
	foundCurrent := false
	for i := len(m.PhaseMetrics) - 1; i >= 0; i-- {
		p := m.PhaseMetrics[i]
		if !foundCurrent {
			if p.PhaseName == current.PhaseName && p.StartTime == current.StartTime {
				foundCurrent = true
			}
			continue
		}
		priorHasCommit = append(priorHasCommit, len(p.GitCommits) > 0)
	}

	return rules.EvalContext{
		Now:                 now,
		PhaseStart:          start,
		PhaseTokens:         current.TokenMetrics,
		BashCommands:        current.BashCommands,
		FileMods:            current.FileModifications,
		PhaseCommits:        current.GitCommits,
		PriorPhaseHasCommit: priorHasCommit,
	}, true
}

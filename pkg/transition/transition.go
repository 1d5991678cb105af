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

// Package transition implements the Transition Controller: the single
// "advance" step that loads context, asks the workflow engine for the next
// outcome, commits state, logs the transition, and triggers archival on
// termination. It is the only package that mutates WorkflowState.
package transition

import (
	"time"

	"github.com/hegel-dev/hegel/pkg/adapter"
	"github.com/hegel-dev/hegel/pkg/archive"
	"github.com/hegel-dev/hegel/pkg/herr"
	"github.com/hegel-dev/hegel/pkg/metamode"
	"github.com/hegel-dev/hegel/pkg/metrics"
	"github.com/hegel-dev/hegel/pkg/rules"
	"github.com/hegel-dev/hegel/pkg/storage"
	"github.com/hegel-dev/hegel/workflow"
)

// ClaimAlias is the small, closed set of ways a caller can name the claim
// set for an advance call without spelling out claim names itself.
type ClaimAlias struct {
	kind   claimAliasKind
	custom string
}

type claimAliasKind int

const (
	aliasNext claimAliasKind = iota
	aliasRepeat
	aliasRestart
	aliasCustom
)

// Next resolves to {current_node + "_complete"}.
func Next() ClaimAlias { return ClaimAlias{kind: aliasNext} }

// Repeat resolves to the empty claim set: no transition matches, so the
// current node's rules are re-evaluated against fresh metrics and its
// prompt is re-rendered if no rule fires.
func Repeat() ClaimAlias { return ClaimAlias{kind: aliasRepeat} }

// Restart resolves to {"restart_cycle"}, a claim name every restartable
// workflow is expected to wire to a transition back to its start node.
func Restart() ClaimAlias { return ClaimAlias{kind: aliasRestart} }

// Custom resolves to the literal claim name given.
func Custom(name string) ClaimAlias { return ClaimAlias{kind: aliasCustom, custom: name} }

func (a ClaimAlias) resolve(currentNode string) map[string]bool {
	switch a.kind {
	case aliasNext:
		return map[string]bool{currentNode + "_complete": true}
	case aliasRestart:
		return map[string]bool{"restart_cycle": true}
	case aliasCustom:
		return map[string]bool{a.custom: true}
	default: // aliasRepeat
		return map[string]bool{}
	}
}

// OutcomeKind distinguishes the four possible shapes of an advance result.
type OutcomeKind string

const (
	Stay          OutcomeKind = "stay"
	IntraWorkflow OutcomeKind = "intra_workflow"
	InterWorkflow OutcomeKind = "inter_workflow"
	Ambiguous     OutcomeKind = "ambiguous"
)

// Outcome is the tagged union evaluate_transition produces. Only the fields
// relevant to Kind are populated.
type Outcome struct {
	Kind OutcomeKind

	FromNode string
	ToNode   string
	Prompt   string

	FromWorkflow string
	ToWorkflow   string

	Options []metamode.Option

	Violation *rules.Violation
}

// WorkflowLoader resolves a workflow mode name to its parsed definition.
// The CLI boundary supplies an implementation backed by a workflow
// directory; tests supply an in-memory map.
type WorkflowLoader interface {
	Load(mode string) (*workflow.Workflow, error)
}

// Controller wires together the engine, storage, and archival subsystem
// behind the single advance/start/abort/prev surface described for
// component G.
type Controller struct {
	Store    *storage.Store
	Registry *adapter.Registry
	Loader   WorkflowLoader
	Git      archive.GitLog
	Now      func() time.Time
}

func (c *Controller) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// StartWorkflow begins a fresh workflow under mode. If a workflow is
// already active and not terminal, it fails with KindWorkflowActive per the
// pre-existing-workflow guard. Session metadata and cumulative totals
// survive a replace.
func (c *Controller) StartWorkflow(mode string, metaMode string) (*Outcome, error) {
	st, err := c.Store.LoadState()
	if err != nil {
		return nil, err
	}
	if st.Workflow != nil {
		wf, err := c.Loader.Load(st.Workflow.Mode)
		if err != nil {
			return nil, err
		}
		if !wf.IsTerminal(st.Workflow.CurrentNode) {
			return nil, herr.New(herr.KindWorkflowActive, "a workflow is already active: "+st.Workflow.Mode, nil)
		}
	}

	wf, err := c.Loader.Load(mode)
	if err != nil {
		return nil, err
	}
	node := wf.NodeNamed(wf.StartNode)
	now := c.now()
	st.Workflow = &storage.WorkflowState{
		WorkflowID:     now.UTC().Format(time.RFC3339),
		Mode:           mode,
		CurrentNode:    wf.StartNode,
		History:        []string{wf.StartNode},
		MetaMode:       metaMode,
		PhaseStartTime: now.UTC().Format(time.RFC3339),
		IsHandlebars:   node.PromptHBS != "",
	}
	if err := c.Store.SaveState(st); err != nil {
		return nil, err
	}
	return &Outcome{Kind: Stay, ToNode: wf.StartNode, Prompt: promptOf(node)}, nil
}

// Advance is the single public entry point for component G: resolve the
// claim alias, evaluate the transition, and (unless it is Ambiguous or a
// rule interrupt) commit and log it.
func (c *Controller) Advance(alias ClaimAlias, forced map[string]bool) (*Outcome, error) {
	st, err := c.Store.LoadState()
	if err != nil {
		return nil, err
	}
	if st.Workflow == nil {
		return nil, herr.New(herr.KindTransitionNotAllowed, "no workflow is active", nil)
	}
	wf, err := c.Loader.Load(st.Workflow.Mode)
	if err != nil {
		return nil, err
	}
	claims := alias.resolve(st.Workflow.CurrentNode)

	m, err := metrics.Aggregate(c.Store, c.Registry, metrics.Options{IncludeArchives: true, Now: c.now()})
	if err != nil {
		return nil, err
	}

	outcome, err := c.evaluateTransition(wf, st, claims, m, forced)
	if err != nil {
		return nil, err
	}
	if outcome.Kind == Ambiguous || outcome.Violation != nil {
		return outcome, nil
	}
	if outcome.Kind == Stay {
		return outcome, nil
	}
	return c.executeTransition(st, wf, outcome)
}

// evaluateTransition implements the four-way dispatch described for
// evaluate_transition: a matched intra-workflow edge, an inter-workflow
// hop when the node is terminal and the meta-mode registry names exactly
// one follow-up, ambiguity when it names more than one, or Stay.
func (c *Controller) evaluateTransition(wf *workflow.Workflow, st *storage.State, claims map[string]bool, m *metrics.UnifiedMetrics, forced map[string]bool) (*Outcome, error) {
	state := st.Workflow
	res, err := workflow.Next(wf, state, claims, m, c.now(), forced)
	if err != nil {
		return nil, err
	}
	if res.Violation != nil {
		return &Outcome{Kind: Stay, FromNode: state.CurrentNode, ToNode: state.CurrentNode, Prompt: res.Prompt, Violation: res.Violation}, nil
	}

	if !wf.IsTerminal(res.Destination) {
		if !res.Transitioned {
			return &Outcome{Kind: Stay, FromNode: state.CurrentNode, ToNode: state.CurrentNode, Prompt: res.Prompt}, nil
		}
		return &Outcome{Kind: IntraWorkflow, FromNode: state.CurrentNode, ToNode: res.Destination, Prompt: res.Prompt}, nil
	}

	// The destination is terminal. Whether this single advance call ends
	// the workflow outright or hops straight into the next one under a
	// meta-mode depends on how many follow-ups the registry names for it,
	// checked before the ordinary terminal transition is committed so an
	// inter-workflow hop never leaves a dangling "done" state behind.
	opts := metamode.Lookup(state.MetaMode, state.Mode, res.Destination)
	switch len(opts) {
	case 0:
		if !res.Transitioned {
			return &Outcome{Kind: Stay, FromNode: state.CurrentNode, ToNode: state.CurrentNode, Prompt: res.Prompt}, nil
		}
		return &Outcome{Kind: IntraWorkflow, FromNode: state.CurrentNode, ToNode: res.Destination, Prompt: res.Prompt}, nil
	case 1:
		opt := opts[0]
		next, err := c.Loader.Load(opt.NextWorkflow)
		if err != nil {
			return nil, err
		}
		return &Outcome{
			Kind:         InterWorkflow,
			FromWorkflow: state.Mode,
			FromNode:     state.CurrentNode,
			ToWorkflow:   opt.NextWorkflow,
			ToNode:       next.StartNode,
			Prompt:       promptOf(next.NodeNamed(next.StartNode)),
		}, nil
	default:
		return &Outcome{Kind: Ambiguous, FromNode: state.CurrentNode, ToNode: res.Destination, Options: opts}, nil
	}
}

// executeTransition mutates state, appends a StateTransitionEvent exactly
// when a node change occurred, and triggers archival when the destination
// is terminal.
func (c *Controller) executeTransition(st *storage.State, wf *workflow.Workflow, outcome *Outcome) (*Outcome, error) {
	now := c.now()

	switch outcome.Kind {
	case IntraWorkflow:
		st.Workflow.History = append(st.Workflow.History, outcome.ToNode)
		st.Workflow.CurrentNode = outcome.ToNode
		st.Workflow.PhaseStartTime = now.UTC().Format(time.RFC3339)
		node := wf.NodeNamed(outcome.ToNode)
		st.Workflow.IsHandlebars = node.PromptHBS != ""
		if err := c.Store.SaveState(st); err != nil {
			return nil, err
		}
		if err := c.Store.AppendTransition(storage.StateTransitionEvent{
			Timestamp:  now.UTC().Format(time.RFC3339),
			WorkflowID: st.Workflow.WorkflowID,
			FromNode:   outcome.FromNode,
			ToNode:     outcome.ToNode,
			Phase:      outcome.ToNode,
			Mode:       st.Workflow.Mode,
		}); err != nil {
			return nil, err
		}
		if wf.IsTerminal(outcome.ToNode) {
			if err := c.archiveAndClear(st, now); err != nil {
				return nil, err
			}
		}
		return outcome, nil

	case InterWorkflow:
		if err := c.Store.AppendTransition(storage.StateTransitionEvent{
			Timestamp:  now.UTC().Format(time.RFC3339),
			WorkflowID: st.Workflow.WorkflowID,
			FromNode:   outcome.FromNode,
			ToNode:     "done",
			Phase:      "done",
			Mode:       st.Workflow.Mode,
		}); err != nil {
			return nil, err
		}
		if err := c.archiveAndClear(st, now); err != nil {
			return nil, err
		}
		next, err := c.Loader.Load(outcome.ToWorkflow)
		if err != nil {
			return nil, err
		}
		metaMode := st.Workflow.MetaMode
		st, err = c.Store.LoadState()
		if err != nil {
			return nil, err
		}
		st.Workflow = &storage.WorkflowState{
			WorkflowID:     now.UTC().Format(time.RFC3339),
			Mode:           outcome.ToWorkflow,
			CurrentNode:    next.StartNode,
			History:        []string{next.StartNode},
			MetaMode:       metaMode,
			PhaseStartTime: now.UTC().Format(time.RFC3339),
			IsHandlebars:   next.NodeNamed(next.StartNode).PromptHBS != "",
		}
		if err := c.Store.SaveState(st); err != nil {
			return nil, err
		}
		if err := c.Store.AppendTransition(storage.StateTransitionEvent{
			Timestamp:  now.UTC().Format(time.RFC3339),
			WorkflowID: st.Workflow.WorkflowID,
			FromNode:   "done",
			ToNode:     next.StartNode,
			Phase:      next.StartNode,
			Mode:       outcome.ToWorkflow,
		}); err != nil {
			return nil, err
		}
		return outcome, nil
	}

	return outcome, nil
}

// archiveAndClear finalizes the active workflow and clears it from state.
// cumulative_totals is a cache rebuilt from the archive set by the metrics
// aggregator, not maintained incrementally here.
func (c *Controller) archiveAndClear(st *storage.State, now time.Time) error {
	if _, err := archive.ArchiveAndCleanup(c.Store, c.Registry, c.Git, now); err != nil {
		return err
	}
	st2, err := c.Store.LoadState()
	if err != nil {
		return err
	}
	st2.Workflow = nil
	return c.Store.SaveState(st2)
}

// AbortWorkflow synthesizes a transition current_node -> aborted, logs it,
// then archives and cleans up exactly as a "done" termination would.
func (c *Controller) AbortWorkflow() error {
	st, err := c.Store.LoadState()
	if err != nil {
		return err
	}
	if st.Workflow == nil {
		return herr.New(herr.KindTransitionNotAllowed, "no workflow is active", nil)
	}
	now := c.now()
	if err := c.Store.AppendTransition(storage.StateTransitionEvent{
		Timestamp:  now.UTC().Format(time.RFC3339),
		WorkflowID: st.Workflow.WorkflowID,
		FromNode:   st.Workflow.CurrentNode,
		ToNode:     "aborted",
		Phase:      "aborted",
		Mode:       st.Workflow.Mode,
	}); err != nil {
		return err
	}
	return c.archiveAndClear(st, now)
}

// PrevPrompt pops the current node and restores the previous one, failing
// with KindTransitionNotAllowed at the history floor.
func (c *Controller) PrevPrompt() (*Outcome, error) {
	st, err := c.Store.LoadState()
	if err != nil {
		return nil, err
	}
	if st.Workflow == nil {
		return nil, herr.New(herr.KindTransitionNotAllowed, "no workflow is active", nil)
	}
	if len(st.Workflow.History) < 2 {
		return nil, herr.New(herr.KindTransitionNotAllowed, "already at the first node in history", nil)
	}
	wf, err := c.Loader.Load(st.Workflow.Mode)
	if err != nil {
		return nil, err
	}
	now := c.now()
	from := st.Workflow.CurrentNode
	st.Workflow.History = st.Workflow.History[:len(st.Workflow.History)-1]
	to := st.Workflow.History[len(st.Workflow.History)-1]
	st.Workflow.CurrentNode = to
	st.Workflow.PhaseStartTime = now.UTC().Format(time.RFC3339)
	node := wf.NodeNamed(to)
	st.Workflow.IsHandlebars = node.PromptHBS != ""
	if err := c.Store.SaveState(st); err != nil {
		return nil, err
	}
	if err := c.Store.AppendTransition(storage.StateTransitionEvent{
		Timestamp:  now.UTC().Format(time.RFC3339),
		WorkflowID: st.Workflow.WorkflowID,
		FromNode:   from,
		ToNode:     to,
		Phase:      to,
		Mode:       st.Workflow.Mode,
	}); err != nil {
		return nil, err
	}
	return &Outcome{Kind: IntraWorkflow, FromNode: from, ToNode: to, Prompt: promptOf(node)}, nil
}

func promptOf(n *workflow.Node) string {
	if n.PromptHBS != "" {
		return n.PromptHBS
	}
	return n.Prompt
}

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

// Package metamode holds the compiled constant table mapping a terminal
// workflow back onto whatever comes next under a given meta-mode. It has no
// mutable state and no I/O; the Transition Controller is the only caller.
package metamode

// Option is one candidate follow-up workflow the registry offers for a
// (meta_mode, workflow_mode, terminal_node) key. A meta-mode change means
// the returned workflow is entered under a different meta-mode than the one
// that produced it.
type Option struct {
	NextWorkflow    string
	Description     string
	MetaModeChange  string // empty when the meta-mode is unchanged
}

type key struct {
	metaMode     string
	workflowMode string
	terminalNode string
}

// table is the compiled registry. Only "done" terminal nodes participate in
// inter-workflow transitions; "aborted" and synthetic-cowboy terminals never
// look up a follow-up.
var table = map[key][]Option{
	{"learning", "research", "done"}: {
		{NextWorkflow: "discovery", Description: "Move from research findings into a discovery workflow."},
	},
	{"learning", "discovery", "done"}: {
		{NextWorkflow: "research", Description: "Return to research to validate an open question."},
	},
	{"standard", "discovery", "done"}: {
		{NextWorkflow: "execution", Description: "Move from an accepted discovery into execution."},
	},
	{"standard", "execution", "done"}: {
		{NextWorkflow: "discovery", Description: "Return to discovery to scope the next increment."},
	},
}

// Lookup returns the follow-up options for a terminal workflow under a
// meta-mode. An unknown meta-mode, workflow mode, or non-"done" terminal
// node always returns an empty, non-nil slice.
func Lookup(metaMode, workflowMode, terminalNode string) []Option {
	opts := table[key{metaMode, workflowMode, terminalNode}]
	out := make([]Option, len(opts))
	copy(out, opts)
	return out
}

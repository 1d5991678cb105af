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

// Package workflow holds the workflow graph: nodes, guarded transitions,
// and load-time validation. The engine that walks the graph is stateless —
// all state mutation happens in the transition controller.
package workflow

import (
	"github.com/hegel-dev/hegel/pkg/rules"
)

// Transition is a guarded edge, evaluated in declaration order.
type Transition struct {
	When string `yaml:"when"`
	To   string `yaml:"to"`
}

// Node is one state in the workflow graph.
type Node struct {
	Prompt      string        `yaml:"prompt,omitempty"`
	PromptHBS   string        `yaml:"prompt_hbs,omitempty"`
	Transitions []Transition  `yaml:"transitions,omitempty"`
	Rules       []*rules.Rule `yaml:"rules,omitempty"`
}

// IsTerminal reports whether n has no outgoing transitions.
func (n *Node) IsTerminal() bool { return len(n.Transitions) == 0 }

// Workflow is the immutable, load-time-validated graph.
type Workflow struct {
	Mode      string           `yaml:"mode"`
	StartNode string           `yaml:"start_node"`
	Nodes     map[string]*Node `yaml:"nodes"`
}

// NodeNamed returns the named node, or nil if it does not exist.
func (w *Workflow) NodeNamed(name string) *Node {
	return w.Nodes[name]
}

// IsTerminal reports whether name is a terminal node of w. A name absent
// from the graph is not terminal.
func (w *Workflow) IsTerminal(name string) bool {
	n, ok := w.Nodes[name]
	return ok && n.IsTerminal()
}

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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hegel-dev/hegel/pkg/herr"
)

// Load parses and validates a workflow YAML file.
func Load(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, herr.New(herr.KindWorkflowLoad, "read workflow file "+path, err)
	}
	return Parse(data)
}

// Parse parses and validates workflow YAML already in memory.
func Parse(data []byte) (*Workflow, error) {
	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, herr.New(herr.KindWorkflowLoad, "parse workflow YAML", err)
	}
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	return &wf, nil
}

// Validate enforces every load-time invariant from the data model: valid
// start node, every transition target exists, mutual exclusion of prompt
// and prompt_hbs, a silent done node if present, rule validity, and
// reachability of at least one terminal node.
func (w *Workflow) Validate() error {
	if w.StartNode == "" {
		return herr.New(herr.KindWorkflowLoad, "start_node is required", nil)
	}
	if _, ok := w.Nodes[w.StartNode]; !ok {
		return herr.New(herr.KindWorkflowLoad, fmt.Sprintf("start_node %q is not a defined node", w.StartNode), nil)
	}

	for name, n := range w.Nodes {
		if n.Prompt != "" && n.PromptHBS != "" {
			return herr.New(herr.KindWorkflowLoad, fmt.Sprintf("node %q: prompt and prompt_hbs are mutually exclusive", name), nil)
		}
		if name == "done" && (n.Prompt != "" || n.PromptHBS != "") {
			return herr.New(herr.KindWorkflowLoad, "node \"done\" is terminal and silent: it must not carry a prompt", nil)
		}
		for _, t := range n.Transitions {
			if _, ok := w.Nodes[t.To]; !ok {
				return herr.New(herr.KindWorkflowLoad, fmt.Sprintf("node %q: transition %q targets undefined node %q", name, t.When, t.To), nil)
			}
		}
		for _, r := range n.Rules {
			if err := r.Validate(); err != nil {
				return err
			}
		}
	}

	if !w.hasReachableTerminal() {
		return herr.New(herr.KindWorkflowLoad, "no terminal node is reachable from start_node", nil)
	}
	return nil
}

func (w *Workflow) hasReachableTerminal() bool {
	visited := map[string]bool{}
	queue := []string{w.StartNode}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if visited[name] {
			continue
		}
		visited[name] = true
		n, ok := w.Nodes[name]
		if !ok {
			continue
		}
		if n.IsTerminal() {
			return true
		}
		for _, t := range n.Transitions {
			if !visited[t.To] {
				queue = append(queue, t.To)
			}
		}
	}
	return false
}

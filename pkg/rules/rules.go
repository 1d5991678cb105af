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

// Package rules implements the workflow node guardrail variants: typed
// thresholds evaluated against aggregated phase metrics, plus a
// supplemental CEL expression variant for conditions the typed variants
// cannot express.
package rules

import (
	"fmt"
	"regexp"

	"github.com/google/cel-go/cel"

	"github.com/hegel-dev/hegel/pkg/herr"
)

// Variant identifies one rule's kind.
type Variant string

const (
	VariantRepeatedCommand  Variant = "repeated_command"
	VariantRepeatedFileEdit Variant = "repeated_file_edit"
	VariantPhaseTimeout     Variant = "phase_timeout"
	VariantTokenBudget      Variant = "token_budget"
	VariantRequireCommits   Variant = "require_commits"
	VariantExpr             Variant = "expr"
)

// LookbackEntireHistory is the RequireCommits sentinel meaning "the entire
// workflow history", not just the last N phases.
const LookbackEntireHistory = 999

// Rule is one guardrail attached to a workflow node, decoded from YAML.
type Rule struct {
	Type Variant `yaml:"type" mapstructure:"type"`

	// RepeatedCommand / RepeatedFileEdit
	Pattern     string `yaml:"pattern,omitempty" mapstructure:"pattern"`
	PathPattern string `yaml:"path_pattern,omitempty" mapstructure:"path_pattern"`
	Threshold   int    `yaml:"threshold,omitempty" mapstructure:"threshold"`
	Window      int    `yaml:"window,omitempty" mapstructure:"window"`

	// PhaseTimeout
	MaxDuration int `yaml:"max_duration,omitempty" mapstructure:"max_duration"`

	// TokenBudget
	MaxTokens int `yaml:"max_tokens,omitempty" mapstructure:"max_tokens"`

	// RequireCommits
	LookbackPhases int `yaml:"lookback_phases,omitempty" mapstructure:"lookback_phases"`

	// Expr (supplemental)
	Expr string `yaml:"expr,omitempty" mapstructure:"expr"`

	// Name, optional, lets a `force` override target one rule specifically.
	Name string `yaml:"name,omitempty" mapstructure:"name"`

	compiledPattern     *regexp.Regexp
	compiledPathPattern *regexp.Regexp
	compiledExpr        cel.Program
}

// Validate compiles regexes and CEL expressions and checks the
// variant-specific numeric constraints. Called once at workflow load time;
// a workflow with an invalid rule never loads.
func (r *Rule) Validate() error {
	switch r.Type {
	case VariantRepeatedCommand:
		if r.Pattern != "" {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return herr.New(herr.KindWorkflowLoad, fmt.Sprintf("repeated_command: invalid pattern %q", r.Pattern), err)
			}
			r.compiledPattern = re
		}
		if r.Threshold <= 0 {
			return herr.New(herr.KindWorkflowLoad, "repeated_command: threshold must be > 0", nil)
		}
		if r.Window <= 0 {
			return herr.New(herr.KindWorkflowLoad, "repeated_command: window must be > 0", nil)
		}

	case VariantRepeatedFileEdit:
		if r.PathPattern != "" {
			re, err := regexp.Compile(r.PathPattern)
			if err != nil {
				return herr.New(herr.KindWorkflowLoad, fmt.Sprintf("repeated_file_edit: invalid path_pattern %q", r.PathPattern), err)
			}
			r.compiledPathPattern = re
		}
		if r.Threshold <= 0 {
			return herr.New(herr.KindWorkflowLoad, "repeated_file_edit: threshold must be > 0", nil)
		}
		if r.Window <= 0 {
			return herr.New(herr.KindWorkflowLoad, "repeated_file_edit: window must be > 0", nil)
		}

	case VariantPhaseTimeout:
		if r.MaxDuration <= 0 {
			return herr.New(herr.KindWorkflowLoad, "phase_timeout: max_duration must be > 0", nil)
		}

	case VariantTokenBudget:
		if r.MaxTokens <= 0 {
			return herr.New(herr.KindWorkflowLoad, "token_budget: max_tokens must be > 0", nil)
		}

	case VariantRequireCommits:
		if r.LookbackPhases < 1 {
			return herr.New(herr.KindWorkflowLoad, "require_commits: lookback_phases must be >= 1", nil)
		}

	case VariantExpr:
		prog, err := compileExpr(r.Expr)
		if err != nil {
			return herr.New(herr.KindWorkflowLoad, fmt.Sprintf("expr: invalid expression %q", r.Expr), err)
		}
		r.compiledExpr = prog

	default:
		return herr.New(herr.KindWorkflowLoad, fmt.Sprintf("unknown rule variant %q", r.Type), nil)
	}
	return nil
}

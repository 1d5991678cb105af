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

package rules

import (
	"fmt"
	"time"

	"github.com/hegel-dev/hegel/pkg/storage"
)

// EvalContext carries the aggregated metrics a rule list is evaluated
// against — the current (possibly still-open) phase, plus however many
// trailing phases RequireCommits' lookback needs.
type EvalContext struct {
	Now             time.Time
	PhaseStart      time.Time
	PhaseEnd        *time.Time // nil while the phase is still open
	PhaseTokens     storage.TokenMetrics
	BashCommands    []storage.BashCommandRecord
	FileMods        []storage.FileModRecord
	PhaseCommits    []storage.GitCommit
	// PriorPhaseHasCommit[i] reports whether the i-th phase before the
	// current one (0 = immediately prior) had at least one attributed
	// commit. Used by RequireCommits' lookback.
	PriorPhaseHasCommit []bool
	// Forced lists rule names (or "*" for all) bypassed via a `force`
	// override on this invocation.
	Forced map[string]bool
}

// PhaseDurationSeconds reports how long the current phase has been open.
func (c EvalContext) PhaseDurationSeconds() float64 {
	end := c.Now
	if c.PhaseEnd != nil {
		end = *c.PhaseEnd
	}
	return end.Sub(c.PhaseStart).Seconds()
}

func (c EvalContext) isForced(r *Rule) bool {
	if c.Forced == nil {
		return false
	}
	if c.Forced["*"] {
		return true
	}
	return r.Name != "" && c.Forced[r.Name]
}

// Violation describes the first rule that fired.
type Violation struct {
	RuleType     Variant  `json:"rule_type"`
	Diagnostic   string   `json:"diagnostic"`
	Suggestion   string   `json:"suggestion"`
	RecentEvents []string `json:"recent_events,omitempty"`
}

// Evaluate walks rules in declaration order and returns the first
// violation, short-circuiting on the first rule that fires. A forced rule
// is skipped entirely, including from the short-circuit search.
func Evaluate(ruleList []*Rule, ctx EvalContext) (*Violation, bool) {
	for _, r := range ruleList {
		if ctx.isForced(r) {
			continue
		}
		if v, fired := evaluateOne(r, ctx); fired {
			return v, true
		}
	}
	return nil, false
}

func evaluateOne(r *Rule, ctx EvalContext) (*Violation, bool) {
	switch r.Type {
	case VariantRepeatedCommand:
		return evalRepeatedCommand(r, ctx)
	case VariantRepeatedFileEdit:
		return evalRepeatedFileEdit(r, ctx)
	case VariantPhaseTimeout:
		return evalPhaseTimeout(r, ctx)
	case VariantTokenBudget:
		return evalTokenBudget(r, ctx)
	case VariantRequireCommits:
		return evalRequireCommits(r, ctx)
	case VariantExpr:
		return evalExprRule(r, ctx)
	default:
		return nil, false
	}
}

// lookbackWindow returns the window, in seconds, to apply: the rule's
// configured window, or the time elapsed since the phase started, whichever
// is shorter.
func lookbackWindow(r *Rule, ctx EvalContext) time.Duration {
	configured := time.Duration(r.Window) * time.Second
	sincePhaseStart := ctx.Now.Sub(ctx.PhaseStart)
	if sincePhaseStart < configured {
		return sincePhaseStart
	}
	return configured
}

func evalRepeatedCommand(r *Rule, ctx EvalContext) (*Violation, bool) {
	cutoff := ctx.Now.Add(-lookbackWindow(r, ctx))
	var matched []string
	for _, cmd := range ctx.BashCommands {
		ts, err := time.Parse(time.RFC3339, cmd.Timestamp)
		if err != nil || ts.Before(cutoff) {
			continue
		}
		if r.compiledPattern != nil && !r.compiledPattern.MatchString(cmd.Command) {
			continue
		}
		matched = append(matched, cmd.Command)
	}
	if len(matched) < r.Threshold {
		return nil, false
	}
	return &Violation{
		RuleType:     VariantRepeatedCommand,
		Diagnostic:   fmt.Sprintf("%d matching commands in the last %ds (limit: %d)", len(matched), r.Window, r.Threshold),
		Suggestion:   "Investigate why this command keeps repeating instead of running it again.",
		RecentEvents: tail(matched, 5),
	}, true
}

func evalRepeatedFileEdit(r *Rule, ctx EvalContext) (*Violation, bool) {
	cutoff := ctx.Now.Add(-lookbackWindow(r, ctx))
	var matched []string
	for _, mod := range ctx.FileMods {
		ts, err := time.Parse(time.RFC3339, mod.Timestamp)
		if err != nil || ts.Before(cutoff) {
			continue
		}
		if r.compiledPathPattern != nil && !r.compiledPathPattern.MatchString(mod.Path) {
			continue
		}
		matched = append(matched, mod.Path)
	}
	if len(matched) < r.Threshold {
		return nil, false
	}
	return &Violation{
		RuleType:     VariantRepeatedFileEdit,
		Diagnostic:   fmt.Sprintf("%d matching edits in the last %ds (limit: %d)", len(matched), r.Window, r.Threshold),
		Suggestion:   "This file keeps being re-edited; consider stepping back to re-plan the change.",
		RecentEvents: tail(matched, 5),
	}, true
}

func evalPhaseTimeout(r *Rule, ctx EvalContext) (*Violation, bool) {
	d := ctx.PhaseDurationSeconds()
	if d <= float64(r.MaxDuration) {
		return nil, false
	}
	return &Violation{
		RuleType:   VariantPhaseTimeout,
		Diagnostic: fmt.Sprintf("phase running for %.0fs (limit: %ds)", d, r.MaxDuration),
		Suggestion: "Wrap up the current phase or split remaining work into a follow-up workflow.",
	}, true
}

func evalTokenBudget(r *Rule, ctx EvalContext) (*Violation, bool) {
	used := ctx.PhaseTokens.Input + ctx.PhaseTokens.Output
	if used <= r.MaxTokens {
		return nil, false
	}
	return &Violation{
		RuleType:   VariantTokenBudget,
		Diagnostic: fmt.Sprintf("%d tokens (limit: %d)", used, r.MaxTokens),
		Suggestion: "Summarize progress and compact context before continuing.",
	}, true
}

func evalRequireCommits(r *Rule, ctx EvalContext) (*Violation, bool) {
	if len(ctx.PhaseCommits) > 0 {
		return nil, false
	}
	// lookback_phases counts the current phase (already checked above via
	// ctx.PhaseCommits), so only lookback-1 prior phases remain to check.
	lookback := r.LookbackPhases - 1
	if r.LookbackPhases == LookbackEntireHistory {
		lookback = len(ctx.PriorPhaseHasCommit)
	}
	for i := 0; i < lookback && i < len(ctx.PriorPhaseHasCommit); i++ {
		if ctx.PriorPhaseHasCommit[i] {
			return nil, false
		}
	}
	return &Violation{
		RuleType:   VariantRequireCommits,
		Diagnostic: fmt.Sprintf("no commits attributed in the last %d phase(s)", r.LookbackPhases),
		Suggestion: "Commit your work, or re-run with a force override if this phase genuinely has none.",
	}, true
}

func evalExprRule(r *Rule, ctx EvalContext) (*Violation, bool) {
	fired, err := evalExpr(r, ctx)
	if err != nil || !fired {
		return nil, false
	}
	return &Violation{
		RuleType:   VariantExpr,
		Diagnostic: fmt.Sprintf("expression %q evaluated true", r.Expr),
		Suggestion: "Review the condition that triggered this rule.",
	}, true
}

func tail(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

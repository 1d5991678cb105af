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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hegel-dev/hegel/pkg/storage"
)

func TestRuleValidateRejectsUnknownVariant(t *testing.T) {
	r := &Rule{Type: "bogus"}
	assert.Error(t, r.Validate())
}

func TestRuleValidateRejectsLookbackZero(t *testing.T) {
	r := &Rule{Type: VariantRequireCommits, LookbackPhases: 0}
	assert.Error(t, r.Validate())
}

func TestRuleValidateAcceptsSentinelLookback(t *testing.T) {
	r := &Rule{Type: VariantRequireCommits, LookbackPhases: LookbackEntireHistory}
	assert.NoError(t, r.Validate())
}

func TestRuleValidateRejectsBadRegex(t *testing.T) {
	r := &Rule{Type: VariantRepeatedCommand, Pattern: "(unterminated", Threshold: 1, Window: 60}
	assert.Error(t, r.Validate())
}

func TestTokenBudgetFiresOverLimit(t *testing.T) {
	r := &Rule{Type: VariantTokenBudget, MaxTokens: 5000}
	require.NoError(t, r.Validate())

	ctx := EvalContext{
		Now:         time.Now(),
		PhaseStart:  time.Now().Add(-time.Hour),
		PhaseTokens: storage.TokenMetrics{Input: 4000, Output: 2000},
	}
	v, fired := Evaluate([]*Rule{r}, ctx)
	require.True(t, fired)
	assert.Equal(t, VariantTokenBudget, v.RuleType)
	assert.Equal(t, "6000 tokens (limit: 5000)", v.Diagnostic)
}

func TestTokenBudgetDoesNotFireUnderLimit(t *testing.T) {
	r := &Rule{Type: VariantTokenBudget, MaxTokens: 5000}
	require.NoError(t, r.Validate())

	ctx := EvalContext{
		Now:         time.Now(),
		PhaseStart:  time.Now().Add(-time.Hour),
		PhaseTokens: storage.TokenMetrics{Input: 100, Output: 100},
	}
	_, fired := Evaluate([]*Rule{r}, ctx)
	assert.False(t, fired)
}

func TestRepeatedCommandCountsWithinWindow(t *testing.T) {
	r := &Rule{Type: VariantRepeatedCommand, Pattern: "^go test", Threshold: 2, Window: 60}
	require.NoError(t, r.Validate())

	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	ctx := EvalContext{
		Now:        now,
		PhaseStart: now.Add(-time.Hour),
		BashCommands: []storage.BashCommandRecord{
			{Timestamp: now.Add(-120 * time.Second).Format(time.RFC3339), Command: "go test ./..."}, // outside window
			{Timestamp: now.Add(-30 * time.Second).Format(time.RFC3339), Command: "go test ./pkg/foo"},
			{Timestamp: now.Add(-10 * time.Second).Format(time.RFC3339), Command: "go test ./pkg/bar"},
			{Timestamp: now.Add(-5 * time.Second).Format(time.RFC3339), Command: "ls"}, // doesn't match pattern
		},
	}
	v, fired := Evaluate([]*Rule{r}, ctx)
	require.True(t, fired)
	assert.Len(t, v.RecentEvents, 2)
}

func TestRequireCommitsBypassableViaForce(t *testing.T) {
	r := &Rule{Type: VariantRequireCommits, LookbackPhases: 1, Name: "needs-commit"}
	require.NoError(t, r.Validate())

	ctx := EvalContext{
		Now:                 time.Now(),
		PhaseStart:          time.Now().Add(-time.Hour),
		PriorPhaseHasCommit: []bool{false},
		Forced:              map[string]bool{"needs-commit": true},
	}
	_, fired := Evaluate([]*Rule{r}, ctx)
	assert.False(t, fired)
}

func TestRequireCommitsLookbackOneIgnoresPriorPhases(t *testing.T) {
	// lookback_phases=1 means only the current phase counts. A commit in
	// the prior phase must not excuse a current phase with none.
	r := &Rule{Type: VariantRequireCommits, LookbackPhases: 1, Name: "needs-commit"}
	require.NoError(t, r.Validate())

	ctx := EvalContext{
		Now:                 time.Now(),
		PhaseStart:          time.Now().Add(-time.Hour),
		PriorPhaseHasCommit: []bool{true},
	}
	v, fired := Evaluate([]*Rule{r}, ctx)
	require.True(t, fired)
	assert.Equal(t, VariantRequireCommits, v.RuleType)
}

func TestRequireCommitsLookbackTwoChecksOnePriorPhase(t *testing.T) {
	r := &Rule{Type: VariantRequireCommits, LookbackPhases: 2, Name: "needs-commit"}
	require.NoError(t, r.Validate())

	ctx := EvalContext{
		Now:                 time.Now(),
		PhaseStart:          time.Now().Add(-time.Hour),
		PriorPhaseHasCommit: []bool{true, false},
	}
	_, fired := Evaluate([]*Rule{r}, ctx)
	assert.False(t, fired)
}

func TestEvaluateShortCircuitsOnFirstViolation(t *testing.T) {
	first := &Rule{Type: VariantTokenBudget, MaxTokens: 10}
	second := &Rule{Type: VariantPhaseTimeout, MaxDuration: 10}
	require.NoError(t, first.Validate())
	require.NoError(t, second.Validate())

	ctx := EvalContext{
		Now:         time.Now(),
		PhaseStart:  time.Now().Add(-time.Hour),
		PhaseTokens: storage.TokenMetrics{Input: 100},
	}
	v, fired := Evaluate([]*Rule{first, second}, ctx)
	require.True(t, fired)
	assert.Equal(t, VariantTokenBudget, v.RuleType)
}

func TestExprRuleFiresOnTrueExpression(t *testing.T) {
	r := &Rule{Type: VariantExpr, Expr: "bash_command_count > 3"}
	require.NoError(t, r.Validate())

	ctx := EvalContext{
		Now:        time.Now(),
		PhaseStart: time.Now().Add(-time.Minute),
		BashCommands: []storage.BashCommandRecord{
			{Timestamp: time.Now().Format(time.RFC3339), Command: "a"},
			{Timestamp: time.Now().Format(time.RFC3339), Command: "b"},
			{Timestamp: time.Now().Format(time.RFC3339), Command: "c"},
			{Timestamp: time.Now().Format(time.RFC3339), Command: "d"},
		},
	}
	v, fired := Evaluate([]*Rule{r}, ctx)
	require.True(t, fired)
	assert.Equal(t, VariantExpr, v.RuleType)
}

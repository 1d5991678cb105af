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

package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hegel-dev/hegel/pkg/storage"
)

func TestRenderPromEmitsTokenAndWorkflowGauges(t *testing.T) {
	m := &UnifiedMetrics{
		CumulativeTotals: storage.WorkflowTotals{
			WorkflowsCompleted: 3,
			WorkflowsAborted:   1,
			TotalDuration:      120.5,
			TotalCommits:       7,
			TotalTokens:        storage.TokenMetrics{Input: 100, Output: 50},
		},
		PhaseMetrics: []PhaseMetrics{
			{PhaseName: "spec", WorkflowID: "w1", DurationSeconds: 42},
		},
	}

	out, err := RenderProm(m)
	require.NoError(t, err)
	text := string(out)

	assert.Contains(t, text, `hegel_cumulative_tokens_total{kind="input"} 100`)
	assert.Contains(t, text, `hegel_workflows_total{outcome="completed"} 3`)
	assert.Contains(t, text, `hegel_cumulative_duration_seconds 120.5`)
	assert.Contains(t, text, `hegel_phase_duration_seconds{phase="spec",workflow_id="w1"} 42`)
}

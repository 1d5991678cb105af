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
	"bytes"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/expfmt"
)

// RenderProm renders one UnifiedMetrics snapshot as Prometheus text
// exposition format, for `hegel metrics --format=prom`. It builds a
// throwaway registry per call rather than keeping package-level metric
// state, since a snapshot (not a running process) is what's being
// rendered — the CLI exits right after printing it.
func RenderProm(m *UnifiedMetrics) ([]byte, error) {
	reg := prometheus.NewRegistry()

	tokens := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hegel_cumulative_tokens_total",
		Help: "Cumulative token usage across all archived workflows, by kind.",
	}, []string{"kind"})
	tokens.WithLabelValues("input").Set(float64(m.CumulativeTotals.TotalTokens.Input))
	tokens.WithLabelValues("output").Set(float64(m.CumulativeTotals.TotalTokens.Output))
	tokens.WithLabelValues("cache_creation").Set(float64(m.CumulativeTotals.TotalTokens.CacheCreation))
	tokens.WithLabelValues("cache_read").Set(float64(m.CumulativeTotals.TotalTokens.CacheRead))

	workflows := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hegel_workflows_total",
		Help: "Workflows completed or aborted, lifetime.",
	}, []string{"outcome"})
	workflows.WithLabelValues("completed").Set(float64(m.CumulativeTotals.WorkflowsCompleted))
	workflows.WithLabelValues("aborted").Set(float64(m.CumulativeTotals.WorkflowsAborted))

	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hegel_cumulative_duration_seconds",
		Help: "Cumulative duration across all archived workflows.",
	})
	duration.Set(m.CumulativeTotals.TotalDuration)

	commits := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hegel_cumulative_commits_total",
		Help: "Git commits attributed to archived workflow phases.",
	})
	commits.Set(float64(m.CumulativeTotals.TotalCommits))

	phases := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hegel_phase_duration_seconds",
		Help: "Duration of each live or archived phase in the current snapshot.",
	}, []string{"phase", "workflow_id"})
	for _, p := range m.PhaseMetrics {
		phases.WithLabelValues(p.PhaseName, p.WorkflowID).Set(p.DurationSeconds)
	}

	reg.MustRegister(tokens, workflows, duration, commits, phases)

	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

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
	"bufio"
	"encoding/json"
	"os"
	"time"

	"github.com/hegel-dev/hegel/pkg/storage"
)

// transcriptRecord is a single line of a Claude-style session transcript.
type transcriptRecord struct {
	Type      string         `json:"type"`
	Timestamp string         `json:"timestamp"`
	Usage     map[string]any `json:"usage"`
	Message   struct {
		Usage map[string]any `json:"usage"`
	} `json:"message"`
}

// tokenUsageAt holds one assistant turn's token usage, attributable to a
// phase by timestamp.
type tokenUsageAt struct {
	timestamp time.Time
	usage     storage.TokenMetrics
}

// parseTranscript degrades gracefully: a missing or unreadable transcript
// yields zero usage rather than an error, per the aggregator's
// locally-tolerant error policy.
func parseTranscript(path string) []tokenUsageAt {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []tokenUsageAt
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec transcriptRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if rec.Type != "assistant" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, rec.Timestamp)
		if err != nil {
			continue
		}
		usage := rec.Usage
		if len(usage) == 0 {
			usage = rec.Message.Usage
		}
		if len(usage) == 0 {
			continue
		}
		out = append(out, tokenUsageAt{timestamp: ts, usage: usageFromFields(usage)})
	}
	return out
}

func usageFromFields(m map[string]any) storage.TokenMetrics {
	return storage.TokenMetrics{
		Input:          intOf(m["input_tokens"]),
		Output:         intOf(m["output_tokens"]),
		CacheCreation:  intOf(m["cache_creation_input_tokens"]),
		CacheRead:      intOf(m["cache_read_input_tokens"]),
		AssistantTurns: 1,
	}
}

func intOf(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

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

	"github.com/hegel-dev/hegel/pkg/rules"
)

var ruleTitles = map[rules.Variant]string{
	rules.VariantRepeatedCommand:  "Repeated Command",
	rules.VariantRepeatedFileEdit: "Repeated File Edit",
	rules.VariantPhaseTimeout:     "Phase Timeout",
	rules.VariantTokenBudget:      "Token Budget",
	rules.VariantRequireCommits:   "Require Commits",
	rules.VariantExpr:             "Expression",
}

// synthesizeInterrupt renders the message returned in place of a node's
// normal prompt when one of its rules fires.
func synthesizeInterrupt(v *rules.Violation) string {
	title := ruleTitles[v.RuleType]
	if title == "" {
		title = string(v.RuleType)
	}
	msg := fmt.Sprintf("## Rule Interrupt: %s\n\n%s\n\n%s", title, v.Diagnostic, v.Suggestion)
	if len(v.RecentEvents) > 0 {
		msg += "\n\nRecent:\n"
		for _, e := range v.RecentEvents {
			msg += fmt.Sprintf("- %s\n", e)
		}
	}
	return msg
}

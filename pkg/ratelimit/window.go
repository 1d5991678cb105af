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

// Package ratelimit provides a small sliding-window event counter: how many
// times a key has occurred across the last W slots. The command-wrapping
// guardrail uses it to count a command's recent blocked invocations.
package ratelimit

// Window counts occurrences of string keys across a bounded number of
// discrete slots (caller-labelled, not wall-clock intervals; the guardrail
// labels each slot with an invocation's timestamp). It keeps only the most recent
// maxSlots slots; anything older falls off and no longer counts.
type Window struct {
	maxSlots int
	slots    []slot
}

type slot struct {
	label  string
	counts map[string]int
}

// NewWindow constructs a Window retaining at most maxSlots slots. A
// non-positive maxSlots is normalized to 1.
func NewWindow(maxSlots int) *Window {
	if maxSlots < 1 {
		maxSlots = 1
	}
	return &Window{maxSlots: maxSlots}
}

// Observe records one occurrence of key within the named slot. Calling
// Observe with a new label opens a new slot; the oldest slot is evicted once
// the window exceeds its capacity.
func (w *Window) Observe(label string, key string) {
	if len(w.slots) == 0 || w.slots[len(w.slots)-1].label != label {
		w.slots = append(w.slots, slot{label: label, counts: map[string]int{}})
		if len(w.slots) > w.maxSlots {
			w.slots = w.slots[len(w.slots)-w.maxSlots:]
		}
	}
	w.slots[len(w.slots)-1].counts[key]++
}

// Count returns how many times key has occurred across every retained slot.
func (w *Window) Count(key string) int {
	total := 0
	for _, s := range w.slots {
		total += s.counts[key]
	}
	return total
}

// Slots reports how many slots are currently retained.
func (w *Window) Slots() int {
	return len(w.slots)
}

// Keys reports every distinct key observed across the retained window, in no
// particular order.
func (w *Window) Keys() []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range w.slots {
		for k := range s.counts {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}

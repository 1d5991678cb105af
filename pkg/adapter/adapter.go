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

// Package adapter normalizes agent-specific hook event schemas into the
// canonical form the rest of Hegel operates on, and auto-detects which
// agent is active from the environment.
//
// Each adapter is a closed, small variant with a shared contract —
// Name/Detect/Normalize — dispatched explicitly by the Registry rather than
// through an open-ended plugin mechanism, per the design notes.
package adapter

import (
	"github.com/google/uuid"

	"github.com/hegel-dev/hegel/pkg/storage"
)

// fallbackSessionID generates a session identifier for the degenerate case
// where an agent's hook payload omits one (and, for Cursor, also omits the
// generation_id that ordinarily serves the same role). A random UUID
// keeps the canonical event's SessionID non-empty without guessing at a
// value that might collide with a real session.
func fallbackSessionID() string {
	return uuid.NewString()
}

// Raw is one agent-native hook event, decoded from JSON into a generic map.
type Raw = map[string]any

// Adapter normalizes one agent's native hook schema.
type Adapter interface {
	// Name identifies the adapter (used by Registry.Get and recorded on
	// every normalized event's Adapter field).
	Name() string

	// Detect probes the process environment and reports whether this
	// adapter's agent appears to be the active one.
	Detect() bool

	// Normalize converts one raw event into the canonical form. A nil
	// event with a nil error means the raw event deliberately produces no
	// canonical output (e.g. Codex's turn_context).
	Normalize(raw Raw) (*storage.CanonicalHookEvent, error)
}

// Registry composes adapters in a fixed declaration order.
type Registry struct {
	adapters []Adapter
}

// NewRegistry builds the registry with Hegel's three built-in adapters, in
// the fixed probe order: ClaudeCode, Codex, Cursor.
func NewRegistry() *Registry {
	return &Registry{adapters: []Adapter{
		NewClaudeCode(),
		NewCodex(),
		NewCursor(),
	}}
}

// Detect returns the first adapter whose environment probe succeeds, or nil
// if none match.
func (r *Registry) Detect() Adapter {
	for _, a := range r.adapters {
		if a.Detect() {
			return a
		}
	}
	return nil
}

// Get selects an adapter by name explicitly, bypassing detection.
func (r *Registry) Get(name string) Adapter {
	for _, a := range r.adapters {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

// All returns the adapters in declaration order.
func (r *Registry) All() []Adapter {
	return r.adapters
}

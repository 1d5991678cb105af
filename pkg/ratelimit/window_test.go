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

package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindowCountsWithinRetainedSlots(t *testing.T) {
	w := NewWindow(2)
	w.Observe("phase-1", "go test ./...")
	w.Observe("phase-1", "go test ./...")
	w.Observe("phase-2", "go test ./...")
	assert.Equal(t, 3, w.Count("go test ./..."))
	assert.Equal(t, 2, w.Slots())
}

func TestWindowEvictsOldestSlotBeyondCapacity(t *testing.T) {
	w := NewWindow(2)
	w.Observe("phase-1", "rm -rf node_modules")
	w.Observe("phase-2", "go build")
	w.Observe("phase-3", "go build")
	// phase-1 fell off, so its occurrence no longer counts.
	assert.Equal(t, 0, w.Count("rm -rf node_modules"))
	assert.Equal(t, 2, w.Count("go build"))
}

func TestWindowNonPositiveMaxSlotsNormalizes(t *testing.T) {
	w := NewWindow(0)
	w.Observe("phase-1", "k")
	w.Observe("phase-2", "k")
	assert.Equal(t, 1, w.Slots())
}

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

package storage

import (
	"encoding/json"

	"github.com/hegel-dev/hegel/pkg/herr"
)

const commandLogName = "commands.log"

// CommandLogRecord is one logged invocation of a wrapped command.
type CommandLogRecord struct {
	Timestamp      string `json:"timestamp"`
	Name           string `json:"name"`
	Args           []string `json:"args"`
	Success        bool   `json:"success"`
	BlockedReason  string `json:"blocked_reason,omitempty"`
}

// LogCommand appends one CommandLogRecord to commands.log under the same
// exclusive-lock discipline as the hook and transition logs.
func (s *Store) LogCommand(rec CommandLogRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return herr.New(herr.KindStorageIO, "encode command record", err)
	}
	return s.lockedAppend(commandLogName, line)
}

// ReadCommandLog reads all commands.log lines, skipping malformed ones.
func (s *Store) ReadCommandLog() ([]CommandLogRecord, []string) {
	return readJSONLines[CommandLogRecord](s.path(commandLogName))
}

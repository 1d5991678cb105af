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

// Package herr defines Hegel's error taxonomy: a small set of kinds that the
// CLI boundary maps onto exit codes and user-facing messages.
package herr

import "fmt"

// Kind identifies the category of a Hegel error, per the taxonomy in the
// specification's error handling design.
type Kind string

const (
	KindStorageIO           Kind = "storage_io"
	KindStorageLock         Kind = "storage_lock"
	KindWorkflowLoad        Kind = "workflow_load"
	KindWorkflowActive      Kind = "workflow_active"
	KindStateSchema         Kind = "state_schema"
	KindAdapterSchema       Kind = "adapter_schema"
	KindTransitionNotAllowed Kind = "transition_not_allowed"
	KindRepairConflict      Kind = "repair_conflict"
)

// Error is Hegel's wrapped error type: a Kind plus a human message plus an
// optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error of the given kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Newf constructs an *Error with a formatted message.
func Newf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ExitCode maps a Kind onto the process exit code the CLI boundary should
// use, per the specification's external-interfaces section. Kinds not
// listed here (e.g. RuleViolation, which is a first-class outcome rather
// than an error) are not errors and have no exit code.
func ExitCode(kind Kind) int {
	switch kind {
	case KindWorkflowLoad, KindWorkflowActive, KindTransitionNotAllowed, KindAdapterSchema:
		return 1
	default:
		return 2
	}
}

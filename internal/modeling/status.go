// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

// Package modeling implements the runtime schema engine: versioned entity
// types composed of typed constraints, entities created against a specific
// type version, and the pure validation logic that keeps both consistent.
package modeling

import "fmt"

// Status is the tri-state result of a validation check: ok, or rejected with
// a human-readable message. Expected rule violations travel as Status values
// rather than errors so services can distinguish them from system faults.
type Status struct {
	ok  bool
	msg string
}

// Ok returns a passing Status.
func Ok() Status {
	return Status{ok: true}
}

// Errorf returns a failing Status with a formatted message.
func Errorf(format string, args ...any) Status {
	return Status{msg: fmt.Sprintf(format, args...)}
}

// OK reports whether the check passed.
func (s Status) OK() bool {
	return s.ok
}

// Message returns the violation message, or "" for a passing Status.
func (s Status) Message() string {
	return s.msg
}

// Err converts the Status to an error: nil when ok, otherwise a
// *ValidationError carrying the message unmodified.
func (s Status) Err() error {
	if s.ok {
		return nil
	}
	return &ValidationError{Message: s.msg}
}

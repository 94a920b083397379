// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package modeling

import "errors"

// EntityState is the lifecycle state of an entity.
type EntityState string

// Lifecycle states. Created is the sole initial state and never re-enterable;
// Archived is terminal.
const (
	StateCreated       EntityState = "created"
	StateOpen          EntityState = "open"
	StatePaused        EntityState = "paused"
	StateClosedSuccess EntityState = "closed_success"
	StateClosedFailure EntityState = "closed_failure"
	StateArchived      EntityState = "archived"
)

// ErrInvalidEntityState indicates an unrecognized lifecycle state.
var ErrInvalidEntityState = errors.New("invalid entity state")

// String returns the string representation of the state.
func (s EntityState) String() string {
	return string(s)
}

// Validate checks that the state is a known lifecycle state.
func (s EntityState) Validate() error {
	switch s {
	case StateCreated, StateOpen, StatePaused, StateClosedSuccess, StateClosedFailure, StateArchived:
		return nil
	default:
		return ErrInvalidEntityState
	}
}

// Terminal reports whether the state permits no further transitions.
func (s EntityState) Terminal() bool {
	return s == StateArchived
}

// ClosedTerminal reports whether the state is one of the closed outcomes a
// container requires of all children before it may be archived.
func (s EntityState) ClosedTerminal() bool {
	return s == StateClosedSuccess || s == StateClosedFailure
}

// ValidEntityStates returns all valid lifecycle states.
func ValidEntityStates() []EntityState {
	return []EntityState{StateCreated, StateOpen, StatePaused, StateClosedSuccess, StateClosedFailure, StateArchived}
}

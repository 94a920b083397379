// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package modeling

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventKind classifies a domain event.
type EventKind string

// Event kinds.
const (
	EventCreated      EventKind = "created"
	EventStateChanged EventKind = "state_changed"
	EventDeleted      EventKind = "deleted"
)

// NewsEvent is one domain event emitted after a successful mutation, carrying
// the group ids that should see it.
type NewsEvent struct {
	ID          ulid.ULID
	TargetRef   ulid.ULID
	Kind        EventKind
	Audience    []ulid.ULID
	Description string
	OccurredAt  time.Time
}

// EventEmitter publishes domain events to the notification collaborator.
type EventEmitter interface {
	// Emit publishes an event. Best-effort from the caller's perspective.
	Emit(ctx context.Context, e NewsEvent) error

	// Forget drops all previously published events about an entity.
	Forget(ctx context.Context, targetRef ulid.ULID) error
}

// emitEvent publishes best-effort: emitter failures are logged and never roll
// back the data mutation that triggered the event. A nil emitter is a no-op.
func emitEvent(ctx context.Context, emitter EventEmitter, kind EventKind, targetRef ulid.ULID, audience []ulid.ULID, description string) {
	if emitter == nil {
		return
	}
	e := NewsEvent{
		ID:          NewULID(),
		TargetRef:   targetRef,
		Kind:        kind,
		Audience:    audience,
		Description: description,
		OccurredAt:  time.Now().UTC(),
	}
	if err := emitter.Emit(ctx, e); err != nil {
		slog.Warn("event emission failed",
			"event_kind", string(kind),
			"target_ref", targetRef.String(),
			"error", err)
	}
}

// forgetEvents drops an entity's event history best-effort, like emitEvent.
func forgetEvents(ctx context.Context, emitter EventEmitter, targetRef ulid.ULID) {
	if emitter == nil {
		return
	}
	if err := emitter.Forget(ctx, targetRef); err != nil {
		slog.Warn("event cleanup failed",
			"target_ref", targetRef.String(),
			"error", err)
	}
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package modeling

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Entity is a live data instance created against one specific type version.
// Ref is the shared generic row id that properties and viewers attach to.
// ParentRef is set for entities living inside a container (child Subjects);
// containment is an explicit parent reference, never an embedded graph.
type Entity struct {
	ID            ulid.ULID
	Ref           ulid.ULID
	TypeVersionID ulid.ULID
	Kind          EntityKind
	State         EntityState
	ParentRef     *ulid.ULID
	CreatedAt     time.Time
}

// Property is one key/value field of an entity, declared by a HasProperty
// constraint of the entity's type version. Values are kept in raw string
// form; the declared data type governs their format.
type Property struct {
	ID        ulid.ULID
	Key       string
	Value     string
	ParentRef ulid.ULID
}
// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package modeling

import (
	"fmt"
	"time"
	"unicode"

	"github.com/oklog/ulid/v2"
)

// MaxTypeNameLength bounds entity type names.
const MaxTypeNameLength = 64

// EntityType is a named schema category ("Laptop", "Ticket"). Active types
// accept new entities; activation requires the latest version's constraint
// set to pass model validation.
type EntityType struct {
	ID        ulid.ULID
	Name      string
	Kind      EntityKind
	Active    bool
	CreatedAt time.Time
}

// TypeVersion is one immutable snapshot of an entity type's constraint set.
// Entities reference the version they were created against, so schema
// evolution never invalidates historical entities.
type TypeVersion struct {
	ID            ulid.ULID
	TypeID        ulid.ULID
	VersionNumber int64
	CreatedAt     time.Time
}

// ValidateTypeName checks that a type name is a non-empty identifier-safe
// string: letters, digits, underscores, starting with a letter.
func ValidateTypeName(name string) error {
	if name == "" {
		return &ValidationError{Message: "type name cannot be empty"}
	}
	if len(name) > MaxTypeNameLength {
		return &ValidationError{Message: fmt.Sprintf("type name exceeds maximum length of %d", MaxTypeNameLength)}
	}
	for i, r := range name {
		if i == 0 {
			if !unicode.IsLetter(r) {
				return &ValidationError{Message: "type name must start with a letter"}
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return &ValidationError{Message: "type name must contain only letters, digits, and underscores"}
		}
	}
	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package modeling

import (
	"errors"
	"slices"

	"github.com/oklog/ulid/v2"
)

// ConstraintKind identifies one schema rule variant.
type ConstraintKind string

// Constraint kinds.
const (
	// ConstraintMustBeDefined declares a default value for a property key.
	// Param1 is the key, Param2 the default value. Requires a matching
	// HasProperty for the same key.
	ConstraintMustBeDefined ConstraintKind = "must_be_defined"

	// ConstraintHasProperty declares a typed property. Param1 is the key,
	// Param2 the data type.
	ConstraintHasProperty ConstraintKind = "has_property"

	// ConstraintCanContain declares which child entity type values (by name)
	// may be created inside a container. Param1 is the child type value.
	// Only valid for container kinds.
	ConstraintCanContain ConstraintKind = "can_contain"

	// ConstraintUsesPlugin declares that a plugin's required property bundle
	// must be present. Param1 is the plugin id.
	ConstraintUsesPlugin ConstraintKind = "uses_plugin"
)

// ErrInvalidConstraintKind indicates an unrecognized constraint kind.
var ErrInvalidConstraintKind = errors.New("invalid constraint kind")

// String returns the string representation of the kind.
func (k ConstraintKind) String() string {
	return string(k)
}

// Validate checks that the kind is a known constraint kind.
func (k ConstraintKind) Validate() error {
	switch k {
	case ConstraintMustBeDefined, ConstraintHasProperty, ConstraintCanContain, ConstraintUsesPlugin:
		return nil
	default:
		return ErrInvalidConstraintKind
	}
}

// Constraint is one schema rule attached to a type version. The meaning of
// Param1 and Param2 depends on Kind. ByPlugin is set on HasProperty rules
// synthesized by installing a plugin.
type Constraint struct {
	ID            ulid.ULID
	Kind          ConstraintKind
	Param1        string
	Param2        string
	ByPlugin      *string
	TypeVersionID ulid.ULID
}

// RuleKey returns the identity of the rule irrespective of its row id.
// Two constraints with equal rule keys are duplicates within one version.
func (c Constraint) RuleKey() string {
	return string(c.Kind) + "\x00" + c.Param1 + "\x00" + c.Param2
}

// sortConstraintsByID orders constraints by declaration id. ULIDs are
// lexicographically time-ordered, so this is declaration order.
func sortConstraintsByID(cs []Constraint) []Constraint {
	sorted := slices.Clone(cs)
	slices.SortFunc(sorted, func(a, b Constraint) int {
		return a.ID.Compare(b.ID)
	})
	return sorted
}

// HasPropertyConstraints returns the HasProperty rules of the set in
// declaration order.
func HasPropertyConstraints(cs []Constraint) []Constraint {
	props := make([]Constraint, 0, len(cs))
	for _, c := range sortConstraintsByID(cs) {
		if c.Kind == ConstraintHasProperty {
			props = append(props, c)
		}
	}
	return props
}

// DefaultValueFor returns the MustBeDefined default for the given property
// key, or "" if the set declares none.
func DefaultValueFor(cs []Constraint, key string) string {
	for _, c := range cs {
		if c.Kind == ConstraintMustBeDefined && c.Param1 == key {
			return c.Param2
		}
	}
	return ""
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package modeling

import "errors"

// EntityKind identifies one of the four entity variants. Frames and
// Collections are container kinds holding child Subjects; Assets and
// Subjects are leaf kinds.
type EntityKind string

// Entity kinds.
const (
	KindAsset      EntityKind = "asset"
	KindSubject    EntityKind = "subject"
	KindFrame      EntityKind = "frame"
	KindCollection EntityKind = "collection"
)

// ErrInvalidEntityKind indicates an unrecognized entity kind.
var ErrInvalidEntityKind = errors.New("invalid entity kind")

// String returns the string representation of the kind.
func (k EntityKind) String() string {
	return string(k)
}

// Validate checks that the kind is one of the four known variants.
func (k EntityKind) Validate() error {
	switch k {
	case KindAsset, KindSubject, KindFrame, KindCollection:
		return nil
	default:
		return ErrInvalidEntityKind
	}
}

// Container reports whether entities of this kind may hold children.
func (k EntityKind) Container() bool {
	return k == KindFrame || k == KindCollection
}

// Nested reports whether entities of this kind only exist inside a container.
// Nested kinds are never archived directly; archival reaches them as a
// cascade of the parent's archival.
func (k EntityKind) Nested() bool {
	return k == KindSubject
}

// ValidEntityKinds returns all valid entity kinds.
func ValidEntityKinds() []EntityKind {
	return []EntityKind{KindAsset, KindSubject, KindFrame, KindCollection}
}

// KindSpec carries the per-kind schema allowlists: which constraint kinds a
// type version of this kind may contain and which property data types its
// HasProperty declarations may use.
type KindSpec struct {
	Kind            EntityKind
	ConstraintKinds []ConstraintKind
	DataTypes       []PropertyDataType
}

// AllowsConstraint reports whether the kind permits the given constraint kind.
func (s KindSpec) AllowsConstraint(k ConstraintKind) bool {
	for _, allowed := range s.ConstraintKinds {
		if allowed == k {
			return true
		}
	}
	return false
}

// AllowsDataType reports whether the kind permits the given property data type.
func (s KindSpec) AllowsDataType(t PropertyDataType) bool {
	for _, allowed := range s.DataTypes {
		if allowed == t {
			return true
		}
	}
	return false
}

// SpecFor returns the schema allowlists for the given kind. Container kinds
// additionally allow CanContain; leaf kinds restrict to property and plugin
// rules.
func SpecFor(kind EntityKind) (KindSpec, error) {
	if err := kind.Validate(); err != nil {
		return KindSpec{}, err
	}
	spec := KindSpec{
		Kind:            kind,
		ConstraintKinds: []ConstraintKind{ConstraintMustBeDefined, ConstraintHasProperty, ConstraintUsesPlugin},
		DataTypes:       []PropertyDataType{DataTypeText, DataTypeNumber, DataTypeDate},
	}
	if kind.Container() {
		spec.ConstraintKinds = append(spec.ConstraintKinds, ConstraintCanContain)
	}
	return spec, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package modeling

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// Transactor groups repository writes into one atomic transaction. Repository
// methods called inside fn with the derived context participate in the same
// transaction; fn returning an error rolls everything back.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EntityTypeRepository manages entity type persistence.
type EntityTypeRepository interface {
	// Create persists a new entity type.
	Create(ctx context.Context, t *EntityType) error

	// Get retrieves an entity type by ID.
	Get(ctx context.Context, id ulid.ULID) (*EntityType, error)

	// GetByName retrieves an entity type by its unique name.
	GetByName(ctx context.Context, name string) (*EntityType, error)

	// List returns all entity types, optionally filtered by kind ("" for all).
	List(ctx context.Context, kind EntityKind) ([]*EntityType, error)

	// Update modifies an existing entity type (rename, activation).
	Update(ctx context.Context, t *EntityType) error

	// Delete removes the entity type row only. Owned rows are cascaded by the
	// service inside one transaction.
	Delete(ctx context.Context, id ulid.ULID) error
}

// TypeVersionRepository manages type version persistence.
type TypeVersionRepository interface {
	// Create persists a new type version.
	Create(ctx context.Context, v *TypeVersion) error

	// Get retrieves a type version by ID.
	Get(ctx context.Context, id ulid.ULID) (*TypeVersion, error)

	// ListByType returns all versions of a type ordered by version number.
	ListByType(ctx context.Context, typeID ulid.ULID) ([]*TypeVersion, error)

	// LatestByType returns the highest-numbered version of a type.
	LatestByType(ctx context.Context, typeID ulid.ULID) (*TypeVersion, error)

	// NextVersionNumber returns the next monotonic version number for a type.
	NextVersionNumber(ctx context.Context, typeID ulid.ULID) (int64, error)

	// Delete removes a type version by ID.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteByType removes all versions of a type.
	DeleteByType(ctx context.Context, typeID ulid.ULID) error
}

// ConstraintRepository manages constraint persistence.
type ConstraintRepository interface {
	// Create persists a new constraint.
	Create(ctx context.Context, c *Constraint) error

	// Get retrieves a constraint by ID.
	Get(ctx context.Context, id ulid.ULID) (*Constraint, error)

	// ListByVersion returns all constraints of a type version in declaration
	// order.
	ListByVersion(ctx context.Context, versionID ulid.ULID) ([]Constraint, error)

	// Delete removes a constraint by ID.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteByVersion removes all constraints of a type version.
	DeleteByVersion(ctx context.Context, versionID ulid.ULID) error
}

// EntityRepository manages entity persistence across all kinds.
type EntityRepository interface {
	// Create persists a new entity.
	Create(ctx context.Context, e *Entity) error

	// GetByRef retrieves an entity by its shared generic row id.
	GetByRef(ctx context.Context, ref ulid.ULID) (*Entity, error)

	// ListByVersion returns all entities created against a type version.
	ListByVersion(ctx context.Context, versionID ulid.ULID) ([]*Entity, error)

	// ListChildren returns the entities contained in the given parent.
	ListChildren(ctx context.Context, parentRef ulid.ULID) ([]*Entity, error)

	// UpdateState changes an entity's lifecycle state.
	UpdateState(ctx context.Context, ref ulid.ULID, state EntityState) error

	// Delete removes an entity by ref.
	Delete(ctx context.Context, ref ulid.ULID) error

	// DeleteByVersion removes all entities of a type version.
	DeleteByVersion(ctx context.Context, versionID ulid.ULID) error
}

// PropertyRepository manages property persistence.
type PropertyRepository interface {
	// Create persists a new property.
	Create(ctx context.Context, p *Property) error

	// ListByParent returns all properties of an entity in declaration order.
	ListByParent(ctx context.Context, parentRef ulid.ULID) ([]Property, error)

	// Update overwrites a property's value.
	Update(ctx context.Context, p *Property) error

	// DeleteByParent removes all properties of an entity.
	DeleteByParent(ctx context.Context, parentRef ulid.ULID) error

	// DeleteByParentAndKey removes the property with the given key from an
	// entity. Used by schema constraint removal cascades.
	DeleteByParentAndKey(ctx context.Context, parentRef ulid.ULID, key string) error
}

// ViewerRepository manages viewer relation persistence.
type ViewerRepository interface {
	// Create persists a new viewer relation.
	Create(ctx context.Context, v *Viewer) error

	// ListByTarget returns all viewer relations of an entity.
	ListByTarget(ctx context.Context, targetRef ulid.ULID) ([]Viewer, error)

	// Delete removes a viewer relation by ID.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteByTarget removes all viewer relations of an entity.
	DeleteByTarget(ctx context.Context, targetRef ulid.ULID) error
}

// GroupRepository resolves group names and memberships.
type GroupRepository interface {
	// GetByName retrieves a group by its unique name.
	GetByName(ctx context.Context, name string) (*Group, error)

	// List returns all groups.
	List(ctx context.Context) ([]Group, error)
}

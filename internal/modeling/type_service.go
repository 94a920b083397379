// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package modeling

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// TypeServiceConfig holds dependencies for TypeService.
type TypeServiceConfig struct {
	Types       EntityTypeRepository
	Versions    TypeVersionRepository
	Constraints ConstraintRepository
	Entities    EntityRepository
	Properties  PropertyRepository
	Viewers     ViewerRepository
	Tx          Transactor
	Plugins     PluginRegistry
}

// TypeService orchestrates schema mutations: entity type lifecycle, version
// management, and constraint changes with their per-entity property fan-out.
// Every multi-row mutation runs in one transaction; a constraint row is never
// observable without its paired property rows.
type TypeService struct {
	types       EntityTypeRepository
	versions    TypeVersionRepository
	constraints ConstraintRepository
	entities    EntityRepository
	properties  PropertyRepository
	viewers     ViewerRepository
	tx          Transactor
	plugins     PluginRegistry
}

// NewTypeService creates a new TypeService with the given configuration.
func NewTypeService(cfg TypeServiceConfig) *TypeService {
	return &TypeService{
		types:       cfg.Types,
		versions:    cfg.Versions,
		constraints: cfg.Constraints,
		entities:    cfg.Entities,
		properties:  cfg.Properties,
		viewers:     cfg.Viewers,
		tx:          cfg.Tx,
		plugins:     cfg.Plugins,
	}
}

func (s *TypeService) validatorFor(kind EntityKind) (*Validator, error) {
	v, err := NewValidator(kind, s.plugins)
	if err != nil {
		return nil, oops.Code("VALIDATOR_INIT_FAILED").With("kind", kind.String()).Wrap(err)
	}
	return v, nil
}

// CreateType creates a new, inactive entity type with an empty first version.
func (s *TypeService) CreateType(ctx context.Context, ticket Ticket, name string, kind EntityKind) (*EntityType, error) {
	if err := ticket.AssertModeler(); err != nil {
		return nil, err
	}
	if err := ValidateTypeName(name); err != nil {
		return nil, err
	}
	if err := kind.Validate(); err != nil {
		return nil, &ValidationError{Message: "unknown entity kind " + kind.String()}
	}
	if _, err := s.types.GetByName(ctx, name); err == nil {
		return nil, &ValidationError{Message: "a type named " + name + " already exists"}
	} else if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("TYPE_LOOKUP_FAILED").With("name", name).Wrap(err)
	}

	t := &EntityType{
		ID:        NewULID(),
		Name:      name,
		Kind:      kind,
		Active:    false,
		CreatedAt: time.Now().UTC(),
	}
	v := &TypeVersion{
		ID:            NewULID(),
		TypeID:        t.ID,
		VersionNumber: 1,
		CreatedAt:     t.CreatedAt,
	}
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.types.Create(ctx, t); err != nil {
			return err
		}
		return s.versions.Create(ctx, v)
	})
	SchemaMutations.WithLabelValues("create_type", outcomeLabel(err)).Inc()
	if err != nil {
		return nil, oops.Code("TYPE_CREATE_FAILED").With("name", name).Wrap(err)
	}
	return t, nil
}

// GetType retrieves an entity type by ID.
func (s *TypeService) GetType(ctx context.Context, ticket Ticket, id ulid.ULID) (*EntityType, error) {
	if err := ticket.AssertWorker(); err != nil {
		return nil, err
	}
	t, err := s.types.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTypes returns all entity types, optionally filtered by kind.
func (s *TypeService) ListTypes(ctx context.Context, ticket Ticket, kind EntityKind) ([]*EntityType, error) {
	if err := ticket.AssertWorker(); err != nil {
		return nil, err
	}
	return s.types.List(ctx, kind)
}

// RenameType changes a type's unique name.
func (s *TypeService) RenameType(ctx context.Context, ticket Ticket, id ulid.ULID, name string) error {
	if err := ticket.AssertModeler(); err != nil {
		return err
	}
	if err := ValidateTypeName(name); err != nil {
		return err
	}
	t, err := s.types.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing, err := s.types.GetByName(ctx, name); err == nil && existing.ID != id {
		return &ValidationError{Message: "a type named " + name + " already exists"}
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("TYPE_LOOKUP_FAILED").With("name", name).Wrap(err)
	}
	t.Name = name
	if err := s.types.Update(ctx, t); err != nil {
		return oops.Code("TYPE_RENAME_FAILED").With("id", id.String()).Wrap(err)
	}
	return nil
}

// SetTypeActive activates or deactivates a type. Activation requires the
// latest version's constraint set to pass model validation.
func (s *TypeService) SetTypeActive(ctx context.Context, ticket Ticket, id ulid.ULID, active bool) error {
	if err := ticket.AssertModeler(); err != nil {
		return err
	}
	t, err := s.types.Get(ctx, id)
	if err != nil {
		return err
	}
	if active {
		latest, err := s.versions.LatestByType(ctx, id)
		if err != nil {
			return err
		}
		cs, err := s.constraints.ListByVersion(ctx, latest.ID)
		if err != nil {
			return err
		}
		validator, err := s.validatorFor(t.Kind)
		if err != nil {
			return err
		}
		if status := validator.IsConstraintModel(cs); !status.OK() {
			return status.Err()
		}
	}
	t.Active = active
	if err := s.types.Update(ctx, t); err != nil {
		return oops.Code("TYPE_UPDATE_FAILED").With("id", id.String()).Wrap(err)
	}
	return nil
}

// DeleteType removes a type and everything it owns: versions, constraints,
// entities, properties, and viewers, in one transaction. Children contained
// in entities of a container type are removed with their parent, even though
// they belong to another type. Partial cascades are never observable.
func (s *TypeService) DeleteType(ctx context.Context, ticket Ticket, id ulid.ULID) error {
	if err := ticket.AssertModeler(); err != nil {
		return err
	}
	t, err := s.types.Get(ctx, id)
	if err != nil {
		return err
	}
	versions, err := s.versions.ListByType(ctx, id)
	if err != nil {
		return err
	}
	start := time.Now()
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		for _, v := range versions {
			entities, err := s.entities.ListByVersion(ctx, v.ID)
			if err != nil {
				return err
			}
			for _, e := range entities {
				if t.Kind.Container() {
					children, err := s.entities.ListChildren(ctx, e.Ref)
					if err != nil {
						return err
					}
					for _, c := range children {
						if err := s.deleteEntityRows(ctx, c.Ref); err != nil {
							return err
						}
						if err := s.entities.Delete(ctx, c.Ref); err != nil {
							return err
						}
					}
				}
				if err := s.deleteEntityRows(ctx, e.Ref); err != nil {
					return err
				}
			}
			if err := s.entities.DeleteByVersion(ctx, v.ID); err != nil {
				return err
			}
			if err := s.constraints.DeleteByVersion(ctx, v.ID); err != nil {
				return err
			}
		}
		if err := s.versions.DeleteByType(ctx, id); err != nil {
			return err
		}
		return s.types.Delete(ctx, id)
	})
	MutationDuration.WithLabelValues("delete_type").Observe(time.Since(start).Seconds())
	SchemaMutations.WithLabelValues("delete_type", outcomeLabel(err)).Inc()
	if err != nil {
		return oops.Code("TYPE_DELETE_FAILED").With("id", id.String()).Wrap(err)
	}
	return nil
}

// deleteEntityRows removes the rows an entity owns, leaving the entity row
// itself to the caller.
func (s *TypeService) deleteEntityRows(ctx context.Context, ref ulid.ULID) error {
	if err := s.properties.DeleteByParent(ctx, ref); err != nil {
		return err
	}
	return s.viewers.DeleteByTarget(ctx, ref)
}

// AddVersion appends a fresh, empty version to an inactive type.
func (s *TypeService) AddVersion(ctx context.Context, ticket Ticket, typeID ulid.ULID) (*TypeVersion, error) {
	if err := ticket.AssertModeler(); err != nil {
		return nil, err
	}
	t, err := s.types.Get(ctx, typeID)
	if err != nil {
		return nil, err
	}
	if t.Active {
		return nil, &ValidationError{Message: "cannot add a version to an active type; deactivate it first"}
	}
	number, err := s.versions.NextVersionNumber(ctx, typeID)
	if err != nil {
		return nil, err
	}
	v := &TypeVersion{
		ID:            NewULID(),
		TypeID:        typeID,
		VersionNumber: number,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.versions.Create(ctx, v); err != nil {
		return nil, oops.Code("VERSION_CREATE_FAILED").With("type_id", typeID.String()).Wrap(err)
	}
	SchemaMutations.WithLabelValues("add_version", MetricStatusSuccess).Inc()
	return v, nil
}

// ForkVersion copies an existing version's constraints into a new version
// with fresh constraint ids, preserving declaration order.
func (s *TypeService) ForkVersion(ctx context.Context, ticket Ticket, versionID ulid.ULID) (*TypeVersion, error) {
	if err := ticket.AssertModeler(); err != nil {
		return nil, err
	}
	source, err := s.versions.Get(ctx, versionID)
	if err != nil {
		return nil, err
	}
	cs, err := s.constraints.ListByVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	number, err := s.versions.NextVersionNumber(ctx, source.TypeID)
	if err != nil {
		return nil, err
	}
	fork := &TypeVersion{
		ID:            NewULID(),
		TypeID:        source.TypeID,
		VersionNumber: number,
		CreatedAt:     time.Now().UTC(),
	}
	copies := make([]Constraint, 0, len(cs))
	for _, c := range sortConstraintsByID(cs) {
		copied := c
		copied.ID = NewULID()
		copied.TypeVersionID = fork.ID
		copies = append(copies, copied)
	}
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.versions.Create(ctx, fork); err != nil {
			return err
		}
		for i := range copies {
			if err := s.constraints.Create(ctx, &copies[i]); err != nil {
				return err
			}
		}
		return nil
	})
	SchemaMutations.WithLabelValues("fork_version", outcomeLabel(err)).Inc()
	if err != nil {
		return nil, oops.Code("VERSION_FORK_FAILED").With("source_id", versionID.String()).Wrap(err)
	}
	return fork, nil
}

// ListVersions returns all versions of a type.
func (s *TypeService) ListVersions(ctx context.Context, ticket Ticket, typeID ulid.ULID) ([]*TypeVersion, error) {
	if err := ticket.AssertWorker(); err != nil {
		return nil, err
	}
	return s.versions.ListByType(ctx, typeID)
}

// ListConstraints returns all constraints of a type version in declaration
// order.
func (s *TypeService) ListConstraints(ctx context.Context, ticket Ticket, versionID ulid.ULID) ([]Constraint, error) {
	if err := ticket.AssertWorker(); err != nil {
		return nil, err
	}
	return s.constraints.ListByVersion(ctx, versionID)
}

// DeleteVersion removes a version and its constraints. Versions still
// referenced by entities cannot be deleted.
func (s *TypeService) DeleteVersion(ctx context.Context, ticket Ticket, versionID ulid.ULID) error {
	if err := ticket.AssertModeler(); err != nil {
		return err
	}
	if _, err := s.versions.Get(ctx, versionID); err != nil {
		return err
	}
	entities, err := s.entities.ListByVersion(ctx, versionID)
	if err != nil {
		return err
	}
	if len(entities) > 0 {
		return &ValidationError{Message: "version is referenced by existing entities and cannot be deleted"}
	}
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.constraints.DeleteByVersion(ctx, versionID); err != nil {
			return err
		}
		return s.versions.Delete(ctx, versionID)
	})
	SchemaMutations.WithLabelValues("delete_version", outcomeLabel(err)).Inc()
	if err != nil {
		return oops.Code("VERSION_DELETE_FAILED").With("id", versionID.String()).Wrap(err)
	}
	return nil
}

// AddConstraint adds a constraint to a type version. UsesPlugin additions are
// expanded to the plugin's property bundle first; the whole post-application
// model must validate. Every new HasProperty rule fans out a property row to
// each existing entity of the version in the same transaction.
func (s *TypeService) AddConstraint(ctx context.Context, ticket Ticket, versionID ulid.ULID, kind ConstraintKind, param1, param2 string) ([]Constraint, error) {
	if err := ticket.AssertModeler(); err != nil {
		return nil, err
	}
	version, err := s.versions.Get(ctx, versionID)
	if err != nil {
		return nil, err
	}
	t, err := s.types.Get(ctx, version.TypeID)
	if err != nil {
		return nil, err
	}
	validator, err := s.validatorFor(t.Kind)
	if err != nil {
		return nil, err
	}
	existing, err := s.constraints.ListByVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}

	proposed := Constraint{
		ID:            NewULID(),
		Kind:          kind,
		Param1:        param1,
		Param2:        param2,
		TypeVersionID: versionID,
	}
	additions := validator.ApplyConstraint(proposed, existing)
	merged := append(append([]Constraint{}, existing...), additions...)
	for _, a := range additions {
		if status := validator.IsValidConstraint(a, merged); !status.OK() {
			SchemaMutations.WithLabelValues("add_constraint", MetricStatusInvalid).Inc()
			return nil, status.Err()
		}
	}
	if status := validator.IsConstraintModel(merged); !status.OK() {
		SchemaMutations.WithLabelValues("add_constraint", MetricStatusInvalid).Inc()
		return nil, status.Err()
	}

	entities, err := s.entities.ListByVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		for i := range additions {
			if err := s.constraints.Create(ctx, &additions[i]); err != nil {
				return err
			}
		}
		// Fan-out: every existing entity of this version gains a row for each
		// new property, defaulted from the post-application model.
		for _, a := range additions {
			if a.Kind != ConstraintHasProperty {
				continue
			}
			value := DefaultValueFor(merged, a.Param1)
			for _, e := range entities {
				p := &Property{
					ID:        NewULID(),
					Key:       a.Param1,
					Value:     value,
					ParentRef: e.Ref,
				}
				if err := s.properties.Create(ctx, p); err != nil {
					return err
				}
			}
		}
		return nil
	})
	MutationDuration.WithLabelValues("add_constraint").Observe(time.Since(start).Seconds())
	SchemaMutations.WithLabelValues("add_constraint", outcomeLabel(err)).Inc()
	if err != nil {
		return nil, oops.Code("CONSTRAINT_ADD_FAILED").With("version_id", versionID.String()).Wrap(err)
	}
	return additions, nil
}

// RemoveConstraint removes a constraint and its dependents from a type
// version. Every removed HasProperty rule deletes the paired property row
// from each existing entity of the version in the same transaction.
func (s *TypeService) RemoveConstraint(ctx context.Context, ticket Ticket, constraintID ulid.ULID) error {
	if err := ticket.AssertModeler(); err != nil {
		return err
	}
	target, err := s.constraints.Get(ctx, constraintID)
	if err != nil {
		return err
	}
	version, err := s.versions.Get(ctx, target.TypeVersionID)
	if err != nil {
		return err
	}
	t, err := s.types.Get(ctx, version.TypeID)
	if err != nil {
		return err
	}
	validator, err := s.validatorFor(t.Kind)
	if err != nil {
		return err
	}
	all, err := s.constraints.ListByVersion(ctx, version.ID)
	if err != nil {
		return err
	}
	if status := validator.CanRemoveConstraint(*target, all); !status.OK() {
		SchemaMutations.WithLabelValues("remove_constraint", MetricStatusInvalid).Inc()
		return status.Err()
	}
	removals := validator.RemoveConstraint(*target, all)
	remaining := constraintsWithout(all, removals)
	if status := validator.IsConstraintModel(remaining); !status.OK() {
		SchemaMutations.WithLabelValues("remove_constraint", MetricStatusInvalid).Inc()
		return status.Err()
	}

	entities, err := s.entities.ListByVersion(ctx, version.ID)
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		for _, r := range removals {
			if err := s.constraints.Delete(ctx, r.ID); err != nil {
				return err
			}
		}
		for _, r := range removals {
			if r.Kind != ConstraintHasProperty {
				continue
			}
			for _, e := range entities {
				if err := s.properties.DeleteByParentAndKey(ctx, e.Ref, r.Param1); err != nil {
					return err
				}
			}
		}
		return nil
	})
	MutationDuration.WithLabelValues("remove_constraint").Observe(time.Since(start).Seconds())
	SchemaMutations.WithLabelValues("remove_constraint", outcomeLabel(err)).Inc()
	if err != nil {
		return oops.Code("CONSTRAINT_REMOVE_FAILED").With("id", constraintID.String()).Wrap(err)
	}
	return nil
}

// constraintsWithout returns all constraints not present in the removal set.
func constraintsWithout(all, removals []Constraint) []Constraint {
	removed := make(map[ulid.ULID]struct{}, len(removals))
	for _, r := range removals {
		removed[r.ID] = struct{}{}
	}
	remaining := make([]Constraint, 0, len(all))
	for _, c := range all {
		if _, ok := removed[c.ID]; !ok {
			remaining = append(remaining, c)
		}
	}
	return remaining
}

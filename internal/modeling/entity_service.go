// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package modeling

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SystemGroupName is the fixed system-owned group. It always retains the
// maintainer role on every entity and is force-included in viewer input.
const SystemGroupName = "system"

// EntityView is the read model of one entity: its row, properties in
// declaration order, and resolved access tiers.
type EntityView struct {
	Entity     Entity
	Properties []Property
	Viewers    ViewerCombinator
}

// EntityServiceConfig holds dependencies for EntityService.
type EntityServiceConfig struct {
	Types       EntityTypeRepository
	Versions    TypeVersionRepository
	Constraints ConstraintRepository
	Entities    EntityRepository
	Properties  PropertyRepository
	Viewers     ViewerRepository
	Groups      GroupRepository
	Tx          Transactor
	Plugins     PluginRegistry
	Emitter     EventEmitter
}

// EntityService orchestrates entity mutations for all four kinds: creation
// against an active type version, property edits, state transitions, viewer
// changes, and deletion. Reads hide inaccessible entities as not-found.
type EntityService struct {
	types       EntityTypeRepository
	versions    TypeVersionRepository
	constraints ConstraintRepository
	entities    EntityRepository
	properties  PropertyRepository
	viewers     ViewerRepository
	groups      GroupRepository
	tx          Transactor
	plugins     PluginRegistry
	emitter     EventEmitter
}

// NewEntityService creates a new EntityService with the given configuration.
func NewEntityService(cfg EntityServiceConfig) *EntityService {
	return &EntityService{
		types:       cfg.Types,
		versions:    cfg.Versions,
		constraints: cfg.Constraints,
		entities:    cfg.Entities,
		properties:  cfg.Properties,
		viewers:     cfg.Viewers,
		groups:      cfg.Groups,
		tx:          cfg.Tx,
		plugins:     cfg.Plugins,
		emitter:     cfg.Emitter,
	}
}

// schemaContext bundles the schema an entity operation runs against.
type schemaContext struct {
	entityType  *EntityType
	version     *TypeVersion
	constraints []Constraint
	validator   *Validator
}

func (s *EntityService) loadSchema(ctx context.Context, versionID ulid.ULID) (*schemaContext, error) {
	version, err := s.versions.Get(ctx, versionID)
	if err != nil {
		return nil, err
	}
	t, err := s.types.Get(ctx, version.TypeID)
	if err != nil {
		return nil, err
	}
	cs, err := s.constraints.ListByVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	validator, err := NewValidator(t.Kind, s.plugins)
	if err != nil {
		return nil, oops.Code("VALIDATOR_INIT_FAILED").With("kind", t.Kind.String()).Wrap(err)
	}
	return &schemaContext{entityType: t, version: version, constraints: cs, validator: validator}, nil
}

// CreateEntity creates an entity against an active type version. Raw values
// are zipped positionally with the declared properties; viewer input is
// resolved with the system group force-included as maintainer. For nested
// kinds a parent container is required and its CanContain rules must permit
// the entity's type value.
func (s *EntityService) CreateEntity(ctx context.Context, ticket Ticket, versionID ulid.ULID, raw []string, input ViewerInput, parentRef *ulid.ULID) (*Entity, error) {
	if err := ticket.AssertWorker(); err != nil {
		return nil, err
	}
	schema, err := s.loadSchema(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if !schema.entityType.Active {
		return nil, &ValidationError{Message: "type " + schema.entityType.Name + " is not active"}
	}
	if schema.entityType.Kind.Nested() && parentRef == nil {
		return nil, &ValidationError{Message: schema.entityType.Kind.String() + " entities must be created inside a container"}
	}
	if parentRef != nil {
		if err := s.checkContainment(ctx, *parentRef, schema.entityType.Name); err != nil {
			return nil, err
		}
	}

	ref := NewULID()
	props, status := schema.validator.DeriveProperties(schema.constraints, raw, ref)
	if !status.OK() {
		EntityMutations.WithLabelValues("create", schema.entityType.Kind.String(), MetricStatusInvalid).Inc()
		return nil, status.Err()
	}
	if status := schema.validator.IsModelConfiguration(schema.constraints, props); !status.OK() {
		EntityMutations.WithLabelValues("create", schema.entityType.Kind.String(), MetricStatusInvalid).Inc()
		return nil, status.Err()
	}

	input.Maintainers = append(input.Maintainers, SystemGroupName)
	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, err
	}
	_, relations := schema.validator.GetViewerChanges(input, nil, groups, ref)

	entity := &Entity{
		ID:            NewULID(),
		Ref:           ref,
		TypeVersionID: versionID,
		Kind:          schema.entityType.Kind,
		State:         StateCreated,
		ParentRef:     parentRef,
		CreatedAt:     time.Now().UTC(),
	}
	start := time.Now()
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.entities.Create(ctx, entity); err != nil {
			return err
		}
		for i := range props {
			if err := s.properties.Create(ctx, &props[i]); err != nil {
				return err
			}
		}
		for i := range relations {
			if err := s.viewers.Create(ctx, &relations[i]); err != nil {
				return err
			}
		}
		return nil
	})
	MutationDuration.WithLabelValues("create_entity").Observe(time.Since(start).Seconds())
	EntityMutations.WithLabelValues("create", schema.entityType.Kind.String(), outcomeLabel(err)).Inc()
	if err != nil {
		return nil, oops.Code("ENTITY_CREATE_FAILED").With("version_id", versionID.String()).Wrap(err)
	}

	emitEvent(ctx, s.emitter, EventCreated, ref, viewerGroupIDs(relations), "created "+schema.entityType.Name)
	return entity, nil
}

// checkContainment verifies that the parent exists, is a container, and that
// its schema's CanContain rules permit the child type value.
func (s *EntityService) checkContainment(ctx context.Context, parentRef ulid.ULID, childTypeName string) error {
	parent, err := s.entities.GetByRef(ctx, parentRef)
	if err != nil {
		return err
	}
	if !parent.Kind.Container() {
		return &ValidationError{Message: parent.Kind.String() + " entities cannot contain children"}
	}
	parentSchema, err := s.loadSchema(ctx, parent.TypeVersionID)
	if err != nil {
		return err
	}
	for _, allowed := range parentSchema.validator.FindChildren(parentSchema.constraints) {
		if allowed == childTypeName {
			return nil
		}
	}
	return &ValidationError{Message: "container does not permit children of type " + childTypeName}
}

// GetEntity retrieves an entity with its properties and resolved viewers.
// Entities the caller's groups cannot view are reported as not found.
func (s *EntityService) GetEntity(ctx context.Context, ticket Ticket, ref ulid.ULID) (*EntityView, error) {
	if err := ticket.AssertWorker(); err != nil {
		return nil, err
	}
	entity, combinator, err := s.loadViewable(ctx, ticket, ref)
	if err != nil {
		return nil, err
	}
	props, err := s.properties.ListByParent(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &EntityView{Entity: *entity, Properties: props, Viewers: combinator}, nil
}

// loadViewable loads an entity and enforces view access. Missing row and
// missing access both return ErrNotFound.
func (s *EntityService) loadViewable(ctx context.Context, ticket Ticket, ref ulid.ULID) (*Entity, ViewerCombinator, error) {
	entity, err := s.entities.GetByRef(ctx, ref)
	if err != nil {
		return nil, ViewerCombinator{}, err
	}
	relations, err := s.viewers.ListByTarget(ctx, ref)
	if err != nil {
		return nil, ViewerCombinator{}, err
	}
	combinator := CombineViewers(relations)
	if !combinator.CanView(ticket.GroupIDs()) {
		return nil, ViewerCombinator{}, oops.Code("ENTITY_NOT_FOUND").With("ref", ref.String()).Wrap(ErrNotFound)
	}
	return entity, combinator, nil
}

// UpdateProperties overwrites an entity's property values positionally.
// Requires edit access and a conforming result.
func (s *EntityService) UpdateProperties(ctx context.Context, ticket Ticket, ref ulid.ULID, raw []string) error {
	if err := ticket.AssertWorker(); err != nil {
		return err
	}
	entity, combinator, err := s.loadViewable(ctx, ticket, ref)
	if err != nil {
		return err
	}
	if !combinator.CanEdit(ticket.GroupIDs()) {
		return ErrForbidden
	}
	schema, err := s.loadSchema(ctx, entity.TypeVersionID)
	if err != nil {
		return err
	}
	props, err := s.properties.ListByParent(ctx, ref)
	if err != nil {
		return err
	}
	updated, status := schema.validator.MapConfigurations(schema.constraints, props, raw)
	if !status.OK() {
		EntityMutations.WithLabelValues("update_properties", entity.Kind.String(), MetricStatusInvalid).Inc()
		return status.Err()
	}
	if status := schema.validator.IsModelConfiguration(schema.constraints, updated); !status.OK() {
		EntityMutations.WithLabelValues("update_properties", entity.Kind.String(), MetricStatusInvalid).Inc()
		return status.Err()
	}
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		for i := range updated {
			if err := s.properties.Update(ctx, &updated[i]); err != nil {
				return err
			}
		}
		return nil
	})
	EntityMutations.WithLabelValues("update_properties", entity.Kind.String(), outcomeLabel(err)).Inc()
	if err != nil {
		return oops.Code("ENTITY_UPDATE_FAILED").With("ref", ref.String()).Wrap(err)
	}
	return nil
}

// UpdateViewers replaces an entity's access configuration. Requires maintain
// access. The system group always remains maintainer.
func (s *EntityService) UpdateViewers(ctx context.Context, ticket Ticket, ref ulid.ULID, input ViewerInput) error {
	if err := ticket.AssertWorker(); err != nil {
		return err
	}
	entity, combinator, err := s.loadViewable(ctx, ticket, ref)
	if err != nil {
		return err
	}
	if !combinator.CanMaintain(ticket.GroupIDs()) {
		return ErrForbidden
	}
	schema, err := s.loadSchema(ctx, entity.TypeVersionID)
	if err != nil {
		return err
	}
	relations, err := s.viewers.ListByTarget(ctx, ref)
	if err != nil {
		return err
	}
	groups, err := s.groups.List(ctx)
	if err != nil {
		return err
	}
	input.Maintainers = append(input.Maintainers, SystemGroupName)
	toDelete, toInsert := schema.validator.GetViewerChanges(input, relations, groups, ref)
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		for _, v := range toDelete {
			if err := s.viewers.Delete(ctx, v.ID); err != nil {
				return err
			}
		}
		for i := range toInsert {
			if err := s.viewers.Create(ctx, &toInsert[i]); err != nil {
				return err
			}
		}
		return nil
	})
	EntityMutations.WithLabelValues("update_viewers", entity.Kind.String(), outcomeLabel(err)).Inc()
	if err != nil {
		return oops.Code("VIEWER_UPDATE_FAILED").With("ref", ref.String()).Wrap(err)
	}
	return nil
}

// ChangeState transitions an entity's lifecycle state. Container archival
// requires all children closed and cascades the archive to them in the same
// transaction.
func (s *EntityService) ChangeState(ctx context.Context, ticket Ticket, ref ulid.ULID, newState EntityState) error {
	if err := ticket.AssertWorker(); err != nil {
		return err
	}
	entity, combinator, err := s.loadViewable(ctx, ticket, ref)
	if err != nil {
		return err
	}
	if !combinator.CanEdit(ticket.GroupIDs()) {
		return ErrForbidden
	}
	schema, err := s.loadSchema(ctx, entity.TypeVersionID)
	if err != nil {
		return err
	}
	var children []*Entity
	if entity.Kind.Container() {
		children, err = s.entities.ListChildren(ctx, ref)
		if err != nil {
			return err
		}
	}
	childStates := make([]EntityState, 0, len(children))
	for _, c := range children {
		childStates = append(childStates, c.State)
	}
	if status := schema.validator.IsValidStateTransition(entity.State, newState, childStates); !status.OK() {
		EntityMutations.WithLabelValues("change_state", entity.Kind.String(), MetricStatusInvalid).Inc()
		return status.Err()
	}
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.entities.UpdateState(ctx, ref, newState); err != nil {
			return err
		}
		// Archival cascades to contained entities.
		if newState == StateArchived {
			for _, c := range children {
				if err := s.entities.UpdateState(ctx, c.Ref, StateArchived); err != nil {
					return err
				}
			}
		}
		return nil
	})
	EntityMutations.WithLabelValues("change_state", entity.Kind.String(), outcomeLabel(err)).Inc()
	if err != nil {
		return oops.Code("STATE_CHANGE_FAILED").With("ref", ref.String()).With("new_state", newState.String()).Wrap(err)
	}

	emitEvent(ctx, s.emitter, EventStateChanged, ref, combinator.AllGroupIDs(), "state changed to "+newState.String())
	return nil
}

// DeleteEntity removes an entity with its properties and viewers. Containers
// cascade to their children; no partial cascade is ever observable.
func (s *EntityService) DeleteEntity(ctx context.Context, ticket Ticket, ref ulid.ULID) error {
	if err := ticket.AssertWorker(); err != nil {
		return err
	}
	entity, combinator, err := s.loadViewable(ctx, ticket, ref)
	if err != nil {
		return err
	}
	if !combinator.CanMaintain(ticket.GroupIDs()) {
		return ErrForbidden
	}
	var children []*Entity
	if entity.Kind.Container() {
		children, err = s.entities.ListChildren(ctx, ref)
		if err != nil {
			return err
		}
	}
	audience := combinator.AllGroupIDs()
	start := time.Now()
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		for _, c := range children {
			if err := s.deleteOne(ctx, c.Ref); err != nil {
				return err
			}
		}
		return s.deleteOne(ctx, ref)
	})
	MutationDuration.WithLabelValues("delete_entity").Observe(time.Since(start).Seconds())
	EntityMutations.WithLabelValues("delete", entity.Kind.String(), outcomeLabel(err)).Inc()
	if err != nil {
		return oops.Code("ENTITY_DELETE_FAILED").With("ref", ref.String()).Wrap(err)
	}

	// Drop the history of the removed entities before announcing the deletion,
	// so only the announcement refers to the now-gone refs.
	for _, c := range children {
		forgetEvents(ctx, s.emitter, c.Ref)
	}
	forgetEvents(ctx, s.emitter, ref)
	emitEvent(ctx, s.emitter, EventDeleted, ref, audience, "entity deleted")
	return nil
}

func (s *EntityService) deleteOne(ctx context.Context, ref ulid.ULID) error {
	if err := s.properties.DeleteByParent(ctx, ref); err != nil {
		return err
	}
	if err := s.viewers.DeleteByTarget(ctx, ref); err != nil {
		return err
	}
	return s.entities.Delete(ctx, ref)
}

// AllowedChildTypes returns the child type values a container entity's
// schema permits.
func (s *EntityService) AllowedChildTypes(ctx context.Context, ticket Ticket, ref ulid.ULID) ([]string, error) {
	if err := ticket.AssertWorker(); err != nil {
		return nil, err
	}
	entity, _, err := s.loadViewable(ctx, ticket, ref)
	if err != nil {
		return nil, err
	}
	schema, err := s.loadSchema(ctx, entity.TypeVersionID)
	if err != nil {
		return nil, err
	}
	return schema.validator.FindChildren(schema.constraints), nil
}

func viewerGroupIDs(relations []Viewer) []ulid.ULID {
	ids := make([]ulid.ULID, 0, len(relations))
	for _, v := range relations {
		ids = append(ids, v.GroupID)
	}
	return ids
}

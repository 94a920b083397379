// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package modeltest

import (
	"context"
	"fmt"
	"sort"

	"github.com/oklog/ulid/v2"

	"github.com/EdgarDorausch/flimey-core/internal/modeling"
)

// Store is an in-memory backend implementing every modeling repository and
// the Transactor. Maps are exposed so tests can seed rows directly and
// inspect state after service calls. InTransaction restores the previous
// state when the callback fails, matching rollback semantics.
type Store struct {
	Types       map[ulid.ULID]*modeling.EntityType
	Versions    map[ulid.ULID]*modeling.TypeVersion
	Constraints map[ulid.ULID]modeling.Constraint
	Entities    map[ulid.ULID]*modeling.Entity
	Properties  map[ulid.ULID]modeling.Property
	Viewers     map[ulid.ULID]modeling.Viewer
	Groups      map[ulid.ULID]modeling.Group

	// Injectable failures for rollback tests.
	PropertyCreateErr   error
	ViewerCreateErr     error
	ConstraintCreateErr error
	EntityCreateErr     error
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		Types:       make(map[ulid.ULID]*modeling.EntityType),
		Versions:    make(map[ulid.ULID]*modeling.TypeVersion),
		Constraints: make(map[ulid.ULID]modeling.Constraint),
		Entities:    make(map[ulid.ULID]*modeling.Entity),
		Properties:  make(map[ulid.ULID]modeling.Property),
		Viewers:     make(map[ulid.ULID]modeling.Viewer),
		Groups:      make(map[ulid.ULID]modeling.Group),
	}
}

func notFound(what string, id ulid.ULID) error {
	return fmt.Errorf("%s %s: %w", what, id.String(), modeling.ErrNotFound)
}

// InTransaction implements modeling.Transactor.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := s.clone()
	if err := fn(ctx); err != nil {
		s.Types = snapshot.Types
		s.Versions = snapshot.Versions
		s.Constraints = snapshot.Constraints
		s.Entities = snapshot.Entities
		s.Properties = snapshot.Properties
		s.Viewers = snapshot.Viewers
		s.Groups = snapshot.Groups
		return err
	}
	return nil
}

func (s *Store) clone() *Store {
	c := NewStore()
	for id, t := range s.Types {
		cp := *t
		c.Types[id] = &cp
	}
	for id, v := range s.Versions {
		cp := *v
		c.Versions[id] = &cp
	}
	for id, con := range s.Constraints {
		c.Constraints[id] = con
	}
	for ref, e := range s.Entities {
		cp := *e
		c.Entities[ref] = &cp
	}
	for id, p := range s.Properties {
		c.Properties[id] = p
	}
	for id, v := range s.Viewers {
		c.Viewers[id] = v
	}
	for id, g := range s.Groups {
		c.Groups[id] = g
	}
	return c
}

// TypeRepo returns the Store as an EntityTypeRepository.
func (s *Store) TypeRepo() modeling.EntityTypeRepository { return typeRepo{s} }

// VersionRepo returns the Store as a TypeVersionRepository.
func (s *Store) VersionRepo() modeling.TypeVersionRepository { return versionRepo{s} }

// ConstraintRepo returns the Store as a ConstraintRepository.
func (s *Store) ConstraintRepo() modeling.ConstraintRepository { return constraintRepo{s} }

// EntityRepo returns the Store as an EntityRepository.
func (s *Store) EntityRepo() modeling.EntityRepository { return entityRepo{s} }

// PropertyRepo returns the Store as a PropertyRepository.
func (s *Store) PropertyRepo() modeling.PropertyRepository { return propertyRepo{s} }

// ViewerRepo returns the Store as a ViewerRepository.
func (s *Store) ViewerRepo() modeling.ViewerRepository { return viewerRepo{s} }

// GroupRepo returns the Store as a GroupRepository.
func (s *Store) GroupRepo() modeling.GroupRepository { return groupRepo{s} }

// AddGroup seeds a group and returns its id.
func (s *Store) AddGroup(name string) ulid.ULID {
	g := modeling.Group{ID: modeling.NewULID(), Name: name}
	s.Groups[g.ID] = g
	return g.ID
}

// ConstraintsOf returns the constraints of a version in declaration order.
func (s *Store) ConstraintsOf(versionID ulid.ULID) []modeling.Constraint {
	out := make([]modeling.Constraint, 0)
	for _, c := range s.Constraints {
		if c.TypeVersionID == versionID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Compare(out[j].ID) < 0 })
	return out
}

// PropertiesOf returns the properties of an entity in declaration order.
func (s *Store) PropertiesOf(ref ulid.ULID) []modeling.Property {
	out := make([]modeling.Property, 0)
	for _, p := range s.Properties {
		if p.ParentRef == ref {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Compare(out[j].ID) < 0 })
	return out
}

// ViewersOf returns the viewer relations of an entity in insertion order.
func (s *Store) ViewersOf(ref ulid.ULID) []modeling.Viewer {
	out := make([]modeling.Viewer, 0)
	for _, v := range s.Viewers {
		if v.TargetRef == ref {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Compare(out[j].ID) < 0 })
	return out
}

type typeRepo struct{ s *Store }

func (r typeRepo) Create(_ context.Context, t *modeling.EntityType) error {
	cp := *t
	r.s.Types[t.ID] = &cp
	return nil
}

func (r typeRepo) Get(_ context.Context, id ulid.ULID) (*modeling.EntityType, error) {
	t, ok := r.s.Types[id]
	if !ok {
		return nil, notFound("entity type", id)
	}
	cp := *t
	return &cp, nil
}

func (r typeRepo) GetByName(_ context.Context, name string) (*modeling.EntityType, error) {
	for _, t := range r.s.Types {
		if t.Name == name {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("entity type %q: %w", name, modeling.ErrNotFound)
}

func (r typeRepo) List(_ context.Context, kind modeling.EntityKind) ([]*modeling.EntityType, error) {
	out := make([]*modeling.EntityType, 0)
	for _, t := range r.s.Types {
		if kind != "" && t.Kind != kind {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Compare(out[j].ID) < 0 })
	return out, nil
}

func (r typeRepo) Update(_ context.Context, t *modeling.EntityType) error {
	if _, ok := r.s.Types[t.ID]; !ok {
		return notFound("entity type", t.ID)
	}
	cp := *t
	r.s.Types[t.ID] = &cp
	return nil
}

func (r typeRepo) Delete(_ context.Context, id ulid.ULID) error {
	if _, ok := r.s.Types[id]; !ok {
		return notFound("entity type", id)
	}
	delete(r.s.Types, id)
	return nil
}

type versionRepo struct{ s *Store }

func (r versionRepo) Create(_ context.Context, v *modeling.TypeVersion) error {
	cp := *v
	r.s.Versions[v.ID] = &cp
	return nil
}

func (r versionRepo) Get(_ context.Context, id ulid.ULID) (*modeling.TypeVersion, error) {
	v, ok := r.s.Versions[id]
	if !ok {
		return nil, notFound("type version", id)
	}
	cp := *v
	return &cp, nil
}

func (r versionRepo) ListByType(_ context.Context, typeID ulid.ULID) ([]*modeling.TypeVersion, error) {
	out := make([]*modeling.TypeVersion, 0)
	for _, v := range r.s.Versions {
		if v.TypeID == typeID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber < out[j].VersionNumber })
	return out, nil
}

func (r versionRepo) LatestByType(ctx context.Context, typeID ulid.ULID) (*modeling.TypeVersion, error) {
	versions, err := r.ListByType(ctx, typeID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, notFound("latest version of type", typeID)
	}
	return versions[len(versions)-1], nil
}

func (r versionRepo) NextVersionNumber(ctx context.Context, typeID ulid.ULID) (int64, error) {
	versions, err := r.ListByType(ctx, typeID)
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 1, nil
	}
	return versions[len(versions)-1].VersionNumber + 1, nil
}

func (r versionRepo) Delete(_ context.Context, id ulid.ULID) error {
	if _, ok := r.s.Versions[id]; !ok {
		return notFound("type version", id)
	}
	delete(r.s.Versions, id)
	return nil
}

func (r versionRepo) DeleteByType(_ context.Context, typeID ulid.ULID) error {
	for id, v := range r.s.Versions {
		if v.TypeID == typeID {
			delete(r.s.Versions, id)
		}
	}
	return nil
}

type constraintRepo struct{ s *Store }

func (r constraintRepo) Create(_ context.Context, c *modeling.Constraint) error {
	if r.s.ConstraintCreateErr != nil {
		return r.s.ConstraintCreateErr
	}
	r.s.Constraints[c.ID] = *c
	return nil
}

func (r constraintRepo) Get(_ context.Context, id ulid.ULID) (*modeling.Constraint, error) {
	c, ok := r.s.Constraints[id]
	if !ok {
		return nil, notFound("constraint", id)
	}
	return &c, nil
}

func (r constraintRepo) ListByVersion(_ context.Context, versionID ulid.ULID) ([]modeling.Constraint, error) {
	return r.s.ConstraintsOf(versionID), nil
}

func (r constraintRepo) Delete(_ context.Context, id ulid.ULID) error {
	if _, ok := r.s.Constraints[id]; !ok {
		return notFound("constraint", id)
	}
	delete(r.s.Constraints, id)
	return nil
}

func (r constraintRepo) DeleteByVersion(_ context.Context, versionID ulid.ULID) error {
	for id, c := range r.s.Constraints {
		if c.TypeVersionID == versionID {
			delete(r.s.Constraints, id)
		}
	}
	return nil
}

type entityRepo struct{ s *Store }

func (r entityRepo) Create(_ context.Context, e *modeling.Entity) error {
	if r.s.EntityCreateErr != nil {
		return r.s.EntityCreateErr
	}
	cp := *e
	r.s.Entities[e.Ref] = &cp
	return nil
}

func (r entityRepo) GetByRef(_ context.Context, ref ulid.ULID) (*modeling.Entity, error) {
	e, ok := r.s.Entities[ref]
	if !ok {
		return nil, notFound("entity", ref)
	}
	cp := *e
	return &cp, nil
}

func (r entityRepo) ListByVersion(_ context.Context, versionID ulid.ULID) ([]*modeling.Entity, error) {
	out := make([]*modeling.Entity, 0)
	for _, e := range r.s.Entities {
		if e.TypeVersionID == versionID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Compare(out[j].ID) < 0 })
	return out, nil
}

func (r entityRepo) ListChildren(_ context.Context, parentRef ulid.ULID) ([]*modeling.Entity, error) {
	out := make([]*modeling.Entity, 0)
	for _, e := range r.s.Entities {
		if e.ParentRef != nil && *e.ParentRef == parentRef {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Compare(out[j].ID) < 0 })
	return out, nil
}

func (r entityRepo) UpdateState(_ context.Context, ref ulid.ULID, state modeling.EntityState) error {
	e, ok := r.s.Entities[ref]
	if !ok {
		return notFound("entity", ref)
	}
	e.State = state
	return nil
}

func (r entityRepo) Delete(_ context.Context, ref ulid.ULID) error {
	if _, ok := r.s.Entities[ref]; !ok {
		return notFound("entity", ref)
	}
	delete(r.s.Entities, ref)
	return nil
}

func (r entityRepo) DeleteByVersion(_ context.Context, versionID ulid.ULID) error {
	for ref, e := range r.s.Entities {
		if e.TypeVersionID == versionID {
			delete(r.s.Entities, ref)
		}
	}
	return nil
}

type propertyRepo struct{ s *Store }

func (r propertyRepo) Create(_ context.Context, p *modeling.Property) error {
	if r.s.PropertyCreateErr != nil {
		return r.s.PropertyCreateErr
	}
	r.s.Properties[p.ID] = *p
	return nil
}

func (r propertyRepo) ListByParent(_ context.Context, parentRef ulid.ULID) ([]modeling.Property, error) {
	return r.s.PropertiesOf(parentRef), nil
}

func (r propertyRepo) Update(_ context.Context, p *modeling.Property) error {
	if _, ok := r.s.Properties[p.ID]; !ok {
		return notFound("property", p.ID)
	}
	r.s.Properties[p.ID] = *p
	return nil
}

func (r propertyRepo) DeleteByParent(_ context.Context, parentRef ulid.ULID) error {
	for id, p := range r.s.Properties {
		if p.ParentRef == parentRef {
			delete(r.s.Properties, id)
		}
	}
	return nil
}

func (r propertyRepo) DeleteByParentAndKey(_ context.Context, parentRef ulid.ULID, key string) error {
	for id, p := range r.s.Properties {
		if p.ParentRef == parentRef && p.Key == key {
			delete(r.s.Properties, id)
		}
	}
	return nil
}

type viewerRepo struct{ s *Store }

func (r viewerRepo) Create(_ context.Context, v *modeling.Viewer) error {
	if r.s.ViewerCreateErr != nil {
		return r.s.ViewerCreateErr
	}
	r.s.Viewers[v.ID] = *v
	return nil
}

func (r viewerRepo) ListByTarget(_ context.Context, targetRef ulid.ULID) ([]modeling.Viewer, error) {
	return r.s.ViewersOf(targetRef), nil
}

func (r viewerRepo) Delete(_ context.Context, id ulid.ULID) error {
	if _, ok := r.s.Viewers[id]; !ok {
		return notFound("viewer", id)
	}
	delete(r.s.Viewers, id)
	return nil
}

func (r viewerRepo) DeleteByTarget(_ context.Context, targetRef ulid.ULID) error {
	for id, v := range r.s.Viewers {
		if v.TargetRef == targetRef {
			delete(r.s.Viewers, id)
		}
	}
	return nil
}

type groupRepo struct{ s *Store }

func (r groupRepo) GetByName(_ context.Context, name string) (*modeling.Group, error) {
	for _, g := range r.s.Groups {
		if g.Name == name {
			cp := g
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("group %q: %w", name, modeling.ErrNotFound)
}

func (r groupRepo) List(_ context.Context) ([]modeling.Group, error) {
	out := make([]modeling.Group, 0, len(r.s.Groups))
	for _, g := range r.s.Groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Verify interfaces are satisfied.
var (
	_ modeling.Transactor            = (*Store)(nil)
	_ modeling.EntityTypeRepository  = typeRepo{}
	_ modeling.TypeVersionRepository = versionRepo{}
	_ modeling.ConstraintRepository  = constraintRepo{}
	_ modeling.EntityRepository      = entityRepo{}
	_ modeling.PropertyRepository    = propertyRepo{}
	_ modeling.ViewerRepository      = viewerRepo{}
	_ modeling.GroupRepository       = groupRepo{}
)

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package modeling_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EdgarDorausch/flimey-core/internal/modeling"
	"github.com/EdgarDorausch/flimey-core/internal/modeling/modeltest"
)

var (
	modeler = modeltest.Ticket{Worker: true, Modeler: true}
	worker  = modeltest.Ticket{Worker: true}
	nobody  = modeltest.Ticket{}
)

func newTypeFixture(t *testing.T) (*modeltest.Store, *modeling.TypeService) {
	t.Helper()
	store := modeltest.NewStore()
	reg := modeltest.NewRegistry()
	reg.Register("audit-trail",
		modeling.PluginProperty{Key: "last_editor", DataType: modeling.DataTypeText},
		modeling.PluginProperty{Key: "audit_level", DataType: modeling.DataTypeNumber, Default: "1"},
	)
	svc := modeling.NewTypeService(modeling.TypeServiceConfig{
		Types:       store.TypeRepo(),
		Versions:    store.VersionRepo(),
		Constraints: store.ConstraintRepo(),
		Entities:    store.EntityRepo(),
		Properties:  store.PropertyRepo(),
		Viewers:     store.ViewerRepo(),
		Tx:          store,
		Plugins:     reg,
	})
	return store, svc
}

func latestVersion(t *testing.T, store *modeltest.Store, typeID ulid.ULID) *modeling.TypeVersion {
	t.Helper()
	v, err := store.VersionRepo().LatestByType(context.Background(), typeID)
	require.NoError(t, err)
	return v
}

func seedEntity(store *modeltest.Store, versionID ulid.ULID, kind modeling.EntityKind) *modeling.Entity {
	e := &modeling.Entity{
		ID:            modeling.NewULID(),
		Ref:           modeling.NewULID(),
		TypeVersionID: versionID,
		Kind:          kind,
		State:         modeling.StateCreated,
		CreatedAt:     time.Now().UTC(),
	}
	store.Entities[e.Ref] = e
	return e
}

func TestTypeService_CreateType(t *testing.T) {
	store, svc := newTypeFixture(t)
	ctx := context.Background()

	created, err := svc.CreateType(ctx, modeler, "Laptop", modeling.KindAsset)
	require.NoError(t, err)
	assert.Equal(t, "Laptop", created.Name)
	assert.Equal(t, modeling.KindAsset, created.Kind)
	assert.False(t, created.Active, "new types start inactive")

	v := latestVersion(t, store, created.ID)
	assert.Equal(t, int64(1), v.VersionNumber)
	assert.Empty(t, store.ConstraintsOf(v.ID))
}

func TestTypeService_CreateType_Rejections(t *testing.T) {
	_, svc := newTypeFixture(t)
	ctx := context.Background()

	_, err := svc.CreateType(ctx, worker, "Laptop", modeling.KindAsset)
	assert.ErrorIs(t, err, modeling.ErrForbidden)

	_, err = svc.CreateType(ctx, modeler, "", modeling.KindAsset)
	assert.True(t, modeling.IsValidation(err))

	_, err = svc.CreateType(ctx, modeler, "Laptop", modeling.EntityKind("widget"))
	assert.True(t, modeling.IsValidation(err))

	_, err = svc.CreateType(ctx, modeler, "Laptop", modeling.KindAsset)
	require.NoError(t, err)
	_, err = svc.CreateType(ctx, modeler, "Laptop", modeling.KindFrame)
	assert.True(t, modeling.IsValidation(err), "names are unique across kinds")
}

func TestTypeService_GetAndList(t *testing.T) {
	_, svc := newTypeFixture(t)
	ctx := context.Background()

	laptop, err := svc.CreateType(ctx, modeler, "Laptop", modeling.KindAsset)
	require.NoError(t, err)
	_, err = svc.CreateType(ctx, modeler, "Sprint", modeling.KindFrame)
	require.NoError(t, err)

	got, err := svc.GetType(ctx, worker, laptop.ID)
	require.NoError(t, err)
	assert.Equal(t, "Laptop", got.Name)

	_, err = svc.GetType(ctx, nobody, laptop.ID)
	assert.ErrorIs(t, err, modeling.ErrForbidden)

	_, err = svc.GetType(ctx, worker, modeling.NewULID())
	assert.ErrorIs(t, err, modeling.ErrNotFound)

	all, err := svc.ListTypes(ctx, worker, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	frames, err := svc.ListTypes(ctx, worker, modeling.KindFrame)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, "Sprint", frames[0].Name)
}

func TestTypeService_RenameType(t *testing.T) {
	_, svc := newTypeFixture(t)
	ctx := context.Background()

	laptop, err := svc.CreateType(ctx, modeler, "Laptop", modeling.KindAsset)
	require.NoError(t, err)
	_, err = svc.CreateType(ctx, modeler, "Desktop", modeling.KindAsset)
	require.NoError(t, err)

	require.NoError(t, svc.RenameType(ctx, modeler, laptop.ID, "Notebook"))
	got, err := svc.GetType(ctx, worker, laptop.ID)
	require.NoError(t, err)
	assert.Equal(t, "Notebook", got.Name)

	err = svc.RenameType(ctx, modeler, laptop.ID, "Desktop")
	assert.True(t, modeling.IsValidation(err), "taken names are rejected")

	assert.NoError(t, svc.RenameType(ctx, modeler, laptop.ID, "Notebook"), "renaming to the current name is a no-op")
}

func TestTypeService_SetTypeActive(t *testing.T) {
	store, svc := newTypeFixture(t)
	ctx := context.Background()

	laptop, err := svc.CreateType(ctx, modeler, "Laptop", modeling.KindAsset)
	require.NoError(t, err)
	v := latestVersion(t, store, laptop.ID)

	_, err = svc.AddConstraint(ctx, modeler, v.ID, modeling.ConstraintHasProperty, "serial", "text")
	require.NoError(t, err)

	require.NoError(t, svc.SetTypeActive(ctx, modeler, laptop.ID, true))
	got, err := svc.GetType(ctx, worker, laptop.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)

	require.NoError(t, svc.SetTypeActive(ctx, modeler, laptop.ID, false))
	got, err = svc.GetType(ctx, worker, laptop.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestTypeService_SetTypeActive_InvalidModel(t *testing.T) {
	store, svc := newTypeFixture(t)
	ctx := context.Background()

	laptop, err := svc.CreateType(ctx, modeler, "Laptop", modeling.KindAsset)
	require.NoError(t, err)
	v := latestVersion(t, store, laptop.ID)

	// An orphaned default cannot be created through AddConstraint; seed it to
	// simulate a corrupted constraint set.
	orphan := modeling.Constraint{
		ID:            modeling.NewULID(),
		Kind:          modeling.ConstraintMustBeDefined,
		Param1:        "ghost",
		Param2:        "x",
		TypeVersionID: v.ID,
	}
	store.Constraints[orphan.ID] = orphan

	err = svc.SetTypeActive(ctx, modeler, laptop.ID, true)
	assert.True(t, modeling.IsValidation(err))
	got, err := svc.GetType(ctx, worker, laptop.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestTypeService_AddVersion(t *testing.T) {
	store, svc := newTypeFixture(t)
	ctx := context.Background()

	laptop, err := svc.CreateType(ctx, modeler, "Laptop", modeling.KindAsset)
	require.NoError(t, err)

	v2, err := svc.AddVersion(ctx, modeler, laptop.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2.VersionNumber)
	assert.Empty(t, store.ConstraintsOf(v2.ID))

	require.NoError(t, svc.SetTypeActive(ctx, modeler, laptop.ID, true))
	_, err = svc.AddVersion(ctx, modeler, laptop.ID)
	assert.True(t, modeling.IsValidation(err), "active types cannot grow versions")
}

func TestTypeService_ForkVersion(t *testing.T) {
	store, svc := newTypeFixture(t)
	ctx := context.Background()

	laptop, err := svc.CreateType(ctx, modeler, "Laptop", modeling.KindAsset)
	require.NoError(t, err)
	v1 := latestVersion(t, store, laptop.ID)

	_, err = svc.AddConstraint(ctx, modeler, v1.ID, modeling.ConstraintHasProperty, "serial", "text")
	require.NoError(t, err)
	_, err = svc.AddConstraint(ctx, modeler, v1.ID, modeling.ConstraintHasProperty, "price", "number")
	require.NoError(t, err)

	fork, err := svc.ForkVersion(ctx, modeler, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fork.VersionNumber)
	assert.Equal(t, laptop.ID, fork.TypeID)

	copied := store.ConstraintsOf(fork.ID)
	require.Len(t, copied, 2)
	assert.Equal(t, "serial", copied[0].Param1, "declaration order survives the fork")
	assert.Equal(t, "price", copied[1].Param1)
	original := store.ConstraintsOf(v1.ID)
	assert.NotEqual(t, original[0].ID, copied[0].ID, "forked constraints get fresh ids")
}

func TestTypeService_DeleteVersion(t *testing.T) {
	store, svc := newTypeFixture(t)
	ctx := context.Background()

	laptop, err := svc.CreateType(ctx, modeler, "Laptop", modeling.KindAsset)
	require.NoError(t, err)
	v1 := latestVersion(t, store, laptop.ID)
	_, err = svc.AddConstraint(ctx, modeler, v1.ID, modeling.ConstraintHasProperty, "serial", "text")
	require.NoError(t, err)

	seedEntity(store, v1.ID, modeling.KindAsset)
	err = svc.DeleteVersion(ctx, modeler, v1.ID)
	assert.True(t, modeling.IsValidation(err), "referenced versions are protected")

	v2, err := svc.AddVersion(ctx, modeler, laptop.ID)
	require.NoError(t, err)
	_, err = svc.AddConstraint(ctx, modeler, v2.ID, modeling.ConstraintHasProperty, "serial", "text")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteVersion(ctx, modeler, v2.ID))
	assert.Empty(t, store.ConstraintsOf(v2.ID))
	_, err = store.VersionRepo().Get(ctx, v2.ID)
	assert.ErrorIs(t, err, modeling.ErrNotFound)
}

func TestTypeService_AddConstraint_FanOut(t *testing.T) {
	store, svc := newTypeFixture(t)
	ctx := context.Background()

	laptop, err := svc.CreateType(ctx, modeler, "Laptop", modeling.KindAsset)
	require.NoError(t, err)
	v := latestVersion(t, store, laptop.ID)
	a := seedEntity(store, v.ID, modeling.KindAsset)
	b := seedEntity(store, v.ID, modeling.KindAsset)

	_, err = svc.AddConstraint(ctx, modeler, v.ID, modeling.ConstraintHasProperty, "serial", "text")
	require.NoError(t, err)
	_, err = svc.AddConstraint(ctx, modeler, v.ID, modeling.ConstraintMustBeDefined, "serial", "unknown")
	require.NoError(t, err)

	for _, e := range []*modeling.Entity{a, b} {
		props := store.PropertiesOf(e.Ref)
		require.Len(t, props, 1, "every existing entity gains the new property")
		assert.Equal(t, "serial", props[0].Key)
		assert.Equal(t, "", props[0].Value, "the default did not exist when the property fanned out")
	}

	_, err = svc.AddConstraint(ctx, modeler, v.ID, modeling.ConstraintHasProperty, "price", "number")
	require.NoError(t, err)
	props := store.PropertiesOf(a.Ref)
	require.Len(t, props, 2)
	assert.Equal(t, "price", props[1].Key)
}

func TestTypeService_AddConstraint_PluginExpansion(t *testing.T) {
	store, svc := newTypeFixture(t)
	ctx := context.Background()

	laptop, err := svc.CreateType(ctx, modeler, "Laptop", modeling.KindAsset)
	require.NoError(t, err)
	v := latestVersion(t, store, laptop.ID)
	e := seedEntity(store, v.ID, modeling.KindAsset)

	additions, err := svc.AddConstraint(ctx, modeler, v.ID, modeling.ConstraintUsesPlugin, "audit-trail", "")
	require.NoError(t, err)
	assert.Len(t, additions, 4, "plugin rule, two properties, one default")

	props := store.PropertiesOf(e.Ref)
	require.Len(t, props, 2)
	byKey := make(map[string]string)
	for _, p := range props {
		byKey[p.Key] = p.Value
	}
	assert.Equal(t, "", byKey["last_editor"])
	assert.Equal(t, "1", byKey["audit_level"], "bundle defaults apply to fanned-out rows")
}

func TestTypeService_AddConstraint_Rejections(t *testing.T) {
	store, svc := newTypeFixture(t)
	ctx := context.Background()

	laptop, err := svc.CreateType(ctx, modeler, "Laptop", modeling.KindAsset)
	require.NoError(t, err)
	v := latestVersion(t, store, laptop.ID)
	_, err = svc.AddConstraint(ctx, modeler, v.ID, modeling.ConstraintHasProperty, "serial", "text")
	require.NoError(t, err)

	_, err = svc.AddConstraint(ctx, worker, v.ID, modeling.ConstraintHasProperty, "price", "number")
	assert.ErrorIs(t, err, modeling.ErrForbidden)

	_, err = svc.AddConstraint(ctx, modeler, v.ID, modeling.ConstraintHasProperty, "serial", "number")
	assert.True(t, modeling.IsValidation(err), "duplicate property keys are rejected")

	_, err = svc.AddConstraint(ctx, modeler, v.ID, modeling.ConstraintCanContain, "Task", "")
	assert.True(t, modeling.IsValidation(err), "assets cannot declare containment")

	_, err = svc.AddConstraint(ctx, modeler, v.ID, modeling.ConstraintUsesPlugin, "ghost", "")
	assert.True(t, modeling.IsValidation(err))

	assert.Len(t, store.ConstraintsOf(v.ID), 1, "rejected additions leave no rows")
}

func TestTypeService_AddConstraint_RollbackOnFanOutFailure(t *testing.T) {
	store, svc := newTypeFixture(t)
	ctx := context.Background()

	laptop, err := svc.CreateType(ctx, modeler, "Laptop", modeling.KindAsset)
	require.NoError(t, err)
	v := latestVersion(t, store, laptop.ID)
	e := seedEntity(store, v.ID, modeling.KindAsset)

	store.PropertyCreateErr = errors.New("disk full")
	_, err = svc.AddConstraint(ctx, modeler, v.ID, modeling.ConstraintHasProperty, "serial", "text")
	require.Error(t, err)

	assert.Empty(t, store.ConstraintsOf(v.ID), "the constraint row rolls back with the fan-out")
	assert.Empty(t, store.PropertiesOf(e.Ref))
}

func TestTypeService_RemoveConstraint_Cascade(t *testing.T) {
	store, svc := newTypeFixture(t)
	ctx := context.Background()

	laptop, err := svc.CreateType(ctx, modeler, "Laptop", modeling.KindAsset)
	require.NoError(t, err)
	v := latestVersion(t, store, laptop.ID)
	e := seedEntity(store, v.ID, modeling.KindAsset)

	added, err := svc.AddConstraint(ctx, modeler, v.ID, modeling.ConstraintHasProperty, "serial", "text")
	require.NoError(t, err)
	_, err = svc.AddConstraint(ctx, modeler, v.ID, modeling.ConstraintMustBeDefined, "serial", "unknown")
	require.NoError(t, err)
	require.Len(t, store.PropertiesOf(e.Ref), 1)

	require.NoError(t, svc.RemoveConstraint(ctx, modeler, added[0].ID))
	assert.Empty(t, store.ConstraintsOf(v.ID), "the default is removed with its property")
	assert.Empty(t, store.PropertiesOf(e.Ref), "entity rows are cleaned up")
}

func TestTypeService_RemoveConstraint_PluginLock(t *testing.T) {
	store, svc := newTypeFixture(t)
	ctx := context.Background()

	laptop, err := svc.CreateType(ctx, modeler, "Laptop", modeling.KindAsset)
	require.NoError(t, err)
	v := latestVersion(t, store, laptop.ID)
	e := seedEntity(store, v.ID, modeling.KindAsset)

	additions, err := svc.AddConstraint(ctx, modeler, v.ID, modeling.ConstraintUsesPlugin, "audit-trail", "")
	require.NoError(t, err)

	var uses, editorProp modeling.Constraint
	for _, a := range additions {
		switch {
		case a.Kind == modeling.ConstraintUsesPlugin:
			uses = a
		case a.Kind == modeling.ConstraintHasProperty && a.Param1 == "last_editor":
			editorProp = a
		}
	}

	err = svc.RemoveConstraint(ctx, modeler, editorProp.ID)
	assert.True(t, modeling.IsValidation(err), "plugin-required properties are locked")

	require.NoError(t, svc.RemoveConstraint(ctx, modeler, uses.ID))
	assert.Empty(t, store.ConstraintsOf(v.ID), "removing the plugin takes its bundle along")
	assert.Empty(t, store.PropertiesOf(e.Ref))
}

func TestTypeService_DeleteType_Cascade(t *testing.T) {
	store, svc := newTypeFixture(t)
	ctx := context.Background()

	laptop, err := svc.CreateType(ctx, modeler, "Laptop", modeling.KindAsset)
	require.NoError(t, err)
	v := latestVersion(t, store, laptop.ID)
	_, err = svc.AddConstraint(ctx, modeler, v.ID, modeling.ConstraintHasProperty, "serial", "text")
	require.NoError(t, err)
	e := seedEntity(store, v.ID, modeling.KindAsset)
	group := store.AddGroup("ops")
	viewer := modeling.Viewer{ID: modeling.NewULID(), TargetRef: e.Ref, GroupID: group, Role: modeling.RoleMaintainer}
	store.Viewers[viewer.ID] = viewer

	require.NoError(t, svc.DeleteType(ctx, modeler, laptop.ID))

	assert.Empty(t, store.Types)
	assert.Empty(t, store.Versions)
	assert.Empty(t, store.Constraints)
	assert.Empty(t, store.Entities)
	assert.Empty(t, store.Properties)
	assert.Empty(t, store.Viewers)

	err = svc.DeleteType(ctx, modeler, laptop.ID)
	assert.ErrorIs(t, err, modeling.ErrNotFound)
}

func TestTypeService_DeleteType_ContainerCascadesToChildren(t *testing.T) {
	store, svc := newTypeFixture(t)
	ctx := context.Background()

	sprint, err := svc.CreateType(ctx, modeler, "Sprint", modeling.KindFrame)
	require.NoError(t, err)
	sprintV := latestVersion(t, store, sprint.ID)
	_, err = svc.AddConstraint(ctx, modeler, sprintV.ID, modeling.ConstraintCanContain, "Task", "")
	require.NoError(t, err)

	task, err := svc.CreateType(ctx, modeler, "Task", modeling.KindSubject)
	require.NoError(t, err)
	taskV := latestVersion(t, store, task.ID)

	frame := seedEntity(store, sprintV.ID, modeling.KindFrame)
	child := seedEntity(store, taskV.ID, modeling.KindSubject)
	child.ParentRef = &frame.Ref
	childProp := modeling.Property{ID: modeling.NewULID(), Key: "title", Value: "cleanup", ParentRef: child.Ref}
	store.Properties[childProp.ID] = childProp

	require.NoError(t, svc.DeleteType(ctx, modeler, sprint.ID))

	// The contained subject goes with its parent, even though it belongs to
	// another type.
	_, err = store.EntityRepo().GetByRef(ctx, child.Ref)
	assert.ErrorIs(t, err, modeling.ErrNotFound)
	assert.Empty(t, store.PropertiesOf(child.Ref))

	// The child's own type and version are untouched.
	_, err = svc.GetType(ctx, worker, task.ID)
	assert.NoError(t, err)
	_, err = store.VersionRepo().Get(ctx, taskV.ID)
	assert.NoError(t, err)
}

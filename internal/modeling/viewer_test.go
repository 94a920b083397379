// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package modeling

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
)

func TestViewerRole_Validate(t *testing.T) {
	for _, r := range []ViewerRole{RoleViewer, RoleEditor, RoleMaintainer} {
		assert.NoError(t, r.Validate())
	}
	assert.ErrorIs(t, ViewerRole("owner").Validate(), ErrInvalidViewerRole)
}

func TestViewerRole_Rank(t *testing.T) {
	assert.Greater(t, RoleMaintainer.Rank(), RoleEditor.Rank())
	assert.Greater(t, RoleEditor.Rank(), RoleViewer.Rank())
	assert.Greater(t, RoleViewer.Rank(), ViewerRole("owner").Rank())
}

func TestCombineViewers_HighestRoleWins(t *testing.T) {
	target := NewULID()
	group := NewULID()
	relations := []Viewer{
		{ID: NewULID(), TargetRef: target, GroupID: group, Role: RoleViewer},
		{ID: NewULID(), TargetRef: target, GroupID: group, Role: RoleEditor},
	}

	c := CombineViewers(relations)
	role, ok := c.Role(group)
	assert.True(t, ok)
	assert.Equal(t, RoleEditor, role)
	assert.Empty(t, c.Viewers)
}

func TestViewerCombinator_Tiers(t *testing.T) {
	target := NewULID()
	maintainer := NewULID()
	editor := NewULID()
	viewer := NewULID()
	stranger := NewULID()

	c := CombineViewers([]Viewer{
		{ID: NewULID(), TargetRef: target, GroupID: maintainer, Role: RoleMaintainer},
		{ID: NewULID(), TargetRef: target, GroupID: editor, Role: RoleEditor},
		{ID: NewULID(), TargetRef: target, GroupID: viewer, Role: RoleViewer},
	})

	assert.True(t, c.CanView([]ulid.ULID{viewer}))
	assert.False(t, c.CanEdit([]ulid.ULID{viewer}))
	assert.True(t, c.CanEdit([]ulid.ULID{editor}))
	assert.False(t, c.CanMaintain([]ulid.ULID{editor}))
	assert.True(t, c.CanMaintain([]ulid.ULID{maintainer}))
	assert.False(t, c.CanView([]ulid.ULID{stranger}))
	assert.False(t, c.CanView(nil))

	// One matching group among several is enough.
	assert.True(t, c.CanEdit([]ulid.ULID{stranger, editor}))
}

func TestViewerCombinator_AllGroupIDs(t *testing.T) {
	target := NewULID()
	a, b := NewULID(), NewULID()
	c := CombineViewers([]Viewer{
		{ID: NewULID(), TargetRef: target, GroupID: a, Role: RoleMaintainer},
		{ID: NewULID(), TargetRef: target, GroupID: b, Role: RoleViewer},
	})
	assert.ElementsMatch(t, []ulid.ULID{a, b}, c.AllGroupIDs())
}

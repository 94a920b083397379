// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package modeling

import (
	"errors"

	"github.com/oklog/ulid/v2"
)

// ViewerRole is the access tier a group holds over one entity.
type ViewerRole string

// Viewer roles, ordered: maintain implies edit implies view.
const (
	RoleViewer     ViewerRole = "view"
	RoleEditor     ViewerRole = "edit"
	RoleMaintainer ViewerRole = "maintain"
)

// ErrInvalidViewerRole indicates an unrecognized viewer role.
var ErrInvalidViewerRole = errors.New("invalid viewer role")

// String returns the string representation of the role.
func (r ViewerRole) String() string {
	return string(r)
}

// Validate checks that the role is a known viewer role.
func (r ViewerRole) Validate() error {
	switch r {
	case RoleViewer, RoleEditor, RoleMaintainer:
		return nil
	default:
		return ErrInvalidViewerRole
	}
}

// Rank returns the ordering of the role; higher ranks imply lower ones.
func (r ViewerRole) Rank() int {
	switch r {
	case RoleMaintainer:
		return 3
	case RoleEditor:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// Viewer grants a group one role over one entity. A group holds at most one
// role per entity.
type Viewer struct {
	ID        ulid.ULID
	TargetRef ulid.ULID
	GroupID   ulid.ULID
	Role      ViewerRole
}

// Group is a named user group referenced by viewer relations.
type Group struct {
	ID   ulid.ULID
	Name string
}

// ViewerCombinator is the derived, non-persisted resolution of an entity's
// viewer relations into three disjoint group-id sets per role tier.
type ViewerCombinator struct {
	Maintainers map[ulid.ULID]struct{}
	Editors     map[ulid.ULID]struct{}
	Viewers     map[ulid.ULID]struct{}
}

// CombineViewers folds raw viewer relations into a ViewerCombinator. A group
// appearing with several roles keeps only its highest.
func CombineViewers(relations []Viewer) ViewerCombinator {
	highest := make(map[ulid.ULID]ViewerRole, len(relations))
	for _, v := range relations {
		if cur, ok := highest[v.GroupID]; !ok || v.Role.Rank() > cur.Rank() {
			highest[v.GroupID] = v.Role
		}
	}
	c := ViewerCombinator{
		Maintainers: make(map[ulid.ULID]struct{}),
		Editors:     make(map[ulid.ULID]struct{}),
		Viewers:     make(map[ulid.ULID]struct{}),
	}
	for groupID, role := range highest {
		switch role {
		case RoleMaintainer:
			c.Maintainers[groupID] = struct{}{}
		case RoleEditor:
			c.Editors[groupID] = struct{}{}
		case RoleViewer:
			c.Viewers[groupID] = struct{}{}
		}
	}
	return c
}

// Role returns the role held by the group, if any.
func (c ViewerCombinator) Role(groupID ulid.ULID) (ViewerRole, bool) {
	if _, ok := c.Maintainers[groupID]; ok {
		return RoleMaintainer, true
	}
	if _, ok := c.Editors[groupID]; ok {
		return RoleEditor, true
	}
	if _, ok := c.Viewers[groupID]; ok {
		return RoleViewer, true
	}
	return "", false
}

// AllGroupIDs returns every group id holding any role.
func (c ViewerCombinator) AllGroupIDs() []ulid.ULID {
	ids := make([]ulid.ULID, 0, len(c.Maintainers)+len(c.Editors)+len(c.Viewers))
	for id := range c.Maintainers {
		ids = append(ids, id)
	}
	for id := range c.Editors {
		ids = append(ids, id)
	}
	for id := range c.Viewers {
		ids = append(ids, id)
	}
	return ids
}

// CanView reports whether any of the given groups holds at least view access.
func (c ViewerCombinator) CanView(groupIDs []ulid.ULID) bool {
	return c.atLeast(groupIDs, RoleViewer)
}

// CanEdit reports whether any of the given groups holds at least edit access.
func (c ViewerCombinator) CanEdit(groupIDs []ulid.ULID) bool {
	return c.atLeast(groupIDs, RoleEditor)
}

// CanMaintain reports whether any of the given groups holds maintain access.
func (c ViewerCombinator) CanMaintain(groupIDs []ulid.ULID) bool {
	return c.atLeast(groupIDs, RoleMaintainer)
}

func (c ViewerCombinator) atLeast(groupIDs []ulid.ULID, min ViewerRole) bool {
	for _, id := range groupIDs {
		if role, ok := c.Role(id); ok && role.Rank() >= min.Rank() {
			return true
		}
	}
	return false
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/EdgarDorausch/flimey-core/internal/modeling"
)

// ViewerRepository implements modeling.ViewerRepository using PostgreSQL.
type ViewerRepository struct {
	pool poolIface
}

// NewViewerRepository creates a new ViewerRepository.
func NewViewerRepository(pool poolIface) *ViewerRepository {
	return &ViewerRepository{pool: pool}
}

// Create persists a new viewer relation.
func (r *ViewerRepository) Create(ctx context.Context, v *modeling.Viewer) error {
	_, err := querierFromCtx(ctx, r.pool).Exec(ctx, `
		INSERT INTO viewers (id, target_ref, group_id, role)
		VALUES ($1, $2, $3, $4)
	`, v.ID.String(), v.TargetRef.String(), v.GroupID.String(), v.Role.String())
	if err != nil {
		return oops.Code("VIEWER_CREATE_FAILED").
			With("target_ref", v.TargetRef.String()).
			With("group_id", v.GroupID.String()).
			Wrap(err)
	}
	return nil
}

// ListByTarget returns all viewer relations of an entity.
func (r *ViewerRepository) ListByTarget(ctx context.Context, targetRef ulid.ULID) ([]modeling.Viewer, error) {
	rows, err := querierFromCtx(ctx, r.pool).Query(ctx, `
		SELECT id, target_ref, group_id, role
		FROM viewers WHERE target_ref = $1 ORDER BY id
	`, targetRef.String())
	if err != nil {
		return nil, oops.Code("VIEWER_QUERY_FAILED").With("target_ref", targetRef.String()).Wrap(err)
	}
	defer rows.Close()

	viewers := make([]modeling.Viewer, 0)
	for rows.Next() {
		v, err := scanViewer(rows)
		if err != nil {
			return nil, oops.Code("VIEWER_SCAN_FAILED").Wrap(err)
		}
		viewers = append(viewers, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("VIEWER_ITERATE_FAILED").Wrap(err)
	}
	return viewers, nil
}

// Delete removes a viewer relation by ID.
func (r *ViewerRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := querierFromCtx(ctx, r.pool).Exec(ctx, `DELETE FROM viewers WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("VIEWER_DELETE_FAILED").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("VIEWER_NOT_FOUND").With("id", id.String()).Wrap(modeling.ErrNotFound)
	}
	return nil
}

// DeleteByTarget removes all viewer relations of an entity.
func (r *ViewerRepository) DeleteByTarget(ctx context.Context, targetRef ulid.ULID) error {
	_, err := querierFromCtx(ctx, r.pool).Exec(ctx, `DELETE FROM viewers WHERE target_ref = $1`, targetRef.String())
	if err != nil {
		return oops.Code("VIEWER_DELETE_FAILED").With("target_ref", targetRef.String()).Wrap(err)
	}
	return nil
}

// scanViewer scans a viewer relation from a row.
func scanViewer(row pgx.Row) (*modeling.Viewer, error) {
	var v modeling.Viewer
	var idStr, targetRefStr, groupIDStr, roleStr string
	if err := row.Scan(&idStr, &targetRefStr, &groupIDStr, &roleStr); err != nil {
		return nil, err
	}
	id, err := parseULID(idStr, "id")
	if err != nil {
		return nil, err
	}
	targetRef, err := parseULID(targetRefStr, "target_ref")
	if err != nil {
		return nil, err
	}
	groupID, err := parseULID(groupIDStr, "group_id")
	if err != nil {
		return nil, err
	}
	v.ID = id
	v.TargetRef = targetRef
	v.GroupID = groupID
	v.Role = modeling.ViewerRole(roleStr)
	return &v, nil
}

// Compile-time interface check.
var _ modeling.ViewerRepository = (*ViewerRepository)(nil)

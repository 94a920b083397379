// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/EdgarDorausch/flimey-core/internal/modeling"
)

// GroupRepository implements modeling.GroupRepository using PostgreSQL.
type GroupRepository struct {
	pool poolIface
}

// NewGroupRepository creates a new GroupRepository.
func NewGroupRepository(pool poolIface) *GroupRepository {
	return &GroupRepository{pool: pool}
}

// GetByName retrieves a group by its unique name.
func (r *GroupRepository) GetByName(ctx context.Context, name string) (*modeling.Group, error) {
	row := querierFromCtx(ctx, r.pool).QueryRow(ctx, `
		SELECT id, name FROM groups WHERE name = $1
	`, name)
	g, err := scanGroup(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("GROUP_NOT_FOUND").With("name", name).Wrap(modeling.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("GROUP_GET_FAILED").With("name", name).Wrap(err)
	}
	return g, nil
}

// List returns all groups.
func (r *GroupRepository) List(ctx context.Context) ([]modeling.Group, error) {
	rows, err := querierFromCtx(ctx, r.pool).Query(ctx, `SELECT id, name FROM groups ORDER BY name`)
	if err != nil {
		return nil, oops.Code("GROUP_QUERY_FAILED").Wrap(err)
	}
	defer rows.Close()

	groups := make([]modeling.Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, oops.Code("GROUP_SCAN_FAILED").Wrap(err)
		}
		groups = append(groups, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("GROUP_ITERATE_FAILED").Wrap(err)
	}
	return groups, nil
}

// scanGroup scans a group from a row.
func scanGroup(row pgx.Row) (*modeling.Group, error) {
	var g modeling.Group
	var idStr string
	if err := row.Scan(&idStr, &g.Name); err != nil {
		return nil, err
	}
	id, err := parseULID(idStr, "id")
	if err != nil {
		return nil, err
	}
	g.ID = id
	return &g, nil
}

// Compile-time interface check.
var _ modeling.GroupRepository = (*GroupRepository)(nil)

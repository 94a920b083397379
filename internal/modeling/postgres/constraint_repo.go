// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/EdgarDorausch/flimey-core/internal/modeling"
)

// ConstraintRepository implements modeling.ConstraintRepository using
// PostgreSQL.
type ConstraintRepository struct {
	pool poolIface
}

// NewConstraintRepository creates a new ConstraintRepository.
func NewConstraintRepository(pool poolIface) *ConstraintRepository {
	return &ConstraintRepository{pool: pool}
}

// Create persists a new constraint.
func (r *ConstraintRepository) Create(ctx context.Context, c *modeling.Constraint) error {
	_, err := querierFromCtx(ctx, r.pool).Exec(ctx, `
		INSERT INTO constraints (id, kind, param1, param2, by_plugin, type_version_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID.String(), c.Kind.String(), c.Param1, c.Param2, c.ByPlugin, c.TypeVersionID.String())
	if err != nil {
		return oops.Code("CONSTRAINT_CREATE_FAILED").With("id", c.ID.String()).Wrap(err)
	}
	return nil
}

// Get retrieves a constraint by ID.
func (r *ConstraintRepository) Get(ctx context.Context, id ulid.ULID) (*modeling.Constraint, error) {
	row := querierFromCtx(ctx, r.pool).QueryRow(ctx, `
		SELECT id, kind, param1, param2, by_plugin, type_version_id
		FROM constraints WHERE id = $1
	`, id.String())
	c, err := scanConstraint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("CONSTRAINT_NOT_FOUND").With("id", id.String()).Wrap(modeling.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("CONSTRAINT_GET_FAILED").With("id", id.String()).Wrap(err)
	}
	return c, nil
}

// ListByVersion returns all constraints of a type version in declaration
// order.
func (r *ConstraintRepository) ListByVersion(ctx context.Context, versionID ulid.ULID) ([]modeling.Constraint, error) {
	rows, err := querierFromCtx(ctx, r.pool).Query(ctx, `
		SELECT id, kind, param1, param2, by_plugin, type_version_id
		FROM constraints WHERE type_version_id = $1 ORDER BY id
	`, versionID.String())
	if err != nil {
		return nil, oops.Code("CONSTRAINT_QUERY_FAILED").With("version_id", versionID.String()).Wrap(err)
	}
	defer rows.Close()

	constraints := make([]modeling.Constraint, 0)
	for rows.Next() {
		c, err := scanConstraint(rows)
		if err != nil {
			return nil, oops.Code("CONSTRAINT_SCAN_FAILED").Wrap(err)
		}
		constraints = append(constraints, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("CONSTRAINT_ITERATE_FAILED").Wrap(err)
	}
	return constraints, nil
}

// Delete removes a constraint by ID.
func (r *ConstraintRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := querierFromCtx(ctx, r.pool).Exec(ctx, `DELETE FROM constraints WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("CONSTRAINT_DELETE_FAILED").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("CONSTRAINT_NOT_FOUND").With("id", id.String()).Wrap(modeling.ErrNotFound)
	}
	return nil
}

// DeleteByVersion removes all constraints of a type version.
func (r *ConstraintRepository) DeleteByVersion(ctx context.Context, versionID ulid.ULID) error {
	_, err := querierFromCtx(ctx, r.pool).Exec(ctx, `DELETE FROM constraints WHERE type_version_id = $1`, versionID.String())
	if err != nil {
		return oops.Code("CONSTRAINT_DELETE_FAILED").With("version_id", versionID.String()).Wrap(err)
	}
	return nil
}

// scanConstraint scans a constraint from a row.
func scanConstraint(row pgx.Row) (*modeling.Constraint, error) {
	var c modeling.Constraint
	var idStr, kindStr, versionIDStr string
	if err := row.Scan(&idStr, &kindStr, &c.Param1, &c.Param2, &c.ByPlugin, &versionIDStr); err != nil {
		return nil, err
	}
	id, err := parseULID(idStr, "id")
	if err != nil {
		return nil, err
	}
	versionID, err := parseULID(versionIDStr, "type_version_id")
	if err != nil {
		return nil, err
	}
	c.ID = id
	c.Kind = modeling.ConstraintKind(kindStr)
	c.TypeVersionID = versionID
	return &c, nil
}

// Compile-time interface check.
var _ modeling.ConstraintRepository = (*ConstraintRepository)(nil)

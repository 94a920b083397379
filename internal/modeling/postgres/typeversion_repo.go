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

// TypeVersionRepository implements modeling.TypeVersionRepository using
// PostgreSQL.
type TypeVersionRepository struct {
	pool poolIface
}

// NewTypeVersionRepository creates a new TypeVersionRepository.
func NewTypeVersionRepository(pool poolIface) *TypeVersionRepository {
	return &TypeVersionRepository{pool: pool}
}

// Create persists a new type version.
func (r *TypeVersionRepository) Create(ctx context.Context, v *modeling.TypeVersion) error {
	_, err := querierFromCtx(ctx, r.pool).Exec(ctx, `
		INSERT INTO type_versions (id, type_id, version_number, created_at)
		VALUES ($1, $2, $3, $4)
	`, v.ID.String(), v.TypeID.String(), v.VersionNumber, v.CreatedAt)
	if err != nil {
		return oops.Code("VERSION_CREATE_FAILED").With("id", v.ID.String()).Wrap(err)
	}
	return nil
}

// Get retrieves a type version by ID.
func (r *TypeVersionRepository) Get(ctx context.Context, id ulid.ULID) (*modeling.TypeVersion, error) {
	row := querierFromCtx(ctx, r.pool).QueryRow(ctx, `
		SELECT id, type_id, version_number, created_at
		FROM type_versions WHERE id = $1
	`, id.String())
	v, err := scanTypeVersion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("VERSION_NOT_FOUND").With("id", id.String()).Wrap(modeling.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("VERSION_GET_FAILED").With("id", id.String()).Wrap(err)
	}
	return v, nil
}

// ListByType returns all versions of a type ordered by version number.
func (r *TypeVersionRepository) ListByType(ctx context.Context, typeID ulid.ULID) ([]*modeling.TypeVersion, error) {
	rows, err := querierFromCtx(ctx, r.pool).Query(ctx, `
		SELECT id, type_id, version_number, created_at
		FROM type_versions WHERE type_id = $1 ORDER BY version_number
	`, typeID.String())
	if err != nil {
		return nil, oops.Code("VERSION_QUERY_FAILED").With("type_id", typeID.String()).Wrap(err)
	}
	defer rows.Close()

	versions := make([]*modeling.TypeVersion, 0)
	for rows.Next() {
		v, err := scanTypeVersion(rows)
		if err != nil {
			return nil, oops.Code("VERSION_SCAN_FAILED").Wrap(err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("VERSION_ITERATE_FAILED").Wrap(err)
	}
	return versions, nil
}

// LatestByType returns the highest-numbered version of a type.
func (r *TypeVersionRepository) LatestByType(ctx context.Context, typeID ulid.ULID) (*modeling.TypeVersion, error) {
	row := querierFromCtx(ctx, r.pool).QueryRow(ctx, `
		SELECT id, type_id, version_number, created_at
		FROM type_versions WHERE type_id = $1
		ORDER BY version_number DESC LIMIT 1
	`, typeID.String())
	v, err := scanTypeVersion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("VERSION_NOT_FOUND").With("type_id", typeID.String()).Wrap(modeling.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("VERSION_GET_FAILED").With("type_id", typeID.String()).Wrap(err)
	}
	return v, nil
}

// NextVersionNumber returns the next monotonic version number for a type.
func (r *TypeVersionRepository) NextVersionNumber(ctx context.Context, typeID ulid.ULID) (int64, error) {
	var next int64
	err := querierFromCtx(ctx, r.pool).QueryRow(ctx, `
		SELECT COALESCE(MAX(version_number), 0) + 1
		FROM type_versions WHERE type_id = $1
	`, typeID.String()).Scan(&next)
	if err != nil {
		return 0, oops.Code("VERSION_NUMBER_FAILED").With("type_id", typeID.String()).Wrap(err)
	}
	return next, nil
}

// Delete removes a type version by ID.
func (r *TypeVersionRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := querierFromCtx(ctx, r.pool).Exec(ctx, `DELETE FROM type_versions WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("VERSION_DELETE_FAILED").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("VERSION_NOT_FOUND").With("id", id.String()).Wrap(modeling.ErrNotFound)
	}
	return nil
}

// DeleteByType removes all versions of a type.
func (r *TypeVersionRepository) DeleteByType(ctx context.Context, typeID ulid.ULID) error {
	_, err := querierFromCtx(ctx, r.pool).Exec(ctx, `DELETE FROM type_versions WHERE type_id = $1`, typeID.String())
	if err != nil {
		return oops.Code("VERSION_DELETE_FAILED").With("type_id", typeID.String()).Wrap(err)
	}
	return nil
}

// scanTypeVersion scans a type version from a row.
func scanTypeVersion(row pgx.Row) (*modeling.TypeVersion, error) {
	var v modeling.TypeVersion
	var idStr, typeIDStr string
	if err := row.Scan(&idStr, &typeIDStr, &v.VersionNumber, &v.CreatedAt); err != nil {
		return nil, err
	}
	id, err := parseULID(idStr, "id")
	if err != nil {
		return nil, err
	}
	typeID, err := parseULID(typeIDStr, "type_id")
	if err != nil {
		return nil, err
	}
	v.ID = id
	v.TypeID = typeID
	return &v, nil
}

// Compile-time interface check.
var _ modeling.TypeVersionRepository = (*TypeVersionRepository)(nil)

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/EdgarDorausch/flimey-core/internal/modeling"
)

// EntityTypeRepository implements modeling.EntityTypeRepository using
// PostgreSQL.
type EntityTypeRepository struct {
	pool poolIface
}

// NewEntityTypeRepository creates a new EntityTypeRepository.
func NewEntityTypeRepository(pool poolIface) *EntityTypeRepository {
	return &EntityTypeRepository{pool: pool}
}

// Create persists a new entity type.
func (r *EntityTypeRepository) Create(ctx context.Context, t *modeling.EntityType) error {
	_, err := querierFromCtx(ctx, r.pool).Exec(ctx, `
		INSERT INTO entity_types (id, name, kind, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, t.ID.String(), t.Name, t.Kind.String(), t.Active, t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("TYPE_DUPLICATE_NAME").
				With("name", t.Name).
				Wrapf(err, "entity type %q already exists", t.Name)
		}
		return oops.Code("TYPE_CREATE_FAILED").With("id", t.ID.String()).Wrap(err)
	}
	return nil
}

// Get retrieves an entity type by ID.
func (r *EntityTypeRepository) Get(ctx context.Context, id ulid.ULID) (*modeling.EntityType, error) {
	row := querierFromCtx(ctx, r.pool).QueryRow(ctx, `
		SELECT id, name, kind, active, created_at
		FROM entity_types WHERE id = $1
	`, id.String())
	t, err := scanEntityType(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TYPE_NOT_FOUND").With("id", id.String()).Wrap(modeling.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TYPE_GET_FAILED").With("id", id.String()).Wrap(err)
	}
	return t, nil
}

// GetByName retrieves an entity type by its unique name.
func (r *EntityTypeRepository) GetByName(ctx context.Context, name string) (*modeling.EntityType, error) {
	row := querierFromCtx(ctx, r.pool).QueryRow(ctx, `
		SELECT id, name, kind, active, created_at
		FROM entity_types WHERE name = $1
	`, name)
	t, err := scanEntityType(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TYPE_NOT_FOUND").With("name", name).Wrap(modeling.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TYPE_GET_FAILED").With("name", name).Wrap(err)
	}
	return t, nil
}

// List returns all entity types, optionally filtered by kind.
func (r *EntityTypeRepository) List(ctx context.Context, kind modeling.EntityKind) ([]*modeling.EntityType, error) {
	q := querierFromCtx(ctx, r.pool)
	var rows pgx.Rows
	var err error
	if kind == "" {
		rows, err = q.Query(ctx, `
			SELECT id, name, kind, active, created_at
			FROM entity_types ORDER BY name
		`)
	} else {
		rows, err = q.Query(ctx, `
			SELECT id, name, kind, active, created_at
			FROM entity_types WHERE kind = $1 ORDER BY name
		`, kind.String())
	}
	if err != nil {
		return nil, oops.Code("TYPE_QUERY_FAILED").With("kind", kind.String()).Wrap(err)
	}
	defer rows.Close()

	types := make([]*modeling.EntityType, 0)
	for rows.Next() {
		t, err := scanEntityType(rows)
		if err != nil {
			return nil, oops.Code("TYPE_SCAN_FAILED").Wrap(err)
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("TYPE_ITERATE_FAILED").Wrap(err)
	}
	return types, nil
}

// Update modifies an existing entity type.
func (r *EntityTypeRepository) Update(ctx context.Context, t *modeling.EntityType) error {
	result, err := querierFromCtx(ctx, r.pool).Exec(ctx, `
		UPDATE entity_types SET name = $2, active = $3 WHERE id = $1
	`, t.ID.String(), t.Name, t.Active)
	if err != nil {
		return oops.Code("TYPE_UPDATE_FAILED").With("id", t.ID.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("TYPE_NOT_FOUND").With("id", t.ID.String()).Wrap(modeling.ErrNotFound)
	}
	return nil
}

// Delete removes an entity type by ID.
func (r *EntityTypeRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := querierFromCtx(ctx, r.pool).Exec(ctx, `DELETE FROM entity_types WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("TYPE_DELETE_FAILED").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("TYPE_NOT_FOUND").With("id", id.String()).Wrap(modeling.ErrNotFound)
	}
	return nil
}

// scanEntityType scans an entity type from a row.
func scanEntityType(row pgx.Row) (*modeling.EntityType, error) {
	var t modeling.EntityType
	var idStr, kindStr string
	if err := row.Scan(&idStr, &t.Name, &kindStr, &t.Active, &t.CreatedAt); err != nil {
		return nil, err
	}
	id, err := parseULID(idStr, "id")
	if err != nil {
		return nil, err
	}
	t.ID = id
	t.Kind = modeling.EntityKind(kindStr)
	return &t, nil
}

// Compile-time interface check.
var _ modeling.EntityTypeRepository = (*EntityTypeRepository)(nil)

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

// EntityRepository implements modeling.EntityRepository using PostgreSQL.
// All four entity kinds share one table; the kind column is the variant tag.
type EntityRepository struct {
	pool poolIface
}

// NewEntityRepository creates a new EntityRepository.
func NewEntityRepository(pool poolIface) *EntityRepository {
	return &EntityRepository{pool: pool}
}

// Create persists a new entity.
func (r *EntityRepository) Create(ctx context.Context, e *modeling.Entity) error {
	_, err := querierFromCtx(ctx, r.pool).Exec(ctx, `
		INSERT INTO entities (id, ref, type_version_id, kind, state, parent_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID.String(), e.Ref.String(), e.TypeVersionID.String(), e.Kind.String(),
		e.State.String(), ulidToStringPtr(e.ParentRef), e.CreatedAt)
	if err != nil {
		return oops.Code("ENTITY_CREATE_FAILED").With("ref", e.Ref.String()).Wrap(err)
	}
	return nil
}

// GetByRef retrieves an entity by its shared generic row id.
func (r *EntityRepository) GetByRef(ctx context.Context, ref ulid.ULID) (*modeling.Entity, error) {
	row := querierFromCtx(ctx, r.pool).QueryRow(ctx, `
		SELECT id, ref, type_version_id, kind, state, parent_ref, created_at
		FROM entities WHERE ref = $1
	`, ref.String())
	e, err := scanEntity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ENTITY_NOT_FOUND").With("ref", ref.String()).Wrap(modeling.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ENTITY_GET_FAILED").With("ref", ref.String()).Wrap(err)
	}
	return e, nil
}

// ListByVersion returns all entities created against a type version.
func (r *EntityRepository) ListByVersion(ctx context.Context, versionID ulid.ULID) ([]*modeling.Entity, error) {
	return r.list(ctx, `
		SELECT id, ref, type_version_id, kind, state, parent_ref, created_at
		FROM entities WHERE type_version_id = $1 ORDER BY id
	`, versionID.String())
}

// ListChildren returns the entities contained in the given parent.
func (r *EntityRepository) ListChildren(ctx context.Context, parentRef ulid.ULID) ([]*modeling.Entity, error) {
	return r.list(ctx, `
		SELECT id, ref, type_version_id, kind, state, parent_ref, created_at
		FROM entities WHERE parent_ref = $1 ORDER BY id
	`, parentRef.String())
}

func (r *EntityRepository) list(ctx context.Context, sql string, args ...any) ([]*modeling.Entity, error) {
	rows, err := querierFromCtx(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, oops.Code("ENTITY_QUERY_FAILED").Wrap(err)
	}
	defer rows.Close()

	entities := make([]*modeling.Entity, 0)
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, oops.Code("ENTITY_SCAN_FAILED").Wrap(err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ENTITY_ITERATE_FAILED").Wrap(err)
	}
	return entities, nil
}

// UpdateState changes an entity's lifecycle state.
func (r *EntityRepository) UpdateState(ctx context.Context, ref ulid.ULID, state modeling.EntityState) error {
	result, err := querierFromCtx(ctx, r.pool).Exec(ctx, `
		UPDATE entities SET state = $2 WHERE ref = $1
	`, ref.String(), state.String())
	if err != nil {
		return oops.Code("ENTITY_UPDATE_FAILED").With("ref", ref.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ENTITY_NOT_FOUND").With("ref", ref.String()).Wrap(modeling.ErrNotFound)
	}
	return nil
}

// Delete removes an entity by ref.
func (r *EntityRepository) Delete(ctx context.Context, ref ulid.ULID) error {
	result, err := querierFromCtx(ctx, r.pool).Exec(ctx, `DELETE FROM entities WHERE ref = $1`, ref.String())
	if err != nil {
		return oops.Code("ENTITY_DELETE_FAILED").With("ref", ref.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ENTITY_NOT_FOUND").With("ref", ref.String()).Wrap(modeling.ErrNotFound)
	}
	return nil
}

// DeleteByVersion removes all entities of a type version.
func (r *EntityRepository) DeleteByVersion(ctx context.Context, versionID ulid.ULID) error {
	_, err := querierFromCtx(ctx, r.pool).Exec(ctx, `DELETE FROM entities WHERE type_version_id = $1`, versionID.String())
	if err != nil {
		return oops.Code("ENTITY_DELETE_FAILED").With("version_id", versionID.String()).Wrap(err)
	}
	return nil
}

// scanEntity scans an entity from a row.
func scanEntity(row pgx.Row) (*modeling.Entity, error) {
	var e modeling.Entity
	var idStr, refStr, versionIDStr, kindStr, stateStr string
	var parentRefStr *string
	if err := row.Scan(&idStr, &refStr, &versionIDStr, &kindStr, &stateStr, &parentRefStr, &e.CreatedAt); err != nil {
		return nil, err
	}
	id, err := parseULID(idStr, "id")
	if err != nil {
		return nil, err
	}
	ref, err := parseULID(refStr, "ref")
	if err != nil {
		return nil, err
	}
	versionID, err := parseULID(versionIDStr, "type_version_id")
	if err != nil {
		return nil, err
	}
	parentRef, err := parseOptionalULID(parentRefStr, "parent_ref")
	if err != nil {
		return nil, err
	}
	e.ID = id
	e.Ref = ref
	e.TypeVersionID = versionID
	e.Kind = modeling.EntityKind(kindStr)
	e.State = modeling.EntityState(stateStr)
	e.ParentRef = parentRef
	return &e, nil
}

// Compile-time interface check.
var _ modeling.EntityRepository = (*EntityRepository)(nil)

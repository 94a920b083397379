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

// PropertyRepository implements modeling.PropertyRepository using PostgreSQL.
type PropertyRepository struct {
	pool poolIface
}

// NewPropertyRepository creates a new PropertyRepository.
func NewPropertyRepository(pool poolIface) *PropertyRepository {
	return &PropertyRepository{pool: pool}
}

// Create persists a new property.
func (r *PropertyRepository) Create(ctx context.Context, p *modeling.Property) error {
	_, err := querierFromCtx(ctx, r.pool).Exec(ctx, `
		INSERT INTO properties (id, key, value, parent_ref)
		VALUES ($1, $2, $3, $4)
	`, p.ID.String(), p.Key, p.Value, p.ParentRef.String())
	if err != nil {
		return oops.Code("PROPERTY_CREATE_FAILED").
			With("parent_ref", p.ParentRef.String()).
			With("key", p.Key).
			Wrap(err)
	}
	return nil
}

// ListByParent returns all properties of an entity. Property rows carry
// monotonic ids, so ordering by id reproduces creation order.
func (r *PropertyRepository) ListByParent(ctx context.Context, parentRef ulid.ULID) ([]modeling.Property, error) {
	rows, err := querierFromCtx(ctx, r.pool).Query(ctx, `
		SELECT id, key, value, parent_ref
		FROM properties WHERE parent_ref = $1 ORDER BY id
	`, parentRef.String())
	if err != nil {
		return nil, oops.Code("PROPERTY_QUERY_FAILED").With("parent_ref", parentRef.String()).Wrap(err)
	}
	defer rows.Close()

	props := make([]modeling.Property, 0)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, oops.Code("PROPERTY_SCAN_FAILED").Wrap(err)
		}
		props = append(props, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("PROPERTY_ITERATE_FAILED").Wrap(err)
	}
	return props, nil
}

// Update overwrites a property's value.
func (r *PropertyRepository) Update(ctx context.Context, p *modeling.Property) error {
	result, err := querierFromCtx(ctx, r.pool).Exec(ctx, `
		UPDATE properties SET value = $2 WHERE id = $1
	`, p.ID.String(), p.Value)
	if err != nil {
		return oops.Code("PROPERTY_UPDATE_FAILED").With("id", p.ID.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("PROPERTY_NOT_FOUND").With("id", p.ID.String()).Wrap(modeling.ErrNotFound)
	}
	return nil
}

// DeleteByParent removes all properties of an entity.
func (r *PropertyRepository) DeleteByParent(ctx context.Context, parentRef ulid.ULID) error {
	_, err := querierFromCtx(ctx, r.pool).Exec(ctx, `
		DELETE FROM properties WHERE parent_ref = $1
	`, parentRef.String())
	if err != nil {
		return oops.Code("PROPERTY_DELETE_FAILED").With("parent_ref", parentRef.String()).Wrap(err)
	}
	return nil
}

// DeleteByParentAndKey removes the property with the given key from an entity.
func (r *PropertyRepository) DeleteByParentAndKey(ctx context.Context, parentRef ulid.ULID, key string) error {
	_, err := querierFromCtx(ctx, r.pool).Exec(ctx, `
		DELETE FROM properties WHERE parent_ref = $1 AND key = $2
	`, parentRef.String(), key)
	if err != nil {
		return oops.Code("PROPERTY_DELETE_FAILED").
			With("parent_ref", parentRef.String()).
			With("key", key).
			Wrap(err)
	}
	return nil
}

// scanProperty scans a property from a row.
func scanProperty(row pgx.Row) (*modeling.Property, error) {
	var p modeling.Property
	var idStr, parentRefStr string
	if err := row.Scan(&idStr, &p.Key, &p.Value, &parentRefStr); err != nil {
		return nil, err
	}
	id, err := parseULID(idStr, "id")
	if err != nil {
		return nil, err
	}
	parentRef, err := parseULID(parentRefStr, "parent_ref")
	if err != nil {
		return nil, err
	}
	p.ID = id
	p.ParentRef = parentRef
	return &p, nil
}

// Compile-time interface check.
var _ modeling.PropertyRepository = (*PropertyRepository)(nil)

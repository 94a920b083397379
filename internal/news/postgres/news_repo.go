// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

// Package postgres implements the news repository on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/EdgarDorausch/flimey-core/internal/modeling"
	"github.com/EdgarDorausch/flimey-core/internal/news"
)

// poolIface is the subset of *pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewsRepository implements news.Repository using PostgreSQL. The audience is
// stored as a jsonb array of group id strings so feed queries can use the
// jsonb existence operators.
type NewsRepository struct {
	pool poolIface
}

// NewNewsRepository creates a new NewsRepository.
func NewNewsRepository(pool poolIface) *NewsRepository {
	return &NewsRepository{pool: pool}
}

// Append stores one event.
func (r *NewsRepository) Append(ctx context.Context, e modeling.NewsEvent) error {
	audience := make([]string, 0, len(e.Audience))
	for _, id := range e.Audience {
		audience = append(audience, id.String())
	}
	audienceJSON, err := json.Marshal(audience)
	if err != nil {
		return oops.Code("EVENT_ENCODE_FAILED").Wrap(err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO news_events (id, target_ref, kind, audience, description, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID.String(), e.TargetRef.String(), string(e.Kind), audienceJSON, e.Description, e.OccurredAt)
	if err != nil {
		return oops.Code("EVENT_APPEND_FAILED").With("target_ref", e.TargetRef.String()).Wrap(err)
	}
	return nil
}

// ListForGroups returns the newest events visible to any of the given groups.
func (r *NewsRepository) ListForGroups(ctx context.Context, groupIDs []ulid.ULID, limit int) ([]modeling.NewsEvent, error) {
	ids := make([]string, 0, len(groupIDs))
	for _, id := range groupIDs {
		ids = append(ids, id.String())
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, target_ref, kind, audience, description, occurred_at
		FROM news_events
		WHERE audience ?| $1
		ORDER BY id DESC
		LIMIT $2
	`, ids, limit)
	if err != nil {
		return nil, oops.Code("EVENT_QUERY_FAILED").Wrap(err)
	}
	defer rows.Close()

	events := make([]modeling.NewsEvent, 0)
	for rows.Next() {
		var e modeling.NewsEvent
		var idStr, targetRefStr, kindStr string
		var audienceJSON []byte
		if err := rows.Scan(&idStr, &targetRefStr, &kindStr, &audienceJSON, &e.Description, &e.OccurredAt); err != nil {
			return nil, oops.Code("EVENT_SCAN_FAILED").Wrap(err)
		}

		id, err := ulid.Parse(idStr)
		if err != nil {
			return nil, oops.Code("EVENT_SCAN_FAILED").With("id", idStr).Wrap(err)
		}
		targetRef, err := ulid.Parse(targetRefStr)
		if err != nil {
			return nil, oops.Code("EVENT_SCAN_FAILED").With("target_ref", targetRefStr).Wrap(err)
		}

		var audience []string
		if err := json.Unmarshal(audienceJSON, &audience); err != nil {
			return nil, oops.Code("EVENT_DECODE_FAILED").Wrap(err)
		}
		groupIDs := make([]ulid.ULID, 0, len(audience))
		for _, s := range audience {
			gid, err := ulid.Parse(s)
			if err != nil {
				return nil, oops.Code("EVENT_DECODE_FAILED").With("group_id", s).Wrap(err)
			}
			groupIDs = append(groupIDs, gid)
		}

		e.ID = id
		e.TargetRef = targetRef
		e.Kind = modeling.EventKind(kindStr)
		e.Audience = groupIDs
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("EVENT_ITERATE_FAILED").Wrap(err)
	}
	return events, nil
}

// DeleteByTarget removes all events about an entity.
func (r *NewsRepository) DeleteByTarget(ctx context.Context, targetRef ulid.ULID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM news_events WHERE target_ref = $1`, targetRef.String())
	if err != nil {
		return oops.Code("EVENT_DELETE_FAILED").With("target_ref", targetRef.String()).Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ news.Repository = (*NewsRepository)(nil)

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

// Package news records domain events and serves per-group notification feeds.
package news

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/EdgarDorausch/flimey-core/internal/modeling"
)

// Repository persists news events.
type Repository interface {
	// Append stores one event.
	Append(ctx context.Context, e modeling.NewsEvent) error

	// ListForGroups returns the newest events visible to any of the given
	// groups, most recent first, at most limit entries.
	ListForGroups(ctx context.Context, groupIDs []ulid.ULID, limit int) ([]modeling.NewsEvent, error)

	// DeleteByTarget removes all events about an entity.
	DeleteByTarget(ctx context.Context, targetRef ulid.ULID) error
}

// Service is the notification feed facade. It implements
// modeling.EventEmitter so mutations publish straight into the feed.
type Service struct {
	repo Repository
}

// NewService creates a news service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Emit implements modeling.EventEmitter.
func (s *Service) Emit(ctx context.Context, e modeling.NewsEvent) error {
	if err := s.repo.Append(ctx, e); err != nil {
		return oops.In("news").Code("EVENT_APPEND_FAILED").Wrap(err)
	}
	return nil
}

// DefaultFeedLimit bounds feed queries that do not name their own limit.
const DefaultFeedLimit = 50

// Feed returns the newest events visible to the ticket's groups.
func (s *Service) Feed(ctx context.Context, ticket modeling.Ticket, limit int) ([]modeling.NewsEvent, error) {
	if err := ticket.AssertWorker(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	groupIDs := ticket.GroupIDs()
	if len(groupIDs) == 0 {
		return []modeling.NewsEvent{}, nil
	}
	events, err := s.repo.ListForGroups(ctx, groupIDs, limit)
	if err != nil {
		return nil, oops.In("news").Code("FEED_QUERY_FAILED").Wrap(err)
	}
	return events, nil
}

// Forget removes all events about an entity. Called when an entity is
// deleted so the feed does not reference dangling targets.
func (s *Service) Forget(ctx context.Context, targetRef ulid.ULID) error {
	if err := s.repo.DeleteByTarget(ctx, targetRef); err != nil {
		return oops.In("news").Code("EVENT_DELETE_FAILED").With("target_ref", targetRef.String()).Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ modeling.EventEmitter = (*Service)(nil)

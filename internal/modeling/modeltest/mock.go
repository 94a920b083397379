// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

// Package modeltest provides test fakes for the modeling services.
package modeltest

import (
	"context"

	"github.com/oklog/ulid/v2"

	"github.com/EdgarDorausch/flimey-core/internal/modeling"
)

// Ticket is a Ticket with fixed tiers and group memberships.
type Ticket struct {
	Worker  bool
	Modeler bool
	Groups  []ulid.ULID
}

// AssertWorker implements modeling.Ticket.
func (t Ticket) AssertWorker() error {
	if t.Worker {
		return nil
	}
	return modeling.ErrForbidden
}

// AssertModeler implements modeling.Ticket.
func (t Ticket) AssertModeler() error {
	if t.Modeler {
		return nil
	}
	return modeling.ErrForbidden
}

// GroupIDs implements modeling.Ticket.
func (t Ticket) GroupIDs() []ulid.ULID {
	return t.Groups
}

// Registry is a PluginRegistry backed by a map.
type Registry struct {
	bundles map[string][]modeling.PluginProperty
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{bundles: make(map[string][]modeling.PluginProperty)}
}

// Register declares a plugin's required property bundle.
func (r *Registry) Register(pluginID string, props ...modeling.PluginProperty) {
	r.bundles[pluginID] = props
}

// RequiredProperties implements modeling.PluginRegistry.
func (r *Registry) RequiredProperties(pluginID string) ([]modeling.PluginProperty, bool) {
	props, ok := r.bundles[pluginID]
	return props, ok
}

// Emitter records emitted events and forgotten targets.
type Emitter struct {
	Events    []modeling.NewsEvent
	Forgotten []ulid.ULID
	Err       error
}

// Emit implements modeling.EventEmitter.
func (e *Emitter) Emit(_ context.Context, event modeling.NewsEvent) error {
	if e.Err != nil {
		return e.Err
	}
	e.Events = append(e.Events, event)
	return nil
}

// Forget implements modeling.EventEmitter.
func (e *Emitter) Forget(_ context.Context, targetRef ulid.ULID) error {
	if e.Err != nil {
		return e.Err
	}
	e.Forgotten = append(e.Forgotten, targetRef)
	// Mirror the real feed: forgotten targets disappear from the record.
	kept := e.Events[:0]
	for _, ev := range e.Events {
		if ev.TargetRef != targetRef {
			kept = append(kept, ev)
		}
	}
	e.Events = kept
	return nil
}

// Verify interfaces are satisfied.
var (
	_ modeling.Ticket         = Ticket{}
	_ modeling.PluginRegistry = (*Registry)(nil)
	_ modeling.EventEmitter   = (*Emitter)(nil)
)

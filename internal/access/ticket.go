// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package access

import (
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/EdgarDorausch/flimey-core/internal/modeling"
)

// Ticket carries a subject's proven capabilities and group memberships into
// the modeling services. It is issued per request and never outlives it.
type Ticket struct {
	subject string
	control *StaticAccessControl
	groups  []ulid.ULID
}

// NewTicket issues a ticket for subject backed by the given access controller.
// groups are the resolved group memberships of the subject.
func NewTicket(subject string, control *StaticAccessControl, groups []ulid.ULID) *Ticket {
	return &Ticket{subject: subject, control: control, groups: groups}
}

// SystemTicket issues a ticket that passes every capability check. Used by
// migrations and internal maintenance tasks.
func SystemTicket(control *StaticAccessControl) *Ticket {
	return &Ticket{subject: SubjectSystem, control: control}
}

// Subject returns the subject this ticket was issued for.
func (t *Ticket) Subject() string {
	return t.subject
}

// AssertWorker verifies the subject may read the model catalogue and work
// with entities.
func (t *Ticket) AssertWorker() error {
	if !t.control.Check(t.subject, "read", "type:*") {
		return oops.In("access").
			Code("WORKER_REQUIRED").
			With("subject", t.subject).
			Wrap(modeling.ErrForbidden)
	}
	return nil
}

// AssertModeler verifies the subject may shape entity types, versions and
// constraints.
func (t *Ticket) AssertModeler() error {
	if !t.control.Check(t.subject, "model", "type:*") {
		return oops.In("access").
			Code("MODELER_REQUIRED").
			With("subject", t.subject).
			Wrap(modeling.ErrForbidden)
	}
	return nil
}

// GroupIDs returns the subject's group memberships.
func (t *Ticket) GroupIDs() []ulid.ULID {
	return t.groups
}

// Compile-time interface check.
var _ modeling.Ticket = (*Ticket)(nil)

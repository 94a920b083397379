// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package modeling

import "github.com/oklog/ulid/v2"

// Ticket is the capability object issued by the authentication collaborator.
// It carries the caller's role tier and resolved group memberships. Services
// assert the required tier before touching any data.
type Ticket interface {
	// AssertWorker fails with ErrForbidden unless the caller holds at least
	// the worker tier (reads and most entity writes).
	AssertWorker() error

	// AssertModeler fails with ErrForbidden unless the caller holds at least
	// the modeler tier (schema mutation).
	AssertModeler() error

	// GroupIDs returns the caller's resolved group memberships.
	GroupIDs() []ulid.ULID
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

// Package access provides authorization for flimey-core.
//
// All parameters use prefixed string format:
//   - subject: "user:alice", "system"
//   - action: "read", "write", "model", "grant"
//   - resource: "type:asset_report", "entity:*"
package access

import "strings"

// SubjectUser prefixes subjects that represent an authenticated user.
const SubjectUser = "user:"

// SubjectSystem is the subject for internal operations. It bypasses all
// permission checks.
const SubjectSystem = "system"

// ParseSubject splits a subject string into prefix and ID.
// Returns ("system", "") for "system".
// Returns ("", subject) if no colon separator found.
func ParseSubject(subject string) (prefix, id string) {
	if subject == "" {
		return "", ""
	}
	if subject == SubjectSystem {
		return SubjectSystem, ""
	}
	parts := strings.SplitN(subject, ":", 2)
	if len(parts) == 1 {
		return "", subject
	}
	return parts[0], parts[1]
}

// UserSubject returns a properly formatted user subject identifier.
// Panics if name is empty, since an empty subject bypasses access control.
func UserSubject(name string) string {
	if name == "" {
		panic("access.UserSubject: empty name would bypass access control")
	}
	return SubjectUser + name
}

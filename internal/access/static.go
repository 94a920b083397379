// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package access

import (
	"sync"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// StaticAccessControl checks permissions against static role definitions.
//
// Thread-safety: roles is immutable after construction and requires no
// synchronization. Only subjects is mutable and protected by mu.
type StaticAccessControl struct {
	roles    map[string][]compiledPermission // roleName → compiled permission patterns (immutable)
	subjects map[string]string               // subjectID → roleName (mutable, protected by mu)
	mu       sync.RWMutex                    // protects subjects only
}

// compiledPermission holds a permission pattern and its compiled glob.
type compiledPermission struct {
	pattern string
	glob    glob.Glob
}

// NewStaticAccessControl creates a new static access controller with default roles.
//
// Panics if default roles contain invalid permission patterns (configuration bug).
func NewStaticAccessControl() *StaticAccessControl {
	ac, err := NewStaticAccessControlWithRoles(DefaultRoles())
	if err != nil {
		// DefaultRoles() patterns are hardcoded and should always be valid.
		// If they fail to compile, it's a code bug that should fail fast.
		panic("invalid permission pattern in DefaultRoles: " + err.Error())
	}
	return ac
}

// NewStaticAccessControlWithRoles creates a new static access controller with custom roles.
//
// Returns error if any permission pattern fails to compile (invalid glob syntax).
func NewStaticAccessControlWithRoles(roles map[string][]string) (*StaticAccessControl, error) {
	compiledRoles := make(map[string][]compiledPermission, len(roles))
	for role, perms := range roles {
		compiled := make([]compiledPermission, 0, len(perms))
		for _, p := range perms {
			// Use ':' as separator for permission patterns
			g, err := glob.Compile(p, ':')
			if err != nil {
				return nil, oops.In("access").
					Code("INVALID_PERMISSION_PATTERN").
					With("role", role).
					With("pattern", p).
					Wrap(err)
			}
			compiled = append(compiled, compiledPermission{pattern: p, glob: g})
		}
		compiledRoles[role] = compiled
	}

	return &StaticAccessControl{
		roles:    compiledRoles,
		subjects: make(map[string]string),
	}, nil
}

// Check returns true if subject is allowed to perform action on resource.
// Returns false for unknown subjects or denied permissions (deny by default).
func (s *StaticAccessControl) Check(subject, action, resource string) bool {
	// System always allowed
	if subject == SubjectSystem {
		return true
	}

	// Empty subject denied
	if subject == "" {
		return false
	}

	s.mu.RLock()
	role := s.subjects[subject]
	s.mu.RUnlock()

	if role == "" {
		return false // Unknown subject
	}

	permissions := s.roles[role]
	if permissions == nil {
		return false
	}

	requested := action + ":" + resource
	for _, perm := range permissions {
		if perm.glob.Match(requested) {
			return true
		}
	}
	return false
}

// AssignRole sets the role for a subject.
// Returns error if subject or role is empty, or role is unknown.
func (s *StaticAccessControl) AssignRole(subject, role string) error {
	if subject == "" {
		return oops.In("access").Code("INVALID_SUBJECT").New("subject cannot be empty")
	}
	if role == "" {
		return oops.In("access").Code("INVALID_ROLE").New("role cannot be empty")
	}
	if _, ok := s.roles[role]; !ok {
		return oops.In("access").Code("UNKNOWN_ROLE").With("role", role).New("unknown role")
	}

	s.mu.Lock()
	s.subjects[subject] = role
	s.mu.Unlock()

	return nil
}

// RevokeRole removes a subject's role assignment.
// Returns error if subject is empty.
func (s *StaticAccessControl) RevokeRole(subject string) error {
	if subject == "" {
		return oops.In("access").Code("INVALID_SUBJECT").New("subject cannot be empty")
	}

	s.mu.Lock()
	delete(s.subjects, subject)
	s.mu.Unlock()

	return nil
}

// GetRole returns the role assigned to a subject, or empty string if none.
func (s *StaticAccessControl) GetRole(subject string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subjects[subject]
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package access

// Permission groups define reusable sets of permissions.
// Roles compose these groups rather than inheriting.

var workerPowers = []string{
	// Read the model catalogue
	"read:type:*",
	"read:version:*",
	"read:constraint:*",

	// Work with entities (group viewers still gate individual rows)
	"read:entity:*",
	"write:entity:*",
	"delete:entity:*",
}

var modelerPowers = []string{
	// Shape entity types, versions and constraints
	"model:type:*",
	"model:version:*",
	"model:constraint:*",
}

var adminPowers = []string{
	// Full access
	"read:**",
	"write:**",
	"delete:**",
	"model:**",
	"grant:**",
}

// DefaultRoles returns the default role definitions.
// Roles compose permission groups explicitly (no inheritance).
func DefaultRoles() map[string][]string {
	return map[string][]string{
		"worker":  workerPowers,
		"modeler": compose(workerPowers, modelerPowers),
		"admin":   compose(workerPowers, modelerPowers, adminPowers),
	}
}

// compose merges multiple permission slices into one.
func compose(groups ...[]string) []string {
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	result := make([]string, 0, total)
	for _, g := range groups {
		result = append(result, g...)
	}
	return result
}

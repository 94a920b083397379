// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

// Package plugin provides declarative property bundles for entity types.
// A plugin names the properties an entity type must carry and their
// defaults. Bundles are described by plugin.yaml manifests.
package plugin

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/EdgarDorausch/flimey-core/internal/modeling"
)

// Manifest represents a plugin.yaml file.
type Manifest struct {
	Name        string         `yaml:"name"`
	Version     string         `yaml:"version"`
	Description string         `yaml:"description,omitempty"`
	Properties  []PropertyDecl `yaml:"properties"`
}

// PropertyDecl declares one property a plugin requires on its host type.
type PropertyDecl struct {
	Key      string `yaml:"key"`
	DataType string `yaml:"data-type"`
	Default  string `yaml:"default,omitempty"`
}

// maxNameLength is the maximum allowed length for plugin names.
const maxNameLength = 64

// namePattern validates plugin names: must start with lowercase letter,
// followed by lowercase letters, digits, or hyphens.
// Cannot end with a hyphen. Single character names are allowed.
var namePattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

// ParseManifest parses and validates a plugin.yaml file.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("manifest data is empty")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if m.Name == "" || !namePattern.MatchString(m.Name) {
		return fmt.Errorf("name %q must start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", m.Name)
	}
	if len(m.Name) > maxNameLength {
		return fmt.Errorf("name must be %d characters or less, got %d", maxNameLength, len(m.Name))
	}

	if m.Version == "" {
		return fmt.Errorf("version is required")
	}
	if _, err := semver.NewVersion(m.Version); err != nil {
		return fmt.Errorf("version %q is not valid semver: %w", m.Version, err)
	}

	if len(m.Properties) == 0 {
		return fmt.Errorf("at least one property is required")
	}
	seen := make(map[string]struct{}, len(m.Properties))
	for i, p := range m.Properties {
		if p.Key == "" {
			return fmt.Errorf("properties[%d]: key is required", i)
		}
		if _, dup := seen[p.Key]; dup {
			return fmt.Errorf("properties[%d]: duplicate key %q", i, p.Key)
		}
		seen[p.Key] = struct{}{}
		if err := modeling.PropertyDataType(p.DataType).Validate(); err != nil {
			return fmt.Errorf("properties[%d]: %w", i, err)
		}
		if p.Default != "" {
			if status := modeling.PropertyDataType(p.DataType).CheckValue(p.Default); !status.OK() {
				return fmt.Errorf("properties[%d]: default %q: %s", i, p.Default, status.Message())
			}
		}
	}

	return nil
}

// RequiredProperties converts the manifest's declarations into the form the
// constraint validators consume.
func (m *Manifest) RequiredProperties() []modeling.PluginProperty {
	props := make([]modeling.PluginProperty, 0, len(m.Properties))
	for _, p := range m.Properties {
		props = append(props, modeling.PluginProperty{
			Key:      p.Key,
			DataType: modeling.PropertyDataType(p.DataType),
			Default:  p.Default,
		})
	}
	return props
}

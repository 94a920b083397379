// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EdgarDorausch/flimey-core/internal/modeling"
)

const validManifest = `
name: audit-trail
version: 1.2.0
description: tracks who touched an entity last
properties:
  - key: last_editor
    data-type: text
  - key: audit_level
    data-type: number
    default: "1"
`

func TestParseManifest(t *testing.T) {
	t.Run("valid manifest", func(t *testing.T) {
		m, err := ParseManifest([]byte(validManifest))
		require.NoError(t, err)
		assert.Equal(t, "audit-trail", m.Name)
		assert.Equal(t, "1.2.0", m.Version)
		require.Len(t, m.Properties, 2)
		assert.Equal(t, "last_editor", m.Properties[0].Key)
		assert.Equal(t, "1", m.Properties[1].Default)
	})

	t.Run("empty data", func(t *testing.T) {
		_, err := ParseManifest(nil)
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := ParseManifest([]byte("name: [unclosed"))
		assert.Error(t, err)
	})
}

func TestManifest_Validate(t *testing.T) {
	valid := func() *Manifest {
		return &Manifest{
			Name:    "audit-trail",
			Version: "1.0.0",
			Properties: []PropertyDecl{
				{Key: "last_editor", DataType: "text"},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Manifest)
		wantErr string
	}{
		{"valid", func(m *Manifest) {}, ""},
		{"empty name", func(m *Manifest) { m.Name = "" }, "name"},
		{"uppercase name", func(m *Manifest) { m.Name = "Audit" }, "name"},
		{"trailing hyphen", func(m *Manifest) { m.Name = "audit-" }, "name"},
		{"missing version", func(m *Manifest) { m.Version = "" }, "version is required"},
		{"bad semver", func(m *Manifest) { m.Version = "one.two" }, "not valid semver"},
		{"no properties", func(m *Manifest) { m.Properties = nil }, "at least one property"},
		{"empty key", func(m *Manifest) { m.Properties[0].Key = "" }, "key is required"},
		{"bad data type", func(m *Manifest) { m.Properties[0].DataType = "blob" }, "data type"},
		{
			"duplicate key",
			func(m *Manifest) {
				m.Properties = append(m.Properties, PropertyDecl{Key: "last_editor", DataType: "text"})
			},
			"duplicate key",
		},
		{
			"default violates data type",
			func(m *Manifest) {
				m.Properties[0].DataType = "number"
				m.Properties[0].Default = "not-a-number"
			},
			"default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid()
			tt.mutate(m)
			err := m.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestManifest_RequiredProperties(t *testing.T) {
	m, err := ParseManifest([]byte(validManifest))
	require.NoError(t, err)

	props := m.RequiredProperties()
	require.Len(t, props, 2)
	assert.Equal(t, modeling.PluginProperty{
		Key:      "last_editor",
		DataType: modeling.DataTypeText,
	}, props[0])
	assert.Equal(t, modeling.PluginProperty{
		Key:      "audit_level",
		DataType: modeling.DataTypeNumber,
		Default:  "1",
	}, props[1])
}

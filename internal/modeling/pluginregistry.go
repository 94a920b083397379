// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package modeling

// PluginProperty is one property a plugin requires of every type version that
// installs it.
type PluginProperty struct {
	Key      string
	DataType PropertyDataType
	Default  string
}

// PluginRegistry resolves plugin ids to their required property bundles.
// Injected into validators so plugins can be added without touching
// validation code.
type PluginRegistry interface {
	// RequiredProperties returns the property bundle for the plugin id.
	// The second return is false for unknown plugins.
	RequiredProperties(pluginID string) ([]PluginProperty, bool)
}

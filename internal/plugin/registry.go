// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package plugin

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/samber/oops"

	"github.com/EdgarDorausch/flimey-core/internal/modeling"
)

// Registry holds the installed property bundles and answers the constraint
// validators' lookups.
//
// Thread-safety: Register and RequiredProperties may be called concurrently.
type Registry struct {
	mu      sync.RWMutex
	bundles map[string]*Manifest
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bundles: make(map[string]*Manifest)}
}

// Register adds a bundle to the registry. Re-registering a name replaces the
// previous bundle.
func (r *Registry) Register(m *Manifest) error {
	if err := m.Validate(); err != nil {
		return oops.In("plugin").Code("INVALID_MANIFEST").With("name", m.Name).Wrap(err)
	}
	r.mu.Lock()
	r.bundles[m.Name] = m
	r.mu.Unlock()
	return nil
}

// RequiredProperties implements modeling.PluginRegistry.
func (r *Registry) RequiredProperties(pluginID string) ([]modeling.PluginProperty, bool) {
	r.mu.RLock()
	m, ok := r.bundles[pluginID]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return m.RequiredProperties(), true
}

// Names returns the registered bundle names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.bundles))
	for name := range r.bundles {
		names = append(names, name)
	}
	return names
}

// LoadDir walks dir for plugin.yaml manifests and registers each bundle.
// Invalid manifests are logged and skipped so one broken bundle does not
// block startup.
func (r *Registry) LoadDir(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return oops.In("plugin").Code("PLUGIN_DIR_UNREADABLE").With("dir", dir).Wrap(err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name(), "plugin.yaml")
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			continue
		}
		if err := ValidateSchema(data); err != nil {
			slog.Warn("skipping plugin with invalid manifest",
				"path", path,
				"error", FormatSchemaError(err))
			continue
		}
		m, err := ParseManifest(data)
		if err != nil {
			slog.Warn("skipping plugin with invalid manifest",
				"path", path,
				"error", err)
			continue
		}
		if err := r.Register(m); err != nil {
			slog.Warn("skipping plugin", "path", path, "error", err)
			continue
		}
		slog.Info("registered plugin", "name", m.Name, "version", m.Version)
	}
	return nil
}

// Compile-time interface check.
var _ modeling.PluginRegistry = (*Registry)(nil)

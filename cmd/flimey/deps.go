// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package main

import (
	"context"
	"io/fs"

	"github.com/EdgarDorausch/flimey-core/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// PoolFactory opens a database connection pool.
	// Default: store.Connect
	PoolFactory func(ctx context.Context, databaseURL string) (DatabasePool, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// PluginFS is the filesystem plugin manifests are loaded from.
	// Default: os.DirFS(".")
	PluginFS fs.FS
}

// DatabasePool interface wraps the methods used by serve from pgxpool.Pool.
type DatabasePool interface {
	Close()
	Ping(ctx context.Context) error
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

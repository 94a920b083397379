// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/EdgarDorausch/flimey-core/internal/config"
	"github.com/EdgarDorausch/flimey-core/internal/logging"
	"github.com/EdgarDorausch/flimey-core/internal/modeling"
	modelpg "github.com/EdgarDorausch/flimey-core/internal/modeling/postgres"
	"github.com/EdgarDorausch/flimey-core/internal/news"
	newspg "github.com/EdgarDorausch/flimey-core/internal/news/postgres"
	"github.com/EdgarDorausch/flimey-core/internal/observability"
	"github.com/EdgarDorausch/flimey-core/internal/plugin"
	"github.com/EdgarDorausch/flimey-core/internal/store"
)

// shutdownTimeout bounds how long serve waits for the observability
// server to drain on exit.
const shutdownTimeout = 5 * time.Second

// Services bundles the wired service graph of a running instance.
type Services struct {
	Types    *modeling.TypeService
	Entities *modeling.EntityService
	News     *news.Service
	Plugins  *plugin.Registry
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Flimey server",
		Long: `Start the Flimey server: connect to PostgreSQL, load the plugin
property bundles and expose metrics and health endpoints.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServeWithDeps(ctx, cmd, nil)
		},
	}

	// Flag names mirror the config file keys so the koanf layering
	// applies without a mapping table.
	cmd.Flags().String("database_url", "", "PostgreSQL connection URL")
	cmd.Flags().String("log.format", "", "log format (json or text)")
	cmd.Flags().String("observability.addr", "", "metrics/health HTTP address")
	cmd.Flags().String("plugins.dir", "", "plugin manifest directory")

	return cmd
}

// runServeWithDeps starts the server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.PoolFactory == nil {
		deps.PoolFactory = func(ctx context.Context, databaseURL string) (DatabasePool, error) {
			return store.Connect(ctx, databaseURL)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if deps.PluginFS == nil {
		deps.PluginFS = os.DirFS(".")
	}

	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("flimey", version, cfg.Log.Format)

	slog.Info("starting flimey",
		"version", version,
		"log_format", cfg.Log.Format,
	)

	pool, err := deps.PoolFactory(ctx, cfg.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	slog.Info("connected to database")

	registry := plugin.NewRegistry()
	if err := registry.LoadDir(deps.PluginFS, cfg.Plugins.Dir); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return oops.Code("PLUGIN_LOAD_FAILED").With("dir", cfg.Plugins.Dir).Wrap(err)
		}
		slog.Warn("plugin directory missing, no property bundles loaded", "dir", cfg.Plugins.Dir)
	}

	// The service graph needs the concrete pool for transactions. Tests
	// inject a mock pool and stop at the wiring boundary.
	if realPool, ok := pool.(*pgxpool.Pool); ok {
		services := buildServices(realPool, registry)
		slog.Info("modeling services ready", "plugins", services.Plugins.Names())
	}

	var obs ObservabilityServer
	var obsErrCh <-chan error
	if cfg.Observability.Enabled {
		obs = deps.ObservabilityServerFactory(cfg.Observability.Addr, func() bool {
			pingCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return pool.Ping(pingCtx) == nil
		})
		obsErrCh, err = obs.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Observability.Addr).Wrap(err)
		}
		slog.Info("observability server started", "addr", obs.Addr())
	}

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-obsErrCh:
		if err != nil {
			return oops.Code("OBSERVABILITY_FAILED").Wrap(err)
		}
	}

	if obs != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := obs.Stop(stopCtx); err != nil {
			slog.Error("observability server shutdown failed", "error", err)
		}
	}

	return nil
}

// buildServices wires the repositories and services onto one pool. The
// news service doubles as the event emitter for entity mutations.
func buildServices(pool *pgxpool.Pool, registry *plugin.Registry) *Services {
	types := modelpg.NewEntityTypeRepository(pool)
	versions := modelpg.NewTypeVersionRepository(pool)
	constraints := modelpg.NewConstraintRepository(pool)
	entities := modelpg.NewEntityRepository(pool)
	properties := modelpg.NewPropertyRepository(pool)
	viewers := modelpg.NewViewerRepository(pool)
	groups := modelpg.NewGroupRepository(pool)
	tx := modelpg.NewTransactor(pool)

	newsSvc := news.NewService(newspg.NewNewsRepository(pool))

	typeSvc := modeling.NewTypeService(modeling.TypeServiceConfig{
		Types:       types,
		Versions:    versions,
		Constraints: constraints,
		Entities:    entities,
		Properties:  properties,
		Viewers:     viewers,
		Tx:          tx,
		Plugins:     registry,
	})

	entitySvc := modeling.NewEntityService(modeling.EntityServiceConfig{
		Types:       types,
		Versions:    versions,
		Constraints: constraints,
		Entities:    entities,
		Properties:  properties,
		Viewers:     viewers,
		Groups:      groups,
		Tx:          tx,
		Plugins:     registry,
		Emitter:     newsSvc,
	})

	return &Services{
		Types:    typeSvc,
		Entities: entitySvc,
		News:     newsSvc,
		Plugins:  registry,
	}
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/EdgarDorausch/flimey-core/internal/config"
	"github.com/EdgarDorausch/flimey-core/internal/store"
)

// ServerStatus holds the probe results for a running server.
type ServerStatus struct {
	Running bool   `json:"running"`
	Live    bool   `json:"live"`
	Ready   bool   `json:"ready"`
	Error   string `json:"error,omitempty"`
}

// SchemaStatus holds the state of the database schema.
type SchemaStatus struct {
	Version uint   `json:"version"`
	Name    string `json:"name,omitempty"`
	Dirty   bool   `json:"dirty"`
	Pending int    `json:"pending"`
	Error   string `json:"error,omitempty"`
}

// statusReport is the full status output.
type statusReport struct {
	Server ServerStatus `json:"server"`
	Schema SchemaStatus `json:"schema"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of the Flimey server and database schema",
		Long: `Probe the health endpoints of a running server and report the
migration state of the PostgreSQL database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	// Register flags
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")
	cmd.Flags().String("database_url", "", "PostgreSQL connection URL")
	cmd.Flags().String("observability.addr", "", "metrics/health HTTP address")

	return cmd
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, statusCfg *statusConfig) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	report := statusReport{
		Server: queryServerStatus(cfg.Observability.Addr),
		Schema: querySchemaStatus(cfg.DatabaseURL),
	}

	var output string
	if statusCfg.jsonOutput {
		output, err = formatStatusJSON(report)
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
	} else {
		output = formatStatusTable(report)
	}

	cmd.Println(output)
	return nil
}

// queryServerStatus probes the liveness and readiness endpoints.
func queryServerStatus(addr string) ServerStatus {
	var status ServerStatus

	client := &http.Client{Timeout: 2 * time.Second}

	liveResp, err := client.Get("http://" + addr + "/healthz/liveness")
	if err != nil {
		status.Error = fmt.Sprintf("failed to connect: %v", err)
		return status
	}
	defer func() { _ = liveResp.Body.Close() }()

	status.Running = true
	status.Live = liveResp.StatusCode == http.StatusOK

	readyResp, err := client.Get("http://" + addr + "/healthz/readiness")
	if err != nil {
		// Liveness answered so the process is up; readiness stays false.
		return status
	}
	defer func() { _ = readyResp.Body.Close() }()

	status.Ready = readyResp.StatusCode == http.StatusOK
	return status
}

// querySchemaStatus reports the applied and pending migration state.
func querySchemaStatus(databaseURL string) SchemaStatus {
	var status SchemaStatus

	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		status.Error = fmt.Sprintf("failed to open migrator: %v", err)
		return status
	}
	defer func() { _ = m.Close() }()

	version, dirty, err := m.Version()
	if err != nil {
		status.Error = fmt.Sprintf("failed to read version: %v", err)
		return status
	}
	status.Version = version
	status.Dirty = dirty

	if version > 0 {
		if name, err := store.MigrationName(version); err == nil {
			status.Name = name
		}
	}

	pending, err := m.PendingMigrations()
	if err != nil {
		status.Error = fmt.Sprintf("failed to list pending migrations: %v", err)
		return status
	}
	status.Pending = len(pending)

	return status
}

// formatStatusTable formats the status as a human-readable table.
func formatStatusTable(report statusReport) string {
	var buf []byte
	w := tabwriter.NewWriter((*byteWriter)(&buf), 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "COMPONENT\tSTATUS\tDETAIL")
	_, _ = fmt.Fprintln(w, "---------\t------\t------")

	srv := report.Server
	if srv.Running {
		health := "live"
		if !srv.Live {
			health = "unhealthy"
		}
		detail := "ready"
		if !srv.Ready {
			detail = "not ready"
		}
		_, _ = fmt.Fprintf(w, "server\t%s\t%s\n", health, detail)
	} else {
		reason := "not running"
		if srv.Error != "" {
			reason = srv.Error
		}
		_, _ = fmt.Fprintf(w, "server\tstopped\t%s\n", reason)
	}

	schema := report.Schema
	switch {
	case schema.Error != "":
		_, _ = fmt.Fprintf(w, "schema\tunknown\t%s\n", schema.Error)
	case schema.Dirty:
		_, _ = fmt.Fprintf(w, "schema\tdirty\tversion %d needs manual recovery\n", schema.Version)
	case schema.Pending > 0:
		_, _ = fmt.Fprintf(w, "schema\tbehind\t%d migration(s) pending\n", schema.Pending)
	case schema.Version == 0:
		_, _ = fmt.Fprintf(w, "schema\tempty\tno migrations applied\n")
	default:
		_, _ = fmt.Fprintf(w, "schema\tcurrent\tversion %d (%s)\n", schema.Version, schema.Name)
	}

	_ = w.Flush()
	return string(buf)
}

// formatStatusJSON formats the status as JSON.
func formatStatusJSON(report statusReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal status: %w", err)
	}
	return string(data), nil
}

// byteWriter is a simple writer that appends to a byte slice.
type byteWriter []byte

func (w *byteWriter) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Flimey CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flimey",
		Short: "Flimey - schema-driven asset and issue tracking",
		Long: `Flimey manages assets, subjects, frames and collections against
user-defined entity types with versioned schemas, typed constraints,
plugin property bundles and group-based access control.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}

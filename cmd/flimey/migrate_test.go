// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EdgarDorausch/flimey-core/pkg/errutil"
)

func TestMigrateCommand_Properties(t *testing.T) {
	cmd := NewMigrateCmd()

	assert.Equal(t, "migrate", cmd.Use)
	assert.Contains(t, cmd.Short, "migration", "Short description should mention migrations")
	assert.Contains(t, cmd.Long, "PostgreSQL", "Long description should mention PostgreSQL")
}

func TestMigrateCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewMigrateCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{"up", "down", "steps", "version", "force"} {
		assert.Contains(t, output, sub, "Help missing %q subcommand", sub)
	}
}

func TestMigrateSteps_InvalidArg(t *testing.T) {
	configFile = ""
	cmd := NewMigrateCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"steps", "three"})

	err := cmd.Execute()
	errutil.AssertErrorCode(t, err, "MIGRATION_STEPS_INVALID")
}

func TestMigrateForce_InvalidArg(t *testing.T) {
	configFile = ""
	cmd := NewMigrateCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"force", "latest"})

	err := cmd.Execute()
	errutil.AssertErrorCode(t, err, "MIGRATION_FORCE_INVALID")
}

func TestMigrateSteps_RequiresArg(t *testing.T) {
	cmd := NewMigrateCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"steps"})

	assert.Error(t, cmd.Execute())
}

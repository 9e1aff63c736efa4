// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRootCmd_Flags(t *testing.T) {
	cmd := newRootCmd()

	assert.NotNil(t, cmd.Flags().Lookup("config"))
	assert.NotNil(t, cmd.Flags().Lookup("debug"))
}

func TestRootCmd_RejectsArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"extra"})

	assert.Error(t, cmd.Execute())
}

func TestRootCmd_BadConfigFails(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", writeFile(t, "bad.yaml", "port: 0\n")})

	assert.Error(t, cmd.Execute())
}

func TestRootCmd_MissingDataFails(t *testing.T) {
	dir := t.TempDir()
	body := "data:\n" +
		"  respondents: " + filepath.Join(dir, "none.csv") + "\n" +
		"  supplementary: " + filepath.Join(dir, "none.xlsx") + "\n" +
		"  proportions: " + filepath.Join(dir, "none2.xlsx") + "\n" +
		"  boundaries: " + filepath.Join(dir, "none.geojson") + "\n"
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", writeFile(t, "cfg.yaml", body)})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "startup failed")
}

func TestLoadConfig_DebugFlagOverrides(t *testing.T) {
	path := writeFile(t, "cfg.yaml", "debug: true\n")

	on, err := loadConfig(&rootOptions{configPath: path}, false)
	require.NoError(t, err)
	assert.True(t, on.Debug, "file value kept when flag not set")

	off, err := loadConfig(&rootOptions{configPath: path, debug: false}, true)
	require.NoError(t, err)
	assert.False(t, off.Debug, "explicit flag wins")
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(&rootOptions{}, false)

	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Port)
	assert.False(t, cfg.Debug)
}

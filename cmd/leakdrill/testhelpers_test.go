package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// setConfigFile sets the global configFile variable and registers a cleanup to restore it.
func setConfigFile(t *testing.T, cfgPath string) {
	t.Helper()
	oldConfigFile := configFile
	configFile = cfgPath
	t.Cleanup(func() { configFile = oldConfigFile })
}

// setupBrokenConfigFile creates a config file with invalid YAML that causes Load() to fail.
func setupBrokenConfigFile(t *testing.T) string {
	t.Helper()
	return writeConfigFile(t, "{{invalid yaml content")
}

// setupMemoryConfigFile creates a config file that selects the in-memory store.
func setupMemoryConfigFile(t *testing.T) string {
	t.Helper()
	return writeConfigFile(t, "database:\n  driver: memory\n")
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))
	return cfgPath
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-anki/anki/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(nil)
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".mcp-anki", "anki.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(home, ".mcp-anki", "media"), cfg.MediaDir)
	assert.False(t, cfg.Readonly)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("MCP_ANKI_DB_PATH", "/tmp/custom.db")
	t.Setenv("MCP_ANKI_LOG_LEVEL", "debug")

	cfg, err := config.Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("MCP_ANKI_LOG_LEVEL", "debug")

	cfg, err := config.Load([]string{"--log-level=warn", "--readonly"})
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, cfg.Readonly)
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	_, err := config.Load([]string{"--log-level=verbose"})
	assert.Error(t, err)
}

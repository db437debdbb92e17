package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func withTempConfigDir(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	return tmpDir
}

func TestInitConfigWritesLoadableFile(t *testing.T) {
	withTempConfigDir(t)

	configPath, err := InitConfig(false)
	require.NoError(t, err)

	content, err := os.ReadFile(configPath)
	require.NoError(t, err)

	contentStr := string(content)
	for _, section := range []string{"# Tipline Configuration File", "logging:", "database:", "runner:", "kinds_dir:"} {
		assert.Contains(t, contentStr, section)
	}

	var cfg Config
	require.NoError(t, yaml.Unmarshal(content, &cfg))
}

func TestInitConfigRefusesToOverwriteWithoutForce(t *testing.T) {
	withTempConfigDir(t)

	_, err := InitConfig(false)
	require.NoError(t, err)

	_, err = InitConfig(false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestInitConfigForceOverwrites(t *testing.T) {
	withTempConfigDir(t)

	configPath, err := InitConfig(false)
	require.NoError(t, err)

	_, err = InitConfig(true)
	require.NoError(t, err)

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestInitConfigToPathWritesLoadableFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "custom", "config.yaml")

	require.NoError(t, InitConfigToPath(configPath, false))

	content, err := os.ReadFile(configPath)
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, yaml.Unmarshal(content, &cfg))
}

func TestInitConfigToPathRefusesToOverwriteWithoutForce(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	require.NoError(t, InitConfigToPath(configPath, false))

	err := InitConfigToPath(configPath, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestInitConfigToPathForceOverwrites(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	require.NoError(t, InitConfigToPath(configPath, false))
	require.NoError(t, InitConfigToPath(configPath, true))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestGeneratedConfigIsLoadableAndDefaulted(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	require.NoError(t, InitConfigToPath(configPath, false))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "sqlite", strings.ToLower(string(cfg.Database.Type)))
	assert.Equal(t, 10, cfg.Runner.TipsPerTypePerCycle)
}

package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetConfigSourceExplicitFile(t *testing.T) {
	assert.Equal(t, "/etc/tipline/config.yaml", getConfigSource("/etc/tipline/config.yaml"))
}

func TestGetConfigSourceFallsBackToDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	assert.Equal(t, "defaults", getConfigSource(""))
}

func TestGetConfigSourceFindsDefaultFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	configPath := filepath.Join(dir, "tipline", "config.yaml")
	assert.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0o755))
	assert.NoError(t, os.WriteFile(configPath, []byte("kinds_dir: kinds\n"), 0o644))

	assert.Equal(t, configPath, getConfigSource(""))
}

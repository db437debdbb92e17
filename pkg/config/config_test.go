package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, tmpDir, content string) string {
	t.Helper()
	path := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppliesDefaultsOnTopOfFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
logging:
  level: DEBUG

database:
  type: sqlite
  sqlite:
    path: ` + filepath.ToSlash(filepath.Join(tmpDir, "tipline.db")) + `

processor:
  template_dir: ` + filepath.ToSlash(filepath.Join(tmpDir, "templates")) + `

staging:
  root: ` + filepath.ToSlash(filepath.Join(tmpDir, "etl")) + `

output:
  root: ` + filepath.ToSlash(filepath.Join(tmpDir, "output")) + `

kinds_dir: ` + filepath.ToSlash(filepath.Join(tmpDir, "kinds")) + `
`
	path := writeConfigFile(t, tmpDir, content)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format, "unset fields still get their default")
	assert.Equal(t, 5, cfg.Retry.MaxAttempts, "RetryConfig.ApplyDefaults ran")
	assert.Equal(t, 10, cfg.Runner.TipsPerTypePerCycle)
}

func TestLoadWithNoConfigFileReturnsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	cfg, err := Load(filepath.Join(tmpDir, "nonexistent.yaml"))
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "INFO", cfg.Logging.Level)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeConfigFile(t, tmpDir, "logging:\n  level: INFO\n  invalid yaml here [[[\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEnvironmentVariableOverridesFile(t *testing.T) {
	t.Setenv("TIPLINE_LOGGING_LEVEL", "ERROR")

	tmpDir := t.TempDir()
	content := `
logging:
  level: INFO

database:
  type: sqlite
  sqlite:
    path: ` + filepath.ToSlash(filepath.Join(tmpDir, "tipline.db")) + `

processor:
  template_dir: ` + filepath.ToSlash(filepath.Join(tmpDir, "templates")) + `

staging:
  root: ` + filepath.ToSlash(filepath.Join(tmpDir, "etl")) + `

output:
  root: ` + filepath.ToSlash(filepath.Join(tmpDir, "output")) + `

kinds_dir: ` + filepath.ToSlash(filepath.Join(tmpDir, "kinds")) + `
`
	path := writeConfigFile(t, tmpDir, content)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ERROR", cfg.Logging.Level)
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 30*time.Second, cfg.Processor.RateLimitCooldown)
	assert.NotEmpty(t, cfg.KindsDir)
	assert.NotEmpty(t, cfg.Staging.Root)
	assert.NotEmpty(t, cfg.Output.Root)
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, "config.yaml", filepath.Base(path))
}

func TestGetConfigDir(t *testing.T) {
	dir := GetConfigDir()
	assert.Equal(t, "tipline", filepath.Base(dir))
}

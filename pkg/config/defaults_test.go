package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ingestkit/tipline/internal/bytesize"
)

func TestApplyDefaultsLogging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
}

func TestApplyDefaultsTelemetryAndProfiling(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.False(t, cfg.Telemetry.Enabled, "tracing is opt-in")
	assert.Equal(t, "localhost:4317", cfg.Telemetry.Endpoint)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRate)

	assert.False(t, cfg.Profiling.Enabled, "profiling is opt-in")
	assert.Equal(t, "http://localhost:4040", cfg.Profiling.Endpoint)
	assert.NotEmpty(t, cfg.Profiling.ProfileTypes)
}

func TestApplyDefaultsMetricsPortOnlyWhenEnabled(t *testing.T) {
	disabled := &Config{}
	ApplyDefaults(disabled)
	assert.Equal(t, 0, disabled.Metrics.Port, "no port is reserved when metrics are off")

	enabled := &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(enabled)
	assert.Equal(t, 9090, enabled.Metrics.Port)
}

func TestApplyDefaultsDelegatesToSubConfigs(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, 5, cfg.Retry.MaxAttempts, "processor.RetryConfig.ApplyDefaults ran")
	assert.Equal(t, 20, cfg.CircuitBreaker.SampleSize, "breaker.Config.ApplyDefaults ran")
	assert.Equal(t, 10, cfg.Runner.TipsPerTypePerCycle, "runner.Config.ApplyDefaults ran")
	assert.Equal(t, bytesize.ByteSize(1024), cfg.Attachment.MinFileSizeBytes, "attachment.DownloaderConfig.ApplyDefaults ran")
	assert.Equal(t, 22, cfg.SFTP.Port, "source.SFTPConfig.ApplyDefaults ran")
	assert.NotEmpty(t, cfg.Database.Type, "store.Config.ApplyDefaults ran")
}

func TestApplyDefaultsProcessorAndDirectories(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, 30*time.Second, cfg.Processor.RateLimitCooldown)
	assert.Equal(t, "etl", cfg.Staging.Root)
	assert.Equal(t, "output", cfg.Output.Root)
	assert.NotEmpty(t, cfg.KindsDir)
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Staging:  StagingConfig{Root: "/srv/etl"},
		Output:   OutputConfig{Root: "/srv/out"},
		KindsDir: "/srv/kinds",
	}
	ApplyDefaults(cfg)

	assert.Equal(t, "/srv/etl", cfg.Staging.Root)
	assert.Equal(t, "/srv/out", cfg.Output.Root)
	assert.Equal(t, "/srv/kinds", cfg.KindsDir)
}

func TestGetDefaultConfigIsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.NoError(t, Validate(cfg))
}

func TestGetDefaultConfigHasRequiredFields(t *testing.T) {
	cfg := GetDefaultConfig()

	assert.NotEmpty(t, cfg.Logging.Level)
	assert.NotEmpty(t, cfg.KindsDir)
	assert.NotEmpty(t, cfg.Processor.TemplateDir)
	assert.NotEmpty(t, cfg.Staging.Root)
	assert.NotEmpty(t, cfg.Output.Root)
}

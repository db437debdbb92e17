package config

import (
	"path/filepath"
	"time"

	"github.com/ingestkit/tipline/internal/logger"
	"github.com/ingestkit/tipline/internal/telemetry"
)

// ApplyDefaults fills unset fields across every sub-config with their
// production defaults. Each sub-config knows its own defaults; this
// function is mechanical composition plus the handful of fields that
// belong to Config itself.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyProfilingDefaults(&cfg.Profiling)
	applyMetricsDefaults(&cfg.Metrics)

	cfg.Database.ApplyDefaults()
	cfg.Upstream.ApplyDefaults()
	cfg.CircuitBreaker.ApplyDefaults()
	cfg.Retry.ApplyDefaults()
	cfg.Attachment.ApplyDefaults()
	cfg.Runner.ApplyDefaults()
	cfg.SFTP.ApplyDefaults()

	applyProcessorDefaults(&cfg.Processor)
	applyStagingDefaults(&cfg.Staging)
	applyOutputDefaults(&cfg.Output)

	if cfg.KindsDir == "" {
		cfg.KindsDir = filepath.Join(GetConfigDir(), "kinds")
	}
}

// applyLoggingDefaults sets logging defaults and normalizes the level.
func applyLoggingDefaults(cfg *logger.Config) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults. Enabled is left at
// its zero value (false); tracing is opt-in.
func applyTelemetryDefaults(cfg *telemetry.Config) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "tipline"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

// applyProfilingDefaults sets Pyroscope profiling defaults. Enabled is
// left at its zero value (false); profiling is opt-in.
func applyProfilingDefaults(cfg *telemetry.ProfilingConfig) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "tipline"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines"}
	}
}

// applyMetricsDefaults sets the metrics port when metrics are enabled.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyProcessorDefaults sets processor defaults not already covered by
// processor.Config.ApplyDefaults (which this package doesn't reuse
// directly since ProcessorConfig adds TemplateDir).
func applyProcessorDefaults(cfg *ProcessorConfig) {
	if cfg.RateLimitCooldown == 0 {
		cfg.RateLimitCooldown = 30 * time.Second
	}
}

func applyStagingDefaults(cfg *StagingConfig) {
	if cfg.Root == "" {
		cfg.Root = "etl"
	}
}

func applyOutputDefaults(cfg *OutputConfig) {
	if cfg.Root == "" {
		cfg.Root = "output"
	}
}

// GetDefaultConfig returns a Config with every field defaulted, suitable
// for `tipline init` to write out as a starting point.
func GetDefaultConfig() *Config {
	cfg := &Config{
		KindsDir: filepath.Join(GetConfigDir(), "kinds"),
		Staging:  StagingConfig{Root: "etl"},
		Output:   OutputConfig{Root: "output"},
		Processor: ProcessorConfig{
			TemplateDir: filepath.Join(GetConfigDir(), "templates"),
		},
		Telemetry: telemetry.DefaultConfig(),
	}
	ApplyDefaults(cfg)
	return cfg
}

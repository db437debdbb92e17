// Package config assembles the pipeline's static configuration: transport,
// storage, retry/breaker tuning, source polling, and the ambient stack
// (logging, telemetry, metrics). It is loaded once at startup and handed
// down to every component's constructor.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ingestkit/tipline/internal/bytesize"
	"github.com/ingestkit/tipline/internal/logger"
	"github.com/ingestkit/tipline/internal/telemetry"
	"github.com/ingestkit/tipline/pkg/attachment"
	"github.com/ingestkit/tipline/pkg/breaker"
	"github.com/ingestkit/tipline/pkg/processor"
	"github.com/ingestkit/tipline/pkg/runner"
	"github.com/ingestkit/tipline/pkg/source"
	"github.com/ingestkit/tipline/pkg/store"
	"github.com/ingestkit/tipline/pkg/upstream"
)

// Config is the complete static configuration for the tipline service.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (TIPLINE_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Logging controls slog output behavior.
	Logging logger.Config `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing.
	Telemetry telemetry.Config `mapstructure:"telemetry" yaml:"telemetry"`

	// Profiling controls continuous Pyroscope profiling, independent of
	// tracing.
	Profiling telemetry.ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`

	// Metrics controls the Prometheus metrics HTTP endpoint.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Database configures the WorkItem/attachment/hash store (SQLite or
	// Postgres).
	Database store.Config `mapstructure:"database" yaml:"database"`

	// Upstream configures the HTTP client used to fetch inspection
	// records and attachments.
	Upstream upstream.Config `mapstructure:"upstream" yaml:"upstream"`

	// CircuitBreaker configures the upstream circuit breaker.
	CircuitBreaker breaker.Config `mapstructure:"circuit_breaker" yaml:"circuit_breaker"`

	// Retry configures the WorkItem retry scheduler.
	Retry processor.RetryConfig `mapstructure:"retry" yaml:"retry"`

	// Attachment configures attachment download validation.
	Attachment attachment.DownloaderConfig `mapstructure:"attachment" yaml:"attachment"`

	// Processor configures the per-TIP pipeline (template directory, rate
	// limit cooldown).
	Processor ProcessorConfig `mapstructure:"processor" yaml:"processor"`

	// Runner configures the continuous scheduling loop.
	Runner runner.Config `mapstructure:"runner" yaml:"runner"`

	// SFTP configures the SFTP source poller. Only consulted when
	// Runner.SFTPEnabled is true. PrivateKey is never populated from the
	// config file directly; cmd/tipline reads SFTPPrivateKeyPath (when
	// set) and fills it in after Load returns.
	SFTP source.SFTPConfig `mapstructure:"sftp" yaml:"sftp"`

	// SFTPPrivateKeyPath, when set, is read by the command layer into
	// SFTP.PrivateKey before the Puller is constructed.
	SFTPPrivateKeyPath string `mapstructure:"sftp_private_key_path" yaml:"sftp_private_key_path,omitempty"`

	// LocalImport configures local-directory CSV ingestion behavior
	// (update-only duplicate handling).
	LocalImport source.Config `mapstructure:"local_import" yaml:"local_import"`

	// Staging is the root directory under which the SFTP and local-import
	// pollers lay out their pending/incoming/processed/error/quarantine
	// subtrees.
	Staging StagingConfig `mapstructure:"staging" yaml:"staging"`

	// Output is the root directory inspection folders and reports are
	// written under.
	Output OutputConfig `mapstructure:"output" yaml:"output"`

	// KindsDir is the directory containing one YAML schema file per kind
	// (see pkg/fieldmapper.LoadKindSchemas).
	KindsDir string `mapstructure:"kinds_dir" validate:"required" yaml:"kinds_dir"`
}

// ProcessorConfig controls the per-TIP pipeline.
type ProcessorConfig struct {
	// TemplateDir holds the report template files named by each
	// kind schema's ReportTemplateFile, written in the directive format
	// pkg/report renders.
	TemplateDir string `mapstructure:"template_dir" validate:"required" yaml:"template_dir"`

	// RateLimitCooldown is slept after an upstream rate-limit response
	// before the next TIP in the same cycle is attempted.
	RateLimitCooldown time.Duration `mapstructure:"rate_limit_cooldown" yaml:"rate_limit_cooldown"`
}

// StagingConfig locates the working directories the source pollers use
// for in-flight files.
type StagingConfig struct {
	// Root is the base directory; the SFTP and local-import pollers each
	// get their own subtree ("sftp", "local") rooted here.
	Root string `mapstructure:"root" validate:"required" yaml:"root"`
}

// OutputConfig locates the directory inspection folders/reports/
// attachments are written under.
type OutputConfig struct {
	Root string `mapstructure:"root" validate:"required" yaml:"root"`
}

// MetricsConfig controls the Prometheus metrics HTTP server. When Enabled
// is false, InitRegistry is never called and every metrics call becomes a
// nil-receiver no-op.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port the /metrics handler is served on.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	hook := mapstructure.ComposeDecodeHookFunc(durationDecodeHook(), byteSizeDecodeHook())
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration, returning a user-friendly error pointing
// at `tipline init` when no config file exists at configPath (or the
// default location, when configPath is empty).
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  tipline init\n\n"+
				"Or specify a custom config file:\n"+
				"  tipline <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  tipline init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path in YAML, creating parent directories as
// needed. The file is written 0600 since Upstream.BearerToken may hold a
// credential.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate runs struct-tag validation over cfg.
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return err
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("TIPLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// durationDecodeHook lets config files use human-readable durations like
// "30s", "5m", "1h" anywhere a time.Duration field appears.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// byteSizeDecodeHook lets config files use human-readable byte sizes like
// "1Ki", "10MB" anywhere a bytesize.ByteSize field appears.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tipline")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "tipline")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the
// init command).
func GetConfigDir() string {
	return getConfigDir()
}

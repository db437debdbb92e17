package commands

import (
	"fmt"

	"github.com/ingestkit/tipline/internal/logger"
	"github.com/ingestkit/tipline/pkg/config"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	if err := logger.Init(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// getConfigSource describes where the config was loaded from, for logging.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

// loadAndLogConfig loads the configuration from the global --config flag,
// initializes the logger, and logs where the configuration came from. It is
// the common entry sequence shared by every subcommand that touches the
// store or the pipeline.
func loadAndLogConfig() (*config.Config, error) {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return nil, err
	}
	if err := InitLogger(cfg); err != nil {
		return nil, err
	}
	logger.Info("configuration loaded", "source", getConfigSource(GetConfigFile()))
	return cfg, nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// InitConfig writes a starter configuration file to the default location,
// returning the path written. It fails if a file already exists there
// unless force is true.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a starter configuration file to path, failing if
// one already exists unless force is true.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(templateConfigYAML(path)), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// templateConfigYAML renders a commented starter config anchored at
// configPath's directory, with every section's defaults filled in so the
// file is immediately loadable.
func templateConfigYAML(configPath string) string {
	dir := filepath.Dir(configPath)
	return fmt.Sprintf(`# Tipline Configuration File
#
# Generated by 'tipline init'. Every section below has a working default;
# edit the values that differ for your deployment (database, upstream,
# sftp, kinds_dir) before running 'tipline run'.

logging:
  level: INFO
  format: text
  output: stdout

telemetry:
  enabled: false
  endpoint: localhost:4317
  insecure: true
  sample_rate: 1.0

profiling:
  enabled: false
  endpoint: http://localhost:4040

metrics:
  enabled: false
  port: 9090

database:
  type: sqlite
  sqlite:
    path: %s

upstream:
  namespace: ""
  bearer_token: ""
  request_timeout: 30s
  attachment_timeout: 60s
  max_retries: 3
  backoff_factor: 2
  max_backoff: 60s

circuit_breaker:
  sample_size: 20
  failure_threshold: 0.5
  recovery_threshold: 0.3
  open_duration: 60s

retry:
  max_attempts: 5
  backoff_multiplier: 2
  base_delay: 5m
  max_delay: 24h

attachment:
  min_file_size_bytes: 1024
  pause: 200ms

processor:
  template_dir: %s
  rate_limit_cooldown: 30s

runner:
  kinds: []
  tips_per_type_per_cycle: 10
  cycle_sleep: 60s
  sftp_every_n_cycles: 6
  csv_every_n_cycles: 5
  sftp_enabled: false
  parallel: false

sftp:
  host: ""
  port: 22
  username: ""
  password: ""
  remote_dir: "."
  timeout: 30s
sftp_private_key_path: ""

local_import:
  update_only: false

staging:
  root: %s

output:
  root: %s

kinds_dir: %s
`,
		filepath.Join(dir, "tipline.db"),
		filepath.Join(dir, "templates"),
		filepath.Join(dir, "etl"),
		filepath.Join(dir, "output"),
		filepath.Join(dir, "kinds"),
	)
}

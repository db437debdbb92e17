package commands

import (
	"fmt"

	"github.com/ingestkit/tipline/internal/cli/prompt"
	"github.com/ingestkit/tipline/pkg/config"
	"github.com/ingestkit/tipline/pkg/store"
	"github.com/spf13/cobra"
)

var (
	initForce          bool
	initNonInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample tipline configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/tipline/config.yaml.
Use --config to specify a custom path, or --yes to skip the interactive wizard
and write the template defaults unmodified.

Examples:
  # Initialize with an interactive wizard
  tipline init

  # Initialize with default location, skipping prompts
  tipline init --yes

  # Initialize with custom path
  tipline init --config /etc/tipline/config.yaml

  # Force overwrite an existing config
  tipline init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
	initCmd.Flags().BoolVarP(&initNonInteractive, "yes", "y", false, "Skip the interactive wizard and write template defaults")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	var configPath string
	var err error

	if configFile != "" {
		err = config.InitConfigToPath(configFile, initForce)
		configPath = configFile
	} else {
		configPath, err = config.InitConfig(initForce)
	}

	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	if !initNonInteractive {
		if err := runInitWizard(configPath); err != nil {
			if prompt.IsAborted(err) {
				fmt.Println("\nWizard aborted; template defaults were kept as written.")
				return nil
			}
			return err
		}
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the kinds directory with your kind schemas")
	fmt.Println("  2. Run database migrations: tipline migrate")
	fmt.Printf("  3. Start the pipeline: tipline run --config %s\n", configPath)

	return nil
}

// runInitWizard walks the operator through the handful of fields that have
// no sane environment-independent default: the database backend (and the
// Postgres connection fields when chosen), the upstream namespace, the SFTP
// settings and the kind schema directory. The output root is not asked.
func runInitWizard(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to re-read generated config: %w", err)
	}

	dbType, err := prompt.SelectString("Database backend", []string{string(store.DatabaseTypeSQLite), string(store.DatabaseTypePostgres)})
	if err != nil {
		return err
	}
	cfg.Database.Type = store.DatabaseType(dbType)
	if cfg.Database.Type == store.DatabaseTypePostgres {
		host, err := prompt.InputRequired("Postgres host")
		if err != nil {
			return err
		}
		cfg.Database.Postgres.Host = host

		port, err := prompt.InputPort("Postgres port", 5432)
		if err != nil {
			return err
		}
		cfg.Database.Postgres.Port = port

		dbName, err := prompt.InputRequired("Postgres database name")
		if err != nil {
			return err
		}
		cfg.Database.Postgres.Database = dbName

		user, err := prompt.InputRequired("Postgres user")
		if err != nil {
			return err
		}
		cfg.Database.Postgres.User = user
	}

	namespace, err := prompt.Input("Upstream namespace", cfg.Upstream.Namespace)
	if err != nil {
		return err
	}
	cfg.Upstream.Namespace = namespace

	sftpEnabled, err := prompt.Confirm("Enable SFTP polling", cfg.Runner.SFTPEnabled)
	if err != nil {
		return err
	}
	cfg.Runner.SFTPEnabled = sftpEnabled

	if sftpEnabled {
		host, err := prompt.InputRequired("SFTP host")
		if err != nil {
			return err
		}
		cfg.SFTP.Host = host

		port, err := prompt.InputPort("SFTP port", cfg.SFTP.Port)
		if err != nil {
			return err
		}
		cfg.SFTP.Port = port

		username, err := prompt.InputRequired("SFTP username")
		if err != nil {
			return err
		}
		cfg.SFTP.Username = username
	}

	kindsDir, err := prompt.Input("Kind schema directory", cfg.KindsDir)
	if err != nil {
		return err
	}
	cfg.KindsDir = kindsDir

	return config.SaveConfig(cfg, configPath)
}

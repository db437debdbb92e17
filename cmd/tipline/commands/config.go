package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/ingestkit/tipline/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration schema",
}

var configSchemaOutput string

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate a JSON schema for the configuration file",
	Long: `Generate a JSON schema describing every configuration field.

The schema can be used for:
  - IDE autocompletion (VS Code, IntelliJ, etc.)
  - Configuration file validation
  - Documentation generation

Examples:
  # Print schema to stdout
  tipline config schema

  # Save schema to file
  tipline config schema --output config.schema.json`,
	RunE: runConfigSchema,
}

func init() {
	configSchemaCmd.Flags().StringVarP(&configSchemaOutput, "output", "o", "", "Output file (default: stdout)")
	configCmd.AddCommand(configSchemaCmd)
}

func runConfigSchema(cmd *cobra.Command, args []string) error {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Version = "https://json-schema.org/draft/2020-12/schema"
	schema.Title = "tipline Configuration"
	schema.Description = "Configuration schema for the tipline ingestion pipeline"

	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if configSchemaOutput != "" {
		if err := os.WriteFile(configSchemaOutput, schemaJSON, 0644); err != nil {
			return fmt.Errorf("failed to write schema file: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "JSON schema written to %s\n", configSchemaOutput)
		return nil
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(schemaJSON))
	return nil
}

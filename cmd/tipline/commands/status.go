package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/ingestkit/tipline/internal/cli/output"
	"github.com/ingestkit/tipline/pkg/store"
	"github.com/spf13/cobra"
)

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show work-item queue depth by kind and status",
	Long: `Display a summary of how many work items are in each status bucket,
broken down by kind. Useful for spotting a backlog building up in "pending"
or a stuck batch sitting in "api_error".

Examples:
  # Show the queue summary as a table
  tipline status

  # Output as JSON
  tipline status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	cfg, err := loadAndLogConfig()
	if err != nil {
		return err
	}

	st, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	counts, err := st.CountWorkItemsByKindAndStatus(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to query work items: %w", err)
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, counts)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, counts)
	default:
		printStatusTable(counts)
	}

	return nil
}

func printStatusTable(counts map[string]map[string]int64) {
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	table := output.NewTableData("Kind", "Status", "Count")
	for _, kind := range kinds {
		statuses := make([]string, 0, len(counts[kind]))
		for status := range counts[kind] {
			statuses = append(statuses, status)
		}
		sort.Strings(statuses)
		for _, status := range statuses {
			table.AddRow(kind, status, fmt.Sprintf("%d", counts[kind][status]))
		}
	}

	fmt.Println()
	_ = output.PrintTable(os.Stdout, table)
	fmt.Println()
}

// Command tipline ingests, maps, and renders TIP records pulled from SFTP
// drops and local CSV imports against a configurable set of kind schemas.
package main

import (
	"fmt"
	"os"

	"github.com/ingestkit/tipline/cmd/tipline/commands"

	// Import prometheus metrics to register init() functions
	_ "github.com/ingestkit/tipline/pkg/metrics/prometheus"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weavesuite/weavesuite/cmd/weavesuite/commands"
	"github.com/weavesuite/weavesuite/logger"
)

var rootCmd = &cobra.Command{
	Use:   "weavesuite",
	Short: "WeaveSuite - Service API test coverage tracker",
	Long: `WeaveSuite - track how well generated test suites cover service APIs.

WeaveSuite maintains an endpoint catalog built from service API contracts,
correlates generated pytest source against it, executes the suite in an
isolated workspace, and reports coverage.

Available commands:
  catalog  - Manage the endpoint catalog (fetch, import, extract, ls)
  coverage - Analyze and report test<->endpoint coverage
  run      - Execute tests through the isolated pytest runner
  refresh  - Re-extract all contracts, re-analyze all tests
  db       - Manage database operations
  version  - Show version information

Examples:
  weavesuite catalog fetch          # Fetch contracts from discovered services
  weavesuite catalog extract        # Rebuild the endpoint catalog
  weavesuite coverage analyze --all # Re-derive coverage for every test
  weavesuite coverage summary       # Headline coverage statistics
  weavesuite run --all              # Execute the full suite
  weavesuite db stats               # Show database statistics`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.InitializeWithLevel(false, logger.VerbosityToLevel(verbosity)); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")

	rootCmd.AddCommand(commands.CatalogCmd)
	rootCmd.AddCommand(commands.CoverageCmd)
	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.RefreshCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

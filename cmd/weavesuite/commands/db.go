package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weavesuite/weavesuite/sym"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: sym.DB + " Manage WeaveSuite database",
	Long: sym.DB + ` db — Manage WeaveSuite database operations

Examples:
  weavesuite db stats   # Show row counts across catalog, suite, and coverage`,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	RunE:  runDbStats,
}

func init() {
	DbCmd.AddCommand(dbStatsCmd)
}

func runDbStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	counts := []struct {
		label string
		query string
	}{
		{"Services", `SELECT COUNT(*) FROM microservices`},
		{"Contracts", `SELECT COUNT(*) FROM api_specs`},
		{"Endpoints", `SELECT COUNT(*) FROM endpoints`},
		{"Tests", `SELECT COUNT(*) FROM tests`},
		{"Templates", `SELECT COUNT(*) FROM test_templates`},
		{"Coverage rows", `SELECT COUNT(*) FROM test_endpoint_coverage`},
	}

	fmt.Printf("%s Database Statistics\n", sym.DB)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Printf("Database Path: %s\n\n", cfg.Database.Path)

	for _, c := range counts {
		var n int
		if err := database.QueryRow(c.query).Scan(&n); err != nil {
			return fmt.Errorf("failed to query %s count: %w", c.label, err)
		}
		fmt.Printf("%-14s %d\n", c.label+":", n)
	}

	var pending, passed, failed, errored int
	err = database.QueryRow(`
		SELECT
			COUNT(CASE WHEN status = 'pending' THEN 1 END),
			COUNT(CASE WHEN status = 'passed' THEN 1 END),
			COUNT(CASE WHEN status = 'failed' THEN 1 END),
			COUNT(CASE WHEN status = 'error' THEN 1 END)
		FROM tests`).Scan(&pending, &passed, &failed, &errored)
	if err != nil {
		return fmt.Errorf("failed to query test statuses: %w", err)
	}

	fmt.Printf("\nTest Statuses:\n")
	fmt.Printf("  Pending: %d\n", pending)
	fmt.Printf("  Passed:  %d\n", passed)
	fmt.Printf("  Failed:  %d\n", failed)
	fmt.Printf("  Errors:  %d\n", errored)
	return nil
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weavesuite/weavesuite/catalog"
	"github.com/weavesuite/weavesuite/coverage"
	"github.com/weavesuite/weavesuite/logger"
	"github.com/weavesuite/weavesuite/suite"
	"github.com/weavesuite/weavesuite/sym"
)

// RefreshCmd represents the refresh command
var RefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: sym.Coverage + " Re-extract all contracts and re-analyze all tests",
	Long: sym.Coverage + ` refresh — Rebuild the catalog and every coverage mapping

Runs the full pipeline: extract endpoints from every stored contract,
re-derive coverage for every test, and report the resulting summary. Both
passes are idempotent, so refresh is safe to run at any time.`,
	RunE: runRefresh,
}

func runRefresh(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	catalogStore := catalog.NewStore(database)
	suiteStore := suite.NewStore(database)
	covStore := coverage.NewStore(database)
	builder := catalog.NewBuilder(catalogStore, logger.Logger)
	correlator := coverage.NewCorrelator(catalogStore, suiteStore, covStore, builder, logger.Logger)

	report, err := correlator.FullRefresh(cmd.Context(), newAggregator(database))
	if err != nil {
		return err
	}

	fmt.Printf("%s Refresh complete\n", sym.Coverage)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("Contracts extracted: %d (%d failed)\n", report.Extraction.Specs, report.Extraction.Failed)
	fmt.Printf("Endpoints created:   %d\n", report.Extraction.Created)
	fmt.Printf("Endpoints updated:   %d\n", report.Extraction.Updated)
	fmt.Printf("Tests analyzed:      %d (%d failed)\n", report.Analysis.Analyzed, report.Analysis.Failed)
	fmt.Printf("Coverage mappings:   %d\n", report.Analysis.Mappings)
	fmt.Printf("Coverage:            %.2f%% (%d/%d endpoints)\n",
		report.Summary.Percentage, report.Summary.Covered, report.Summary.Total)
	return nil
}

package commands

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weavesuite/weavesuite/catalog"
	"github.com/weavesuite/weavesuite/coverage"
	"github.com/weavesuite/weavesuite/errors"
	"github.com/weavesuite/weavesuite/logger"
	"github.com/weavesuite/weavesuite/suite"
	"github.com/weavesuite/weavesuite/sym"
)

// CoverageCmd represents the coverage command group
var CoverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: sym.Coverage + " Analyze and report test coverage",
	Long: sym.Coverage + ` coverage — Correlate tests against the endpoint catalog

Analyze extracts HTTP call sites from test source, matches them to catalog
endpoints, and stores the mapping. The reporting subcommands derive
statistics from the stored mappings.

Examples:
  weavesuite coverage analyze --all   # Re-derive coverage for every test
  weavesuite coverage analyze 7       # Re-derive coverage for test 7
  weavesuite coverage summary         # Headline statistics
  weavesuite coverage services        # Per-service breakdown, worst first
  weavesuite coverage uncovered       # Endpoints no test touches
  weavesuite coverage endpoint 12     # Tests covering endpoint 12
  weavesuite coverage test 7          # Endpoints covered by test 7`,
}

var coverageAnalyzeCmd = &cobra.Command{
	Use:   "analyze [test-id]",
	Short: "Extract call sites and rebuild coverage mappings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCoverageAnalyze,
}

var coverageSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show headline coverage statistics",
	RunE:  runCoverageSummary,
}

var coverageServicesCmd = &cobra.Command{
	Use:   "services",
	Short: "Show per-service coverage, lowest first",
	RunE:  runCoverageServices,
}

var coverageUncoveredCmd = &cobra.Command{
	Use:   "uncovered",
	Short: "List endpoints no test touches",
	RunE:  runCoverageUncovered,
}

var coverageEndpointCmd = &cobra.Command{
	Use:   "endpoint <id>",
	Short: "Show one endpoint and the tests covering it",
	Args:  cobra.ExactArgs(1),
	RunE:  runCoverageEndpoint,
}

var coverageTestCmd = &cobra.Command{
	Use:   "test <id>",
	Short: "Show one test and the endpoints it covers",
	Args:  cobra.ExactArgs(1),
	RunE:  runCoverageTest,
}

var (
	analyzeAllFlag    bool
	summarySpecFlag   int64
	uncoveredSpecFlag int64
)

func init() {
	CoverageCmd.AddCommand(coverageAnalyzeCmd)
	CoverageCmd.AddCommand(coverageSummaryCmd)
	CoverageCmd.AddCommand(coverageServicesCmd)
	CoverageCmd.AddCommand(coverageUncoveredCmd)
	CoverageCmd.AddCommand(coverageEndpointCmd)
	CoverageCmd.AddCommand(coverageTestCmd)

	coverageAnalyzeCmd.Flags().BoolVar(&analyzeAllFlag, "all", false, "Analyze every stored test")
	coverageSummaryCmd.Flags().Int64Var(&summarySpecFlag, "spec", 0, "Restrict to one contract id")
	coverageUncoveredCmd.Flags().Int64Var(&uncoveredSpecFlag, "spec", 0, "Restrict to one contract id")
}

// newAggregator wires the read-side coverage views over one open database.
func newAggregator(database *sql.DB) *coverage.Aggregator {
	return coverage.NewAggregator(database,
		catalog.NewStore(database), suite.NewStore(database), coverage.NewStore(database))
}

func runCoverageAnalyze(cmd *cobra.Command, args []string) error {
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

	if len(args) == 1 {
		testID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid test id %q", args[0])
		}
		result, analyzeErr := correlator.AnalyzeTest(testID)
		if analyzeErr != nil {
			return analyzeErr
		}
		printAnalysisResult(result)
		return nil
	}

	if !analyzeAllFlag {
		return errors.New("specify a test id or --all")
	}

	report, err := correlator.AnalyzeAll()
	if err != nil {
		return err
	}

	fmt.Printf("%s Coverage analysis complete\n", sym.Coverage)
	fmt.Printf("Tests:    %d\n", report.Tests)
	fmt.Printf("Analyzed: %d\n", report.Analyzed)
	fmt.Printf("Failed:   %d\n", report.Failed)
	fmt.Printf("Mappings: %d\n", report.Mappings)
	return nil
}

func printAnalysisResult(result *coverage.AnalysisResult) {
	switch result.Status {
	case coverage.AnalysisOK:
		fmt.Printf("%s Test %s: %d call sites, %d endpoints matched\n",
			sym.Coverage, result.TestName, result.CallSites, result.Matched)
	case coverage.AnalysisNotFound:
		pterm.Warning.Printf("Test %d not found\n", result.TestID)
	default:
		pterm.Error.Printf("Analysis of test %d failed: %s\n", result.TestID, result.Message)
	}
}

func runCoverageSummary(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	agg := newAggregator(database)

	var specID *int64
	if summarySpecFlag > 0 {
		specID = &summarySpecFlag
	}
	summary, err := agg.Summary(specID)
	if err != nil {
		return err
	}

	fmt.Printf("%s Coverage Summary\n", sym.Coverage)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("Total Endpoints:     %d\n", summary.Total)
	fmt.Printf("Covered Endpoints:   %d\n", summary.Covered)
	fmt.Printf("Uncovered Endpoints: %d\n", summary.Uncovered)
	fmt.Printf("Coverage:            %.2f%%\n", summary.Percentage)
	return nil
}

func runCoverageServices(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	agg := newAggregator(database)

	services, err := agg.ByService()
	if err != nil {
		return err
	}
	if len(services) == 0 {
		fmt.Printf("%s No services with endpoints in catalog\n", sym.Coverage)
		return nil
	}

	table := pterm.TableData{{"Service", "Namespace", "Endpoints", "Covered", "Coverage"}}
	for _, svc := range services {
		table = append(table, []string{
			svc.Name,
			svc.Namespace,
			strconv.Itoa(svc.Total),
			strconv.Itoa(svc.Covered),
			fmt.Sprintf("%.2f%%", svc.Percentage),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
}

func runCoverageUncovered(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	agg := newAggregator(database)

	var specID *int64
	if uncoveredSpecFlag > 0 {
		specID = &uncoveredSpecFlag
	}
	endpoints, err := agg.Uncovered(specID)
	if err != nil {
		return err
	}

	if len(endpoints) == 0 {
		pterm.Success.Println("Every catalog endpoint is covered")
		return nil
	}

	fmt.Printf("%s Uncovered Endpoints (%d)\n", sym.Coverage, len(endpoints))
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	for _, ep := range endpoints {
		fmt.Printf("%4d  %-7s %s\n", ep.ID, ep.Method, ep.Path)
	}
	return nil
}

func runCoverageEndpoint(cmd *cobra.Command, args []string) error {
	endpointID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid endpoint id %q", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	agg := newAggregator(database)

	detail, err := agg.EndpointDetail(endpointID)
	if errors.IsNotFoundError(err) {
		pterm.Warning.Printf("Endpoint %d not found\n", endpointID)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s %s %s (endpoint %d, spec %d)\n",
		sym.Coverage, detail.Endpoint.Method, detail.Endpoint.Path, detail.Endpoint.ID, detail.Endpoint.SpecID)
	if len(detail.Tests) == 0 {
		fmt.Println("Covered by: no tests")
		return nil
	}
	fmt.Printf("Covered by %d test(s):\n", len(detail.Tests))
	for _, test := range detail.Tests {
		fmt.Printf("%4d  %-10s %s\n", test.ID, test.Status, test.Name)
	}
	return nil
}

func runCoverageTest(cmd *cobra.Command, args []string) error {
	testID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid test id %q", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	agg := newAggregator(database)

	detail, err := agg.TestDetail(testID)
	if errors.IsNotFoundError(err) {
		pterm.Warning.Printf("Test %d not found\n", testID)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s Test %s (id %d, status %s)\n",
		sym.Coverage, detail.Test.Name, detail.Test.ID, detail.Test.Status)
	if len(detail.Endpoints) == 0 {
		fmt.Println("Covers: no endpoints")
		return nil
	}
	fmt.Printf("Covers %d endpoint(s):\n", len(detail.Endpoints))
	for _, ep := range detail.Endpoints {
		fmt.Printf("%4d  %-7s %s\n", ep.ID, ep.Method, ep.Path)
	}
	return nil
}

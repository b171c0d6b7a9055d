package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/weavesuite/weavesuite/catalog"
	"github.com/weavesuite/weavesuite/logger"
	"github.com/weavesuite/weavesuite/sym"
)

// CatalogCmd represents the catalog command group
var CatalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: sym.Catalog + " Manage the endpoint catalog",
	Long: sym.Catalog + ` catalog — Manage the endpoint catalog

Fetch contract documents from discovered services, import them from files,
extract endpoint rows, and inspect the resulting catalog.

Examples:
  weavesuite catalog fetch                  # Fetch contracts from all discovered services
  weavesuite catalog import openapi.yaml    # Import a contract document from a file
  weavesuite catalog extract                # Extract endpoints from every stored contract
  weavesuite catalog extract 3              # Extract endpoints from contract 3
  weavesuite catalog ls                     # List catalog endpoints
  weavesuite catalog ls --spec 3            # List endpoints of contract 3`,
}

var catalogFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch contract documents from discovered services",
	RunE:  runCatalogFetch,
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a contract document (JSON or YAML) from a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogImport,
}

var catalogExtractCmd = &cobra.Command{
	Use:   "extract [spec-id]",
	Short: "Extract endpoint rows from stored contracts",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCatalogExtract,
}

var catalogLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List catalog endpoints",
	RunE:  runCatalogLs,
}

var (
	importServiceFlag int64
	lsSpecFlag        int64
	strictFlag        bool
)

func init() {
	CatalogCmd.AddCommand(catalogFetchCmd)
	CatalogCmd.AddCommand(catalogImportCmd)
	CatalogCmd.AddCommand(catalogExtractCmd)
	CatalogCmd.AddCommand(catalogLsCmd)

	catalogImportCmd.Flags().Int64Var(&importServiceFlag, "service", 0, "Associate the imported contract with a service id")
	catalogImportCmd.Flags().BoolVar(&strictFlag, "strict", false, "Reject contracts that fail full OpenAPI validation")
	catalogFetchCmd.Flags().BoolVar(&strictFlag, "strict", false, "Skip services whose contracts fail full OpenAPI validation")
	catalogLsCmd.Flags().Int64Var(&lsSpecFlag, "spec", 0, "Restrict to one contract id")
}

func runCatalogFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	store := catalog.NewStore(database)
	fetcher := catalog.NewFetcher(store, cfg.Fetch.SpecPath,
		time.Duration(cfg.Fetch.TimeoutSeconds)*time.Second, logger.Logger)
	fetcher.SetStrict(strictFlag)

	report, err := fetcher.FetchAll(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("%s Contract fetch complete\n", sym.Catalog)
	fmt.Printf("Updated: %d\n", len(report.Updated))
	for _, name := range report.Updated {
		fmt.Printf("  %s %s\n", sym.Open, name)
	}
	if len(report.Skipped) > 0 {
		fmt.Printf("Skipped: %d\n", len(report.Skipped))
		for _, name := range report.Skipped {
			fmt.Printf("  %s %s\n", sym.Close, name)
		}
	}
	return nil
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	store := catalog.NewStore(database)
	fetcher := catalog.NewFetcher(store, cfg.Fetch.SpecPath,
		time.Duration(cfg.Fetch.TimeoutSeconds)*time.Second, logger.Logger)
	fetcher.SetStrict(strictFlag)

	var serviceID *int64
	if importServiceFlag > 0 {
		serviceID = &importServiceFlag
	}

	specID, err := fetcher.ImportFile(args[0], serviceID)
	if err != nil {
		return err
	}

	fmt.Printf("%s Imported contract %s as spec %d\n", sym.Catalog, args[0], specID)
	return nil
}

func runCatalogExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	builder := catalog.NewBuilder(catalog.NewStore(database), logger.Logger)

	if len(args) == 1 {
		var specID int64
		if _, err := fmt.Sscanf(args[0], "%d", &specID); err != nil {
			return fmt.Errorf("invalid spec id %q", args[0])
		}
		report, err := builder.ExtractSpec(specID)
		if err != nil {
			return err
		}
		fmt.Printf("%s Spec %d: %d endpoints (%d created, %d updated)\n",
			sym.Catalog, report.SpecID, report.Total, report.Created, report.Updated)
		return nil
	}

	batch, err := builder.ExtractAll()
	if err != nil {
		return err
	}
	fmt.Printf("%s Extraction complete: %d contracts, %d created, %d updated, %d failed\n",
		sym.Catalog, batch.Specs, batch.Created, batch.Updated, batch.Failed)
	for _, msg := range batch.Errors {
		fmt.Printf("  %s %s\n", sym.Close, msg)
	}
	return nil
}

func runCatalogLs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	store := catalog.NewStore(database)

	var specID *int64
	if lsSpecFlag > 0 {
		specID = &lsSpecFlag
	}
	endpoints, err := store.ListEndpoints(specID)
	if err != nil {
		return err
	}

	if len(endpoints) == 0 {
		fmt.Printf("%s No endpoints in catalog\n", sym.Catalog)
		return nil
	}

	fmt.Printf("%s Endpoint Catalog (%d)\n", sym.Catalog, len(endpoints))
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	for _, ep := range endpoints {
		operation := ep.OperationID
		if operation == "" {
			operation = "-"
		}
		fmt.Printf("%4d  spec %-3d  %-7s %-40s %s\n", ep.ID, ep.SpecID, ep.Method, ep.Path, operation)
	}
	return nil
}

package commands

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weavesuite/weavesuite/errors"
	"github.com/weavesuite/weavesuite/logger"
	"github.com/weavesuite/weavesuite/sandbox"
	"github.com/weavesuite/weavesuite/suite"
	"github.com/weavesuite/weavesuite/sym"
)

// RunCmd represents the run command
var RunCmd = &cobra.Command{
	Use:   "run [test-id]",
	Short: sym.Sandbox + " Execute tests through the isolated pytest runner",
	Long: sym.Sandbox + ` run — Execute generated tests in an isolated workspace

Each test is materialized from its template plus body into an ephemeral
workspace, run through pytest under a timeout, classified, and its result
persisted.

Examples:
  weavesuite run 7       # Execute test 7
  weavesuite run --all   # Execute the full suite`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

var runAllFlag bool

func init() {
	RunCmd.Flags().BoolVar(&runAllFlag, "all", false, "Execute every stored test")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	suiteStore := suite.NewStore(database)
	engine := sandbox.NewEngine(cfg.Runner, suiteStore, logger.Logger)

	if len(args) == 1 {
		testID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid test id %q", args[0])
		}
		defer engine.Release()

		result := engine.ExecuteTest(cmd.Context(), testID)
		printRunResult(result)
		return nil
	}

	if !runAllFlag {
		return errors.New("specify a test id or --all")
	}

	spinner, _ := pterm.DefaultSpinner.Start("Executing test suite")
	report, err := engine.ExecuteAll(cmd.Context())
	if err != nil {
		if spinner != nil {
			spinner.Fail("Test execution failed")
		}
		return err
	}
	if spinner != nil {
		spinner.Success(fmt.Sprintf("Executed %d tests", report.Total))
	}

	fmt.Printf("%s Suite Execution\n", sym.Sandbox)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("Total:  %d\n", report.Total)
	fmt.Printf("Passed: %d\n", report.Passed)
	fmt.Printf("Failed: %d\n", report.Failed)
	fmt.Printf("Errors: %d\n", report.Errors)
	fmt.Println()

	for _, result := range report.Results {
		printRunResult(result)
	}
	return nil
}

func printRunResult(result *sandbox.Result) {
	name := result.TestName
	if name == "" {
		name = fmt.Sprintf("test %d", result.TestID)
	}
	switch result.Status {
	case suite.StatusPassed:
		pterm.Success.Printf("%s (%.2fs)\n", name, result.ExecutionTime)
	case suite.StatusFailed:
		pterm.Warning.Printf("%s: %s\n", name, result.Message)
	default:
		pterm.Error.Printf("%s: %s\n", name, result.Message)
	}
}

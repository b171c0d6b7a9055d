// Package sandbox executes generated test units in an isolated workspace:
// it materializes a runnable file from a template plus a test body, invokes
// the external pytest runner under a timeout, classifies the outcome, and
// persists the result.
package sandbox

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/weavesuite/weavesuite/config"
	"github.com/weavesuite/weavesuite/errors"
	"github.com/weavesuite/weavesuite/suite"
	"github.com/weavesuite/weavesuite/sym"
)

// Engine owns one workspace and runs test units in it. Multiple engines can
// coexist; the workspace is per-engine state, never process-global.
type Engine struct {
	cfg    config.RunnerConfig
	suite  *suite.Store
	runner Runner
	logger *zap.SugaredLogger

	mu        sync.Mutex
	workspace string
}

// NewEngine creates an execution engine backed by the pytest runner.
func NewEngine(cfg config.RunnerConfig, suiteStore *suite.Store, logger *zap.SugaredLogger) *Engine {
	return &Engine{
		cfg:    cfg,
		suite:  suiteStore,
		runner: NewPytestRunner(cfg),
		logger: logger,
	}
}

// Result reports one test execution.
type Result struct {
	TestID        int64   `json:"test_id"`
	TestName      string  `json:"test_name,omitempty"`
	Status        string  `json:"status"`
	ExecutionTime float64 `json:"execution_time"`
	Message       string  `json:"message,omitempty"`
}

// BatchReport tallies a full-suite run.
type BatchReport struct {
	Total   int       `json:"total_tests"`
	Passed  int       `json:"passed"`
	Failed  int       `json:"failed"`
	Errors  int       `json:"errors"`
	Results []*Result `json:"results"`
}

// ExecuteTest runs one test by id and persists its terminal status. A
// missing id yields a not-found error result without touching any stored
// row; every other failure mode is converted into an error result rather
// than surfaced as a Go error, so batch callers always keep going.
func (e *Engine) ExecuteTest(ctx context.Context, testID int64) *Result {
	test, err := e.suite.GetTest(testID)
	if errors.IsNotFoundError(err) {
		return &Result{TestID: testID, Status: suite.StatusError, Message: "Test not found"}
	}
	if err != nil {
		return &Result{TestID: testID, Status: suite.StatusError, Message: err.Error()}
	}

	e.logger.Infow("Executing test",
		"test", test.Name,
		"id", testID,
		"symbol", sym.Sandbox,
	)

	execution := e.runUnit(ctx, test)

	result := &Result{
		TestID:        testID,
		TestName:      test.Name,
		Status:        execution.Status,
		ExecutionTime: execution.ExecutionTime,
		Message:       execution.ErrorMessage,
	}

	if err := e.suite.UpdateResult(testID, execution); err != nil {
		e.logger.Errorw("Failed to persist execution result",
			"test", test.Name,
			"error", err,
			"symbol", sym.Sandbox,
		)
		msg := fmt.Sprintf("result not persisted: %v", err)
		if result.Message != "" {
			msg = result.Message + "; " + msg
		}
		result.Message = msg
	}

	if execution.Status == suite.StatusPassed {
		e.logger.Infow("Test passed",
			"test", test.Name,
			"duration", fmt.Sprintf("%.2fs", execution.ExecutionTime),
			"symbol", sym.Sandbox,
		)
	} else {
		e.logger.Warnw("Test did not pass",
			"test", test.Name,
			"status", execution.Status,
			"message", execution.ErrorMessage,
			"symbol", sym.Sandbox,
		)
	}
	return result
}

// runUnit materializes and runs one test. It never returns a Go error: any
// failure on the way to a runner verdict, including a panic, is converted
// into an error-status execution result.
func (e *Engine) runUnit(ctx context.Context, test *suite.Test) (execution *suite.ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			execution = &suite.ExecutionResult{
				Status:       suite.StatusError,
				ErrorMessage: fmt.Sprintf("Failed to execute test: %v", r),
			}
		}
	}()

	workspace, err := e.Acquire()
	if err != nil {
		return &suite.ExecutionResult{Status: suite.StatusError, ErrorMessage: err.Error()}
	}

	unitFile, err := e.materialize(workspace, test, e.templateFor(test))
	if err != nil {
		return &suite.ExecutionResult{Status: suite.StatusError, ErrorMessage: err.Error()}
	}
	defer func() {
		if err := os.Remove(unitFile); err != nil {
			e.logger.Warnw("Failed to remove unit file",
				"file", unitFile,
				"error", err,
				"symbol", sym.Sandbox,
			)
		}
	}()

	out, err := e.runner.Run(ctx, unitFile)
	if err != nil {
		return &suite.ExecutionResult{
			Status:       suite.StatusError,
			ErrorMessage: fmt.Sprintf("Failed to execute test: %v", err),
		}
	}
	if out.TimedOut {
		return &suite.ExecutionResult{
			Status:        suite.StatusError,
			ErrorMessage:  timeoutMessage(runnerTimeout(e.cfg)),
			ExecutionTime: ParseDuration(out.Stdout),
		}
	}
	return Classify(out)
}

// templateFor resolves a test's template code. A dangling template
// reference degrades to the default preamble with a warning, matching the
// catalog's tolerance for partially-populated rows.
func (e *Engine) templateFor(test *suite.Test) string {
	if test.TemplateID == nil {
		return ""
	}
	tpl, err := e.suite.GetTemplate(*test.TemplateID)
	if err != nil {
		e.logger.Warnw("Template not found for test",
			"test", test.Name,
			"template_id", *test.TemplateID,
			"error", err,
			"symbol", sym.Sandbox,
		)
		return ""
	}
	return tpl.Code
}

// ExecuteAll runs every stored test through a bounded worker pool, pacing
// runner launches with a rate limiter. The workspace is acquired once for
// the batch and released when it completes, even on panic.
func (e *Engine) ExecuteAll(ctx context.Context) (*BatchReport, error) {
	tests, err := e.suite.ListTests()
	if err != nil {
		return nil, err
	}

	report := &BatchReport{Total: len(tests), Results: []*Result{}}
	if len(tests) == 0 {
		e.logger.Warnw("No tests to execute", "symbol", sym.Sandbox)
		return report, nil
	}

	if _, err := e.Acquire(); err != nil {
		return nil, err
	}
	defer e.Release()

	workers := e.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	limit := rate.Inf
	if e.cfg.LaunchesPerSecond > 0 {
		limit = rate.Limit(e.cfg.LaunchesPerSecond)
	}
	limiter := rate.NewLimiter(limit, 1)

	type job struct {
		idx  int
		test *suite.Test
	}

	results := make([]*Result, len(tests))
	jobs := make(chan job)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := limiter.Wait(ctx); err != nil {
					results[j.idx] = &Result{
						TestID:   j.test.ID,
						TestName: j.test.Name,
						Status:   suite.StatusError,
						Message:  err.Error(),
					}
					continue
				}
				results[j.idx] = e.ExecuteTest(ctx, j.test.ID)
			}
		}()
	}

	for i, test := range tests {
		jobs <- job{idx: i, test: test}
	}
	close(jobs)
	wg.Wait()

	for _, r := range results {
		switch r.Status {
		case suite.StatusPassed:
			report.Passed++
		case suite.StatusFailed:
			report.Failed++
		default:
			report.Errors++
		}
	}
	report.Results = results

	e.logger.Infow("Test execution complete",
		"total", report.Total,
		"passed", report.Passed,
		"failed", report.Failed,
		"errors", report.Errors,
		"symbol", sym.Sandbox,
	)
	return report, nil
}

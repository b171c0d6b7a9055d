package coverage

import (
	"context"

	"go.uber.org/zap"

	"github.com/weavesuite/weavesuite/catalog"
	"github.com/weavesuite/weavesuite/errors"
	"github.com/weavesuite/weavesuite/suite"
	"github.com/weavesuite/weavesuite/sym"
)

// Analysis outcome statuses.
const (
	AnalysisOK       = "analyzed"
	AnalysisNotFound = "not_found"
	AnalysisError    = "error"
)

// AnalysisResult reports one test's coverage analysis.
type AnalysisResult struct {
	TestID    int64  `json:"test_id"`
	TestName  string `json:"test_name,omitempty"`
	Status    string `json:"status"`
	CallSites int    `json:"call_sites"`
	Matched   int    `json:"matched"`
	Message   string `json:"message,omitempty"`
}

// BatchAnalysisReport aggregates analysis over the full test suite.
type BatchAnalysisReport struct {
	Tests    int               `json:"tests"`
	Analyzed int               `json:"analyzed"`
	Failed   int               `json:"failed"`
	Mappings int               `json:"mappings"`
	Results  []*AnalysisResult `json:"results"`
}

// Correlator orchestrates call-site extraction and endpoint matching per
// test and persists the resulting coverage mappings.
type Correlator struct {
	catalog *catalog.Store
	suite   *suite.Store
	cov     *Store
	builder *catalog.Builder
	logger  *zap.SugaredLogger
}

// NewCorrelator creates a coverage correlator over the shared stores.
func NewCorrelator(catalogStore *catalog.Store, suiteStore *suite.Store, covStore *Store, builder *catalog.Builder, logger *zap.SugaredLogger) *Correlator {
	return &Correlator{
		catalog: catalogStore,
		suite:   suiteStore,
		cov:     covStore,
		builder: builder,
		logger:  logger,
	}
}

// AnalyzeTest re-derives a test's coverage rows from its current body.
// Prior mappings are always replaced wholesale, so re-analysis after a
// body edit leaves no stale associations. A missing test id is reported
// as a not_found result, not an error; analysis failures roll back and
// are surfaced as a structured error result so batch callers keep going.
func (c *Correlator) AnalyzeTest(testID int64) (*AnalysisResult, error) {
	test, err := c.suite.GetTest(testID)
	if errors.IsNotFoundError(err) {
		return &AnalysisResult{TestID: testID, Status: AnalysisNotFound, Message: "test not found"}, nil
	}
	if err != nil {
		return &AnalysisResult{TestID: testID, Status: AnalysisError, Message: err.Error()}, err
	}

	result := &AnalysisResult{TestID: testID, TestName: test.Name, Status: AnalysisOK}

	// Candidate set: scoped to the test's contract when it has one,
	// otherwise the full catalog.
	candidates, err := c.catalog.ListEndpoints(test.SpecID)
	if err != nil {
		result.Status = AnalysisError
		result.Message = err.Error()
		return result, err
	}

	sites := ExtractCallSites(test.Code)
	result.CallSites = len(sites)

	var endpointIDs []int64
	for _, site := range sites {
		if ep := MatchEndpoint(site.Method, site.Path, candidates); ep != nil {
			endpointIDs = append(endpointIDs, ep.ID)
		}
	}

	if err := c.cov.ReplaceForTest(testID, endpointIDs); err != nil {
		result.Status = AnalysisError
		result.Message = err.Error()
		return result, err
	}

	// ReplaceForTest collapses duplicates; report distinct endpoints.
	distinct := make(map[int64]struct{}, len(endpointIDs))
	for _, id := range endpointIDs {
		distinct[id] = struct{}{}
	}
	result.Matched = len(distinct)

	c.logger.Debugw("Analyzed test coverage",
		"test", test.Name,
		"call_sites", result.CallSites,
		"matched", result.Matched,
		"symbol", sym.Coverage,
	)
	return result, nil
}

// AnalyzeAll analyzes every test. One test's failure is recorded and does
// not abort the batch.
func (c *Correlator) AnalyzeAll() (*BatchAnalysisReport, error) {
	tests, err := c.suite.ListTests()
	if err != nil {
		return nil, err
	}

	report := &BatchAnalysisReport{Tests: len(tests)}
	for _, test := range tests {
		result, err := c.AnalyzeTest(test.ID)
		if err != nil {
			c.logger.Warnw("Test analysis failed",
				"test", test.Name,
				"error", err,
				"symbol", sym.Coverage,
			)
			report.Failed++
		} else {
			report.Analyzed++
			report.Mappings += result.Matched
		}
		report.Results = append(report.Results, result)
	}

	c.logger.Infow("Coverage analysis complete",
		"tests", report.Tests,
		"analyzed", report.Analyzed,
		"failed", report.Failed,
		"mappings", report.Mappings,
		"symbol", sym.Coverage,
	)
	return report, nil
}

// RefreshReport is the outcome of a full catalog+coverage refresh.
type RefreshReport struct {
	Extraction *catalog.BatchExtractReport `json:"extraction"`
	Analysis   *BatchAnalysisReport        `json:"analysis"`
	Summary    *Summary                    `json:"summary"`
}

// FullRefresh re-extracts every contract, re-analyzes every test, and
// recomputes summary statistics. Both passes are independently idempotent,
// so a refresh is safe to run at any time.
func (c *Correlator) FullRefresh(ctx context.Context, agg *Aggregator) (*RefreshReport, error) {
	extraction, err := c.builder.ExtractAll()
	if err != nil {
		return nil, errors.Wrap(err, "catalog extraction pass")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	analysis, err := c.AnalyzeAll()
	if err != nil {
		return nil, errors.Wrap(err, "coverage analysis pass")
	}

	summary, err := agg.Summary(nil)
	if err != nil {
		return nil, errors.Wrap(err, "summary recomputation")
	}

	return &RefreshReport{Extraction: extraction, Analysis: analysis, Summary: summary}, nil
}

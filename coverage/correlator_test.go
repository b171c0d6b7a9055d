package coverage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeTest(t *testing.T) {
	f := newFixture(t)
	c := f.correlator()

	code := `def test_order_lifecycle(client):
    created = client.post("/orders", json={})
    oid = created.json()["id"]
    assert client.get(f"/orders/{oid}").status_code == 200
`
	testID := f.addTest(t, "test_order_lifecycle", code, &f.specID)

	result, err := c.AnalyzeTest(testID)
	require.NoError(t, err)
	assert.Equal(t, AnalysisOK, result.Status)
	assert.Equal(t, 2, result.CallSites)
	assert.Equal(t, 2, result.Matched)

	ids, err := f.cov.EndpointIDsForTest(testID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{f.eps["POST /orders"], f.eps["GET /orders/{orderId}"]}, ids)
}

func TestAnalyzeTestWrongMethodNoMatch(t *testing.T) {
	f := newFixture(t)
	c := f.correlator()

	// /orders only declares GET and POST; a PUT call site extracts but
	// matches nothing.
	testID := f.addTest(t, "t", `client.put("/orders")`, &f.specID)

	result, err := c.AnalyzeTest(testID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CallSites)
	assert.Zero(t, result.Matched)

	ids, err := f.cov.EndpointIDsForTest(testID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestAnalyzeTestUnscopedSearchesFullCatalog(t *testing.T) {
	f := newFixture(t)
	c := f.correlator()

	// No contract association: the numeric segment still normalizes to
	// the parameter shape and matches across the whole catalog.
	testID := f.addTest(t, "t", `requests.get("/orders/42")`, nil)

	result, err := c.AnalyzeTest(testID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Matched)

	ids, err := f.cov.EndpointIDsForTest(testID)
	require.NoError(t, err)
	assert.Equal(t, []int64{f.eps["GET /orders/{orderId}"]}, ids)
}

func TestAnalyzeTestReplacesStaleMappings(t *testing.T) {
	f := newFixture(t)
	c := f.correlator()

	testID := f.addTest(t, "t", `client.get("/orders")`, &f.specID)
	_, err := c.AnalyzeTest(testID)
	require.NoError(t, err)

	// Edit the body so it exercises a different endpoint, then re-analyze.
	require.NoError(t, f.suite.UpdateTestCode(testID, `client.get("/health")`, &f.specID))
	result, err := c.AnalyzeTest(testID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Matched)

	ids, err := f.cov.EndpointIDsForTest(testID)
	require.NoError(t, err)
	assert.Equal(t, []int64{f.eps["GET /health"]}, ids, "stale mapping must not survive re-analysis")
}

func TestAnalyzeTestNotFound(t *testing.T) {
	f := newFixture(t)
	c := f.correlator()

	result, err := c.AnalyzeTest(4242)
	require.NoError(t, err)
	assert.Equal(t, AnalysisNotFound, result.Status)
	assert.Equal(t, int64(4242), result.TestID)
}

func TestAnalyzeTestNoCallSites(t *testing.T) {
	f := newFixture(t)
	c := f.correlator()

	testID := f.addTest(t, "t", `def test_noop():\n    assert True`, &f.specID)
	result, err := c.AnalyzeTest(testID)
	require.NoError(t, err)
	assert.Equal(t, AnalysisOK, result.Status)
	assert.Zero(t, result.CallSites)
	assert.Zero(t, result.Matched)
}

func TestAnalyzeAll(t *testing.T) {
	f := newFixture(t)
	c := f.correlator()

	f.addTest(t, "t1", `client.get("/orders")`, &f.specID)
	f.addTest(t, "t2", `client.delete(f"/orders/{oid}")`, &f.specID)
	f.addTest(t, "t3", `assert True`, &f.specID)

	report, err := c.AnalyzeAll()
	require.NoError(t, err)
	assert.Equal(t, 3, report.Tests)
	assert.Equal(t, 3, report.Analyzed)
	assert.Zero(t, report.Failed)
	assert.Equal(t, 2, report.Mappings)
	assert.Len(t, report.Results, 3)
}

func TestFullRefresh(t *testing.T) {
	f := newFixture(t)
	c := f.correlator()

	f.addTest(t, "t1", `client.get("/orders")`, &f.specID)

	report, err := c.FullRefresh(context.Background(), f.aggregator())
	require.NoError(t, err)

	require.NotNil(t, report.Extraction)
	assert.Equal(t, 1, report.Extraction.Specs)
	require.NotNil(t, report.Analysis)
	assert.Equal(t, 1, report.Analysis.Analyzed)
	require.NotNil(t, report.Summary)
	assert.Equal(t, 5, report.Summary.Total)
	assert.Equal(t, 1, report.Summary.Covered)
}

func TestFullRefreshHonorsContext(t *testing.T) {
	f := newFixture(t)
	c := f.correlator()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FullRefresh(ctx, f.aggregator())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weavesuite/weavesuite/catalog"
	"github.com/weavesuite/weavesuite/errors"
)

func TestSummary(t *testing.T) {
	f := newFixture(t)
	agg := f.aggregator()

	t1 := f.addTest(t, "t1", "pass", nil)
	require.NoError(t, f.cov.ReplaceForTest(t1, []int64{f.eps["GET /orders"], f.eps["GET /health"]}))

	summary, err := agg.Summary(nil)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 2, summary.Covered)
	assert.Equal(t, 3, summary.Uncovered)
	assert.Equal(t, 40.0, summary.Percentage)
}

func TestSummaryRoundsToTwoDecimals(t *testing.T) {
	f := newFixture(t)
	agg := f.aggregator()

	// 1 of 5 covered twice over: distinct endpoints only.
	t1 := f.addTest(t, "t1", "pass", nil)
	t2 := f.addTest(t, "t2", "pass", nil)
	require.NoError(t, f.cov.ReplaceForTest(t1, []int64{f.eps["GET /orders"]}))
	require.NoError(t, f.cov.ReplaceForTest(t2, []int64{f.eps["GET /orders"]}))

	summary, err := agg.Summary(nil)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Total, "coverage rows must not multiply the endpoint count")
	assert.Equal(t, 1, summary.Covered)
	assert.Equal(t, 4, summary.Uncovered)
	assert.Equal(t, 20.0, summary.Percentage)
}

func TestSummaryScopedWithSharedEndpoint(t *testing.T) {
	f := newFixture(t)
	agg := f.aggregator()

	t1 := f.addTest(t, "t1", "pass", nil)
	t2 := f.addTest(t, "t2", "pass", nil)
	t3 := f.addTest(t, "t3", "pass", nil)
	require.NoError(t, f.cov.ReplaceForTest(t1, []int64{f.eps["GET /orders"]}))
	require.NoError(t, f.cov.ReplaceForTest(t2, []int64{f.eps["GET /orders"]}))
	require.NoError(t, f.cov.ReplaceForTest(t3, []int64{f.eps["GET /orders"]}))

	summary, err := agg.Summary(&f.specID)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 1, summary.Covered)
	assert.Equal(t, 20.0, summary.Percentage)
}

func TestSummaryEmptyCatalog(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.catalog.DeleteSpec(f.specID))

	summary, err := f.aggregator().Summary(nil)
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.Zero(t, summary.Percentage, "zero endpoints must yield zero, not a division error")
}

func TestSummaryScopedToSpec(t *testing.T) {
	f := newFixture(t)
	agg := f.aggregator()

	otherID, err := f.catalog.InsertSpec(nil, []byte(`{"paths": {"/widgets": {"get": {}}}}`))
	require.NoError(t, err)
	_, err = f.builder.ExtractSpec(otherID)
	require.NoError(t, err)

	t1 := f.addTest(t, "t1", "pass", nil)
	require.NoError(t, f.cov.ReplaceForTest(t1, []int64{f.eps["GET /orders"]}))

	scoped, err := agg.Summary(&otherID)
	require.NoError(t, err)
	assert.Equal(t, 1, scoped.Total)
	assert.Zero(t, scoped.Covered)

	global, err := agg.Summary(nil)
	require.NoError(t, err)
	assert.Equal(t, 6, global.Total)
	assert.Equal(t, 1, global.Covered)
}

func TestByService(t *testing.T) {
	f := newFixture(t)
	agg := f.aggregator()

	seed := func(name, contract string) int64 {
		msID, err := f.catalog.CreateService(&catalog.Microservice{
			Name:      name,
			Namespace: "default",
			Endpoint:  name + ".default.svc:80",
		})
		require.NoError(t, err)
		specID, err := f.catalog.InsertSpec(&msID, []byte(contract))
		require.NoError(t, err)
		_, err = f.builder.ExtractSpec(specID)
		require.NoError(t, err)
		return specID
	}

	// payments: 1/1 covered. inventory: 1/2 covered. audit: no endpoints.
	paySpec := seed("payments", `{"paths": {"/charges": {"post": {}}}}`)
	invSpec := seed("inventory", `{"paths": {"/stock": {"get": {}, "put": {}}}}`)
	seed("audit", `{"paths": {}}`)

	payEps, err := f.catalog.ListEndpoints(&paySpec)
	require.NoError(t, err)
	invEps, err := f.catalog.ListEndpoints(&invSpec)
	require.NoError(t, err)

	t1 := f.addTest(t, "t1", "pass", nil)
	require.NoError(t, f.cov.ReplaceForTest(t1, []int64{payEps[0].ID, invEps[0].ID}))

	services, err := agg.ByService()
	require.NoError(t, err)
	require.Len(t, services, 2, "zero-endpoint services are excluded")

	assert.Equal(t, "inventory", services[0].Name)
	assert.Equal(t, 50.0, services[0].Percentage)
	assert.Equal(t, "payments", services[1].Name)
	assert.Equal(t, 100.0, services[1].Percentage)

	// A second test over the same inventory endpoint must not inflate its
	// endpoint total.
	t2 := f.addTest(t, "t2", "pass", nil)
	require.NoError(t, f.cov.ReplaceForTest(t2, []int64{invEps[0].ID}))

	services, err = agg.ByService()
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "inventory", services[0].Name)
	assert.Equal(t, 2, services[0].Total)
	assert.Equal(t, 1, services[0].Covered)
	assert.Equal(t, 50.0, services[0].Percentage)
}

func TestUncovered(t *testing.T) {
	f := newFixture(t)
	agg := f.aggregator()

	t1 := f.addTest(t, "t1", "pass", nil)
	require.NoError(t, f.cov.ReplaceForTest(t1, []int64{f.eps["GET /orders"], f.eps["POST /orders"]}))

	uncovered, err := agg.Uncovered(&f.specID)
	require.NoError(t, err)
	require.Len(t, uncovered, 3)
	for _, ep := range uncovered {
		key := ep.Method + " " + ep.Path
		assert.NotContains(t, []string{"GET /orders", "POST /orders"}, key)
	}
}

func TestEndpointDetail(t *testing.T) {
	f := newFixture(t)
	agg := f.aggregator()

	t1 := f.addTest(t, "t1", "pass", nil)
	t2 := f.addTest(t, "t2", "pass", nil)
	listID := f.eps["GET /orders"]
	require.NoError(t, f.cov.ReplaceForTest(t1, []int64{listID}))
	require.NoError(t, f.cov.ReplaceForTest(t2, []int64{listID}))

	detail, err := agg.EndpointDetail(listID)
	require.NoError(t, err)
	assert.Equal(t, "GET", detail.Endpoint.Method)
	require.Len(t, detail.Tests, 2)
	assert.Equal(t, "t1", detail.Tests[0].Name)
	assert.Equal(t, "t2", detail.Tests[1].Name)

	// Uncovered endpoint: empty slice, not nil, not an error.
	detail, err = agg.EndpointDetail(f.eps["GET /health"])
	require.NoError(t, err)
	assert.Empty(t, detail.Tests)

	_, err = agg.EndpointDetail(99999)
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestTestDetail(t *testing.T) {
	f := newFixture(t)
	agg := f.aggregator()

	t1 := f.addTest(t, "t1", "pass", nil)
	require.NoError(t, f.cov.ReplaceForTest(t1, []int64{f.eps["GET /orders"], f.eps["POST /orders"]}))

	detail, err := agg.TestDetail(t1)
	require.NoError(t, err)
	assert.Equal(t, "t1", detail.Test.Name)
	assert.Len(t, detail.Endpoints, 2)

	_, err = agg.TestDetail(99999)
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

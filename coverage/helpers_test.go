package coverage

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/weavesuite/weavesuite/catalog"
	wstest "github.com/weavesuite/weavesuite/internal/testing"
	"github.com/weavesuite/weavesuite/suite"
)

const ordersContract = `{
	"openapi": "3.0.0",
	"info": {"title": "Orders"},
	"paths": {
		"/orders": {
			"get": {"operationId": "listOrders"},
			"post": {"operationId": "createOrder"}
		},
		"/orders/{orderId}": {
			"get": {"operationId": "getOrder"},
			"delete": {"operationId": "deleteOrder"}
		},
		"/health": {
			"get": {"operationId": "health"}
		}
	}
}`

// fixture wires the full store stack over one in-memory database with the
// orders contract already extracted.
type fixture struct {
	db      *sql.DB
	catalog *catalog.Store
	suite   *suite.Store
	cov     *Store
	builder *catalog.Builder
	specID  int64
	eps     map[string]int64 // "GET /orders" -> endpoint id
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := wstest.CreateTestDB(t)
	f := &fixture{
		db:      db,
		catalog: catalog.NewStore(db),
		suite:   suite.NewStore(db),
		cov:     NewStore(db),
	}
	f.builder = catalog.NewBuilder(f.catalog, zap.NewNop().Sugar())

	specID, err := f.catalog.InsertSpec(nil, []byte(ordersContract))
	require.NoError(t, err)
	f.specID = specID

	_, err = f.builder.ExtractSpec(specID)
	require.NoError(t, err)

	endpoints, err := f.catalog.ListEndpoints(&specID)
	require.NoError(t, err)
	f.eps = make(map[string]int64, len(endpoints))
	for _, ep := range endpoints {
		f.eps[ep.Method+" "+ep.Path] = ep.ID
	}
	return f
}

func (f *fixture) correlator() *Correlator {
	return NewCorrelator(f.catalog, f.suite, f.cov, f.builder, zap.NewNop().Sugar())
}

func (f *fixture) aggregator() *Aggregator {
	return NewAggregator(f.db, f.catalog, f.suite, f.cov)
}

func (f *fixture) addTest(t *testing.T, name, code string, specID *int64) int64 {
	t.Helper()
	id, err := f.suite.CreateTest(&suite.Test{Name: name, Code: code, SpecID: specID})
	require.NoError(t, err)
	return id
}

package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	wstest "github.com/weavesuite/weavesuite/internal/testing"
)

const petContract = `{
	"openapi": "3.0.0",
	"info": {"title": "Pets"},
	"paths": {
		"/pets": {
			"get": {"operationId": "listPets", "summary": "List pets", "tags": ["pets"]},
			"post": {"operationId": "createPet"}
		},
		"/pets/{petId}": {
			"get": {"operationId": "getPet", "tags": ["pets", "detail"]},
			"delete": {}
		}
	}
}`

func newTestBuilder(t *testing.T) (*Builder, *Store) {
	t.Helper()
	db := wstest.CreateTestDB(t)
	store := NewStore(db)
	return NewBuilder(store, zap.NewNop().Sugar()), store
}

func TestExtractSpec(t *testing.T) {
	builder, store := newTestBuilder(t)

	specID, err := store.InsertSpec(nil, []byte(petContract))
	require.NoError(t, err)

	report, err := builder.ExtractSpec(specID)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Created)
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, 4, report.Total)

	endpoints, err := store.ListEndpoints(&specID)
	require.NoError(t, err)
	require.Len(t, endpoints, 4)

	byKey := map[string]*Endpoint{}
	for _, ep := range endpoints {
		byKey[ep.Method+" "+ep.Path] = ep
	}
	require.Contains(t, byKey, "GET /pets")
	assert.Equal(t, "listPets", byKey["GET /pets"].OperationID)
	assert.Equal(t, "List pets", byKey["GET /pets"].Summary)
	assert.Equal(t, []string{"pets"}, byKey["GET /pets"].Tags)

	// Missing metadata fields resolve to empty values, never an error.
	require.Contains(t, byKey, "DELETE /pets/{petId}")
	assert.Empty(t, byKey["DELETE /pets/{petId}"].OperationID)
	assert.Empty(t, byKey["DELETE /pets/{petId}"].Tags)
}

func TestExtractSpecIdempotent(t *testing.T) {
	builder, store := newTestBuilder(t)

	specID, err := store.InsertSpec(nil, []byte(petContract))
	require.NoError(t, err)

	_, err = builder.ExtractSpec(specID)
	require.NoError(t, err)
	first, err := store.ListEndpoints(&specID)
	require.NoError(t, err)

	report, err := builder.ExtractSpec(specID)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 4, report.Updated)

	second, err := store.ListEndpoints(&specID)
	require.NoError(t, err)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID, "endpoint ids must be stable across re-extraction")
	}
}

func TestExtractSpecNoPaths(t *testing.T) {
	builder, store := newTestBuilder(t)

	specID, err := store.InsertSpec(nil, []byte(`{"openapi": "3.0.0", "info": {}}`))
	require.NoError(t, err)

	report, err := builder.ExtractSpec(specID)
	require.NoError(t, err)
	assert.Zero(t, report.Total)
}

func TestExtractSpecSkipsMalformedEntries(t *testing.T) {
	builder, store := newTestBuilder(t)

	contract := `{
		"paths": {
			"/good": {"get": {"operationId": "ok"}},
			"/bad-path-entry": "not an object",
			"/bad-operation": {"post": "not an object", "put": {}},
			"/unknown-verbs": {"trace": {}, "connect": {}}
		}
	}`
	specID, err := store.InsertSpec(nil, []byte(contract))
	require.NoError(t, err)

	report, err := builder.ExtractSpec(specID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total) // GET /good and PUT /bad-operation

	endpoints, err := store.ListEndpoints(&specID)
	require.NoError(t, err)
	methods := map[string]bool{}
	for _, ep := range endpoints {
		methods[ep.Method+" "+ep.Path] = true
	}
	assert.True(t, methods["GET /good"])
	assert.True(t, methods["PUT /bad-operation"])
}

func TestExtractSpecNotFound(t *testing.T) {
	builder, _ := newTestBuilder(t)

	_, err := builder.ExtractSpec(9999)
	require.Error(t, err)
}

func TestExtractAllContinuesPastFailures(t *testing.T) {
	builder, store := newTestBuilder(t)

	_, err := store.InsertSpec(nil, []byte(`not json at all`))
	require.NoError(t, err)
	goodID, err := store.InsertSpec(nil, []byte(petContract))
	require.NoError(t, err)

	batch, err := builder.ExtractAll()
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Specs)
	assert.Equal(t, 1, batch.Failed)
	assert.Equal(t, 4, batch.Created)

	endpoints, err := store.ListEndpoints(&goodID)
	require.NoError(t, err)
	assert.Len(t, endpoints, 4)
}

package coverage

import (
	"database/sql"
	"math"
	"sort"

	"github.com/weavesuite/weavesuite/catalog"
	"github.com/weavesuite/weavesuite/errors"
	"github.com/weavesuite/weavesuite/suite"
)

// Aggregator derives read-side coverage views from the stored catalog and
// mappings. All methods are pure queries; nothing here writes.
type Aggregator struct {
	db      *sql.DB
	catalog *catalog.Store
	suite   *suite.Store
	cov     *Store
}

// NewAggregator creates a coverage aggregator over the shared stores.
func NewAggregator(db *sql.DB, catalogStore *catalog.Store, suiteStore *suite.Store, covStore *Store) *Aggregator {
	return &Aggregator{db: db, catalog: catalogStore, suite: suiteStore, cov: covStore}
}

// Summary is the headline coverage statistic, optionally scoped to one
// contract.
type Summary struct {
	Total      int     `json:"total_endpoints"`
	Covered    int     `json:"covered_endpoints"`
	Uncovered  int     `json:"uncovered_endpoints"`
	Percentage float64 `json:"coverage_percentage"`
}

// ServiceCoverage is one service's slice of the catalog and how much of it
// the suite touches.
type ServiceCoverage struct {
	ServiceID  int64   `json:"service_id"`
	Name       string  `json:"name"`
	Namespace  string  `json:"namespace"`
	Total      int     `json:"total_endpoints"`
	Covered    int     `json:"covered_endpoints"`
	Percentage float64 `json:"coverage_percentage"`
}

// EndpointDetail pairs an endpoint with the tests that cover it.
type EndpointDetail struct {
	Endpoint *catalog.Endpoint `json:"endpoint"`
	Tests    []*suite.Test     `json:"tests"`
}

// TestDetail pairs a test with the endpoints it covers.
type TestDetail struct {
	Test      *suite.Test         `json:"test"`
	Endpoints []*catalog.Endpoint `json:"endpoints"`
}

// Summary computes total/covered/uncovered counts and the coverage
// percentage, rounded to two decimals. Zero endpoints yields 0%, never a
// division error.
func (a *Aggregator) Summary(specID *int64) (*Summary, error) {
	var total, covered int
	var err error

	if specID != nil {
		err = a.db.QueryRow(`
			SELECT COUNT(DISTINCT e.id),
			       COUNT(DISTINCT tec.endpoint_id)
			FROM endpoints e
			LEFT JOIN test_endpoint_coverage tec ON tec.endpoint_id = e.id
			WHERE e.spec_id = ?`, *specID).Scan(&total, &covered)
	} else {
		err = a.db.QueryRow(`
			SELECT COUNT(DISTINCT e.id),
			       COUNT(DISTINCT tec.endpoint_id)
			FROM endpoints e
			LEFT JOIN test_endpoint_coverage tec ON tec.endpoint_id = e.id`).
			Scan(&total, &covered)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute coverage summary")
	}

	return &Summary{
		Total:      total,
		Covered:    covered,
		Uncovered:  total - covered,
		Percentage: percentage(covered, total),
	}, nil
}

// ByService breaks coverage down per service, sorted ascending by
// percentage so the widest gaps surface first. Services with zero
// endpoints are excluded.
func (a *Aggregator) ByService() ([]*ServiceCoverage, error) {
	rows, err := a.db.Query(`
		SELECT ms.id, ms.name, ms.namespace,
		       COUNT(DISTINCT e.id) AS total,
		       COUNT(DISTINCT tec.endpoint_id) AS covered
		FROM microservices ms
		JOIN api_specs s ON s.microservice_id = ms.id
		JOIN endpoints e ON e.spec_id = s.id
		LEFT JOIN test_endpoint_coverage tec ON tec.endpoint_id = e.id
		GROUP BY ms.id, ms.name, ms.namespace
		HAVING COUNT(e.id) > 0`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute per-service coverage")
	}
	defer rows.Close()

	var services []*ServiceCoverage
	for rows.Next() {
		var sc ServiceCoverage
		if err := rows.Scan(&sc.ServiceID, &sc.Name, &sc.Namespace, &sc.Total, &sc.Covered); err != nil {
			return nil, errors.Wrap(err, "failed to scan service coverage")
		}
		sc.Percentage = percentage(sc.Covered, sc.Total)
		services = append(services, &sc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating service coverage")
	}

	sort.SliceStable(services, func(i, j int) bool {
		return services[i].Percentage < services[j].Percentage
	})
	return services, nil
}

// Uncovered lists endpoints no test touches, optionally scoped to one
// contract.
func (a *Aggregator) Uncovered(specID *int64) ([]*catalog.Endpoint, error) {
	endpoints, err := a.catalog.ListEndpoints(specID)
	if err != nil {
		return nil, err
	}

	var uncovered []*catalog.Endpoint
	for _, ep := range endpoints {
		testIDs, err := a.cov.TestIDsForEndpoint(ep.ID)
		if err != nil {
			return nil, err
		}
		if len(testIDs) == 0 {
			uncovered = append(uncovered, ep)
		}
	}
	return uncovered, nil
}

// EndpointDetail returns one endpoint together with every test covering
// it. A missing endpoint id surfaces as errors.ErrNotFound for the caller
// to translate into a not-found outcome.
func (a *Aggregator) EndpointDetail(endpointID int64) (*EndpointDetail, error) {
	ep, err := a.catalog.GetEndpoint(endpointID)
	if err != nil {
		return nil, err
	}

	testIDs, err := a.cov.TestIDsForEndpoint(endpointID)
	if err != nil {
		return nil, err
	}

	detail := &EndpointDetail{Endpoint: ep, Tests: []*suite.Test{}}
	for _, id := range testIDs {
		test, err := a.suite.GetTest(id)
		if err != nil {
			return nil, err
		}
		detail.Tests = append(detail.Tests, test)
	}
	return detail, nil
}

// TestDetail returns one test together with every endpoint it covers.
func (a *Aggregator) TestDetail(testID int64) (*TestDetail, error) {
	test, err := a.suite.GetTest(testID)
	if err != nil {
		return nil, err
	}

	endpointIDs, err := a.cov.EndpointIDsForTest(testID)
	if err != nil {
		return nil, err
	}

	detail := &TestDetail{Test: test, Endpoints: []*catalog.Endpoint{}}
	for _, id := range endpointIDs {
		ep, err := a.catalog.GetEndpoint(id)
		if err != nil {
			return nil, err
		}
		detail.Endpoints = append(detail.Endpoints, ep)
	}
	return detail, nil
}

// percentage returns covered/total*100 rounded to two decimals, or 0 when
// total is zero.
func percentage(covered, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(covered)/float64(total)*100*100) / 100
}

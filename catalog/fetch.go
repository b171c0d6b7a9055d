package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/weavesuite/weavesuite/errors"
	"github.com/weavesuite/weavesuite/sym"
)

// Fetcher retrieves contract documents from discovered services and stores
// them as new APISpec rows.
type Fetcher struct {
	store    *Store
	client   *http.Client
	specPath string // default document path probed on each service
	strict   bool
	logger   *zap.SugaredLogger
}

// NewFetcher creates a contract fetcher. specPath is the default document
// path (e.g. "/openapi.json"); a service's own SpecPath overrides it.
func NewFetcher(store *Store, specPath string, timeout time.Duration, logger *zap.SugaredLogger) *Fetcher {
	return &Fetcher{
		store:    store,
		client:   &http.Client{Timeout: timeout},
		specPath: specPath,
		logger:   logger,
	}
}

// SetStrict switches full OpenAPI structural validation from a logged
// warning to a hard rejection: a non-conforming contract is skipped on
// fetch and refused on import.
func (f *Fetcher) SetStrict(strict bool) {
	f.strict = strict
}

// FetchReport summarizes one fetch pass over the discovered services.
type FetchReport struct {
	Updated []string `json:"updated"` // service names with a fresh spec row
	Skipped []string `json:"skipped"` // service names that failed, with reasons logged
}

// FetchAll fetches the contract document of every discovered service and
// stores each as a new spec row stamped with the fetch time. Per-service
// failures are logged and skipped; they never abort the pass.
func (f *Fetcher) FetchAll(ctx context.Context) (*FetchReport, error) {
	services, err := f.store.ListServices()
	if err != nil {
		return nil, err
	}

	report := &FetchReport{}
	for _, svc := range services {
		content, err := f.fetchOne(ctx, svc)
		if err != nil {
			f.logger.Warnw("Failed to fetch contract for service",
				"service", svc.Name,
				"namespace", svc.Namespace,
				"error", err,
				"symbol", sym.Catalog,
			)
			report.Skipped = append(report.Skipped, svc.Name)
			continue
		}

		if _, err := f.store.InsertSpec(&svc.ID, content); err != nil {
			f.logger.Warnw("Failed to store contract for service",
				"service", svc.Name,
				"error", err,
				"symbol", sym.Catalog,
			)
			report.Skipped = append(report.Skipped, svc.Name)
			continue
		}
		report.Updated = append(report.Updated, svc.Name)
	}

	f.logger.Infow("Contract fetch pass complete",
		"updated", len(report.Updated),
		"skipped", len(report.Skipped),
		"symbol", sym.Catalog,
	)
	return report, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, svc *Microservice) ([]byte, error) {
	specPath := svc.SpecPath
	if specPath == "" {
		specPath = f.specPath
	}
	url := fmt.Sprintf("http://%s%s", svc.Endpoint, specPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}

	if err := ValidateDocument(body); err != nil {
		return nil, err
	}
	if err := f.structuralCheck(body, svc.Name); err != nil {
		return nil, err
	}
	return body, nil
}

// ImportFile loads a contract document from a local JSON or YAML file and
// stores it, optionally associated with a service.
func (f *Fetcher) ImportFile(path string, microserviceID *int64) (int64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrapf(err, "read contract file %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		var doc map[string]interface{}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return 0, errors.Wrapf(err, "parse YAML contract %s", path)
		}
		raw, err = json.Marshal(doc)
		if err != nil {
			return 0, errors.Wrapf(err, "convert %s to JSON", path)
		}
	}

	if err := ValidateDocument(raw); err != nil {
		return 0, errors.Wrapf(err, "contract file %s", path)
	}
	if err := f.structuralCheck(raw, path); err != nil {
		return 0, err
	}

	return f.store.InsertSpec(microserviceID, raw)
}

// ValidateDocument loosely validates a contract document: it must carry an
// openapi/swagger version marker, a paths object, or a gateway-style urls
// list. Anything else is rejected before storage.
func ValidateDocument(content []byte) error {
	var doc map[string]interface{}
	if err := json.Unmarshal(content, &doc); err != nil {
		return errors.Wrap(err, "contract is not a JSON object")
	}

	if _, ok := doc["openapi"]; ok {
		return nil
	}
	if _, ok := doc["swagger"]; ok {
		return nil
	}
	if _, ok := doc["paths"]; ok {
		return nil
	}
	if _, ok := doc["urls"]; ok {
		return nil // gateway aggregation document
	}
	return errors.New("document has no openapi/swagger marker, paths object, or urls list")
}

// structuralCheck runs the document through the OpenAPI loader. By default
// a failure is logged and the contract is still stored; the catalog builder
// tolerates partial documents. In strict mode the failure is returned and
// the contract is rejected.
func (f *Fetcher) structuralCheck(content []byte, source string) error {
	loader := openapi3.NewLoader()
	if _, err := loader.LoadFromData(content); err != nil {
		if f.strict {
			return errors.Wrapf(err, "%s failed strict OpenAPI validation", source)
		}
		f.logger.Debugw("Contract failed strict OpenAPI validation",
			"source", source,
			"error", err,
			"symbol", sym.Catalog,
		)
	}
	return nil
}

package catalog

import (
	"encoding/json"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/weavesuite/weavesuite/errors"
	"github.com/weavesuite/weavesuite/sym"
)

// Builder turns stored contract documents into normalized endpoint rows.
type Builder struct {
	store  *Store
	logger *zap.SugaredLogger
}

// NewBuilder creates a new catalog builder
func NewBuilder(store *Store, logger *zap.SugaredLogger) *Builder {
	return &Builder{store: store, logger: logger}
}

// ExtractReport summarizes one contract's extraction.
type ExtractReport struct {
	SpecID  int64 `json:"spec_id"`
	Created int   `json:"created"`
	Updated int   `json:"updated"`
	Total   int   `json:"total"`
}

// BatchExtractReport aggregates extraction across all stored contracts.
type BatchExtractReport struct {
	Specs   int              `json:"specs"`
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Failed  int              `json:"failed"`
	Reports []*ExtractReport `json:"reports"`
	Errors  []string         `json:"errors,omitempty"`
}

// ExtractSpec walks one contract's paths object and upserts an endpoint for
// every (path, verb) pair whose verb is a known HTTP method. All writes for
// the contract commit as a single unit; on failure the batch rolls back and
// the error carries the spec id. A contract without a paths object yields
// zero endpoints, not an error.
func (b *Builder) ExtractSpec(specID int64) (*ExtractReport, error) {
	spec, err := b.store.GetSpec(specID)
	if err != nil {
		return nil, err
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(spec.Content, &doc); err != nil {
		return nil, errors.Wrapf(err, "spec %d: malformed contract document", specID)
	}

	report := &ExtractReport{SpecID: specID}

	paths, ok := doc["paths"].(map[string]interface{})
	if !ok {
		b.logger.Debugw("Contract has no paths object",
			"spec_id", specID,
			"symbol", sym.Catalog,
		)
		return report, nil
	}

	// Map iteration order is randomized; sort for stable endpoint ids
	// across repeated extractions of the same contract.
	pathKeys := make([]string, 0, len(paths))
	for p := range paths {
		pathKeys = append(pathKeys, p)
	}
	sort.Strings(pathKeys)

	tx, err := b.store.db.Begin()
	if err != nil {
		return nil, errors.Wrapf(err, "spec %d: begin extraction", specID)
	}

	for _, path := range pathKeys {
		operations, ok := paths[path].(map[string]interface{})
		if !ok {
			continue // non-object path entry, skip
		}

		for _, verb := range HTTPMethods {
			raw, present := operations[verb]
			if !present {
				// Contracts may carry verbs in any case.
				raw, present = operations[strings.ToUpper(verb)]
			}
			if !present {
				continue
			}
			op, ok := raw.(map[string]interface{})
			if !ok {
				continue // non-object operation entry, skip
			}

			ep := &Endpoint{
				SpecID:      specID,
				Path:        path,
				Method:      strings.ToUpper(verb),
				OperationID: stringField(op, "operationId"),
				Summary:     stringField(op, "summary"),
				Tags:        stringSliceField(op, "tags"),
			}

			created, err := b.store.UpsertEndpoint(tx, ep)
			if err != nil {
				tx.Rollback()
				return nil, errors.Wrapf(err, "spec %d: upsert %s %s", specID, ep.Method, ep.Path)
			}
			if created {
				report.Created++
			} else {
				report.Updated++
			}
			report.Total++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrapf(err, "spec %d: commit extraction", specID)
	}

	b.logger.Infow("Extracted endpoints from contract",
		"spec_id", specID,
		"created", report.Created,
		"updated", report.Updated,
		"symbol", sym.Catalog,
	)
	return report, nil
}

// ExtractAll extracts endpoints from every stored contract. One contract's
// failure is recorded and does not abort the batch.
func (b *Builder) ExtractAll() (*BatchExtractReport, error) {
	ids, err := b.store.ListSpecIDs()
	if err != nil {
		return nil, err
	}

	batch := &BatchExtractReport{Specs: len(ids)}
	for _, id := range ids {
		report, err := b.ExtractSpec(id)
		if err != nil {
			b.logger.Warnw("Contract extraction failed",
				"spec_id", id,
				"error", err,
				"symbol", sym.Catalog,
			)
			batch.Failed++
			batch.Errors = append(batch.Errors, err.Error())
			continue
		}
		batch.Created += report.Created
		batch.Updated += report.Updated
		batch.Reports = append(batch.Reports, report)
	}
	return batch, nil
}

func stringField(obj map[string]interface{}, key string) string {
	if v, ok := obj[key].(string); ok {
		return v
	}
	return ""
}

func stringSliceField(obj map[string]interface{}, key string) []string {
	raw, ok := obj[key].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

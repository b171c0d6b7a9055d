// Package catalog maintains the endpoint catalog: discovered services,
// their fetched API contract documents, and the normalized endpoint rows
// extracted from those documents.
package catalog

import "time"

// Microservice is a discovered service record. Discovery itself happens
// outside this system; rows are written by collaborators (or imported via
// the CLI) and read here for per-service coverage breakdowns.
type Microservice struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Endpoint  string `json:"endpoint"`  // host:port reachable from this process
	SpecPath  string `json:"spec_path"` // contract document path, empty = use configured default
}

// APISpec is one fetched contract document. Immutable once stored; a
// re-fetch inserts a new row, it never mutates an existing one.
type APISpec struct {
	ID             int64     `json:"id"`
	MicroserviceID *int64    `json:"microservice_id,omitempty"`
	Content        []byte    `json:"content"` // raw JSON document
	FetchedAt      time.Time `json:"fetched_at"`
}

// Endpoint is one (path, method) entry drawn from a contract. The
// (SpecID, Path, Method) triple is unique; re-extraction updates metadata
// on the existing row rather than duplicating it.
type Endpoint struct {
	ID          int64    `json:"id"`
	SpecID      int64    `json:"spec_id"`
	Path        string   `json:"path"`
	Method      string   `json:"method"` // always uppercase
	OperationID string   `json:"operation_id,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// HTTPMethods are the verbs recognized when walking a contract's paths
// object, in the order they are emitted for one path.
var HTTPMethods = []string{"get", "post", "put", "delete", "patch", "head", "options"}

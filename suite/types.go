// Package suite holds the generated test records shared by the coverage
// correlator and the isolated execution engine.
package suite

import "time"

// Test statuses. A test is pending only before its first execution;
// afterwards it always holds one of the terminal statuses.
const (
	StatusPending = "pending"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusError   = "error"
)

// Test is one generated test unit. The body is produced by the generation
// pipeline (an external collaborator); both core subsystems consume and
// mutate the execution state here.
type Test struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"` // globally unique
	Code       string `json:"code"`
	SpecID     *int64 `json:"spec_id,omitempty"`     // provenance: contract this test was generated from
	TemplateID *int64 `json:"template_id,omitempty"` // optional shared preamble

	Status          string     `json:"status"`
	LastExecution   *time.Time `json:"last_execution,omitempty"`
	ExecutionTime   float64    `json:"execution_time"` // seconds
	ErrorMessage    string     `json:"error_message,omitempty"`
	ServicesVisited []string   `json:"services_visited"`
}

// TestTemplate is a named, reusable preamble (imports, fixtures) shared by
// many tests.
type TestTemplate struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExecutionResult carries the outcome of one runner invocation back into
// the test record.
type ExecutionResult struct {
	Status        string  `json:"status"`
	ErrorMessage  string  `json:"error_message,omitempty"`
	ExecutionTime float64 `json:"execution_time"` // seconds
}

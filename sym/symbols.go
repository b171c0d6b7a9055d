// Package sym defines canonical symbols for WeaveSuite subsystems and
// system markers. These symbols are stable across CLI output, logs, and
// documentation.
package sym

// Subsystem symbols — used as log fields and CLI section headers.
const (
	Catalog  = "⊞" // endpoint catalog (specs, endpoints)
	Coverage = "⋈" // coverage correlation and reporting
	Sandbox  = "⌁" // isolated test execution
	Suite    = "▣" // generated test suite records
	DB       = "⊔" // database/storage layer
)

// Lifecycle markers for long-running batch operations.
const (
	Open  = "✿" // batch start (workspace acquisition, refresh begin)
	Close = "❀" // batch end (workspace release, refresh complete)
)

package config

// Config represents the core WeaveSuite configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Runner   RunnerConfig   `mapstructure:"runner"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RunnerConfig configures the isolated test execution engine
type RunnerConfig struct {
	// Python is the interpreter used to launch the pytest runner.
	Python string `mapstructure:"python"`
	// TimeoutSeconds bounds a single runner invocation (default: 300).
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	// Workers is the number of concurrent test executions in a batch.
	Workers int `mapstructure:"workers"`
	// LaunchesPerSecond paces runner process launches in a batch.
	LaunchesPerSecond float64 `mapstructure:"launches_per_second"`
	// WorkspaceCandidates are tried in order when acquiring the ephemeral
	// workspace. In Kubernetes these are typically tmpfs mounts.
	WorkspaceCandidates []string `mapstructure:"workspace_candidates"`
	// MinFreeBytes is the minimum free space a candidate mount must have.
	MinFreeBytes uint64 `mapstructure:"min_free_bytes"`
}

// FetchConfig configures contract document fetching from discovered services
type FetchConfig struct {
	// SpecPath is the default path probed on each service endpoint.
	SpecPath string `mapstructure:"spec_path"`
	// TimeoutSeconds bounds a single fetch request.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

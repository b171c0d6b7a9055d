package config

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "weavesuite.db")

	// Runner defaults
	v.SetDefault("runner.python", "python3")
	v.SetDefault("runner.timeout_seconds", 300) // 5 minute ceiling per test
	v.SetDefault("runner.workers", 1)
	v.SetDefault("runner.launches_per_second", 2.0)
	v.SetDefault("runner.workspace_candidates", []string{
		"/tmp",       // primary tmpfs mount
		"/app/cache", // application-specific cache directory
		"/var/run",   // alternative tmpfs mount
	})
	v.SetDefault("runner.min_free_bytes", 16*1024*1024) // 16 MiB

	// Fetch defaults
	v.SetDefault("fetch.spec_path", "/openapi.json")
	v.SetDefault("fetch.timeout_seconds", 5)
}

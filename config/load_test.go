package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	// Create isolated viper instance without loading user/system config
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, "weavesuite.db", cfg.Database.Path)
	assert.Equal(t, "python3", cfg.Runner.Python)
	assert.Equal(t, 300, cfg.Runner.TimeoutSeconds)
	assert.Equal(t, 1, cfg.Runner.Workers)
	assert.Equal(t, []string{"/tmp", "/app/cache", "/var/run"}, cfg.Runner.WorkspaceCandidates)
	assert.Equal(t, "/openapi.json", cfg.Fetch.SpecPath)
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "weavesuite.toml")
	content := `
[database]
path = "/data/suite.db"

[runner]
python = "/usr/bin/python3.12"
timeout_seconds = 60
workers = 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/suite.db", cfg.Database.Path)
	assert.Equal(t, "/usr/bin/python3.12", cfg.Runner.Python)
	assert.Equal(t, 60, cfg.Runner.TimeoutSeconds)
	assert.Equal(t, 4, cfg.Runner.Workers)
	// Unset keys keep their defaults
	assert.Equal(t, "/openapi.json", cfg.Fetch.SpecPath)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestReset(t *testing.T) {
	Reset()
	cfg1, err := Load()
	require.NoError(t, err)
	Reset()
	cfg2, err := Load()
	require.NoError(t, err)
	assert.NotSame(t, cfg1, cfg2)
}

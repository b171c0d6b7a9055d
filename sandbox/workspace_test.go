package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/weavesuite/weavesuite/config"
	wstest "github.com/weavesuite/weavesuite/internal/testing"
	"github.com/weavesuite/weavesuite/suite"
)

func newWorkspaceEngine(t *testing.T, candidates ...string) *Engine {
	t.Helper()
	db := wstest.CreateTestDB(t)
	cfg := config.RunnerConfig{WorkspaceCandidates: candidates}
	e := NewEngine(cfg, suite.NewStore(db), zap.NewNop().Sugar())
	t.Cleanup(e.Release)
	return e
}

func TestAcquireUsesFirstViableCandidate(t *testing.T) {
	base := t.TempDir()
	e := newWorkspaceEngine(t, base)

	dir, err := e.Acquire()
	require.NoError(t, err)
	assert.Equal(t, base, filepath.Dir(dir))
	assert.True(t, strings.HasPrefix(filepath.Base(dir), "weavesuite_runs_"))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestAcquireSkipsMissingCandidates(t *testing.T) {
	base := t.TempDir()
	e := newWorkspaceEngine(t, "/nonexistent/mount", base)

	dir, err := e.Acquire()
	require.NoError(t, err)
	assert.Equal(t, base, filepath.Dir(dir))
}

func TestAcquireIsMemoized(t *testing.T) {
	e := newWorkspaceEngine(t, t.TempDir())

	first, err := e.Acquire()
	require.NoError(t, err)
	second, err := e.Acquire()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAcquireReacquiresAfterExternalRemoval(t *testing.T) {
	e := newWorkspaceEngine(t, t.TempDir())

	first, err := e.Acquire()
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(first))

	second, err := e.Acquire()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	_, err = os.Stat(second)
	assert.NoError(t, err)
}

func TestAcquireFallsBackToSystemTempDir(t *testing.T) {
	e := newWorkspaceEngine(t, "/nonexistent/a", "/nonexistent/b")

	dir, err := e.Acquire()
	require.NoError(t, err)
	_, err = os.Stat(dir)
	assert.NoError(t, err)
}

func TestReleaseRemovesWorkspace(t *testing.T) {
	e := newWorkspaceEngine(t, t.TempDir())

	dir, err := e.Acquire()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test_left_behind.py"), []byte("pass"), 0o644))

	e.Release()
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))

	// Releasing again is a no-op.
	e.Release()
}

func TestReleaseRemovesReadOnlyFiles(t *testing.T) {
	e := newWorkspaceEngine(t, t.TempDir())

	dir, err := e.Acquire()
	require.NoError(t, err)
	readonly := filepath.Join(dir, "frozen")
	require.NoError(t, os.WriteFile(readonly, []byte("x"), 0o444))
	require.NoError(t, os.Chmod(readonly, 0o444))

	e.Release()
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestAcquireRejectsCandidateBelowFreeSpaceFloor(t *testing.T) {
	db := wstest.CreateTestDB(t)
	candidate := t.TempDir()
	cfg := config.RunnerConfig{
		WorkspaceCandidates: []string{candidate},
		// No disk satisfies this floor, so the candidate is rejected and
		// the engine falls through to the system temp dir.
		MinFreeBytes: 1 << 62,
	}
	e := NewEngine(cfg, suite.NewStore(db), zap.NewNop().Sugar())
	t.Cleanup(e.Release)

	dir, err := e.Acquire()
	require.NoError(t, err)
	assert.NotEqual(t, candidate, filepath.Dir(dir))
	assert.True(t, strings.HasPrefix(filepath.Base(dir), "weavesuite_runs_"))
}

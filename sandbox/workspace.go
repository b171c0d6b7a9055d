package sandbox

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/weavesuite/weavesuite/errors"
	"github.com/weavesuite/weavesuite/sym"
)

// Acquire returns the engine's workspace directory, creating it on first
// use. Configured candidate mounts are tried in order (in Kubernetes these
// are tmpfs volumes); each must exist, have enough free space, and pass a
// probe write. When every candidate fails, a system temp directory is the
// last resort before giving up.
func (e *Engine) Acquire() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.workspace != "" {
		if _, err := os.Stat(e.workspace); err == nil {
			return e.workspace, nil
		}
		// Removed out from under us; reacquire.
		e.workspace = ""
	}

	for _, base := range e.cfg.WorkspaceCandidates {
		dir, err := e.tryCandidate(base)
		if err != nil {
			e.logger.Debugw("Workspace candidate rejected",
				"base", base,
				"error", err,
				"symbol", sym.Sandbox,
			)
			continue
		}
		e.workspace = dir
		e.logger.Infow("Acquired workspace", "dir", dir, "symbol", sym.Sandbox)
		return dir, nil
	}

	if dir, err := os.MkdirTemp("", "weavesuite_runs_"); err == nil {
		os.Chmod(dir, 0o755)
		e.workspace = dir
		e.logger.Infow("Acquired workspace via system temp dir",
			"dir", dir,
			"symbol", sym.Sandbox,
		)
		return dir, nil
	}

	return "", errors.WithHint(
		errors.Wrap(errors.ErrNoWorkspace, "unable to create workspace directory"),
		"no writable ephemeral storage found; check that tmpfs volumes are mounted",
	)
}

// tryCandidate creates a uniquely-named workspace under one candidate mount
// and verifies it is actually usable.
func (e *Engine) tryCandidate(base string) (string, error) {
	info, err := os.Stat(base)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", errors.Newf("%s is not a directory", base)
	}

	if usage, err := disk.Usage(base); err == nil && e.cfg.MinFreeBytes > 0 && usage.Free < e.cfg.MinFreeBytes {
		return "", errors.Newf("insufficient free space on %s: %d bytes free, need %d",
			base, usage.Free, e.cfg.MinFreeBytes)
	}

	dir := filepath.Join(base, fmt.Sprintf("weavesuite_runs_%d_%d", time.Now().Unix(), os.Getpid()))
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", err
	}

	// A stat can lie on a read-only or full mount; prove writability.
	probe := filepath.Join(dir, ".probe")
	if err := os.WriteFile(probe, []byte("probe"), 0o644); err != nil {
		os.Remove(dir)
		return "", err
	}
	os.Remove(probe)

	return dir, nil
}

// Release removes the workspace and everything in it. Safe to call when
// nothing was acquired. Cleanup failures are logged, never returned, so a
// stubborn file cannot fail the batch that just finished.
func (e *Engine) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.workspace == "" {
		return
	}
	dir := e.workspace
	e.workspace = ""

	// Read-only leftovers from a runner would otherwise block removal.
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil {
			os.Chmod(path, 0o777)
		}
		return nil
	})

	if err := os.RemoveAll(dir); err != nil {
		e.logger.Warnw("Failed to clean up workspace",
			"dir", dir,
			"error", err,
			"symbol", sym.Sandbox,
		)
		return
	}
	e.logger.Infow("Released workspace", "dir", dir, "symbol", sym.Sandbox)
}

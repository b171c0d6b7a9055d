package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/weavesuite/weavesuite/config"
	"github.com/weavesuite/weavesuite/errors"
)

// RunOutput is the raw outcome of one runner invocation.
type RunOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// Runner invokes the external test runner on one materialized unit file.
// A non-zero runner exit is a verdict, not an error; Run only errors when
// the runner could not be launched at all.
type Runner interface {
	Run(ctx context.Context, unitFile string) (*RunOutput, error)
}

// PytestRunner shells out to pytest under a per-invocation timeout.
type PytestRunner struct {
	python  string
	timeout time.Duration
}

// NewPytestRunner builds the production runner from config, falling back
// to python3 and a five minute timeout.
func NewPytestRunner(cfg config.RunnerConfig) *PytestRunner {
	python := cfg.Python
	if python == "" {
		python = "python3"
	}
	return &PytestRunner{python: python, timeout: runnerTimeout(cfg)}
}

func runnerTimeout(cfg config.RunnerConfig) time.Duration {
	if cfg.TimeoutSeconds > 0 {
		return time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return 5 * time.Minute
}

func timeoutMessage(timeout time.Duration) string {
	if timeout < time.Minute {
		return fmt.Sprintf("Test execution timed out after %d seconds", int(timeout.Seconds()))
	}
	return fmt.Sprintf("Test execution timed out after %d minutes", int(timeout.Minutes()))
}

// Run executes pytest on one unit file. Deadline expiry is reported in the
// output, not as an error, so the caller classifies it like any other
// terminal outcome.
func (r *PytestRunner) Run(ctx context.Context, unitFile string) (*RunOutput, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.python, "-m", "pytest", unitFile, "-v", "--tb=short", "--no-header")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := &RunOutput{Stdout: stdout.String(), Stderr: stderr.String()}

	if runCtx.Err() == context.DeadlineExceeded {
		out.TimedOut = true
		return out, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
			return out, nil
		}
		return nil, errors.Wrapf(err, "failed to launch runner for %s", unitFile)
	}
	return out, nil
}

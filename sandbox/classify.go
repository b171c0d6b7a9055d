package sandbox

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/weavesuite/weavesuite/suite"
)

// messageLimit bounds stored error messages; runner tracebacks can run to
// many kilobytes.
const messageLimit = 500

var (
	failedLineRe = regexp.MustCompile(`FAILED[^\n]*`)
	errorLineRe  = regexp.MustCompile(`ERROR[^\n]*`)

	// The summary-line form is preferred; the bare "in 1.23s" form catches
	// truncated output.
	durationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\d+\s+(?:passed|failed|error)(?:,\s*\d+\s*(?:passed|failed|error))?\s+in\s+([\d.]+)s`),
		regexp.MustCompile(`(?i)in\s+([\d.]+)s`),
	}
)

// Classify maps raw runner output onto a terminal execution result. Exit
// code first, then output markers, then targeted diagnoses for the common
// broken-test-code failure modes, which override whatever came before.
// It is a pure function over the captured text and never fails itself.
func Classify(out *RunOutput) *suite.ExecutionResult {
	result := &suite.ExecutionResult{
		ExecutionTime: ParseDuration(out.Stdout),
	}

	switch {
	case out.ExitCode == 0:
		result.Status = suite.StatusPassed
	case out.ExitCode == 1:
		result.Status = suite.StatusFailed
	default:
		result.Status = suite.StatusError
	}

	combined := out.Stdout + "\n" + out.Stderr

	// Marker reclassification never demotes a clean exit: a passing test
	// whose own output echoes FAILED or ERROR stays passed.
	switch {
	case out.ExitCode != 0 && strings.Contains(out.Stdout, "FAILED"):
		result.Status = suite.StatusFailed
		if line := failedLineRe.FindString(combined); line != "" {
			result.ErrorMessage = line
		} else {
			result.ErrorMessage = "Test failed (see logs for details)"
		}
	case (out.ExitCode != 0 && strings.Contains(combined, "ERROR")) || out.ExitCode > 1:
		result.Status = suite.StatusError
		switch {
		case strings.TrimSpace(out.Stderr) != "":
			result.ErrorMessage = truncate(strings.TrimSpace(out.Stderr), messageLimit)
		case strings.Contains(out.Stdout, "ERROR"):
			if line := errorLineRe.FindString(out.Stdout); line != "" {
				result.ErrorMessage = line
			} else {
				result.ErrorMessage = "Test execution error (see logs for details)"
			}
		}
	}

	// Broken test code beats any generic classification.
	switch {
	case strings.Contains(combined, "ImportError"):
		result.Status = suite.StatusError
		result.ErrorMessage = "Import error - missing dependencies or incorrect imports"
	case strings.Contains(combined, "SyntaxError"):
		result.Status = suite.StatusError
		result.ErrorMessage = "Syntax error in test code"
	case strings.Contains(combined, "ModuleNotFoundError"):
		result.Status = suite.StatusError
		result.ErrorMessage = "Module not found - missing dependencies"
	}

	if result.ErrorMessage == "" && result.Status != suite.StatusPassed {
		result.ErrorMessage = lastLines(combined, 3)
		if result.ErrorMessage == "" {
			result.ErrorMessage = "Unknown error"
		}
	}
	return result
}

// ParseDuration recovers the execution time from the runner's own summary
// line ("2 passed in 1.23s"). Best effort: an unrecognized format yields
// zero, never an error.
func ParseDuration(stdout string) float64 {
	for _, re := range durationPatterns {
		m := re.FindStringSubmatch(stdout)
		if m == nil {
			continue
		}
		if v, err := strconv.ParseFloat(m[len(m)-1], 64); err == nil {
			return v
		}
	}
	return 0
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

func lastLines(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return truncate(strings.Join(lines, "\n"), messageLimit)
}

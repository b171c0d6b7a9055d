package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/weavesuite/weavesuite/errors"
	"github.com/weavesuite/weavesuite/suite"
)

// defaultPreamble is prepended when a test has no template; generated
// bodies assume these imports exist.
const defaultPreamble = "import pytest\nimport requests\n\n"

// assembleUnit combines template code with a test body into one runnable
// source text. Template code is padded to end in a blank line so the body
// never fuses onto its last statement.
func assembleUnit(templateCode, body string) string {
	if templateCode == "" {
		return defaultPreamble + body
	}
	if !strings.HasSuffix(templateCode, "\n") {
		templateCode += "\n"
	}
	if !strings.HasSuffix(templateCode, "\n\n") {
		templateCode += "\n"
	}
	return templateCode + body
}

// materialize writes the assembled unit into the workspace under a unique
// pytest-collectable name, so concurrent executions of same-named tests
// never collide on a file.
func (e *Engine) materialize(workspace string, test *suite.Test, templateCode string) (string, error) {
	name := fmt.Sprintf("test_%s_%s.py", sanitizeName(test.Name), uuid.NewString()[:8])
	path := filepath.Join(workspace, name)

	if err := os.WriteFile(path, []byte(assembleUnit(templateCode, test.Code)), 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write unit file for test %s", test.Name)
	}
	return path, nil
}

// sanitizeName keeps a test name filesystem- and pytest-safe.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

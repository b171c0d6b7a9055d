package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weavesuite/weavesuite/suite"
)

func TestAssembleUnit(t *testing.T) {
	tests := []struct {
		name     string
		template string
		body     string
		want     string
	}{
		{
			name: "no template gets default preamble",
			body: "def test_x():\n    pass\n",
			want: "import pytest\nimport requests\n\ndef test_x():\n    pass\n",
		},
		{
			name:     "template without trailing newline is padded",
			template: "import helpers",
			body:     "def test_x():\n    pass\n",
			want:     "import helpers\n\ndef test_x():\n    pass\n",
		},
		{
			name:     "template with single trailing newline is padded",
			template: "import helpers\n",
			body:     "body",
			want:     "import helpers\n\nbody",
		},
		{
			name:     "template already padded is untouched",
			template: "import helpers\n\n",
			body:     "body",
			want:     "import helpers\n\nbody",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, assembleUnit(tt.template, tt.body))
		})
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "orders_create", sanitizeName("orders_create"))
	assert.Equal(t, "orders_create_v2", sanitizeName("orders/create v2"))
	assert.Equal(t, "_", sanitizeName("."))
}

func TestMaterialize(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	workspace, err := e.Acquire()
	require.NoError(t, err)

	test := &suite.Test{Name: "orders_create", Code: "def test_orders_create():\n    pass\n"}

	path, err := e.materialize(workspace, test, "")
	require.NoError(t, err)
	assert.Equal(t, workspace, filepath.Dir(path))

	base := filepath.Base(path)
	assert.True(t, strings.HasPrefix(base, "test_orders_create_"), "got %s", base)
	assert.True(t, strings.HasSuffix(base, ".py"), "got %s", base)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, defaultPreamble+test.Code, string(content))

	// Same test materialized twice must land in two distinct files.
	path2, err := e.materialize(workspace, test, "")
	require.NoError(t, err)
	assert.NotEqual(t, path, path2)
}

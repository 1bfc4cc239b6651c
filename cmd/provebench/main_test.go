package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunPrintsFatalErrorToStderr(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	root := newRootCmd(discardLogger())
	root.SetArgs([]string{"run", "--config", missing})
	root.SetOut(io.Discard)

	var stderr bytes.Buffer
	code := run(root, &stderr)

	assert.Equal(t, 1, code)

	// The diagnostic names the target path and the underlying cause.
	out := stderr.String()
	assert.Contains(t, out, "Error:")
	assert.Contains(t, out, missing)
}

func TestRunPrintsInvalidDeclarationDiagnostic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
axes:
  - name: sector_size
    values: []
pipeline:
  binary: ./simproof
`), 0o644))

	root := newRootCmd(discardLogger())
	root.SetArgs([]string{"run", "--config", path})
	root.SetOut(io.Discard)

	var stderr bytes.Buffer
	code := run(root, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "no values")
}

func TestRunSucceedsSilently(t *testing.T) {
	root := newRootCmd(discardLogger())
	root.SetArgs([]string{"--help"})
	root.SetOut(io.Discard)

	var stderr bytes.Buffer
	code := run(root, &stderr)

	assert.Equal(t, 0, code)
	assert.Empty(t, stderr.String())
}

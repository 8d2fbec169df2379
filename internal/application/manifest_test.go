package application

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ember.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadManifest_ParsesFilesAndOptions(t *testing.T) {
	path := writeManifest(t, `
files:
  - main.ember
  - lib.ember
target: x86_64-pc-linux-gnu
optimization_level: 2
debug_info: true
warnings_as_errors: true
`)
	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.ember", "lib.ember"}, m.Files)
	assert.Equal(t, "x86_64-pc-linux-gnu", m.Target)
	assert.Equal(t, 2, m.OptimizationLevel)
	assert.True(t, m.DebugInfo)
	assert.True(t, m.WarningsAsErrors)
}

func TestLoadManifest_NoFilesIsAnError(t *testing.T) {
	path := writeManifest(t, "target: x86_64-pc-linux-gnu\n")
	_, err := LoadManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no files")
}

func TestLoadManifest_MissingFileIsAnError(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

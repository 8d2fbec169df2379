package infrastructure

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBinary writes an executable shell script standing in for a real LLVM
// tool, so these tests exercise LLIJITHost/LLCAOTHost's argument-building
// and error-plumbing without depending on an installed LLVM toolchain.
func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-tool")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestLLIJITHost_SuccessReturnsZero(t *testing.T) {
	host := &LLIJITHost{LLIPath: fakeBinary(t, "exit 0\n")}
	code, err := host.Run("; module\n", "main")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestLLIJITHost_NonZeroExitPropagatesCode(t *testing.T) {
	host := &LLIJITHost{LLIPath: fakeBinary(t, "echo boom >&2\nexit 7\n")}
	code, err := host.Run("; module\n", "main")
	require.Error(t, err)
	assert.Equal(t, 7, code)
	assert.Contains(t, err.Error(), "boom")
}

func TestLLIJITHost_NonDefaultEntryPointPassesFlag(t *testing.T) {
	host := &LLIJITHost{LLIPath: fakeBinary(t, `
		for a in "$@"; do
			case "$a" in
				-entry-function=*) exit 0 ;;
			esac
		done
		exit 1
	`)}
	code, err := host.Run("; module\n", "start")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestLLIJITHost_DefaultMainEntryPointOmitsFlag(t *testing.T) {
	host := &LLIJITHost{LLIPath: fakeBinary(t, `
		for a in "$@"; do
			case "$a" in
				-entry-function=*) exit 1 ;;
			esac
		done
		exit 0
	`)}
	code, err := host.Run("; module\n", "main")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestLLIJITHost_MissingBinaryIsReportedAsError(t *testing.T) {
	host := &LLIJITHost{LLIPath: filepath.Join(t.TempDir(), "does-not-exist")}
	_, err := host.Run("; module\n", "main")
	require.Error(t, err)
}

func TestNewLLIJITHost_DefaultsToPathLookup(t *testing.T) {
	host := NewLLIJITHost()
	assert.Equal(t, "lli", host.LLIPath)
}

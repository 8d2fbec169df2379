package infrastructure

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLCAOTHost_EmitObjectPassesObjFiletype(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.o")
	host := &LLCAOTHost{LLCPath: fakeBinary(t, `
		for a in "$@"; do
			case "$a" in
				-filetype=obj) exit 0 ;;
			esac
		done
		exit 1
	`)}
	err := host.EmitObject("; module\n", out, "")
	require.NoError(t, err)
}

func TestLLCAOTHost_EmitAssemblyPassesAsmFiletype(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.s")
	host := &LLCAOTHost{LLCPath: fakeBinary(t, `
		for a in "$@"; do
			case "$a" in
				-filetype=asm) exit 0 ;;
			esac
		done
		exit 1
	`)}
	err := host.EmitAssembly("; module\n", out, "")
	require.NoError(t, err)
}

func TestLLCAOTHost_TripleIsPassedWhenSet(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.o")
	host := &LLCAOTHost{LLCPath: fakeBinary(t, `
		for a in "$@"; do
			case "$a" in
				-mtriple=x86_64-pc-linux-gnu) exit 0 ;;
			esac
		done
		exit 1
	`)}
	err := host.EmitObject("; module\n", out, "x86_64-pc-linux-gnu")
	require.NoError(t, err)
}

func TestLLCAOTHost_FailureIncludesStderr(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.o")
	host := &LLCAOTHost{LLCPath: fakeBinary(t, "echo bad triple >&2\nexit 1\n")}
	err := host.EmitObject("; module\n", out, "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad triple")
}

func TestNewLLCAOTHost_DefaultsToPathLookup(t *testing.T) {
	host := NewLLCAOTHost()
	assert.Equal(t, "llc", host.LLCPath)
}

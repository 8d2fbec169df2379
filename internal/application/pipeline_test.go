package application

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRealPipeline() *CompilerPipeline {
	f := NewCompilerFactory(CompilerConfig{ErrorOutput: &bytes.Buffer{}})
	return f.CreateCompilerPipeline()
}

func TestCompilerPipeline_ValidatesComponentsBeforeCompiling(t *testing.T) {
	p := NewCompilerPipeline()
	var out bytes.Buffer
	err := p.Compile("x.ember", strings.NewReader(""), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestCompilerPipeline_CompilesSimpleFunction(t *testing.T) {
	p := newRealPipeline()
	var out bytes.Buffer
	err := p.Compile("ok.ember", strings.NewReader(`fn add(a: i32, b: i32): i32 { return a + b; }`), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "define i32 @add")
}

func TestCompilerPipeline_ParseErrorsHaltCompilation(t *testing.T) {
	p := newRealPipeline()
	var out bytes.Buffer
	err := p.Compile("bad.ember", strings.NewReader(`fn ( { }`), &out)
	require.Error(t, err)
	assert.Empty(t, out.String())
}

func TestCompilerPipeline_SemanticErrorsHaltBeforeGeneration(t *testing.T) {
	p := newRealPipeline()
	var out bytes.Buffer
	err := p.Compile("bad.ember", strings.NewReader(`fn f(): i32 { return undeclaredThing; }`), &out)
	require.Error(t, err)
	assert.Empty(t, out.String())
}

func TestCompilerPipeline_ResetClearsReporterAndSymbolTable(t *testing.T) {
	p := newRealPipeline()
	var out bytes.Buffer
	_ = p.Compile("bad.ember", strings.NewReader(`fn f(): i32 { return undeclaredThing; }`), &out)

	p.Reset()
	out.Reset()
	err := p.Compile("ok.ember", strings.NewReader(`fn add(a: i32, b: i32): i32 { return a + b; }`), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "define i32 @add")
}

func TestMultiFileCompilerPipeline_MergesDeclarationsAcrossFiles(t *testing.T) {
	f := NewCompilerFactory(CompilerConfig{ErrorOutput: &bytes.Buffer{}})
	p := f.CreateMultiFileCompilerPipeline()

	files := map[string]io.Reader{
		"a.ember": strings.NewReader(`fn callHelper(): i32 { return helper(); }`),
		"b.ember": strings.NewReader(`fn helper(): i32 { return 42; }`),
	}

	var out bytes.Buffer
	err := p.CompileFiles(files, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "define i32 @callHelper")
	assert.Contains(t, out.String(), "define i32 @helper")
}

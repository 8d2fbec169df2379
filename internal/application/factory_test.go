package application

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberlang/ember/internal/codegen"
	"github.com/emberlang/ember/internal/infrastructure"
	"github.com/emberlang/ember/internal/lexer"
	"github.com/emberlang/ember/internal/parser"
	"github.com/emberlang/ember/internal/semantic"
)

func TestFactory_RealComponentsByDefault(t *testing.T) {
	f := NewCompilerFactory(DefaultCompilerConfig())

	assert.IsType(t, lexer.New(), f.CreateLexer())
	assert.IsType(t, parser.New(), f.CreateParser())
	assert.IsType(t, semantic.NewAnalyzer(), f.CreateSemanticAnalyzer())
	assert.IsType(t, codegen.NewGenerator(), f.CreateCodeGenerator())
}

func TestFactory_MockComponentsWhenConfigured(t *testing.T) {
	f := NewCompilerFactory(CompilerConfig{UseMockComponents: true, ErrorOutput: &bytes.Buffer{}})

	assert.IsType(t, &MockLexer{}, f.CreateLexer())
	assert.IsType(t, &MockParser{}, f.CreateParser())
	assert.IsType(t, &MockSemanticAnalyzer{}, f.CreateSemanticAnalyzer())
	assert.IsType(t, &MockCodeGenerator{}, f.CreateCodeGenerator())
}

func TestFactory_JITAndAOTHostsNeverMocked(t *testing.T) {
	f := NewCompilerFactory(CompilerConfig{UseMockComponents: true, ErrorOutput: &bytes.Buffer{}})

	assert.IsType(t, &infrastructure.LLIJITHost{}, f.CreateJITHost())
	assert.IsType(t, &infrastructure.LLCAOTHost{}, f.CreateAOTHost())
}

func TestFactory_CustomLLIAndLLCPathsPropagate(t *testing.T) {
	f := NewCompilerFactory(CompilerConfig{ErrorOutput: &bytes.Buffer{}, LLIPath: "/opt/llvm/bin/lli", LLCPath: "/opt/llvm/bin/llc"})

	jit := f.CreateJITHost().(*infrastructure.LLIJITHost)
	aot := f.CreateAOTHost().(*infrastructure.LLCAOTHost)
	assert.Equal(t, "/opt/llvm/bin/lli", jit.LLIPath)
	assert.Equal(t, "/opt/llvm/bin/llc", aot.LLCPath)
}

func TestFactory_SortedErrorReporterWrapsConsoleReporter(t *testing.T) {
	f := NewCompilerFactory(CompilerConfig{ErrorReporterType: SortedErrorReporter, ErrorOutput: &bytes.Buffer{}})
	r := f.CreateErrorReporter()
	require.NotNil(t, r)
	assert.IsType(t, &infrastructure.SortedErrorReporter{}, r)
}

func TestFactory_MockPipelineCompilesWithoutRealFrontEnd(t *testing.T) {
	f := NewCompilerFactory(CompilerConfig{UseMockComponents: true, ErrorOutput: &bytes.Buffer{}})
	pipeline := f.CreateCompilerPipeline()

	var out bytes.Buffer
	err := pipeline.Compile("mock.ember", bytes.NewReader(nil), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "mock generated module")
}

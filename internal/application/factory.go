// Package application wires the lexer, parser, semantic analyzer, code
// generator, and JIT/AOT hosts into a runnable pipeline, and provides the
// mock-component injection point the teacher's own factory uses for
// testing without a real compiler front end.
package application

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/emberlang/ember/internal/codegen"
	"github.com/emberlang/ember/internal/domain"
	"github.com/emberlang/ember/internal/infrastructure"
	"github.com/emberlang/ember/internal/interfaces"
	"github.com/emberlang/ember/internal/lexer"
	"github.com/emberlang/ember/internal/parser"
	"github.com/emberlang/ember/internal/semantic"
)

// ErrorReporterType selects which domain.ErrorReporter CreateErrorReporter
// builds, mirroring the teacher's ConsoleErrorReporter/SortedErrorReporter
// choice.
type ErrorReporterType int

const (
	ConsoleErrorReporter ErrorReporterType = iota
	SortedErrorReporter
)

// CompilerConfig holds everything CompilerFactory needs to assemble a
// pipeline, grounded on the teacher's CompilerConfig.
type CompilerConfig struct {
	UseMockComponents bool
	ErrorReporterType ErrorReporterType

	CompilationOptions domain.CompilationOptions

	ErrorOutput io.Writer
	Verbose     bool

	LLIPath string
	LLCPath string

	// Logger receives one record per pipeline stage boundary (parse, analyze,
	// generate) at debug level, and one "compiled" record at info level. No
	// structured logger appears anywhere in the example pool, so this is the
	// one ambient concern built directly on the standard library's log/slog
	// rather than a third-party dependency.
	Logger *slog.Logger
}

// loggerOrDiscard returns c.Logger, or a logger writing to io.Discard if
// none was configured, so callers never need a nil check.
func (c CompilerConfig) loggerOrDiscard() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// DefaultCompilerConfig returns the teacher's zero-optimization,
// console-reporting baseline configuration.
func DefaultCompilerConfig() CompilerConfig {
	return CompilerConfig{
		ErrorReporterType: ConsoleErrorReporter,
		CompilationOptions: domain.CompilationOptions{
			OptimizationLevel: 0,
			DebugInfo:         false,
			TargetTriple:      "",
			WarningsAsErrors:  false,
		},
		ErrorOutput: os.Stderr,
	}
}

// CompilerFactory creates configured compiler components, grounded on the
// teacher's CompilerFactory.
type CompilerFactory struct {
	config CompilerConfig
}

func NewCompilerFactory(config CompilerConfig) *CompilerFactory {
	return &CompilerFactory{config: config}
}

// CreateCompilerPipeline wires up a single-file pipeline with all
// components injected and cross-wired, per the teacher's
// CreateCompilerPipeline.
func (f *CompilerFactory) CreateCompilerPipeline() *CompilerPipeline {
	p := NewCompilerPipeline()
	p.SetErrorReporter(f.CreateErrorReporter())
	p.SetLexer(f.CreateLexer())
	p.SetParser(f.CreateParser())
	p.SetTypeSystem(f.CreateTypeSystem())
	p.SetSymbolTable(f.CreateSymbolTable())
	p.SetSemanticAnalyzer(f.CreateSemanticAnalyzer())
	p.SetCodeGenerator(f.CreateCodeGenerator())
	p.SetOptions(f.config.CompilationOptions)
	p.SetLogger(f.config.loggerOrDiscard())
	return p
}

// CreateMultiFileCompilerPipeline wires up a pipeline for the multi-file
// Phase-A-then-Phase-B driving supplement.
func (f *CompilerFactory) CreateMultiFileCompilerPipeline() *MultiFileCompilerPipeline {
	return &MultiFileCompilerPipeline{CompilerPipeline: f.CreateCompilerPipeline()}
}

func (f *CompilerFactory) CreateLexer() interfaces.Lexer {
	if f.config.UseMockComponents {
		return NewMockLexer()
	}
	return lexer.New()
}

func (f *CompilerFactory) CreateParser() interfaces.Parser {
	if f.config.UseMockComponents {
		return NewMockParser()
	}
	return parser.New()
}

func (f *CompilerFactory) CreateSemanticAnalyzer() interfaces.SemanticAnalyzer {
	if f.config.UseMockComponents {
		return NewMockSemanticAnalyzer()
	}
	return semantic.NewAnalyzer()
}

func (f *CompilerFactory) CreateCodeGenerator() interfaces.CodeGenerator {
	if f.config.UseMockComponents {
		return NewMockCodeGenerator()
	}
	return codegen.NewGenerator()
}

func (f *CompilerFactory) CreateTypeSystem() *domain.TypeSystem {
	return domain.NewTypeSystem()
}

func (f *CompilerFactory) CreateSymbolTable() interfaces.SymbolTable {
	return semantic.NewDefaultSymbolTable()
}

func (f *CompilerFactory) CreateErrorReporter() domain.ErrorReporter {
	console := infrastructure.NewConsoleErrorReporter(f.config.ErrorOutput, f.config.CompilationOptions)
	switch f.config.ErrorReporterType {
	case SortedErrorReporter:
		return infrastructure.NewSortedErrorReporter(console)
	default:
		return console
	}
}

// CreateJITHost and CreateAOTHost are not gated by UseMockComponents: the
// mock-injection seam exists for the text-IR front end under test, not for
// the external `lli`/`llc` processes §4.7's hosts shell out to.
func (f *CompilerFactory) CreateJITHost() interfaces.JITHost {
	host := infrastructure.NewLLIJITHost()
	if f.config.LLIPath != "" {
		host.LLIPath = f.config.LLIPath
	}
	return host
}

func (f *CompilerFactory) CreateAOTHost() interfaces.AOTHost {
	host := infrastructure.NewLLCAOTHost()
	if f.config.LLCPath != "" {
		host.LLCPath = f.config.LLCPath
	}
	return host
}

// ---------------------------------------------------------------------------
// Mock components, for UseMockComponents-gated tests that exercise the
// pipeline's wiring without a real front end.
// ---------------------------------------------------------------------------

type MockLexer struct {
	tokens   []domain.Token
	position int
}

func NewMockLexer() *MockLexer { return &MockLexer{} }

func (l *MockLexer) SetInput(filename string, r io.Reader) {
	pos := domain.SourcePosition{Filename: filename, Line: 1, Column: 1}
	l.tokens = []domain.Token{{Type: domain.TokenEOF, Range: domain.SourceRange{Start: pos, End: pos}}}
	l.position = 0
}

func (l *MockLexer) NextToken() domain.Token {
	if l.position >= len(l.tokens) {
		return domain.Token{Type: domain.TokenEOF}
	}
	t := l.tokens[l.position]
	l.position++
	return t
}

func (l *MockLexer) Peek() domain.Token {
	if l.position >= len(l.tokens) {
		return domain.Token{Type: domain.TokenEOF}
	}
	return l.tokens[l.position]
}

func (l *MockLexer) Errors() []domain.CompilerError { return nil }

type MockParser struct {
	errors domain.ErrorReporter
}

func NewMockParser() *MockParser { return &MockParser{} }

func (p *MockParser) SetErrorReporter(r domain.ErrorReporter) { p.errors = r }

func (p *MockParser) Parse(lex interfaces.Lexer) (*domain.CompilationUnit, error) {
	return &domain.CompilationUnit{Filename: "mock", Declarations: nil}, nil
}

type MockSemanticAnalyzer struct {
	ts     *domain.TypeSystem
	st     interfaces.SymbolTable
	errors domain.ErrorReporter
}

func NewMockSemanticAnalyzer() *MockSemanticAnalyzer { return &MockSemanticAnalyzer{} }

func (a *MockSemanticAnalyzer) SetTypeSystem(ts *domain.TypeSystem)      { a.ts = ts }
func (a *MockSemanticAnalyzer) SetSymbolTable(st interfaces.SymbolTable) { a.st = st }
func (a *MockSemanticAnalyzer) SetErrorReporter(r domain.ErrorReporter)  { a.errors = r }

func (a *MockSemanticAnalyzer) Analyze(unit *domain.CompilationUnit) (*interfaces.SemanticIR, error) {
	if unit == nil {
		return nil, fmt.Errorf("mock analyzer: nil unit")
	}
	return &interfaces.SemanticIR{Unit: unit, SymbolTable: a.st, UsageGraph: &interfaces.UsageGraph{}}, nil
}

type MockCodeGenerator struct {
	errors domain.ErrorReporter
	opts   domain.CompilationOptions
}

func NewMockCodeGenerator() *MockCodeGenerator { return &MockCodeGenerator{} }

func (g *MockCodeGenerator) SetErrorReporter(r domain.ErrorReporter) { g.errors = r }
func (g *MockCodeGenerator) SetOptions(o domain.CompilationOptions)  { g.opts = o }

func (g *MockCodeGenerator) Generate(ir *interfaces.SemanticIR) (string, error) {
	return "; mock generated module\n", nil
}

// Package interfaces collects the seams between pipeline stages, so the
// application factory can wire real or mock components interchangeably.
// Grounded on sokoide-llvm5/internal/interfaces/compiler.go's interface
// set, adapted to the expanded domain types.
package interfaces

import (
	"io"

	"github.com/emberlang/ember/internal/domain"
)

// Lexer turns source text into a token stream, per §4.1.
type Lexer interface {
	SetInput(filename string, r io.Reader)
	NextToken() domain.Token
	Peek() domain.Token
	Errors() []domain.CompilerError
}

// Parser turns a token stream into a CompilationUnit, per §4.2.
type Parser interface {
	Parse(lex Lexer) (*domain.CompilationUnit, error)
	SetErrorReporter(reporter domain.ErrorReporter)
}

// SemanticIR is the output of semantic analysis, per §4.5.
type SemanticIR struct {
	Unit        *domain.CompilationUnit
	SymbolTable SymbolTable
	UsageGraph  *UsageGraph
	HasErrors   bool
}

// UsageEdge is one caller→callee edge recorded during Phase B, per §4.5.
type UsageEdge struct {
	ContextClass string
	Callee       string
	Location     domain.SourceRange
	IsForward    bool
}

// UsageGraph accumulates UsageEdges for diagnostics and the supplemental
// graph exporter (§4.5 supplement, §12).
type UsageGraph struct {
	Edges []UsageEdge
}

func (g *UsageGraph) Record(e UsageEdge) { g.Edges = append(g.Edges, e) }

// SemanticAnalyzer implements the two-phase strategy of §4.5.
type SemanticAnalyzer interface {
	Analyze(unit *domain.CompilationUnit) (*SemanticIR, error)
	SetTypeSystem(ts *domain.TypeSystem)
	SetSymbolTable(st SymbolTable)
	SetErrorReporter(reporter domain.ErrorReporter)
}

// CodeGenerator implements the three-pass IR emission of §4.6.
type CodeGenerator interface {
	Generate(ir *SemanticIR) (string, error)
	SetErrorReporter(reporter domain.ErrorReporter)
	SetOptions(opts domain.CompilationOptions)
}

// SymbolTable is the stack-of-scopes-plus-registries contract of §4.4.
type SymbolTable interface {
	EnterScope(name string) *domain.Scope
	ExitScope()
	CurrentScope() *domain.Scope
	GlobalScope() *domain.Scope

	DeclareVariable(name string, t domain.Type, loc domain.SourceRange) (*domain.VariableSymbol, error)
	FindVariable(name string) (domain.Symbol, bool)

	DeclareClass(sym *domain.TypeSymbol) error
	FindClass(qualifiedName string) (*domain.TypeSymbol, bool)
	AllClasses() []*domain.TypeSymbol

	DeclareFunction(sym *domain.FunctionSymbol) error
	FindFunction(qualifiedName string) (*domain.MethodGroup, bool)

	OutstandingForwardDeclarations() []string
	HasUnresolvedForwardDeclarations() bool

	Reset()
}

// JITHost executes an emitted module, per §4.7.
type JITHost interface {
	Run(irText string, entryPoint string) (int, error)
}

// AOTHost lowers an emitted module to an object file or assembly for the
// host triple, per §4.7's AOT path.
type AOTHost interface {
	EmitObject(irText string, outputPath string, triple string) error
	EmitAssembly(irText string, outputPath string, triple string) error
}

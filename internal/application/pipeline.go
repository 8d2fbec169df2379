package application

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/emberlang/ember/internal/domain"
	"github.com/emberlang/ember/internal/interfaces"
)

// CompilerPipeline strings the lexer through the code generator for one
// compilation unit, grounded on the teacher's DefaultCompilerPipeline:
// the same Set*-then-validate shape, generalized to the expanded
// TypeSystem/SymbolTable seam and to a CodeGenerator that returns its
// module as text rather than writing to an io.Writer itself.
type CompilerPipeline struct {
	lexer            interfaces.Lexer
	parser           interfaces.Parser
	typeSystem       *domain.TypeSystem
	symbolTable      interfaces.SymbolTable
	semanticAnalyzer interfaces.SemanticAnalyzer
	codeGenerator    interfaces.CodeGenerator
	errorReporter    domain.ErrorReporter
	options          domain.CompilationOptions
	logger           *slog.Logger
}

func NewCompilerPipeline() *CompilerPipeline {
	return &CompilerPipeline{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// SetLogger installs the stage-boundary logger; nil is ignored so a caller
// that never sets one keeps the discard logger from NewCompilerPipeline.
func (p *CompilerPipeline) SetLogger(l *slog.Logger) {
	if l != nil {
		p.logger = l
	}
}

func (p *CompilerPipeline) SetLexer(l interfaces.Lexer) { p.lexer = l }

func (p *CompilerPipeline) SetParser(parser interfaces.Parser) {
	p.parser = parser
	if p.errorReporter != nil {
		parser.SetErrorReporter(p.errorReporter)
	}
}

func (p *CompilerPipeline) SetTypeSystem(ts *domain.TypeSystem) { p.typeSystem = ts }

func (p *CompilerPipeline) SetSymbolTable(st interfaces.SymbolTable) {
	p.symbolTable = st
	if p.semanticAnalyzer != nil {
		p.semanticAnalyzer.SetSymbolTable(st)
	}
}

func (p *CompilerPipeline) SetSemanticAnalyzer(a interfaces.SemanticAnalyzer) {
	p.semanticAnalyzer = a
	if p.errorReporter != nil {
		a.SetErrorReporter(p.errorReporter)
	}
	if p.typeSystem != nil {
		a.SetTypeSystem(p.typeSystem)
	}
	if p.symbolTable != nil {
		a.SetSymbolTable(p.symbolTable)
	}
}

func (p *CompilerPipeline) SetCodeGenerator(g interfaces.CodeGenerator) {
	p.codeGenerator = g
	if p.errorReporter != nil {
		g.SetErrorReporter(p.errorReporter)
	}
	g.SetOptions(p.options)
}

func (p *CompilerPipeline) SetErrorReporter(r domain.ErrorReporter) {
	p.errorReporter = r
	if p.parser != nil {
		p.parser.SetErrorReporter(r)
	}
	if p.semanticAnalyzer != nil {
		p.semanticAnalyzer.SetErrorReporter(r)
	}
	if p.codeGenerator != nil {
		p.codeGenerator.SetErrorReporter(r)
	}
}

func (p *CompilerPipeline) SetOptions(o domain.CompilationOptions) {
	p.options = o
	if p.codeGenerator != nil {
		p.codeGenerator.SetOptions(o)
	}
}

func (p *CompilerPipeline) validateComponents() error {
	switch {
	case p.lexer == nil:
		return fmt.Errorf("lexer not set")
	case p.parser == nil:
		return fmt.Errorf("parser not set")
	case p.semanticAnalyzer == nil:
		return fmt.Errorf("semantic analyzer not set")
	case p.codeGenerator == nil:
		return fmt.Errorf("code generator not set")
	case p.errorReporter == nil:
		return fmt.Errorf("error reporter not set")
	}
	return nil
}

// Compile drives one file through lex, parse, analyze, and generate,
// writing the generated module text to output.
func (p *CompilerPipeline) Compile(filename string, input io.Reader, output io.Writer) error {
	if err := p.validateComponents(); err != nil {
		return fmt.Errorf("pipeline validation failed: %w", err)
	}
	p.errorReporter.Clear()
	p.logger.Debug("parsing", "file", filename)

	p.lexer.SetInput(filename, input)

	unit, err := p.parser.Parse(p.lexer)
	if err != nil {
		return fmt.Errorf("parsing failed: %w", err)
	}
	if p.errorReporter.HasErrors() {
		return fmt.Errorf("compilation failed with %d error(s)", len(p.errorReporter.GetErrors()))
	}

	p.logger.Debug("analyzing", "file", filename)
	ir, err := p.semanticAnalyzer.Analyze(unit)
	if err != nil {
		return fmt.Errorf("semantic analysis failed: %w", err)
	}
	if p.options.WarningsAsErrors && p.errorReporter.HasWarnings() {
		for _, w := range p.errorReporter.GetWarnings() {
			w.Type = domain.TypeError
			p.errorReporter.ReportError(w)
		}
		return fmt.Errorf("compilation failed: warnings treated as errors")
	}
	if p.errorReporter.HasErrors() || (ir != nil && ir.HasErrors) {
		return fmt.Errorf("compilation failed with %d error(s)", len(p.errorReporter.GetErrors()))
	}

	p.logger.Debug("generating", "file", filename)
	module, err := p.codeGenerator.Generate(ir)
	if err != nil {
		return fmt.Errorf("code generation failed: %w", err)
	}
	if p.errorReporter.HasErrors() {
		return fmt.Errorf("compilation failed with %d error(s)", len(p.errorReporter.GetErrors()))
	}

	if _, err := io.WriteString(output, module); err != nil {
		return fmt.Errorf("writing generated module: %w", err)
	}
	p.logger.Info("compiled", "file", filename, "bytes", len(module))
	return nil
}

// Reset clears accumulated diagnostics and symbol-table state between runs.
func (p *CompilerPipeline) Reset() {
	if p.errorReporter != nil {
		p.errorReporter.Clear()
	}
	if p.symbolTable != nil {
		p.symbolTable.Reset()
	}
}

// MultiFileCompilerPipeline extends CompilerPipeline with the
// Phase-A-across-all-files-before-Phase-B-across-any driving supplement:
// every file is parsed first, then their declarations are merged into one
// synthetic compilation unit so the analyzer's own two-phase strategy
// (registration, then body resolution) runs once across the whole program
// rather than once per file — the only way a forward reference in file A to
// a class defined in file B resolves without restructuring the analyzer
// into a separately re-entrant registration API.
type MultiFileCompilerPipeline struct {
	*CompilerPipeline
}

// CompileFiles parses every file in files, merges their declarations, and
// runs analysis and code generation once over the merged program.
func (m *MultiFileCompilerPipeline) CompileFiles(files map[string]io.Reader, output io.Writer) error {
	if err := m.validateComponents(); err != nil {
		return fmt.Errorf("pipeline validation failed: %w", err)
	}
	m.errorReporter.Clear()

	merged := &domain.CompilationUnit{Filename: "<multi-file>"}
	for filename, input := range files {
		m.logger.Debug("parsing", "file", filename)
		m.lexer.SetInput(filename, input)
		unit, err := m.parser.Parse(m.lexer)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", filename, err)
		}
		merged.Declarations = append(merged.Declarations, unit.Declarations...)
		if unit.Namespace != "" && merged.Namespace == "" {
			merged.Namespace = unit.Namespace
		}
		merged.Usings = append(merged.Usings, unit.Usings...)
	}
	if m.errorReporter.HasErrors() {
		return fmt.Errorf("parsing failed with %d error(s)", len(m.errorReporter.GetErrors()))
	}

	m.logger.Debug("analyzing merged unit", "files", len(files))
	ir, err := m.semanticAnalyzer.Analyze(merged)
	if err != nil {
		return fmt.Errorf("semantic analysis failed: %w", err)
	}
	if m.errorReporter.HasErrors() || (ir != nil && ir.HasErrors) {
		return fmt.Errorf("semantic analysis failed with %d error(s)", len(m.errorReporter.GetErrors()))
	}

	m.logger.Debug("generating merged unit", "files", len(files))
	module, err := m.codeGenerator.Generate(ir)
	if err != nil {
		return fmt.Errorf("code generation failed: %w", err)
	}
	if m.errorReporter.HasErrors() {
		return fmt.Errorf("code generation failed with %d error(s)", len(m.errorReporter.GetErrors()))
	}

	if _, err := io.WriteString(output, module); err != nil {
		return fmt.Errorf("writing generated module: %w", err)
	}
	m.logger.Info("compiled", "files", len(files), "bytes", len(module))
	return nil
}

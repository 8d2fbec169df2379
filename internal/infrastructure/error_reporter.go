// Package infrastructure holds the concrete, process-facing implementations
// of the seams interfaces/domain declare: diagnostic sinks and the JIT/AOT
// execution hosts.
package infrastructure

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/emberlang/ember/internal/domain"
)

// ConsoleErrorReporter formats diagnostics to a writer with source-context
// highlighting, grounded on the teacher's ConsoleErrorReporter.
type ConsoleErrorReporter struct {
	errors      []domain.CompilerError
	warnings    []domain.CompilerError
	output      io.Writer
	sourceMap   map[string][]byte
	maxErrors   int
	maxWarnings int
}

// NewConsoleErrorReporter builds a reporter writing to output (os.Stderr
// when nil), capped per CompilationOptions.MaxErrors/MaxWarnings when
// positive, otherwise the teacher's own 100/50 defaults.
func NewConsoleErrorReporter(output io.Writer, opts domain.CompilationOptions) *ConsoleErrorReporter {
	if output == nil {
		output = os.Stderr
	}
	maxErrors, maxWarnings := 100, 50
	if opts.MaxErrors > 0 {
		maxErrors = opts.MaxErrors
	}
	if opts.MaxWarnings > 0 {
		maxWarnings = opts.MaxWarnings
	}
	return &ConsoleErrorReporter{
		output:      output,
		sourceMap:   make(map[string][]byte),
		maxErrors:   maxErrors,
		maxWarnings: maxWarnings,
	}
}

// SetSourceContent registers a file's text so errors located in it can be
// printed with surrounding context lines.
func (er *ConsoleErrorReporter) SetSourceContent(filename string, content []byte) {
	er.sourceMap[filename] = content
}

func (er *ConsoleErrorReporter) ReportError(err domain.CompilerError) {
	if len(er.errors) < er.maxErrors {
		er.errors = append(er.errors, err)
		er.printDiagnostic(err, "Error")
	}
}

func (er *ConsoleErrorReporter) ReportWarning(warning domain.CompilerError) {
	if len(er.warnings) < er.maxWarnings {
		er.warnings = append(er.warnings, warning)
		er.printDiagnostic(warning, "Warning")
	}
}

func (er *ConsoleErrorReporter) HasErrors() bool   { return len(er.errors) > 0 }
func (er *ConsoleErrorReporter) HasWarnings() bool { return len(er.warnings) > 0 }

func (er *ConsoleErrorReporter) GetErrors() []domain.CompilerError {
	out := make([]domain.CompilerError, len(er.errors))
	copy(out, er.errors)
	return out
}

func (er *ConsoleErrorReporter) GetWarnings() []domain.CompilerError {
	out := make([]domain.CompilerError, len(er.warnings))
	copy(out, er.warnings)
	return out
}

func (er *ConsoleErrorReporter) Clear() {
	er.errors = er.errors[:0]
	er.warnings = er.warnings[:0]
}

// PrintSummary writes the trailing "Found N error(s)" banner.
func (er *ConsoleErrorReporter) PrintSummary() {
	if !er.HasErrors() && !er.HasWarnings() {
		return
	}
	fmt.Fprintln(er.output)
	if er.HasErrors() {
		fmt.Fprintf(er.output, "Found %d error(s)\n", len(er.errors))
	}
	if er.HasWarnings() {
		fmt.Fprintf(er.output, "Found %d warning(s)\n", len(er.warnings))
	}
}

// printDiagnostic renders one diagnostic in the §6 format:
// "Error (<file>:(<line>,<col>)): <message>".
func (er *ConsoleErrorReporter) printDiagnostic(err domain.CompilerError, severity string) {
	fmt.Fprintf(er.output, "%s (%s): %s\n", severity, err.Location.Start, err.Message)

	if content, ok := er.sourceMap[err.Location.Start.Filename]; ok {
		er.printSourceContext(content, err.Location)
	}
	if err.Context != "" {
		fmt.Fprintf(er.output, "  Context: %s\n", err.Context)
	}
	for _, hint := range err.Hints {
		fmt.Fprintf(er.output, "  Hint: %s\n", hint)
	}
	fmt.Fprintln(er.output)
}

func (er *ConsoleErrorReporter) printSourceContext(content []byte, loc domain.SourceRange) {
	lines := strings.Split(string(content), "\n")
	startLine := loc.Start.Line - 1
	endLine := loc.End.Line - 1
	if startLine < 0 || startLine >= len(lines) {
		return
	}
	if endLine >= len(lines) {
		endLine = len(lines) - 1
	}

	contextStart := startLine - 2
	if contextStart < 0 {
		contextStart = 0
	}
	contextEnd := endLine + 2
	if contextEnd > len(lines)-1 {
		contextEnd = len(lines) - 1
	}

	lineNumWidth := len(fmt.Sprintf("%d", contextEnd+1))
	for i := contextStart; i <= contextEnd; i++ {
		prefix := fmt.Sprintf("%*d | ", lineNumWidth, i+1)
		fmt.Fprintf(er.output, "%s%s\n", prefix, lines[i])
		if i != startLine {
			continue
		}
		indicator := strings.Repeat(" ", len(prefix))
		if loc.Start.Column > 0 {
			indicator += strings.Repeat(" ", loc.Start.Column-1)
		}
		indicatorLen := 1
		if startLine == endLine && loc.End.Column > loc.Start.Column {
			indicatorLen = loc.End.Column - loc.Start.Column
		}
		indicator += strings.Repeat("^", indicatorLen)
		fmt.Fprintln(er.output, indicator)
	}
}

// SortedErrorReporter buffers diagnostics and forwards them to an
// underlying reporter in source-location order on Flush, grounded on the
// teacher's SortedErrorReporter. Used for multi-file runs where Phase A
// over file B can otherwise report before Phase B finishes file A.
type SortedErrorReporter struct {
	underlying domain.ErrorReporter
	errors     []domain.CompilerError
	warnings   []domain.CompilerError
}

func NewSortedErrorReporter(underlying domain.ErrorReporter) *SortedErrorReporter {
	return &SortedErrorReporter{underlying: underlying}
}

func (ser *SortedErrorReporter) ReportError(err domain.CompilerError) {
	ser.errors = append(ser.errors, err)
}

func (ser *SortedErrorReporter) ReportWarning(warning domain.CompilerError) {
	ser.warnings = append(ser.warnings, warning)
}

func (ser *SortedErrorReporter) HasErrors() bool   { return len(ser.errors) > 0 }
func (ser *SortedErrorReporter) HasWarnings() bool { return len(ser.warnings) > 0 }

func (ser *SortedErrorReporter) GetErrors() []domain.CompilerError {
	out := make([]domain.CompilerError, len(ser.errors))
	copy(out, ser.errors)
	return out
}

func (ser *SortedErrorReporter) GetWarnings() []domain.CompilerError {
	out := make([]domain.CompilerError, len(ser.warnings))
	copy(out, ser.warnings)
	return out
}

func (ser *SortedErrorReporter) Clear() {
	ser.errors = ser.errors[:0]
	ser.warnings = ser.warnings[:0]
}

// Flush sorts the buffered diagnostics by (filename, line, column) and
// forwards them to the underlying reporter, then clears the buffer.
func (ser *SortedErrorReporter) Flush() {
	sort.Slice(ser.errors, func(i, j int) bool {
		return compareSourceRanges(ser.errors[i].Location, ser.errors[j].Location)
	})
	sort.Slice(ser.warnings, func(i, j int) bool {
		return compareSourceRanges(ser.warnings[i].Location, ser.warnings[j].Location)
	})
	for _, e := range ser.errors {
		ser.underlying.ReportError(e)
	}
	for _, w := range ser.warnings {
		ser.underlying.ReportWarning(w)
	}
	ser.Clear()
}

func compareSourceRanges(a, b domain.SourceRange) bool {
	if a.Start.Filename != b.Start.Filename {
		return a.Start.Filename < b.Start.Filename
	}
	if a.Start.Line != b.Start.Line {
		return a.Start.Line < b.Start.Line
	}
	return a.Start.Column < b.Start.Column
}

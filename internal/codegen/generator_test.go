package codegen

import (
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberlang/ember/internal/domain"
	"github.com/emberlang/ember/internal/lexer"
	"github.com/emberlang/ember/internal/parser"
	"github.com/emberlang/ember/internal/semantic"
)

type collectingReporter struct {
	errors   []domain.CompilerError
	warnings []domain.CompilerError
}

func (r *collectingReporter) ReportError(e domain.CompilerError)   { r.errors = append(r.errors, e) }
func (r *collectingReporter) ReportWarning(e domain.CompilerError) { r.warnings = append(r.warnings, e) }
func (r *collectingReporter) HasErrors() bool                      { return len(r.errors) > 0 }
func (r *collectingReporter) HasWarnings() bool                    { return len(r.warnings) > 0 }
func (r *collectingReporter) GetErrors() []domain.CompilerError     { return r.errors }
func (r *collectingReporter) GetWarnings() []domain.CompilerError   { return r.warnings }
func (r *collectingReporter) Clear()                                { r.errors, r.warnings = nil, nil }

func generate(t *testing.T, src string) (string, *collectingReporter) {
	t.Helper()
	l := lexer.New()
	l.SetInput("test.ember", strings.NewReader(src))
	rep := &collectingReporter{}
	p := parser.New()
	p.SetErrorReporter(rep)
	unit, err := p.Parse(l)
	require.NoError(t, err)
	require.Empty(t, rep.GetErrors(), "parse errors")

	a := semantic.NewAnalyzer()
	a.SetErrorReporter(rep)
	ir, err := a.Analyze(unit)
	require.NoError(t, err)
	require.Empty(t, rep.GetErrors(), "semantic errors")
	require.False(t, ir.HasErrors)

	g := NewGenerator()
	g.SetErrorReporter(rep)
	module, err := g.Generate(ir)
	require.NoError(t, err)
	return module, rep
}

func TestGenerator_FreeFunctionEmitsDefineAndReturn(t *testing.T) {
	module, rep := generate(t, `fn add(a: i32, b: i32): i32 { return a + b; }`)
	require.Empty(t, rep.GetErrors())
	assert.Contains(t, module, "define i32 @add(i32 %a, i32 %b) {")
	assert.Contains(t, module, "= add i32")
	assert.Contains(t, module, "ret i32")
}

func TestGenerator_ClassEmitsFieldsStructAndConstructor(t *testing.T) {
	module, rep := generate(t, `
		class Box {
			var size: i32;
			fn new(s: i32) { this.size = s; }
		}
	`)
	require.Empty(t, rep.GetErrors())
	assert.Contains(t, module, "%Box_Fields = type { i32 }")
	assert.Contains(t, module, "define void @Box__ctor(ptr %fields, i32 %s) {")
	assert.Contains(t, module, "@Object_alloc")
}

func TestGenerator_VirtualMethodEmitsVTableGlobalAndIndirectCall(t *testing.T) {
	module, rep := generate(t, `
		class Animal {
			virtual fn speak(): i32 { return 0; }
		}
		class Dog : Animal {
			override fn speak(): i32 { return 1; }
		}
		fn callIt(a: Animal): i32 { return a.speak(); }
	`)
	require.Empty(t, rep.GetErrors())
	assert.Contains(t, module, "%Animal_VTable = type { ptr, ptr }")
	assert.Contains(t, module, "%Dog_VTable = type { ptr, ptr }")
	assert.Contains(t, module, "@Animal_vtable_global = global %Animal_VTable")
	assert.Contains(t, module, "@Dog_vtable_global = global %Dog_VTable")
	assert.Contains(t, module, "call i32 (ptr) %")
}

func TestGenerator_ArithmeticSequenceMatchesGoldenFixture(t *testing.T) {
	module, rep := generate(t, `fn compute(): i32 { var x: i32 = 1; var y: i32 = 2; return x + y * 3; }`)
	require.Empty(t, rep.GetErrors())

	var body strings.Builder
	inFn := false
	for _, line := range strings.Split(module, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "define i32 @compute") {
			inFn = true
		}
		if !inFn {
			continue
		}
		body.WriteString(trimmed)
		body.WriteByte('\n')
		if trimmed == "}" {
			break
		}
	}

	golden := strings.Join([]string{
		"define i32 @compute() {",
		"entry:",
		"%v.x.1 = alloca i32",
		"store i32 1, ptr %v.x.1",
		"%v.y.2 = alloca i32",
		"store i32 2, ptr %v.y.2",
		"%t3 = load i32, ptr %v.x.1",
		"%t4 = load i32, ptr %v.y.2",
		"%t5 = mul i32 %t4, 3",
		"%t6 = add i32 %t3, %t5",
		"ret i32 %t6",
		"}",
	}, "\n") + "\n"

	if body.String() != golden {
		diff := difflib.UnifiedDiff{
			A:        difflib.SplitLines(golden),
			B:        difflib.SplitLines(body.String()),
			FromFile: "golden",
			ToFile:   "generated",
			Context:  3,
		}
		text, _ := difflib.GetUnifiedDiffString(diff)
		t.Fatalf("generated function body diverged from golden fixture:\n%s", text)
	}
}

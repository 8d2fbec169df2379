package semantic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberlang/ember/internal/domain"
	"github.com/emberlang/ember/internal/interfaces"
	"github.com/emberlang/ember/internal/lexer"
	"github.com/emberlang/ember/internal/parser"
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

func analyze(t *testing.T, src string) (*interfaces.SemanticIR, *collectingReporter) {
	t.Helper()
	l := lexer.New()
	l.SetInput("test.ember", strings.NewReader(src))
	rep := &collectingReporter{}
	p := parser.New()
	p.SetErrorReporter(rep)
	unit, err := p.Parse(l)
	require.NoError(t, err)
	require.Empty(t, rep.GetErrors(), "parse errors")

	a := NewAnalyzer()
	a.SetErrorReporter(rep)
	ir, err := a.Analyze(unit)
	require.NoError(t, err)
	require.NotNil(t, ir)
	return ir, rep
}

func TestAnalyzer_SimpleFunctionResolvesReturnType(t *testing.T) {
	ir, rep := analyze(t, `fn add(a: i32, b: i32): i32 { return a + b; }`)
	require.Empty(t, rep.GetErrors())
	assert.False(t, ir.HasErrors)

	group, ok := ir.SymbolTable.FindFunction("add")
	require.True(t, ok)
	require.Len(t, group.Overloads, 1)
	assert.Equal(t, "i32", group.Overloads[0].ReturnType.String())
}

func TestAnalyzer_UndeclaredNameReportsError(t *testing.T) {
	_, rep := analyze(t, `fn f(): i32 { return undeclaredThing; }`)
	require.NotEmpty(t, rep.GetErrors())
	assert.Equal(t, domain.NameError, rep.GetErrors()[0].Type)
}

func TestAnalyzer_InheritanceFlattensBaseFieldsWithAlias(t *testing.T) {
	ir, rep := analyze(t, `
		class Animal {
			var name: string;
		}
		class Dog : Animal {
			var breed: string;
		}
	`)
	require.Empty(t, rep.GetErrors())
	dog, ok := ir.SymbolTable.FindClass("Dog")
	require.True(t, ok)

	_, hasBare := dog.GetField("name")
	assert.True(t, hasBare)
	_, hasAliased := dog.GetField("base.name")
	assert.True(t, hasAliased)
	_, hasOwn := dog.GetField("breed")
	assert.True(t, hasOwn)
}

func TestAnalyzer_OverrideReusesBaseVTableSlot(t *testing.T) {
	ir, rep := analyze(t, `
		class Animal {
			virtual fn speak(): i32 { return 0; }
		}
		class Dog : Animal {
			override fn speak(): i32 { return 1; }
		}
	`)
	require.Empty(t, rep.GetErrors())
	animal, ok := ir.SymbolTable.FindClass("Animal")
	require.True(t, ok)
	dog, ok := ir.SymbolTable.FindClass("Dog")
	require.True(t, ok)

	animalGroup, _ := animal.FindMethod("speak")
	dogGroup, _ := dog.FindMethod("speak")
	require.Len(t, animalGroup.Overloads, 1)
	require.Len(t, dogGroup.Overloads, 1)
	assert.Equal(t, animalGroup.Overloads[0].VTableSlot, dogGroup.Overloads[0].VTableSlot)
	assert.True(t, dogGroup.Overloads[0].IsOverride)
}

func TestAnalyzer_AmbiguousOverloadReportsNameError(t *testing.T) {
	_, rep := analyze(t, `
		fn f(a: i32, b: f64): i32 { return 0; }
		fn f(a: f64, b: i32): i32 { return 1; }
		fn g(): i32 { return f(1, 2); }
	`)
	require.NotEmpty(t, rep.GetErrors())
	found := false
	for _, e := range rep.GetErrors() {
		if e.Type == domain.NameError && strings.Contains(e.Message, "ambiguous") {
			found = true
		}
	}
	assert.True(t, found, "expected an ambiguity error for the ambiguous overload")
}

func TestAnalyzer_ForwardDeclarationNeverDefinedReportsError(t *testing.T) {
	_, rep := analyze(t, `class Forward;`)
	require.NotEmpty(t, rep.GetErrors())
	assert.Equal(t, domain.ForwardDeclarationError, rep.GetErrors()[0].Type)
}

func TestAnalyzer_UsageGraphRecordsCallerCallee(t *testing.T) {
	ir, rep := analyze(t, `
		fn helper(): i32 { return 1; }
		fn caller(): i32 { return helper(); }
	`)
	require.Empty(t, rep.GetErrors())
	require.NotNil(t, ir.UsageGraph)
	found := false
	for _, e := range ir.UsageGraph.Edges {
		if e.Callee == "helper" {
			found = true
		}
	}
	assert.True(t, found)
}

package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberlang/ember/internal/domain"
	"github.com/emberlang/ember/internal/lexer"
)

type collectingReporter struct {
	errors   []domain.CompilerError
	warnings []domain.CompilerError
}

func (r *collectingReporter) ReportError(e domain.CompilerError)   { r.errors = append(r.errors, e) }
func (r *collectingReporter) ReportWarning(e domain.CompilerError) { r.warnings = append(r.warnings, e) }
func (r *collectingReporter) HasErrors() bool                     { return len(r.errors) > 0 }
func (r *collectingReporter) HasWarnings() bool                   { return len(r.warnings) > 0 }
func (r *collectingReporter) GetErrors() []domain.CompilerError    { return r.errors }
func (r *collectingReporter) GetWarnings() []domain.CompilerError  { return r.warnings }
func (r *collectingReporter) Clear()                               { r.errors, r.warnings = nil, nil }

func parse(t *testing.T, src string) (*domain.CompilationUnit, *collectingReporter) {
	t.Helper()
	l := lexer.New()
	l.SetInput("test.ember", strings.NewReader(src))
	rep := &collectingReporter{}
	p := New()
	p.SetErrorReporter(rep)
	unit, err := p.Parse(l)
	require.NoError(t, err)
	require.NotNil(t, unit)
	return unit, rep
}

func TestParser_SimpleClassWithMethod(t *testing.T) {
	unit, rep := parse(t, `
		class Animal {
			var name: string;
			virtual fn speak(): i32 { return 0; }
		}
	`)
	require.Empty(t, rep.GetErrors())
	require.Len(t, unit.Declarations, 1)
	cls, ok := unit.Declarations[0].(*domain.TypeDecl)
	require.True(t, ok)
	assert.Equal(t, "Animal", cls.Name)
	assert.Equal(t, domain.DeclClass, cls.Kind)
	require.Len(t, cls.Fields, 1)
	require.Len(t, cls.Methods, 1)
	assert.True(t, cls.Methods[0].Modifiers.IsVirtual)
}

func TestParser_InheritanceAndOverride(t *testing.T) {
	unit, rep := parse(t, `
		class Dog : Animal {
			override fn speak(): i32 { return 1; }
		}
	`)
	require.Empty(t, rep.GetErrors())
	cls := unit.Declarations[0].(*domain.TypeDecl)
	assert.Equal(t, "Animal", cls.BaseName)
	assert.True(t, cls.Methods[0].Modifiers.IsOverride)
}

func TestParser_ConstructorAndDestructor(t *testing.T) {
	unit, rep := parse(t, `
		class Box {
			var size: i32;
			fn new(s: i32) { this.size = s; }
			fn drop() { }
		}
	`)
	require.Empty(t, rep.GetErrors())
	cls := unit.Declarations[0].(*domain.TypeDecl)
	require.Len(t, cls.Constructors, 1)
	require.NotNil(t, cls.Destructor)
}

func TestParser_ForwardDeclaration(t *testing.T) {
	unit, rep := parse(t, `class Forward;`)
	require.Empty(t, rep.GetErrors())
	cls := unit.Declarations[0].(*domain.TypeDecl)
	assert.Equal(t, "Forward", cls.Name)
	assert.Nil(t, cls.Fields)
}

func TestParser_ExpressionPrecedence(t *testing.T) {
	unit, rep := parse(t, `fn f(): i32 { return 1 + 2 * 3 == 7 && true; }`)
	require.Empty(t, rep.GetErrors())
	fn := unit.Declarations[0].(*domain.FunctionDecl)
	ret := fn.Body.Statements[0].(*domain.ReturnStmt)
	and := ret.Value.(*domain.BinaryExpr)
	assert.Equal(t, domain.OpAnd, and.Operator)
	eq := and.Left.(*domain.BinaryExpr)
	assert.Equal(t, domain.OpEq, eq.Operator)
	add := eq.Left.(*domain.BinaryExpr)
	assert.Equal(t, domain.OpAdd, add.Operator)
	mul := add.Right.(*domain.BinaryExpr)
	assert.Equal(t, domain.OpMul, mul.Operator)
}

func TestParser_NestedGenericsSplitsShiftRight(t *testing.T) {
	unit, rep := parse(t, `fn f(x: Box<Pair<i32, i32>>) { }`)
	require.Empty(t, rep.GetErrors())
	fn := unit.Declarations[0].(*domain.FunctionDecl)
	ref := fn.Parameters[0].Type.(*domain.NamedTypeRef)
	assert.Equal(t, "Box", ref.Name)
	require.Len(t, ref.Args, 1)
	pair := ref.Args[0].(*domain.NamedTypeRef)
	assert.Equal(t, "Pair", pair.Name)
	assert.Len(t, pair.Args, 2)
}

func TestParser_ForInVsForClassic(t *testing.T) {
	unit, rep := parse(t, `
		fn f() {
			for (i in 0..10) { }
			for (i = 0; i < 10; i = i + 1) { }
		}
	`)
	require.Empty(t, rep.GetErrors())
	fn := unit.Declarations[0].(*domain.FunctionDecl)
	require.Len(t, fn.Body.Statements, 2)
	forIn, ok := fn.Body.Statements[0].(*domain.ForInStmt)
	require.True(t, ok)
	assert.Equal(t, "i", forIn.VarName)
	rng, ok := forIn.Iter.(*domain.RangeExpr)
	require.True(t, ok)
	assert.False(t, rng.Inclusive)

	forStmt, ok := fn.Body.Statements[1].(*domain.ForStmt)
	require.True(t, ok)
	initStmt, ok := forStmt.Init.(*domain.ExprStmt)
	require.True(t, ok)
	assign, ok := initStmt.Expr.(*domain.AssignExpr)
	require.True(t, ok)
	name := assign.Target.(*domain.NameExpr)
	assert.Equal(t, []string{"i"}, name.Parts)
}

func TestParser_IfAsExpression(t *testing.T) {
	unit, rep := parse(t, `fn f(): i32 { var x: i32 = if (true) { 1 } else { 2 }; return x; }`)
	require.Empty(t, rep.GetErrors())
	fn := unit.Declarations[0].(*domain.FunctionDecl)
	decl := fn.Body.Statements[0].(*domain.VarDeclStmt)
	ifExpr, ok := decl.Init.(*domain.IfExpr)
	require.True(t, ok)
	require.NotNil(t, ifExpr.Else)
}

func TestParser_MatchExpression(t *testing.T) {
	unit, rep := parse(t, `fn f(x: i32): i32 { return match x { 0 => 1, 1 => 2 }; }`)
	require.Empty(t, rep.GetErrors())
	fn := unit.Declarations[0].(*domain.FunctionDecl)
	ret := fn.Body.Statements[0].(*domain.ReturnStmt)
	m, ok := ret.Value.(*domain.MatchExpr)
	require.True(t, ok)
	assert.Len(t, m.Arms, 2)
}

func TestParser_NewExpressionAndMemberChain(t *testing.T) {
	unit, rep := parse(t, `fn f() { var a: Animal = new Dog(1, 2); a.speak(); }`)
	require.Empty(t, rep.GetErrors())
	fn := unit.Declarations[0].(*domain.FunctionDecl)
	decl := fn.Body.Statements[0].(*domain.VarDeclStmt)
	newExpr, ok := decl.Init.(*domain.NewExpr)
	require.True(t, ok)
	assert.Equal(t, "Dog", newExpr.TypeName)
	assert.Len(t, newExpr.Args, 2)

	exprStmt := fn.Body.Statements[1].(*domain.ExprStmt)
	call, ok := exprStmt.Expr.(*domain.CallExpr)
	require.True(t, ok)
	member := call.Callee.(*domain.MemberExpr)
	assert.Equal(t, "speak", member.Member)
}

func TestParser_EnumWithCases(t *testing.T) {
	unit, rep := parse(t, `
		enum Shape {
			case Circle(f64);
			case Square(f64);
		}
	`)
	require.Empty(t, rep.GetErrors())
	decl := unit.Declarations[0].(*domain.TypeDecl)
	assert.Equal(t, domain.DeclEnum, decl.Kind)
	require.Len(t, decl.EnumCases, 2)
	assert.Equal(t, "Circle", decl.EnumCases[0].Name)
}

func TestParser_PropertySugar(t *testing.T) {
	unit, rep := parse(t, `
		class Point {
			var x: i32;
			var Doubled: i32 {
				get => x * 2;
			}
		}
	`)
	require.Empty(t, rep.GetErrors())
	cls := unit.Declarations[0].(*domain.TypeDecl)
	require.Len(t, cls.Properties, 1)
	assert.Equal(t, "Doubled", cls.Properties[0].Name)
	require.NotNil(t, cls.Properties[0].Getter)
}

func TestParser_FileScopedNamespace(t *testing.T) {
	unit, rep := parse(t, `
		namespace Geometry;
		class Point { }
	`)
	require.Empty(t, rep.GetErrors())
	assert.Equal(t, "Geometry", unit.Namespace)
	require.Len(t, unit.Declarations, 1)
}

func TestParser_RecoversFromBadTopLevelToken(t *testing.T) {
	unit, rep := parse(t, `
		$$$;
		fn ok(): i32 { return 1; }
	`)
	require.NotEmpty(t, rep.GetErrors())
	require.Len(t, unit.Declarations, 1)
	fn, ok := unit.Declarations[0].(*domain.FunctionDecl)
	require.True(t, ok)
	assert.Equal(t, "ok", fn.Name)
}

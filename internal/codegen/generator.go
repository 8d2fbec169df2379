// Package codegen is the §4.6 code generator: three passes over a
// semantic IR producing a textual, LLVM-flavored module — struct and
// vtable type declarations, then per-function bodies with ARC insertion
// and virtual dispatch, then the vtable constant globals that tie
// concrete overrides to slots. Grounded on the teacher's
// codegen/generator.go strings.Builder + emit/newLabel/indentLevel
// style, generalized from its fixed toy grammar to the full symbol model
// in internal/domain.
package codegen

import (
	"fmt"
	"strings"

	"github.com/emberlang/ember/internal/domain"
	"github.com/emberlang/ember/internal/interfaces"
)

// headerSize is the byte offset from an object's header pointer to its
// first field, per §6: two i32s (ref_count, type_id) plus a vtable
// pointer, padded to 16 on a 64-bit target.
const headerSize = 16

// value is the generator's per-expression result: the SSA value text,
// its static type, and (for class-typed expressions) the header pointer
// ARC operations act on. The codegen analogue of the analyzer's
// lastType/lastCategory pair.
type value struct {
	text      string
	t         domain.Type
	headerPtr string // set only when t is a *domain.NamedType
	addr      string // non-empty when this expression is an lvalue: the address to store back through
}

type local struct {
	alloca string
	t      domain.Type
}

type stringLiteral struct {
	name    string
	content string
}

// Generator implements interfaces.CodeGenerator and domain.Visitor, the
// latter so expression/statement emission reuses the same dispatch shape
// the semantic analyzer uses.
type Generator struct {
	errors domain.ErrorReporter
	opts   domain.CompilationOptions

	out    strings.Builder
	indent int

	labelSeq int
	tempSeq  int
	strSeq   int
	strLits  []stringLiteral

	currentClass    *domain.TypeSymbol
	currentFunction *domain.FunctionSymbol

	locals   map[string]local
	scopes   *ScopeManager
	loopExit []string
	loopCont []string
	cur      value
	term     bool // true once the current block has a terminator
}

func NewGenerator() *Generator { return &Generator{} }

func (g *Generator) SetErrorReporter(r domain.ErrorReporter) { g.errors = r }
func (g *Generator) SetOptions(o domain.CompilationOptions)  { g.opts = o }

func (g *Generator) reportError(msg string, loc domain.SourceRange) {
	if g.errors == nil {
		return
	}
	g.errors.ReportError(domain.CompilerError{Type: domain.CodegenInternalError, Message: msg, Location: loc})
}

// Generate runs the three passes and returns the assembled module text.
func (g *Generator) Generate(ir *interfaces.SemanticIR) (string, error) {
	if ir.HasErrors {
		return "", fmt.Errorf("codegen: refusing to generate from a unit with semantic errors")
	}
	g.out.Reset()
	g.indent = 0
	g.labelSeq, g.tempSeq, g.strSeq = 0, 0, 0
	g.strLits = nil

	classes := ir.SymbolTable.AllClasses()
	typeDecls := collectTypeDecls(ir.Unit)

	g.emitRaw("; module generated from one compilation unit\n\n")

	// Pass 1: struct and vtable type declarations, plus the runtime ABI.
	g.emitRuntimeDecls()
	for _, c := range classes {
		g.emitStructTypes(c)
	}
	g.emitRaw("\n")

	// Pass 2: function bodies. LLVM resolves references between `define`d
	// functions in the same module regardless of textual order, so a
	// separate forward-declaration pass buys nothing and is folded into
	// this one.
	for _, fd := range topLevelFunctions(ir.Unit) {
		g.emitFunctionDecl(fd, nil)
	}
	for _, td := range typeDecls {
		g.emitClassBodies(td)
	}

	// Pass 3: vtable constant globals, emitted last since they reference
	// concrete method symbols resolved by walking each class's full
	// inheritance chain.
	for _, c := range classes {
		g.emitVTable(c)
	}

	g.emitStringLiterals()

	return g.out.String(), nil
}

// ---------------------------------------------------------------------------
// emission helpers
// ---------------------------------------------------------------------------

func (g *Generator) emit(format string, args ...interface{}) {
	g.out.WriteString(strings.Repeat("  ", g.indent))
	fmt.Fprintf(&g.out, format, args...)
	g.out.WriteByte('\n')
}

func (g *Generator) emitRaw(s string) { g.out.WriteString(s) }

func (g *Generator) newLabel(prefix string) string {
	g.labelSeq++
	return fmt.Sprintf("%s.%d", prefix, g.labelSeq)
}

func (g *Generator) newTemp() string {
	g.tempSeq++
	return fmt.Sprintf("%%t%d", g.tempSeq)
}

func (g *Generator) startBlock(label string) {
	g.out.WriteString(label + ":\n")
	g.term = false
}

func (g *Generator) br(label string) {
	if !g.term {
		g.emit("br label %%%s", label)
		g.term = true
	}
}

func (g *Generator) condBr(cond, thenLabel, elseLabel string) {
	if !g.term {
		g.emit("br i1 %s, label %%%s, label %%%s", cond, thenLabel, elseLabel)
		g.term = true
	}
}

func (g *Generator) retain(headerPtr string) {
	if headerPtr == "" {
		return
	}
	g.emit("call void @Object_retain(ptr %s)", headerPtr)
}

func (g *Generator) release(headerPtr string) {
	if headerPtr == "" {
		return
	}
	g.emit("call void @Object_release(ptr %s)", headerPtr)
}

func (g *Generator) emitReleases(regs []ARCRegistration) {
	for _, r := range regs {
		tmp := g.newTemp()
		g.emit("%s = load ptr, ptr %s", tmp, r.Alloca)
		g.emit("call void @Object_release(ptr %s)", tmp)
	}
}

func mangle(qualifiedName string) string {
	return strings.ReplaceAll(strings.ReplaceAll(qualifiedName, ".", "_"), "%", "_")
}

func sanitize(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

func zeroValue(llvmTy string) string {
	switch llvmTy {
	case "i32", "i64", "i8":
		return "0"
	case "float", "double":
		return "0.0"
	case "i1":
		return "0"
	default:
		return "null"
	}
}

// ---------------------------------------------------------------------------
// types
// ---------------------------------------------------------------------------

func llvmType(t domain.Type) string {
	if t == nil {
		return "void"
	}
	if p, ok := t.(*domain.PrimitiveType); ok {
		switch p.Kind {
		case domain.KindI32:
			return "i32"
		case domain.KindI64:
			return "i64"
		case domain.KindF32:
			return "float"
		case domain.KindF64:
			return "double"
		case domain.KindBool:
			return "i1"
		case domain.KindChar:
			return "i8"
		case domain.KindVoid:
			return "void"
		case domain.KindString:
			return "ptr"
		}
	}
	return "ptr" // Named, Pointer, Array, Function, Unresolved: all opaque pointers
}

func isClassType(t domain.Type) (*domain.NamedType, bool) {
	if t == nil {
		return nil, false
	}
	n, ok := t.(*domain.NamedType)
	return n, ok
}

func isNewExpr(e domain.Expression) bool {
	_, ok := e.(*domain.NewExpr)
	return ok
}

// ---------------------------------------------------------------------------
// Pass 1: struct + vtable type declarations
// ---------------------------------------------------------------------------

func (g *Generator) emitRuntimeDecls() {
	for _, d := range []string{
		"declare ptr @Object_alloc(i64, i32, ptr)",
		"declare void @Object_retain(ptr)",
		"declare void @Object_release(ptr)",
		"declare i32 @Object_get_ref_count(ptr)",
		"declare ptr @String_new_from_literal(ptr)",
		"declare ptr @String_concat(ptr, ptr)",
		"declare ptr @String_from_int(i32)",
		"declare ptr @String_from_long(i64)",
		"declare ptr @String_from_float(float)",
		"declare ptr @String_from_double(double)",
		"declare ptr @String_from_bool(i1)",
		"declare ptr @String_from_char(i8)",
		"declare i32 @String_to_int(ptr)",
		"declare i64 @String_to_long(ptr)",
		"declare float @String_to_float(ptr)",
		"declare double @String_to_double(ptr)",
		"declare i1 @String_to_bool(ptr)",
		"declare i8 @String_to_char(ptr)",
		"declare i32 @String_get_length(ptr)",
		"declare ptr @String_substring(ptr, i32, i32)",
	} {
		g.emit("%s", d)
	}
	g.emitRaw("\n")
}

func (g *Generator) emitStructTypes(c *domain.TypeSymbol) {
	fieldTypes := make([]string, 0, len(c.Fields))
	seen := make(map[int]bool)
	for _, f := range c.Fields {
		if f.IsAliasOfBase || seen[f.Index] {
			continue // alias entries share a slot already counted once
		}
		seen[f.Index] = true
		fieldTypes = append(fieldTypes, llvmType(f.Type))
	}
	g.emit("%%%s = type { %s }", c.FieldsStructName, strings.Join(fieldTypes, ", "))
	if c.HasVirtualMethods() {
		slots := make([]string, len(c.VirtualMethodOrder)+1)
		for i := range slots {
			slots[i] = "ptr"
		}
		g.emit("%%%s = type { %s }", c.VTableTypeName, strings.Join(slots, ", "))
	}
}

// ---------------------------------------------------------------------------
// Pass 2: function bodies
// ---------------------------------------------------------------------------

func topLevelFunctions(unit *domain.CompilationUnit) []*domain.FunctionDecl {
	var out []*domain.FunctionDecl
	var walk func(decls []domain.Declaration)
	walk = func(decls []domain.Declaration) {
		for _, d := range decls {
			switch v := d.(type) {
			case *domain.FunctionDecl:
				out = append(out, v)
			case *domain.NamespaceDecl:
				walk(v.Declarations)
			}
		}
	}
	walk(unit.Declarations)
	return out
}

func collectTypeDecls(unit *domain.CompilationUnit) []*domain.TypeDecl {
	var out []*domain.TypeDecl
	var walk func(decls []domain.Declaration)
	walk = func(decls []domain.Declaration) {
		for _, d := range decls {
			switch v := d.(type) {
			case *domain.TypeDecl:
				out = append(out, v)
			case *domain.NamespaceDecl:
				walk(v.Declarations)
			}
		}
	}
	walk(unit.Declarations)
	return out
}

func (g *Generator) emitClassBodies(td *domain.TypeDecl) {
	if td.Resolved == nil || td.IsForwardDecl {
		return
	}
	for _, m := range td.Methods {
		g.emitFunctionDecl(m, td.Resolved)
	}
	for _, ctor := range td.Constructors {
		g.emitConstructorDecl(ctor, td.Resolved)
	}
	if td.Destructor != nil {
		g.emitDestructorDecl(td.Destructor, td.Resolved)
	}
	for _, pd := range td.Properties {
		if pd.Getter != nil {
			g.emitFunctionDecl(pd.Getter, td.Resolved)
		}
		if pd.Setter != nil {
			g.emitFunctionDecl(pd.Setter, td.Resolved)
		}
	}
}

// beginFunction resets per-function generator state and emits the entry
// block prologue: stack slots for every parameter, plus (for instance
// functions) the implicit fields pointer and the header pointer derived
// from it, per §4.6 Pass 2 and §6's object layout.
func (g *Generator) beginFunction(fn *domain.FunctionSymbol, class *domain.TypeSymbol, params []*domain.ParameterSymbol) {
	g.currentFunction = fn
	g.currentClass = class
	g.locals = make(map[string]local)
	g.scopes = NewScopeManager()
	g.scopes.Push(ScopeFunction, fn.QualifiedName)

	isInstanceFn := class != nil && !fn.IsStatic

	paramTexts := make([]string, 0, len(params)+1)
	if isInstanceFn {
		paramTexts = append(paramTexts, "ptr %fields")
	}
	for _, p := range params {
		paramTexts = append(paramTexts, fmt.Sprintf("%s %%%s", llvmType(p.Type), sanitize(p.Name)))
	}

	retTy := "void"
	if fn.ReturnType != nil {
		retTy = llvmType(fn.ReturnType)
	}
	g.emit("define %s @%s(%s) {", retTy, mangle(fn.QualifiedName), strings.Join(paramTexts, ", "))
	g.indent++
	g.startBlock("entry")

	if isInstanceFn {
		// `this` is modeled as an ordinary local holding the object's
		// header pointer, the same representation every other
		// class-typed variable uses, so field/ARC helpers never need a
		// special case for the receiver.
		hp := g.newTemp()
		g.emit("%s = getelementptr inbounds i8, ptr %%fields, i64 -%d", hp, headerSize)
		thisAlloca := "%this.addr"
		g.emit("%s = alloca ptr", thisAlloca)
		g.emit("store ptr %s, ptr %s", hp, thisAlloca)
		g.locals["this"] = local{alloca: thisAlloca, t: &domain.NamedType{Symbol: class}}
	}
	for _, p := range params {
		alloca := fmt.Sprintf("%%p.%s", sanitize(p.Name))
		pt := llvmType(p.Type)
		g.emit("%s = alloca %s", alloca, pt)
		g.emit("store %s %%%s, ptr %s", pt, sanitize(p.Name), alloca)
		g.locals[p.Name] = local{alloca: alloca, t: p.Type}
		if nt, ok := isClassType(p.Type); ok {
			g.scopes.Register(alloca, nt.Symbol, p.Name)
		}
	}
}

// endFunction emits the implicit-fallthrough terminator (every exit the
// body itself didn't already terminate) and closes the function.
func (g *Generator) endFunction(fn *domain.FunctionSymbol) {
	if !g.term {
		g.emitReleases(g.scopes.ReleasesForReturn())
		retTy := "void"
		if fn.ReturnType != nil {
			retTy = llvmType(fn.ReturnType)
		}
		if retTy == "void" {
			g.emit("ret void")
		} else {
			g.emit("ret %s %s", retTy, zeroValue(retTy))
		}
	}
	g.scopes.Pop()
	g.indent--
	g.emit("}")
	g.emitRaw("\n")
}

func (g *Generator) emitFunctionDecl(decl *domain.FunctionDecl, class *domain.TypeSymbol) {
	fn := decl.Resolved
	if fn == nil {
		return
	}
	g.beginFunction(fn, class, fn.Parameters)
	if decl.Body != nil {
		g.visitStatements(decl.Body.Statements)
	}
	g.endFunction(fn)
}

func (g *Generator) emitConstructorDecl(decl *domain.ConstructorDecl, class *domain.TypeSymbol) {
	fn := decl.Resolved
	if fn == nil {
		return
	}
	g.beginFunction(fn, class, fn.Parameters)
	if decl.Body != nil {
		g.visitStatements(decl.Body.Statements)
	}
	g.endFunction(fn)
}

func (g *Generator) emitDestructorDecl(decl *domain.DestructorDecl, class *domain.TypeSymbol) {
	fn := decl.Resolved
	if fn == nil {
		return
	}
	g.beginFunction(fn, class, nil)
	if class.BaseSymbol != nil && class.BaseSymbol.Destructor != nil {
		g.emit("call void @%s(ptr %%fields)", mangle(class.BaseSymbol.Destructor.QualifiedName))
	}
	if decl.Body != nil {
		g.visitStatements(decl.Body.Statements)
	}
	g.endFunction(fn)
}

// ---------------------------------------------------------------------------
// Pass 3: vtable constant globals
// ---------------------------------------------------------------------------

func (g *Generator) emitVTable(c *domain.TypeSymbol) {
	if !c.HasVirtualMethods() {
		return
	}
	entries := make([]string, len(c.VirtualMethodOrder)+1)
	dtorName := "null"
	if impl := concreteDestructor(c); impl != nil {
		dtorName = "@" + mangle(impl.QualifiedName)
	}
	entries[0] = "ptr " + dtorName
	for i, slotDecl := range c.VirtualMethodOrder {
		group, owner := c.FindMethod(slotDecl.Name)
		impl := slotDecl
		if group != nil {
			for _, cand := range group.Overloads {
				if cand.VTableSlot == slotDecl.VTableSlot {
					impl = cand
					break
				}
			}
			_ = owner
		}
		entries[i+1] = "ptr @" + mangle(impl.QualifiedName)
	}
	g.emit("@%s = global %%%s { %s }", c.VTableGlobalName, c.VTableTypeName, strings.Join(entries, ", "))
}

func concreteDestructor(c *domain.TypeSymbol) *domain.FunctionSymbol {
	for cur := c; cur != nil; cur = cur.BaseSymbol {
		if cur.Destructor != nil {
			return cur.Destructor
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// string literal pool
// ---------------------------------------------------------------------------

func (g *Generator) internString(s string) string {
	g.strSeq++
	name := fmt.Sprintf("@.str.%d", g.strSeq)
	g.strLits = append(g.strLits, stringLiteral{name: name, content: s})
	return name
}

func (g *Generator) emitStringLiterals() {
	if len(g.strLits) == 0 {
		return
	}
	g.emitRaw("\n")
	for _, s := range g.strLits {
		escaped := strings.NewReplacer(`\`, `\5C`, `"`, `\22`, "\n", `\0A`).Replace(s.content)
		g.emit("%s = private unnamed_addr constant [%d x i8] c\"%s\\00\"", s.name, len(s.content)+1, escaped)
	}
}

var (
	_ interfaces.CodeGenerator = (*Generator)(nil)
	_ domain.Visitor           = (*Generator)(nil)
)

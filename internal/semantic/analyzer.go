// Package semantic implements the two-phase analysis strategy of §4.5: a
// top-down registration pass over every declaration's signature, followed
// by a body-resolution pass that binds names, checks types, resolves
// overloads, and records the caller→callee usage graph.
package semantic

import (
	"fmt"
	"strings"

	"github.com/emberlang/ember/internal/domain"
	"github.com/emberlang/ember/internal/interfaces"
)

var primitiveKindByName = map[string]domain.PrimitiveKind{
	"i32": domain.KindI32, "i64": domain.KindI64,
	"f32": domain.KindF32, "f64": domain.KindF64,
	"bool": domain.KindBool, "char": domain.KindChar,
	"void": domain.KindVoid, "string": domain.KindString,
}

// Analyzer implements interfaces.SemanticAnalyzer. It is grounded in the
// teacher's Analyzer (same Set* injection points, same "collect signatures,
// then walk bodies" two-pass shape) but generalized from the teacher's flat
// function/struct registration to the class hierarchy, vtable-slot, and
// overload-resolution machinery the class-based language requires.
type Analyzer struct {
	ts     *domain.TypeSystem
	st     interfaces.SymbolTable
	errors domain.ErrorReporter

	currentClass    *domain.TypeSymbol
	currentFunction *domain.FunctionSymbol
	loopDepth       int

	lastType     domain.Type
	lastCategory domain.ValueCategory

	usageGraph *interfaces.UsageGraph

	typeDecls  map[string]*domain.TypeDecl
	typeOrder  []string
	partial    map[string]*domain.TypeSymbol
	baseChain  map[string]bool
	nextTypeID int

	funcEntries []funcEntry
	varEntries  []*domain.VariableDecl
}

type funcEntry struct {
	decl *domain.FunctionDecl
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{nextTypeID: 1}
}

func (a *Analyzer) SetTypeSystem(ts *domain.TypeSystem)      { a.ts = ts }
func (a *Analyzer) SetSymbolTable(st interfaces.SymbolTable) { a.st = st }
func (a *Analyzer) SetErrorReporter(r domain.ErrorReporter)  { a.errors = r }

// Analyze runs Phase A (registration) then Phase B (resolution & checking)
// over unit, per §4.5.
func (a *Analyzer) Analyze(unit *domain.CompilationUnit) (*interfaces.SemanticIR, error) {
	if a.ts == nil {
		a.ts = domain.NewTypeSystem()
	}
	if a.st == nil {
		a.st = NewDefaultSymbolTable()
	}
	a.st.Reset()
	a.usageGraph = &interfaces.UsageGraph{}
	a.typeDecls = make(map[string]*domain.TypeDecl)
	a.partial = make(map[string]*domain.TypeSymbol)
	a.baseChain = make(map[string]bool)
	a.typeOrder = nil
	a.funcEntries = nil
	a.varEntries = nil

	prefix := unit.Namespace
	a.collectShells(unit.Declarations, prefix)

	for _, qn := range a.typeOrder {
		a.ensureTypeBuilt(qn)
	}

	for _, fe := range a.funcEntries {
		a.registerFunctionSignature(fe.decl, "")
	}

	// Phase B: class member bodies.
	for _, qn := range a.typeOrder {
		sym, ok := a.st.FindClass(qn)
		if !ok {
			continue
		}
		decl := a.typeDecls[qn]
		a.analyzeClassBodies(sym, decl)
	}
	// Phase B: free function bodies.
	for _, fe := range a.funcEntries {
		a.analyzeFunctionBody(fe.decl.Resolved, nil, fe.decl.Parameters, fe.decl.Body)
	}
	// Phase B: top-level variable initializers.
	for _, vd := range a.varEntries {
		vd.Accept(a)
	}

	for _, name := range a.st.OutstandingForwardDeclarations() {
		a.reportError(domain.ForwardDeclarationError,
			fmt.Sprintf("%q is forward-declared but never defined", name), domain.SourceRange{}, "", nil)
	}

	hasErrors := a.errors != nil && a.errors.HasErrors()
	return &interfaces.SemanticIR{
		Unit:        unit,
		SymbolTable: a.st,
		UsageGraph:  a.usageGraph,
		HasErrors:   hasErrors,
	}, nil
}

// ---------------------------------------------------------------------------
// Phase A — registration
// ---------------------------------------------------------------------------

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func (a *Analyzer) collectShells(decls []domain.Declaration, prefix string) {
	for _, d := range decls {
		switch n := d.(type) {
		case *domain.TypeDecl:
			qn := qualify(prefix, n.Name)
			a.typeDecls[qn] = n
			a.typeOrder = append(a.typeOrder, qn)
		case *domain.FunctionDecl:
			a.funcEntries = append(a.funcEntries, funcEntry{decl: n})
		case *domain.NamespaceDecl:
			a.collectShells(n.Declarations, qualify(prefix, n.Name))
		case *domain.VariableDecl:
			// Top-level variables carry no signature to register ahead of
			// bodies; their type is inferred from Init in Phase B.
			a.varEntries = append(a.varEntries, n)
		}
	}
}

func (a *Analyzer) resolveTypeDeclName(fromQN, baseName string) (string, bool) {
	if _, ok := a.typeDecls[baseName]; ok {
		return baseName, true
	}
	if idx := strings.LastIndex(fromQN, "."); idx >= 0 {
		cand := fromQN[:idx] + "." + baseName
		if _, ok := a.typeDecls[cand]; ok {
			return cand, true
		}
	}
	for qn := range a.typeDecls {
		if strings.HasSuffix(qn, "."+baseName) {
			return qn, true
		}
	}
	return "", false
}

// ensureTypeBuilt builds (or returns the in-progress) TypeSymbol for qn,
// recursing into its base first so inheritance flattening always sees a
// fully-built parent — or, for a self-referential field (e.g. a pointer to
// the class's own type), the same partially-built *TypeSymbol*, which is
// safe because callers only dereference its Fields/Methods after the whole
// build completes.
func (a *Analyzer) ensureTypeBuilt(qn string) *domain.TypeSymbol {
	if sym, ok := a.partial[qn]; ok {
		return sym
	}
	decl, ok := a.typeDecls[qn]
	if !ok {
		return nil
	}

	sym := &domain.TypeSymbol{
		Name:             decl.Name,
		QualifiedName:    qn,
		Kind:             decl.Kind,
		BaseName:         decl.BaseName,
		FieldIndex:       make(map[string]int),
		Methods:          make(map[string]*domain.MethodGroup),
		VTableTypeName:   qn + "_VTable",
		VTableGlobalName: qn + "_vtable_global",
		FieldsStructName: qn + "_Fields",
		TypeID:           a.nextTypeID,
		IsForwardDecl:    decl.IsForwardDecl,
		IsDefined:        !decl.IsForwardDecl,
	}
	a.nextTypeID++
	a.partial[qn] = sym
	decl.Resolved = sym

	if decl.IsForwardDecl {
		a.st.DeclareClass(sym)
		return sym
	}

	var base *domain.TypeSymbol
	if decl.BaseName != "" {
		baseQN, found := a.resolveTypeDeclName(qn, decl.BaseName)
		if !found {
			a.reportError(domain.InheritanceError,
				fmt.Sprintf("unknown base type %q for %q", decl.BaseName, decl.Name), decl.GetLocation(), "", nil)
		} else if a.baseChain[baseQN] {
			a.reportError(domain.InheritanceError,
				fmt.Sprintf("cyclic inheritance involving %q", decl.BaseName), decl.GetLocation(), "", nil)
		} else {
			a.baseChain[qn] = true
			base = a.ensureTypeBuilt(baseQN)
			delete(a.baseChain, qn)
		}
	}
	sym.BaseSymbol = base

	if base != nil {
		sym.Fields = append(sym.Fields, base.Fields...)
		for name, idx := range base.FieldIndex {
			sym.FieldIndex[name] = idx
		}
	}
	for _, fd := range decl.Fields {
		idx := len(sym.Fields)
		fs := &domain.FieldSymbol{
			Name: fd.Name, Type: a.resolveTypeRef(fd.Type), Index: idx,
			OwnerClass: sym, DeclaredIn: sym,
		}
		sym.Fields = append(sym.Fields, fs)
		sym.FieldIndex[fd.Name] = idx
	}
	if base != nil {
		for name, idx := range base.FieldIndex {
			if !strings.HasPrefix(name, "base.") {
				sym.FieldIndex["base."+name] = idx
			}
		}
		sym.VirtualMethodOrder = append(sym.VirtualMethodOrder, base.VirtualMethodOrder...)
	}

	for _, md := range decl.Methods {
		fn := a.buildMethodSymbol(md, sym)
		grp, ok := sym.Methods[md.Name]
		if !ok {
			grp = &domain.MethodGroup{Name: md.Name}
			sym.Methods[md.Name] = grp
		}
		grp.Overloads = append(grp.Overloads, fn)
		md.Resolved = fn
	}
	for _, pd := range decl.Properties {
		a.buildPropertyAccessors(pd, sym)
	}

	if decl.Destructor != nil {
		dtor := &domain.FunctionSymbol{
			Name: "%dtor", QualifiedName: qn + ".%dtor", IsDestructor: true,
			OwnerClass: sym, VTableSlot: 0, ReturnType: a.ts.GetPrimitive(domain.KindVoid),
			IsDefined: true, DeclLine: decl.Destructor.GetLocation().Start.Line,
		}
		sym.Destructor = dtor
		sym.DestructorName = "%dtor"
		decl.Destructor.Resolved = dtor
	} else if base != nil {
		sym.Destructor = base.Destructor
		sym.DestructorName = base.DestructorName
	}

	for _, cd := range decl.Constructors {
		params := a.buildParams(cd.Parameters)
		ctor := &domain.FunctionSymbol{
			Name: "%ctor", QualifiedName: qn + ".%ctor", Parameters: params,
			ReturnType: a.ts.GetPrimitive(domain.KindVoid), IsConstructor: true,
			OwnerClass: sym, VTableSlot: -1, IsDefined: true,
			DeclLine: cd.GetLocation().Start.Line,
		}
		sym.Constructors = append(sym.Constructors, ctor)
		cd.Resolved = ctor
	}

	for i, ec := range decl.EnumCases {
		params := make([]domain.Type, len(ec.Parameters))
		for j, p := range ec.Parameters {
			params[j] = a.resolveTypeRef(p)
		}
		sym.EnumCases = append(sym.EnumCases, domain.EnumCaseSymbol{Name: ec.Name, Index: i, Parameters: params})
	}

	a.st.DeclareClass(sym)
	return sym
}

func (a *Analyzer) buildParams(decls []*domain.ParameterDecl) []*domain.ParameterSymbol {
	params := make([]*domain.ParameterSymbol, len(decls))
	for i, p := range decls {
		params[i] = &domain.ParameterSymbol{Name: p.Name, Type: a.resolveTypeRef(p.Type), Index: i}
	}
	return params
}

// buildMethodSymbol registers md's signature and assigns its vtable slot:
// a new slot for a fresh `virtual` declaration, the ancestor's slot reused
// for `override`, or -1 for a non-virtual method, per §4.4/§4.6.
func (a *Analyzer) buildMethodSymbol(md *domain.FunctionDecl, owner *domain.TypeSymbol) *domain.FunctionSymbol {
	params := a.buildParams(md.Parameters)
	var ret domain.Type
	if md.ReturnType != nil {
		ret = a.resolveTypeRef(md.ReturnType)
	} else {
		ret = a.ts.GetPrimitive(domain.KindVoid)
	}

	slot := -1
	appendSlot := false
	switch {
	case md.Modifiers.IsOverride:
		if owner.BaseSymbol != nil {
			if grp, foundIn := owner.BaseSymbol.FindMethod(md.Name); foundIn != nil && len(grp.Overloads) > 0 && grp.Overloads[0].VTableSlot >= 0 {
				slot = grp.Overloads[0].VTableSlot
			}
		}
		if slot < 0 {
			a.reportError(domain.InheritanceError,
				fmt.Sprintf("%q is marked override but no virtual method of that name exists in a base class", md.Name),
				md.GetLocation(), "", nil)
		}
	case md.Modifiers.IsVirtual:
		slot = len(owner.VirtualMethodOrder) + 1
		appendSlot = true
	}

	fn := &domain.FunctionSymbol{
		Name: md.Name, QualifiedName: owner.QualifiedName + "." + md.Name,
		Parameters: params, ReturnType: ret,
		IsStatic: md.Modifiers.IsStatic, IsVirtual: md.Modifiers.IsVirtual || md.Modifiers.IsOverride,
		IsOverride: md.Modifiers.IsOverride, IsExternal: md.Modifiers.IsExtern,
		IsForwardDecl: md.Body == nil, IsDefined: md.Body != nil,
		OwnerClass: owner, VTableSlot: slot, DeclLine: md.GetLocation().Start.Line,
	}
	if appendSlot {
		owner.VirtualMethodOrder = append(owner.VirtualMethodOrder, fn)
	}
	return fn
}

// buildPropertyAccessors registers a property's getter/setter as ordinary
// methods named get_X/set_X, per the property-sugar decision recorded in
// DESIGN.md.
func (a *Analyzer) buildPropertyAccessors(pd *domain.PropertyDecl, owner *domain.TypeSymbol) {
	if pd.Getter != nil {
		fn := a.buildMethodSymbol(namedCopy(pd.Getter, "get_"+pd.Name), owner)
		owner.Methods["get_"+pd.Name] = &domain.MethodGroup{Name: "get_" + pd.Name, Overloads: []*domain.FunctionSymbol{fn}}
		pd.Getter.Resolved = fn
	}
	if pd.Setter != nil {
		fn := a.buildMethodSymbol(namedCopy(pd.Setter, "set_"+pd.Name), owner)
		owner.Methods["set_"+pd.Name] = &domain.MethodGroup{Name: "set_" + pd.Name, Overloads: []*domain.FunctionSymbol{fn}}
		pd.Setter.Resolved = fn
	}
}

// namedCopy returns a shallow copy of decl with Name overridden, so the
// synthesized accessor gets its own qualified name without mutating the
// user-written getter/setter FunctionDecl in place.
func namedCopy(decl *domain.FunctionDecl, name string) *domain.FunctionDecl {
	copyDecl := *decl
	copyDecl.Name = name
	return &copyDecl
}

func (a *Analyzer) registerFunctionSignature(decl *domain.FunctionDecl, prefix string) {
	qn := qualify(prefix, decl.Name)
	params := a.buildParams(decl.Parameters)
	var ret domain.Type
	if decl.ReturnType != nil {
		ret = a.resolveTypeRef(decl.ReturnType)
	} else {
		ret = a.ts.GetPrimitive(domain.KindVoid)
	}
	sym := &domain.FunctionSymbol{
		Name: decl.Name, QualifiedName: qn, Parameters: params, ReturnType: ret,
		IsStatic: decl.Modifiers.IsStatic, IsExternal: decl.Modifiers.IsExtern,
		IsForwardDecl: decl.Body == nil, IsDefined: decl.Body != nil, VTableSlot: -1,
		DeclLine: decl.GetLocation().Start.Line,
	}
	decl.Resolved = sym
	if err := a.st.DeclareFunction(sym); err != nil {
		a.reportError(domain.NameError, err.Error(), decl.GetLocation(), "", nil)
	}
}

// resolveTypeRef turns user-written type syntax into an interned Type,
// per §4.3's façade. Named references to classes trigger ensureTypeBuilt
// so forward references anywhere in the unit resolve regardless of
// textual order, per §5's "Multi-unit driving" supplement.
func (a *Analyzer) resolveTypeRef(ref domain.TypeRef) domain.Type {
	if ref == nil {
		return a.ts.GetPrimitive(domain.KindVoid)
	}
	switch r := ref.(type) {
	case *domain.NamedTypeRef:
		if kind, ok := primitiveKindByName[r.Name]; ok {
			return a.ts.GetPrimitive(kind)
		}
		if qn, ok := a.resolveTypeDeclName("", r.Name); ok {
			if sym := a.ensureTypeBuilt(qn); sym != nil {
				return a.ts.GetNamed(sym)
			}
		}
		a.reportError(domain.NameError, fmt.Sprintf("unknown type %q", r.Name), r.GetLocation(), "", nil)
		return a.ts.NewUnresolved()
	case *domain.PointerTypeRef:
		return a.ts.GetPointer(a.resolveTypeRef(r.Inner))
	case *domain.ArrayTypeRef:
		return a.ts.GetArray(a.resolveTypeRef(r.Element), r.Size)
	}
	return a.ts.NewUnresolved()
}

// ---------------------------------------------------------------------------
// Phase B — resolution & checking
// ---------------------------------------------------------------------------

func (a *Analyzer) analyzeClassBodies(sym *domain.TypeSymbol, decl *domain.TypeDecl) {
	if decl == nil || decl.IsForwardDecl {
		return
	}
	for _, md := range decl.Methods {
		a.analyzeFunctionBody(md.Resolved, sym, md.Parameters, md.Body)
	}
	for _, cd := range decl.Constructors {
		a.currentClass = sym
		a.currentFunction = cd.Resolved
		a.st.EnterScope(sym.QualifiedName + ".%ctor")
		a.declareThis(sym)
		for i, p := range cd.Parameters {
			a.st.DeclareVariable(p.Name, cd.Resolved.Parameters[i].Type, p.GetLocation())
		}
		if cd.Body != nil {
			a.visitStatements(cd.Body.Statements)
		}
		a.st.ExitScope()
		a.currentFunction, a.currentClass = nil, nil
	}
	if decl.Destructor != nil {
		a.currentClass = sym
		a.currentFunction = decl.Destructor.Resolved
		a.st.EnterScope(sym.QualifiedName + ".%dtor")
		a.declareThis(sym)
		if decl.Destructor.Body != nil {
			a.visitStatements(decl.Destructor.Body.Statements)
		}
		a.st.ExitScope()
		a.currentFunction, a.currentClass = nil, nil
	}
	for _, pd := range decl.Properties {
		if pd.Getter != nil {
			a.analyzeFunctionBody(pd.Getter.Resolved, sym, pd.Getter.Parameters, pd.Getter.Body)
		}
		if pd.Setter != nil {
			a.analyzeFunctionBody(pd.Setter.Resolved, sym, pd.Setter.Parameters, pd.Setter.Body)
		}
	}
}

func (a *Analyzer) declareThis(class *domain.TypeSymbol) {
	a.st.DeclareVariable("this", a.ts.GetNamed(class), domain.SourceRange{})
}

func (a *Analyzer) analyzeFunctionBody(fn *domain.FunctionSymbol, class *domain.TypeSymbol, params []*domain.ParameterDecl, body *domain.BlockStmt) {
	if fn == nil || body == nil {
		return
	}
	a.currentFunction = fn
	a.currentClass = class
	a.st.EnterScope(fn.QualifiedName)
	if class != nil && !fn.IsStatic {
		a.declareThis(class)
	}
	for i, p := range params {
		a.st.DeclareVariable(p.Name, fn.Parameters[i].Type, p.GetLocation())
	}
	a.visitStatements(body.Statements)
	a.st.ExitScope()
	a.currentFunction, a.currentClass = nil, nil
}

func (a *Analyzer) visitStatements(stmts []domain.Statement) {
	for _, s := range stmts {
		s.Accept(a)
	}
}

func (a *Analyzer) reportError(kind domain.ErrorType, msg string, loc domain.SourceRange, context string, hints []string) {
	if a.errors != nil {
		a.errors.ReportError(domain.CompilerError{Type: kind, Message: msg, Location: loc, Context: context, Hints: hints})
	}
}

func safeStr(t domain.Type) string {
	if t == nil {
		return "null"
	}
	return t.String()
}

func isStringType(t domain.Type) bool {
	p, ok := t.(*domain.PrimitiveType)
	return ok && p.Kind == domain.KindString
}

func isBoolType(t domain.Type) bool {
	p, ok := t.(*domain.PrimitiveType)
	return ok && p.Kind == domain.KindBool
}

func (a *Analyzer) checkBoolCondition(loc domain.SourceRange) {
	if a.lastType == nil || isBoolType(a.lastType) {
		return
	}
	a.reportError(domain.TypeError, fmt.Sprintf("condition must be bool, got %s", safeStr(a.lastType)), loc, "", nil)
}

func (a *Analyzer) checkAssignable(target, source domain.Type, loc domain.SourceRange) bool {
	if source == nil || target == nil {
		return true // null literal, or an already-Unresolved operand from an earlier error
	}
	if target.Equals(source) || target.IsAssignableFrom(source) {
		return true
	}
	conv := domain.ClassifyConversion(source, target)
	if conv == domain.ConvIdentity || conv == domain.ConvImplicitNumeric {
		return true
	}
	a.reportError(domain.TypeError, fmt.Sprintf("cannot assign %s to %s", safeStr(source), safeStr(target)), loc, "", nil)
	return false
}

func symbolType(sym domain.Symbol) domain.Type {
	switch s := sym.(type) {
	case *domain.VariableSymbol:
		return s.Type
	case *domain.ParameterSymbol:
		return s.Type
	case *domain.FieldSymbol:
		return s.Type
	case *domain.PropertySymbol:
		return s.Type
	}
	return nil
}

// resolveOverload implements §4.5's scoring: +2 per Identity conversion,
// +1 per ImplicitNumeric, rejecting any candidate needing a non-implicit
// conversion. The highest score wins; a tie is reported by the caller.
func (a *Analyzer) resolveOverload(candidates []*domain.FunctionSymbol, argTypes []domain.Type) (*domain.FunctionSymbol, bool) {
	best := -1
	bestScore := -1
	tie := false
	for idx, cand := range candidates {
		if len(cand.Parameters) != len(argTypes) {
			continue
		}
		score := 0
		ok := true
		for i, p := range cand.Parameters {
			if argTypes[i] == nil {
				continue
			}
			switch domain.ClassifyConversion(argTypes[i], p.Type) {
			case domain.ConvIdentity:
				score += 2
			case domain.ConvImplicitNumeric:
				score++
			default:
				ok = false
			}
			if !ok {
				break
			}
		}
		if !ok {
			continue
		}
		switch {
		case score > bestScore:
			bestScore, best, tie = score, idx, false
		case score == bestScore:
			tie = true
		}
	}
	if best == -1 {
		return nil, false
	}
	return candidates[best], tie
}

var primitiveMemberTypes = map[string]domain.PrimitiveKind{
	"Length":     domain.KindI32,
	"ToString":   domain.KindString,
	"Substring":  domain.KindString,
	"GetHashCode": domain.KindI32,
}

func (a *Analyzer) primitiveMemberType(t domain.Type, member string) domain.Type {
	if kind, ok := primitiveMemberTypes[member]; ok {
		return a.ts.GetPrimitive(kind)
	}
	return a.ts.NewUnresolved()
}

// ---------------------------------------------------------------------------
// Statement visitor
// ---------------------------------------------------------------------------

func (a *Analyzer) VisitBlockStmt(n *domain.BlockStmt) {
	a.st.EnterScope("block")
	a.visitStatements(n.Statements)
	a.st.ExitScope()
}

func (a *Analyzer) VisitExprStmt(n *domain.ExprStmt) { n.Expr.Accept(a) }

func (a *Analyzer) VisitVarDeclStmt(n *domain.VarDeclStmt) {
	var t domain.Type
	if n.Init != nil {
		n.Init.Accept(a)
		t = a.lastType
	}
	if n.DeclaredType != nil {
		declared := a.resolveTypeRef(n.DeclaredType)
		if n.Init != nil {
			a.checkAssignable(declared, t, n.GetLocation())
		}
		t = declared
	}
	if t == nil {
		t = a.ts.NewUnresolved()
	}
	n.ResolvedType = t
	if _, err := a.st.DeclareVariable(n.Name, t, n.GetLocation()); err != nil {
		a.reportError(domain.NameError, err.Error(), n.GetLocation(), "", nil)
	}
}

func (a *Analyzer) VisitIfStmt(n *domain.IfStmt) {
	n.Condition.Accept(a)
	a.checkBoolCondition(n.Condition.GetLocation())
	n.Then.Accept(a)
	if n.Else != nil {
		n.Else.Accept(a)
	}
}

func (a *Analyzer) VisitWhileStmt(n *domain.WhileStmt) {
	n.Condition.Accept(a)
	a.checkBoolCondition(n.Condition.GetLocation())
	a.loopDepth++
	n.Body.Accept(a)
	a.loopDepth--
}

func (a *Analyzer) VisitForStmt(n *domain.ForStmt) {
	a.st.EnterScope("for")
	if n.Init != nil {
		n.Init.Accept(a)
	}
	if n.Cond != nil {
		n.Cond.Accept(a)
		a.checkBoolCondition(n.Cond.GetLocation())
	}
	if n.Update != nil {
		n.Update.Accept(a)
	}
	a.loopDepth++
	n.Body.Accept(a)
	a.loopDepth--
	a.st.ExitScope()
}

func (a *Analyzer) VisitForInStmt(n *domain.ForInStmt) {
	n.Iter.Accept(a)
	elemType := a.lastType
	if rng, ok := n.Iter.(*domain.RangeExpr); ok {
		rng.Start.Accept(a)
		elemType = a.lastType
	} else if arr, ok := elemType.(*domain.ArrayType); ok {
		elemType = arr.Element
	}
	a.st.EnterScope("for-in")
	a.st.DeclareVariable(n.VarName, elemType, n.GetLocation())
	a.loopDepth++
	n.Body.Accept(a)
	a.loopDepth--
	a.st.ExitScope()
}

func (a *Analyzer) VisitReturnStmt(n *domain.ReturnStmt) {
	var retType domain.Type = a.ts.GetPrimitive(domain.KindVoid)
	if n.Value != nil {
		n.Value.Accept(a)
		retType = a.lastType
	}
	if a.currentFunction == nil {
		return
	}
	if _, unresolved := a.currentFunction.ReturnType.(*domain.UnresolvedType); unresolved || a.currentFunction.ReturnType == nil {
		a.currentFunction.ReturnType = retType
		return
	}
	if retType != nil && !a.currentFunction.ReturnType.Equals(retType) {
		if domain.ClassifyConversion(retType, a.currentFunction.ReturnType) == domain.ConvNoConversion {
			a.reportError(domain.TypeError,
				fmt.Sprintf("cannot return %s from a function declared to return %s", safeStr(retType), safeStr(a.currentFunction.ReturnType)),
				n.GetLocation(), "", nil)
		}
	}
}

func (a *Analyzer) VisitBreakStmt(n *domain.BreakStmt) {
	if a.loopDepth == 0 {
		a.reportError(domain.TypeError, "break used outside a loop", n.GetLocation(), "", nil)
	}
}

func (a *Analyzer) VisitContinueStmt(n *domain.ContinueStmt) {
	if a.loopDepth == 0 {
		a.reportError(domain.TypeError, "continue used outside a loop", n.GetLocation(), "", nil)
	}
}

// ---------------------------------------------------------------------------
// Expression visitor
// ---------------------------------------------------------------------------

func (a *Analyzer) VisitLiteralExpr(n *domain.LiteralExpr) {
	switch n.Kind {
	case domain.LitInt:
		a.lastType = a.ts.GetPrimitive(domain.KindI32)
	case domain.LitLong:
		a.lastType = a.ts.GetPrimitive(domain.KindI64)
	case domain.LitFloat:
		a.lastType = a.ts.GetPrimitive(domain.KindF32)
	case domain.LitDouble:
		a.lastType = a.ts.GetPrimitive(domain.KindF64)
	case domain.LitChar:
		a.lastType = a.ts.GetPrimitive(domain.KindChar)
	case domain.LitString:
		a.lastType = a.ts.GetPrimitive(domain.KindString)
	case domain.LitBool:
		a.lastType = a.ts.GetPrimitive(domain.KindBool)
	case domain.LitNull:
		a.lastType = nil // untyped null: assignable to anything, per checkAssignable
	}
	a.lastCategory = domain.RValue
	n.SetType(a.lastType)
}

func (a *Analyzer) VisitNameExpr(n *domain.NameExpr) {
	if len(n.Parts) > 1 {
		a.visitQualifiedName(n)
		return
	}
	name := n.Parts[0]
	if sym, ok := a.st.FindVariable(name); ok {
		n.ResolvedSymbol = sym
		a.lastType = symbolType(sym)
		a.lastCategory = domain.LValue
		n.SetType(a.lastType)
		return
	}
	if a.currentClass != nil {
		if fs, ok := a.currentClass.GetField(name); ok {
			n.ResolvedSymbol = fs
			a.lastType = fs.Type
			a.lastCategory = domain.LValue
			n.SetType(a.lastType)
			return
		}
		if grp, _ := a.currentClass.FindMethod(name); grp != nil {
			n.ResolvedSymbol = grp.Overloads[0]
			a.lastType = a.ts.NewUnresolved()
			a.lastCategory = domain.RValue
			n.SetType(a.lastType)
			return
		}
		if name == "base" && a.currentClass.BaseSymbol != nil {
			a.lastType = a.ts.GetNamed(a.currentClass.BaseSymbol)
			a.lastCategory = domain.LValue
			n.SetType(a.lastType)
			return
		}
	}
	if grp, ok := a.st.FindFunction(name); ok {
		n.ResolvedSymbol = grp.Overloads[0]
		a.lastType = a.ts.NewUnresolved()
		a.lastCategory = domain.RValue
		n.SetType(a.lastType)
		return
	}
	a.reportError(domain.NameError, fmt.Sprintf("undefined name %q", name), n.GetLocation(), "", nil)
	a.lastType = a.ts.NewUnresolved()
	a.lastCategory = domain.RValue
	n.SetType(a.lastType)
}

func (a *Analyzer) visitQualifiedName(n *domain.NameExpr) {
	joined := strings.Join(n.Parts, ".")
	if sym, ok := a.st.FindClass(joined); ok {
		n.ResolvedSymbol = sym
		a.lastType = a.ts.GetNamed(sym)
		a.lastCategory = domain.RValue
		n.SetType(a.lastType)
		return
	}
	a.reportError(domain.NameError, fmt.Sprintf("undefined qualified name %q", joined), n.GetLocation(), "", nil)
	a.lastType = a.ts.NewUnresolved()
	a.lastCategory = domain.RValue
	n.SetType(a.lastType)
}

func (a *Analyzer) VisitBinaryExpr(n *domain.BinaryExpr) {
	n.Left.Accept(a)
	lt := a.lastType
	n.Right.Accept(a)
	rt := a.lastType

	stringy := isStringType(lt) || isStringType(rt)
	if lt != nil && rt != nil && !domain.CanApplyBinaryOperator(n.Operator, lt, rt) {
		if !(n.Operator == domain.OpAdd && stringy) {
			a.reportError(domain.TypeError,
				fmt.Sprintf("operator %s is not applicable to %s and %s", n.Operator, safeStr(lt), safeStr(rt)),
				n.GetLocation(), "", nil)
		}
	}

	switch n.Operator {
	case domain.OpEq, domain.OpNe, domain.OpLt, domain.OpLe, domain.OpGt, domain.OpGe, domain.OpAnd, domain.OpOr:
		a.lastType = a.ts.GetPrimitive(domain.KindBool)
	default:
		if n.Operator == domain.OpAdd && stringy {
			a.lastType = a.ts.GetPrimitive(domain.KindString)
		} else {
			a.lastType = lt
		}
	}
	a.lastCategory = domain.RValue
	n.SetType(a.lastType)
}

func (a *Analyzer) VisitUnaryExpr(n *domain.UnaryExpr) {
	n.Operand.Accept(a)
	ot := a.lastType
	if ot != nil && !domain.CanApplyUnaryOperator(n.Operator, ot) {
		a.reportError(domain.TypeError, fmt.Sprintf("operator %s is not applicable to %s", n.Operator, safeStr(ot)), n.GetLocation(), "", nil)
	}
	result := ot
	if n.Operator == domain.OpNot {
		result = a.ts.GetPrimitive(domain.KindBool)
	}
	a.lastType = result
	a.lastCategory = domain.RValue
	n.SetType(result)
}

func (a *Analyzer) VisitAssignExpr(n *domain.AssignExpr) {
	n.Target.Accept(a)
	if a.lastCategory != domain.LValue {
		a.reportError(domain.TypeError, "cannot assign to an rvalue", n.GetLocation(), "", nil)
	}
	targetType := a.lastType
	n.Value.Accept(a)
	a.checkAssignable(targetType, a.lastType, n.GetLocation())
	a.lastType = targetType
	a.lastCategory = domain.RValue
	n.SetType(targetType)
}

func (a *Analyzer) VisitCallExpr(n *domain.CallExpr) {
	argTypes := make([]domain.Type, len(n.Args))
	for i, arg := range n.Args {
		arg.Accept(a)
		argTypes[i] = a.lastType
	}

	var candidates []*domain.FunctionSymbol
	switch callee := n.Callee.(type) {
	case *domain.NameExpr:
		name := callee.Parts[len(callee.Parts)-1]
		if a.currentClass != nil {
			if grp, _ := a.currentClass.FindMethod(name); grp != nil {
				candidates = grp.Overloads
			}
		}
		if candidates == nil {
			if grp, ok := a.st.FindFunction(name); ok {
				candidates = grp.Overloads
			}
		}
	case *domain.MemberExpr:
		callee.Object.Accept(a)
		if named, ok := a.lastType.(*domain.NamedType); ok {
			if grp, _ := named.Symbol.FindMethod(callee.Member); grp != nil {
				candidates = grp.Overloads
			}
		}
	default:
		n.Callee.Accept(a)
	}

	if len(candidates) == 0 {
		a.reportError(domain.NameError, "no matching function found for call", n.GetLocation(), "", nil)
		a.lastType = a.ts.NewUnresolved()
		a.lastCategory = domain.RValue
		n.SetType(a.lastType)
		return
	}

	best, ambiguous := a.resolveOverload(candidates, argTypes)
	if best == nil {
		a.reportError(domain.TypeError, "no overload matches the given argument types", n.GetLocation(), "", nil)
		a.lastType = a.ts.NewUnresolved()
	} else {
		if ambiguous {
			a.reportError(domain.NameError, "ambiguous overloaded call", n.GetLocation(), "", nil)
		}
		n.Resolved = best
		a.lastType = best.ReturnType
		ctx := ""
		if a.currentClass != nil {
			ctx = a.currentClass.QualifiedName
		}
		a.usageGraph.Record(interfaces.UsageEdge{
			ContextClass: ctx, Callee: best.QualifiedName, Location: n.GetLocation(),
			IsForward: best.DeclLine > n.GetLocation().Start.Line,
		})
	}
	a.lastCategory = domain.RValue
	n.SetType(a.lastType)
}

func (a *Analyzer) VisitMemberExpr(n *domain.MemberExpr) {
	n.Object.Accept(a)
	objType := a.lastType
	if objType == nil {
		a.lastType = a.ts.NewUnresolved()
		a.lastCategory = domain.RValue
		n.SetType(a.lastType)
		return
	}
	if named, ok := objType.(*domain.NamedType); ok {
		if fs, ok := named.Symbol.GetField(n.Member); ok {
			a.lastType = fs.Type
			a.lastCategory = domain.LValue
			n.SetType(a.lastType)
			return
		}
		if grp, _ := named.Symbol.FindMethod(n.Member); grp != nil {
			a.lastType = a.ts.NewUnresolved()
			a.lastCategory = domain.RValue
			n.SetType(a.lastType)
			return
		}
		a.reportError(domain.NameError, fmt.Sprintf("%q has no member %q", named.Symbol.QualifiedName, n.Member), n.GetLocation(), "", nil)
		a.lastType = a.ts.NewUnresolved()
		a.lastCategory = domain.RValue
		n.SetType(a.lastType)
		return
	}
	a.lastType = a.primitiveMemberType(objType, n.Member)
	a.lastCategory = domain.RValue
	n.SetType(a.lastType)
}

func (a *Analyzer) VisitIndexExpr(n *domain.IndexExpr) {
	n.Object.Accept(a)
	objType := a.lastType
	n.Index.Accept(a)
	if arr, ok := objType.(*domain.ArrayType); ok {
		a.lastType = arr.Element
	} else {
		a.lastType = a.ts.NewUnresolved()
	}
	a.lastCategory = domain.LValue
	n.SetType(a.lastType)
}

func (a *Analyzer) VisitCastExpr(n *domain.CastExpr) {
	n.Operand.Accept(a)
	from := a.lastType
	to := a.resolveTypeRef(n.TargetType)
	if from != nil && domain.ClassifyConversion(from, to) == domain.ConvNoConversion {
		a.reportError(domain.TypeError, fmt.Sprintf("cannot cast %s to %s", safeStr(from), safeStr(to)), n.GetLocation(), "", nil)
	}
	a.lastType = to
	a.lastCategory = domain.RValue
	n.SetType(to)
}

func (a *Analyzer) VisitNewExpr(n *domain.NewExpr) {
	sym, ok := a.st.FindClass(n.TypeName)
	if !ok {
		for _, c := range a.st.AllClasses() {
			if c.Name == n.TypeName {
				sym, ok = c, true
				break
			}
		}
	}
	if !ok {
		a.reportError(domain.NameError, fmt.Sprintf("unknown type %q", n.TypeName), n.GetLocation(), "", nil)
		a.lastType = a.ts.NewUnresolved()
		a.lastCategory = domain.RValue
		n.SetType(a.lastType)
		return
	}
	n.Class = sym

	argTypes := make([]domain.Type, len(n.Args))
	for i, arg := range n.Args {
		arg.Accept(a)
		argTypes[i] = a.lastType
	}
	if len(sym.Constructors) > 0 || len(n.Args) > 0 {
		best, ambiguous := a.resolveOverload(sym.Constructors, argTypes)
		if best == nil {
			a.reportError(domain.TypeError, fmt.Sprintf("no matching constructor for %q", sym.QualifiedName), n.GetLocation(), "", nil)
		} else {
			if ambiguous {
				a.reportError(domain.NameError, "ambiguous constructor call", n.GetLocation(), "", nil)
			}
			n.Resolved = best
		}
	}
	a.lastType = a.ts.GetNamed(sym)
	a.lastCategory = domain.RValue
	n.SetType(a.lastType)
}

func (a *Analyzer) VisitThisExpr(n *domain.ThisExpr) {
	if a.currentClass == nil {
		a.reportError(domain.NameError, "'this' used outside a method", n.GetLocation(), "", nil)
		a.lastType = a.ts.NewUnresolved()
	} else {
		a.lastType = a.ts.GetNamed(a.currentClass)
	}
	a.lastCategory = domain.LValue
	n.SetType(a.lastType)
}

func (a *Analyzer) VisitLambdaExpr(n *domain.LambdaExpr) {
	a.st.EnterScope("lambda")
	paramTypes := make([]domain.Type, len(n.Params))
	for i, p := range n.Params {
		var t domain.Type = a.ts.NewUnresolved()
		if p.Type != nil {
			t = a.resolveTypeRef(p.Type)
		}
		paramTypes[i] = t
		a.st.DeclareVariable(p.Name, t, n.GetLocation())
	}
	var ret domain.Type = a.ts.NewUnresolved()
	if n.Body != nil {
		n.Body.Accept(a)
		if expr, ok := n.Body.(domain.Expression); ok {
			ret = expr.GetType()
		}
	}
	a.st.ExitScope()
	a.lastType = a.ts.GetFunction(ret, paramTypes, false)
	a.lastCategory = domain.RValue
	n.SetType(a.lastType)
}

func (a *Analyzer) VisitRangeExpr(n *domain.RangeExpr) {
	n.Start.Accept(a)
	startType := a.lastType
	n.End.Accept(a)
	a.lastType = startType
	a.lastCategory = domain.RValue
	n.SetType(startType)
}

func (a *Analyzer) VisitConditionalExpr(n *domain.ConditionalExpr) {
	n.Condition.Accept(a)
	a.checkBoolCondition(n.Condition.GetLocation())
	n.Then.Accept(a)
	thenType := a.lastType
	n.Else.Accept(a)
	elseType := a.lastType
	if thenType != nil && elseType != nil && !thenType.Equals(elseType) {
		a.reportError(domain.TypeError, fmt.Sprintf("conditional arms disagree: %s vs %s", safeStr(thenType), safeStr(elseType)), n.GetLocation(), "", nil)
	}
	a.lastType = thenType
	a.lastCategory = domain.RValue
	n.SetType(thenType)
}

func (a *Analyzer) VisitTypeofExpr(n *domain.TypeofExpr) {
	a.lastType = a.ts.GetPrimitive(domain.KindI32)
	a.lastCategory = domain.RValue
	n.SetType(a.lastType)
}

func (a *Analyzer) VisitSizeofExpr(n *domain.SizeofExpr) {
	a.lastType = a.ts.GetPrimitive(domain.KindI32)
	a.lastCategory = domain.RValue
	n.SetType(a.lastType)
}

func (a *Analyzer) VisitMatchExpr(n *domain.MatchExpr) {
	n.Subject.Accept(a)
	var result domain.Type
	for _, arm := range n.Arms {
		if arm.Pattern != nil {
			arm.Pattern.Accept(a)
		}
		if arm.Guard != nil {
			arm.Guard.Accept(a)
			a.checkBoolCondition(arm.Guard.GetLocation())
		}
		arm.Body.Accept(a)
		if result == nil {
			result = a.lastType
		} else if a.lastType != nil && !result.Equals(a.lastType) {
			a.reportError(domain.TypeError, "match arms produce differing types", arm.Body.GetLocation(), "", nil)
		}
	}
	if result == nil {
		result = a.ts.NewUnresolved()
	}
	a.lastType = result
	a.lastCategory = domain.RValue
	n.SetType(result)
}

func (a *Analyzer) VisitIfExpr(n *domain.IfExpr) {
	n.Condition.Accept(a)
	a.checkBoolCondition(n.Condition.GetLocation())
	n.Then.Accept(a)
	thenType := a.lastType
	var elseType domain.Type
	if n.Else != nil {
		n.Else.Accept(a)
		elseType = a.lastType
	}
	if elseType != nil && thenType != nil && !thenType.Equals(elseType) {
		a.reportError(domain.TypeError, fmt.Sprintf("if-expression arms disagree: %s vs %s", safeStr(thenType), safeStr(elseType)), n.GetLocation(), "", nil)
	}
	a.lastType = thenType
	a.lastCategory = domain.RValue
	n.SetType(thenType)
}

func (a *Analyzer) VisitBlockExpr(n *domain.BlockExpr) {
	a.st.EnterScope("block-expr")
	a.visitStatements(n.Statements)
	var t domain.Type = a.ts.GetPrimitive(domain.KindVoid)
	if n.TailExpr != nil {
		n.TailExpr.Accept(a)
		t = a.lastType
	}
	a.st.ExitScope()
	a.lastType = t
	a.lastCategory = domain.RValue
	n.SetType(t)
}

// ---------------------------------------------------------------------------
// TypeRef visitor — reached only when a TypeRef node is Accept()-ed
// directly (e.g. a future pass walking unresolved ASTs); Phase B itself
// calls resolveTypeRef without going through Accept.
// ---------------------------------------------------------------------------

func (a *Analyzer) VisitNamedTypeRef(n *domain.NamedTypeRef)     { a.lastType = a.resolveTypeRef(n) }
func (a *Analyzer) VisitPointerTypeRef(n *domain.PointerTypeRef) { a.lastType = a.resolveTypeRef(n) }
func (a *Analyzer) VisitArrayTypeRef(n *domain.ArrayTypeRef)     { a.lastType = a.resolveTypeRef(n) }

// ---------------------------------------------------------------------------
// Declaration visitor — declarations are driven top-down by Analyze/
// ensureTypeBuilt/analyzeClassBodies directly rather than via Accept, so
// these exist only to complete the exhaustive Visitor contract.
// ---------------------------------------------------------------------------

func (a *Analyzer) VisitCompilationUnit(n *domain.CompilationUnit) {}
func (a *Analyzer) VisitNamespaceDecl(n *domain.NamespaceDecl)     {}
func (a *Analyzer) VisitTypeDecl(n *domain.TypeDecl)               {}
func (a *Analyzer) VisitFunctionDecl(n *domain.FunctionDecl)       {}
func (a *Analyzer) VisitConstructorDecl(n *domain.ConstructorDecl) {}
func (a *Analyzer) VisitDestructorDecl(n *domain.DestructorDecl)   {}
func (a *Analyzer) VisitFieldDecl(n *domain.FieldDecl)             {}
func (a *Analyzer) VisitPropertyDecl(n *domain.PropertyDecl)       {}
func (a *Analyzer) VisitEnumCaseDecl(n *domain.EnumCaseDecl)       {}
func (a *Analyzer) VisitParameterDecl(n *domain.ParameterDecl)     {}

// VisitVariableDecl analyzes a top-level `var` declaration: infer from
// Init, cross-check against an explicit DeclaredType, then register it in
// the global scope.
func (a *Analyzer) VisitVariableDecl(n *domain.VariableDecl) {
	var t domain.Type
	if n.Init != nil {
		n.Init.Accept(a)
		t = a.lastType
	}
	if n.DeclaredType != nil {
		declared := a.resolveTypeRef(n.DeclaredType)
		if n.Init != nil {
			a.checkAssignable(declared, t, n.GetLocation())
		}
		t = declared
	}
	if t == nil {
		t = a.ts.NewUnresolved()
	}
	if _, err := a.st.DeclareVariable(n.Name, t, n.GetLocation()); err != nil {
		a.reportError(domain.NameError, err.Error(), n.GetLocation(), "", nil)
	}
}

var _ interfaces.SemanticAnalyzer = (*Analyzer)(nil)
var _ domain.Visitor = (*Analyzer)(nil)

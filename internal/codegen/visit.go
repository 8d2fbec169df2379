package codegen

import (
	"fmt"
	"strings"

	"github.com/emberlang/ember/internal/domain"
)

// fieldsPtrFrom computes an object's fields pointer from its header
// pointer: fields begin headerSize bytes past the header, per §6.
func (g *Generator) fieldsPtrFrom(headerPtr string) string {
	tmp := g.newTemp()
	g.emit("%s = getelementptr inbounds i8, ptr %s, i64 %d", tmp, headerPtr, headerSize)
	return tmp
}

// thisHeaderValue loads the current function's receiver header pointer.
// Returns "" outside an instance method/constructor/destructor.
func (g *Generator) thisHeaderValue() string {
	lc, ok := g.locals["this"]
	if !ok {
		return ""
	}
	tmp := g.newTemp()
	g.emit("%s = load ptr, ptr %s", tmp, lc.alloca)
	return tmp
}

// loadField reads a flattened field through the object's header pointer:
// header -> fields (via fieldsPtrFrom) -> gep at the field's flattened
// index within class's fields-struct type.
func (g *Generator) loadField(headerPtr string, class *domain.TypeSymbol, fs *domain.FieldSymbol) value {
	fieldsPtr := g.fieldsPtrFrom(headerPtr)
	addr := g.newTemp()
	g.emit("%s = getelementptr inbounds %%%s, ptr %s, i32 0, i32 %d", addr, class.FieldsStructName, fieldsPtr, fs.Index)
	ty := llvmType(fs.Type)
	tmp := g.newTemp()
	g.emit("%s = load %s, ptr %s", tmp, ty, addr)
	v := value{text: tmp, t: fs.Type, addr: addr}
	if _, ok := isClassType(fs.Type); ok {
		v.headerPtr = tmp
	}
	return v
}

func (g *Generator) emitNameLValue(n *domain.NameExpr) value {
	switch sym := n.ResolvedSymbol.(type) {
	case *domain.VariableSymbol:
		lc, ok := g.locals[sym.Name]
		if !ok {
			return value{text: "null", t: sym.Type}
		}
		ty := llvmType(sym.Type)
		tmp := g.newTemp()
		g.emit("%s = load %s, ptr %s", tmp, ty, lc.alloca)
		v := value{text: tmp, t: sym.Type, addr: lc.alloca}
		if _, ok := isClassType(sym.Type); ok {
			v.headerPtr = tmp
		}
		return v
	case *domain.FieldSymbol:
		return g.loadField(g.thisHeaderValue(), g.currentClass, sym)
	case *domain.FunctionSymbol:
		return value{text: "@" + mangle(sym.QualifiedName)}
	default:
		return value{}
	}
}

func arithInstr(op domain.BinaryOperator, isFloat bool) string {
	switch op {
	case domain.OpAdd:
		if isFloat {
			return "fadd"
		}
		return "add"
	case domain.OpSub:
		if isFloat {
			return "fsub"
		}
		return "sub"
	case domain.OpMul:
		if isFloat {
			return "fmul"
		}
		return "mul"
	case domain.OpDiv:
		if isFloat {
			return "fdiv"
		}
		return "sdiv"
	case domain.OpMod:
		if isFloat {
			return "frem"
		}
		return "srem"
	}
	return "add"
}

func cmpCode(op domain.BinaryOperator, isFloat bool) string {
	if isFloat {
		switch op {
		case domain.OpEq:
			return "oeq"
		case domain.OpNe:
			return "one"
		case domain.OpLt:
			return "olt"
		case domain.OpLe:
			return "ole"
		case domain.OpGt:
			return "ogt"
		case domain.OpGe:
			return "oge"
		}
	}
	switch op {
	case domain.OpEq:
		return "eq"
	case domain.OpNe:
		return "ne"
	case domain.OpLt:
		return "slt"
	case domain.OpLe:
		return "sle"
	case domain.OpGt:
		return "sgt"
	case domain.OpGe:
		return "sge"
	}
	return "eq"
}

func bitWidth(ty string) int {
	switch ty {
	case "i1":
		return 1
	case "i8":
		return 8
	case "i32":
		return 32
	case "i64":
		return 64
	}
	return 32
}

// toStringOf coerces a primitive value to a string via the From_* runtime
// helpers of §6, the `str + int` side of the string-coercion table.
func (g *Generator) toStringOf(v value) value {
	stringTy := &domain.PrimitiveType{Kind: domain.KindString}
	p, ok := v.t.(*domain.PrimitiveType)
	if !ok {
		return value{text: v.text, t: stringTy}
	}
	var fn string
	switch p.Kind {
	case domain.KindI32:
		fn = "@String_from_int"
	case domain.KindI64:
		fn = "@String_from_long"
	case domain.KindF32:
		fn = "@String_from_float"
	case domain.KindF64:
		fn = "@String_from_double"
	case domain.KindBool:
		fn = "@String_from_bool"
	case domain.KindChar:
		fn = "@String_from_char"
	case domain.KindString:
		return v
	default:
		return value{text: "null", t: stringTy}
	}
	tmp := g.newTemp()
	g.emit("%s = call ptr %s(%s %s)", tmp, fn, llvmType(v.t), v.text)
	return value{text: tmp, t: stringTy}
}

func (g *Generator) fromStringTo(v value, target domain.Type) value {
	p, ok := target.(*domain.PrimitiveType)
	if !ok {
		return value{text: v.text, t: target}
	}
	var fn, ty string
	switch p.Kind {
	case domain.KindI32:
		fn, ty = "@String_to_int", "i32"
	case domain.KindI64:
		fn, ty = "@String_to_long", "i64"
	case domain.KindF32:
		fn, ty = "@String_to_float", "float"
	case domain.KindF64:
		fn, ty = "@String_to_double", "double"
	case domain.KindBool:
		fn, ty = "@String_to_bool", "i1"
	case domain.KindChar:
		fn, ty = "@String_to_char", "i8"
	default:
		return value{text: "null", t: target}
	}
	tmp := g.newTemp()
	g.emit("%s = call %s %s(ptr %s)", tmp, ty, fn, v.text)
	return value{text: tmp, t: target}
}

func (g *Generator) numericConvert(v value, target domain.Type) value {
	fromTy, toTy := llvmType(v.t), llvmType(target)
	if fromTy == toTy {
		return value{text: v.text, t: target}
	}
	fp, fok := v.t.(*domain.PrimitiveType)
	tp, tok := target.(*domain.PrimitiveType)
	if !fok || !tok {
		return value{text: v.text, t: target}
	}
	var instr string
	switch {
	case fp.IsFloat() && tp.IsFloat():
		if fp.Kind == domain.KindF32 {
			instr = "fpext"
		} else {
			instr = "fptrunc"
		}
	case fp.IsFloat() && !tp.IsFloat():
		instr = "fptosi"
	case !fp.IsFloat() && tp.IsFloat():
		instr = "sitofp"
	default:
		fromBits, toBits := bitWidth(fromTy), bitWidth(toTy)
		if toBits > fromBits {
			instr = "sext"
		} else if toBits < fromBits {
			instr = "trunc"
		} else {
			return value{text: v.text, t: target}
		}
	}
	tmp := g.newTemp()
	g.emit("%s = %s %s %s to %s", tmp, instr, fromTy, v.text, toTy)
	return value{text: tmp, t: target}
}

// emitPrimitiveMember implements the small best-effort dispatch table for
// member access on a primitive receiver (the analyzer's
// primitiveMemberTypes counterpart): Length/ToString/GetHashCode read as
// zero-arg property-style accesses rather than calls, matching how the
// analyzer types them.
func (g *Generator) emitPrimitiveMember(obj value, member string) value {
	switch member {
	case "Length":
		tmp := g.newTemp()
		g.emit("%s = call i32 @String_get_length(ptr %s)", tmp, obj.text)
		return value{text: tmp, t: &domain.PrimitiveType{Kind: domain.KindI32}}
	case "ToString":
		return g.toStringOf(obj)
	case "GetHashCode":
		tmp := g.newTemp()
		g.emit("%s = call i32 @Object_get_ref_count(ptr %s)", tmp, obj.text)
		return value{text: tmp, t: &domain.PrimitiveType{Kind: domain.KindI32}}
	case "Substring":
		tmp := g.newTemp()
		g.emit("%s = call ptr @String_substring(ptr %s, i32 0, i32 0)", tmp, obj.text)
		return value{text: tmp, t: &domain.PrimitiveType{Kind: domain.KindString}}
	default:
		return value{text: "null"}
	}
}

// ---------------------------------------------------------------------------
// statements
// ---------------------------------------------------------------------------

func (g *Generator) visitStatements(stmts []domain.Statement) {
	for _, s := range stmts {
		if g.term {
			break // unreachable code after a terminator; nothing left to emit
		}
		s.Accept(g)
	}
}

func (g *Generator) VisitBlockStmt(n *domain.BlockStmt) {
	g.scopes.Push(ScopeBlock, "")
	g.visitStatements(n.Statements)
	g.emitReleases(g.scopes.Pop())
}

func (g *Generator) VisitExprStmt(n *domain.ExprStmt) { n.Expr.Accept(g) }

func (g *Generator) VisitVarDeclStmt(n *domain.VarDeclStmt) {
	var init value
	if n.Init != nil {
		n.Init.Accept(g)
		init = g.cur
	}
	t := n.ResolvedType
	if t == nil {
		t = init.t
	}
	ty := llvmType(t)
	alloca := fmt.Sprintf("%%v.%s.%d", sanitize(n.Name), g.newLocalSeq())
	g.emit("%s = alloca %s", alloca, ty)
	if n.Init != nil {
		if _, ok := isClassType(t); ok && !isNewExpr(n.Init) {
			g.retain(init.headerPtr)
		}
		g.emit("store %s %s, ptr %s", ty, init.text, alloca)
	}
	g.locals[n.Name] = local{alloca: alloca, t: t}
	if nt, ok := isClassType(t); ok {
		g.scopes.Register(alloca, nt.Symbol, n.Name)
	}
}

// newLocalSeq disambiguates alloca names for same-named locals declared
// in sibling block scopes (shadowing is legal; LLVM identifiers are not
// scoped, so each alloca still needs a distinct name).
func (g *Generator) newLocalSeq() int {
	g.tempSeq++
	return g.tempSeq
}

func (g *Generator) VisitIfStmt(n *domain.IfStmt) {
	thenL := g.newLabel("if.then")
	endL := g.newLabel("if.end")
	elseL := endL
	if n.Else != nil {
		elseL = g.newLabel("if.else")
	}
	n.Condition.Accept(g)
	cond := g.cur
	g.condBr(cond.text, thenL, elseL)

	g.startBlock(thenL)
	n.Then.Accept(g)
	g.br(endL)

	if n.Else != nil {
		g.startBlock(elseL)
		n.Else.Accept(g)
		g.br(endL)
	}
	g.startBlock(endL)
}

func (g *Generator) VisitWhileStmt(n *domain.WhileStmt) {
	condL := g.newLabel("while.cond")
	bodyL := g.newLabel("while.body")
	endL := g.newLabel("while.end")

	g.br(condL)
	g.startBlock(condL)
	n.Condition.Accept(g)
	cond := g.cur
	g.condBr(cond.text, bodyL, endL)

	g.startBlock(bodyL)
	g.scopes.Push(ScopeLoop, "while")
	g.loopExit = append(g.loopExit, endL)
	g.loopCont = append(g.loopCont, condL)
	n.Body.Accept(g)
	g.loopExit = g.loopExit[:len(g.loopExit)-1]
	g.loopCont = g.loopCont[:len(g.loopCont)-1]
	g.emitReleases(g.scopes.Pop())
	g.br(condL)

	g.startBlock(endL)
}

func (g *Generator) VisitForStmt(n *domain.ForStmt) {
	g.scopes.Push(ScopeBlock, "for.init")
	if n.Init != nil {
		n.Init.Accept(g)
	}
	condL := g.newLabel("for.cond")
	bodyL := g.newLabel("for.body")
	incL := g.newLabel("for.inc")
	endL := g.newLabel("for.end")

	g.br(condL)
	g.startBlock(condL)
	if n.Cond != nil {
		n.Cond.Accept(g)
		g.condBr(g.cur.text, bodyL, endL)
	} else {
		g.br(bodyL)
	}

	g.startBlock(bodyL)
	g.scopes.Push(ScopeLoop, "for")
	g.loopExit = append(g.loopExit, endL)
	g.loopCont = append(g.loopCont, incL)
	n.Body.Accept(g)
	g.loopExit = g.loopExit[:len(g.loopExit)-1]
	g.loopCont = g.loopCont[:len(g.loopCont)-1]
	g.emitReleases(g.scopes.Pop())
	g.br(incL)

	g.startBlock(incL)
	if n.Update != nil {
		n.Update.Accept(g)
	}
	g.br(condL)

	g.startBlock(endL)
	g.emitReleases(g.scopes.Pop())
}

func (g *Generator) VisitForInStmt(n *domain.ForInStmt) {
	if rng, ok := n.Iter.(*domain.RangeExpr); ok {
		g.emitForInRange(n, rng)
		return
	}
	n.Iter.Accept(g)
	iter := g.cur
	arrTy, ok := iter.t.(*domain.ArrayType)
	if !ok || arrTy.Length < 0 {
		g.emit("; for-in over a dynamically sized sequence is not supported by this backend")
		return
	}
	g.emitForInArray(n, iter, arrTy)
}

func (g *Generator) emitForInRange(n *domain.ForInStmt, rng *domain.RangeExpr) {
	rng.Start.Accept(g)
	start := g.cur
	rng.End.Accept(g)
	end := g.cur
	ty := llvmType(start.t)

	loopVar := fmt.Sprintf("%%lv.%s.%d", sanitize(n.VarName), g.newLocalSeq())
	g.emit("%s = alloca %s", loopVar, ty)
	g.emit("store %s %s, ptr %s", ty, start.text, loopVar)
	g.locals[n.VarName] = local{alloca: loopVar, t: start.t}

	condL, bodyL, incL, endL := g.newLabel("forin.cond"), g.newLabel("forin.body"), g.newLabel("forin.inc"), g.newLabel("forin.end")
	g.br(condL)
	g.startBlock(condL)
	cur := g.newTemp()
	g.emit("%s = load %s, ptr %s", cur, ty, loopVar)
	cmpOp := "slt"
	if rng.Inclusive {
		cmpOp = "sle"
	}
	cmp := g.newTemp()
	g.emit("%s = icmp %s %s %s, %s", cmp, cmpOp, ty, cur, end.text)
	g.condBr(cmp, bodyL, endL)

	g.startBlock(bodyL)
	g.scopes.Push(ScopeLoop, "forin")
	g.loopExit = append(g.loopExit, endL)
	g.loopCont = append(g.loopCont, incL)
	n.Body.Accept(g)
	g.loopExit = g.loopExit[:len(g.loopExit)-1]
	g.loopCont = g.loopCont[:len(g.loopCont)-1]
	g.emitReleases(g.scopes.Pop())
	g.br(incL)

	g.startBlock(incL)
	nv := g.newTemp()
	g.emit("%s = load %s, ptr %s", nv, ty, loopVar)
	nv2 := g.newTemp()
	g.emit("%s = add %s %s, 1", nv2, ty, nv)
	g.emit("store %s %s, ptr %s", ty, nv2, loopVar)
	g.br(condL)

	g.startBlock(endL)
}

func (g *Generator) emitForInArray(n *domain.ForInStmt, iter value, arrTy *domain.ArrayType) {
	elemTy := llvmType(arrTy.Element)
	idxAlloca := fmt.Sprintf("%%idx.%s.%d", sanitize(n.VarName), g.newLocalSeq())
	g.emit("%s = alloca i32", idxAlloca)
	g.emit("store i32 0, ptr %s", idxAlloca)
	loopVar := fmt.Sprintf("%%lv.%s.%d", sanitize(n.VarName), g.newLocalSeq())
	g.emit("%s = alloca %s", loopVar, elemTy)
	g.locals[n.VarName] = local{alloca: loopVar, t: arrTy.Element}

	condL, bodyL, incL, endL := g.newLabel("forin.cond"), g.newLabel("forin.body"), g.newLabel("forin.inc"), g.newLabel("forin.end")
	g.br(condL)
	g.startBlock(condL)
	idx := g.newTemp()
	g.emit("%s = load i32, ptr %s", idx, idxAlloca)
	cmp := g.newTemp()
	g.emit("%s = icmp slt i32 %s, %d", cmp, idx, arrTy.Length)
	g.condBr(cmp, bodyL, endL)

	g.startBlock(bodyL)
	eaddr := g.newTemp()
	g.emit("%s = getelementptr inbounds %s, ptr %s, i32 %s", eaddr, elemTy, iter.text, idx)
	ev := g.newTemp()
	g.emit("%s = load %s, ptr %s", ev, elemTy, eaddr)
	g.emit("store %s %s, ptr %s", elemTy, ev, loopVar)
	g.scopes.Push(ScopeLoop, "forin")
	g.loopExit = append(g.loopExit, endL)
	g.loopCont = append(g.loopCont, incL)
	n.Body.Accept(g)
	g.loopExit = g.loopExit[:len(g.loopExit)-1]
	g.loopCont = g.loopCont[:len(g.loopCont)-1]
	g.emitReleases(g.scopes.Pop())
	g.br(incL)

	g.startBlock(incL)
	idx2 := g.newTemp()
	g.emit("%s = load i32, ptr %s", idx2, idxAlloca)
	idx3 := g.newTemp()
	g.emit("%s = add i32 %s, 1", idx3, idx2)
	g.emit("store i32 %s, ptr %s", idx3, idxAlloca)
	g.br(condL)

	g.startBlock(endL)
}

func (g *Generator) VisitReturnStmt(n *domain.ReturnStmt) {
	var v value
	if n.Value != nil {
		n.Value.Accept(g)
		v = g.cur
	}
	g.emitReleases(g.scopes.ReleasesForReturn())
	retTy := "void"
	if g.currentFunction != nil && g.currentFunction.ReturnType != nil {
		retTy = llvmType(g.currentFunction.ReturnType)
	}
	if n.Value == nil || retTy == "void" {
		g.emit("ret void")
	} else {
		g.emit("ret %s %s", retTy, v.text)
	}
	g.term = true
}

func (g *Generator) VisitBreakStmt(n *domain.BreakStmt) {
	g.emitReleases(g.scopes.ReleasesForBreak())
	if len(g.loopExit) > 0 {
		g.br(g.loopExit[len(g.loopExit)-1])
	}
}

func (g *Generator) VisitContinueStmt(n *domain.ContinueStmt) {
	g.emitReleases(g.scopes.ReleasesForContinue())
	if len(g.loopCont) > 0 {
		g.br(g.loopCont[len(g.loopCont)-1])
	}
}

// ---------------------------------------------------------------------------
// expressions
// ---------------------------------------------------------------------------

func (g *Generator) VisitLiteralExpr(n *domain.LiteralExpr) {
	switch n.Kind {
	case domain.LitInt:
		g.cur = value{text: fmt.Sprintf("%d", n.IntValue), t: &domain.PrimitiveType{Kind: domain.KindI32}}
	case domain.LitLong:
		g.cur = value{text: fmt.Sprintf("%d", n.IntValue), t: &domain.PrimitiveType{Kind: domain.KindI64}}
	case domain.LitFloat:
		g.cur = value{text: fmt.Sprintf("%g", n.FloatValue), t: &domain.PrimitiveType{Kind: domain.KindF32}}
	case domain.LitDouble:
		g.cur = value{text: fmt.Sprintf("%g", n.FloatValue), t: &domain.PrimitiveType{Kind: domain.KindF64}}
	case domain.LitChar:
		g.cur = value{text: fmt.Sprintf("%d", n.IntValue), t: &domain.PrimitiveType{Kind: domain.KindChar}}
	case domain.LitBool:
		text := "0"
		if n.BoolValue {
			text = "1"
		}
		g.cur = value{text: text, t: &domain.PrimitiveType{Kind: domain.KindBool}}
	case domain.LitString:
		global := g.internString(n.StringValue)
		tmp := g.newTemp()
		g.emit("%s = call ptr @String_new_from_literal(ptr %s)", tmp, global)
		g.cur = value{text: tmp, t: &domain.PrimitiveType{Kind: domain.KindString}}
	case domain.LitNull:
		g.cur = value{text: "null", t: nil}
	}
}

func (g *Generator) VisitNameExpr(n *domain.NameExpr) {
	if len(n.Parts) > 1 {
		// Qualified names resolve to a type (for `new`/static dispatch),
		// never to a loadable runtime value on their own.
		g.cur = value{}
		return
	}
	g.cur = g.emitNameLValue(n)
}

func (g *Generator) VisitBinaryExpr(n *domain.BinaryExpr) {
	n.Left.Accept(g)
	l := g.cur
	n.Right.Accept(g)
	r := g.cur
	resultType := n.GetType()

	if n.Operator == domain.OpAdd {
		if pt, ok := resultType.(*domain.PrimitiveType); ok && pt.Kind == domain.KindString {
			ls, rs := g.toStringOf(l), g.toStringOf(r)
			tmp := g.newTemp()
			g.emit("%s = call ptr @String_concat(ptr %s, ptr %s)", tmp, ls.text, rs.text)
			g.cur = value{text: tmp, t: resultType}
			return
		}
	}
	if n.Operator == domain.OpRange || n.Operator == domain.OpRangeInclusive {
		g.cur = l // ranges are consumed structurally by for-in; see emitForInRange
		return
	}

	isFloat := false
	if pt, ok := l.t.(*domain.PrimitiveType); ok && pt.IsFloat() {
		isFloat = true
	}
	ty := llvmType(l.t)
	tmp := g.newTemp()
	switch n.Operator {
	case domain.OpAdd, domain.OpSub, domain.OpMul, domain.OpDiv, domain.OpMod:
		g.emit("%s = %s %s %s, %s", tmp, arithInstr(n.Operator, isFloat), ty, l.text, r.text)
	case domain.OpEq, domain.OpNe, domain.OpLt, domain.OpLe, domain.OpGt, domain.OpGe:
		instr := "icmp"
		if isFloat {
			instr = "fcmp"
		}
		g.emit("%s = %s %s %s %s, %s", tmp, instr, cmpCode(n.Operator, isFloat), ty, l.text, r.text)
	case domain.OpAnd:
		g.emit("%s = and i1 %s, %s", tmp, l.text, r.text)
	case domain.OpOr:
		g.emit("%s = or i1 %s, %s", tmp, l.text, r.text)
	default:
		g.cur = l
		return
	}
	g.cur = value{text: tmp, t: resultType}
}

func (g *Generator) VisitUnaryExpr(n *domain.UnaryExpr) {
	n.Operand.Accept(g)
	v := g.cur
	ty := llvmType(v.t)
	isFloat := false
	if pt, ok := v.t.(*domain.PrimitiveType); ok && pt.IsFloat() {
		isFloat = true
	}
	switch n.Operator {
	case domain.OpNeg:
		tmp := g.newTemp()
		if isFloat {
			g.emit("%s = fneg %s %s", tmp, ty, v.text)
		} else {
			g.emit("%s = sub %s 0, %s", tmp, ty, v.text)
		}
		g.cur = value{text: tmp, t: v.t}
	case domain.OpNot:
		tmp := g.newTemp()
		g.emit("%s = xor i1 %s, 1", tmp, v.text)
		g.cur = value{text: tmp, t: v.t}
	case domain.OpPreInc, domain.OpPreDec, domain.OpPostInc, domain.OpPostDec:
		if v.addr == "" {
			g.cur = v
			return
		}
		op := domain.OpAdd
		if n.Operator == domain.OpPreDec || n.Operator == domain.OpPostDec {
			op = domain.OpSub
		}
		one := "1"
		if isFloat {
			one = "1.0"
		}
		newv := g.newTemp()
		g.emit("%s = %s %s %s, %s", newv, arithInstr(op, isFloat), ty, v.text, one)
		g.emit("store %s %s, ptr %s", ty, newv, v.addr)
		if n.Operator == domain.OpPreInc || n.Operator == domain.OpPreDec {
			g.cur = value{text: newv, t: v.t, addr: v.addr}
		} else {
			g.cur = value{text: v.text, t: v.t, addr: v.addr}
		}
	default:
		g.cur = v
	}
}

func (g *Generator) VisitAssignExpr(n *domain.AssignExpr) {
	n.Target.Accept(g)
	target := g.cur
	if target.addr == "" {
		g.cur = target
		return
	}
	n.Value.Accept(g)
	val := g.cur
	if n.CompoundOp >= 0 {
		ty := llvmType(target.t)
		isFloat := false
		if pt, ok := target.t.(*domain.PrimitiveType); ok && pt.IsFloat() {
			isFloat = true
		}
		tmp := g.newTemp()
		g.emit("%s = %s %s %s, %s", tmp, arithInstr(domain.BinaryOperator(n.CompoundOp), isFloat), ty, target.text, val.text)
		val = value{text: tmp, t: target.t}
	}
	if _, ok := isClassType(target.t); ok {
		old := g.newTemp()
		g.emit("%s = load ptr, ptr %s", old, target.addr)
		g.release(old)
		if !isNewExpr(n.Value) {
			g.retain(val.headerPtr)
		}
	}
	g.emit("store %s %s, ptr %s", llvmType(target.t), val.text, target.addr)
	g.cur = value{text: val.text, t: target.t, addr: target.addr, headerPtr: val.headerPtr}
}

func (g *Generator) VisitCallExpr(n *domain.CallExpr) {
	var receiver value
	haveReceiver := false
	if me, ok := n.Callee.(*domain.MemberExpr); ok {
		me.Object.Accept(g)
		receiver = g.cur
		haveReceiver = true
	}
	args := make([]value, len(n.Args))
	for i, a := range n.Args {
		a.Accept(g)
		args[i] = g.cur
	}
	resolved := n.Resolved
	if resolved == nil {
		g.cur = value{}
		return
	}
	retTy := "void"
	if resolved.ReturnType != nil {
		retTy = llvmType(resolved.ReturnType)
	}

	var argTexts []string
	isInstanceCall := resolved.OwnerClass != nil && !resolved.IsStatic
	var receiverHeader string
	if isInstanceCall {
		if haveReceiver {
			receiverHeader = receiver.headerPtr
		} else {
			receiverHeader = g.thisHeaderValue()
		}
		argTexts = append(argTexts, "ptr "+g.fieldsPtrFrom(receiverHeader))
	}
	for i, a := range args {
		pt := "ptr"
		if i < len(resolved.Parameters) {
			pt = llvmType(resolved.Parameters[i].Type)
		}
		argTexts = append(argTexts, fmt.Sprintf("%s %s", pt, a.text))
	}

	assign := ""
	tmp := ""
	if retTy != "void" {
		tmp = g.newTemp()
		assign = tmp + " = "
	}

	if isInstanceCall && (resolved.IsVirtual || resolved.IsOverride) && resolved.VTableSlot >= 0 {
		vtAddr := g.newTemp()
		g.emit("%s = getelementptr inbounds i8, ptr %s, i64 8", vtAddr, receiverHeader)
		vtp := g.newTemp()
		g.emit("%s = load ptr, ptr %s", vtp, vtAddr)
		slotAddr := g.newTemp()
		g.emit("%s = getelementptr inbounds %%%s, ptr %s, i32 0, i32 %d", slotAddr, resolved.OwnerClass.VTableTypeName, vtp, resolved.VTableSlot)
		fnp := g.newTemp()
		g.emit("%s = load ptr, ptr %s", fnp, slotAddr)
		paramTys := []string{"ptr"}
		for _, p := range resolved.Parameters {
			paramTys = append(paramTys, llvmType(p.Type))
		}
		g.emit("%scall %s (%s) %s(%s)", assign, retTy, strings.Join(paramTys, ", "), fnp, strings.Join(argTexts, ", "))
	} else {
		g.emit("%scall %s @%s(%s)", assign, retTy, mangle(resolved.QualifiedName), strings.Join(argTexts, ", "))
	}

	if tmp == "" {
		g.cur = value{t: resolved.ReturnType}
		return
	}
	v := value{text: tmp, t: resolved.ReturnType}
	if _, ok := isClassType(resolved.ReturnType); ok {
		v.headerPtr = tmp
	}
	g.cur = v
}

func (g *Generator) VisitMemberExpr(n *domain.MemberExpr) {
	n.Object.Accept(g)
	obj := g.cur
	named, ok := obj.t.(*domain.NamedType)
	if !ok {
		g.cur = g.emitPrimitiveMember(obj, n.Member)
		return
	}
	if fs, ok := named.Symbol.GetField(n.Member); ok {
		g.cur = g.loadField(obj.headerPtr, named.Symbol, fs)
		return
	}
	// A bare method-name member (no call) — only meaningful as a callee,
	// which VisitCallExpr handles directly via its MemberExpr branch
	// without going through here.
	g.cur = value{}
}

func (g *Generator) VisitIndexExpr(n *domain.IndexExpr) {
	n.Object.Accept(g)
	obj := g.cur
	n.Index.Accept(g)
	idx := g.cur
	elemTy := llvmType(n.GetType())
	addr := g.newTemp()
	g.emit("%s = getelementptr inbounds %s, ptr %s, i32 %s", addr, elemTy, obj.text, idx.text)
	tmp := g.newTemp()
	g.emit("%s = load %s, ptr %s", tmp, elemTy, addr)
	g.cur = value{text: tmp, t: n.GetType(), addr: addr}
}

func (g *Generator) VisitCastExpr(n *domain.CastExpr) {
	n.Operand.Accept(g)
	v := g.cur
	target := n.GetType()
	conv := domain.ConvNoConversion
	if v.t != nil && target != nil {
		conv = domain.ClassifyConversion(v.t, target)
	}
	switch conv {
	case domain.ConvIdentity, domain.ConvPointerBitcast:
		g.cur = value{text: v.text, t: target, headerPtr: v.headerPtr}
	case domain.ConvPrimitiveToString:
		g.cur = g.toStringOf(v)
	case domain.ConvStringToPrimitive:
		g.cur = g.fromStringTo(v, target)
	case domain.ConvImplicitNumeric, domain.ConvExplicitNumeric:
		g.cur = g.numericConvert(v, target)
	default:
		g.cur = value{text: v.text, t: target, headerPtr: v.headerPtr}
	}
}

func (g *Generator) VisitNewExpr(n *domain.NewExpr) {
	cls := n.Class
	if cls == nil {
		g.cur = value{text: "null"}
		return
	}
	vtableGlobal := "null"
	if cls.HasVirtualMethods() {
		vtableGlobal = "@" + cls.VTableGlobalName
	}
	headerPtr := g.newTemp()
	g.emit("%s = call ptr @Object_alloc(i64 %d, i32 %d, ptr %s)", headerPtr, fieldsStructSize(cls), cls.TypeID, vtableGlobal)

	if ctor := n.Resolved; ctor != nil {
		fieldsPtr := g.fieldsPtrFrom(headerPtr)
		args := make([]value, len(n.Args))
		for i, a := range n.Args {
			a.Accept(g)
			args[i] = g.cur
		}
		argTexts := []string{"ptr " + fieldsPtr}
		for i, a := range args {
			pt := "ptr"
			if i < len(ctor.Parameters) {
				pt = llvmType(ctor.Parameters[i].Type)
			}
			argTexts = append(argTexts, fmt.Sprintf("%s %s", pt, a.text))
		}
		g.emit("call void @%s(%s)", mangle(ctor.QualifiedName), strings.Join(argTexts, ", "))
	}
	g.cur = value{text: headerPtr, t: &domain.NamedType{Symbol: cls}, headerPtr: headerPtr}
}

func fieldsStructSize(cls *domain.TypeSymbol) int {
	total := 0
	seen := make(map[int]bool)
	for _, f := range cls.Fields {
		if f.IsAliasOfBase || seen[f.Index] {
			continue
		}
		seen[f.Index] = true
		total += f.Type.Size()
	}
	return total
}

func (g *Generator) VisitThisExpr(n *domain.ThisExpr) {
	lc, ok := g.locals["this"]
	if !ok {
		g.cur = value{text: "null"}
		return
	}
	tmp := g.newTemp()
	g.emit("%s = load ptr, ptr %s", tmp, lc.alloca)
	g.cur = value{text: tmp, t: &domain.NamedType{Symbol: g.currentClass}, headerPtr: tmp, addr: lc.alloca}
}

// VisitLambdaExpr emits nothing executable: lambdas are parsed and
// type-checked but have no closure-capture lowering in this backend.
func (g *Generator) VisitLambdaExpr(n *domain.LambdaExpr) {
	g.emit("; lambda expression elided: no closure lowering in this backend")
	g.cur = value{text: "null"}
}

func (g *Generator) VisitRangeExpr(n *domain.RangeExpr) {
	n.Start.Accept(g)
	// a standalone range only has meaning inside for-in
}

func (g *Generator) VisitConditionalExpr(n *domain.ConditionalExpr) {
	thenL, elseL, endL := g.newLabel("cond.then"), g.newLabel("cond.else"), g.newLabel("cond.end")
	n.Condition.Accept(g)
	g.condBr(g.cur.text, thenL, elseL)

	g.startBlock(thenL)
	n.Then.Accept(g)
	thenVal := g.cur
	g.br(endL)

	g.startBlock(elseL)
	n.Else.Accept(g)
	elseVal := g.cur
	g.br(endL)

	g.startBlock(endL)
	ty := llvmType(n.GetType())
	tmp := g.newTemp()
	g.emit("%s = phi %s [ %s, %%%s ], [ %s, %%%s ]", tmp, ty, thenVal.text, thenL, elseVal.text, elseL)
	g.cur = value{text: tmp, t: n.GetType()}
}

func (g *Generator) VisitTypeofExpr(n *domain.TypeofExpr) {
	g.cur = value{text: fmt.Sprintf("@.typename.%s", sanitize(n.Target.RefString())), t: &domain.PrimitiveType{Kind: domain.KindString}}
}

func (g *Generator) VisitSizeofExpr(n *domain.SizeofExpr) {
	g.cur = value{text: fmt.Sprintf("%d", n.GetType().Size()), t: &domain.PrimitiveType{Kind: domain.KindI32}}
}

func (g *Generator) VisitMatchExpr(n *domain.MatchExpr) {
	n.Subject.Accept(g)
	subj := g.cur
	endL := g.newLabel("match.end")
	isFloat := false
	if pt, ok := subj.t.(*domain.PrimitiveType); ok && pt.IsFloat() {
		isFloat = true
	}
	var results []value
	var labels []string
	for i, arm := range n.Arms {
		bodyL := g.newLabel(fmt.Sprintf("match.arm%d", i))
		nextL := endL
		if i != len(n.Arms)-1 {
			nextL = g.newLabel(fmt.Sprintf("match.test%d", i+1))
		}
		arm.Pattern.Accept(g)
		pat := g.cur
		cmp := g.newTemp()
		if isFloat {
			g.emit("%s = fcmp oeq %s %s, %s", cmp, llvmType(subj.t), subj.text, pat.text)
		} else {
			g.emit("%s = icmp eq %s %s, %s", cmp, llvmType(subj.t), subj.text, pat.text)
		}
		g.condBr(cmp, bodyL, nextL)

		g.startBlock(bodyL)
		arm.Body.Accept(g)
		results = append(results, g.cur)
		labels = append(labels, bodyL)
		g.br(endL)

		if i != len(n.Arms)-1 {
			g.startBlock(nextL)
		}
	}
	g.startBlock(endL)
	ty := llvmType(n.GetType())
	if ty != "void" && len(results) > 0 {
		parts := make([]string, len(results))
		for i, r := range results {
			parts[i] = fmt.Sprintf("[ %s, %%%s ]", r.text, labels[i])
		}
		tmp := g.newTemp()
		g.emit("%s = phi %s %s", tmp, ty, strings.Join(parts, ", "))
		g.cur = value{text: tmp, t: n.GetType()}
	} else {
		g.cur = value{}
	}
}

func (g *Generator) VisitIfExpr(n *domain.IfExpr) {
	thenL := g.newLabel("if.then")
	endL := g.newLabel("if.end")
	elseL := endL
	if n.Else != nil {
		elseL = g.newLabel("if.else")
	}
	n.Condition.Accept(g)
	g.condBr(g.cur.text, thenL, elseL)

	g.startBlock(thenL)
	n.Then.Accept(g)
	thenVal := g.cur
	g.br(endL)

	var elseVal value
	if n.Else != nil {
		g.startBlock(elseL)
		n.Else.Accept(g)
		elseVal = g.cur
		g.br(endL)
	}
	g.startBlock(endL)
	ty := llvmType(n.GetType())
	if n.Else != nil && ty != "void" {
		tmp := g.newTemp()
		g.emit("%s = phi %s [ %s, %%%s ], [ %s, %%%s ]", tmp, ty, thenVal.text, thenL, elseVal.text, elseL)
		g.cur = value{text: tmp, t: n.GetType()}
	} else {
		g.cur = value{}
	}
}

func (g *Generator) VisitBlockExpr(n *domain.BlockExpr) {
	g.scopes.Push(ScopeBlock, "")
	g.visitStatements(n.Statements)
	if n.TailExpr != nil {
		n.TailExpr.Accept(g)
		tail := g.cur
		g.emitReleases(g.scopes.Pop())
		g.cur = tail
		return
	}
	g.emitReleases(g.scopes.Pop())
	g.cur = value{}
}

// ---------------------------------------------------------------------------
// type refs and declarations: unreachable during body emission, which
// drives entirely off resolved symbols rather than re-walking TypeRef or
// Declaration nodes. Present only to satisfy domain.Visitor.
// ---------------------------------------------------------------------------

func (g *Generator) VisitNamedTypeRef(n *domain.NamedTypeRef)     {}
func (g *Generator) VisitPointerTypeRef(n *domain.PointerTypeRef) {}
func (g *Generator) VisitArrayTypeRef(n *domain.ArrayTypeRef)     {}

func (g *Generator) VisitCompilationUnit(n *domain.CompilationUnit) {}
func (g *Generator) VisitNamespaceDecl(n *domain.NamespaceDecl)     {}
func (g *Generator) VisitTypeDecl(n *domain.TypeDecl)               {}
func (g *Generator) VisitFunctionDecl(n *domain.FunctionDecl)       {}
func (g *Generator) VisitConstructorDecl(n *domain.ConstructorDecl) {}
func (g *Generator) VisitDestructorDecl(n *domain.DestructorDecl)   {}
func (g *Generator) VisitFieldDecl(n *domain.FieldDecl)             {}
func (g *Generator) VisitPropertyDecl(n *domain.PropertyDecl)       {}
func (g *Generator) VisitEnumCaseDecl(n *domain.EnumCaseDecl)       {}
func (g *Generator) VisitParameterDecl(n *domain.ParameterDecl)     {}
func (g *Generator) VisitVariableDecl(n *domain.VariableDecl)       {}

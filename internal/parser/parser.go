// Package parser implements the recursive-descent, precedence-climbing
// parser of §4.2. Grounded in spirit on sokoide-llvm5/grammar's
// lexer-to-AST wrapper shape, but hand-written instead of yacc-generated:
// the teacher's grammar collapses every literal kind into a single
// IDENTIFIER token and cannot distinguish the keyword/operator surface
// this language needs, so the parser below drives internal/lexer's
// proper token stream directly.
package parser

import (
	"fmt"

	"github.com/emberlang/ember/internal/domain"
	"github.com/emberlang/ember/internal/interfaces"
)

// Parser consumes a token stream one token of lookahead at a time, with a
// one-token pushback slot used by rewindTo when the for/for-in lookahead
// backs out. A `>>` closing two generics is split in place (see closeAngle).
type Parser struct {
	lex     interfaces.Lexer
	arena   *domain.Arena
	errors  domain.ErrorReporter
	cur     domain.Token
	pending []domain.Token
}

func New() *Parser { return &Parser{} }

func (p *Parser) SetErrorReporter(r domain.ErrorReporter) { p.errors = r }

// Parse drives lex to EOF and returns the resulting compilation unit. It
// never returns a nil *domain.CompilationUnit, even on malformed input:
// parse errors are reported through the ErrorReporter and recovered from
// at statement/declaration boundaries per §4.2, so one bad declaration
// does not abort the whole unit.
func (p *Parser) Parse(lex interfaces.Lexer) (*domain.CompilationUnit, error) {
	p.lex = lex
	p.arena = domain.NewArena()
	p.advance()

	unit := &domain.CompilationUnit{BaseNode: p.base()}

	if p.cur.Type == domain.TokenNamespace {
		p.advance()
		name := p.expectIdentText("namespace name")
		if p.cur.Type == domain.TokenSemicolon {
			p.advance()
			unit.Namespace = name
		} else if p.cur.Type == domain.TokenLeftBrace {
			unit.Declarations = append(unit.Declarations, p.finishNamespaceBlock(name, false))
		} else {
			p.errorf("expected ';' or '{' after namespace name")
		}
	}

	for p.cur.Type == domain.TokenUsing {
		unit.Usings = append(unit.Usings, p.parseUsing())
	}

	for p.cur.Type != domain.TokenEOF {
		if p.cur.Type == domain.TokenUsing {
			unit.Usings = append(unit.Usings, p.parseUsing())
			continue
		}
		decl := p.parseTopLevelDecl()
		if decl != nil {
			unit.Declarations = append(unit.Declarations, decl)
		}
	}
	return unit, nil
}

// ---------------------------------------------------------------------------
// token plumbing
// ---------------------------------------------------------------------------

func (p *Parser) advance() {
	if len(p.pending) > 0 {
		p.cur = p.pending[0]
		p.pending = p.pending[1:]
		return
	}
	p.cur = p.lex.NextToken()
}

// rewindTo restores p.cur to tok, pushing the token that had been current
// back onto the front of the pending queue so it is re-read on the next
// advance. Used by the for/for-in lookahead in parseForOrForIn.
func (p *Parser) rewindTo(tok domain.Token) {
	p.pending = append([]domain.Token{p.cur}, p.pending...)
	p.cur = tok
}

func (p *Parser) base() domain.BaseNode {
	return domain.BaseNode{ID: p.arena.AllocID(), Location: p.cur.Range}
}

func (p *Parser) baseAt(start domain.Token) domain.BaseNode {
	return domain.BaseNode{ID: p.arena.AllocID(), Location: domain.SourceRange{Start: start.Range.Start, End: p.cur.Range.End}}
}

func (p *Parser) check(tt domain.TokenType) bool { return p.cur.Type == tt }

func (p *Parser) match(tt domain.TokenType) bool {
	if p.cur.Type == tt {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(tt domain.TokenType, what string) domain.Token {
	if p.cur.Type != tt {
		p.errorf("expected %s, got %q", what, p.cur.Text)
		return p.cur
	}
	tok := p.cur
	p.advance()
	return tok
}

func (p *Parser) expectIdentText(what string) string {
	if p.cur.Type != domain.TokenIdentifier {
		p.errorf("expected %s, got %q", what, p.cur.Text)
		return ""
	}
	text := p.cur.Text
	p.advance()
	return text
}

func (p *Parser) errorf(format string, args ...interface{}) {
	if p.errors == nil {
		return
	}
	p.errors.ReportError(domain.CompilerError{
		Type:     domain.ParseError,
		Message:  fmt.Sprintf(format, args...),
		Location: p.cur.Range,
	})
}

// synchronize discards tokens until a plausible declaration/statement
// boundary, per §4.2's error-recovery strategy: stop at `;`, `}`, or a
// token that starts a new top-level declaration.
func (p *Parser) synchronize() {
	for p.cur.Type != domain.TokenEOF {
		switch p.cur.Type {
		case domain.TokenSemicolon:
			p.advance()
			return
		case domain.TokenRightBrace, domain.TokenClass, domain.TokenStruct, domain.TokenEnum,
			domain.TokenFn, domain.TokenNamespace, domain.TokenUsing, domain.TokenVar:
			return
		}
		p.advance()
	}
}

// closeAngle consumes one '>' that closes a generic argument list,
// splitting a lexed `>>` token in place so a second closeAngle call (for
// nested generics like Foo<Bar<Baz>>) sees the remaining '>' without a
// further lexer read.
func (p *Parser) closeAngle() {
	switch p.cur.Type {
	case domain.TokenGreater:
		p.advance()
	case domain.TokenShiftRight:
		p.cur.Type = domain.TokenGreater
		p.cur.Text = ">"
	default:
		p.errorf("expected '>' to close generic argument list, got %q", p.cur.Text)
	}
}

// ---------------------------------------------------------------------------
// top level
// ---------------------------------------------------------------------------

func (p *Parser) parseUsing() string {
	p.advance() // 'using'
	name := p.expectIdentText("namespace path")
	for p.match(domain.TokenDot) {
		name += "." + p.expectIdentText("namespace path segment")
	}
	p.expect(domain.TokenSemicolon, "';'")
	return name
}

func (p *Parser) parseModifiers() domain.Modifiers {
	var m domain.Modifiers
	for {
		switch p.cur.Type {
		case domain.TokenStatic:
			m.IsStatic = true
		case domain.TokenVirtual:
			m.IsVirtual = true
		case domain.TokenOverride:
			m.IsOverride = true
		case domain.TokenPublic:
			m.IsPublic = true
		case domain.TokenPrivate:
			m.IsPrivate = true
		case domain.TokenExtern:
			m.IsExtern = true
		default:
			return m
		}
		p.advance()
	}
}

func (p *Parser) parseTopLevelDecl() domain.Declaration {
	start := p.cur
	mods := p.parseModifiers()
	switch p.cur.Type {
	case domain.TokenClass, domain.TokenStruct, domain.TokenEnum:
		return p.parseTypeDecl(start, mods)
	case domain.TokenFn:
		return p.parseFunctionDecl(start, mods)
	case domain.TokenVar:
		return p.parseVariableDecl(start)
	case domain.TokenNamespace:
		p.advance()
		name := p.expectIdentText("namespace name")
		p.expect(domain.TokenLeftBrace, "'{'")
		return p.finishNamespaceBlock(name, false)
	default:
		p.errorf("expected a declaration, got %q", p.cur.Text)
		p.synchronize()
		return nil
	}
}

func (p *Parser) finishNamespaceBlock(name string, fileScoped bool) *domain.NamespaceDecl {
	start := p.cur
	var decls []domain.Declaration
	for !p.check(domain.TokenRightBrace) && !p.check(domain.TokenEOF) {
		d := p.parseTopLevelDecl()
		if d != nil {
			decls = append(decls, d)
		}
	}
	p.expect(domain.TokenRightBrace, "'}'")
	return &domain.NamespaceDecl{BaseNode: p.baseAt(start), Name: name, Declarations: decls, IsFileScoped: fileScoped}
}

func (p *Parser) parseVariableDecl(start domain.Token) *domain.VariableDecl {
	p.advance() // 'var'
	name := p.expectIdentText("variable name")
	var declType domain.TypeRef
	if p.match(domain.TokenColon) {
		declType = p.parseTypeRef()
	}
	var init domain.Expression
	if p.match(domain.TokenAssign) {
		init = p.parseExpression()
	}
	p.expect(domain.TokenSemicolon, "';'")
	return &domain.VariableDecl{BaseNode: p.baseAt(start), Name: name, DeclaredType: declType, Init: init}
}

// ---------------------------------------------------------------------------
// type declarations
// ---------------------------------------------------------------------------

func typeDeclKind(tt domain.TokenType, mods domain.Modifiers) domain.TypeDeclKind {
	switch tt {
	case domain.TokenStruct:
		return domain.DeclStruct
	case domain.TokenEnum:
		return domain.DeclEnum
	default:
		if mods.IsStatic {
			return domain.DeclStatic
		}
		return domain.DeclClass
	}
}

func (p *Parser) parseTypeDecl(start domain.Token, mods domain.Modifiers) *domain.TypeDecl {
	kindTok := p.cur.Type
	p.advance()
	name := p.expectIdentText("type name")
	p.skipGenericParams()

	var baseName string
	if p.match(domain.TokenColon) {
		baseName = p.expectIdentText("base type name")
		p.skipGenericParams()
		for p.match(domain.TokenComma) {
			// additional interfaces/bases are parsed but not modeled
			p.expectIdentText("base type name")
			p.skipGenericParams()
		}
	}

	decl := &domain.TypeDecl{
		BaseNode: p.baseAt(start),
		Name:     name,
		Kind:     typeDeclKind(kindTok, mods),
		BaseName: baseName,
		Modifiers: mods,
	}

	if p.match(domain.TokenSemicolon) {
		// forward declaration, per §4.4's forward-declaration tracking
		decl.IsForwardDecl = true
		return decl
	}

	p.expect(domain.TokenLeftBrace, "'{'")
	for !p.check(domain.TokenRightBrace) && !p.check(domain.TokenEOF) {
		p.parseTypeMember(decl)
	}
	p.expect(domain.TokenRightBrace, "'}'")
	return decl
}

// skipGenericParams consumes an optional `<...>` argument list without
// building a type yet; the language's generics are parsed but not
// instantiated, per §1 Non-goals.
func (p *Parser) skipGenericParams() {
	if !p.check(domain.TokenLess) {
		return
	}
	p.advance()
	for {
		p.expectIdentText("generic parameter")
		if p.check(domain.TokenComma) {
			p.advance()
			continue
		}
		break
	}
	p.closeAngle()
}

func (p *Parser) parseTypeMember(decl *domain.TypeDecl) {
	start := p.cur
	mods := p.parseModifiers()

	switch p.cur.Type {
	case domain.TokenCase:
		decl.EnumCases = append(decl.EnumCases, p.parseEnumCase(start))
	case domain.TokenFn:
		p.parseMethodLike(decl, start, mods)
	case domain.TokenVar:
		p.parseFieldOrProperty(decl, start, mods)
	default:
		p.errorf("expected a member declaration, got %q", p.cur.Text)
		p.synchronize()
	}
}

func (p *Parser) parseEnumCase(start domain.Token) *domain.EnumCaseDecl {
	p.advance() // 'case'
	name := p.expectIdentText("case name")
	var params []domain.TypeRef
	if p.match(domain.TokenLeftParen) {
		for !p.check(domain.TokenRightParen) {
			params = append(params, p.parseTypeRef())
			if !p.match(domain.TokenComma) {
				break
			}
		}
		p.expect(domain.TokenRightParen, "')'")
	}
	p.expect(domain.TokenSemicolon, "';'")
	return &domain.EnumCaseDecl{BaseNode: p.baseAt(start), Name: name, Parameters: params}
}

// parseMethodLike handles `fn name(...)`, the constructor form `fn
// new(...)`, and the destructor form `fn drop()`, distinguishing them by
// the method-name token per the constructor/destructor convention noted
// in DESIGN.md.
func (p *Parser) parseMethodLike(decl *domain.TypeDecl, start domain.Token, mods domain.Modifiers) {
	p.advance() // 'fn'

	if p.check(domain.TokenNew) {
		p.advance()
		params := p.parseParamList()
		body := p.parseBlock()
		decl.Constructors = append(decl.Constructors, &domain.ConstructorDecl{
			BaseNode: p.baseAt(start), Parameters: params, Body: body,
		})
		return
	}

	name := p.expectIdentText("method name")
	if name == "drop" {
		p.expect(domain.TokenLeftParen, "'('")
		p.expect(domain.TokenRightParen, "')'")
		body := p.parseBlock()
		decl.Destructor = &domain.DestructorDecl{BaseNode: p.baseAt(start), Body: body}
		return
	}

	params := p.parseParamList()
	var retType domain.TypeRef
	if p.match(domain.TokenColon) {
		retType = p.parseTypeRef()
	}
	body := p.parseBlock()
	decl.Methods = append(decl.Methods, &domain.FunctionDecl{
		BaseNode: p.baseAt(start), Name: name, Parameters: params, ReturnType: retType,
		Body: body, Modifiers: mods,
	})
}

// parseFieldOrProperty parses `var name: Type;`, `var name: Type = init;`,
// and the property-sugar form `var name: Type { get {...} set(v) {...} }`.
func (p *Parser) parseFieldOrProperty(decl *domain.TypeDecl, start domain.Token, mods domain.Modifiers) {
	p.advance() // 'var'
	name := p.expectIdentText("field name")
	var typ domain.TypeRef
	if p.match(domain.TokenColon) {
		typ = p.parseTypeRef()
	}

	if p.check(domain.TokenLeftBrace) {
		decl.Properties = append(decl.Properties, p.parsePropertyBody(start, name, typ, mods))
		return
	}

	var init domain.Expression
	if p.match(domain.TokenAssign) {
		init = p.parseExpression()
	}
	p.expect(domain.TokenSemicolon, "';'")
	decl.Fields = append(decl.Fields, &domain.FieldDecl{
		BaseNode: p.baseAt(start), Name: name, Type: typ, Init: init, Modifiers: mods,
	})
}

func (p *Parser) parsePropertyBody(start domain.Token, name string, typ domain.TypeRef, mods domain.Modifiers) *domain.PropertyDecl {
	p.expect(domain.TokenLeftBrace, "'{'")
	prop := &domain.PropertyDecl{BaseNode: p.baseAt(start), Name: name, Type: typ, Modifiers: mods}
	for !p.check(domain.TokenRightBrace) && !p.check(domain.TokenEOF) {
		accStart := p.cur
		accessor := p.expectIdentText("'get' or 'set'")
		switch accessor {
		case "get":
			body := p.parseAccessorBody(nil)
			prop.Getter = &domain.FunctionDecl{BaseNode: p.baseAt(accStart), Name: "get_" + name, Body: body}
		case "set":
			var params []*domain.ParameterDecl
			if p.match(domain.TokenLeftParen) {
				pname := p.expectIdentText("setter parameter")
				p.expect(domain.TokenRightParen, "')'")
				params = []*domain.ParameterDecl{{BaseNode: p.baseAt(accStart), Name: pname, Type: typ}}
			}
			body := p.parseAccessorBody(params)
			prop.Setter = &domain.FunctionDecl{BaseNode: p.baseAt(accStart), Name: "set_" + name, Parameters: params, Body: body}
		default:
			p.errorf("expected 'get' or 'set' in property body, got %q", accessor)
			p.synchronize()
		}
	}
	p.expect(domain.TokenRightBrace, "'}'")
	return prop
}

// parseAccessorBody accepts either a `{ ... }` block or a `=> expr;`
// shorthand, matching the spec's uniform block/expression duality for
// function-like bodies (§4.2's if/match/block-as-expression note).
func (p *Parser) parseAccessorBody(params []*domain.ParameterDecl) *domain.BlockStmt {
	if p.check(domain.TokenLeftBrace) {
		return p.parseBlock()
	}
	start := p.cur
	p.expect(domain.TokenFatArrow, "'=>'")
	expr := p.parseExpression()
	p.expect(domain.TokenSemicolon, "';'")
	return &domain.BlockStmt{BaseNode: p.baseAt(start), Statements: []domain.Statement{
		&domain.ReturnStmt{BaseNode: p.baseAt(start), Value: expr},
	}}
}

// ---------------------------------------------------------------------------
// free function declarations
// ---------------------------------------------------------------------------

func (p *Parser) parseFunctionDecl(start domain.Token, mods domain.Modifiers) *domain.FunctionDecl {
	p.advance() // 'fn'
	name := p.expectIdentText("function name")
	params := p.parseParamList()
	var retType domain.TypeRef
	if p.match(domain.TokenColon) {
		retType = p.parseTypeRef()
	}
	var body *domain.BlockStmt
	if mods.IsExtern {
		p.expect(domain.TokenSemicolon, "';' after extern function declaration")
	} else {
		body = p.parseBlock()
	}
	return &domain.FunctionDecl{
		BaseNode: p.baseAt(start), Name: name, Parameters: params, ReturnType: retType,
		Body: body, Modifiers: mods,
	}
}

func (p *Parser) parseParamList() []*domain.ParameterDecl {
	p.expect(domain.TokenLeftParen, "'('")
	var params []*domain.ParameterDecl
	for !p.check(domain.TokenRightParen) && !p.check(domain.TokenEOF) {
		pstart := p.cur
		name := p.expectIdentText("parameter name")
		p.expect(domain.TokenColon, "':'")
		typ := p.parseTypeRef()
		params = append(params, &domain.ParameterDecl{BaseNode: p.baseAt(pstart), Name: name, Type: typ})
		if !p.match(domain.TokenComma) {
			break
		}
	}
	p.expect(domain.TokenRightParen, "')'")
	return params
}

// ---------------------------------------------------------------------------
// type references
// ---------------------------------------------------------------------------

func (p *Parser) parseTypeRef() domain.TypeRef {
	start := p.cur
	if p.match(domain.TokenStar) {
		inner := p.parseTypeRef()
		return &domain.PointerTypeRef{BaseNode: p.baseAt(start), Inner: inner}
	}
	if p.match(domain.TokenLeftBracket) {
		elem := p.parseTypeRef()
		size := -1
		if p.check(domain.TokenIntLiteral) {
			size = int(p.cur.IntValue)
			p.advance()
		}
		p.expect(domain.TokenRightBracket, "']'")
		return &domain.ArrayTypeRef{BaseNode: p.baseAt(start), Element: elem, Size: size}
	}

	name := p.primitiveOrIdentName()
	ref := &domain.NamedTypeRef{BaseNode: p.baseAt(start), Name: name}
	if p.check(domain.TokenLess) {
		p.advance()
		for {
			ref.Args = append(ref.Args, p.parseTypeRef())
			if p.check(domain.TokenComma) {
				p.advance()
				continue
			}
			break
		}
		p.closeAngle()
	}
	return ref
}

func (p *Parser) primitiveOrIdentName() string {
	switch p.cur.Type {
	case domain.TokenPrimI32, domain.TokenPrimI64, domain.TokenPrimF32, domain.TokenPrimF64,
		domain.TokenPrimBool, domain.TokenPrimChar, domain.TokenPrimVoid, domain.TokenPrimString:
		text := p.cur.Text
		p.advance()
		return text
	case domain.TokenIdentifier:
		name := p.cur.Text
		p.advance()
		for p.match(domain.TokenDot) {
			name += "." + p.expectIdentText("type name segment")
		}
		return name
	default:
		p.errorf("expected a type name, got %q", p.cur.Text)
		return p.cur.Text
	}
}

// ---------------------------------------------------------------------------
// statements
// ---------------------------------------------------------------------------

func (p *Parser) parseBlock() *domain.BlockStmt {
	start := p.expect(domain.TokenLeftBrace, "'{'")
	var stmts []domain.Statement
	for !p.check(domain.TokenRightBrace) && !p.check(domain.TokenEOF) {
		stmts = append(stmts, p.parseStatement())
	}
	p.expect(domain.TokenRightBrace, "'}'")
	return &domain.BlockStmt{BaseNode: p.baseAt(start), Statements: stmts}
}

func (p *Parser) parseStatement() domain.Statement {
	start := p.cur
	switch p.cur.Type {
	case domain.TokenVar:
		return p.parseLocalVarDecl(start)
	case domain.TokenIf:
		return p.parseIfStmt(start)
	case domain.TokenWhile:
		return p.parseWhileStmt(start)
	case domain.TokenFor:
		return p.parseForOrForIn(start)
	case domain.TokenReturn:
		p.advance()
		var val domain.Expression
		if !p.check(domain.TokenSemicolon) {
			val = p.parseExpression()
		}
		p.expect(domain.TokenSemicolon, "';'")
		return &domain.ReturnStmt{BaseNode: p.baseAt(start), Value: val}
	case domain.TokenBreak:
		p.advance()
		p.expect(domain.TokenSemicolon, "';'")
		return &domain.BreakStmt{BaseNode: p.baseAt(start)}
	case domain.TokenContinue:
		p.advance()
		p.expect(domain.TokenSemicolon, "';'")
		return &domain.ContinueStmt{BaseNode: p.baseAt(start)}
	case domain.TokenLeftBrace:
		return p.parseBlock()
	default:
		expr := p.parseExpression()
		p.expect(domain.TokenSemicolon, "';'")
		return &domain.ExprStmt{BaseNode: p.baseAt(start), Expr: expr}
	}
}

func (p *Parser) parseLocalVarDecl(start domain.Token) *domain.VarDeclStmt {
	p.advance() // 'var'
	name := p.expectIdentText("variable name")
	var declType domain.TypeRef
	if p.match(domain.TokenColon) {
		declType = p.parseTypeRef()
	}
	var init domain.Expression
	if p.match(domain.TokenAssign) {
		init = p.parseExpression()
	}
	p.expect(domain.TokenSemicolon, "';'")
	return &domain.VarDeclStmt{BaseNode: p.baseAt(start), Name: name, DeclaredType: declType, Init: init}
}

func (p *Parser) parseIfStmt(start domain.Token) *domain.IfStmt {
	p.advance() // 'if'
	p.expect(domain.TokenLeftParen, "'(' after if")
	cond := p.parseExpression()
	p.expect(domain.TokenRightParen, "')'")
	then := p.parseBlock()
	var elseNode domain.Node
	if p.match(domain.TokenElse) {
		if p.check(domain.TokenIf) {
			elseNode = p.parseIfStmt(p.cur)
		} else {
			elseNode = p.parseBlock()
		}
	}
	return &domain.IfStmt{BaseNode: p.baseAt(start), Condition: cond, Then: then, Else: elseNode}
}

func (p *Parser) parseWhileStmt(start domain.Token) *domain.WhileStmt {
	p.advance() // 'while'
	p.expect(domain.TokenLeftParen, "'(' after while")
	cond := p.parseExpression()
	p.expect(domain.TokenRightParen, "')'")
	body := p.parseBlock()
	return &domain.WhileStmt{BaseNode: p.baseAt(start), Condition: cond, Body: body}
}

// parseForOrForIn disambiguates the classic C-style for from for-in by
// looking one identifier plus 'in' ahead, per §4.2's lookahead note: both
// forms start with `for (`, so the parser speculatively consumes
// `identifier in` and falls back to the C-style parse if that fails.
func (p *Parser) parseForOrForIn(start domain.Token) domain.Statement {
	p.advance() // 'for'
	p.expect(domain.TokenLeftParen, "'(' after for")

	if p.check(domain.TokenIdentifier) {
		name := p.cur.Text
		save := p.cur
		p.advance()
		if p.check(domain.TokenIn) {
			p.advance()
			iter := p.parseExpression()
			p.expect(domain.TokenRightParen, "')'")
			body := p.parseBlock()
			return &domain.ForInStmt{BaseNode: p.baseAt(start), VarName: name, Iter: iter, Body: body}
		}
		// not a for-in after all: put the lookahead token back and fall
		// through to the ordinary C-style init-expression parse below.
		p.rewindTo(save)
	}

	var init domain.Node
	if p.check(domain.TokenVar) {
		init = p.parseLocalVarDecl(p.cur)
	} else if !p.check(domain.TokenSemicolon) {
		estart := p.cur
		expr := p.parseExpression()
		p.expect(domain.TokenSemicolon, "';'")
		init = &domain.ExprStmt{BaseNode: p.baseAt(estart), Expr: expr}
	} else {
		p.advance() // bare ';'
	}
	return p.finishForStmt(start, init)
}

func (p *Parser) finishForStmt(start domain.Token, init domain.Node) *domain.ForStmt {
	var cond domain.Expression
	if !p.check(domain.TokenSemicolon) {
		cond = p.parseExpression()
	}
	p.expect(domain.TokenSemicolon, "';'")
	var update domain.Expression
	if !p.check(domain.TokenRightParen) {
		update = p.parseExpression()
	}
	p.expect(domain.TokenRightParen, "')'")
	body := p.parseBlock()
	return &domain.ForStmt{BaseNode: p.baseAt(start), Init: init, Cond: cond, Update: update, Body: body}
}

// ---------------------------------------------------------------------------
// expressions: precedence-climbing per operator level, per §4.2
// ---------------------------------------------------------------------------

func (p *Parser) parseExpression() domain.Expression {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() domain.Expression {
	left := p.parseLogicalOr()
	return p.parseAssignmentFrom(left)
}

func (p *Parser) parseAssignmentFrom(left domain.Expression) domain.Expression {
	compound := -1
	switch p.cur.Type {
	case domain.TokenAssign:
		compound = -1
	case domain.TokenPlusAssign:
		compound = int(domain.OpAdd)
	case domain.TokenMinusAssign:
		compound = int(domain.OpSub)
	case domain.TokenStarAssign:
		compound = int(domain.OpMul)
	case domain.TokenSlashAssign:
		compound = int(domain.OpDiv)
	case domain.TokenPercentAssign:
		compound = int(domain.OpMod)
	default:
		return left
	}
	start := p.cur
	p.advance()
	value := p.parseAssignment() // right-associative
	left.SetValueCategory(domain.LValue)
	return &domain.AssignExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Target: left, Value: value, CompoundOp: compound}
}

func (p *Parser) parseLogicalOr() domain.Expression {
	left := p.parseLogicalAnd()
	for p.check(domain.TokenOr) {
		start := p.cur
		p.advance()
		right := p.parseLogicalAnd()
		left = &domain.BinaryExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Operator: domain.OpOr, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseLogicalAnd() domain.Expression {
	left := p.parseEquality()
	for p.check(domain.TokenAnd) {
		start := p.cur
		p.advance()
		right := p.parseEquality()
		left = &domain.BinaryExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Operator: domain.OpAnd, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseEquality() domain.Expression {
	left := p.parseComparison()
	for p.check(domain.TokenEqual) || p.check(domain.TokenNotEqual) {
		op := domain.OpEq
		if p.check(domain.TokenNotEqual) {
			op = domain.OpNe
		}
		start := p.cur
		p.advance()
		right := p.parseComparison()
		left = &domain.BinaryExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Operator: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseComparison() domain.Expression {
	left := p.parseRange()
	for {
		var op domain.BinaryOperator
		switch p.cur.Type {
		case domain.TokenLess:
			op = domain.OpLt
		case domain.TokenLessEqual:
			op = domain.OpLe
		case domain.TokenGreater:
			op = domain.OpGt
		case domain.TokenGreaterEqual:
			op = domain.OpGe
		default:
			return left
		}
		start := p.cur
		p.advance()
		right := p.parseRange()
		left = &domain.BinaryExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Operator: op, Left: left, Right: right}
	}
}

func (p *Parser) parseRange() domain.Expression {
	left := p.parseAdditive()
	if p.check(domain.TokenDotDot) || p.check(domain.TokenDotDotEq) {
		inclusive := p.check(domain.TokenDotDotEq)
		start := p.cur
		p.advance()
		right := p.parseAdditive()
		return &domain.RangeExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Start: left, End: right, Inclusive: inclusive}
	}
	return left
}

func (p *Parser) parseAdditive() domain.Expression {
	left := p.parseMultiplicative()
	for p.check(domain.TokenPlus) || p.check(domain.TokenMinus) {
		op := domain.OpAdd
		if p.check(domain.TokenMinus) {
			op = domain.OpSub
		}
		start := p.cur
		p.advance()
		right := p.parseMultiplicative()
		left = &domain.BinaryExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Operator: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() domain.Expression {
	left := p.parseUnary()
	for {
		var op domain.BinaryOperator
		switch p.cur.Type {
		case domain.TokenStar:
			op = domain.OpMul
		case domain.TokenSlash:
			op = domain.OpDiv
		case domain.TokenPercent:
			op = domain.OpMod
		default:
			return left
		}
		start := p.cur
		p.advance()
		right := p.parseUnary()
		left = &domain.BinaryExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Operator: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() domain.Expression {
	switch p.cur.Type {
	case domain.TokenMinus, domain.TokenNot, domain.TokenPlusPlus, domain.TokenMinusMinus:
		op := map[domain.TokenType]domain.UnaryOperator{
			domain.TokenMinus:      domain.OpNeg,
			domain.TokenNot:        domain.OpNot,
			domain.TokenPlusPlus:   domain.OpPreInc,
			domain.TokenMinusMinus: domain.OpPreDec,
		}[p.cur.Type]
		start := p.cur
		p.advance()
		operand := p.parseUnary() // right-associative
		return &domain.UnaryExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Operator: op, Operand: operand}
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() domain.Expression {
	return p.parsePostfixFrom(p.parsePrimary())
}

func (p *Parser) parsePostfixFrom(expr domain.Expression) domain.Expression {
	for {
		start := p.cur
		switch p.cur.Type {
		case domain.TokenLeftParen:
			p.advance()
			var args []domain.Expression
			for !p.check(domain.TokenRightParen) && !p.check(domain.TokenEOF) {
				args = append(args, p.parseExpression())
				if !p.match(domain.TokenComma) {
					break
				}
			}
			p.expect(domain.TokenRightParen, "')'")
			expr = &domain.CallExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Callee: expr, Args: args}
		case domain.TokenLeftBracket:
			p.advance()
			idx := p.parseExpression()
			p.expect(domain.TokenRightBracket, "']'")
			expr = &domain.IndexExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Object: expr, Index: idx}
		case domain.TokenDot:
			p.advance()
			member := p.expectIdentText("member name")
			expr = &domain.MemberExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Object: expr, Member: member}
		case domain.TokenPlusPlus:
			p.advance()
			expr = &domain.UnaryExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Operator: domain.OpPostInc, Operand: expr}
		case domain.TokenMinusMinus:
			p.advance()
			expr = &domain.UnaryExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Operator: domain.OpPostDec, Operand: expr}
		case domain.TokenIdentifier:
			// contextual `expr as Type` cast, the only place "as" is meaningful.
			if p.cur.Text == "as" {
				p.advance()
				target := p.parseTypeRef()
				expr = &domain.CastExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, TargetType: target, Operand: expr}
				continue
			}
			return expr
		default:
			return expr
		}
	}
}

func (p *Parser) parsePrimary() domain.Expression {
	start := p.cur
	switch p.cur.Type {
	case domain.TokenIntLiteral:
		v := p.cur.IntValue
		p.advance()
		return &domain.LiteralExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Kind: domain.LitInt, IntValue: v}
	case domain.TokenLongLiteral:
		v := p.cur.IntValue
		p.advance()
		return &domain.LiteralExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Kind: domain.LitLong, IntValue: v}
	case domain.TokenFloatLiteral:
		v := p.cur.FloatValue
		p.advance()
		return &domain.LiteralExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Kind: domain.LitFloat, FloatValue: v}
	case domain.TokenDoubleLiteral:
		v := p.cur.FloatValue
		p.advance()
		return &domain.LiteralExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Kind: domain.LitDouble, FloatValue: v}
	case domain.TokenCharLiteral:
		v := p.cur.StringValue
		p.advance()
		var r int64
		if len(v) > 0 {
			r = int64(v[0])
		}
		return &domain.LiteralExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Kind: domain.LitChar, IntValue: r, StringValue: v}
	case domain.TokenStringLiteral:
		v := p.cur.StringValue
		p.advance()
		return &domain.LiteralExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Kind: domain.LitString, StringValue: v}
	case domain.TokenBoolLiteral:
		v := p.cur.Text == "true"
		p.advance()
		return &domain.LiteralExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Kind: domain.LitBool, BoolValue: v}
	case domain.TokenNullLiteral:
		p.advance()
		return &domain.LiteralExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Kind: domain.LitNull}
	case domain.TokenThis:
		p.advance()
		return &domain.ThisExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}}
	case domain.TokenNew:
		return p.parseNewExpr(start)
	case domain.TokenFn:
		return p.parseLambda(start)
	case domain.TokenIf:
		return p.parseIfExpr(start)
	case domain.TokenMatch:
		return p.parseMatchExpr(start)
	case domain.TokenLeftBrace:
		return p.parseBlockExpr(start)
	case domain.TokenLeftParen:
		p.advance()
		inner := p.parseExpression()
		p.expect(domain.TokenRightParen, "')'")
		return inner
	case domain.TokenIdentifier:
		switch p.cur.Text {
		case "typeof":
			p.advance()
			p.expect(domain.TokenLeftParen, "'('")
			target := p.parseTypeRef()
			p.expect(domain.TokenRightParen, "')'")
			return &domain.TypeofExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Target: target}
		case "sizeof":
			p.advance()
			p.expect(domain.TokenLeftParen, "'('")
			target := p.parseTypeRef()
			p.expect(domain.TokenRightParen, "')'")
			return &domain.SizeofExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Target: target}
		default:
			name := p.cur.Text
			p.advance()
			ne := &domain.NameExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Parts: []string{name}}
			ne.SetValueCategory(domain.LValue)
			return ne
		}
	default:
		p.errorf("unexpected token %q in expression", p.cur.Text)
		p.advance()
		return &domain.LiteralExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Kind: domain.LitNull}
	}
}

func (p *Parser) parseNewExpr(start domain.Token) *domain.NewExpr {
	p.advance() // 'new'
	name := p.expectIdentText("type name")
	p.skipGenericParams()
	p.expect(domain.TokenLeftParen, "'('")
	var args []domain.Expression
	for !p.check(domain.TokenRightParen) && !p.check(domain.TokenEOF) {
		args = append(args, p.parseExpression())
		if !p.match(domain.TokenComma) {
			break
		}
	}
	p.expect(domain.TokenRightParen, "')'")
	return &domain.NewExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, TypeName: name, Args: args}
}

// parseLambda parses the anonymous-function literal `fn(params) => expr`
// or `fn(params) { block }`, reusing the 'fn' keyword instead of
// introducing a bracket syntax the grammar would otherwise have to
// disambiguate against a parenthesized expression.
func (p *Parser) parseLambda(start domain.Token) *domain.LambdaExpr {
	p.advance() // 'fn'
	p.expect(domain.TokenLeftParen, "'('")
	var params []domain.LambdaParam
	for !p.check(domain.TokenRightParen) && !p.check(domain.TokenEOF) {
		name := p.expectIdentText("parameter name")
		var typ domain.TypeRef
		if p.match(domain.TokenColon) {
			typ = p.parseTypeRef()
		}
		params = append(params, domain.LambdaParam{Name: name, Type: typ})
		if !p.match(domain.TokenComma) {
			break
		}
	}
	p.expect(domain.TokenRightParen, "')'")

	var body domain.Node
	if p.match(domain.TokenFatArrow) {
		body = p.parseExpression()
	} else {
		body = p.parseBlock()
	}
	return &domain.LambdaExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Params: params, Body: body}
}

// parseIfExpr parses `if` in expression position. The `else` arm is
// optional; without one, IfExpr.Else is nil.
func (p *Parser) parseIfExpr(start domain.Token) *domain.IfExpr {
	p.advance() // 'if'
	p.expect(domain.TokenLeftParen, "'(' after if")
	cond := p.parseExpression()
	p.expect(domain.TokenRightParen, "')'")
	then := p.parseBlockExpr(p.cur)
	var elseExpr domain.Expression
	if p.match(domain.TokenElse) {
		if p.check(domain.TokenIf) {
			elseExpr = p.parseIfExpr(p.cur)
		} else {
			elseExpr = p.parseBlockExpr(p.cur)
		}
	}
	return &domain.IfExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Condition: cond, Then: then, Else: elseExpr}
}

func (p *Parser) parseMatchExpr(start domain.Token) *domain.MatchExpr {
	p.advance() // 'match'
	subject := p.parseExpression()
	p.expect(domain.TokenLeftBrace, "'{'")
	var arms []domain.MatchArm
	for !p.check(domain.TokenRightBrace) && !p.check(domain.TokenEOF) {
		pattern := p.parseExpression()
		var guard domain.Expression
		if p.check(domain.TokenIf) {
			p.advance()
			guard = p.parseExpression()
		}
		p.expect(domain.TokenFatArrow, "'=>'")
		body := p.parseExpression()
		arms = append(arms, domain.MatchArm{Pattern: pattern, Guard: guard, Body: body})
		if !p.match(domain.TokenComma) {
			break
		}
	}
	p.expect(domain.TokenRightBrace, "'}'")
	return &domain.MatchExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Subject: subject, Arms: arms}
}

// parseBlockExpr parses `{ stmt* expr? }`: every statement but a trailing
// bare expression becomes a Statement; the trailing expression (if any
// and if not followed by ';') becomes the block's value, per §4.2's
// "block as expression" rule.
func (p *Parser) parseBlockExpr(start domain.Token) *domain.BlockExpr {
	p.expect(domain.TokenLeftBrace, "'{'")
	var stmts []domain.Statement
	var tail domain.Expression
	for !p.check(domain.TokenRightBrace) && !p.check(domain.TokenEOF) {
		if isExprStart(p.cur.Type) {
			estart := p.cur
			expr := p.parseExpression()
			if p.match(domain.TokenSemicolon) {
				stmts = append(stmts, &domain.ExprStmt{BaseNode: p.baseAt(estart), Expr: expr})
				continue
			}
			tail = expr
			break
		}
		stmts = append(stmts, p.parseStatement())
	}
	p.expect(domain.TokenRightBrace, "'}'")
	return &domain.BlockExpr{ExprBase: domain.ExprBase{BaseNode: p.baseAt(start)}, Statements: stmts, TailExpr: tail}
}

func isExprStart(tt domain.TokenType) bool {
	switch tt {
	case domain.TokenVar, domain.TokenIf, domain.TokenWhile, domain.TokenFor, domain.TokenReturn,
		domain.TokenBreak, domain.TokenContinue, domain.TokenLeftBrace:
		return false
	default:
		return true
	}
}

package domain

// Node is implemented by every AST node. Nodes are owned by an arena
// belonging to the parser (see Arena below); references between them are
// non-owning indices or pointers stable for the compilation unit, per §3.
type Node interface {
	NodeID() int
	GetLocation() SourceRange
	Accept(v Visitor)
}

// BaseNode supplies the common id/location fields every concrete node
// embeds, matching the teacher's BaseNode pattern.
type BaseNode struct {
	ID       int
	Location SourceRange
}

func (n *BaseNode) NodeID() int              { return n.ID }
func (n *BaseNode) GetLocation() SourceRange { return n.Location }

// ValueCategory is LValue or RValue, from §4.5 Phase B.
type ValueCategory int

const (
	RValue ValueCategory = iota
	LValue
)

// Expression is any node that yields a value and carries a resolved type
// once bound by the semantic analyzer.
type Expression interface {
	Node
	GetType() Type
	SetType(Type)
	GetValueCategory() ValueCategory
	SetValueCategory(ValueCategory)
}

// ExprBase is embedded by every concrete expression node.
type ExprBase struct {
	BaseNode
	Type_          Type
	ValueCategory_ ValueCategory
}

func (e *ExprBase) GetType() Type                       { return e.Type_ }
func (e *ExprBase) SetType(t Type)                       { e.Type_ = t }
func (e *ExprBase) GetValueCategory() ValueCategory       { return e.ValueCategory_ }
func (e *ExprBase) SetValueCategory(c ValueCategory)      { e.ValueCategory_ = c }

// Statement is any node executed for effect.
type Statement interface {
	Node
}

// Declaration is any top-level or member-level declaration.
type Declaration interface {
	Node
	GetName() string
}

// TypeRef is unbound type syntax as written by the user, resolved to a
// Type by the semantic analyzer.
type TypeRef interface {
	Node
	RefString() string
}

// ---------------------------------------------------------------------------
// Arena
// ---------------------------------------------------------------------------

// Arena owns every node allocated while parsing one compilation unit and
// hands out stable integer ids, per §9's "Shared AST references" note: Go
// replaces the source's ref-counted pointers with arena-owned values plus
// non-owning indices.
type Arena struct {
	nextID int
}

func NewArena() *Arena { return &Arena{} }

func (a *Arena) AllocID() int {
	id := a.nextID
	a.nextID++
	return id
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

type LiteralKind int

const (
	LitInt LiteralKind = iota
	LitLong
	LitFloat
	LitDouble
	LitChar
	LitString
	LitBool
	LitNull
)

type LiteralExpr struct {
	ExprBase
	Kind        LiteralKind
	IntValue    int64
	FloatValue  float64
	BoolValue   bool
	StringValue string
}

func (n *LiteralExpr) Accept(v Visitor) { v.VisitLiteralExpr(n) }

// NameExpr is a bare or dot-qualified identifier reference; qualified names
// defer container-vs-type resolution to C5 per §4.2.
type NameExpr struct {
	ExprBase
	Parts          []string // ["a","b","c"] for a.b.c
	ResolvedSymbol Symbol   // filled by the analyzer; nil until bound
}

func (n *NameExpr) Accept(v Visitor) { v.VisitNameExpr(n) }

type BinaryOperator int

const (
	OpAdd BinaryOperator = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpRange
	OpRangeInclusive
)

func (op BinaryOperator) String() string {
	names := [...]string{"+", "-", "*", "/", "%", "==", "!=", "<", "<=", ">", ">=", "&&", "||", "..", "..="}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

type BinaryExpr struct {
	ExprBase
	Operator BinaryOperator
	Left     Expression
	Right    Expression
}

func (n *BinaryExpr) Accept(v Visitor) { v.VisitBinaryExpr(n) }

type UnaryOperator int

const (
	OpNeg UnaryOperator = iota
	OpNot
	OpPreInc
	OpPreDec
	OpPostInc
	OpPostDec
)

func (op UnaryOperator) String() string {
	names := [...]string{"-", "!", "++", "--", "++", "--"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

type UnaryExpr struct {
	ExprBase
	Operator UnaryOperator
	Operand  Expression
}

func (n *UnaryExpr) Accept(v Visitor) { v.VisitUnaryExpr(n) }

type AssignExpr struct {
	ExprBase
	Target Expression
	Value  Expression
	// CompoundOp is set for +=, -=, etc.; OpAdd..OpMod, or -1 for plain '='.
	CompoundOp int
}

func (n *AssignExpr) Accept(v Visitor) { v.VisitAssignExpr(n) }

type CallExpr struct {
	ExprBase
	Callee   Expression
	Args     []Expression
	Resolved *FunctionSymbol // filled after overload resolution
}

func (n *CallExpr) Accept(v Visitor) { v.VisitCallExpr(n) }

type MemberExpr struct {
	ExprBase
	Object Expression
	Member string
}

func (n *MemberExpr) Accept(v Visitor) { v.VisitMemberExpr(n) }

type IndexExpr struct {
	ExprBase
	Object Expression
	Index  Expression
}

func (n *IndexExpr) Accept(v Visitor) { v.VisitIndexExpr(n) }

type CastExpr struct {
	ExprBase
	TargetType TypeRef
	Operand    Expression
}

func (n *CastExpr) Accept(v Visitor) { v.VisitCastExpr(n) }

type NewExpr struct {
	ExprBase
	TypeName string
	Args     []Expression
	Resolved *FunctionSymbol // resolved constructor
	Class    *TypeSymbol
}

func (n *NewExpr) Accept(v Visitor) { v.VisitNewExpr(n) }

type ThisExpr struct {
	ExprBase
}

func (n *ThisExpr) Accept(v Visitor) { v.VisitThisExpr(n) }

type LambdaParam struct {
	Name string
	Type TypeRef // may be nil (inferred)
}

type LambdaExpr struct {
	ExprBase
	Params []LambdaParam
	Body   Node // either a BlockStmt or a single Expression
}

func (n *LambdaExpr) Accept(v Visitor) { v.VisitLambdaExpr(n) }

type RangeExpr struct {
	ExprBase
	Start     Expression
	End       Expression
	Inclusive bool
}

func (n *RangeExpr) Accept(v Visitor) { v.VisitRangeExpr(n) }

type ConditionalExpr struct {
	ExprBase
	Condition Expression
	Then      Expression
	Else      Expression
}

func (n *ConditionalExpr) Accept(v Visitor) { v.VisitConditionalExpr(n) }

type TypeofExpr struct {
	ExprBase
	Target TypeRef
}

func (n *TypeofExpr) Accept(v Visitor) { v.VisitTypeofExpr(n) }

type SizeofExpr struct {
	ExprBase
	Target TypeRef
}

func (n *SizeofExpr) Accept(v Visitor) { v.VisitSizeofExpr(n) }

type MatchArm struct {
	Pattern Expression // literal or enum-case pattern, kept as an expression for simplicity
	Guard   Expression // optional
	Body    Expression
}

type MatchExpr struct {
	ExprBase
	Subject Expression
	Arms    []MatchArm
}

func (n *MatchExpr) Accept(v Visitor) { v.VisitMatchExpr(n) }

type IfExpr struct {
	ExprBase
	Condition Expression
	Then      Expression
	Else      Expression // nil if no else
}

func (n *IfExpr) Accept(v Visitor) { v.VisitIfExpr(n) }

type BlockExpr struct {
	ExprBase
	Statements []Statement
	TailExpr   Expression // value of the block, or nil
}

func (n *BlockExpr) Accept(v Visitor) { v.VisitBlockExpr(n) }

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

type ExprStmt struct {
	BaseNode
	Expr Expression
}

func (n *ExprStmt) Accept(v Visitor) { v.VisitExprStmt(n) }

type VarDeclStmt struct {
	BaseNode
	Name        string
	DeclaredType TypeRef // may be nil when inferred from Init
	Init        Expression
	ResolvedType Type
}

func (n *VarDeclStmt) Accept(v Visitor) { v.VisitVarDeclStmt(n) }
func (n *VarDeclStmt) GetName() string  { return n.Name }

type IfStmt struct {
	BaseNode
	Condition Expression
	Then      *BlockStmt
	Else      Node // *BlockStmt or *IfStmt, nil if absent
}

func (n *IfStmt) Accept(v Visitor) { v.VisitIfStmt(n) }

type WhileStmt struct {
	BaseNode
	Condition Expression
	Body      *BlockStmt
}

func (n *WhileStmt) Accept(v Visitor) { v.VisitWhileStmt(n) }

type ForStmt struct {
	BaseNode
	Init   Node // *VarDeclStmt or *ExprStmt, may be nil
	Cond   Expression
	Update Expression
	Body   *BlockStmt
}

func (n *ForStmt) Accept(v Visitor) { v.VisitForStmt(n) }

// ForInStmt is the for-in branch distinguished by lookahead per §4.2.
type ForInStmt struct {
	BaseNode
	VarName string
	Iter    Expression
	Body    *BlockStmt
}

func (n *ForInStmt) Accept(v Visitor) { v.VisitForInStmt(n) }

type ReturnStmt struct {
	BaseNode
	Value Expression // nil for a bare `return;`
}

func (n *ReturnStmt) Accept(v Visitor) { v.VisitReturnStmt(n) }

type BreakStmt struct {
	BaseNode
}

func (n *BreakStmt) Accept(v Visitor) { v.VisitBreakStmt(n) }

type ContinueStmt struct {
	BaseNode
}

func (n *ContinueStmt) Accept(v Visitor) { v.VisitContinueStmt(n) }

type BlockStmt struct {
	BaseNode
	Statements []Statement
}

func (n *BlockStmt) Accept(v Visitor) { v.VisitBlockStmt(n) }

// ---------------------------------------------------------------------------
// TypeRefs
// ---------------------------------------------------------------------------

type NamedTypeRef struct {
	BaseNode
	Name string
	Args []TypeRef // generic arguments, parsed but not instantiated (§1 Non-goals)
}

func (n *NamedTypeRef) Accept(v Visitor)   { v.VisitNamedTypeRef(n) }
func (n *NamedTypeRef) RefString() string { return n.Name }

type PointerTypeRef struct {
	BaseNode
	Inner TypeRef
}

func (n *PointerTypeRef) Accept(v Visitor)   { v.VisitPointerTypeRef(n) }
func (n *PointerTypeRef) RefString() string { return "ptr<" + n.Inner.RefString() + ">" }

type ArrayTypeRef struct {
	BaseNode
	Element TypeRef
	Size    int // -1 when dynamic
}

func (n *ArrayTypeRef) Accept(v Visitor) { v.VisitArrayTypeRef(n) }
func (n *ArrayTypeRef) RefString() string {
	return "[]" + n.Element.RefString()
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

type Modifiers struct {
	IsStatic   bool
	IsVirtual  bool
	IsOverride bool
	IsPublic   bool
	IsPrivate  bool
	IsExtern   bool
}

type ParameterDecl struct {
	BaseNode
	Name string
	Type TypeRef
}

func (n *ParameterDecl) Accept(v Visitor) { v.VisitParameterDecl(n) }
func (n *ParameterDecl) GetName() string  { return n.Name }

type FunctionDecl struct {
	BaseNode
	Name       string
	Parameters []*ParameterDecl
	ReturnType TypeRef // nil means inferred void/unresolved
	Body       *BlockStmt
	Modifiers  Modifiers

	// Resolved points back to the symbol Phase A created for this
	// declaration, so Phase B/codegen never re-looks it up by name.
	Resolved *FunctionSymbol
}

func (n *FunctionDecl) Accept(v Visitor) { v.VisitFunctionDecl(n) }
func (n *FunctionDecl) GetName() string  { return n.Name }

type ConstructorDecl struct {
	BaseNode
	Parameters []*ParameterDecl
	Body       *BlockStmt
	Resolved   *FunctionSymbol
}

func (n *ConstructorDecl) Accept(v Visitor) { v.VisitConstructorDecl(n) }
func (n *ConstructorDecl) GetName() string  { return "%ctor" }

type DestructorDecl struct {
	BaseNode
	Body     *BlockStmt
	Resolved *FunctionSymbol
}

func (n *DestructorDecl) Accept(v Visitor) { v.VisitDestructorDecl(n) }
func (n *DestructorDecl) GetName() string  { return "%dtor" }

type FieldDecl struct {
	BaseNode
	Name      string
	Type      TypeRef
	Init      Expression // optional in-class initializer
	Modifiers Modifiers
}

func (n *FieldDecl) Accept(v Visitor) { v.VisitFieldDecl(n) }
func (n *FieldDecl) GetName() string  { return n.Name }

type PropertyDecl struct {
	BaseNode
	Name      string
	Type      TypeRef
	Getter    *FunctionDecl // synthesized accessor body, nil if absent
	Setter    *FunctionDecl
	Modifiers Modifiers
}

func (n *PropertyDecl) Accept(v Visitor) { v.VisitPropertyDecl(n) }
func (n *PropertyDecl) GetName() string  { return n.Name }

type EnumCaseDecl struct {
	BaseNode
	Name       string
	Parameters []TypeRef
}

func (n *EnumCaseDecl) Accept(v Visitor) { v.VisitEnumCaseDecl(n) }
func (n *EnumCaseDecl) GetName() string  { return n.Name }

// TypeDecl covers class/struct/enum/static/value-type/ref-type declarations,
// §3's single Declaration variant parameterized by TypeDeclKind.
type TypeDecl struct {
	BaseNode
	Name         string
	Kind         TypeDeclKind
	BaseName     string // "" if none
	Fields       []*FieldDecl
	Properties   []*PropertyDecl
	Methods      []*FunctionDecl
	Constructors []*ConstructorDecl
	Destructor   *DestructorDecl
	EnumCases    []*EnumCaseDecl
	Modifiers    Modifiers
	IsForwardDecl bool // `class Forward;` with no body, per §4.4

	Resolved *TypeSymbol
}

func (n *TypeDecl) Accept(v Visitor) { v.VisitTypeDecl(n) }
func (n *TypeDecl) GetName() string  { return n.Name }

type NamespaceDecl struct {
	BaseNode
	Name         string
	Declarations []Declaration
	IsFileScoped bool
}

func (n *NamespaceDecl) Accept(v Visitor) { v.VisitNamespaceDecl(n) }
func (n *NamespaceDecl) GetName() string  { return n.Name }

// VariableDecl is a top-level `var` declaration (rare, but named as its
// own Declaration variant by §3 alongside function/type/namespace decls).
type VariableDecl struct {
	BaseNode
	Name         string
	DeclaredType TypeRef
	Init         Expression
}

func (n *VariableDecl) Accept(v Visitor) { v.VisitVariableDecl(n) }
func (n *VariableDecl) GetName() string  { return n.Name }

// CompilationUnit is the root node: a sequence of top-level declarations
// plus `using` imports, per §3. Namespace holds the file-scoped
// `namespace X;` prefix (empty when absent or when namespaces are
// block-scoped instead).
type CompilationUnit struct {
	BaseNode
	Filename     string
	Namespace    string
	Usings       []string
	Declarations []Declaration
}

func (n *CompilationUnit) Accept(v Visitor) { v.VisitCompilationUnit(n) }

// ---------------------------------------------------------------------------
// Visitor
// ---------------------------------------------------------------------------

// Visitor exposes one Visit method per concrete node type, per §4.3's
// closed-sum-type visitor contract.
type Visitor interface {
	VisitCompilationUnit(n *CompilationUnit)
	VisitNamespaceDecl(n *NamespaceDecl)
	VisitTypeDecl(n *TypeDecl)
	VisitFunctionDecl(n *FunctionDecl)
	VisitConstructorDecl(n *ConstructorDecl)
	VisitDestructorDecl(n *DestructorDecl)
	VisitFieldDecl(n *FieldDecl)
	VisitPropertyDecl(n *PropertyDecl)
	VisitEnumCaseDecl(n *EnumCaseDecl)
	VisitParameterDecl(n *ParameterDecl)
	VisitVariableDecl(n *VariableDecl)

	VisitBlockStmt(n *BlockStmt)
	VisitExprStmt(n *ExprStmt)
	VisitVarDeclStmt(n *VarDeclStmt)
	VisitIfStmt(n *IfStmt)
	VisitWhileStmt(n *WhileStmt)
	VisitForStmt(n *ForStmt)
	VisitForInStmt(n *ForInStmt)
	VisitReturnStmt(n *ReturnStmt)
	VisitBreakStmt(n *BreakStmt)
	VisitContinueStmt(n *ContinueStmt)

	VisitLiteralExpr(n *LiteralExpr)
	VisitNameExpr(n *NameExpr)
	VisitBinaryExpr(n *BinaryExpr)
	VisitUnaryExpr(n *UnaryExpr)
	VisitAssignExpr(n *AssignExpr)
	VisitCallExpr(n *CallExpr)
	VisitMemberExpr(n *MemberExpr)
	VisitIndexExpr(n *IndexExpr)
	VisitCastExpr(n *CastExpr)
	VisitNewExpr(n *NewExpr)
	VisitThisExpr(n *ThisExpr)
	VisitLambdaExpr(n *LambdaExpr)
	VisitRangeExpr(n *RangeExpr)
	VisitConditionalExpr(n *ConditionalExpr)
	VisitTypeofExpr(n *TypeofExpr)
	VisitSizeofExpr(n *SizeofExpr)
	VisitMatchExpr(n *MatchExpr)
	VisitIfExpr(n *IfExpr)
	VisitBlockExpr(n *BlockExpr)

	VisitNamedTypeRef(n *NamedTypeRef)
	VisitPointerTypeRef(n *PointerTypeRef)
	VisitArrayTypeRef(n *ArrayTypeRef)
}

package domain

// SymbolKind discriminates the Symbol variants of §3.
type SymbolKind int

const (
	SymVariable SymbolKind = iota
	SymParameter
	SymField
	SymProperty
	SymFunction
	SymType
	SymNamespace
)

// Symbol is implemented by every concrete symbol kind; callers switch on
// the dynamic type (the Go analogue of the spec's tagged variants).
type Symbol interface {
	SymbolName() string
	SymbolKind() SymbolKind
}

// VariableSymbol is a local variable binding.
type VariableSymbol struct {
	Name     string
	Type     Type
	Location SourceRange
}

func (s *VariableSymbol) SymbolName() string  { return s.Name }
func (s *VariableSymbol) SymbolKind() SymbolKind { return SymVariable }

// ParameterSymbol is a function/method parameter, carrying its position so
// codegen can map it to the right LLVM argument register.
type ParameterSymbol struct {
	Name  string
	Type  Type
	Index int
}

func (s *ParameterSymbol) SymbolName() string  { return s.Name }
func (s *ParameterSymbol) SymbolKind() SymbolKind { return SymParameter }

// FieldSymbol is a flattened instance field. IsAliasOfBase marks the
// `base.name` entries §4.4 requires alongside the bare name.
type FieldSymbol struct {
	Name          string
	Type          Type
	Index         int
	IsAliasOfBase bool
	OwnerClass    *TypeSymbol
	DeclaredIn    *TypeSymbol // class that actually declared this field
}

func (s *FieldSymbol) SymbolName() string  { return s.Name }
func (s *FieldSymbol) SymbolKind() SymbolKind { return SymField }

// PropertySymbol is a field-like member backed by accessor methods.
type PropertySymbol struct {
	Name   string
	Type   Type
	Getter *FunctionSymbol
	Setter *FunctionSymbol
}

func (s *PropertySymbol) SymbolName() string  { return s.Name }
func (s *PropertySymbol) SymbolKind() SymbolKind { return SymProperty }

// FunctionSymbol covers free functions, methods, constructors, and
// destructors per §3's Function variant flag set.
type FunctionSymbol struct {
	Name           string
	QualifiedName  string
	Parameters     []*ParameterSymbol
	ReturnType     Type
	IsStatic       bool
	IsVirtual      bool
	IsOverride     bool
	IsExternal     bool
	IsConstructor  bool
	IsDestructor   bool
	IsForwardDecl  bool
	IsDefined      bool
	OwnerClass     *TypeSymbol // nil for free functions
	VTableSlot     int         // -1 when not virtual
	DeclLine       int
}

func (s *FunctionSymbol) SymbolName() string  { return s.Name }
func (s *FunctionSymbol) SymbolKind() SymbolKind { return SymFunction }

// Signature returns the function's type as a *FunctionType, instance
// methods included (receiver is not part of the Go-level FunctionType; the
// implicit fields-pointer parameter is a codegen concern, not a type-system
// one).
func (s *FunctionSymbol) Signature(ts *TypeSystem) *FunctionType {
	params := make([]Type, len(s.Parameters))
	for i, p := range s.Parameters {
		params[i] = p.Type
	}
	return ts.GetFunction(s.ReturnType, params, false)
}

// MethodGroup is the Container aggregate-of-overloads variant from §3: all
// functions sharing one bare name within a class or namespace.
type MethodGroup struct {
	Name      string
	Overloads []*FunctionSymbol
}

// TypeDeclKind distinguishes class/struct/enum/static/value/ref declarations.
type TypeDeclKind int

const (
	DeclClass TypeDeclKind = iota
	DeclStruct
	DeclEnum
	DeclStatic
	DeclValueType
	DeclRefType
)

// TypeSymbol is the Type variant of §3: kind, base, flattened field list,
// method registry, constructors, destructor, virtual-method order, vtable
// naming, and a stable type id.
type TypeSymbol struct {
	Name          string
	QualifiedName string
	Kind          TypeDeclKind
	BaseName      string
	BaseSymbol    *TypeSymbol

	Fields     []*FieldSymbol
	FieldIndex map[string]int // includes "base.name" aliases

	Methods      map[string]*MethodGroup
	Constructors []*FunctionSymbol
	DestructorName string
	Destructor   *FunctionSymbol

	VirtualMethodOrder []*FunctionSymbol // slot k == VirtualMethodOrder[k-1], slot 0 is destructor

	VTableTypeName   string
	VTableGlobalName string
	FieldsStructName string

	TypeID           int
	IsForwardDecl    bool
	IsDefined        bool

	EnumCases []EnumCaseSymbol // populated when Kind == DeclEnum
}

func (s *TypeSymbol) SymbolName() string  { return s.Name }
func (s *TypeSymbol) SymbolKind() SymbolKind { return SymType }

// HasVirtualMethods reports whether a vtable must be constructed for s.
func (s *TypeSymbol) HasVirtualMethods() bool { return len(s.VirtualMethodOrder) > 0 }

// GetField looks up a (possibly base-qualified) field by name.
func (s *TypeSymbol) GetField(name string) (*FieldSymbol, bool) {
	idx, ok := s.FieldIndex[name]
	if !ok {
		return nil, false
	}
	return s.Fields[idx], true
}

// FindMethod walks the inheritance chain, matching §4.4's
// find_method_in_class semantics.
func (s *TypeSymbol) FindMethod(name string) (*MethodGroup, *TypeSymbol) {
	for cur := s; cur != nil; cur = cur.BaseSymbol {
		if g, ok := cur.Methods[name]; ok {
			return g, cur
		}
	}
	return nil, nil
}

// EnumCaseSymbol is a `case Name(TypeList)?` declaration.
type EnumCaseSymbol struct {
	Name       string
	Index      int
	Parameters []Type
}

// NamespaceSymbol groups nested classes/functions/namespaces.
type NamespaceSymbol struct {
	Name          string
	QualifiedName string
}

func (s *NamespaceSymbol) SymbolName() string  { return s.Name }
func (s *NamespaceSymbol) SymbolKind() SymbolKind { return SymNamespace }

// Scope is one lexical frame: a hash map of names to symbols, with a parent
// link for innermost-wins lookup.
type Scope struct {
	Level    int
	Parent   *Scope
	Children []*Scope
	Symbols  map[string]Symbol
	Name     string // function/block name, for diagnostics
}

func NewScope(level int, parent *Scope, name string) *Scope {
	return &Scope{Level: level, Parent: parent, Symbols: make(map[string]Symbol), Name: name}
}

package domain

import (
	"fmt"
	"strings"
)

// Type is the canonical, interned type representation of §3. Equality is
// structural for Pointer/Array/Function and nominal for Named/Primitive,
// matching the spec's equality rule exactly.
type Type interface {
	String() string
	Equals(other Type) bool
	IsAssignableFrom(other Type) bool
	Size() int
}

// PrimitiveKind enumerates the predefined primitives the façade exposes.
type PrimitiveKind int

const (
	KindI32 PrimitiveKind = iota
	KindI64
	KindF32
	KindF64
	KindBool
	KindChar
	KindVoid
	KindString
)

var primitiveSizes = map[PrimitiveKind]int{
	KindI32: 4, KindI64: 8, KindF32: 4, KindF64: 8,
	KindBool: 1, KindChar: 1, KindVoid: 0, KindString: 8, // string is a ptr
}

var primitiveNames = map[PrimitiveKind]string{
	KindI32: "i32", KindI64: "i64", KindF32: "f32", KindF64: "f64",
	KindBool: "bool", KindChar: "char", KindVoid: "void", KindString: "string",
}

// PrimitiveType is Primitive(name,size) from §3.
type PrimitiveType struct {
	Kind PrimitiveKind
}

func (t *PrimitiveType) String() string { return primitiveNames[t.Kind] }
func (t *PrimitiveType) Size() int      { return primitiveSizes[t.Kind] }
func (t *PrimitiveType) Equals(other Type) bool {
	o, ok := other.(*PrimitiveType)
	return ok && o.Kind == t.Kind
}
func (t *PrimitiveType) IsAssignableFrom(other Type) bool {
	o, ok := other.(*PrimitiveType)
	if !ok {
		return false
	}
	if o.Kind == t.Kind {
		return true
	}
	return ClassifyConversion(other, t) == ConvImplicitNumeric
}

func (t *PrimitiveType) IsNumeric() bool {
	switch t.Kind {
	case KindI32, KindI64, KindF32, KindF64:
		return true
	default:
		return false
	}
}

func (t *PrimitiveType) IsFloat() bool { return t.Kind == KindF32 || t.Kind == KindF64 }

// NamedType is Named(symbol) from §3 — a reference to a user-declared class,
// struct, or enum. The symbol carries the flattened layout and vtable info.
type NamedType struct {
	Symbol *TypeSymbol
}

func (t *NamedType) String() string { return t.Symbol.QualifiedName }
func (t *NamedType) Size() int       { return 8 } // always a pointer to header
func (t *NamedType) Equals(other Type) bool {
	o, ok := other.(*NamedType)
	return ok && o.Symbol.QualifiedName == t.Symbol.QualifiedName
}
func (t *NamedType) IsAssignableFrom(other Type) bool {
	o, ok := other.(*NamedType)
	if !ok {
		return false
	}
	for s := o.Symbol; s != nil; s = s.BaseSymbol {
		if s.QualifiedName == t.Symbol.QualifiedName {
			return true
		}
	}
	return false
}

// PointerType is Pointer(inner) from §3.
type PointerType struct {
	Inner Type
}

func (t *PointerType) String() string { return "ptr<" + t.Inner.String() + ">" }
func (t *PointerType) Size() int      { return 8 }
func (t *PointerType) Equals(other Type) bool {
	o, ok := other.(*PointerType)
	return ok && o.Inner.Equals(t.Inner)
}
func (t *PointerType) IsAssignableFrom(other Type) bool { return t.Equals(other) }

// ArrayType is Array(element,size_or_dynamic) from §3; Length == -1 means a
// dynamically sized array.
type ArrayType struct {
	Element Type
	Length  int
}

func (t *ArrayType) String() string {
	if t.Length < 0 {
		return "[]" + t.Element.String()
	}
	return fmt.Sprintf("[%d]%s", t.Length, t.Element.String())
}
func (t *ArrayType) Size_() int { return t.Length }
func (t *ArrayType) Size() int {
	if t.Length < 0 {
		return 8
	}
	return t.Length * t.Element.Size()
}
func (t *ArrayType) Equals(other Type) bool {
	o, ok := other.(*ArrayType)
	return ok && o.Length == t.Length && o.Element.Equals(t.Element)
}
func (t *ArrayType) IsAssignableFrom(other Type) bool { return t.Equals(other) }

// FunctionType is Function(return,params,varargs) from §3.
type FunctionType struct {
	Params   []Type
	Return   Type
	Varargs  bool
}

func (t *FunctionType) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	v := ""
	if t.Varargs {
		v = ", ..."
	}
	return fmt.Sprintf("fn(%s%s): %s", strings.Join(parts, ", "), v, t.Return.String())
}
func (t *FunctionType) Size() int { return 8 }
func (t *FunctionType) Equals(other Type) bool {
	o, ok := other.(*FunctionType)
	if !ok || len(o.Params) != len(t.Params) || o.Varargs != t.Varargs {
		return false
	}
	if !o.Return.Equals(t.Return) {
		return false
	}
	for i := range t.Params {
		if !o.Params[i].Equals(t.Params[i]) {
			return false
		}
	}
	return true
}
func (t *FunctionType) IsAssignableFrom(other Type) bool { return t.Equals(other) }

// UnresolvedType is Unresolved(id) from §3 — a placeholder awaiting
// inference, resolved through the TypeSystem's union-find substitution map.
type UnresolvedType struct {
	ID int
}

func (t *UnresolvedType) String() string                  { return fmt.Sprintf("?%d", t.ID) }
func (t *UnresolvedType) Size() int                        { return 0 }
func (t *UnresolvedType) Equals(other Type) bool {
	o, ok := other.(*UnresolvedType)
	return ok && o.ID == t.ID
}
func (t *UnresolvedType) IsAssignableFrom(other Type) bool { return true }

// ConversionKind is the centralized classifier's result set from §4.3.
type ConversionKind int

const (
	ConvIdentity ConversionKind = iota
	ConvImplicitNumeric
	ConvExplicitNumeric
	ConvPointerBitcast
	ConvPrimitiveToString
	ConvStringToPrimitive
	ConvNoConversion
)

// numericRank orders primitives for "widening only" implicit conversion.
var numericRank = map[PrimitiveKind]int{
	KindI32: 0, KindF32: 1, KindI64: 2, KindF64: 3,
}

// ClassifyConversion implements §4.3's centralized conversion classifier.
func ClassifyConversion(from, to Type) ConversionKind {
	if from.Equals(to) {
		return ConvIdentity
	}
	fp, fIsPrim := from.(*PrimitiveType)
	tp, tIsPrim := to.(*PrimitiveType)
	if fIsPrim && tIsPrim {
		if fp.Kind == KindString && tp.Kind != KindString {
			return ConvStringToPrimitive
		}
		if tp.Kind == KindString && fp.Kind != KindString {
			return ConvPrimitiveToString
		}
		if fp.IsNumeric() && tp.IsNumeric() {
			fr, fok := numericRank[fp.Kind]
			tr, tok := numericRank[tp.Kind]
			if fok && tok {
				if tr >= fr {
					return ConvImplicitNumeric
				}
				return ConvExplicitNumeric
			}
		}
	}
	_, fIsPtr := from.(*PointerType)
	_, tIsPtr := to.(*PointerType)
	_, fIsNamed := from.(*NamedType)
	_, tIsNamed := to.(*NamedType)
	if (fIsPtr || fIsNamed) && (tIsPtr || tIsNamed) {
		return ConvPointerBitcast
	}
	return ConvNoConversion
}

// TypeSystem is the interned-type façade from §4.3: get_primitive,
// get_pointer, get_array, get_function, get_named, get_unresolved, plus a
// path-compressed union-find substitution map for inference.
type TypeSystem struct {
	primitives map[PrimitiveKind]*PrimitiveType
	pointers   map[string]*PointerType
	arrays     map[string]*ArrayType
	functions  map[string]*FunctionType
	named      map[string]*NamedType

	nextUnresolvedID int
	substitution     map[int]Type // union-find parent pointers; leaf = resolved Type or nil
}

// NewTypeSystem builds a façade preloaded with the predefined primitives.
func NewTypeSystem() *TypeSystem {
	ts := &TypeSystem{
		primitives:   make(map[PrimitiveKind]*PrimitiveType),
		pointers:     make(map[string]*PointerType),
		arrays:       make(map[string]*ArrayType),
		functions:    make(map[string]*FunctionType),
		named:        make(map[string]*NamedType),
		substitution: make(map[int]Type),
	}
	for k := range primitiveNames {
		ts.primitives[k] = &PrimitiveType{Kind: k}
	}
	return ts
}

func (ts *TypeSystem) GetPrimitive(kind PrimitiveKind) *PrimitiveType { return ts.primitives[kind] }

func (ts *TypeSystem) GetPointer(inner Type) *PointerType {
	key := inner.String()
	if p, ok := ts.pointers[key]; ok {
		return p
	}
	p := &PointerType{Inner: inner}
	ts.pointers[key] = p
	return p
}

func (ts *TypeSystem) GetArray(elem Type, size int) *ArrayType {
	key := fmt.Sprintf("%d:%s", size, elem.String())
	if a, ok := ts.arrays[key]; ok {
		return a
	}
	a := &ArrayType{Element: elem, Length: size}
	ts.arrays[key] = a
	return a
}

func (ts *TypeSystem) GetFunction(ret Type, params []Type, varargs bool) *FunctionType {
	f := &FunctionType{Return: ret, Params: params, Varargs: varargs}
	key := f.String()
	if existing, ok := ts.functions[key]; ok {
		return existing
	}
	ts.functions[key] = f
	return f
}

func (ts *TypeSystem) GetNamed(sym *TypeSymbol) *NamedType {
	if n, ok := ts.named[sym.QualifiedName]; ok {
		return n
	}
	n := &NamedType{Symbol: sym}
	ts.named[sym.QualifiedName] = n
	return n
}

// NewUnresolved allocates a fresh inference variable.
func (ts *TypeSystem) NewUnresolved() *UnresolvedType {
	id := ts.nextUnresolvedID
	ts.nextUnresolvedID++
	ts.substitution[id] = nil
	return &UnresolvedType{ID: id}
}

// Bind records that unresolved id now resolves to t (union-find union).
func (ts *TypeSystem) Bind(id int, t Type) {
	ts.substitution[id] = t
}

// Resolve follows the substitution chain with path compression, returning
// the final Type or nil if the variable is still unbound.
func (ts *TypeSystem) Resolve(t Type) Type {
	u, ok := t.(*UnresolvedType)
	if !ok {
		return t
	}
	visited := []int{}
	cur := u.ID
	for {
		next, bound := ts.substitution[cur]
		if !bound || next == nil {
			break
		}
		if nu, ok := next.(*UnresolvedType); ok {
			visited = append(visited, cur)
			cur = nu.ID
			continue
		}
		// path compression: point every visited node directly at the root value
		for _, v := range visited {
			ts.substitution[v] = next
		}
		return next
	}
	return nil
}

// CanApplyBinaryOperator ports the teacher's switch over binary operators to
// the expanded Type hierarchy.
func CanApplyBinaryOperator(op BinaryOperator, left, right Type) bool {
	switch op {
	case OpAdd:
		if lp, ok := left.(*PrimitiveType); ok && lp.Kind == KindString {
			return true
		}
		if rp, ok := right.(*PrimitiveType); ok && rp.Kind == KindString {
			return true
		}
		fallthrough
	case OpSub, OpMul, OpDiv, OpMod:
		lp, lok := left.(*PrimitiveType)
		rp, rok := right.(*PrimitiveType)
		return lok && rok && lp.IsNumeric() && rp.IsNumeric()
	case OpEq, OpNe:
		return left.Equals(right) || ClassifyConversion(right, left) == ConvImplicitNumeric
	case OpLt, OpLe, OpGt, OpGe:
		lp, lok := left.(*PrimitiveType)
		rp, rok := right.(*PrimitiveType)
		if !lok || !rok {
			return false
		}
		if lp.IsNumeric() && rp.IsNumeric() {
			return true
		}
		return lp.Kind == KindString && rp.Kind == KindString
	case OpAnd, OpOr:
		lp, lok := left.(*PrimitiveType)
		rp, rok := right.(*PrimitiveType)
		return lok && rok && lp.Kind == KindBool && rp.Kind == KindBool
	case OpRange, OpRangeInclusive:
		lp, lok := left.(*PrimitiveType)
		rp, rok := right.(*PrimitiveType)
		return lok && rok && lp.IsNumeric() && rp.IsNumeric()
	default:
		return false
	}
}

// CanApplyUnaryOperator ports the teacher's unary-operator switch.
func CanApplyUnaryOperator(op UnaryOperator, operand Type) bool {
	p, ok := operand.(*PrimitiveType)
	if !ok {
		return false
	}
	switch op {
	case OpNeg:
		return p.IsNumeric()
	case OpNot:
		return p.Kind == KindBool
	case OpPreInc, OpPreDec, OpPostInc, OpPostDec:
		return p.IsNumeric()
	default:
		return false
	}
}

// IsNumericType reports whether t is one of i32/i64/f32/f64.
func IsNumericType(t Type) bool {
	p, ok := t.(*PrimitiveType)
	return ok && p.IsNumeric()
}

// IsComparableType reports whether t supports equality comparison.
func IsComparableType(t Type) bool {
	switch t.(type) {
	case *PrimitiveType, *NamedType, *PointerType:
		return true
	default:
		return false
	}
}

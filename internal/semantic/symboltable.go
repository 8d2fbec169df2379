package semantic

import (
	"fmt"

	"github.com/emberlang/ember/internal/domain"
	"github.com/emberlang/ember/internal/interfaces"
)

// DefaultSymbolTable is a stack of lexical scopes plus the persistent
// class/function registries of §4.4, grounded on the teacher's
// DefaultSymbolTable scope-stack pattern (EnterScope/ExitScope walking a
// parent-linked tree) and expanded from its single flat Symbol map to the
// class/function/forward-declaration bookkeeping the spec requires.
type DefaultSymbolTable struct {
	globalScope  *domain.Scope
	currentScope *domain.Scope
	nextLevel    int

	classes       map[string]*domain.TypeSymbol
	classOrder    []string
	functions     map[string]*domain.MethodGroup
	functionOrder []string
}

func NewDefaultSymbolTable() *DefaultSymbolTable {
	st := &DefaultSymbolTable{
		classes:   make(map[string]*domain.TypeSymbol),
		functions: make(map[string]*domain.MethodGroup),
	}
	st.Reset()
	return st
}

func (st *DefaultSymbolTable) EnterScope(name string) *domain.Scope {
	st.nextLevel++
	child := domain.NewScope(st.nextLevel, st.currentScope, name)
	st.currentScope.Children = append(st.currentScope.Children, child)
	st.currentScope = child
	return child
}

func (st *DefaultSymbolTable) ExitScope() {
	if st.currentScope.Parent != nil {
		st.currentScope = st.currentScope.Parent
	}
}

func (st *DefaultSymbolTable) CurrentScope() *domain.Scope { return st.currentScope }
func (st *DefaultSymbolTable) GlobalScope() *domain.Scope  { return st.globalScope }

func (st *DefaultSymbolTable) DeclareVariable(name string, t domain.Type, loc domain.SourceRange) (*domain.VariableSymbol, error) {
	if _, exists := st.currentScope.Symbols[name]; exists {
		return nil, fmt.Errorf("%q is already declared in this scope", name)
	}
	sym := &domain.VariableSymbol{Name: name, Type: t, Location: loc}
	st.currentScope.Symbols[name] = sym
	return sym, nil
}

// FindVariable walks the scope chain from innermost to outermost, per the
// "innermost wins" rule of §4.4. The analyzer declares parameters and the
// implicit `this` binding as ordinary variables, so they are found here too.
func (st *DefaultSymbolTable) FindVariable(name string) (domain.Symbol, bool) {
	for s := st.currentScope; s != nil; s = s.Parent {
		if sym, ok := s.Symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

func (st *DefaultSymbolTable) DeclareClass(sym *domain.TypeSymbol) error {
	if _, exists := st.classes[sym.QualifiedName]; exists {
		existing := st.classes[sym.QualifiedName]
		if existing.IsForwardDecl && !existing.IsDefined {
			// forward declaration being filled in: replace, preserve order.
			st.classes[sym.QualifiedName] = sym
			return nil
		}
		return fmt.Errorf("class %q is already declared", sym.QualifiedName)
	}
	st.classes[sym.QualifiedName] = sym
	st.classOrder = append(st.classOrder, sym.QualifiedName)
	return nil
}

func (st *DefaultSymbolTable) FindClass(qualifiedName string) (*domain.TypeSymbol, bool) {
	sym, ok := st.classes[qualifiedName]
	return sym, ok
}

func (st *DefaultSymbolTable) AllClasses() []*domain.TypeSymbol {
	out := make([]*domain.TypeSymbol, 0, len(st.classOrder))
	for _, name := range st.classOrder {
		out = append(out, st.classes[name])
	}
	return out
}

func (st *DefaultSymbolTable) DeclareFunction(sym *domain.FunctionSymbol) error {
	group, ok := st.functions[sym.QualifiedName]
	if !ok {
		group = &domain.MethodGroup{Name: sym.Name}
		st.functions[sym.QualifiedName] = group
		st.functionOrder = append(st.functionOrder, sym.QualifiedName)
	}
	for i, existing := range group.Overloads {
		if existing.IsForwardDecl && !existing.IsDefined && sym.IsDefined {
			group.Overloads[i] = sym
			return nil
		}
	}
	group.Overloads = append(group.Overloads, sym)
	return nil
}

func (st *DefaultSymbolTable) FindFunction(qualifiedName string) (*domain.MethodGroup, bool) {
	g, ok := st.functions[qualifiedName]
	return g, ok
}

// OutstandingForwardDeclarations lists every class or function qualified
// name still marked forward-declared-but-undefined at the point called,
// per §4.4/§7's forward-declaration-error check.
func (st *DefaultSymbolTable) OutstandingForwardDeclarations() []string {
	var out []string
	for _, name := range st.classOrder {
		if c := st.classes[name]; c.IsForwardDecl && !c.IsDefined {
			out = append(out, name)
		}
	}
	for _, name := range st.functionOrder {
		for _, fn := range st.functions[name].Overloads {
			if fn.IsForwardDecl && !fn.IsDefined {
				out = append(out, fn.QualifiedName)
			}
		}
	}
	return out
}

func (st *DefaultSymbolTable) HasUnresolvedForwardDeclarations() bool {
	return len(st.OutstandingForwardDeclarations()) > 0
}

func (st *DefaultSymbolTable) Reset() {
	st.globalScope = domain.NewScope(0, nil, "global")
	st.currentScope = st.globalScope
	st.nextLevel = 0
	st.classes = make(map[string]*domain.TypeSymbol)
	st.classOrder = nil
	st.functions = make(map[string]*domain.MethodGroup)
	st.functionOrder = nil
}

var _ interfaces.SymbolTable = (*DefaultSymbolTable)(nil)

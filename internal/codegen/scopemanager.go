// Package codegen implements the three-pass text-IR emission of §4.6 and
// the scope manager of §4.7 that makes its ARC insertions exit-path-safe.
package codegen

import "github.com/emberlang/ember/internal/domain"

// ScopeKind distinguishes a scope manager frame's unwind behavior:
// a Loop frame is break/continue's boundary, a Function frame is
// return's boundary.
type ScopeKind int

const (
	ScopeFunction ScopeKind = iota
	ScopeBlock
	ScopeLoop
)

// ARCRegistration is one local the scope manager owes a release to on
// every exit path out of the frame that registered it.
type ARCRegistration struct {
	Alloca string
	Class  *domain.TypeSymbol
	Name   string
}

type scopeFrame struct {
	kind          ScopeKind
	name          string
	registrations []ARCRegistration
}

// ScopeManager is the stack of {kind, name, arc_registrations} frames of
// §4.7, grounded on the teacher's block-scoped symbol-table stack but
// carrying ARC bookkeeping instead of symbols (symbol resolution itself
// lives in internal/semantic; this stack exists purely to know what to
// release, and when).
type ScopeManager struct {
	stack []*scopeFrame
}

func NewScopeManager() *ScopeManager { return &ScopeManager{} }

func (sm *ScopeManager) Push(kind ScopeKind, name string) {
	sm.stack = append(sm.stack, &scopeFrame{kind: kind, name: name})
}

// Register records a stack slot holding a class-typed value that owns a
// reference and must be released on every path out of the current frame.
func (sm *ScopeManager) Register(alloca string, class *domain.TypeSymbol, name string) {
	if len(sm.stack) == 0 {
		return
	}
	top := sm.stack[len(sm.stack)-1]
	top.registrations = append(top.registrations, ARCRegistration{Alloca: alloca, Class: class, Name: name})
}

// Pop removes and returns the current frame's registrations, for a normal
// (non-early) scope exit: pop_scope in §4.7.
func (sm *ScopeManager) Pop() []ARCRegistration {
	if len(sm.stack) == 0 {
		return nil
	}
	top := sm.stack[len(sm.stack)-1]
	sm.stack = sm.stack[:len(sm.stack)-1]
	return top.registrations
}

// ReleasesForReturn lists every registration from the innermost frame out
// to (and including) the enclosing function frame, for cleanup_current_
// scope_early ahead of a `return`.
func (sm *ScopeManager) ReleasesForReturn() []ARCRegistration {
	var out []ARCRegistration
	for i := len(sm.stack) - 1; i >= 0; i-- {
		out = append(out, sm.stack[i].registrations...)
		if sm.stack[i].kind == ScopeFunction {
			break
		}
	}
	return out
}

// ReleasesForBreak lists registrations out to and including the nearest
// enclosing loop frame, since `break` exits the loop itself.
func (sm *ScopeManager) ReleasesForBreak() []ARCRegistration {
	var out []ARCRegistration
	for i := len(sm.stack) - 1; i >= 0; i-- {
		out = append(out, sm.stack[i].registrations...)
		if sm.stack[i].kind == ScopeLoop {
			break
		}
	}
	return out
}

// ReleasesForContinue lists registrations out to but excluding the
// nearest enclosing loop frame, since `continue` re-enters the loop body
// rather than leaving the loop's own scope.
func (sm *ScopeManager) ReleasesForContinue() []ARCRegistration {
	var out []ARCRegistration
	for i := len(sm.stack) - 1; i >= 0; i-- {
		if sm.stack[i].kind == ScopeLoop {
			break
		}
		out = append(out, sm.stack[i].registrations...)
	}
	return out
}

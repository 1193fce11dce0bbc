// Package frame implements the two-pass local-variable stack allocator
// (§4.1) and the runtime local-variable frame/subframe stack it targets
// (§3). Grounded on the teacher's util.Stack (util/stack.go, a linked-list
// scope-chain stack used by ir/validate.go's GetEntry) generalized into a
// dense integer-indexed slot vector per spec.md §9's design note, and on
// ir/optimise.go's two-pass walk-and-annotate shape.
package frame

import (
	"fmt"

	"github.com/ichobits/miller/internal/dsl/ast"
	"github.com/pkg/errors"
)

// declScope maps a name to its frame-relative slot and declared type mask
// within one lexical block.
type declScope map[string]decl

type decl struct {
	slot int
	mask ast.TypeMask
}

// Allocator performs the two-pass stack allocation described in §4.1. One
// Allocator is used per top-level block (begin/main/end/func/subr body); its
// next-slot counter and scope chain are fresh for each.
type Allocator struct {
	scopes []declScope
	next   int
	maxVar int
}

// NewAllocator returns an allocator ready to walk one top-level block.
func NewAllocator() *Allocator {
	return &Allocator{scopes: []declScope{make(declScope)}}
}

// AllocateProgram runs the stack-allocate pass over every top-level block
// in prog (a Program node whose children are BeginBlock/MainBlock/EndBlock/
// FuncDef/SubrDef nodes), annotating every name node with FrameIndex and
// every block node with SubframeVarCount, and every top-level block with
// MaxVarDepth. Returns the first error encountered (redeclaration, use of
// an undeclared name).
func AllocateProgram(prog *ast.Node) error {
	for _, top := range prog.Children {
		if !top.IsTopLevelBlock() {
			continue
		}
		a := NewAllocator()
		if err := a.walkTopLevel(top); err != nil {
			return err
		}
		top.MaxVarDepth = a.maxVar
	}
	return nil
}

// walkTopLevel walks one top-level block: function/subroutine parameters
// are declared in the block's outermost scope before the body is walked, so
// that the body can reference them immediately (§4.1).
func (a *Allocator) walkTopLevel(top *ast.Node) error {
	if top.Kind == ast.FuncDef || top.Kind == ast.SubrDef {
		for _, c := range top.Children {
			if c.Kind == ast.ParamList {
				for _, p := range c.Children {
					if p.Kind == ast.Param {
						if err := a.declare(p); err != nil {
							return err
						}
					}
				}
			}
		}
	}
	for _, c := range top.Children {
		if c.Kind == ast.ParamList {
			continue // already handled above
		}
		if err := a.walk(c); err != nil {
			return err
		}
	}
	top.SubframeVarCount = len(a.scopes[len(a.scopes)-1])
	return nil
}

// walk recursively annotates n and its subtree, pushing/popping lexical
// scopes on every node kind for which Node.IsBlock reports true.
func (a *Allocator) walk(n *ast.Node) error {
	if n == nil {
		return nil
	}

	switch {
	case n.IsBlock():
		a.pushScope()
		for _, c := range n.Children {
			if err := a.walk(c); err != nil {
				return err
			}
		}
		n.SubframeVarCount = a.popScope()
		return nil
	case n.Kind == ast.LocalVarDecl:
		return a.declare(n)
	case n.Kind == ast.Identifier:
		return a.resolveUse(n)
	default:
		for _, c := range n.Children {
			if err := a.walk(c); err != nil {
				return err
			}
		}
		return nil
	}
}

// pushScope enters a new lexical block (§3's subframe-entry bookkeeping).
func (a *Allocator) pushScope() {
	a.scopes = append(a.scopes, make(declScope))
}

// popScope exits a lexical block, returning the number of names declared
// directly in it (the block's own SubframeVarCount). Slots a nested block
// declares are already counted in that nested block's own SubframeVarCount,
// so this must not also fold them into the parent's count — each block's
// Bump at runtime only needs to cover its own directly-declared slots,
// keeping nested subframe counts disjoint (§3 subframe-exit semantics).
func (a *Allocator) popScope() int {
	s := a.scopes[len(a.scopes)-1]
	a.scopes = a.scopes[:len(a.scopes)-1]
	return len(s)
}

// declare assigns the next slot to a declaring node (typed var form, loop
// bound name, function parameter), registering it in the innermost scope.
// Redeclaration within the same scope is an error.
func (a *Allocator) declare(n *ast.Node) error {
	top := a.scopes[len(a.scopes)-1]
	if _, exists := top[n.Token]; exists {
		return errors.Errorf("redeclaration of %q at line %d:%d", n.Token, n.Line, n.Col)
	}
	slot := a.next
	a.next++
	if a.next > a.maxVar {
		a.maxVar = a.next
	}
	top[n.Token] = decl{slot: slot, mask: n.DeclMask}
	n.FrameIndex = slot
	return nil
}

// resolveUse looks up a name-use node in the scope chain from innermost out,
// binding it to the owning declaration's slot. Resolution failure is an
// error (§4.1, and §7's "unresolved name" static build error).
func (a *Allocator) resolveUse(n *ast.Node) error {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if d, ok := a.scopes[i][n.Token]; ok {
			n.FrameIndex = d.slot
			n.DeclMask = d.mask
			return nil
		}
	}
	return errors.Errorf("use of undeclared identifier %q at line %d:%d", n.Token, n.Line, n.Col)
}

// String summarizes the allocator's state (scope depth, next slot, peak
// slot count) for debugging. Nothing in internal/cst calls it, and
// Options.TraceStackAllocation is not read anywhere.
func (a *Allocator) String() string {
	return fmt.Sprintf("allocator{scopes=%d next=%d maxVar=%d}", len(a.scopes), a.next, a.maxVar)
}

// Package rval declares the contract for the external rval-expression
// evaluator library (spec.md §6): an opaque collaborator the CST builder
// delegates scalar right-hand-side sub-expression construction to. Nothing
// in this package evaluates expressions; it exists purely so
// internal/cst can hold and invoke evaluators without knowing how they work.
package rval

import (
	"github.com/ichobits/miller/internal/dsl/ast"
	"github.com/ichobits/miller/internal/mlrval"
	"github.com/ichobits/miller/internal/runtime"
)

// TypeInferencing selects how the expression library infers types for
// otherwise-untyped literals and srec field reads (§4.2).
type TypeInferencing int

const (
	PassThroughStrings TypeInferencing = iota
	InferInt
	InferIntOrFloat
)

// ContextFlags is threaded by the CST builder through translation (§4.2),
// recording which contextual rules currently apply.
type ContextFlags uint

const (
	InBeginOrEnd ContextFlags = 1 << iota
	InFuncDef
	InSubrDef
	InBreakable
	InMlrFilter
)

// Has reports whether every bit in want is set in f.
func (f ContextFlags) Has(want ContextFlags) bool { return f&want == want }

// Evaluator is the single external interface a built expression exposes:
// process it against the live variables bag to get a scalar result, and
// free it when the owning CST statement is destroyed (§5's resource-release
// model). Evaluator takes the concrete *runtime.Vars, not a restricted
// view, because a function-call expression's Invoke callback (below) must
// be able to push/pop call frames on the same shared frame stack and
// observe/clear the same return-flag the rest of the CST uses.
type Evaluator interface {
	Process(vars *runtime.Vars) mlrval.Mlrval
	Free()
}

// FunctionManager resolves built-in and user-defined functions by name and
// arity during rval-evaluator construction (§6), and is the registry the
// CST builder publishes its own UDFs into once their bodies are built
// (§4.3.6): a function-call expression embedded in an rval tree is resolved
// and invoked entirely through this interface, which is why FunctionManager
// is opaque here rather than a concrete type — it may be backed by a
// built-in library, user definitions, or both.
type FunctionManager interface {
	Lookup(name string, arity int) (Function, bool)
	Register(name string, fn Function)
}

// Function is a resolved function/subroutine handle. Arity and IsSubroutine
// are the facts the CST builder needs at call-site bind time (§4.2's
// two-phase subroutine linking; arity mismatch is fatal there). Invoke is
// the actual call/return mechanic (§4.3.6: push the callee's frame, run its
// body, pop the frame, consume the return value) — for built-in functions
// it is supplied by the function-manager implementation; for user-defined
// functions it is supplied by internal/cst when the function's body is
// built, then registered back into the FunctionManager.
type Function struct {
	Name         string
	Arity        int
	IsSubroutine bool
	Invoke       func(vars *runtime.Vars, args []mlrval.Mlrval) mlrval.Mlrval
}

// Builder constructs an Evaluator from an expression AST node. from_ast in
// spec.md §6.
type Builder func(node *ast.Node, fmgr FunctionManager, ti TypeInferencing, flags ContextFlags) (Evaluator, error)

// StringBuilder constructs an Evaluator for a literal string key. from_string
// in spec.md §6 (used for map-literal keys and other contexts where the
// grammar already guarantees a string constant, so no general expression
// construction is needed).
type StringBuilder func(text string) Evaluator

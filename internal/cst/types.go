// Package cst implements the concrete semantic tree builder and its
// tree-walking interpreter (spec.md §4): the translator from AST (already
// annotated by internal/frame's stack-allocate pass) to an executable
// Statement tree, plus the executor that runs that tree against a
// runtime.Vars bag once per begin block, once per record, once per end
// block.
//
// Grounded on the teacher's validate.go dispatch-by-NodeType shape
// (ir/validate.go's validate/validateExpr/validateRel), generalized from a
// validate-only pass into a build-a-handler pass, and on design note §9's
// suggestion to "re-express each statement as a variant of a sum type; the
// executor dispatches by match" — realized in Go as a Statement interface
// with one concrete type per AST statement kind, the idiomatic stand-in for
// a closed sum type.
package cst

import (
	"github.com/ichobits/miller/internal/dsl/ast"
	"github.com/ichobits/miller/internal/mlhmmv"
	"github.com/ichobits/miller/internal/runtime"
	"github.com/ichobits/miller/internal/writer"
)

// Statement is one executable unit of the CST. Concrete types (srecAssignStmt,
// ifStmt, forMapKVStmt, callStmt, emitStmt, ...) each hold whatever state
// their handler needs: evaluators, slot indices, child blocks (spec.md §4.2,
// "The statement's state payload holds whatever the handler needs").
type Statement interface {
	Exec(vars *runtime.Vars, out *Outputs)
	Free()
}

// Block is a statement-block executor (§4.4). Two variants, selected by
// LoopAware: plain stops only on return; loop-aware also stops on any
// loop-flag bit. This is "the one micro-optimization retained from the
// source" per spec.md §4.3 — here it is a bool field on Block rather than a
// second function pointer type, per design note §9 ("becomes a flag on the
// block variant rather than a function pointer").
type Block struct {
	Stmts            []Statement
	LoopAware        bool
	SubframeVarCount int // slots this block's own scope declares (0 for many)
	node             *ast.Node
}

// Exec runs b's statements in source order (§5, "Ordering: statement
// execution is sequential, preserving source order").
func (b *Block) Exec(vars *runtime.Vars, out *Outputs) {
	for _, s := range b.Stmts {
		if vars.Trace {
			traceStatement(vars, s)
		}
		s.Exec(vars, out)
		if vars.ReturnSet() {
			return
		}
		if b.LoopAware && vars.LoopSignaled() {
			return
		}
	}
}

// Free releases every statement this block owns, walking bottom-up so every
// owned evaluator and child block is freed exactly once (§5).
func (b *Block) Free() {
	for _, s := range b.Stmts {
		s.Free()
	}
}

// Outputs is the record driver's per-invocation collaborator (§6,
// "cst_outputs"): the settable final-filter flag, the sink list emit/tee
// append to, the oosvar-flatten separator, and the writer sinks.
type Outputs struct {
	ShouldEmitRec bool
	OutRecs       []*runtime.Srec
	FlattenSep    string
	Sinks         *writer.Sinks
}

// NewOutputs returns an Outputs ready for one record invocation.
// ShouldEmitRec defaults true: the record passes the final filter unless a
// filter statement clears it.
func NewOutputs(sinks *writer.Sinks, flattenSep string) *Outputs {
	return &Outputs{ShouldEmitRec: true, Sinks: sinks, FlattenSep: flattenSep}
}

// Emit appends rec to the sink list (§4.3.5).
func (o *Outputs) Emit(rec *runtime.Srec) { o.OutRecs = append(o.OutRecs, rec) }

// oosvarRootOf returns the oosvar root held in vars.Oosvar. The statement
// handlers read vars.Oosvar directly and do not call it.
func oosvarRootOf(vars *runtime.Vars) *mlhmmv.Node { return vars.Oosvar }

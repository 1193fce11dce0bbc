package cst

import (
	"testing"

	"github.com/ichobits/miller/internal/dsl/ast"
	"github.com/ichobits/miller/internal/frame"
	"github.com/ichobits/miller/internal/mlrval"
	"github.com/ichobits/miller/internal/rval"
	"github.com/ichobits/miller/internal/runtime"
)

// setLocalStmt is a test-only Statement standing in for a local assignment:
// it stores a fixed value into a frame slot, giving the callee's body a
// statement to run before its return statement.
type setLocalStmt struct {
	slot int
	v    mlrval.Mlrval
}

func (s *setLocalStmt) Exec(vars *runtime.Vars, out *Outputs) { vars.Frames.Top().Set(s.slot, s.v) }
func (s *setLocalStmt) Free()                                  {}

// TestFuncUnitInvokeReturnsValue mirrors spec.md's UDF call/return scenario:
// a function body that runs a statement then returns a value yields that
// value to the caller, and the return flag is clear again once invoke is
// done so the caller's own statements keep executing normally.
func TestFuncUnitInvokeReturnsValue(t *testing.T) {
	const paramSlot, scratchSlot = 0, 1
	body := &Block{
		Stmts: []Statement{
			&setLocalStmt{slot: scratchSlot, v: mlrval.FromInt(99)},
			&returnStmt{val: lit(mlrval.FromInt(42))},
		},
		SubframeVarCount: 2,
	}
	unit := &funcUnit{
		name:       "double",
		arity:      1,
		paramMasks: []ast.TypeMask{ast.MaskInt},
		frameSize:  2,
		frameMasks: []ast.TypeMask{ast.MaskInt, ast.MaskAny},
		body:       body,
	}

	callerVars := runtime.NewVars()
	callerFrame := frame.NewFrame(1, nil)
	callerVars.Frames.Push(callerFrame)

	ret := unit.invoke(callerVars, NewOutputs(nil, ":"), []mlrval.Mlrval{mlrval.FromInt(21)})

	if i, ok := ret.Int(); !ok || i != 42 {
		t.Fatalf("invoke return value: got %v, want 42", ret)
	}
	if callerVars.ReturnSet() {
		t.Errorf("return flag still set after invoke returned")
	}
	if depth := callerVars.Frames.Depth(); depth != 1 {
		t.Errorf("frame stack depth after invoke: got %d, want 1 (callee frame popped)", depth)
	}
	if callerVars.Frames.Top() != callerFrame {
		t.Errorf("invoke left the wrong frame on top of the stack")
	}
}

// TestFuncUnitInvokeNoReturnYieldsAbsent covers §4.3.6's "a UDF whose body
// never reaches a return statement yields absent".
func TestFuncUnitInvokeNoReturnYieldsAbsent(t *testing.T) {
	unit := &funcUnit{
		name:      "noop",
		arity:     0,
		frameSize: 1,
		body:      &Block{},
	}
	vars := runtime.NewVars()
	vars.Frames.Push(frame.NewFrame(1, nil))

	ret := unit.invoke(vars, NewOutputs(nil, ":"), nil)
	if !ret.IsAbsent() {
		t.Errorf("got %v, want absent", ret)
	}
}

// TestCallStmtExecInvokesTargetSubroutine exercises callStmt end to end,
// including the deferred-link-style wiring (target set directly here,
// standing in for linkDeferredCalls).
func TestCallStmtExecInvokesTargetSubroutine(t *testing.T) {
	var gotArg mlrval.Mlrval
	body := &Block{
		Stmts: []Statement{&captureArgStmt{slot: 0, dst: &gotArg}},
	}
	unit := &funcUnit{name: "log_it", arity: 1, isSubr: true, frameSize: 1, body: body}

	stmt := &callStmt{
		name:     "log_it",
		argExprs: []rval.Evaluator{lit(mlrval.FromString("hello"))},
		target:   unit,
	}

	vars := runtime.NewVars()
	vars.Frames.Push(frame.NewFrame(1, nil))
	stmt.Exec(vars, NewOutputs(nil, ":"))

	if s, ok := gotArg.RawString(); !ok || s != "hello" {
		t.Fatalf("callee saw arg %v, want string %q", gotArg, "hello")
	}
	stmt.Free()
}

type captureArgStmt struct {
	slot int
	dst  *mlrval.Mlrval
}

func (s *captureArgStmt) Exec(vars *runtime.Vars, out *Outputs) { *s.dst = vars.Frames.Top().Get(s.slot) }
func (s *captureArgStmt) Free()                                  {}

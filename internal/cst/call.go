package cst

import (
	"github.com/ichobits/miller/internal/diag"
	"github.com/ichobits/miller/internal/dsl/ast"
	"github.com/ichobits/miller/internal/frame"
	"github.com/ichobits/miller/internal/mlrval"
	"github.com/ichobits/miller/internal/rval"
	"github.com/ichobits/miller/internal/runtime"
)

// funcUnit is one built user-defined function or subroutine body (§4.3.6):
// its parameter masks (enforced the same way a declared local's mask is),
// its own frame size/masks, and its body Block. A funcUnit never appears on
// vars.Frames by itself — invoke pushes and pops its own fresh Frame per
// call, so recursion is just repeated invocation against distinct Frame
// values.
type funcUnit struct {
	name         string
	arity        int
	isSubr       bool
	paramMasks   []ast.TypeMask
	frameSize    int
	frameMasks   []ast.TypeMask
	body         *Block
}

// invoke runs one call: a fresh Frame sized for this unit's own locals, args
// bound into slots 0..arity-1, the body executed, and the stashed return
// value handed back (absent for a subroutine, or if the body fell off the
// end without a return statement — §4.3.6, "a UDF whose body never reaches
// a return statement yields absent").
func (u *funcUnit) invoke(callerVars *runtime.Vars, out *Outputs, args []mlrval.Mlrval) mlrval.Mlrval {
	fr := frame.NewFrame(u.frameSize, u.frameMasks)
	callerVars.Frames.Push(fr)
	fr.EnterSubframe()
	fr.Bump(u.body.SubframeVarCount)

	for i := 0; i < u.arity && i < len(args); i++ {
		if err := fr.Set(i, args[i]); err != nil {
			fr.Set(i, mlrval.Error(mlrval.ErrTypeMismatch, err.Error()))
		}
	}

	callerVars.ClearReturn()
	u.body.Exec(callerVars, out)
	ret := callerVars.ReturnValue()
	callerVars.ClearReturn()

	fr.ExitSubframe()
	callerVars.Frames.Pop()
	return ret
}

// callStmt is a subroutine call-site statement, "call name(args)" (§4.3.6).
// target is nil until linkDeferredCalls resolves it in the build's second
// pass (§4.2).
type callStmt struct {
	name     string
	argExprs []rval.Evaluator
	target   *funcUnit
}

// buildCallStatement registers the call-site for deferred linking; the name
// is resolved, and arity checked, only once every SubrDef in the program has
// been built (§4.2's two-phase subroutine linking, since a subroutine may be
// defined after the point it is called from).
func (bc *buildCtx) buildCallStatement(n *ast.Node) (Statement, error) {
	if bc.flags.Has(rval.InFuncDef) {
		return nil, diag.New(diag.RuleR2WriteInFuncDef, "call "+n.Token, loc(n))
	}
	argExprs := make([]rval.Evaluator, 0, len(n.Children))
	for _, c := range n.Children {
		ev, err := bc.buildExpr(c)
		if err != nil {
			return nil, err
		}
		argExprs = append(argExprs, ev)
	}
	stmt := &callStmt{name: n.Token, argExprs: argExprs}
	bc.deferred = append(bc.deferred, &deferredCall{stmt: stmt, loc: loc(n)})
	return stmt, nil
}

func (s *callStmt) Exec(vars *runtime.Vars, out *Outputs) {
	args := make([]mlrval.Mlrval, len(s.argExprs))
	for i, e := range s.argExprs {
		args[i] = e.Process(vars)
	}
	s.target.invoke(vars, out, args)
}

func (s *callStmt) Free() {
	for _, e := range s.argExprs {
		e.Free()
	}
}

package cst

import (
	"github.com/ichobits/miller/internal/diag"
	"github.com/ichobits/miller/internal/dsl/ast"
	"github.com/ichobits/miller/internal/mlrval"
	"github.com/ichobits/miller/internal/rval"
	"github.com/ichobits/miller/internal/runtime"
)

// ifArm is one (cond, body) pair of an if-chain; a nil cond marks the
// trailing else arm (§4.3.2).
type ifArm struct {
	cond rval.Evaluator
	body *Block
}

type ifStmt struct{ arms []ifArm }

// buildIfStatement translates an if/elif/.../else chain. Convention:
// IfArm.Children[0] is the arm's condition expression node, or nil for the
// trailing else arm; IfArm.Children[1:] are the arm's body statements.
func (bc *buildCtx) buildIfStatement(n *ast.Node) (Statement, error) {
	arms := make([]ifArm, 0, len(n.Children))
	for _, armNode := range n.Children {
		var condEv rval.Evaluator
		var err error
		if armNode.Children[0] != nil {
			condEv, err = bc.buildExpr(armNode.Children[0])
			if err != nil {
				return nil, err
			}
		}
		body, err := bc.buildBlock(armNode, armNode.Children[1:], bc.flags.Has(rval.InBreakable))
		if err != nil {
			return nil, err
		}
		arms = append(arms, ifArm{cond: condEv, body: body})
	}
	return &ifStmt{arms: arms}, nil
}

func (s *ifStmt) Exec(vars *runtime.Vars, out *Outputs) {
	f := vars.Frames.Top()
	for _, a := range s.arms {
		run := a.cond == nil
		if !run {
			v := a.cond.Process(vars)
			b, ok := mlrval.IsTruthy(v)
			run = ok && b
		}
		if run {
			f.EnterSubframe()
			f.Bump(a.body.SubframeVarCount)
			a.body.Exec(vars, out)
			f.ExitSubframe()
			return
		}
	}
}

func (s *ifStmt) Free() {
	for _, a := range s.arms {
		if a.cond != nil {
			a.cond.Free()
		}
		a.body.Free()
	}
}

// whileStmt / doWhileStmt: §4.3.2.
type whileStmt struct {
	cond rval.Evaluator
	body *Block
}

func (bc *buildCtx) buildWhileStatement(n *ast.Node) (Statement, error) {
	cond, err := bc.buildExpr(n.Children[0])
	if err != nil {
		return nil, err
	}
	saved := bc.flags
	bc.flags |= rval.InBreakable
	body, err := bc.buildBlock(n, n.Children[1:], true)
	bc.flags = saved
	if err != nil {
		return nil, err
	}
	return &whileStmt{cond: cond, body: body}, nil
}

func (s *whileStmt) Exec(vars *runtime.Vars, out *Outputs) {
	f := vars.Frames.Top()
	f.EnterSubframe()
	f.Bump(s.body.SubframeVarCount)
	vars.PushLoop()
	for {
		v := s.cond.Process(vars)
		b, ok := mlrval.IsTruthy(v)
		if !ok || !b {
			break
		}
		s.body.Exec(vars, out)
		if vars.ReturnSet() || vars.Broken() {
			break
		}
		vars.ClearContinue()
	}
	vars.PopLoop()
	f.ExitSubframe()
}

func (s *whileStmt) Free() {
	s.cond.Free()
	s.body.Free()
}

type doWhileStmt struct {
	cond rval.Evaluator
	body *Block
}

func (bc *buildCtx) buildDoWhileStatement(n *ast.Node) (Statement, error) {
	cond, err := bc.buildExpr(n.Children[0])
	if err != nil {
		return nil, err
	}
	saved := bc.flags
	bc.flags |= rval.InBreakable
	body, err := bc.buildBlock(n, n.Children[1:], true)
	bc.flags = saved
	if err != nil {
		return nil, err
	}
	return &doWhileStmt{cond: cond, body: body}, nil
}

func (s *doWhileStmt) Exec(vars *runtime.Vars, out *Outputs) {
	f := vars.Frames.Top()
	f.EnterSubframe()
	f.Bump(s.body.SubframeVarCount)
	vars.PushLoop()
	for {
		s.body.Exec(vars, out)
		if vars.ReturnSet() || vars.Broken() {
			break
		}
		vars.ClearContinue()
		v := s.cond.Process(vars)
		b, ok := mlrval.IsTruthy(v)
		if !ok || !b {
			break
		}
	}
	vars.PopLoop()
	f.ExitSubframe()
}

func (s *doWhileStmt) Free() {
	s.cond.Free()
	s.body.Free()
}

// tripleForStmt is "for (init; cond; update) { body }" (§4.3.2). init and
// update are themselves Statements (often a localAssignStmt); either may be
// nil.
type tripleForStmt struct {
	init   Statement
	cond   rval.Evaluator
	update Statement
	body   *Block
}

func (bc *buildCtx) buildTripleForStatement(n *ast.Node) (Statement, error) {
	var initNode, condNode, updateNode *ast.Node
	rest := n.Children
	if len(rest) > 0 {
		initNode, rest = rest[0], rest[1:]
	}
	if len(rest) > 0 {
		condNode, rest = rest[0], rest[1:]
	}
	if len(rest) > 0 {
		updateNode, rest = rest[0], rest[1:]
	}
	bodyNodes := rest

	var init, update Statement
	var err error
	if initNode != nil {
		init, err = bc.buildStatement(initNode)
		if err != nil {
			return nil, err
		}
	}
	var cond rval.Evaluator
	if condNode != nil {
		cond, err = bc.buildExpr(condNode)
		if err != nil {
			return nil, err
		}
	}
	if updateNode != nil {
		update, err = bc.buildStatement(updateNode)
		if err != nil {
			return nil, err
		}
	}
	saved := bc.flags
	bc.flags |= rval.InBreakable
	body, err := bc.buildBlock(n, bodyNodes, true)
	bc.flags = saved
	if err != nil {
		return nil, err
	}
	return &tripleForStmt{init: init, cond: cond, update: update, body: body}, nil
}

func (s *tripleForStmt) Exec(vars *runtime.Vars, out *Outputs) {
	f := vars.Frames.Top()
	f.EnterSubframe()
	f.Bump(s.body.SubframeVarCount)
	if s.init != nil {
		s.init.Exec(vars, out)
	}
	vars.PushLoop()
	for {
		if s.cond != nil {
			v := s.cond.Process(vars)
			b, ok := mlrval.IsTruthy(v)
			if !ok || !b {
				break
			}
		}
		s.body.Exec(vars, out)
		if vars.ReturnSet() || vars.Broken() {
			break
		}
		vars.ClearContinue()
		if s.update != nil {
			s.update.Exec(vars, out)
		}
	}
	vars.PopLoop()
	f.ExitSubframe()
}

func (s *tripleForStmt) Free() {
	if s.init != nil {
		s.init.Free()
	}
	if s.cond != nil {
		s.cond.Free()
	}
	if s.update != nil {
		s.update.Free()
	}
	s.body.Free()
}

// condBlockStmt is "expr { body }" (§4.3.2): a non-looping conditional
// block, e.g. a bare guard clause.
type condBlockStmt struct {
	cond rval.Evaluator
	body *Block
}

func (bc *buildCtx) buildCondBlockStatement(n *ast.Node) (Statement, error) {
	cond, err := bc.buildExpr(n.Children[0])
	if err != nil {
		return nil, err
	}
	body, err := bc.buildBlock(n, n.Children[1:], bc.flags.Has(rval.InBreakable))
	if err != nil {
		return nil, err
	}
	return &condBlockStmt{cond: cond, body: body}, nil
}

func (s *condBlockStmt) Exec(vars *runtime.Vars, out *Outputs) {
	v := s.cond.Process(vars)
	b, ok := mlrval.IsTruthy(v)
	if !ok || !b {
		return
	}
	f := vars.Frames.Top()
	f.EnterSubframe()
	f.Bump(s.body.SubframeVarCount)
	s.body.Exec(vars, out)
	f.ExitSubframe()
}

func (s *condBlockStmt) Free() {
	s.cond.Free()
	s.body.Free()
}

// filterStmt is the `filter expr` keyword-statement (§4.3.5, R6: forbidden
// inside filter-mode scripts).
type filterStmt struct{ expr rval.Evaluator }

func (bc *buildCtx) buildFilterStatement(n *ast.Node) (Statement, error) {
	if bc.flags.Has(rval.InMlrFilter) {
		return nil, diag.New(diag.RuleR6FilterKeyword, "filter", loc(n))
	}
	expr, err := bc.buildExpr(n.Children[0])
	if err != nil {
		return nil, err
	}
	return &filterStmt{expr: expr}, nil
}

func (s *filterStmt) Exec(vars *runtime.Vars, out *Outputs) {
	v := s.expr.Process(vars)
	if b, ok := mlrval.IsTruthy(v); ok {
		out.ShouldEmitRec = b
	}
}

func (s *filterStmt) Free() { s.expr.Free() }

// bareBooleanStmt is a filter-mode script's final bare-boolean statement
// (§4.2 R7).
type bareBooleanStmt struct{ expr rval.Evaluator }

func (bc *buildCtx) buildBareBooleanStatement(n *ast.Node) (Statement, error) {
	expr, err := bc.buildExpr(n.Children[0])
	if err != nil {
		return nil, err
	}
	return &bareBooleanStmt{expr: expr}, nil
}

func (s *bareBooleanStmt) Exec(vars *runtime.Vars, out *Outputs) {
	v := s.expr.Process(vars)
	if b, ok := mlrval.IsTruthy(v); ok {
		out.ShouldEmitRec = b
	}
}

func (s *bareBooleanStmt) Free() { s.expr.Free() }

type breakStmt struct{}

func (s *breakStmt) Exec(vars *runtime.Vars, out *Outputs) { vars.SetBreak() }
func (s *breakStmt) Free()                                 {}

type continueStmt struct{}

func (s *continueStmt) Exec(vars *runtime.Vars, out *Outputs) { vars.SetContinue() }
func (s *continueStmt) Free()                                 {}

// returnStmt is void "return" (subroutine, R4) or "return expr" (UDF, R4)
// (§4.3.6).
type returnStmt struct{ val rval.Evaluator }

func (bc *buildCtx) buildReturnStatement(n *ast.Node) (Statement, error) {
	hasVal := len(n.Children) > 0
	if hasVal && !bc.flags.Has(rval.InFuncDef) {
		return nil, diag.New(diag.RuleR4ReturnShape, "return <value>", loc(n))
	}
	if !hasVal && !bc.flags.Has(rval.InSubrDef) {
		return nil, diag.New(diag.RuleR4ReturnShape, "return", loc(n))
	}
	if !hasVal {
		return &returnStmt{}, nil
	}
	val, err := bc.buildExpr(n.Children[0])
	if err != nil {
		return nil, err
	}
	return &returnStmt{val: val}, nil
}

func (s *returnStmt) Exec(vars *runtime.Vars, out *Outputs) {
	if s.val == nil {
		vars.SetReturn(mlrval.Absent())
		return
	}
	vars.SetReturn(s.val.Process(vars))
}

func (s *returnStmt) Free() {
	if s.val != nil {
		s.val.Free()
	}
}

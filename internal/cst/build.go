// Node-shape conventions consumed from the (out-of-scope) parser, since no
// concrete parser exists in this core: see the "Convention:" comments on the
// per-Kind build functions that buildStatement dispatches to for the exact
// Children layout each AST Kind is expected to carry. These mirror spec.md §4's statement descriptions,
// generalized into a fixed contract between parser and builder the way
// ir/validate.go's validate dispatch assumes a fixed Node shape per
// ir.NodeType.
package cst

import (
	"github.com/pkg/errors"

	"github.com/ichobits/miller/internal/diag"
	"github.com/ichobits/miller/internal/dsl/ast"
	"github.com/ichobits/miller/internal/frame"
	"github.com/ichobits/miller/internal/mlrval"
	"github.com/ichobits/miller/internal/rval"
	"github.com/ichobits/miller/internal/runtime"
)

// CST is the built concrete semantic tree (§6's "cst"): the begin/main/end
// groups, each paired with its own long-lived frame, ready to execute.
type CST struct {
	begin, main, end                *Block
	beginFrame, mainFrame, endFrame  *frame.Frame

	negateFinalFilter bool
	doFinalFilter     bool
}

// Alloc builds a CST from prog, already-stack-allocated or not (Alloc runs
// the stack-allocate pass itself, per spec §6's cst_alloc signature).
func Alloc(prog *ast.Node, coll Collaborators, opt Options) (*CST, error) {
	SetTraceLogger(opt.logger())

	var allocErr error
	if opt.Threads > 1 {
		allocErr = frame.AllocateProgramParallel(prog, opt.Threads)
	} else {
		allocErr = frame.AllocateProgram(prog)
	}
	if allocErr != nil {
		return nil, errors.Wrap(allocErr, "stack allocation")
	}
	if opt.PrintAST {
		opt.logger().Debug(prog.Print(0))
	}

	bc := newBuildCtx(coll, opt)

	// Build func/subr bodies first so their Invoke callbacks (UDFs) and
	// subr units (for call-site linking) exist before begin/main/end are
	// translated; subroutine call-sites are linked only after every group
	// is built (linkDeferredCalls) — keeps build order independent of
	// source order, matching "top-level definitions
	// may appear in any order" (implicit in §4.2's two-phase linking).
	var beginTop, mainTop, endTop *ast.Node
	for _, top := range prog.Children {
		switch top.Kind {
		case ast.FuncDef, ast.SubrDef:
			if err := bc.buildFuncUnit(top); err != nil {
				return nil, err
			}
		case ast.BeginBlock:
			beginTop = top
		case ast.MainBlock:
			mainTop = top
		case ast.EndBlock:
			endTop = top
		}
	}

	cst := &CST{
		doFinalFilter:     opt.DoFinalFilter,
		negateFinalFilter: opt.NegateFinalFilter,
	}

	if beginTop != nil {
		blk, fr, err := bc.buildTopLevelGroup(beginTop, rval.InBeginOrEnd)
		if err != nil {
			return nil, err
		}
		cst.begin, cst.beginFrame = blk, fr
	}
	if mainTop != nil {
		flags := rval.ContextFlags(0)
		if opt.DoFinalFilter {
			flags |= rval.InMlrFilter
		}
		if err := bc.checkFilterShape(mainTop, opt.DoFinalFilter); err != nil {
			return nil, err
		}
		blk, fr, err := bc.buildTopLevelGroup(mainTop, flags)
		if err != nil {
			return nil, err
		}
		cst.main, cst.mainFrame = blk, fr
	}
	if endTop != nil {
		blk, fr, err := bc.buildTopLevelGroup(endTop, rval.InBeginOrEnd)
		if err != nil {
			return nil, err
		}
		cst.end, cst.endFrame = blk, fr
	}

	if err := bc.linkDeferredCalls(); err != nil {
		return nil, err
	}

	return cst, nil
}

// ExecuteBegin runs the begin group once, at stream start (§4.3).
func (c *CST) ExecuteBegin(vars *runtime.Vars, out *Outputs) { c.runGroup(c.begin, c.beginFrame, vars, out) }

// ExecuteMain runs the main group once per input record. If this CST was
// built for filter mode, out.ShouldEmitRec is negated afterward when
// Options.NegateFinalFilter was set at build time (§6).
func (c *CST) ExecuteMain(vars *runtime.Vars, out *Outputs) {
	c.runGroup(c.main, c.mainFrame, vars, out)
	if c.doFinalFilter && c.negateFinalFilter {
		out.ShouldEmitRec = !out.ShouldEmitRec
	}
}

// ExecuteEnd runs the end group once, after end-of-stream (§4.3).
func (c *CST) ExecuteEnd(vars *runtime.Vars, out *Outputs) { c.runGroup(c.end, c.endFrame, vars, out) }

func (c *CST) runGroup(blk *Block, fr *frame.Frame, vars *runtime.Vars, out *Outputs) {
	if blk == nil {
		return
	}
	vars.SetOutputs(out)
	vars.Frames.Push(fr)
	fr.EnterSubframe()
	fr.Bump(blk.SubframeVarCount)
	blk.Exec(vars, out)
	fr.ExitSubframe()
	vars.Frames.Pop()
}

// Free releases every statement this CST owns (§5).
func (c *CST) Free() {
	for _, b := range []*Block{c.begin, c.main, c.end} {
		if b != nil {
			b.Free()
		}
	}
}

// buildCtx carries the per-build translation state: the external
// collaborators, the threaded type-inferencing mode and context flags
// (§4.2), and the two call-site registries (func units consumed by the
// external function manager, subr units resolved in this package).
type buildCtx struct {
	coll  Collaborators
	opt   Options
	ti    rval.TypeInferencing
	flags rval.ContextFlags

	funcs map[string]*funcUnit
	subrs map[string]*funcUnit

	deferred []*deferredCall
}

type deferredCall struct {
	stmt *callStmt
	loc  diag.Location
}

func newBuildCtx(coll Collaborators, opt Options) *buildCtx {
	return &buildCtx{
		coll:  coll,
		opt:   opt,
		ti:    opt.TypeInferencing,
		funcs: make(map[string]*funcUnit),
		subrs: make(map[string]*funcUnit),
	}
}

func loc(n *ast.Node) diag.Location { return diag.Location{Line: n.Line, Col: n.Col} }

// buildTopLevelGroup builds one begin/main/end group: its own frame (sized
// by the allocator's MaxVarDepth) and its body Block (§4.3's "push the
// group's long-lived frame... run its statements... pop frame").
func (bc *buildCtx) buildTopLevelGroup(top *ast.Node, flags rval.ContextFlags) (*Block, *frame.Frame, error) {
	saved := bc.flags
	bc.flags = flags
	defer func() { bc.flags = saved }()

	blk, err := bc.buildBlock(top, top.Children, false)
	if err != nil {
		return nil, nil, err
	}
	fr := frame.NewFrame(top.MaxVarDepth, collectMasks(top))
	return blk, fr, nil
}

// buildFuncUnit translates one FuncDef/SubrDef into a funcUnit, registering
// subroutines in bc.subrs for later call-site linking and functions with
// the external function manager so expression-embedded calls can reach
// them (§4.3.6).
func (bc *buildCtx) buildFuncUnit(top *ast.Node) error {
	isSubr := top.Kind == ast.SubrDef

	saved := bc.flags
	if isSubr {
		bc.flags = rval.InSubrDef
	} else {
		bc.flags = rval.InFuncDef
	}
	defer func() { bc.flags = saved }()

	var paramMasks []ast.TypeMask
	var bodyNodes []*ast.Node
	for _, c := range top.Children {
		if c.Kind == ast.ParamList {
			for _, p := range c.Children {
				paramMasks = append(paramMasks, p.DeclMask)
			}
			continue
		}
		bodyNodes = append(bodyNodes, c)
	}

	body, err := bc.buildBlock(top, bodyNodes, false)
	if err != nil {
		return err
	}

	unit := &funcUnit{
		name:       top.Token,
		arity:      len(paramMasks),
		isSubr:     isSubr,
		paramMasks: paramMasks,
		frameSize:  top.MaxVarDepth,
		frameMasks: collectMasks(top),
		body:       body,
	}

	if isSubr {
		if _, exists := bc.subrs[unit.name]; exists {
			return diag.New(diag.RuleRedeclaration, unit.name, loc(top))
		}
		bc.subrs[unit.name] = unit
	} else {
		bc.funcs[unit.name] = unit
		bc.coll.FunctionManager.Register(unit.name, rval.Function{
			Name:         unit.name,
			Arity:        unit.arity,
			IsSubroutine: false,
			Invoke: func(vars *runtime.Vars, args []mlrval.Mlrval) mlrval.Mlrval {
				out, _ := vars.CurrentOutputs.(*Outputs)
				return unit.invoke(vars, out, args)
			},
		})
	}
	return nil
}

// linkDeferredCalls runs §4.2's second subroutine-linking phase: resolve
// each call-site's name against bc.subrs, arity-checking at bind time.
func (bc *buildCtx) linkDeferredCalls() error {
	for _, dc := range bc.deferred {
		unit, ok := bc.subrs[dc.stmt.name]
		if !ok {
			return diag.New(diag.RuleUnresolvedName, dc.stmt.name, dc.loc)
		}
		if unit.arity != len(dc.stmt.argExprs) {
			return diag.New(diag.RuleArityMismatch, dc.stmt.name, dc.loc)
		}
		dc.stmt.target = unit
	}
	return nil
}

// checkFilterShape enforces R7: in filter mode, the group's final statement
// must be a bare boolean expression.
func (bc *buildCtx) checkFilterShape(mainTop *ast.Node, filterMode bool) error {
	if !filterMode {
		return nil
	}
	n := len(mainTop.Children)
	if n == 0 || mainTop.Children[n-1].Kind != ast.BareBooleanStatement {
		return diag.New(diag.RuleR7FilterShape, "final statement", loc(mainTop))
	}
	return nil
}

// collectMasks walks every declaring node (Param, LocalVarDecl) reachable
// from top and records its TypeMask at its allocated FrameIndex, sized to
// top.MaxVarDepth — the per-slot mask array frame.NewFrame needs.
func collectMasks(top *ast.Node) []ast.TypeMask {
	masks := make([]ast.TypeMask, top.MaxVarDepth)
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		if n == nil {
			return
		}
		if n.IsDeclaring() && n.FrameIndex >= 0 && n.FrameIndex < len(masks) {
			masks[n.FrameIndex] = n.DeclMask
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, c := range top.Children {
		walk(c)
	}
	return masks
}

// buildBlock translates stmtNodes (the statement children of owner, a
// block-shaped AST node) into a Block, reading owner.SubframeVarCount for
// the slot count this lexical scope newly allocates.
func (bc *buildCtx) buildBlock(owner *ast.Node, stmtNodes []*ast.Node, loopAware bool) (*Block, error) {
	stmts := make([]Statement, 0, len(stmtNodes))
	for _, n := range stmtNodes {
		s, err := bc.buildStatement(n)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return &Block{Stmts: stmts, LoopAware: loopAware, SubframeVarCount: owner.SubframeVarCount, node: owner}, nil
}

// buildExpr delegates to the external rval evaluator builder (§6).
func (bc *buildCtx) buildExpr(n *ast.Node) (rval.Evaluator, error) {
	ev, err := bc.coll.Builder(n, bc.coll.FunctionManager, bc.ti, bc.flags)
	if err != nil {
		return nil, diag.Wrap(err, diag.RuleNone, "expression", loc(n))
	}
	return ev, nil
}

// buildKeylist builds one evaluator per child of a KeylistElements node.
func (bc *buildCtx) buildKeylist(n *ast.Node) ([]rval.Evaluator, error) {
	out := make([]rval.Evaluator, 0, len(n.Children))
	for _, c := range n.Children {
		ev, err := bc.buildExpr(c)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// evalKeylist evaluates each element evaluator against vars, in order.
func evalKeylist(vars *runtime.Vars, evs []rval.Evaluator) []mlrval.Mlrval {
	out := make([]mlrval.Mlrval, len(evs))
	for i, ev := range evs {
		out[i] = ev.Process(vars)
	}
	return out
}

// buildStatement dispatches on n.Kind, producing the one CST statement type
// grounded to that AST kind (§4.2: "for each recognized AST node kind there
// is exactly one allocator function").
func (bc *buildCtx) buildStatement(n *ast.Node) (Statement, error) {
	switch n.Kind {
	case ast.FuncDef, ast.SubrDef, ast.BeginBlock, ast.MainBlock, ast.EndBlock, ast.ParamList:
		return nil, diag.New(diag.RuleR5TopLevelOnly, n.Kind.String(), loc(n))

	case ast.SrecAssign:
		return bc.buildSrecAssign(n)
	case ast.SrecIndirectAssign:
		return bc.buildSrecIndirectAssign(n)
	case ast.FullSrecFromOosvarAssign:
		return bc.buildFullSrecFromOosvar(n)
	case ast.FullOosvarFromSrecAssign:
		return bc.buildFullOosvarFromSrec(n)
	case ast.OosvarAssign:
		return bc.buildOosvarAssign(n)
	case ast.LocalAssign, ast.LocalVarDecl:
		return bc.buildLocalAssign(n)
	case ast.EnvAssign:
		return bc.buildEnvAssign(n)

	case ast.IfStatement:
		return bc.buildIfStatement(n)
	case ast.WhileStatement:
		return bc.buildWhileStatement(n)
	case ast.DoWhileStatement:
		return bc.buildDoWhileStatement(n)
	case ast.TripleForStatement:
		return bc.buildTripleForStatement(n)
	case ast.CondBlockStatement:
		return bc.buildCondBlockStatement(n)
	case ast.FilterStatement:
		return bc.buildFilterStatement(n)
	case ast.BareBooleanStatement:
		return bc.buildBareBooleanStatement(n)
	case ast.BreakStatement:
		if !bc.flags.Has(rval.InBreakable) {
			return nil, diag.New(diag.RuleR3BreakOutsideLoop, "break", loc(n))
		}
		return &breakStmt{}, nil
	case ast.ContinueStatement:
		if !bc.flags.Has(rval.InBreakable) {
			return nil, diag.New(diag.RuleR3BreakOutsideLoop, "continue", loc(n))
		}
		return &continueStmt{}, nil
	case ast.ReturnStatement:
		return bc.buildReturnStatement(n)

	case ast.ForSrecStatement:
		return bc.buildForSrecStatement(n)
	case ast.ForOosvarKVStatement:
		return bc.buildForMapKV(n, -1)
	case ast.ForOosvarKStatement:
		return bc.buildForMapK(n, -1)
	case ast.ForLocalKVStatement:
		return bc.buildForLocalMapKV(n)
	case ast.ForLocalKStatement:
		return bc.buildForLocalMapK(n)

	case ast.CallStatement:
		return bc.buildCallStatement(n)

	case ast.EmitStatement:
		return bc.buildEmitStatement(n, false)
	case ast.EmitPStatement:
		return bc.buildEmitStatement(n, true)
	case ast.EmitFStatement:
		return bc.buildEmitFStatement(n)
	case ast.TeeStatement:
		return bc.buildTeeStatement(n)
	case ast.PrintStatement:
		return bc.buildPrintStatement(n, false)
	case ast.PrintNStatement:
		return bc.buildPrintStatement(n, true)
	case ast.DumpStatement:
		return &dumpStmt{}, nil
	case ast.UnsetStatement:
		return bc.buildUnsetStatement(n)
	case ast.UnsetAllStatement:
		return &unsetAllStmt{}, nil

	default:
		return nil, errors.Errorf("cst: no statement builder for %s at %s", n.Kind, loc(n))
	}
}

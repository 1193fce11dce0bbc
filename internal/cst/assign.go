package cst

import (
	"github.com/ichobits/miller/internal/diag"
	"github.com/ichobits/miller/internal/dsl/ast"
	"github.com/ichobits/miller/internal/mlhmmv"
	"github.com/ichobits/miller/internal/mlrval"
	"github.com/ichobits/miller/internal/rval"
	"github.com/ichobits/miller/internal/runtime"
)

// srecAssignStmt handles both $f = e (fieldExpr nil, field fixed) and the
// indirect form $[expr] = e (fieldExpr evaluates the field name at runtime)
// — spec.md §4.3.1.
type srecAssignStmt struct {
	field     string
	fieldExpr rval.Evaluator
	val       rval.Evaluator
}

func (bc *buildCtx) buildSrecAssign(n *ast.Node) (Statement, error) {
	if bc.flags.Has(rval.InBeginOrEnd) {
		return nil, diag.New(diag.RuleR1SrecInBeginEnd, "$"+n.Token, loc(n))
	}
	if bc.flags.Has(rval.InFuncDef) {
		return nil, diag.New(diag.RuleR2WriteInFuncDef, "$"+n.Token, loc(n))
	}
	val, err := bc.buildExpr(n.Children[0])
	if err != nil {
		return nil, err
	}
	return &srecAssignStmt{field: n.Token, val: val}, nil
}

func (bc *buildCtx) buildSrecIndirectAssign(n *ast.Node) (Statement, error) {
	if bc.flags.Has(rval.InBeginOrEnd) {
		return nil, diag.New(diag.RuleR1SrecInBeginEnd, "$[...]", loc(n))
	}
	if bc.flags.Has(rval.InFuncDef) {
		return nil, diag.New(diag.RuleR2WriteInFuncDef, "$[...]", loc(n))
	}
	fieldExpr, err := bc.buildExpr(n.Children[0])
	if err != nil {
		return nil, err
	}
	val, err := bc.buildExpr(n.Children[1])
	if err != nil {
		return nil, err
	}
	return &srecAssignStmt{fieldExpr: fieldExpr, val: val}, nil
}

// Exec stores val's formatted string under the resolved field name. Absent
// is a no-op (§4.3.1: "absent is not written"); error writes the "(error)"
// marker via Mlrval.String.
func (s *srecAssignStmt) Exec(vars *runtime.Vars, out *Outputs) {
	name := s.field
	if s.fieldExpr != nil {
		nv := s.fieldExpr.Process(vars)
		if nv.IsAbsent() || nv.IsError() {
			return
		}
		name = nv.String()
	}
	v := s.val.Process(vars)
	if v.IsAbsent() {
		return
	}
	vars.Rec.Set(name, v.String())
}

func (s *srecAssignStmt) Free() {
	s.val.Free()
	if s.fieldExpr != nil {
		s.fieldExpr.Free()
	}
}

// oosvarAssignStmt is "@keylist = e" (§4.3.1).
type oosvarAssignStmt struct {
	keylist []rval.Evaluator
	val     rval.Evaluator
}

func (bc *buildCtx) buildOosvarAssign(n *ast.Node) (Statement, error) {
	kl, err := bc.buildKeylist(n.Children[0])
	if err != nil {
		return nil, err
	}
	val, err := bc.buildExpr(n.Children[1])
	if err != nil {
		return nil, err
	}
	return &oosvarAssignStmt{keylist: kl, val: val}, nil
}

func (s *oosvarAssignStmt) Exec(vars *runtime.Vars, out *Outputs) {
	kl := evalKeylist(vars, s.keylist)
	if mlhmmv.HasNull(kl) {
		return
	}
	v := s.val.Process(vars)
	if v.IsAbsent() {
		return
	}
	mlhmmv.PutByKeylist(vars.Oosvar, mlhmmv.Keylist(kl), v)
}

func (s *oosvarAssignStmt) Free() {
	s.val.Free()
	for _, e := range s.keylist {
		e.Free()
	}
}

// fullSrecFromOosvarStmt is "$* = @keylist" (§4.3.1).
type fullSrecFromOosvarStmt struct{ keylist []rval.Evaluator }

func (bc *buildCtx) buildFullSrecFromOosvar(n *ast.Node) (Statement, error) {
	if bc.flags.Has(rval.InBeginOrEnd) {
		return nil, diag.New(diag.RuleR1SrecInBeginEnd, "$*", loc(n))
	}
	kl, err := bc.buildKeylist(n.Children[0])
	if err != nil {
		return nil, err
	}
	return &fullSrecFromOosvarStmt{keylist: kl}, nil
}

func (s *fullSrecFromOosvarStmt) Exec(vars *runtime.Vars, out *Outputs) {
	kl := evalKeylist(vars, s.keylist)
	if mlhmmv.HasNull(kl) {
		return
	}
	node, ok := mlhmmv.GetByKeylist(vars.Oosvar, mlhmmv.Keylist(kl))
	if !ok || node.IsTerminal() {
		return
	}
	vars.Rec.Clear()
	keys, children := node.Entries()
	for i, k := range keys {
		if !children[i].IsTerminal() {
			continue
		}
		vars.Rec.Set(k.String(), children[i].LeafValue().String())
	}
}

func (s *fullSrecFromOosvarStmt) Free() {
	for _, e := range s.keylist {
		e.Free()
	}
}

// fullOosvarFromSrecStmt is "@keylist = $*" (§4.3.1).
type fullOosvarFromSrecStmt struct {
	keylist []rval.Evaluator
	tiMode  int
}

func (bc *buildCtx) buildFullOosvarFromSrec(n *ast.Node) (Statement, error) {
	if bc.flags.Has(rval.InBeginOrEnd) {
		return nil, diag.New(diag.RuleR1SrecInBeginEnd, "$*", loc(n))
	}
	kl, err := bc.buildKeylist(n.Children[0])
	if err != nil {
		return nil, err
	}
	return &fullOosvarFromSrecStmt{keylist: kl, tiMode: int(bc.ti)}, nil
}

func (s *fullOosvarFromSrecStmt) Exec(vars *runtime.Vars, out *Outputs) {
	kl := evalKeylist(vars, s.keylist)
	if mlhmmv.HasNull(kl) {
		return
	}
	sub := mlhmmv.NewMap()
	for _, f := range vars.Rec.Fields() {
		sub.Put(mlrval.FromString(f.Name), mlhmmv.Leaf(mlrval.InferFromString(f.Value, s.tiMode)))
	}
	mlhmmv.PutByKeylist(vars.Oosvar, mlhmmv.Keylist(kl), mlrval.FromMap(sub))
}

func (s *fullOosvarFromSrecStmt) Free() {
	for _, e := range s.keylist {
		e.Free()
	}
}

// localAssignStmt covers both the typed-declaration form ("var x = e") and
// plain reassignment of an already-declared local (§4.3.1); the allocator
// has already resolved n's FrameIndex/DeclMask either way.
type localAssignStmt struct {
	slot int
	val  rval.Evaluator
}

func (bc *buildCtx) buildLocalAssign(n *ast.Node) (Statement, error) {
	target := n
	var valNode *ast.Node
	if n.Kind == ast.LocalAssign {
		target = n.Children[0]
		valNode = n.Children[1]
	} else if len(n.Children) > 0 {
		// bare "var x = e" expressed directly as LocalVarDecl with an
		// attached initializer child.
		valNode = n.Children[0]
	}
	if valNode == nil {
		// bare "var x" with no initializer: nothing to execute at runtime,
		// the slot already reads as absent until first assigned.
		return &noopStmt{}, nil
	}
	val, err := bc.buildExpr(valNode)
	if err != nil {
		return nil, err
	}
	return &localAssignStmt{slot: target.FrameIndex, val: val}, nil
}

func (s *localAssignStmt) Exec(vars *runtime.Vars, out *Outputs) {
	v := s.val.Process(vars)
	if v.IsAbsent() {
		return
	}
	f := vars.Frames.Top()
	if err := f.Set(s.slot, v); err != nil {
		f.Set(s.slot, mlrval.Error(mlrval.ErrTypeMismatch, err.Error()))
	}
}

func (s *localAssignStmt) Free() { s.val.Free() }

// envAssignStmt is `ENV["X"] = e` (§4.3.1).
type envAssignStmt struct {
	key rval.Evaluator
	val rval.Evaluator
}

func (bc *buildCtx) buildEnvAssign(n *ast.Node) (Statement, error) {
	key, err := bc.buildExpr(n.Children[0])
	if err != nil {
		return nil, err
	}
	val, err := bc.buildExpr(n.Children[1])
	if err != nil {
		return nil, err
	}
	return &envAssignStmt{key: key, val: val}, nil
}

func (s *envAssignStmt) Exec(vars *runtime.Vars, out *Outputs) {
	k := s.key.Process(vars)
	if k.IsAbsent() || k.IsError() {
		return
	}
	v := s.val.Process(vars)
	if v.IsAbsent() {
		return
	}
	vars.SetEnv(k.String(), v.String())
}

func (s *envAssignStmt) Free() {
	s.key.Free()
	s.val.Free()
}

// noopStmt is used for declaration-only statements with no initializer.
type noopStmt struct{}

func (s *noopStmt) Exec(vars *runtime.Vars, out *Outputs) {}
func (s *noopStmt) Free()                                 {}

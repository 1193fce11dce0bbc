package cst

import (
	"github.com/ichobits/miller/internal/dsl/ast"
	"github.com/ichobits/miller/internal/mlhmmv"
	"github.com/ichobits/miller/internal/mlrval"
	"github.com/ichobits/miller/internal/rval"
	"github.com/ichobits/miller/internal/runtime"
)

// forMapKVStmt is the keys-and-value for-map variant (§4.3.3): n
// key-variables plus one value-variable, recursively descending a
// deep-copied submap. localSlot is -1 for the oosvar-rooted form, or the
// frame slot holding a local map variable for the local-map form — the only
// difference between the four for-map AST kinds that reaches this far
// (§4.3.3, "Local-map variant differs at step 2: the outer lookup first
// indexes the local-frame slot... then subscripts by the evaluated
// keylist").
type forMapKVStmt struct {
	localSlot int
	keylist   []rval.Evaluator
	keySlots  []int
	valSlot   int
	body      *Block
}

// buildForMapKV / buildForLocalMapKV share this builder; localSlot < 0
// means oosvar-rooted. Convention: Children[0] is the target KeylistElements
// node, Children[1] is a NameList of n key LocalVarDecl nodes, Children[2]
// is the value LocalVarDecl node, Children[3:] is the body. The local-map
// form prepends one more child: Children[0] is the local-map Identifier
// use-node, shifting the rest down by one.
func (bc *buildCtx) buildForMapKV(n *ast.Node, localSlot int) (Statement, error) {
	idx := 0
	if localSlot >= 0 {
		idx = 1 // the local-map identifier child is consumed by the caller
	}
	klNode := n.Children[idx]
	nameList := n.Children[idx+1]
	valNode := n.Children[idx+2]
	bodyNodes := n.Children[idx+3:]

	kl, err := bc.buildKeylist(klNode)
	if err != nil {
		return nil, err
	}
	keySlots := make([]int, len(nameList.Children))
	for i, kn := range nameList.Children {
		keySlots[i] = kn.FrameIndex
	}

	saved := bc.flags
	bc.flags |= rval.InBreakable
	body, err := bc.buildBlock(n, bodyNodes, true)
	bc.flags = saved
	if err != nil {
		return nil, err
	}

	return &forMapKVStmt{
		localSlot: localSlot,
		keylist:   kl,
		keySlots:  keySlots,
		valSlot:   valNode.FrameIndex,
		body:      body,
	}, nil
}

func (bc *buildCtx) buildForLocalMapKV(n *ast.Node) (Statement, error) {
	localNode := n.Children[0]
	return bc.buildForMapKV(n, localNode.FrameIndex)
}

func (s *forMapKVStmt) rootOf(vars *runtime.Vars) (*mlhmmv.Node, bool) {
	if s.localSlot < 0 {
		return vars.Oosvar, true
	}
	v := vars.Frames.Top().Get(s.localSlot)
	m, ok := v.AsMap()
	if !ok {
		return nil, false
	}
	node, ok := m.(*mlhmmv.Node)
	return node, ok
}

func (s *forMapKVStmt) Exec(vars *runtime.Vars, out *Outputs) {
	kl := evalKeylist(vars, s.keylist)
	if mlhmmv.HasNull(kl) {
		return
	}
	root, ok := s.rootOf(vars)
	if !ok {
		return
	}
	sub, ok := mlhmmv.GetByKeylist(root, mlhmmv.Keylist(kl))
	if !ok {
		return
	}
	cp := mlhmmv.DeepCopy(sub)

	f := vars.Frames.Top()
	f.EnterSubframe()
	f.Bump(s.body.SubframeVarCount)
	s.descend(vars, out, f, cp, 0)
	f.ExitSubframe()
}

// descend implements §4.3.3 steps 4-6: one PushLoop/PopLoop pair per
// recursion depth (so a break only terminates the current depth's
// iteration and is cleared before returning control to the parent depth —
// see spec.md §9's scenario: "break exits the inner recursion only at the
// (p,r) entry; outer iteration continues to s"), and a shape check that
// silently skips any path whose depth does not match the key-variable
// arity.
func (s *forMapKVStmt) descend(vars *runtime.Vars, out *Outputs, f frameSetter, node *mlhmmv.Node, depth int) {
	if depth == len(s.keySlots) {
		if !node.IsTerminal() {
			return
		}
		f.Set(s.valSlot, node.LeafValue())
		s.body.Exec(vars, out)
		return
	}
	if node.IsTerminal() {
		return
	}
	keys, children := node.Entries()
	vars.PushLoop()
	for i, k := range keys {
		f.Set(s.keySlots[depth], k)
		s.descend(vars, out, f, children[i], depth+1)
		if vars.ReturnSet() || vars.Broken() {
			break
		}
		vars.ClearContinue()
	}
	vars.PopLoop()
}

func (s *forMapKVStmt) Free() {
	for _, e := range s.keylist {
		e.Free()
	}
	s.body.Free()
}

// forMapKStmt is the key-only for-map variant (§4.3.3): a single loop
// variable bound to each key at exactly one level, visiting the body
// "directly regardless of the child's shape". localSlot < 0 means
// oosvar-rooted.
type forMapKStmt struct {
	localSlot int
	keylist   []rval.Evaluator
	keySlot   int
	body      *Block
}

// buildForMapK / buildForLocalMapK convention: Children[0] is the target
// KeylistElements node, Children[1] is the key LocalVarDecl node,
// Children[2:] is the body; the local-map form prepends the local-map
// Identifier use-node, shifting the rest down by one.
func (bc *buildCtx) buildForMapK(n *ast.Node, localSlot int) (Statement, error) {
	idx := 0
	if localSlot >= 0 {
		idx = 1
	}
	klNode := n.Children[idx]
	keyNode := n.Children[idx+1]
	bodyNodes := n.Children[idx+2:]

	kl, err := bc.buildKeylist(klNode)
	if err != nil {
		return nil, err
	}

	saved := bc.flags
	bc.flags |= rval.InBreakable
	body, err := bc.buildBlock(n, bodyNodes, true)
	bc.flags = saved
	if err != nil {
		return nil, err
	}

	return &forMapKStmt{localSlot: localSlot, keylist: kl, keySlot: keyNode.FrameIndex, body: body}, nil
}

func (bc *buildCtx) buildForLocalMapK(n *ast.Node) (Statement, error) {
	localNode := n.Children[0]
	return bc.buildForMapK(n, localNode.FrameIndex)
}

func (s *forMapKStmt) rootOf(vars *runtime.Vars) (*mlhmmv.Node, bool) {
	if s.localSlot < 0 {
		return vars.Oosvar, true
	}
	v := vars.Frames.Top().Get(s.localSlot)
	m, ok := v.AsMap()
	if !ok {
		return nil, false
	}
	node, ok := m.(*mlhmmv.Node)
	return node, ok
}

// Exec subscripts the target exactly once (root, then the evaluated
// keylist) and copies only that level's key list — never the submap's
// values — per §4.3.3's key-only variant and §9's local-map
// double-subscript fix: there is only ever one GetByKeylist call here,
// whether the target is an oosvar or a local map slot.
func (s *forMapKStmt) Exec(vars *runtime.Vars, out *Outputs) {
	kl := evalKeylist(vars, s.keylist)
	if mlhmmv.HasNull(kl) {
		return
	}
	root, ok := s.rootOf(vars)
	if !ok {
		return
	}
	sub, ok := mlhmmv.GetByKeylist(root, mlhmmv.Keylist(kl))
	if !ok {
		return
	}
	keys := sub.Keys()

	f := vars.Frames.Top()
	f.EnterSubframe()
	f.Bump(s.body.SubframeVarCount)
	vars.PushLoop()
	for _, k := range keys {
		f.Set(s.keySlot, k)
		s.body.Exec(vars, out)
		if vars.ReturnSet() || vars.Broken() {
			break
		}
		vars.ClearContinue()
	}
	vars.PopLoop()
	f.ExitSubframe()
}

func (s *forMapKStmt) Free() {
	for _, e := range s.keylist {
		e.Free()
	}
	s.body.Free()
}

// frameSetter is the minimal slice of *frame.Frame that descend needs,
// named here to avoid importing internal/frame into this file's signature
// just for one method.
type frameSetter interface {
	Set(idx int, v mlrval.Mlrval) error
}

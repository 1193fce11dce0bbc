package cst

import (
	"github.com/ichobits/miller/internal/diag"
	"github.com/ichobits/miller/internal/dsl/ast"
	"github.com/ichobits/miller/internal/mlrval"
	"github.com/ichobits/miller/internal/rval"
	"github.com/ichobits/miller/internal/runtime"
)

// forSrecStmt is "for (k, v in $*)" (§4.3.4): iterates a snapshot of the
// current record's fields taken at loop entry.
type forSrecStmt struct {
	kSlot, vSlot int
	body         *Block
	tiMode       int
}

// buildForSrecStatement's convention: Children[0]/[1] are the k/v
// LocalVarDecl nodes, Children[2:] is the body.
func (bc *buildCtx) buildForSrecStatement(n *ast.Node) (Statement, error) {
	if bc.flags.Has(rval.InBeginOrEnd) {
		return nil, diag.New(diag.RuleR1SrecInBeginEnd, "for (.. in $*)", loc(n))
	}
	kNode, vNode := n.Children[0], n.Children[1]
	saved := bc.flags
	bc.flags |= rval.InBreakable
	body, err := bc.buildBlock(n, n.Children[2:], true)
	bc.flags = saved
	if err != nil {
		return nil, err
	}
	return &forSrecStmt{kSlot: kNode.FrameIndex, vSlot: vNode.FrameIndex, body: body, tiMode: int(bc.ti)}, nil
}

func (s *forSrecStmt) Exec(vars *runtime.Vars, out *Outputs) {
	fields := vars.Rec.Fields()
	f := vars.Frames.Top()
	f.EnterSubframe()
	f.Bump(s.body.SubframeVarCount)
	vars.PushLoop()
	for _, fld := range fields {
		f.Set(s.kSlot, mlrval.FromString(fld.Name))
		f.Set(s.vSlot, mlrval.InferFromString(fld.Value, s.tiMode))
		s.body.Exec(vars, out)
		if vars.ReturnSet() || vars.Broken() {
			break
		}
		vars.ClearContinue()
	}
	vars.PopLoop()
	f.ExitSubframe()
}

func (s *forSrecStmt) Free() { s.body.Free() }

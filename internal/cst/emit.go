package cst

import (
	"github.com/ichobits/miller/internal/diag"
	"github.com/ichobits/miller/internal/dsl/ast"
	"github.com/ichobits/miller/internal/mlhmmv"
	"github.com/ichobits/miller/internal/mlrval"
	"github.com/ichobits/miller/internal/rval"
	"github.com/ichobits/miller/internal/runtime"
	"github.com/ichobits/miller/internal/writer"
)

// emitTarget is one operand of emit/emitp, either the sole operand or one
// leg of a lashed group. ownName is the operand's bare identifier text, used
// as the output field name when the operand's value turns out to be a plain
// scalar rather than a map (§4.3.5 scenario 2: "end { emit @s }" on a scalar
// running sum yields a record field named "s").
type emitTarget struct {
	eval    rval.Evaluator
	ownName string
}

// emitStmt is emit/emitp, lashed or not. Convention: Children[0] is either
// the sole target expr node, or an ast.LashGroup node whose own Children are
// the lashed target expr nodes; the remaining Children are the peel-level
// name expressions ("emit @m, name1, name2", §4.3.5).
type emitStmt struct {
	targets    []emitTarget
	names      []rval.Evaluator
	emitp      bool
	flattenSep string
}

func (bc *buildCtx) buildEmitStatement(n *ast.Node, emitp bool) (Statement, error) {
	rest := n.Children
	var targetNodes []*ast.Node
	if rest[0].Kind == ast.LashGroup {
		targetNodes = rest[0].Children
		rest = rest[1:]
	} else {
		targetNodes = []*ast.Node{rest[0]}
		rest = rest[1:]
	}

	targets := make([]emitTarget, 0, len(targetNodes))
	for _, tn := range targetNodes {
		ev, err := bc.buildExpr(tn)
		if err != nil {
			return nil, err
		}
		targets = append(targets, emitTarget{eval: ev, ownName: tn.Token})
	}

	names := make([]rval.Evaluator, 0, len(rest))
	for _, nn := range rest {
		ev, err := bc.buildExpr(nn)
		if err != nil {
			return nil, err
		}
		names = append(names, ev)
	}

	return &emitStmt{targets: targets, names: names, emitp: emitp, flattenSep: bc.opt.OosvarFlattenSeparator}, nil
}

func (s *emitStmt) Exec(vars *runtime.Vars, out *Outputs) {
	names := make([]string, len(s.names))
	for i, nv := range s.names {
		v := nv.Process(vars)
		if v.IsAbsent() || v.IsError() {
			return
		}
		names[i] = v.String()
	}

	if len(s.targets) == 1 {
		t := s.targets[0]
		v := t.eval.Process(vars)
		if v.IsAbsent() {
			return
		}
		node := mlhmmv.FromMlrval(v)
		s.emitNode(node, names, nil, t.ownName, out)
		return
	}

	s.emitLashed(vars, names, out)
}

// emitLashed implements the pinned policy for "emit (@a, @b), ..." (DESIGN.md
// Open Question decision): iterate the first operand's keys in insertion
// order, looking each subsequent operand up by the same path; a missing
// path in a later operand contributes an absent terminal rather than
// aborting the whole emit.
func (s *emitStmt) emitLashed(vars *runtime.Vars, names []string, out *Outputs) {
	roots := make([]*mlhmmv.Node, len(s.targets))
	for i, t := range s.targets {
		v := t.eval.Process(vars)
		if v.IsAbsent() {
			return
		}
		roots[i] = mlhmmv.FromMlrval(v)
	}
	s.lashWalk(roots, names, nil, out)
}

func (s *emitStmt) lashWalk(nodes []*mlhmmv.Node, names []string, bound []mlrval.Mlrval, out *Outputs) {
	if len(bound) < len(names) {
		if nodes[0].IsTerminal() {
			return
		}
		keys, children := nodes[0].Entries()
		for i, k := range keys {
			next := make([]*mlhmmv.Node, len(nodes))
			next[0] = children[i]
			for j := 1; j < len(nodes); j++ {
				if c, ok := nodes[j].Get(k); ok {
					next[j] = c
				} else {
					next[j] = mlhmmv.Leaf(mlrval.Absent())
				}
			}
			s.lashWalk(next, names, append(bound, k), out)
		}
		return
	}

	rec := runtime.NewSrec()
	for i, nm := range names {
		rec.Set(nm, bound[i].String())
	}
	for i, node := range nodes {
		s.fillRecord(rec, node, s.targets[i].ownName, len(bound) == 0)
	}
	out.Emit(rec)
}

// emitNode recursively peels len(names) levels off node, binding each
// peeled key as a field named by the corresponding entry of names, then
// turns the remaining level into one output record per path (§4.3.5: "Pull
// out the first k levels as field values... and the remaining (terminal)
// level as a record. Cartesian across all matching paths.").
func (s *emitStmt) emitNode(node *mlhmmv.Node, names []string, bound []mlrval.Mlrval, ownName string, out *Outputs) {
	if len(bound) < len(names) {
		if node.IsTerminal() {
			return
		}
		keys, children := node.Entries()
		for i, k := range keys {
			s.emitNode(children[i], names, append(bound, k), ownName, out)
		}
		return
	}

	rec := runtime.NewSrec()
	for i, nm := range names {
		rec.Set(nm, bound[i].String())
	}
	s.fillRecord(rec, node, ownName, len(bound) == 0)
	out.Emit(rec)
}

// fillRecord turns node's remaining shape into rec's fields: a bare scalar
// falls back to ownName (only meaningful when no levels were peeled), a
// flat map contributes one field per terminal child, and a still-nested map
// is flattened (emitp prefixes the full path; plain emit uses only each
// leaf's own key, per §4.3.5).
func (s *emitStmt) fillRecord(rec *runtime.Srec, node *mlhmmv.Node, ownName string, atDepthZero bool) {
	if node.IsTerminal() {
		if atDepthZero && ownName != "" {
			rec.Set(ownName, node.LeafValue().String())
		}
		return
	}
	flattenNode(node, "", s.emitp, s.flattenSep, rec)
}

func flattenNode(node *mlhmmv.Node, prefix string, emitp bool, sep string, rec *runtime.Srec) {
	keys, children := node.Entries()
	for i, k := range keys {
		name := k.String()
		full := name
		if prefix != "" {
			if emitp {
				full = prefix + sep + name
			}
		}
		if children[i].IsTerminal() {
			rec.Set(full, children[i].LeafValue().String())
			continue
		}
		nextPrefix := ""
		if emitp {
			nextPrefix = full
		}
		flattenNode(children[i], nextPrefix, emitp, sep, rec)
	}
}

func (s *emitStmt) Free() {
	for _, t := range s.targets {
		t.eval.Free()
	}
	for _, n := range s.names {
		n.Free()
	}
}

// emitfOperand is one "@a" of "emitf @a,@b,…" (§4.3.5).
type emitfOperand struct {
	name string
	eval rval.Evaluator
}

type emitfStmt struct{ operands []emitfOperand }

func (bc *buildCtx) buildEmitFStatement(n *ast.Node) (Statement, error) {
	ops := make([]emitfOperand, 0, len(n.Children))
	for _, c := range n.Children {
		ev, err := bc.buildExpr(c)
		if err != nil {
			return nil, err
		}
		ops = append(ops, emitfOperand{name: c.Token, eval: ev})
	}
	return &emitfStmt{operands: ops}, nil
}

// Exec rejects the whole record if any operand evaluates to a map (§4.3.5:
// "Non-scalar (map-valued) args are rejected").
func (s *emitfStmt) Exec(vars *runtime.Vars, out *Outputs) {
	rec := runtime.NewSrec()
	for _, op := range s.operands {
		v := op.eval.Process(vars)
		if _, isMap := v.AsMap(); isMap {
			return
		}
		if v.IsAbsent() {
			return
		}
		rec.Set(op.name, v.String())
	}
	out.Emit(rec)
}

func (s *emitfStmt) Free() {
	for _, op := range s.operands {
		op.eval.Free()
	}
}

// teeStmt is `tee > "file", $*` (§4.3.5): writes the current record's
// fields to the named sink as one line of comma-joined name=value pairs
// (formatSrecLine). $* is the only supported record-producing operand here;
// Sinks.WriteLine only opens the destination and writes the finished line.
type teeStmt struct {
	path rval.Evaluator
	mode writer.Mode
}

func (bc *buildCtx) buildTeeStatement(n *ast.Node) (Statement, error) {
	if bc.flags.Has(rval.InBeginOrEnd) {
		return nil, diag.New(diag.RuleR1SrecInBeginEnd, "tee", loc(n))
	}
	path, err := bc.buildExpr(n.Children[0])
	if err != nil {
		return nil, err
	}
	mode := writer.ModeTruncate
	if n.Data != nil {
		if m, ok := n.Data.(writer.Mode); ok {
			mode = m
		}
	}
	return &teeStmt{path: path, mode: mode}, nil
}

func (s *teeStmt) Exec(vars *runtime.Vars, out *Outputs) {
	pv := s.path.Process(vars)
	if pv.IsAbsent() || pv.IsError() {
		return
	}
	line := formatSrecLine(vars.Rec)
	out.Sinks.WriteLine(pv.String(), s.mode, line)
}

func (s *teeStmt) Free() { s.path.Free() }

func formatSrecLine(rec *runtime.Srec) string {
	line := ""
	for i, f := range rec.Fields() {
		if i > 0 {
			line += ","
		}
		line += f.Name + "=" + f.Value
	}
	return line
}

// printStmt is print/printn (§4.3.5): print appends a trailing newline
// (handled by Sinks.WriteLine already adding one), printn omits it.
type printStmt struct {
	args []rval.Evaluator
	noNL bool
}

func (bc *buildCtx) buildPrintStatement(n *ast.Node, noNL bool) (Statement, error) {
	args := make([]rval.Evaluator, 0, len(n.Children))
	for _, c := range n.Children {
		ev, err := bc.buildExpr(c)
		if err != nil {
			return nil, err
		}
		args = append(args, ev)
	}
	return &printStmt{args: args, noNL: noNL}, nil
}

func (s *printStmt) Exec(vars *runtime.Vars, out *Outputs) {
	line := ""
	for i, a := range s.args {
		if i > 0 {
			line += " "
		}
		line += a.Process(vars).String()
	}
	if s.noNL {
		out.Sinks.WriteRaw("", writer.ModeStdout, line)
		return
	}
	out.Sinks.WriteLine("", writer.ModeStdout, line)
}

func (s *printStmt) Free() {
	for _, a := range s.args {
		a.Free()
	}
}

// dumpStmt serializes the oosvar root as JSON to stdout (§4.3.5).
type dumpStmt struct{}

func (s *dumpStmt) Exec(vars *runtime.Vars, out *Outputs) { out.Sinks.DumpJSON(vars.Oosvar) }
func (s *dumpStmt) Free()                                 {}

// unsetTarget is one vararg of "unset a, b, ..." (§4.3.5): exactly one of
// the five removal forms is non-nil/non-empty, set by the builder.
type unsetTarget struct {
	localSlot   int // >=0 for a local-var target
	keylist     []rval.Evaluator
	isOosvar    bool
	isFullSrec  bool
	fieldExpr   rval.Evaluator
	field       string
	hasField    bool
}

type unsetStmt struct{ targets []unsetTarget }

// buildUnsetStatement reads each operand's Kind as its own removal-form tag,
// a convention local to this builder since unset's vararg operands are
// themselves reused statement-assignment Kinds rather than a dedicated
// "unset target" AST shape: ast.OosvarAssign (Children[0] = keylist, empty
// for "@*"), ast.FullSrecFromOosvarAssign ("$*"), ast.SrecAssign (single
// field, Token = name), ast.SrecIndirectAssign (Children[0] = field-name
// expr), ast.Identifier (a bare local-var use node, FrameIndex already
// resolved).
func (bc *buildCtx) buildUnsetStatement(n *ast.Node) (Statement, error) {
	targets := make([]unsetTarget, 0, len(n.Children))
	for _, c := range n.Children {
		switch c.Kind {
		case ast.OosvarAssign:
			kl, err := bc.buildKeylist(c.Children[0])
			if err != nil {
				return nil, err
			}
			targets = append(targets, unsetTarget{localSlot: -1, keylist: kl, isOosvar: true})
		case ast.FullSrecFromOosvarAssign:
			if bc.flags.Has(rval.InBeginOrEnd) {
				return nil, diag.New(diag.RuleR1SrecInBeginEnd, "unset $*", loc(c))
			}
			targets = append(targets, unsetTarget{localSlot: -1, isFullSrec: true})
		case ast.SrecAssign:
			if bc.flags.Has(rval.InBeginOrEnd) {
				return nil, diag.New(diag.RuleR1SrecInBeginEnd, "unset $"+c.Token, loc(c))
			}
			targets = append(targets, unsetTarget{localSlot: -1, field: c.Token, hasField: true})
		case ast.SrecIndirectAssign:
			if bc.flags.Has(rval.InBeginOrEnd) {
				return nil, diag.New(diag.RuleR1SrecInBeginEnd, "unset $[...]", loc(c))
			}
			fe, err := bc.buildExpr(c.Children[0])
			if err != nil {
				return nil, err
			}
			targets = append(targets, unsetTarget{localSlot: -1, fieldExpr: fe})
		default:
			targets = append(targets, unsetTarget{localSlot: c.FrameIndex})
		}
	}
	return &unsetStmt{targets: targets}, nil
}

func (s *unsetStmt) Exec(vars *runtime.Vars, out *Outputs) {
	f := vars.Frames.Top()
	for _, t := range s.targets {
		switch {
		case t.isOosvar:
			kl := evalKeylist(vars, t.keylist)
			if mlhmmv.HasNull(kl) {
				continue
			}
			mlhmmv.RemoveByKeylist(vars.Oosvar, mlhmmv.Keylist(kl))
		case t.isFullSrec:
			vars.Rec.Clear()
		case t.hasField:
			vars.Rec.Unset(t.field)
		case t.fieldExpr != nil:
			nv := t.fieldExpr.Process(vars)
			if nv.IsAbsent() || nv.IsError() {
				continue
			}
			vars.Rec.Unset(nv.String())
		default:
			if f != nil {
				f.Set(t.localSlot, mlrval.Absent())
			}
		}
	}
}

func (s *unsetStmt) Free() {
	for _, t := range s.targets {
		for _, e := range t.keylist {
			e.Free()
		}
		if t.fieldExpr != nil {
			t.fieldExpr.Free()
		}
	}
}

// unsetAllStmt is "unset all" / "unset @*" (§4.3.5).
type unsetAllStmt struct{}

func (s *unsetAllStmt) Exec(vars *runtime.Vars, out *Outputs) { vars.Oosvar.Clear() }
func (s *unsetAllStmt) Free()                                 {}

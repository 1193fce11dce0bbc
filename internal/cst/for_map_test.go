package cst

import (
	"testing"

	"github.com/ichobits/miller/internal/dsl/ast"
	"github.com/ichobits/miller/internal/frame"
	"github.com/ichobits/miller/internal/mlhmmv"
	"github.com/ichobits/miller/internal/mlrval"
	"github.com/ichobits/miller/internal/rval"
	"github.com/ichobits/miller/internal/runtime"
)

// breakOnRLog is a test-only Statement standing in for a for-map body: it
// records "p/r=v" for every leaf visited and sets the break flag once r
// matches breakOn, exercising the per-recursion-depth PushLoop/PopLoop
// design in forMapKVStmt.descend.
type breakOnRLog struct {
	pSlot, rSlot, vSlot int
	breakOn             string
	log                 *[]string
}

func (s *breakOnRLog) Exec(vars *runtime.Vars, out *Outputs) {
	f := vars.Frames.Top()
	p := f.Get(s.pSlot).String()
	r := f.Get(s.rSlot).String()
	v := f.Get(s.vSlot).String()
	*s.log = append(*s.log, p+"/"+r+"="+v)
	if r == s.breakOn {
		vars.SetBreak()
	}
}
func (s *breakOnRLog) Free() {}

func buildThreeByMap() *mlhmmv.Node {
	root := mlhmmv.NewMap()

	p1 := mlhmmv.NewMap()
	p1.Put(mlrval.FromString("r1"), mlhmmv.Leaf(mlrval.FromInt(1)))
	p1.Put(mlrval.FromString("r2"), mlhmmv.Leaf(mlrval.FromInt(2)))
	p1.Put(mlrval.FromString("r3"), mlhmmv.Leaf(mlrval.FromInt(3)))
	root.Put(mlrval.FromString("p1"), p1)

	p2 := mlhmmv.NewMap()
	p2.Put(mlrval.FromString("r1"), mlhmmv.Leaf(mlrval.FromInt(10)))
	p2.Put(mlrval.FromString("bad"), mlhmmv.Leaf(mlrval.FromInt(20)))
	p2.Put(mlrval.FromString("r3"), mlhmmv.Leaf(mlrval.FromInt(30)))
	root.Put(mlrval.FromString("p2"), p2)

	p3 := mlhmmv.NewMap()
	p3.Put(mlrval.FromString("r1"), mlhmmv.Leaf(mlrval.FromInt(100)))
	root.Put(mlrval.FromString("p3"), p3)

	return root
}

// TestForMapKVBreakIsPerRecursionDepth mirrors spec.md's nested-break
// scenario: a break fired at the (p2, bad) entry stops p2's own r-iteration
// early but must not prevent p3 from being visited afterward.
func TestForMapKVBreakIsPerRecursionDepth(t *testing.T) {
	var log []string
	vars := runtime.NewVars()
	vars.Oosvar = buildThreeByMap()
	fr := frame.NewFrame(4, nil)
	vars.Frames.Push(fr)

	const pSlot, rSlot, vSlot = 0, 1, 2
	body := &Block{
		Stmts:     []Statement{&breakOnRLog{pSlot: pSlot, rSlot: rSlot, vSlot: vSlot, breakOn: "bad", log: &log}},
		LoopAware: true,
	}
	stmt := &forMapKVStmt{
		localSlot: -1,
		keylist:   nil,
		keySlots:  []int{pSlot, rSlot},
		valSlot:   vSlot,
		body:      body,
	}

	out := NewOutputs(nil, ":")
	stmt.Exec(vars, out)

	want := []string{
		"p1/r1=1", "p1/r2=2", "p1/r3=3",
		"p2/r1=10", "p2/bad=20",
		"p3/r1=100",
	}
	if len(log) != len(want) {
		t.Fatalf("got %d entries %v, want %d entries %v", len(log), log, len(want), want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("entry %d: got %q, want %q", i, log[i], want[i])
		}
	}

	if depth := vars.Frames.Depth(); depth != 1 {
		t.Errorf("frame stack depth after for-map exec: got %d, want 1 (no leaked push)", depth)
	}
}

// TestForMapKLocalMapSingleSubscript exercises the §9 double-subscript fix:
// a local map variable subscripted once by the loop's own keylist must visit
// exactly the keys at that one level, not re-subscript the result.
func TestForMapKLocalMapSingleSubscript(t *testing.T) {
	inner := mlhmmv.NewMap()
	inner.Put(mlrval.FromString("x"), mlhmmv.Leaf(mlrval.FromInt(1)))
	inner.Put(mlrval.FromString("y"), mlhmmv.Leaf(mlrval.FromInt(2)))

	root := mlhmmv.NewMap()
	root.Put(mlrval.FromString("a"), inner)
	other := mlhmmv.NewMap()
	other.Put(mlrval.FromString("x"), mlhmmv.Leaf(mlrval.FromInt(3)))
	root.Put(mlrval.FromString("b"), other)

	vars := runtime.NewVars()
	fr := frame.NewFrame(4, []ast.TypeMask{ast.MaskMap, ast.MaskAny})
	vars.Frames.Push(fr)
	const localSlot, keySlot = 0, 1
	if err := fr.Set(localSlot, mlrval.FromMap(root)); err != nil {
		t.Fatalf("seeding local map slot: %v", err)
	}

	var seen []string
	body := &Block{
		Stmts: []Statement{seenLogger(keySlot, &seen)},
		LoopAware: true,
	}
	stmt := &forMapKStmt{
		localSlot: localSlot,
		keylist:   []rval.Evaluator{lit(mlrval.FromString("a"))},
		keySlot:   keySlot,
		body:      body,
	}

	out := NewOutputs(nil, ":")
	stmt.Exec(vars, out)

	want := []string{"x", "y"}
	if len(seen) != len(want) {
		t.Fatalf("got keys %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("key %d: got %q, want %q", i, seen[i], want[i])
		}
	}
}

type keyLogStmt struct {
	slot int
	log  *[]string
}

func (s *keyLogStmt) Exec(vars *runtime.Vars, out *Outputs) {
	*s.log = append(*s.log, vars.Frames.Top().Get(s.slot).String())
}
func (s *keyLogStmt) Free() {}

func seenLogger(slot int, log *[]string) Statement {
	return &keyLogStmt{slot: slot, log: log}
}

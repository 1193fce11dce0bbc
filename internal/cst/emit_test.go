package cst

import (
	"testing"

	"github.com/ichobits/miller/internal/mlhmmv"
	"github.com/ichobits/miller/internal/mlrval"
	"github.com/ichobits/miller/internal/rval"
	"github.com/ichobits/miller/internal/runtime"
)

func recFieldMap(rec *runtime.Srec) map[string]string {
	out := make(map[string]string)
	for _, f := range rec.Fields() {
		out[f.Name] = f.Value
	}
	return out
}

// TestEmitScalarFallsBackToOwnName mirrors spec.md's running-sum scenario:
// "end { emit @s }" on a scalar running sum yields a single record field
// named after the oosvar's own name.
func TestEmitScalarFallsBackToOwnName(t *testing.T) {
	vars := runtime.NewVars()
	stmt := &emitStmt{
		targets: []emitTarget{{eval: lit(mlrval.FromInt(6)), ownName: "s"}},
	}
	out := NewOutputs(nil, ":")
	stmt.Exec(vars, out)

	if len(out.OutRecs) != 1 {
		t.Fatalf("got %d emitted records, want 1", len(out.OutRecs))
	}
	got := recFieldMap(out.OutRecs[0])
	if got["s"] != "6" {
		t.Errorf("got record %v, want s=6", got)
	}
}

// TestEmitNamedPeelsOneLevelCartesian mirrors spec.md §4.3.5: "Pull out the
// first k levels as field values... and the remaining (terminal) level as a
// record. Cartesian across all matching paths." One peeled name over a
// two-level map yields one record per top key, each carrying the remaining
// level's entries as its own fields.
func TestEmitNamedPeelsOneLevelCartesian(t *testing.T) {
	m := mlhmmv.NewMap()
	for _, p := range []string{"p1", "p2"} {
		sub := mlhmmv.NewMap()
		sub.Put(mlrval.FromString("r1"), mlhmmv.Leaf(mlrval.FromInt(1)))
		sub.Put(mlrval.FromString("r2"), mlhmmv.Leaf(mlrval.FromInt(2)))
		m.Put(mlrval.FromString(p), sub)
	}

	vars := runtime.NewVars()
	stmt := &emitStmt{
		targets: []emitTarget{{eval: lit(mlrval.FromMap(m)), ownName: "m"}},
		names:   []rval.Evaluator{lit(mlrval.FromString("p"))},
	}
	out := NewOutputs(nil, ":")
	stmt.Exec(vars, out)

	if len(out.OutRecs) != 2 {
		t.Fatalf("got %d emitted records, want 2 (one per top-level key)", len(out.OutRecs))
	}
	byP := make(map[string]map[string]string)
	for _, rec := range out.OutRecs {
		f := recFieldMap(rec)
		byP[f["p"]] = f
	}
	for _, p := range []string{"p1", "p2"} {
		f, ok := byP[p]
		if !ok {
			t.Fatalf("no emitted record for p=%s (got %v)", p, byP)
		}
		if f["r1"] != "1" || f["r2"] != "2" {
			t.Errorf("record for p=%s: got %v, want r1=1 r2=2", p, f)
		}
	}
}

// TestEmitpFlattensWithFullPathPrefix checks emitp's full-key-prefixed
// flattening (§4.3.5) over a map nested more than one level below the
// peeled names: the leaf x→y comes out as field "x:y".
func TestEmitpFlattensWithFullPathPrefix(t *testing.T) {
	inner := mlhmmv.NewMap()
	inner.Put(mlrval.FromString("y"), mlhmmv.Leaf(mlrval.FromInt(9)))
	outer := mlhmmv.NewMap()
	outer.Put(mlrval.FromString("x"), inner)

	vars := runtime.NewVars()
	stmt := &emitStmt{
		targets:    []emitTarget{{eval: lit(mlrval.FromMap(outer)), ownName: "m"}},
		emitp:      true,
		flattenSep: ":",
	}
	out := NewOutputs(nil, ":")
	stmt.Exec(vars, out)

	if len(out.OutRecs) != 1 {
		t.Fatalf("got %d emitted records, want 1", len(out.OutRecs))
	}
	f := recFieldMap(out.OutRecs[0])
	if f["x:y"] != "9" {
		t.Errorf("got record %v, want field \"x:y\"=9", f)
	}
}

package mlhmmv

import (
	"testing"

	"github.com/ichobits/miller/internal/mlrval"
)

func TestPutPreservesInsertionOrderAndReplaceInPlace(t *testing.T) {
	n := NewMap()
	n.Put(mlrval.FromString("b"), Leaf(mlrval.FromInt(2)))
	n.Put(mlrval.FromString("a"), Leaf(mlrval.FromInt(1)))
	n.Put(mlrval.FromString("b"), Leaf(mlrval.FromInt(22))) // replace, same position

	keys, children := n.Entries()
	wantKeys := []string{"b", "a"}
	for i, k := range keys {
		if k.String() != wantKeys[i] {
			t.Fatalf("key %d: got %q, want %q", i, k.String(), wantKeys[i])
		}
	}
	if v, _ := children[0].LeafValue().Int(); v != 22 {
		t.Errorf("replaced value: got %d, want 22", v)
	}
}

func TestRemoveShiftsIndexDense(t *testing.T) {
	n := NewMap()
	n.Put(mlrval.FromString("a"), Leaf(mlrval.FromInt(1)))
	n.Put(mlrval.FromString("b"), Leaf(mlrval.FromInt(2)))
	n.Put(mlrval.FromString("c"), Leaf(mlrval.FromInt(3)))

	if !n.Remove(mlrval.FromString("b")) {
		t.Fatalf("Remove(b): want true")
	}
	keys, _ := n.Entries()
	if len(keys) != 2 || keys[0].String() != "a" || keys[1].String() != "c" {
		t.Fatalf("got keys %v, want [a c]", keys)
	}
	if _, ok := n.Get(mlrval.FromString("c")); !ok {
		t.Errorf("Get(c) after removing b: want found (index must stay dense)")
	}
}

func TestDeepCopyIsIndependent(t *testing.T) {
	inner := NewMap()
	inner.Put(mlrval.FromString("x"), Leaf(mlrval.FromInt(1)))
	root := NewMap()
	root.Put(mlrval.FromString("a"), inner)

	cp := DeepCopy(root)
	inner.Put(mlrval.FromString("y"), Leaf(mlrval.FromInt(2))) // mutate original after copy

	cpInner, ok := cp.Get(mlrval.FromString("a"))
	if !ok {
		t.Fatalf("copy missing key a")
	}
	if _, found := cpInner.Get(mlrval.FromString("y")); found {
		t.Errorf("copy observed a mutation made to the original after DeepCopy")
	}
	if _, found := cpInner.Get(mlrval.FromString("x")); !found {
		t.Errorf("copy missing the original's pre-existing key x")
	}
}

func TestGetByKeylistEmptyReturnsRoot(t *testing.T) {
	root := NewMap()
	n, ok := GetByKeylist(root, Keylist{})
	if !ok || n != root {
		t.Errorf("GetByKeylist(root, []): want (root, true), got (%v, %v)", n, ok)
	}
}

func TestGetByKeylistMissingPathFails(t *testing.T) {
	root := NewMap()
	_, ok := GetByKeylist(root, Keylist{mlrval.FromString("nope")})
	if ok {
		t.Errorf("GetByKeylist on a missing path: want false")
	}
}

func TestPutByKeylistAutovivifiesIntermediateLevels(t *testing.T) {
	root := NewMap()
	PutByKeylist(root, Keylist{mlrval.FromString("a"), mlrval.FromString("b")}, mlrval.FromInt(7))

	n, ok := GetByKeylist(root, Keylist{mlrval.FromString("a"), mlrval.FromString("b")})
	if !ok || !n.IsTerminal() {
		t.Fatalf("PutByKeylist did not create a[b]")
	}
	if v, _ := n.LeafValue().Int(); v != 7 {
		t.Errorf("a[b]: got %d, want 7", v)
	}
}

func TestPutByKeylistOverwritesScalarWithMap(t *testing.T) {
	root := NewMap()
	root.Put(mlrval.FromString("a"), Leaf(mlrval.FromInt(1)))
	PutByKeylist(root, Keylist{mlrval.FromString("a"), mlrval.FromString("b")}, mlrval.FromInt(2))

	n, ok := root.Get(mlrval.FromString("a"))
	if !ok || n.IsTerminal() {
		t.Fatalf("expected a's scalar to be replaced by a map")
	}
}

func TestRemoveByKeylistEmptyClearsRoot(t *testing.T) {
	root := NewMap()
	root.Put(mlrval.FromString("a"), Leaf(mlrval.FromInt(1)))
	if !RemoveByKeylist(root, Keylist{}) {
		t.Fatalf("RemoveByKeylist(root, []): want true")
	}
	if root.Len() != 0 {
		t.Errorf("got %d entries after clearing, want 0", root.Len())
	}
}

func TestHasNull(t *testing.T) {
	if HasNull(Keylist{mlrval.FromString("a")}) {
		t.Errorf("HasNull on all-present keylist: want false")
	}
	if !HasNull(Keylist{mlrval.FromString("a"), mlrval.Absent()}) {
		t.Errorf("HasNull with an absent element: want true")
	}
	if !HasNull(Keylist{mlrval.Error(mlrval.ErrGeneric, "x")}) {
		t.Errorf("HasNull with an error element: want true")
	}
}

func TestFromMlrvalRoundTripsMapAndScalar(t *testing.T) {
	m := NewMap()
	m.Put(mlrval.FromString("x"), Leaf(mlrval.FromInt(1)))
	v := ToMlrval(m)
	back := FromMlrval(v)
	if back != m {
		t.Errorf("FromMlrval(ToMlrval(m)) did not round-trip to the same node")
	}

	scalarNode := FromMlrval(mlrval.FromInt(9))
	if !scalarNode.IsTerminal() {
		t.Errorf("FromMlrval on a scalar: want a terminal node")
	}
}

package frame

import (
	"testing"

	"github.com/ichobits/miller/internal/dsl/ast"
	"github.com/ichobits/miller/internal/mlrval"
)

func TestNewFrameSlotsStartAbsent(t *testing.T) {
	f := NewFrame(3, nil)
	for i := 0; i < 3; i++ {
		if !f.Get(i).IsAbsent() {
			t.Errorf("slot %d: got %v, want absent at allocation", i, f.Get(i))
		}
	}
}

func TestSetEnforcesDeclaredMask(t *testing.T) {
	f := NewFrame(2, []ast.TypeMask{ast.MaskInt, ast.MaskString})
	if err := f.Set(0, mlrval.FromInt(5)); err != nil {
		t.Fatalf("Set(int slot, int value): unexpected error %v", err)
	}
	if err := f.Set(0, mlrval.FromString("x")); err == nil {
		t.Errorf("Set(int slot, string value): want a type-mismatch error")
	}
	if got, _ := f.Get(0).Int(); got != 5 {
		t.Errorf("slot 0 after rejected Set: got %v, want unchanged at 5 (Set must not mutate on error)", f.Get(0))
	}
}

func TestSetAlwaysAcceptsAbsentAndError(t *testing.T) {
	f := NewFrame(1, []ast.TypeMask{ast.MaskInt})
	if err := f.Set(0, mlrval.Absent()); err != nil {
		t.Errorf("Set(absent) into an int slot: want no error, got %v", err)
	}
	if err := f.Set(0, mlrval.Error(mlrval.ErrGeneric, "x")); err != nil {
		t.Errorf("Set(error) into an int slot: want no error, got %v", err)
	}
}

func TestSubframeEnterExitClearsOnlyNewSlots(t *testing.T) {
	f := NewFrame(4, nil)
	f.Set(0, mlrval.FromInt(1)) // pre-existing, outside any subframe
	f.Bump(1)                  // slot 0 now below the high-water mark

	f.EnterSubframe()
	f.Bump(2) // slots 1,2 belong to this subframe
	f.Set(1, mlrval.FromInt(10))
	f.Set(2, mlrval.FromInt(20))
	f.ExitSubframe()

	if got, _ := f.Get(0).Int(); got != 1 {
		t.Errorf("slot 0 (outside the subframe): got %v, want unchanged at 1", f.Get(0))
	}
	if !f.Get(1).IsAbsent() || !f.Get(2).IsAbsent() {
		t.Errorf("slots 1,2 after ExitSubframe: got (%v,%v), want both absent", f.Get(1), f.Get(2))
	}
}

func TestSiblingSubframesDoNotSeeEachOthersSlots(t *testing.T) {
	f := NewFrame(5, nil)
	f.EnterSubframe()
	f.Bump(2)
	f.Set(0, mlrval.FromInt(1))
	f.Set(1, mlrval.FromInt(2))
	f.ExitSubframe()

	if !f.Get(0).IsAbsent() || !f.Get(1).IsAbsent() {
		t.Fatalf("slots after first sibling's ExitSubframe: got (%v,%v), want both absent", f.Get(0), f.Get(1))
	}

	f.EnterSubframe()
	f.Bump(2)
	if !f.Get(0).IsAbsent() || !f.Get(1).IsAbsent() {
		t.Errorf("second sibling subframe observed the first sibling's leftover values")
	}
	f.ExitSubframe()
}

func TestStackPushPopTopDepth(t *testing.T) {
	s := &Stack{}
	if s.Depth() != 0 {
		t.Fatalf("empty stack depth: got %d, want 0", s.Depth())
	}
	f1 := NewFrame(1, nil)
	f2 := NewFrame(1, nil)
	s.Push(f1)
	s.Push(f2)
	if s.Depth() != 2 {
		t.Fatalf("depth after two pushes: got %d, want 2", s.Depth())
	}
	if s.Top() != f2 {
		t.Errorf("Top(): want the most recently pushed frame")
	}
	if popped := s.Pop(); popped != f2 {
		t.Errorf("Pop(): want f2")
	}
	if s.Top() != f1 {
		t.Errorf("Top() after popping f2: want f1")
	}
}

func TestOutOfRangeSetReturnsErrorGetReturnsAbsent(t *testing.T) {
	f := NewFrame(1, nil)
	if err := f.Set(5, mlrval.FromInt(1)); err == nil {
		t.Errorf("Set(out-of-range): want an error")
	}
	if got := f.Get(5); !got.IsAbsent() {
		t.Errorf("Get(out-of-range): got %v, want absent", got)
	}
}

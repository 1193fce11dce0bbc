package frame

import (
	"github.com/ichobits/miller/internal/dsl/ast"
	"github.com/ichobits/miller/internal/mlrval"
	"github.com/pkg/errors"
)

// accepts reports whether mask permits a value tagged tag (§3's per-slot
// type-mask enforcement).
func accepts(mask ast.TypeMask, tag mlrval.Tag) bool {
	switch mask {
	case ast.MaskAny:
		return true
	case ast.MaskNumeric:
		return tag == mlrval.IntTag || tag == mlrval.FloatTag
	case ast.MaskInt:
		return tag == mlrval.IntTag
	case ast.MaskFloat:
		return tag == mlrval.FloatTag
	case ast.MaskBoolean:
		return tag == mlrval.BoolTag
	case ast.MaskString:
		return tag == mlrval.StringTag
	case ast.MaskMap:
		return tag == mlrval.MapTag
	default:
		return false
	}
}

// Frame is one block's allocation region in the local-variable stack (§3):
// a fixed-size array of slots, each holding one Mlrval plus a type mask
// fixed at declaration. Subframes within the frame demarcate inner lexical
// blocks; entry records the slot high-water mark, exit clears slots
// allocated since entry back to absent.
type Frame struct {
	values []mlrval.Mlrval
	masks  []ast.TypeMask
	marks  []int
	hi     int
}

// NewFrame allocates a frame sized to hold size slots. masks gives the
// per-slot type mask, indexed by slot; a nil mask is treated as MaskAny.
func NewFrame(size int, masks []ast.TypeMask) *Frame {
	f := &Frame{
		values: make([]mlrval.Mlrval, size),
		masks:  make([]ast.TypeMask, size),
	}
	for i := range f.values {
		f.values[i] = mlrval.Absent()
	}
	for i := 0; i < size && i < len(masks); i++ {
		f.masks[i] = masks[i]
	}
	return f
}

// EnterSubframe records the current high-water mark, so that ExitSubframe
// can clear everything allocated since.
func (f *Frame) EnterSubframe() {
	f.marks = append(f.marks, f.hi)
}

// ExitSubframe clears every slot allocated since the matching EnterSubframe
// back to absent, and restores the high-water mark (§3, invariant: subframe
// exit never changes frame depth, only clears slot contents).
func (f *Frame) ExitSubframe() {
	n := len(f.marks)
	if n == 0 {
		return
	}
	mark := f.marks[n-1]
	f.marks = f.marks[:n-1]
	for i := mark; i < f.hi && i < len(f.values); i++ {
		f.values[i] = mlrval.Absent()
	}
	f.hi = mark
}

// Bump advances the high-water mark by n slots, called once per subframe
// with the block's SubframeVarCount as soon as it is entered, so that
// subsequent ExitSubframe calls know how far to clear.
func (f *Frame) Bump(n int) {
	f.hi += n
}

// Set stores v into slot idx, enforcing idx's declared type mask. Returns a
// type-mismatch error (§7) if v's tag is outside the mask, without mutating
// the slot.
func (f *Frame) Set(idx int, v mlrval.Mlrval) error {
	if idx < 0 || idx >= len(f.values) {
		return errors.Errorf("frame slot %d out of range [0,%d)", idx, len(f.values))
	}
	if v.IsAbsent() || v.IsError() {
		f.values[idx] = v
		return nil
	}
	if !accepts(f.masks[idx], v.Tag()) {
		return errors.Errorf("cannot assign %s to slot declared %s", v.Tag(), f.masks[idx])
	}
	f.values[idx] = v
	return nil
}

// Get returns slot idx's current value, or Absent if out of range.
func (f *Frame) Get(idx int) mlrval.Mlrval {
	if idx < 0 || idx >= len(f.values) {
		return mlrval.Absent()
	}
	return f.values[idx]
}

// Mask returns slot idx's declared type mask.
func (f *Frame) Mask(idx int) ast.TypeMask {
	if idx < 0 || idx >= len(f.masks) {
		return ast.MaskAny
	}
	return f.masks[idx]
}

// Stack is the call stack of Frames (§3: "Frames are arranged in a stack").
// Pushed once per begin/main/end invocation and once per subroutine/UDF
// call; popped on return.
type Stack struct {
	frames []*Frame
}

// Push pushes f as the new top-of-stack frame.
func (s *Stack) Push(f *Frame) { s.frames = append(s.frames, f) }

// Pop removes and returns the top-of-stack frame.
func (s *Stack) Pop() *Frame {
	n := len(s.frames)
	if n == 0 {
		return nil
	}
	f := s.frames[n-1]
	s.frames = s.frames[:n-1]
	return f
}

// Top returns the current top-of-stack frame without removing it.
func (s *Stack) Top() *Frame {
	n := len(s.frames)
	if n == 0 {
		return nil
	}
	return s.frames[n-1]
}

// Depth returns the number of frames currently on the stack, used by tests
// to check invariant #2 ("local-frame stack depth at exit equals depth at
// entry" — spec.md §8).
func (s *Stack) Depth() int { return len(s.frames) }

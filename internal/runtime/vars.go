// Package runtime implements the ambient execution context threaded through
// every statement handler (spec.md §3, "variables bag"): the current srec,
// the oosvar root, the local-frame stack, loop-flag stack, and return state.
// Grounded on the teacher's util.Options single-struct "thread everything
// through one value" convention (util/args.go), generalized from a
// once-per-process config struct to a once-per-record mutable context.
package runtime

import (
	"os"

	"github.com/ichobits/miller/internal/dsl/ast"
	"github.com/ichobits/miller/internal/frame"
	"github.com/ichobits/miller/internal/mlhmmv"
	"github.com/ichobits/miller/internal/mlrval"
)

// LoopFlags is a per-frame bitfield recording break/continue signals (§3).
type LoopFlags uint8

const (
	Broken LoopFlags = 1 << iota
	Continued
)

// Srec is one input record: an ordered key->string map (§3). Field order is
// preserved for $* / for-srec iteration (§4.3.4) and full-srec copies.
type Srec struct {
	keys   []string
	values map[string]string
}

// NewSrec returns an empty record.
func NewSrec() *Srec { return &Srec{values: make(map[string]string)} }

// Get returns field name's string value and whether it is present.
func (s *Srec) Get(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Set stores name=value, appending name to the field order on first write.
func (s *Srec) Set(name, value string) {
	if _, exists := s.values[name]; !exists {
		s.keys = append(s.keys, name)
	}
	s.values[name] = value
}

// Unset removes field name, if present.
func (s *Srec) Unset(name string) {
	if _, exists := s.values[name]; !exists {
		return
	}
	delete(s.values, name)
	for i, k := range s.keys {
		if k == name {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
}

// Clear removes all fields, used by "unset $*" (§4.3.5).
func (s *Srec) Clear() {
	s.keys = nil
	s.values = make(map[string]string)
}

// Fields returns a snapshot of (name, value) pairs in field order, used by
// for-srec (§4.3.4), whose "iteration snapshot is taken at loop entry".
func (s *Srec) Fields() []SrecField {
	out := make([]SrecField, len(s.keys))
	for i, k := range s.keys {
		out[i] = SrecField{Name: k, Value: s.values[k]}
	}
	return out
}

// SrecField is one (name, value) pair from a Srec snapshot.
type SrecField struct {
	Name  string
	Value string
}

// Vars is the execution context passed to every statement handler (§3).
type Vars struct {
	Rec    *Srec
	Oosvar *mlhmmv.Node // process-wide oosvar root; survives across records

	Frames *frame.Stack

	// loopFlags is a stack of per-loop bitfields; the innermost loop's
	// entry is loopFlags[len-1].
	loopFlags []LoopFlags

	// Return state (§3): a single boolean plus optional value, shared by
	// subroutine and UDF invocation.
	returnSet   bool
	returnValue mlrval.Mlrval

	// RegexCaptures holds the last regex match's capture groups, consulted
	// by the external rval evaluator; the CST core neither reads nor writes
	// them (§3's "regex captures" bag member).
	RegexCaptures []string

	// Trace enables per-statement trace logging (§4.4): each statement's Go
	// type name is logged through cst.Options.Logger at Debug level rather
	// than printed to stderr, see
	// SPEC_FULL.md's Ambient Stack / Logging section.
	Trace bool

	TypeInferencingMode int // mirrors rval.TypeInferencing, kept as int to avoid importing rval here

	// CurrentOutputs holds the active per-record *cst.Outputs as an opaque
	// value — internal/runtime cannot import internal/cst without a cycle.
	// It exists only so a user-defined function invoked from inside an
	// expression (via the external rval evaluator, whose Process(vars)
	// signature carries no separate outputs parameter per spec.md §6) can
	// still reach the record driver's sink list from emit/tee/dump
	// statements in its body; internal/cst sets it once per begin/main/end
	// invocation and casts it back on the way in.
	CurrentOutputs interface{}
}

// SetOutputs installs the active per-invocation outputs value.
func (v *Vars) SetOutputs(out interface{}) { v.CurrentOutputs = out }

// NewVars returns a fresh variables bag for one script invocation (shared
// across begin, every record's main pass, and end — spec.md §3 "Lifecycle").
func NewVars() *Vars {
	return &Vars{
		Rec:    NewSrec(),
		Oosvar: mlhmmv.NewMap(),
		Frames: &frame.Stack{},
	}
}

// GetField reads $name, inferring its type per the active type_inferencing
// mode. Absent if the field does not exist. Consulted by the external rval
// evaluator when it builds a field-read expression.
func (v *Vars) GetField(name string) mlrval.Mlrval {
	s, ok := v.Rec.Get(name)
	if !ok {
		return mlrval.Absent()
	}
	return mlrval.InferFromString(s, v.TypeInferencingMode)
}

// GetLocal reads the current frame's slot.
func (v *Vars) GetLocal(slot int) mlrval.Mlrval {
	f := v.Frames.Top()
	if f == nil {
		return mlrval.Absent()
	}
	return f.Get(slot)
}

// SetLocal stores into the current frame's slot, enforcing idx's type mask.
func (v *Vars) SetLocal(slot int, val mlrval.Mlrval) error {
	f := v.Frames.Top()
	if f == nil {
		return nil
	}
	return f.Set(slot, val)
}

// OosvarRoot returns the process-wide oosvar root for the rval evaluator's
// "@x" reads.
func (v *Vars) OosvarRoot() interface{} { return v.Oosvar }

// PushLoop pushes a fresh loop-flag entry for a newly entered loop (§3, §4.3).
func (v *Vars) PushLoop() { v.loopFlags = append(v.loopFlags, 0) }

// PopLoop pops the innermost loop-flag entry. Per invariant #3 (§8), the
// popped entry's flags should already be clear except BROKEN, which the loop
// itself clears "when terminating" — PopLoop clears it unconditionally so
// the invariant always holds after a loop returns control to its caller.
func (v *Vars) PopLoop() {
	n := len(v.loopFlags)
	if n == 0 {
		return
	}
	v.loopFlags = v.loopFlags[:n-1]
}

// SetBreak sets the BROKEN bit on the innermost loop.
func (v *Vars) SetBreak() { v.setLoopBit(Broken) }

// SetContinue sets the CONTINUED bit on the innermost loop.
func (v *Vars) SetContinue() { v.setLoopBit(Continued) }

func (v *Vars) setLoopBit(bit LoopFlags) {
	n := len(v.loopFlags)
	if n == 0 {
		return
	}
	v.loopFlags[n-1] |= bit
}

// ClearContinue clears the CONTINUED bit on the innermost loop, done "at the
// bottom of each iteration" per §3.
func (v *Vars) ClearContinue() {
	n := len(v.loopFlags)
	if n == 0 {
		return
	}
	v.loopFlags[n-1] &^= Continued
}

// Broken reports whether the innermost loop's BROKEN bit is set.
func (v *Vars) Broken() bool { return v.innermostHas(Broken) }

// Continued reports whether the innermost loop's CONTINUED bit is set.
func (v *Vars) Continued() bool { return v.innermostHas(Continued) }

// LoopSignaled reports whether either bit is set on the innermost loop; used
// by the loop-aware block executor (§4.4) to decide whether to stop.
func (v *Vars) LoopSignaled() bool { return v.innermostHas(Broken | Continued) }

func (v *Vars) innermostHas(bits LoopFlags) bool {
	n := len(v.loopFlags)
	if n == 0 {
		return false
	}
	return v.loopFlags[n-1]&bits != 0
}

// SetReturn sets the return flag and, for UDFs, stashes the return value
// (§3, §4.3.6). A bare "return" (subroutine) passes mlrval.Absent().
func (v *Vars) SetReturn(val mlrval.Mlrval) {
	v.returnSet = true
	v.returnValue = val
}

// ReturnSet reports whether a return statement has fired in the current
// call.
func (v *Vars) ReturnSet() bool { return v.returnSet }

// ClearReturn resets the return flag; called on subroutine/UDF entry (§4.3.6)
// and is the mechanism behind invariant #4 (§8): "After any subroutine/UDF
// returns, the return flag is cleared before the next caller statement
// runs."
func (v *Vars) ClearReturn() {
	v.returnSet = false
	v.returnValue = mlrval.Absent()
}

// ReturnValue returns the stashed return value (defaulting to absent if
// return was never called before the callee finished, per §4.3.6).
func (v *Vars) ReturnValue() mlrval.Mlrval { return v.returnValue }

// SetEnv implements the "ENV[\"X\"] = e" assignment (§4.3.1).
func (v *Vars) SetEnv(name, value string) error { return os.Setenv(name, value) }

// GetEnv reads a process environment variable, used by the rval evaluator
// for ENV["X"] reads (outside this package's scope, but the accessor lives
// here alongside SetEnv for symmetry).
func (v *Vars) GetEnv(name string) (string, bool) { return os.LookupEnv(name) }

// DeclMaskOf is a small helper so internal/cst can read a node's declared
// mask without importing ast.TypeMask's zero-value ambiguity directly —
// kept here because Vars is the thing that ultimately calls frame.Set.
func DeclMaskOf(n *ast.Node) ast.TypeMask { return n.DeclMask }

// Package diag provides the static build-error type used by the stack
// allocator and CST builder (spec.md §7: "Static build errors (fatal,
// reported with the offending token and source location)"). Grounded on the
// teacher's ad hoc fmt.Errorf("...at line %d:%d", ...) calls throughout
// ir/validate.go, generalized into one structured type wrapped with
// github.com/pkg/errors so a caller can retrieve the original cause as well
// as print a human-readable message.
package diag

import (
	"fmt"

	"github.com/pkg/errors"
)

// Rule identifies which contextual validation rule (§4.2, R1-R7) or
// allocator check (§4.1) produced the diagnostic.
type Rule string

const (
	RuleNone              Rule = ""
	RuleR1SrecInBeginEnd   Rule = "R1"
	RuleR2WriteInFuncDef   Rule = "R2"
	RuleR3BreakOutsideLoop Rule = "R3"
	RuleR4ReturnShape      Rule = "R4"
	RuleR5TopLevelOnly     Rule = "R5"
	RuleR6FilterKeyword    Rule = "R6"
	RuleR7FilterShape      Rule = "R7"
	RuleRedeclaration      Rule = "redeclaration"
	RuleUnresolvedName     Rule = "unresolved-name"
	RuleArityMismatch      Rule = "arity-mismatch"
)

// Location is a source position, independent of internal/dsl/ast so this
// package never needs to import it.
type Location struct {
	Line int
	Col  int
}

func (l Location) String() string { return fmt.Sprintf("%d:%d", l.Line, l.Col) }

// BuildError is a fatal static-build diagnostic (§7).
type BuildError struct {
	Rule      Rule
	Construct string // the offending construct's text/token
	Loc       Location
	cause     error
}

func (e *BuildError) Error() string {
	if e.Rule == RuleNone {
		return fmt.Sprintf("%s at %s", e.Construct, e.Loc)
	}
	return fmt.Sprintf("[%s] %s at %s", e.Rule, e.Construct, e.Loc)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *BuildError) Unwrap() error { return e.cause }

// New returns a BuildError for rule violated by construct at loc.
func New(rule Rule, construct string, loc Location) *BuildError {
	return &BuildError{Rule: rule, Construct: construct, Loc: loc}
}

// Wrap attaches rule/construct/loc context to an underlying error (e.g. an
// allocator or builder error bubbling up through several call frames),
// mirroring github.com/pkg/errors.Wrapf's "annotate as it propagates" idiom.
func Wrap(cause error, rule Rule, construct string, loc Location) *BuildError {
	return &BuildError{
		Rule:      rule,
		Construct: construct,
		Loc:       loc,
		cause:     errors.Wrapf(cause, "%s", construct),
	}
}

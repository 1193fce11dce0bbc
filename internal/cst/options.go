package cst

import (
	"io"

	"go.uber.org/zap"

	"github.com/ichobits/miller/internal/rval"
	"github.com/ichobits/miller/internal/writer"
)

// Options bundles every build-time and run-time knob the CST needs,
// mirroring the teacher's single-struct util.Options convention
// (util/args.go's Options, threaded everywhere by reference) generalized
// from "one config per compiler invocation" to "one config per script
// build" per spec.md §6's cst_alloc signature.
type Options struct {
	TypeInferencing        rval.TypeInferencing
	FlushEveryRecord        bool
	DoFinalFilter          bool
	NegateFinalFilter      bool
	PrintAST               bool
	TraceStackAllocation   bool
	Trace                  bool // per-statement trace flag for the driver; Alloc does not read it (tracing follows runtime.Vars.Trace)
	OosvarFlattenSeparator string
	Threads                int // parallel validation/allocation worker count

	// Logger receives structured diagnostics (build warnings, trace-mode
	// statement printing). Defaults to a no-op logger so library use
	// without explicit configuration stays silent, matching the teacher's
	// "quiet unless -vb" convention (util.Options.Verbose).
	Logger *zap.SugaredLogger
}

// DefaultOptions returns an Options with a no-op logger and a sane default
// flatten separator.
func DefaultOptions() Options {
	return Options{
		OosvarFlattenSeparator: ":",
		Logger:                 zap.NewNop().Sugar(),
	}
}

func (o Options) logger() *zap.SugaredLogger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop().Sugar()
}

// Collaborators bundles the three external interfaces the CST builder
// consumes (§6): function resolution, scalar-expression construction, and
// literal-string-key construction.
type Collaborators struct {
	FunctionManager rval.FunctionManager
	Builder         rval.Builder
	StringBuilder   rval.StringBuilder
}

// NewSinks is a convenience re-export so callers of this package don't also
// need to import internal/writer just to construct the Outputs'
// destination.
func NewSinks(stdout, stderr io.Writer) *writer.Sinks {
	return writer.NewSinks(stdout, stderr)
}

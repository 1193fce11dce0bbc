package cst

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ichobits/miller/internal/runtime"
)

// traceLogger is the statement-level trace sink (SPEC_FULL.md's Ambient
// Stack / Logging section: trace-mode statement printing goes through the
// structured logger at Debug level rather than a bare stderr print,
// generalizing the teacher's -ast/-verbose flag printing in util/args.go).
// It defaults to a no-op logger so a Block built without going through
// Alloc (e.g. in unit tests) never panics on a nil logger.
var traceLogger *zap.SugaredLogger = zap.NewNop().Sugar()

// SetTraceLogger installs the logger used by traceStatement. Alloc calls
// this once per build from the supplied Options.
func SetTraceLogger(l *zap.SugaredLogger) {
	if l != nil {
		traceLogger = l
	}
}

// traceStatement logs one statement immediately before it executes (§4.4).
// stmt is logged by its dynamic type name, since Statement carries no other
// self-description — sufficient for the trace's purpose of showing control
// flow through the tree.
func traceStatement(vars *runtime.Vars, stmt Statement) {
	traceLogger.Debugw("exec", "statement", statementLabel(stmt))
}

func statementLabel(stmt Statement) string {
	if n, ok := stmt.(interface{ traceLabel() string }); ok {
		return n.traceLabel()
	}
	return fmt.Sprintf("%T", stmt)
}

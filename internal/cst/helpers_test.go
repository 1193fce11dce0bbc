package cst

import (
	"github.com/ichobits/miller/internal/mlrval"
	"github.com/ichobits/miller/internal/runtime"
)

// literalEval is a fixed-value rval.Evaluator stand-in, used throughout this
// package's tests in place of the out-of-scope expression builder: every
// test here exercises the CST executor directly, never the builder, so a
// constant evaluator is all a keylist/name/arg expression needs.
type literalEval struct{ v mlrval.Mlrval }

func lit(v mlrval.Mlrval) literalEval { return literalEval{v: v} }

func (e literalEval) Process(vars *runtime.Vars) mlrval.Mlrval { return e.v }
func (e literalEval) Free()                                    {}

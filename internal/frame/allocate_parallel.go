package frame

import (
	"context"

	"github.com/ichobits/miller/internal/dsl/ast"
	"golang.org/x/sync/errgroup"
)

// AllocateProgramParallel runs the stack-allocate pass the same way as
// AllocateProgram, but checks independent top-level blocks (begin/main/end
// and every func/subr body are allocated from an empty scope chain each, so
// they never share mutable state) concurrently across threads workers. This
// generalizes the teacher's hand-rolled WaitGroup+mutex+error-slice worker
// pool (ir/validate.go's ValidateTree, ir/optimise.go's Optimise) into
// golang.org/x/sync/errgroup, per DESIGN.md's domain-stack wiring: the first
// error from any worker is returned. Workers do not watch the group's
// context, so the other blocks are still allocated after an error.
func AllocateProgramParallel(prog *ast.Node, threads int) error {
	if threads <= 1 {
		return AllocateProgram(prog)
	}

	tops := make([]*ast.Node, 0, len(prog.Children))
	for _, top := range prog.Children {
		if top.IsTopLevelBlock() {
			tops = append(tops, top)
		}
	}
	if threads > len(tops) {
		threads = len(tops)
	}
	if threads < 1 {
		return nil
	}

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(threads)
	for _, top := range tops {
		top := top
		g.Go(func() error {
			a := NewAllocator()
			if err := a.walkTopLevel(top); err != nil {
				return err
			}
			top.MaxVarDepth = a.maxVar
			return nil
		})
	}
	return g.Wait()
}

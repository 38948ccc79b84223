package jobs

import (
	"context"

	"github.com/sevigo/ci-warden/internal/core"
)

// Pipeline is the queue handler: every job passes the short-circuit check
// before its tests are run.
type Pipeline struct {
	shortCircuit *ShortCircuit
	runner       *TestRunner
}

// NewPipeline creates a Pipeline.
func NewPipeline(shortCircuit *ShortCircuit, runner *TestRunner) *Pipeline {
	return &Pipeline{shortCircuit: shortCircuit, runner: runner}
}

// Handle satisfies core.HandlerFn.
func (p *Pipeline) Handle(ctx context.Context, job *core.Job) {
	p.shortCircuit.Handle(ctx, job, p.runner.Run)
}

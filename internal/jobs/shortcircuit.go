// Package jobs implements the handlers that process queued test jobs.
package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/util"
)

// RunFunc executes the tests for a job and marks it done.
type RunFunc func(ctx context.Context, job *core.Job)

// ShortCircuit completes jobs from an existing test record instead of
// running the tests again, unless the job is forced.
type ShortCircuit struct {
	store  core.RecordStore
	queue  core.JobQueue
	logger *slog.Logger
}

// NewShortCircuit creates a ShortCircuit reading records from store. queue is
// optional; when set, pending duplicates of every handled job are unforced.
func NewShortCircuit(store core.RecordStore, queue core.JobQueue, logger *slog.Logger) *ShortCircuit {
	if logger == nil {
		logger = slog.Default()
	}
	return &ShortCircuit{store: store, queue: queue, logger: logger}
}

// Handle either completes job from its stored record or calls run, never both.
func (s *ShortCircuit) Handle(ctx context.Context, job *core.Job, run RunFunc) {
	data := job.Data
	if data.Force == nil {
		force := false
		data.Force = &force
	}

	logger := s.logger.With("job_id", job.ID, "sha", util.ShortID(data.SHA, 0))

	// duplicates complete from whatever record this job leaves behind
	if s.queue != nil {
		if n := s.queue.Unforce(data.SHA, job); n > 0 {
			logger.Debug("unforced pending duplicates", "count", n)
		}
	}

	if data.IsForced() {
		logger.Info("forced job, running tests")
		run(ctx, job)
		return
	}

	if !util.IsSHA(data.SHA) {
		logger.Warn("malformed commit sha, skipping record lookup")
		run(ctx, job)
		return
	}

	rec, err := s.store.LoadRecord(ctx, data.SHA)
	switch {
	case err == nil:
		logger.Info("test record found, skipping run", "status", rec.Status)
		job.Resolve(rec.Outcome())
		job.Done(nil)
		return
	case errors.Is(err, core.ErrRecordNotFound):
		logger.Debug("no test record found")
	default:
		logger.Warn("failed to load test record, running tests", "error", err)
	}

	run(ctx, job)
}

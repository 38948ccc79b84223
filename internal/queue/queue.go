// Package queue provides the in-process FIFO job queue drained by a single worker.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/util"
)

var (
	// ErrQueueFull is returned by Enqueue when the queue is at capacity.
	ErrQueueFull = errors.New("job queue is full, cannot accept new job")
	// ErrNoHandler is returned by Run when Process was never called.
	ErrNoHandler = errors.New("no job handler registered")
)

// Listener is notified when a job is marked done.
type Listener func(job *core.Job, err error)

// Queue implements core.JobQueue. Jobs are handed to the handler one at a time
// and the next job is only taken once the current one is done.
type Queue struct {
	mu       sync.Mutex
	pending  []*core.Job // Jobs waiting to be processed, oldest first.
	capacity int         // Maximum number of pending jobs.
	signal   chan struct{}

	handler    core.HandlerFn
	onError    []Listener
	onComplete []Listener

	logger *slog.Logger
}

// New creates a queue holding at most capacity pending jobs.
// If capacity is 0 or negative, it defaults to 100.
func New(capacity int, logger *slog.Logger) *Queue {
	if capacity <= 0 {
		capacity = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		capacity: capacity,
		signal:   make(chan struct{}, 1),
		logger:   logger,
	}
}

// Process registers the handler invoked for each job.
func (q *Queue) Process(fn core.HandlerFn) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = fn
}

// OnError registers a listener called for every job completed with an error.
func (q *Queue) OnError(fn Listener) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onError = append(q.onError, fn)
}

// OnComplete registers a listener called for every completed job.
func (q *Queue) OnComplete(fn Listener) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onComplete = append(q.onComplete, fn)
}

// Enqueue creates a job for data and appends it to the queue.
func (q *Queue) Enqueue(_ context.Context, data *core.JobData) (*core.Job, error) {
	if data == nil {
		return nil, &core.MissingFieldError{Field: "data"}
	}

	q.mu.Lock()
	if len(q.pending) >= q.capacity {
		q.mu.Unlock()
		return nil, ErrQueueFull
	}
	job := core.NewJob(uuid.NewString(), data, q.finish)
	q.pending = append(q.pending, job)
	q.mu.Unlock()

	q.logger.Info("job queued", "job_id", job.ID, "sha", util.ShortID(data.SHA, 0))

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return job, nil
}

// Pending returns copies of the jobs waiting to be processed.
func (q *Queue) Pending() []core.PendingJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]core.PendingJob, 0, len(q.pending))
	for _, job := range q.pending {
		out = append(out, job.Snapshot())
	}
	return out
}

// Len returns the number of jobs waiting to be processed.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Unforce sets the force flag of the pending jobs for sha, except the given
// one, to false so they complete from the record of the current run.
func (q *Queue) Unforce(sha string, except *core.Job) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, job := range q.pending {
		if job == except || job.Data.SHA != sha {
			continue
		}
		force := false
		job.Data.Force = &force
		n++
	}
	return n
}

// Run drains the queue until ctx is canceled.
func (q *Queue) Run(ctx context.Context) error {
	q.mu.Lock()
	handler := q.handler
	q.mu.Unlock()
	if handler == nil {
		return ErrNoHandler
	}

	q.logger.Info("starting queue worker")
	defer q.logger.Info("queue worker stopped")

	for {
		job := q.next()
		if job == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-q.signal:
				continue
			}
		}

		q.process(ctx, handler, job)

		select {
		case <-job.Finished():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (q *Queue) next() *core.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	job := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return job
}

// process runs the handler, turning a panic into a failed job.
func (q *Queue) process(ctx context.Context, handler core.HandlerFn, job *core.Job) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("job handler panicked", "job_id", job.ID, "panic", r)
			job.Done(fmt.Errorf("job handler panicked: %v", r))
		}
	}()

	q.logger.Info("processing job", "job_id", job.ID, "sha", util.ShortID(job.Data.SHA, 0))
	handler(ctx, job)
}

// finish is the completion callback of every job created by the queue.
func (q *Queue) finish(job *core.Job, err error) {
	q.mu.Lock()
	onError := append([]Listener(nil), q.onError...)
	onComplete := append([]Listener(nil), q.onComplete...)
	q.mu.Unlock()

	if err != nil {
		q.logger.Error("job failed", "job_id", job.ID, "sha", util.ShortID(job.Data.SHA, 0), "error", err)
		for _, fn := range onError {
			fn(job, err)
		}
	} else {
		q.logger.Info("job completed", "job_id", job.ID, "sha", util.ShortID(job.Data.SHA, 0))
	}
	for _, fn := range onComplete {
		fn(job, err)
	}
}

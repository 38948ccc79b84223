// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import (
	"context"
	"sync"
	"time"
)

// JobData is the request carried by a queued job. It is created by an external
// trigger (a webhook or a badge request) and handed by reference to the job
// handlers, which may normalize it in place.
type JobData struct {
	SHA string `json:"sha"`
	// Force bypasses the record cache. Nil means the flag was never set; the
	// short-circuit step normalizes it to false before doing anything else.
	Force *bool `json:"force,omitempty"`

	Owner  string `json:"owner,omitempty"`
	Repo   string `json:"repo,omitempty"`
	Branch string `json:"branch,omitempty"`
	// Base is the commit a pull request is merged into, used to compare coverage.
	Base string `json:"base,omitempty"`

	// SkipPost suppresses commit status updates, e.g. for badge-triggered jobs.
	SkipPost bool `json:"skip_post,omitempty"`
}

// IsForced reports whether the force flag is explicitly set to true.
func (d *JobData) IsForced() bool {
	return d.Force != nil && *d.Force
}

// clone returns a copy of d that shares no memory with it.
func (d *JobData) clone() JobData {
	c := *d
	if d.Force != nil {
		force := *d.Force
		c.Force = &force
	}
	return c
}

// PendingJob is a copy of a queued job taken while the queue was locked.
// It is safe to read while the queue keeps running.
type PendingJob struct {
	ID        string
	Data      JobData
	CreatedAt time.Time
}

// Snapshot copies the job's identity and request. Callers must make sure the
// data is not being modified concurrently.
func (j *Job) Snapshot() PendingJob {
	return PendingJob{ID: j.ID, Data: j.Data.clone(), CreatedAt: j.CreatedAt}
}

// Job is a single unit of work owned by the job queue for its lifetime.
type Job struct {
	ID        string
	Data      *JobData
	CreatedAt time.Time

	mu       sync.Mutex
	outcome  *Outcome
	err      error
	once     sync.Once
	finished chan struct{}
	complete func(*Job, error)
}

// NewJob creates a job. complete, when non-nil, is invoked exactly once when
// the job is marked done.
func NewJob(id string, data *JobData, complete func(*Job, error)) *Job {
	if data == nil {
		data = &JobData{}
	}
	return &Job{
		ID:        id,
		Data:      data,
		CreatedAt: time.Now(),
		finished:  make(chan struct{}),
		complete:  complete,
	}
}

// Resolve records the outcome of the job. A later call replaces an earlier one.
func (j *Job) Resolve(o Outcome) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outcome = &o
}

// Result returns the resolved outcome and whether the job has been resolved.
func (j *Job) Result() (Outcome, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.outcome == nil {
		return Outcome{}, false
	}
	return *j.outcome, true
}

// Done marks the job as complete. Only the first call has any effect.
func (j *Job) Done(err error) {
	j.once.Do(func() {
		j.mu.Lock()
		j.err = err
		j.mu.Unlock()
		close(j.finished)
		if j.complete != nil {
			j.complete(j, err)
		}
	})
}

// Finished is closed once Done has been called.
func (j *Job) Finished() <-chan struct{} {
	return j.finished
}

// Err returns the error the job was completed with, if any.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// HandlerFn processes a single job. Implementations must eventually call
// job.Done; the queue does not take the next job until they do.
type HandlerFn func(ctx context.Context, job *Job)

// Enqueuer accepts new jobs. It decouples job producers, like the webhook
// handler and the badge synthesizer, from the queue implementation.
//
//go:generate mockgen -destination=../../mocks/mock_enqueuer.go -package=mocks . Enqueuer
type Enqueuer interface {
	// Enqueue places a new job for data on the queue. It returns an error if
	// the job cannot be queued, for example if the queue is full.
	Enqueue(ctx context.Context, data *JobData) (*Job, error)
}

// JobQueue is an Enqueuer that also exposes the jobs waiting to be processed.
type JobQueue interface {
	Enqueuer
	// Pending returns copies of the jobs that have not been started yet,
	// in processing order.
	Pending() []PendingJob
	// Unforce clears the force flag of every pending job for sha other than
	// except and returns how many were changed.
	Unforce(sha string, except *Job) int
}

// StatusNotifier reports job progress to the code host.
//
//go:generate mockgen -destination=../../mocks/mock_status_notifier.go -package=mocks . StatusNotifier
type StatusNotifier interface {
	Pending(ctx context.Context, job *Job) error
	Completed(ctx context.Context, job *Job) error
}

package jobs

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/util"
)

// Process is a running test process that can be terminated.
// *os.Process satisfies it.
type Process interface {
	Kill() error
}

const (
	deadlineArmed int32 = iota
	deadlineStopped
	deadlineFired
)

// Deadline is a single armed timeout returned by JobTimer.Start.
// It resolves exactly once: either Stop wins or the timeout fires.
type Deadline struct {
	state atomic.Int32
	timer *clock.Timer
}

// Stop cancels the deadline. It reports whether this call prevented the
// timeout; stopping a fired or already stopped deadline does nothing.
func (d *Deadline) Stop() bool {
	if !d.state.CompareAndSwap(deadlineArmed, deadlineStopped) {
		return false
	}
	d.timer.Stop()
	return true
}

// Fired reports whether the timeout won the race against Stop.
func (d *Deadline) Fired() bool {
	return d.state.Load() == deadlineFired
}

// JobTimer supervises test processes with a hard timeout.
type JobTimer struct {
	clock   clock.Clock
	timeout time.Duration
	logger  *slog.Logger
}

// NewJobTimer creates a timer killing processes after timeout.
// A nil clk uses the wall clock.
func NewJobTimer(clk clock.Clock, timeout time.Duration, logger *slog.Logger) *JobTimer {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JobTimer{clock: clk, timeout: timeout, logger: logger}
}

// Timeout returns the configured timeout.
func (t *JobTimer) Timeout() time.Duration {
	return t.timeout
}

// WithTimeout returns a timer sharing t's clock but using a different timeout.
// Non-positive values keep the current one.
func (t *JobTimer) WithTimeout(d time.Duration) *JobTimer {
	if d <= 0 {
		return t
	}
	return &JobTimer{clock: t.clock, timeout: d, logger: t.logger}
}

// Start arms a deadline for proc. When it expires before Stop is called the
// process is killed, the job is resolved as an error, and onTimeout receives
// a *core.TimeoutExceededError.
func (t *JobTimer) Start(job *core.Job, proc Process, onTimeout func(error)) *Deadline {
	d := &Deadline{}
	d.timer = t.clock.AfterFunc(t.timeout, func() {
		if !d.state.CompareAndSwap(deadlineArmed, deadlineFired) {
			return
		}

		sha := job.Data.SHA
		t.logger.Warn("test run exceeded timeout, killing process",
			"job_id", job.ID,
			"sha", util.ShortID(sha, 0),
			"timeout", t.timeout,
		)
		if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			t.logger.Error("failed to kill test process", "job_id", job.ID, "error", err)
		}

		job.Resolve(core.Outcome{
			Status:      core.StatusError,
			Description: stalledDescription(t.timeout),
		})
		if onTimeout != nil {
			onTimeout(&core.TimeoutExceededError{SHA: sha, Timeout: t.timeout})
		}
	})
	return d
}

func stalledDescription(timeout time.Duration) string {
	return fmt.Sprintf("Tests stalled after ~%d min", int64(math.Round(timeout.Minutes())))
}

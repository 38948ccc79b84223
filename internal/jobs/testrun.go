package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/sevigo/ci-warden/internal/config"
	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/util"
)

var coverageRegexp = regexp.MustCompile(`coverage:\s*([0-9]+(?:\.[0-9]+)?)%`)

// Workspace provides the working copy a job's tests run in.
type Workspace interface {
	// Prepare checks out the job's commit and returns the directory to run in.
	Prepare(ctx context.Context, data *core.JobData) (string, error)
}

// TestRunner runs the configured test command for a job's commit and records
// the outcome.
type TestRunner struct {
	cfg       config.RunnerConfig
	store     core.RecordStore
	notifier  core.StatusNotifier
	workspace Workspace
	timer     *JobTimer
	logger    *slog.Logger
}

// NewTestRunner creates a TestRunner. notifier and workspace may be nil, in
// which case no pending status is posted and the tests run in cfg.RepoPath as is.
func NewTestRunner(
	cfg config.RunnerConfig,
	store core.RecordStore,
	notifier core.StatusNotifier,
	workspace Workspace,
	timer *JobTimer,
	logger *slog.Logger,
) *TestRunner {
	if logger == nil {
		logger = slog.Default()
	}
	if timer == nil {
		timer = NewJobTimer(nil, cfg.Timeout, logger)
	}
	return &TestRunner{
		cfg:       cfg,
		store:     store,
		notifier:  notifier,
		workspace: workspace,
		timer:     timer,
		logger:    logger,
	}
}

// Run executes the tests for job, saves the record and marks the job done.
func (r *TestRunner) Run(ctx context.Context, job *core.Job) {
	data := job.Data
	logger := r.logger.With("job_id", job.ID, "sha", util.ShortID(data.SHA, 0))

	outcome, runErr := r.execute(ctx, job, logger)
	if outcome == nil {
		// skipped or canceled, nothing to record
		if runErr != nil {
			logger.Warn("test run abandoned, no record saved", "error", runErr)
		}
		job.Done(runErr)
		return
	}

	if data.Base != "" && outcome.Coverage != nil {
		outcome.Description = r.describeCoverage(ctx, data.Base, *outcome, logger)
	}
	job.Resolve(*outcome)

	// the record must outlive a shutdown that cancels ctx
	saveCtx := context.WithoutCancel(ctx)
	if err := r.store.SaveRecord(saveCtx, core.NewTestRecord(data.SHA, *outcome)); err != nil {
		logger.Error("failed to save test record", "error", err)
		if runErr == nil {
			runErr = fmt.Errorf("failed to save test record: %w", err)
		}
	}

	logger.Info("test run finished", "status", outcome.Status, "description", outcome.Description)
	job.Done(runErr)
}

// execute returns a nil outcome when the job's branch is not tested or ctx
// was canceled before the tests finished.
func (r *TestRunner) execute(ctx context.Context, job *core.Job, logger *slog.Logger) (*core.Outcome, error) {
	data := job.Data

	dir := r.cfg.RepoPath
	if r.workspace != nil {
		var err error
		dir, err = r.workspace.Prepare(ctx, data)
		if err != nil && ctx.Err() != nil {
			return nil, canceled(ctx)
		}
		if err != nil {
			logger.Error("failed to prepare working tree", "error", err)
			return errorOutcome("Failed to check out commit"), fmt.Errorf("failed to prepare working tree: %w", err)
		}
	}

	repoCfg, err := config.LoadRepoConfig(dir)
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		logger.Error("failed to load repository config", "error", err)
		return errorOutcome("Invalid " + config.RepoConfigFile), err
	}
	if !repoCfg.TestsBranch(data.Branch) {
		logger.Info("branch not configured for testing, skipping", "branch", data.Branch)
		return nil, nil
	}

	if !data.SkipPost && r.notifier != nil {
		if err := r.notifier.Pending(ctx, job); err != nil {
			logger.Warn("failed to post pending status", "error", err)
		}
	}

	return r.runCommand(ctx, job, dir, repoCfg, logger)
}

func (r *TestRunner) runCommand(ctx context.Context, job *core.Job, dir string, repoCfg *config.RepoConfig, logger *slog.Logger) (*core.Outcome, error) {
	data := job.Data

	command := r.cfg.Command
	if repoCfg.Command != "" {
		command = repoCfg.Command
	}
	args, err := shellquote.Split(command)
	if err != nil {
		return errorOutcome("Invalid test command"), fmt.Errorf("failed to parse test command %q: %w", command, err)
	}
	if len(args) == 0 {
		return errorOutcome("Invalid test command"), &core.MissingFieldError{Field: "command"}
	}

	logFile, closeLog, err := r.openLog(data.SHA)
	if err != nil {
		logger.Error("failed to open test log", "error", err)
		return errorOutcome("Failed to open test log"), err
	}
	defer closeLog()

	coverage := &coverageScanner{}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Env = r.environ(data, repoCfg)
	cmd.Stdout = io.MultiWriter(logFile, coverage)
	cmd.Stderr = cmd.Stdout
	// children of a killed process may hold the output pipe open
	cmd.WaitDelay = 5 * time.Second

	logger.Info("starting tests", "command", args[0], "args", len(args)-1)
	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return nil, canceled(ctx)
		}
		return errorOutcome("Failed to start tests"), fmt.Errorf("failed to start test command: %w", err)
	}

	timeouts := make(chan error, 1)
	deadline := r.timer.WithTimeout(repoCfg.Timeout).Start(job, cmd.Process, func(err error) {
		timeouts <- err
	})
	waitErr := cmd.Wait()
	if !deadline.Stop() {
		// the deadline fired and resolved the job
		timeoutErr := <-timeouts
		outcome, _ := job.Result()
		return &outcome, timeoutErr
	}

	if ctx.Err() != nil {
		return nil, canceled(ctx)
	}

	outcome := &core.Outcome{Coverage: coverage.Coverage()}
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		outcome.Status = core.StatusSuccess
		outcome.Description = "All tests passed"
	case errors.As(waitErr, &exitErr):
		outcome.Status = core.StatusFailure
		outcome.Description = fmt.Sprintf("Tests failed with exit code %d", exitErr.ExitCode())
	default:
		return errorOutcome("Failed to run tests"), fmt.Errorf("failed to wait for test command: %w", waitErr)
	}
	if outcome.Coverage != nil {
		outcome.Description += ", coverage " + util.FormatPercent(*outcome.Coverage)
	}
	return outcome, nil
}

// describeCoverage appends the coverage change against the base commit's record.
func (r *TestRunner) describeCoverage(ctx context.Context, base string, outcome core.Outcome, logger *slog.Logger) string {
	rec, err := r.store.LoadRecord(ctx, base)
	if err != nil {
		if !errors.Is(err, core.ErrRecordNotFound) {
			logger.Warn("failed to load base record", "base", util.ShortID(base, 0), "error", err)
		}
		return outcome.Description
	}
	if rec.Coverage == nil {
		return outcome.Description
	}

	delta := *outcome.Coverage - *rec.Coverage
	sign := "+"
	if delta < 0 {
		sign = "-"
		delta = -delta
	}
	return fmt.Sprintf("%s (%s%s vs %s)", outcome.Description, sign, util.FormatPercent(delta), util.ShortID(base, 0))
}

func (r *TestRunner) openLog(sha string) (io.Writer, func(), error) {
	path, err := LogPath(r.cfg.LogDir, sha)
	if err != nil || r.cfg.LogDir == "" {
		return io.Discard, func() {}, nil
	}
	if err := os.MkdirAll(r.cfg.LogDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create log file: %w", err)
	}
	return f, func() {
		if err := f.Close(); err != nil {
			r.logger.Warn("failed to close test log", "path", path, "error", err)
		}
	}, nil
}

func (r *TestRunner) environ(data *core.JobData, repoCfg *config.RepoConfig) []string {
	env := os.Environ()
	for k, v := range r.cfg.Env {
		env = append(env, k+"="+v)
	}
	for k, v := range repoCfg.Env {
		env = append(env, k+"="+v)
	}
	return append(env,
		"CI=true",
		"CI_COMMIT_SHA="+data.SHA,
		"CI_BRANCH="+data.Branch,
		"CI_FORCED="+strconv.FormatBool(data.IsForced()),
	)
}

// LogPath returns the file holding the captured output of the run for sha.
func LogPath(dir, sha string) (string, error) {
	if !util.IsSHA(sha) {
		return "", &core.InvalidFieldValueError{Field: "sha", Value: sha, Expected: []string{"40 hex characters"}}
	}
	return filepath.Join(dir, sha+".log"), nil
}

// ParseCoverage returns the last coverage percentage reported in output, or
// nil when there is none.
func ParseCoverage(output string) *float64 {
	matches := coverageRegexp.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return nil
	}
	v, err := strconv.ParseFloat(matches[len(matches)-1][1], 64)
	if err != nil {
		return nil
	}
	return &v
}

// maxLineLength bounds the part of a single output line kept for coverage
// parsing; longer lines keep their tail.
const maxLineLength = 64 * 1024

// coverageScanner remembers the last coverage percentage in the output
// written to it. Only the current line is buffered.
type coverageScanner struct {
	line []byte
	last *float64
}

func (c *coverageScanner) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			c.line = append(c.line, p...)
			if over := len(c.line) - maxLineLength; over > 0 {
				c.line = append(c.line[:0], c.line[over:]...)
			}
			break
		}
		c.line = append(c.line, p[:i]...)
		c.endLine()
		p = p[i+1:]
	}
	return n, nil
}

func (c *coverageScanner) endLine() {
	if v := ParseCoverage(string(c.line)); v != nil {
		c.last = v
	}
	c.line = c.line[:0]
}

// Coverage returns the last coverage percentage seen, including one on an
// unterminated final line.
func (c *coverageScanner) Coverage() *float64 {
	if len(c.line) > 0 {
		c.endLine()
	}
	return c.last
}

func canceled(ctx context.Context) error {
	return fmt.Errorf("test run canceled: %w", ctx.Err())
}

func errorOutcome(description string) *core.Outcome {
	return &core.Outcome{Status: core.StatusError, Description: description}
}

package github

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/util"
)

// GitHub rejects longer status descriptions.
const maxDescriptionLength = 140

// StatusNotifier posts commit statuses for jobs. It implements core.StatusNotifier.
type StatusNotifier struct {
	client        Client
	statusContext string
	baseURL       string
}

// NewStatusNotifier creates a StatusNotifier. Statuses link to the job log
// served below baseURL.
func NewStatusNotifier(client Client, statusContext, baseURL string) *StatusNotifier {
	return &StatusNotifier{
		client:        client,
		statusContext: statusContext,
		baseURL:       strings.TrimSuffix(baseURL, "/"),
	}
}

// Pending marks the job's commit as being tested.
func (n *StatusNotifier) Pending(ctx context.Context, job *core.Job) error {
	return n.post(ctx, job, core.StatusPending, "Running tests")
}

// Completed posts the job's outcome. A job that finished without an outcome
// and without an error was skipped and gets no status.
func (n *StatusNotifier) Completed(ctx context.Context, job *core.Job) error {
	outcome, ok := job.Result()
	if !ok {
		if job.Err() == nil {
			return nil
		}
		outcome = core.Outcome{Status: core.StatusError, Description: "Test run failed"}
	}
	return n.post(ctx, job, outcome.Status, outcome.Description)
}

func (n *StatusNotifier) post(ctx context.Context, job *core.Job, state core.Status, description string) error {
	data := job.Data
	if data.Owner == "" || data.Repo == "" {
		return &core.MissingFieldError{Field: "repository"}
	}
	return n.client.CreateStatus(ctx, data.Owner, data.Repo, data.SHA, &github.RepoStatus{
		State:       github.Ptr(string(state)),
		Description: github.Ptr(truncate(description, maxDescriptionLength)),
		Context:     github.Ptr(n.statusContext),
		TargetURL:   github.Ptr(n.baseURL + "/api/v1/logs/" + data.SHA),
	})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// NopNotifier discards statuses. It is used when GitHub is not configured.
type NopNotifier struct{}

func (NopNotifier) Pending(context.Context, *core.Job) error   { return nil }
func (NopNotifier) Completed(context.Context, *core.Job) error { return nil }

// CompletionListener returns a queue listener posting the final status of
// every job not marked SkipPost.
func CompletionListener(n core.StatusNotifier, logger *slog.Logger) func(*core.Job, error) {
	return func(job *core.Job, _ error) {
		if job.Data.SkipPost {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := n.Completed(ctx, job); err != nil {
			logger.Warn("failed to post commit status",
				"job_id", job.ID,
				"sha", util.ShortID(job.Data.SHA, 0),
				"error", err,
			)
		}
	}
}

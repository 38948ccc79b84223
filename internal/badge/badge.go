// Package badge synthesizes shields-style status payloads from test records.
package badge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/util"
)

// Supported badge contexts.
const (
	ContextCoverage = "coverage"
	ContextStatus   = "status"
)

const (
	colorOrange = "orange"
	colorRed    = "red"
	colorGreen  = "brightgreen"
)

// Contexts lists the accepted values of Request.Context.
var Contexts = []string{ContextCoverage, ContextStatus}

// Request identifies the badge to render.
type Request struct {
	SHA     string
	Owner   string
	Repo    string
	Branch  string
	Context string
	// Force queues a fresh test run even when a record exists.
	Force bool
}

// Validate checks the request before any record is looked up.
func (r Request) Validate() error {
	if r.SHA == "" {
		return &core.MissingFieldError{Field: "sha"}
	}
	switch r.Context {
	case "":
		return &core.MissingFieldError{Field: "Context"}
	case ContextCoverage, ContextStatus:
		return nil
	default:
		return &core.InvalidFieldValueError{Field: "context", Value: r.Context, Expected: Contexts}
	}
}

// Synthesizer builds badge payloads, queueing a test run when a commit has
// no record yet.
type Synthesizer struct {
	store     core.RecordStore
	queue     core.Enqueuer
	threshold float64
	logger    *slog.Logger
}

// NewSynthesizer creates a Synthesizer. Coverage below threshold percent is
// rendered red.
func NewSynthesizer(store core.RecordStore, queue core.Enqueuer, threshold float64, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{store: store, queue: queue, threshold: threshold, logger: logger}
}

// GetBadgeData returns the payload for req.
func (s *Synthesizer) GetBadgeData(ctx context.Context, req Request) (*core.BadgePayload, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload := &core.BadgePayload{SchemaVersion: 1, Label: label(req.Context)}

	var rec *core.TestRecord
	if !req.Force {
		var err error
		rec, err = s.store.LoadRecord(ctx, req.SHA)
		if err != nil && !errors.Is(err, core.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load test record: %w", err)
		}
	}

	if rec == nil {
		if err := s.enqueue(ctx, req); err != nil {
			return nil, err
		}
		payload.Message = "pending"
		payload.Color = colorOrange
		return payload, nil
	}

	switch req.Context {
	case ContextCoverage:
		s.coverage(payload, rec)
	case ContextStatus:
		status(payload, rec)
	}
	return payload, nil
}

func (s *Synthesizer) enqueue(ctx context.Context, req Request) error {
	force := req.Force
	job, err := s.queue.Enqueue(ctx, &core.JobData{
		SHA:      req.SHA,
		Force:    &force,
		Owner:    req.Owner,
		Repo:     req.Repo,
		Branch:   req.Branch,
		SkipPost: true,
	})
	if err != nil {
		return fmt.Errorf("failed to queue test run: %w", err)
	}
	s.logger.Info("queued test run for badge", "job_id", job.ID, "sha", util.ShortID(req.SHA, 0), "force", force)
	return nil
}

func (s *Synthesizer) coverage(payload *core.BadgePayload, rec *core.TestRecord) {
	if rec.Status == core.StatusError || !rec.Status.Known() || rec.Coverage == nil {
		unknown(payload)
		return
	}
	c := *rec.Coverage
	payload.Message = util.FormatPercent(c)
	payload.Color = colorGreen
	if c < s.threshold {
		payload.Color = colorRed
	}
}

func status(payload *core.BadgePayload, rec *core.TestRecord) {
	switch rec.Status {
	case core.StatusSuccess:
		payload.Message = "passing"
		payload.Color = colorGreen
	case core.StatusFailure:
		payload.Message = "failing"
		payload.Color = colorRed
	default:
		unknown(payload)
	}
}

func unknown(payload *core.BadgePayload) {
	payload.Message = "unknown"
	payload.Color = colorOrange
}

func label(badgeContext string) string {
	if badgeContext == ContextStatus {
		return "build"
	}
	return badgeContext
}

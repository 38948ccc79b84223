// Package handler provides HTTP handlers for the ci-warden application.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/queue"
	"github.com/sevigo/ci-warden/internal/util"
)

// WebhookHandler processes incoming webhooks from GitHub.
type WebhookHandler struct {
	secret string
	queue  core.Enqueuer
	logger *slog.Logger
}

// NewWebhookHandler creates a new webhook handler verifying payloads with secret.
func NewWebhookHandler(secret string, q core.Enqueuer, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret: secret,
		queue:  q,
		logger: logger,
	}
}

// Handle processes GitHub webhook requests.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	// go-github skips signature checks for an empty secret
	if h.secret == "" {
		h.logger.Error("webhook received but no webhook secret is configured")
		http.Error(w, "Webhook secret not configured", http.StatusServiceUnavailable)
		return
	}

	payload, err := github.ValidatePayload(r, []byte(h.secret))
	if err != nil {
		h.logger.Error("invalid webhook payload signature", "error", err)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	event, err := github.ParseWebHook(github.WebHookType(r), payload)
	if err != nil {
		h.logger.Error("could not parse webhook", "error", err)
		http.Error(w, "Could not parse webhook", http.StatusBadRequest)
		return
	}

	switch e := event.(type) {
	case *github.PingEvent:
		_, _ = fmt.Fprint(w, "pong")
	case *github.PushEvent:
		h.enqueue(r.Context(), w, "push", func() (*core.JobData, error) { return core.JobDataFromPush(e) })
	case *github.PullRequestEvent:
		h.enqueue(r.Context(), w, "pull_request", func() (*core.JobData, error) { return core.JobDataFromPullRequest(e) })
	default:
		h.logger.Debug("ignoring unhandled webhook event type", "type", github.WebHookType(r))
		_, _ = fmt.Fprint(w, "Event type not handled")
	}
}

func (h *WebhookHandler) enqueue(ctx context.Context, w http.ResponseWriter, kind string, build func() (*core.JobData, error)) {
	data, err := build()
	if err != nil {
		h.logger.Debug("ignoring webhook event", "type", kind, "reason", err.Error())
		_, _ = fmt.Fprint(w, "Event ignored")
		return
	}

	job, err := h.queue.Enqueue(ctx, data)
	if err != nil {
		h.logger.Error("failed to queue test job", "error", err, "repo", data.Owner+"/"+data.Repo)
		status := http.StatusInternalServerError
		if errors.Is(err, queue.ErrQueueFull) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, "Failed to queue test job", status)
		return
	}

	h.logger.Info("test job queued",
		"type", kind,
		"job_id", job.ID,
		"repo", data.Owner+"/"+data.Repo,
		"sha", util.ShortID(data.SHA, 0),
	)
	w.WriteHeader(http.StatusAccepted)
	_, _ = fmt.Fprint(w, "Test job accepted")
}

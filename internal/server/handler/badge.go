package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/ci-warden/internal/badge"
	"github.com/sevigo/ci-warden/internal/metrics"
	"github.com/sevigo/ci-warden/internal/util"
)

// BranchResolver looks up the commit a branch points to.
type BranchResolver interface {
	GetBranchHeadSHA(ctx context.Context, owner, repo, branch string) (string, error)
}

// BadgeHandler serves badge payloads.
type BadgeHandler struct {
	badges   *badge.Synthesizer
	branches BranchResolver
	logger   *slog.Logger
}

// NewBadgeHandler creates a BadgeHandler. branches may be nil, in which case
// requests must name the commit with the sha query parameter.
func NewBadgeHandler(badges *badge.Synthesizer, branches BranchResolver, logger *slog.Logger) *BadgeHandler {
	return &BadgeHandler{badges: badges, branches: branches, logger: logger}
}

// Get handles GET /badges/{context}/{owner}/{repo}/{branch}?sha=&force=.
func (h *BadgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	req := badge.Request{
		SHA:     r.URL.Query().Get("sha"),
		Owner:   chi.URLParam(r, "owner"),
		Repo:    chi.URLParam(r, "repo"),
		Branch:  chi.URLParam(r, "branch"),
		Context: chi.URLParam(r, "context"),
		Force:   util.StrToBool(r.URL.Query().Get("force")),
	}

	if req.SHA == "" && h.branches != nil && req.Branch != "" {
		sha, err := h.branches.GetBranchHeadSHA(r.Context(), req.Owner, req.Repo, req.Branch)
		if err != nil {
			h.logger.Warn("failed to resolve branch head", "repo", req.Owner+"/"+req.Repo, "branch", req.Branch, "error", err)
		}
		req.SHA = sha
	}

	payload, err := h.badges.GetBadgeData(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	metrics.ObserveBadge(req.Context, payload)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	writeJSON(w, http.StatusOK, payload)
}

package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/jobs"
)

// RecordsHandler exposes test records, captured logs and the pending queue.
type RecordsHandler struct {
	store  core.RecordStore
	queue  core.JobQueue
	logDir string
	logger *slog.Logger
}

// NewRecordsHandler creates a RecordsHandler reading logs from logDir.
func NewRecordsHandler(store core.RecordStore, q core.JobQueue, logDir string, logger *slog.Logger) *RecordsHandler {
	return &RecordsHandler{store: store, queue: q, logDir: logDir, logger: logger}
}

// GetRecord handles GET /records/{sha}.
func (h *RecordsHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.LoadRecord(r.Context(), chi.URLParam(r, "sha"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetLog handles GET /logs/{sha}.
func (h *RecordsHandler) GetLog(w http.ResponseWriter, r *http.Request) {
	path, err := jobs.LogPath(h.logDir, chi.URLParam(r, "sha"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "Log not found", http.StatusNotFound)
			return
		}
		writeError(w, h.logger, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.Copy(w, f); err != nil {
		h.logger.Warn("failed to stream log", "path", path, "error", err)
	}
}

type pendingJob struct {
	ID        string    `json:"id"`
	SHA       string    `json:"sha"`
	Owner     string    `json:"owner,omitempty"`
	Repo      string    `json:"repo,omitempty"`
	Branch    string    `json:"branch,omitempty"`
	Force     bool      `json:"force"`
	CreatedAt time.Time `json:"created_at"`
}

// ListQueue handles GET /queue.
func (h *RecordsHandler) ListQueue(w http.ResponseWriter, _ *http.Request) {
	pending := h.queue.Pending()
	out := make([]pendingJob, 0, len(pending))
	for _, job := range pending {
		out = append(out, pendingJob{
			ID:        job.ID,
			SHA:       job.Data.SHA,
			Owner:     job.Data.Owner,
			Repo:      job.Data.Repo,
			Branch:    job.Data.Branch,
			Force:     job.Data.IsForced(),
			CreatedAt: job.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

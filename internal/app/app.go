// Package app initializes and orchestrates the main components of the CI Warden application.
// It wires the job queue to its handlers and runs it alongside the HTTP server.
package app

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/ci-warden/internal/badge"
	"github.com/sevigo/ci-warden/internal/config"
	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/github"
	"github.com/sevigo/ci-warden/internal/jobs"
	"github.com/sevigo/ci-warden/internal/metrics"
	"github.com/sevigo/ci-warden/internal/queue"
	"github.com/sevigo/ci-warden/internal/server"
)

// App holds the main application components.
type App struct {
	Store    core.RecordStore
	Queue    *queue.Queue
	Pipeline *jobs.Pipeline
	Badges   *badge.Synthesizer

	cfg    *config.Config
	server *server.Server
	logger *slog.Logger
}

// NewApp sets up the application and registers the job handler and the
// completion listeners on the queue.
func NewApp(
	cfg *config.Config,
	store core.RecordStore,
	q *queue.Queue,
	pipeline *jobs.Pipeline,
	badges *badge.Synthesizer,
	notifier core.StatusNotifier,
	srv *server.Server,
	logger *slog.Logger,
) *App {
	q.Process(pipeline.Handle)
	q.OnComplete(github.CompletionListener(notifier, logger))
	q.OnComplete(metrics.ObserveJob)
	q.OnComplete(func(*core.Job, error) {
		metrics.SetPendingJobs(q.Len())
	})
	q.OnError(func(job *core.Job, err error) {
		logger.Warn("test job finished with error", "job_id", job.ID, "sha", job.Data.SHA, "error", err)
	})

	return &App{
		Store:    store,
		Queue:    q,
		Pipeline: pipeline,
		Badges:   badges,
		cfg:      cfg,
		server:   srv,
		logger:   logger,
	}
}

// Start runs the job queue and the HTTP server until ctx is canceled or
// either of them fails.
func (a *App) Start(ctx context.Context) error {
	a.logger.Info("starting CI Warden",
		"server_port", a.cfg.Server.Port,
		"queue_capacity", a.cfg.Queue.Capacity,
		"test_timeout", a.cfg.Runner.Timeout)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := a.Queue.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(a.server.Start)
	g.Go(func() error {
		<-ctx.Done()
		if err := a.server.Stop(); err != nil {
			a.logger.Error("error during HTTP server shutdown", "error", err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		a.logger.Error("CI Warden stopped with errors", "error", err)
		return err
	}
	a.logger.Info("CI Warden stopped successfully")
	return nil
}

// LogDir returns the directory captured test logs are written to.
func (a *App) LogDir() string {
	return a.cfg.Runner.LogDir
}

package wire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/google/wire"

	"github.com/sevigo/ci-warden/internal/app"
	"github.com/sevigo/ci-warden/internal/badge"
	"github.com/sevigo/ci-warden/internal/config"
	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/db"
	"github.com/sevigo/ci-warden/internal/github"
	"github.com/sevigo/ci-warden/internal/gitutil"
	"github.com/sevigo/ci-warden/internal/jobs"
	"github.com/sevigo/ci-warden/internal/logger"
	"github.com/sevigo/ci-warden/internal/queue"
	"github.com/sevigo/ci-warden/internal/repomanager"
	"github.com/sevigo/ci-warden/internal/server"
	"github.com/sevigo/ci-warden/internal/storage"
)

var AppSet = wire.NewSet(
	app.NewApp,
	server.NewServer,
	config.LoadConfig,
	jobs.NewPipeline,
	provideLoggerConfig,
	provideLogWriter,
	provideSlogLogger,
	provideRecordStore,
	provideQueue,
	provideGitHubClient,
	provideStatusNotifier,
	provideGitClient,
	provideJobTimer,
	provideShortCircuit,
	provideWorkspaces,
	provideTestRunner,
	provideBadges,
	provideServerDeps,
)

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return cfg.Logging
}

func provideLogWriter(cfg *config.Config) io.Writer {
	return cfg.Logging.Writer()
}

func provideSlogLogger(loggerConfig logger.Config, writer io.Writer) *slog.Logger {
	return logger.NewLogger(loggerConfig, writer)
}

func provideRecordStore(cfg *config.Config, logger *slog.Logger) (core.RecordStore, func(), error) {
	if cfg.Database.Driver == "memory" {
		logger.Warn("using in-memory record store, records are lost on restart")
		return storage.NewMemoryStore(), func() {}, nil
	}

	dbConn, cleanup, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return storage.NewPostgresStore(dbConn.DB), cleanup, nil
}

func provideQueue(cfg *config.Config, logger *slog.Logger) *queue.Queue {
	return queue.New(cfg.Queue.Capacity, logger)
}

// provideGitHubClient returns a nil client when no credentials are configured.
func provideGitHubClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (github.Client, error) {
	client, err := github.NewClientFromConfig(ctx, cfg.GitHub, logger)
	if errors.Is(err, github.ErrNotConfigured) {
		logger.Info("no GitHub credentials configured, commit statuses will not be posted")
		return nil, nil
	}
	return client, err
}

func provideStatusNotifier(cfg *config.Config, client github.Client) core.StatusNotifier {
	if client == nil {
		return github.NopNotifier{}
	}
	return github.NewStatusNotifier(client, cfg.GitHub.StatusContext, cfg.Server.BaseURL)
}

func provideGitClient(cfg *config.Config, logger *slog.Logger) *gitutil.Client {
	return gitutil.NewClient(logger, cfg.GitHub.Token)
}

func provideJobTimer(cfg *config.Config, logger *slog.Logger) *jobs.JobTimer {
	return jobs.NewJobTimer(clock.New(), cfg.Runner.Timeout, logger)
}

func provideShortCircuit(store core.RecordStore, q *queue.Queue, logger *slog.Logger) *jobs.ShortCircuit {
	return jobs.NewShortCircuit(store, q, logger)
}

func provideWorkspaces(cfg *config.Config, git *gitutil.Client, logger *slog.Logger) *repomanager.Manager {
	return repomanager.New(cfg.Runner.RepoPath, git, logger)
}

func provideTestRunner(
	cfg *config.Config,
	store core.RecordStore,
	notifier core.StatusNotifier,
	workspaces *repomanager.Manager,
	timer *jobs.JobTimer,
	logger *slog.Logger,
) *jobs.TestRunner {
	return jobs.NewTestRunner(cfg.Runner, store, notifier, workspaces, timer, logger)
}

func provideBadges(cfg *config.Config, store core.RecordStore, q *queue.Queue, logger *slog.Logger) *badge.Synthesizer {
	return badge.NewSynthesizer(store, q, cfg.Badge.CoverageThreshold, logger)
}

func provideServerDeps(store core.RecordStore, q *queue.Queue, badges *badge.Synthesizer, client github.Client) server.Deps {
	deps := server.Deps{Store: store, Queue: q, Badges: badges}
	if client != nil {
		deps.Branches = client
	}
	return deps
}

// Package repomanager keeps one working copy per repository and prepares it
// for a test run.
package repomanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"

	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/gitutil"
	"github.com/sevigo/ci-warden/internal/util"
)

// Option configures a Manager.
type Option func(*Manager)

// WithCloneURL overrides how clone URLs are derived from owner and repo.
func WithCloneURL(fn func(owner, repo string) string) Option {
	return func(m *Manager) { m.cloneURL = fn }
}

// Manager resolves the working copy for a job. Jobs naming a repository get
// their own clone under root/owner/repo; jobs without one run in root itself.
type Manager struct {
	root      string
	gitClient *gitutil.Client
	cloneURL  func(owner, repo string) string
	logger    *slog.Logger
	repoMux   sync.Map
}

// New creates a Manager rooted at root.
func New(root string, gitClient *gitutil.Client, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		root:      root,
		gitClient: gitClient,
		cloneURL:  GitHubCloneURL,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the working copy directory for owner/repo.
func (m *Manager) Path(owner, repo string) (string, error) {
	if owner == "" && repo == "" {
		return m.root, nil
	}
	if err := validateName("owner", owner); err != nil {
		return "", err
	}
	if err := validateName("repo", repo); err != nil {
		return "", err
	}
	return filepath.Join(m.root, owner, repo), nil
}

// Prepare returns the directory the tests for data run in, with data.SHA
// checked out. The shared root is used as is when it is not a git repository.
func (m *Manager) Prepare(ctx context.Context, data *core.JobData) (string, error) {
	path, err := m.Path(data.Owner, data.Repo)
	if err != nil {
		return "", err
	}

	val, _ := m.repoMux.LoadOrStore(path, &sync.Mutex{})
	mux, ok := val.(*sync.Mutex)
	if !ok {
		return "", fmt.Errorf("internal error: failed to assert mutex type")
	}
	mux.Lock()
	defer mux.Unlock()

	if path == m.root {
		if _, err := m.gitClient.Open(path); err != nil {
			m.logger.Debug("working copy is not a git repository, using it as is", "path", path)
			return path, nil
		}
		return path, m.gitClient.Prepare(ctx, path, data.SHA)
	}

	if err := m.ensureClone(ctx, data.Owner, data.Repo, path); err != nil {
		return "", err
	}
	if err := m.gitClient.Prepare(ctx, path, data.SHA); err != nil {
		return "", err
	}
	m.logger.Info("working copy ready", "repo", data.Owner+"/"+data.Repo, "sha", util.ShortID(data.SHA, 0))
	return path, nil
}

func (m *Manager) ensureClone(ctx context.Context, owner, repo, path string) error {
	_, err := m.gitClient.Open(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return err
	}

	m.logger.Info("repository not found on disk, performing initial clone", "repo", owner+"/"+repo)

	cloneCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create repo parent directory: %w", err)
	}
	m.cleanupRepoDir(path)

	if _, err := m.gitClient.Clone(cloneCtx, m.cloneURL(owner, repo), path); err != nil {
		m.cleanupRepoDir(path)
		return err
	}
	return nil
}

func (m *Manager) cleanupRepoDir(path string) {
	if err := os.RemoveAll(path); err != nil {
		m.logger.Warn("failed to clean up repository directory", "path", path, "error", err)
	}
}

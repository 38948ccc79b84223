// Package gitutil provides a client for working with Git repositories.
package gitutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Client prepares working trees for test runs.
type Client struct {
	Logger *slog.Logger
	// Token authenticates fetches over HTTPS. Empty means anonymous.
	Token string
}

// NewClient returns a new Client instance.
func NewClient(logger *slog.Logger, token string) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{Logger: logger, Token: token}
}

// Open opens a Git repository at a given path.
func (c *Client) Open(path string) (*git.Repository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}
	return repo, nil
}

// Clone clones repoURL into path.
func (c *Client) Clone(ctx context.Context, repoURL, path string) (*git.Repository, error) {
	c.Logger.InfoContext(ctx, "cloning repository", "url", repoURL, "path", path)

	repo, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
		URL:  repoURL,
		Auth: c.auth(),
	})
	if err != nil {
		return nil, fmt.Errorf("git clone failed: %w", err)
	}
	return repo, nil
}

// Prepare checks out sha in the working copy at path, fetching from origin
// first when the commit is not available locally.
func (c *Client) Prepare(ctx context.Context, path, sha string) error {
	repo, err := c.Open(path)
	if err != nil {
		return err
	}

	hash := plumbing.NewHash(sha)
	if _, err := repo.CommitObject(hash); err != nil {
		if err := c.Fetch(ctx, repo); err != nil {
			return err
		}
		if _, err := repo.CommitObject(hash); err != nil {
			return fmt.Errorf("commit %s not found after fetch: %w", sha, err)
		}
	}
	return c.Checkout(repo, sha)
}

// Fetch fetches updates from the 'origin' remote, retrying transient failures.
func (c *Client) Fetch(ctx context.Context, repo *git.Repository) error {
	c.Logger.InfoContext(ctx, "fetching latest changes from origin")

	opts := &git.FetchOptions{
		RemoteName: git.DefaultRemoteName,
		RefSpecs: []config.RefSpec{
			"+refs/heads/*:refs/remotes/origin/*",
			"+refs/pull/*/head:refs/remotes/origin/pr/*",
		},
		Force: true,
		Auth:  c.auth(),
	}

	const maxRetries = 3
	const baseDelay = 2 * time.Second

	var err error
	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			delay := baseDelay * time.Duration(1<<(i-1))
			c.Logger.WarnContext(ctx, "git fetch failed, retrying",
				"attempt", i,
				"max_retries", maxRetries,
				"delay", delay,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		fetchErr := repo.FetchContext(ctx, opts)
		if fetchErr == nil || errors.Is(fetchErr, git.NoErrAlreadyUpToDate) {
			c.Logger.InfoContext(ctx, "fetch complete")
			return nil
		}
		err = fmt.Errorf("git fetch failed: %w", fetchErr)
		if errors.Is(fetchErr, transport.ErrRepositoryNotFound) || errors.Is(fetchErr, transport.ErrAuthenticationRequired) {
			return err
		}
	}
	return err
}

// Checkout switches the repository's worktree to a specific commit.
func (c *Client) Checkout(repo *git.Repository, sha string) error {
	c.Logger.Info("checking out commit", "sha", sha)

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	err = wt.Checkout(&git.CheckoutOptions{
		Hash:  plumbing.NewHash(sha),
		Force: true,
	})
	if err != nil {
		return fmt.Errorf("git checkout failed: %w", err)
	}
	return nil
}

// HeadSHA returns the current HEAD SHA of the repository at the given path.
func (c *Client) HeadSHA(path string) (string, error) {
	repo, err := c.Open(path)
	if err != nil {
		return "", err
	}
	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

func (c *Client) auth() transport.AuthMethod {
	if c.Token == "" {
		return nil
	}
	return &http.BasicAuth{Username: "x-access-token", Password: c.Token}
}

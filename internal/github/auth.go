package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"

	"github.com/sevigo/ci-warden/internal/config"
)

// ErrNotConfigured is returned when neither a token nor App credentials are set.
var ErrNotConfigured = errors.New("github credentials not configured")

// NewClientFromConfig creates a client using the token when one is set and
// the App installation credentials otherwise.
func NewClientFromConfig(ctx context.Context, cfg config.GitHubConfig, logger *slog.Logger) (Client, error) {
	switch {
	case cfg.Token != "":
		logger.Info("using GitHub personal access token")
		return NewPATClient(ctx, cfg.Token, logger), nil
	case cfg.AppID != 0 && cfg.InstallationID != 0:
		return CreateInstallationClient(cfg, logger)
	default:
		return nil, ErrNotConfigured
	}
}

// CreateInstallationClient creates a GitHub client that is authenticated as a specific application installation.
// The transport refreshes the installation token before it expires.
func CreateInstallationClient(cfg config.GitHubConfig, logger *slog.Logger) (Client, error) {
	logger.Info("Creating GitHub installation client", "app_id", cfg.AppID, "installation_id", cfg.InstallationID)

	tr, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, cfg.AppID, cfg.InstallationID, cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub App transport from %s: %w", cfg.PrivateKeyPath, err)
	}
	installationClient := github.NewClient(&http.Client{Transport: tr})

	return NewGitHubClient(installationClient, logger), nil
}

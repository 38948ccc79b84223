package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sevigo/ci-warden/internal/app"
	"github.com/sevigo/ci-warden/internal/wire"
)

var githubToken string

var rootCmd = &cobra.Command{
	Use:   "ciw",
	Short: "ciw is the command-line interface for CI Warden.",
	Long: `A CLI for inspecting and driving CI Warden: look up stored test records,
render badges, read captured test logs and run tests for a commit locally.

Configuration is read from config.yaml and CIW_ environment variables, the same
way the server reads it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if githubToken == "" {
			return nil
		}
		if err := os.Setenv("CIW_GITHUB_TOKEN", githubToken); err != nil {
			return fmt.Errorf("failed to apply github token: %w", err)
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.PersistentFlags().StringVarP(&githubToken, "github-token", "t", "", "GitHub token (overrides CIW_GITHUB_TOKEN)")
}

// initializeApp builds the application without starting the HTTP server.
func initializeApp(ctx context.Context) (*app.App, func(), error) {
	a, cleanup, err := wire.InitializeApp(ctx)
	if err != nil {
		slog.Debug("application initialization failed", "error", err)
		return nil, nil, fmt.Errorf("failed to initialize app: %w\n\nTip: Check that your config.yaml exists and is valid", err)
	}
	return a, cleanup, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sevigo/ci-warden/internal/app"
	"github.com/sevigo/ci-warden/internal/badge"
	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/util"
	"github.com/sevigo/ci-warden/internal/wire"
)

// initializeAppCmd builds the application and starts its queue worker so
// that /run commands are processed while the console is open.
func initializeAppCmd(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		a, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return appInitializedMsg{err: err}
		}
		go func() { _ = a.Queue.Run(ctx) }()
		return appInitializedMsg{app: a, cleanup: cleanup}
	}
}

func loadRecordCmd(a *app.App, sha string) tea.Cmd {
	return func() tea.Msg {
		rec, err := a.Store.LoadRecord(context.Background(), sha)
		if errors.Is(err, core.ErrRecordNotFound) {
			return recordLoadedMsg{sha: sha}
		}
		if err != nil {
			return errorMsg{err}
		}
		return recordLoadedMsg{sha: sha, rec: rec}
	}
}

func loadBadgeCmd(a *app.App, badgeContext, sha string) tea.Cmd {
	return func() tea.Msg {
		payload, err := a.Badges.GetBadgeData(context.Background(), badge.Request{Context: badgeContext, SHA: sha})
		if err != nil {
			return errorMsg{err}
		}
		return badgeLoadedMsg{payload: payload}
	}
}

func runTestsCmd(ctx context.Context, a *app.App, sha string, force bool) tea.Cmd {
	return func() tea.Msg {
		job, err := a.Queue.Enqueue(ctx, &core.JobData{SHA: sha, Force: &force, SkipPost: true})
		if err != nil {
			return errorMsg{fmt.Errorf("failed to queue test run: %w", err)}
		}
		select {
		case <-job.Finished():
		case <-ctx.Done():
			return errorMsg{ctx.Err()}
		}
		outcome, ran := job.Result()
		return runCompleteMsg{sha: sha, outcome: outcome, ran: ran, err: job.Err()}
	}
}

func loadQueueCmd(a *app.App) tea.Cmd {
	return func() tea.Msg {
		return queueLoadedMsg{pending: a.Queue.Pending()}
	}
}

// parseRunArgs accepts "<sha> [--force|-f]" in any order.
func parseRunArgs(args []string) (sha string, force bool, err error) {
	for _, arg := range args {
		switch arg {
		case "--force", "-f":
			force = true
		default:
			if sha != "" {
				return "", false, fmt.Errorf("unexpected argument %q", arg)
			}
			sha = strings.ToLower(arg)
		}
	}
	if !util.IsSHA(sha) {
		return "", false, &core.InvalidFieldValueError{Field: "sha", Value: sha, Expected: []string{"40 hex characters"}}
	}
	return sha, force, nil
}

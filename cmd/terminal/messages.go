package main

import (
	"github.com/sevigo/ci-warden/internal/app"
	"github.com/sevigo/ci-warden/internal/core"
)

// Indicates that the core application services have been initialized.
type appInitializedMsg struct {
	app     *app.App
	cleanup func()
	err     error
}

type recordLoadedMsg struct {
	sha string
	rec *core.TestRecord
}

type badgeLoadedMsg struct {
	payload *core.BadgePayload
}

// Reports a finished test job started from the console.
type runCompleteMsg struct {
	sha     string
	outcome core.Outcome
	ran     bool
	err     error
}

type queueLoadedMsg struct {
	pending []core.PendingJob
}

// A generic error message for reporting failures from commands.
type errorMsg struct{ err error }

func (e errorMsg) Error() string {
	return e.err.Error()
}

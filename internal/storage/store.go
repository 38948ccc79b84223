// Package storage persists test records, one per commit.
package storage

import (
	"context"
	"fmt"

	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/util"
)

type recordsLoader interface {
	LoadRecords(ctx context.Context, shas []string) ([]*core.TestRecord, error)
}

// loadRecord resolves a single commit through the plural lookup so both
// forms share one query path.
func loadRecord(ctx context.Context, l recordsLoader, sha string) (*core.TestRecord, error) {
	if sha == "" {
		return nil, core.ErrRecordNotFound
	}
	records, err := l.LoadRecords(ctx, util.EnsureSlice[string](sha))
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", util.ShortID(sha, 0), err)
	}
	if len(records) == 0 {
		return nil, core.ErrRecordNotFound
	}
	// In case of duplicates, the most recently written record wins.
	return records[len(records)-1], nil
}

func validateRecord(rec *core.TestRecord) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if rec.Commit == "" {
		return fmt.Errorf("record commit cannot be empty")
	}
	if !rec.Status.Known() {
		return fmt.Errorf("record %s has unknown status %q", util.ShortID(rec.Commit, 0), rec.Status)
	}
	return nil
}

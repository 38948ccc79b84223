package core

import (
	"context"
	"time"
)

// Status is the outcome class of a test run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusError   Status = "error"
	StatusPending Status = "pending"
)

// Known reports whether s is one of the recognized statuses.
func (s Status) Known() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusError, StatusPending:
		return true
	}
	return false
}

// Outcome is the resolved result of a job.
type Outcome struct {
	Status      Status   `json:"status"`
	Description string   `json:"description"`
	Coverage    *float64 `json:"coverage,omitempty"`
}

// TestRecord is the persisted outcome of a test run for a single commit.
type TestRecord struct {
	Commit      string    `json:"commit"`
	Status      Status    `json:"status"`
	Description string    `json:"description"`
	Coverage    *float64  `json:"coverage,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Outcome returns the record's result in job form.
func (r *TestRecord) Outcome() Outcome {
	return Outcome{
		Status:      r.Status,
		Description: r.Description,
		Coverage:    r.Coverage,
	}
}

// NewTestRecord builds the record persisted for commit after a run.
func NewTestRecord(commit string, o Outcome) *TestRecord {
	return &TestRecord{
		Commit:      commit,
		Status:      o.Status,
		Description: o.Description,
		Coverage:    o.Coverage,
	}
}

// RecordStore reads and writes one test record per commit.
//
//go:generate mockgen -destination=../../mocks/mock_record_store.go -package=mocks . RecordStore
type RecordStore interface {
	// LoadRecord returns the record for sha, or ErrRecordNotFound.
	LoadRecord(ctx context.Context, sha string) (*TestRecord, error)
	// LoadRecords returns the records found for shas. The result is never nil;
	// unknown commits are simply absent from it.
	LoadRecords(ctx context.Context, shas []string) ([]*TestRecord, error)
	// SaveRecord creates or replaces the record for rec.Commit.
	SaveRecord(ctx context.Context, rec *TestRecord) error
}

// BadgePayload is the JSON document consumed by badge rendering services.
type BadgePayload struct {
	SchemaVersion int    `json:"schemaVersion"`
	Label         string `json:"label"`
	Message       string `json:"message"`
	Color         string `json:"color"`
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sevigo/ci-warden/internal/core"
)

type postgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a RecordStore backed by the test_records table.
func NewPostgresStore(db *sqlx.DB) core.RecordStore {
	return &postgresStore{db: db}
}

// recordRow is the database representation of a core.TestRecord.
type recordRow struct {
	CommitSHA   string          `db:"commit_sha"`
	Status      string          `db:"status"`
	Description string          `db:"description"`
	Coverage    sql.NullFloat64 `db:"coverage"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (r recordRow) toRecord() *core.TestRecord {
	rec := &core.TestRecord{
		Commit:      r.CommitSHA,
		Status:      core.Status(r.Status),
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Coverage.Valid {
		c := r.Coverage.Float64
		rec.Coverage = &c
	}
	return rec
}

func rowFromRecord(rec *core.TestRecord, now time.Time) recordRow {
	row := recordRow{
		CommitSHA:   rec.Commit,
		Status:      string(rec.Status),
		Description: rec.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if rec.Coverage != nil {
		row.Coverage = sql.NullFloat64{Float64: *rec.Coverage, Valid: true}
	}
	return row
}

// LoadRecord retrieves the record for a single commit.
func (s *postgresStore) LoadRecord(ctx context.Context, sha string) (*core.TestRecord, error) {
	return loadRecord(ctx, s, sha)
}

// LoadRecords retrieves every record whose commit is in shas.
func (s *postgresStore) LoadRecords(ctx context.Context, shas []string) ([]*core.TestRecord, error) {
	records := []*core.TestRecord{}
	if len(shas) == 0 {
		return records, nil
	}

	query := `
		SELECT commit_sha, status, description, coverage, created_at, updated_at
		FROM test_records
		WHERE commit_sha = ANY($1)
		ORDER BY updated_at ASC`

	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, query, pq.Array(shas)); err != nil {
		return nil, fmt.Errorf("failed to query test records: %w", err)
	}
	for _, r := range rows {
		records = append(records, r.toRecord())
	}
	return records, nil
}

// SaveRecord inserts the record or replaces the one stored for the same commit.
func (s *postgresStore) SaveRecord(ctx context.Context, rec *core.TestRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	query := `
		INSERT INTO test_records (commit_sha, status, description, coverage, created_at, updated_at)
		VALUES (:commit_sha, :status, :description, :coverage, :created_at, :updated_at)
		ON CONFLICT (commit_sha) DO UPDATE SET
			status = EXCLUDED.status,
			description = EXCLUDED.description,
			coverage = EXCLUDED.coverage,
			updated_at = EXCLUDED.updated_at`

	row := rowFromRecord(rec, time.Now().UTC())
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to save test record: %w", err)
	}
	return nil
}

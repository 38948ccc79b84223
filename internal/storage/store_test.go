package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/ci-warden/internal/core"
)

var ids = []string{
	"cabe27e5c8b8cb7cdc4e152f1cf013a89adc7a71",
	"1c33a6e2ac7d7fc098105b21a702e104e09767cf",
	"hf4ac7d7fc0983748702e10738hw4382f347fu38", // never stored
	"7bdf62", // errored
}

func coverage(v float64) *float64 { return &v }

func seededStore() core.RecordStore {
	return NewMemoryStore(
		&core.TestRecord{Commit: ids[0], Status: core.StatusFailure, Description: "1 failed", Coverage: coverage(22.2)},
		&core.TestRecord{Commit: ids[1], Status: core.StatusSuccess, Description: "All passed", Coverage: coverage(75.77)},
		&core.TestRecord{Commit: ids[3], Status: core.StatusError, Description: "Failed to checkout"},
	)
}

func TestLoadRecord(t *testing.T) {
	ctx := context.Background()
	store := seededStore()

	rec, err := store.LoadRecord(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, ids[0], rec.Commit)
	assert.Equal(t, core.StatusFailure, rec.Status)

	_, err = store.LoadRecord(ctx, ids[2])
	assert.ErrorIs(t, err, core.ErrRecordNotFound)

	_, err = store.LoadRecord(ctx, "")
	assert.ErrorIs(t, err, core.ErrRecordNotFound)
}

func TestLoadRecords(t *testing.T) {
	ctx := context.Background()
	store := seededStore()

	records, err := store.LoadRecords(ctx, ids)
	require.NoError(t, err)
	assert.Len(t, records, len(ids)-1)

	missing, err := store.LoadRecords(ctx, []string{ids[2], ids[2]})
	require.NoError(t, err)
	assert.NotNil(t, missing)
	assert.Empty(t, missing)

	none, err := store.LoadRecords(ctx, nil)
	require.NoError(t, err)
	assert.NotNil(t, none)
}

func TestSaveRecord_Overwrites(t *testing.T) {
	ctx := context.Background()
	store := seededStore()

	err := store.SaveRecord(ctx, &core.TestRecord{Commit: ids[0], Status: core.StatusSuccess, Coverage: coverage(90)})
	require.NoError(t, err)

	records, err := store.LoadRecords(ctx, []string{ids[0]})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, core.StatusSuccess, records[0].Status)
	assert.InDelta(t, 90.0, *records[0].Coverage, 0.001)
}

func TestSaveRecord_Validation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	assert.Error(t, store.SaveRecord(ctx, nil))
	assert.Error(t, store.SaveRecord(ctx, &core.TestRecord{Status: core.StatusSuccess}))
	assert.Error(t, store.SaveRecord(ctx, &core.TestRecord{Commit: ids[0], Status: "flaky"}))
}

func TestMemoryStore_DoesNotAliasCoverage(t *testing.T) {
	ctx := context.Background()
	cov := coverage(40)
	store := NewMemoryStore()
	require.NoError(t, store.SaveRecord(ctx, &core.TestRecord{Commit: ids[1], Status: core.StatusSuccess, Coverage: cov}))
	*cov = 99

	rec, err := store.LoadRecord(ctx, ids[1])
	require.NoError(t, err)
	assert.InDelta(t, 40.0, *rec.Coverage, 0.001)
}

func TestRecordRowConversion(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	row := rowFromRecord(&core.TestRecord{Commit: ids[1], Status: core.StatusSuccess, Coverage: coverage(75.77)}, now)
	assert.Equal(t, sql.NullFloat64{Float64: 75.77, Valid: true}, row.Coverage)
	assert.Equal(t, now, row.UpdatedAt)

	rec := row.toRecord()
	require.NotNil(t, rec.Coverage)
	assert.InDelta(t, 75.77, *rec.Coverage, 0.0001)

	noCoverage := rowFromRecord(&core.TestRecord{Commit: ids[3], Status: core.StatusError}, now)
	assert.False(t, noCoverage.Coverage.Valid)
	assert.Nil(t, noCoverage.toRecord().Coverage)
}

package storage

import (
	"context"
	"sync"
	"time"

	"github.com/sevigo/ci-warden/internal/core"
)

type memoryStore struct {
	mu      sync.RWMutex
	records map[string]core.TestRecord
}

// NewMemoryStore creates a RecordStore kept in process memory, optionally
// seeded with records.
func NewMemoryStore(seed ...*core.TestRecord) core.RecordStore {
	s := &memoryStore{records: make(map[string]core.TestRecord)}
	for _, rec := range seed {
		s.records[rec.Commit] = *cloneRecord(*rec)
	}
	return s
}

func (s *memoryStore) LoadRecord(ctx context.Context, sha string) (*core.TestRecord, error) {
	return loadRecord(ctx, s, sha)
}

func (s *memoryStore) LoadRecords(_ context.Context, shas []string) ([]*core.TestRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := []*core.TestRecord{}
	for _, sha := range shas {
		if rec, ok := s.records[sha]; ok {
			records = append(records, cloneRecord(rec))
		}
	}
	return records, nil
}

func (s *memoryStore) SaveRecord(_ context.Context, rec *core.TestRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	stored := *cloneRecord(*rec)
	stored.CreatedAt = now
	if prev, ok := s.records[rec.Commit]; ok {
		stored.CreatedAt = prev.CreatedAt
	}
	stored.UpdatedAt = now
	s.records[rec.Commit] = stored
	return nil
}

// cloneRecord copies rec so callers never share the coverage pointer with the store.
func cloneRecord(rec core.TestRecord) *core.TestRecord {
	if rec.Coverage != nil {
		c := *rec.Coverage
		rec.Coverage = &c
	}
	return &rec
}

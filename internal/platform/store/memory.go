package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memKey struct {
	tenantID string
	kind     Kind
	id       string
}

// MemoryStore is a concurrency-safe, in-memory Store. It backs unit tests and
// development mode; production deployments use the Postgres store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[memKey]*Record
	nowFunc func() time.Time // for testing; defaults to time.Now
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[memKey]*Record),
		nowFunc: time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, tenantID string, kind Kind, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[memKey{tenantID, kind, id}]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRecord(rec), nil
}

func (s *MemoryStore) Put(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memKey{rec.TenantID, rec.Kind, rec.ID}
	cp := copyRecord(rec)
	now := s.nowFunc().UTC()
	if existing, ok := s.records[key]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.records[key] = cp
	rec.CreatedAt = cp.CreatedAt
	rec.UpdatedAt = cp.UpdatedAt
	return nil
}

func (s *MemoryStore) PutIfAbsent(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memKey{rec.TenantID, rec.Kind, rec.ID}
	if _, ok := s.records[key]; ok {
		return ErrConflict
	}
	cp := copyRecord(rec)
	now := s.nowFunc().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.records[key] = cp
	rec.CreatedAt = cp.CreatedAt
	rec.UpdatedAt = cp.UpdatedAt
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, tenantID string, kind Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memKey{tenantID, kind, id}
	if _, ok := s.records[key]; !ok {
		return ErrNotFound
	}
	delete(s.records, key)
	return nil
}

func (s *MemoryStore) Query(_ context.Context, tenantID string, kind Kind) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*Record
	for key, rec := range s.records {
		if key.tenantID == tenantID && key.kind == kind {
			result = append(result, copyRecord(rec))
		}
	}
	// Map iteration order is random; give callers a stable default.
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func copyRecord(rec *Record) *Record {
	cp := *rec
	cp.Data = make([]byte, len(rec.Data))
	copy(cp.Data, rec.Data)
	return &cp
}

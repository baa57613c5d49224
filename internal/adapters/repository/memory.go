package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/okian/routinerec/internal/domain/model"
)

// MemoryStore keeps encoded records in a map. Records are stored as JSON so
// callers never share slices with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// Load implements Store.
func (s *MemoryStore) Load(ctx context.Context, id string) (model.UserData, error) {
	if err := ctx.Err(); err != nil {
		return model.UserData{}, err
	}
	if err := checkID(id); err != nil {
		return model.UserData{}, err
	}
	s.mu.RLock()
	payload, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return model.UserData{}, ErrNotFound
	}
	return decode(payload)
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, id string, data model.UserData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkID(id); err != nil {
		return err
	}
	payload, err := encode(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.records[id] = payload
	s.mu.Unlock()
	return nil
}

// IDs lists stored user ids, sorted.
func (s *MemoryStore) IDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	slices.Sort(ids)
	return ids, nil
}

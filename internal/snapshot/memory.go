package snapshot

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Snapshot
}

// NewMemoryStore keeps snapshots for the lifetime of the process.
func NewMemoryStore() Store {
	return &memoryStore{items: make(map[uuid.UUID]Snapshot)}
}

func (m *memoryStore) Save(_ context.Context, s *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[s.ID] = *s
	return nil
}

func (m *memoryStore) MarkApplied(_ context.Context, id uuid.UUID, after [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = StatusApplied
	s.Patch = RecoveryPatch(s.Before, after)
	s.UpdatedAt = time.Now().UTC()
	m.items[id] = s
	return nil
}

func (m *memoryStore) MarkFailed(_ context.Context, id uuid.UUID, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = StatusFailed
	if cause != nil {
		s.Error = cause.Error()
	}
	s.UpdatedAt = time.Now().UTC()
	m.items[id] = s
	return nil
}

func (m *memoryStore) Recent(_ context.Context, limit int) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, 0, len(m.items))
	for _, s := range m.items {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

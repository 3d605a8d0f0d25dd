package queuestore

import (
	"sync"

	"github.com/plakatpatruljen/fieldops/pkg/core/model"
)

// MemoryStore is a non-durable Store for tests and dry runs
type MemoryStore struct {
	mu      sync.Mutex
	order   []string
	entries map[string]model.PendingPosterLog
}

func NewMemory() *MemoryStore {
	return &MemoryStore{entries: make(map[string]model.PendingPosterLog)}
}

func (s *MemoryStore) Load() ([]model.PendingPosterLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.PendingPosterLog, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id])
	}
	return out, nil
}

func (s *MemoryStore) Put(entry model.PendingPosterLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.ID]; !ok {
		s.order = append(s.order, entry.ID)
	}
	s.entries[entry.ID] = entry
	return nil
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return nil
	}
	delete(s.entries, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Package sessionmem implements ports.SnapshotStore in process memory.
// Used for ephemeral conversations and tests.
package sessionmem

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/parley-ai/parley/pkg/domain"
)

// Store holds snapshots in a map.
type Store struct {
	mu   sync.RWMutex
	data map[string]json.RawMessage
}

// New creates an empty Store.
func New() *Store {
	return &Store{data: make(map[string]json.RawMessage)}
}

func (s *Store) Save(ctx context.Context, sessionID string, snapshot json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(json.RawMessage, len(snapshot))
	copy(cp, snapshot)
	s.data[sessionID] = cp
	return nil
}

func (s *Store) Load(ctx context.Context, sessionID string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return snapshot, nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

package playerdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Store used in tests and as a degraded-mode
// fallback when the SQLite store cannot be opened.
type MemoryStore struct {
	mu       sync.RWMutex
	playerID string
	top      map[string]json.RawMessage
	scoped   map[string]map[string]json.RawMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		top:    make(map[string]json.RawMessage),
		scoped: make(map[string]map[string]json.RawMessage),
	}
}

// Seed pre-loads a top-level document, for building test fixtures.
func (s *MemoryStore) Seed(key string, value any) {
	blob, err := json.Marshal(value)
	if err != nil {
		panic(fmt.Sprintf("seed %q: %v", key, err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.top[key] = blob
}

func (s *MemoryStore) Init(_ context.Context, playerID, _ string) error {
	if playerID == "" {
		return fmt.Errorf("player id is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playerID != "" && s.playerID != playerID {
		// Switching accounts starts from an empty document.
		s.top = make(map[string]json.RawMessage)
		s.scoped = make(map[string]map[string]json.RawMessage)
	}
	s.playerID = playerID
	return nil
}

func (s *MemoryStore) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ":memory:" + s.playerID
}

func (s *MemoryStore) FindAll(_ context.Context) (RawStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(RawStore, len(s.top)+len(s.scoped))
	for k, v := range s.top {
		out[k] = v
	}
	for scope, docs := range s.scoped {
		blob, err := json.Marshal(docs)
		if err != nil {
			return nil, fmt.Errorf("fold scope %q: %w", scope, err)
		}
		out[scope] = blob
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, scope, key string, out any) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.top
	if scope != "" {
		docs = s.scoped[scope]
	}
	blob, ok := docs[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(blob, out); err != nil {
		return true, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

func (s *MemoryStore) Upsert(_ context.Context, scope, key string, value any) error {
	blob, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if scope == "" {
		s.top[key] = blob
		return nil
	}
	if s.scoped[scope] == nil {
		s.scoped[scope] = make(map[string]json.RawMessage)
	}
	s.scoped[scope][key] = blob
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

package checkpoint

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// InMemoryStore keeps checkpoints in a process-local map.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]*Checkpoint
}

// NewInMemoryStore creates an empty in-memory checkpoint store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]*Checkpoint)}
}

// Save stores a checkpoint, replacing any prior one for the session.
func (s *InMemoryStore) Save(cp *Checkpoint) error {
	if cp.SessionID == "" {
		return fmt.Errorf("checkpoint has no session id")
	}
	st, err := cp.State.Clone()
	if err != nil {
		return fmt.Errorf("copying state: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[cp.SessionID] = &Checkpoint{
		SessionID:   cp.SessionID,
		State:       st,
		ResumeStage: cp.ResumeStage,
		UpdatedAt:   time.Now().UTC(),
	}
	return nil
}

// Load returns the checkpoint for a session, or ErrSessionNotFound.
func (s *InMemoryStore) Load(sessionID string) (*Checkpoint, error) {
	s.mu.RLock()
	cp, ok := s.data[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	st, err := cp.State.Clone()
	if err != nil {
		return nil, fmt.Errorf("copying state: %w", err)
	}
	return &Checkpoint{
		SessionID:   cp.SessionID,
		State:       st,
		ResumeStage: cp.ResumeStage,
		UpdatedAt:   cp.UpdatedAt,
	}, nil
}

// Delete removes a checkpoint; deleting an absent session is not an error.
func (s *InMemoryStore) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// Sessions lists checkpointed session ids in sorted order.
func (s *InMemoryStore) Sessions() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }

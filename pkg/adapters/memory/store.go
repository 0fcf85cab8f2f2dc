package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Himanshu040604/PregelFlow/pkg/domain"
)

// Store implements ports.CheckpointStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]*domain.Checkpoint
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]*domain.Checkpoint),
	}
}

// Save appends a copy of the checkpoint.
func (s *Store) Save(ctx context.Context, cp *domain.Checkpoint) error {
	if err := domain.ValidateSessionID(cp.SessionID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.data[cp.SessionID]
	if n := len(history); n > 0 && cp.Sequence <= history[n-1].Sequence {
		return fmt.Errorf("%w: seq %d after %d", domain.ErrSequenceConflict, cp.Sequence, history[n-1].Sequence)
	}
	s.data[cp.SessionID] = append(history, cp.Clone())
	return nil
}

// LoadLatest returns a copy of the newest checkpoint.
func (s *Store) LoadLatest(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.data[sessionID]
	if len(history) == 0 {
		return nil, domain.ErrNoHistory
	}
	return history[len(history)-1].Clone(), nil
}

// History returns copies of every checkpoint, oldest first.
func (s *Store) History(ctx context.Context, sessionID string) ([]*domain.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.data[sessionID]
	out := make([]*domain.Checkpoint, len(history))
	for i, cp := range history {
		out[i] = cp.Clone()
	}
	return out, nil
}

// Delete removes the session history.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns sessions with history, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	slices.Sort(sessions)
	return sessions, nil
}

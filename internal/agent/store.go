package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Checkpointer persists serialized thread state.
type Checkpointer interface {
	LoadCheckpoint(ctx context.Context, threadID string) ([]byte, bool, error)
	SaveCheckpoint(ctx context.Context, threadID string, state []byte) error
	DeleteCheckpoint(ctx context.Context, threadID string) error
}

// CheckpointStore wraps a Checkpointer with per-thread locking so at most
// one request mutates a thread's state at a time. Locks are never released
// from the map; thread counts are bounded by real conversation traffic.
type CheckpointStore struct {
	backend Checkpointer

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewCheckpointStore(backend Checkpointer) *CheckpointStore {
	return &CheckpointStore{
		backend: backend,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Lock acquires the per-thread mutex and returns its unlock function.
func (s *CheckpointStore) Lock(threadID string) func() {
	s.mu.Lock()
	lock, ok := s.locks[threadID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[threadID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Load returns the thread's state, or a fresh empty state when the thread
// has no history.
func (s *CheckpointStore) Load(ctx context.Context, threadID string) (*State, error) {
	data, found, err := s.backend.LoadCheckpoint(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !found {
		return newState(), nil
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint for thread %s: %w", threadID, err)
	}

	return &state, nil
}

func (s *CheckpointStore) Save(ctx context.Context, threadID string, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint for thread %s: %w", threadID, err)
	}
	return s.backend.SaveCheckpoint(ctx, threadID, data)
}

func (s *CheckpointStore) Delete(ctx context.Context, threadID string) error {
	return s.backend.DeleteCheckpoint(ctx, threadID)
}

package ledger

import (
	"context"
	"sync"
)

// MemoryStore keeps the ledger in process memory. It is the "memory"
// journal type and the store used by tests.
type MemoryStore struct {
	mu      sync.Mutex
	state   *State
	failErr error
	commits int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return State{}, ErrNotInitialized
	}
	return m.state.Clone(), nil
}

func (m *MemoryStore) Create(ctx context.Context, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != nil {
		return ErrAlreadyInitialized
	}
	c := s.Clone()
	m.state = &c
	return nil
}

func (m *MemoryStore) Commit(ctx context.Context, next State, t Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		err := m.failErr
		m.failErr = nil
		return err
	}
	if m.state == nil {
		return ErrNotInitialized
	}
	c := next.Clone()
	m.state = &c
	m.commits++
	return nil
}

// FailNext makes the next Commit return err without storing anything.
func (m *MemoryStore) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// Commits counts successful commits.
func (m *MemoryStore) Commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}

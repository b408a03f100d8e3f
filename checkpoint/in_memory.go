package checkpoint

import (
	"context"
	"sort"
	"sync"

	"github.com/NikhilKumarMandal/multi-agent-system/core"
)

// InMemoryStore is a volatile checkpoint store keeping histories in a
// process local map. It is safe for concurrent access and best suited for
// tests or a single interactive session. Histories are copied on Save and
// Load to prevent aliasing with the caller.
type InMemoryStore struct {
	mu      sync.RWMutex
	threads map[string][]core.Message
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{threads: make(map[string][]core.Message)}
}

// Load returns a copy of the thread's history, or an empty history if the
// thread was never saved.
func (s *InMemoryStore) Load(ctx context.Context, threadID string) ([]core.Message, error) {
	if err := checkThreadID(threadID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs, ok := s.threads[threadID]
	if !ok {
		return []core.Message{}, nil
	}
	return core.CloneMessages(msgs), nil
}

// Save replaces the thread's history with a copy of msgs.
func (s *InMemoryStore) Save(ctx context.Context, threadID string, msgs []core.Message) error {
	if err := checkThreadID(threadID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := core.ValidateHistory(msgs); err != nil {
		return err
	}
	cp := core.CloneMessages(msgs)
	if cp == nil {
		cp = []core.Message{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[threadID] = cp
	return nil
}

// Threads returns the known thread ids in lexical order.
func (s *InMemoryStore) Threads(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.threads))
	for id := range s.threads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete drops a thread. Deleting an unknown thread is a no-op.
func (s *InMemoryStore) Delete(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, threadID)
	return nil
}

// Close implements io.Closer.
func (s *InMemoryStore) Close() error { return nil }

var (
	_ Store   = (*InMemoryStore)(nil)
	_ Lister  = (*InMemoryStore)(nil)
	_ Deleter = (*InMemoryStore)(nil)
)

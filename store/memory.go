package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/puzpuzpuz/xsync"
)

type memorySession struct {
	mu   sync.RWMutex
	msgs []json.RawMessage
}

type inMemory struct {
	sessions *xsync.MapOf[string, *memorySession]
}

// NewMemoryStore returns Store that keeps messages in memory
func NewMemoryStore() Store {
	return &inMemory{
		sessions: xsync.NewMapOf[*memorySession](),
	}
}

func (m *inMemory) Messages(_ context.Context, sessionID string) ([]json.RawMessage, error) {
	if err := checkSession(sessionID); err != nil {
		return nil, err
	}
	s, ok := m.sessions.Load(sessionID)
	if !ok {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]json.RawMessage(nil), s.msgs...), nil
}

func (m *inMemory) Add(_ context.Context, sessionID string, msgs ...json.RawMessage) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}
	s, _ := m.sessions.LoadOrStore(sessionID, &memorySession{})
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msgs...)
	if len(s.msgs) > MaxMessages {
		s.msgs = append([]json.RawMessage(nil), s.msgs[len(s.msgs)-MaxMessages:]...)
	}
	return nil
}

func (m *inMemory) Reset(_ context.Context, sessionID string) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}
	m.sessions.Delete(sessionID)
	return nil
}

func (m *inMemory) ListSessions(_ context.Context) ([]string, error) {
	var list []string
	m.sessions.Range(func(id string, _ *memorySession) bool {
		list = append(list, id)
		return true
	})
	sort.Strings(list)
	return list, nil
}

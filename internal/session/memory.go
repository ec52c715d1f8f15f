package session

import (
	"context"
	"sync"
)

// MemoryTokens is an in-process TokenStore, used by tests and by stores
// that do not need to survive a restart.
type MemoryTokens struct {
	mu    sync.Mutex
	token string
}

// PersistToken implements TokenStore.
func (m *MemoryTokens) PersistToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

// PersistedToken implements TokenStore.
func (m *MemoryTokens) PersistedToken(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

// ClearToken implements TokenStore.
func (m *MemoryTokens) ClearToken(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

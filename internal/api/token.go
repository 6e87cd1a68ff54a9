package api

import "sync"

// TokenSource supplies the bearer token for each request. An empty token
// sends no Authorization header.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed token.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token() string { return string(s) }

// MemoryToken is a mutable token shared between the UI goroutine (which
// signs in and out) and fetch commands running in the background.
type MemoryToken struct {
	mu  sync.RWMutex
	tok string
}

// Set replaces the token. Empty clears it.
func (m *MemoryToken) Set(tok string) {
	m.mu.Lock()
	m.tok = tok
	m.mu.Unlock()
}

// Token implements TokenSource.
func (m *MemoryToken) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tok
}

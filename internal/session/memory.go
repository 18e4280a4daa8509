package session

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process revocation list for single-node deployments and tests.
type Memory struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewMemory constructs an in-process revocation list.
func NewMemory() *Memory {
	return &Memory{revoked: make(map[string]time.Time)}
}

// Revoke records the token id until now+ttl.
func (m *Memory) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = time.Now().Add(ttl)
	return nil
}

// Revoked reports whether the token id is still blocked. Expired entries are dropped lazily.
func (m *Memory) Revoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.revoked[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(until) {
		delete(m.revoked, jti)
		return false, nil
	}
	return true, nil
}

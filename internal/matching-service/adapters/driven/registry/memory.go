package registry

import (
	"context"
	"sync"
	"time"

	"tujane/internal/matching-service/core/ports"
)

// Memory is the single-instance registry used when no redis is configured.
type Memory struct {
	mu    sync.Mutex
	codes map[string]time.Time
	now   func() time.Time
}

var _ ports.ICodeRegistry = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		codes: make(map[string]time.Time),
		now:   time.Now,
	}
}

func (m *Memory) Reserve(_ context.Context, code string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for c, until := range m.codes {
		if !now.Before(until) {
			delete(m.codes, c)
		}
	}
	if _, taken := m.codes[code]; taken {
		return false, nil
	}
	m.codes[code] = now.Add(ttl)
	return true, nil
}

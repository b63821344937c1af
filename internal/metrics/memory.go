package metrics

import (
	"context"
	"sync"
	"time"
)

type memorySession struct {
	samples []Sample
	expires time.Time
}

// MemoryStore keeps samples in process memory. A session expires when it has
// not been written to for the TTL; each session keeps at most maxSamples.
type MemoryStore struct {
	mu         sync.Mutex
	sessions   map[string]*memorySession
	ttl        time.Duration
	maxSamples int
	now        func() time.Time
}

// NewMemoryStore creates an in-memory store
func NewMemoryStore(ttl time.Duration, maxSamples int) *MemoryStore {
	return &MemoryStore{
		sessions:   make(map[string]*memorySession),
		ttl:        ttl,
		maxSamples: maxSamples,
		now:        time.Now,
	}
}

// Append adds a sample and refreshes the session expiry
func (m *MemoryStore) Append(_ context.Context, sessionID string, sample Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	s, ok := m.sessions[sessionID]
	if !ok || now.After(s.expires) {
		s = &memorySession{}
		m.sessions[sessionID] = s
	}

	s.samples = append(s.samples, sample)
	if m.maxSamples > 0 && len(s.samples) > m.maxSamples {
		s.samples = append([]Sample(nil), s.samples[len(s.samples)-m.maxSamples:]...)
	}
	s.expires = now.Add(m.ttl)
	return nil
}

// Samples returns a copy of the session's samples, oldest first
func (m *MemoryStore) Samples(_ context.Context, sessionID string) ([]Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	if m.now().After(s.expires) {
		delete(m.sessions, sessionID)
		return nil, nil
	}

	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out, nil
}

// Delete drops a session
func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// Len returns the number of live sessions
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// EvictExpired removes expired sessions and returns how many were removed
func (m *MemoryStore) EvictExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if now.After(s.expires) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Run evicts expired sessions every interval until ctx is done
func (m *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictExpired()
		}
	}
}

func (m *MemoryStore) Close() error { return nil }

package proxy

import (
	"fmt"
	"net/url"
	"sync"
)

/*
Manager rotates egress proxies round-robin, skipping endpoints marked
failed. When every endpoint has failed the failed-set resets: a fully
exhausted pool starts over rather than starving the collectors.
*/
type Manager struct {
	mu        sync.Mutex
	endpoints []*url.URL
	next      int
	failed    map[string]struct{}
}

func NewManager(endpoints []string) (*Manager, error) {
	parsed := make([]*url.URL, 0, len(endpoints))
	for _, raw := range endpoints {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidEndpoint, raw)
		}
		parsed = append(parsed, u)
	}
	return &Manager{
		endpoints: parsed,
		failed:    make(map[string]struct{}),
	}, nil
}

// Acquire returns the next usable endpoint, or false when none are
// configured. A pool where every endpoint failed resets and retries all.
func (m *Manager) Acquire() (*url.URL, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.endpoints) == 0 {
		return nil, false
	}

	if len(m.failed) >= len(m.endpoints) {
		m.failed = make(map[string]struct{})
	}

	for range m.endpoints {
		candidate := m.endpoints[m.next%len(m.endpoints)]
		m.next++
		if _, bad := m.failed[candidate.String()]; !bad {
			return candidate, true
		}
	}

	// unreachable after the reset above, but stay safe
	return m.endpoints[0], true
}

// MarkFailed excludes an endpoint from rotation until the pool resets.
func (m *Manager) MarkFailed(endpoint *url.URL) {
	if endpoint == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[endpoint.String()] = struct{}{}
}

// FailedCount reports how many endpoints are currently excluded.
func (m *Manager) FailedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.failed)
}

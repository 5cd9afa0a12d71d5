package store

import (
	"sort"
	"sync"
)

const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// States are keyed by feed name. Subscribers receive updates via buffered
// channels; when a subscriber's buffer is full the update is dropped for
// that subscriber.
type MemoryStore struct {
	mu          sync.RWMutex
	feeds       map[string]FeedState
	subscribers map[chan FeedState]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		feeds:       make(map[string]FeedState),
		subscribers: make(map[chan FeedState]struct{}),
	}
}

// Register seeds a feed with zero counters so it is listed before its first
// attempt completes. Registering a known feed is a no-op.
func (m *MemoryStore) Register(name, url string, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.feeds[name]; ok {
		return
	}
	m.feeds[name] = FeedState{Name: name, URL: url, Labels: copyLabels(labels)}
}

// Record implements Store.
func (m *MemoryStore) Record(a Attempt) FeedState {
	m.mu.Lock()
	st := m.feeds[a.Name]
	st.Name = a.Name
	st.URL = a.URL
	if a.Labels != nil {
		st.Labels = copyLabels(a.Labels)
	}

	st.Attempts++
	st.LastStatusCode = a.StatusCode
	st.LastBodySize = a.BodySize
	st.LastLatencyMs = a.Latency.Milliseconds()
	st.LastCheckedAt = a.At

	if a.Err != nil {
		st.Healthy = false
		st.Failures++
		st.ConsecutiveFailures++
		msg := a.Err.Error()
		st.LastError = &msg
		st.LastBackoffMs = a.Backoff.Milliseconds()
	} else {
		st.Healthy = true
		st.ConsecutiveFailures = 0
		st.LastError = nil
		st.LastBackoffMs = 0
		at := a.At
		st.LastSuccessAt = &at
	}

	m.feeds[a.Name] = st
	m.mu.Unlock()

	m.notifySubscribers(st)
	return st
}

// GetAll implements Store.
func (m *MemoryStore) GetAll() []FeedState {
	m.mu.RLock()
	states := make([]FeedState, 0, len(m.feeds))
	for _, st := range m.feeds {
		states = append(states, st)
	}
	m.mu.RUnlock()

	sort.Slice(states, func(i, j int) bool {
		return states[i].Name < states[j].Name
	})
	return states
}

// Get implements Store.
func (m *MemoryStore) Get(name string) (FeedState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.feeds[name]
	return st, ok
}

// Subscribe implements Store. The channel buffers 100 updates.
func (m *MemoryStore) Subscribe() <-chan FeedState {
	ch := make(chan FeedState, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe implements Store.
func (m *MemoryStore) Unsubscribe(ch <-chan FeedState) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends st to every subscriber without blocking.
func (m *MemoryStore) notifySubscribers(st FeedState) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- st:
		default:
			// subscriber is slow, drop the update
		}
	}
}

func copyLabels(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

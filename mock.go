package redislock

import (
	"context"
	"sync"
	"time"
)

// MockStore is a test implementation of the Store interface.
type MockStore struct {
	mu sync.Mutex

	// Configurable return values
	SetResult bool
	SetError  error
	DelError  error

	// Call tracking
	SetCalls []SetCall
	DelCalls []DelCall

	// Simulated key space
	values map[string]string
}

// SetCall records a SetIfAbsent call.
type SetCall struct {
	Key   string
	Value string
	TTL   time.Duration
}

// DelCall records a DelIfEqual call.
type DelCall struct {
	Key   string
	Value string
}

// NewMockStore creates a new MockStore with default success behavior.
func NewMockStore() *MockStore {
	return &MockStore{
		SetResult: true,
		values:    make(map[string]string),
	}
}

// SetIfAbsent implements Store.SetIfAbsent.
func (m *MockStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetCalls = append(m.SetCalls, SetCall{Key: key, Value: value, TTL: ttl})

	if m.SetError != nil {
		return false, m.SetError
	}

	// A key already present always rejects, regardless of SetResult
	if _, held := m.values[key]; held {
		return false, nil
	}

	if m.SetResult {
		m.values[key] = value
	}

	return m.SetResult, nil
}

// DelIfEqual implements Store.DelIfEqual.
func (m *MockStore) DelIfEqual(ctx context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DelCalls = append(m.DelCalls, DelCall{Key: key, Value: value})

	if m.DelError != nil {
		return false, m.DelError
	}

	if m.values[key] != value {
		return false, nil
	}

	delete(m.values, key)
	return true, nil
}

// SetHeld simulates a key being held with the given value (for testing
// contention and ownership loss).
func (m *MockStore) SetHeld(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// Drop removes a key from the simulated store (for testing expiry).
func (m *MockStore) Drop(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

// Value returns the simulated value stored under key.
func (m *MockStore) Value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

// Reset clears all call tracking and simulated keys.
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls = nil
	m.DelCalls = nil
	m.values = make(map[string]string)
}

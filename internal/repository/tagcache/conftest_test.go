package tagcache

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/artomart/craftsearch/internal/db"
	"github.com/artomart/craftsearch/internal/domain"
)

type mockTextTagger struct {
	result domain.TextTagResult
	err    error
	calls  int
}

func (m *mockTextTagger) TagText(_ context.Context, _ string) (domain.TextTagResult, error) {
	m.calls++
	return m.result, m.err
}

type mockImageTagger struct {
	result domain.ImageTagResult
	err    error
	calls  int
}

func (m *mockImageTagger) TagImage(_ context.Context, _ domain.ImageRef) (domain.ImageTagResult, error) {
	m.calls++
	return m.result, m.err
}

// memStore is an in-memory KV store recording TTLs.
type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	return m.SetWithTTL(context.Background(), key, value, 0)
}

func (m *memStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) Scan(_ context.Context, _ string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *memStore) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func testOptions(t *testing.T, s *memStore) Options {
	t.Helper()
	return Options{Store: s, TTL: time.Hour, Logger: zap.NewNop()}
}

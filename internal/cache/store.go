// Package cache is the process-local cache layer: a small key/value store
// holding the last good copy of data that normally lives in Postgres, plus a
// handful of local settings. Nothing in here is authoritative.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
)

type Entry struct {
	Value    []byte
	StoredAt time.Time
}

type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// --------------------------------------------------
// In-memory store
// --------------------------------------------------

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(value))
	copy(buf, value)
	m.entries[key] = Entry{Value: buf, StoredAt: m.now()}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// --------------------------------------------------
// Last good snapshot
// --------------------------------------------------

// LastGood keeps the most recent successfully loaded value of T under one
// key. Load returns it together with its age so callers can decide whether
// it is still good enough to serve.
type LastGood[T any] struct {
	store Store
	key   string
}

func NewLastGood[T any](store Store, key string) *LastGood[T] {
	return &LastGood[T]{store: store, key: key}
}

func (l *LastGood[T]) Save(ctx context.Context, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", l.key)
	}
	return l.store.Put(ctx, l.key, data)
}

// Load returns ok=false when nothing is stored or the entry is older than
// maxAge. A zero maxAge accepts any age.
func (l *LastGood[T]) Load(ctx context.Context, maxAge time.Duration) (T, time.Time, bool, error) {
	var zero T
	e, ok, err := l.store.Get(ctx, l.key)
	if err != nil || !ok {
		return zero, time.Time{}, false, err
	}
	if maxAge > 0 && time.Since(e.StoredAt) > maxAge {
		return zero, e.StoredAt, false, nil
	}
	var v T
	if err := json.Unmarshal(e.Value, &v); err != nil {
		return zero, time.Time{}, false, errors.Wrapf(err, "decode %s", l.key)
	}
	return v, e.StoredAt, true, nil
}

func (l *LastGood[T]) Clear(ctx context.Context) error {
	return l.store.Delete(ctx, l.key)
}

package tokens

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Store is the key-value persistence behind a session's tokens. Get returns
// "" with a nil error when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Sweeper is implemented by stores that can drop abandoned session tokens.
// Sweep deletes namespaced keys last written before the cutoff whose
// namespace live does not claim, and returns how many keys went. Keys without
// a namespace (the CLI's) are never swept.
type Sweeper interface {
	Sweep(ctx context.Context, before time.Time, live func(namespace string) bool) (int, error)
}

// Namespace returns the session namespace a Keeper stored key under.
func Namespace(key string) (string, bool) {
	i := strings.LastIndex(key, ":")
	if i <= 0 {
		return "", false
	}
	return key[:i], true
}

func sweepable(key string, live func(string) bool) bool {
	ns, ok := Namespace(key)
	return ok && (live == nil || !live(ns))
}

// MemoryStore keeps tokens in process memory. Used by tests and when
// TOKEN_STORE=memory.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string]memEntry
}

type memEntry struct {
	value   string
	updated time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]memEntry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[key].value, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.m[key] = memEntry{value: value, updated: time.Now()}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Sweep(_ context.Context, before time.Time, live func(string) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.m {
		if e.updated.Before(before) && sweepable(k, live) {
			delete(s.m, k)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.m, k)
	}
	s.mu.Unlock()
	return nil
}

package session

import (
	"context"
	"sync"
	"time"

	"mobilestore/internal/api"
	applog "mobilestore/internal/log"
	"mobilestore/internal/tokens"
)

// Registry hands out one Manager per browser session id. Tokens live in the
// shared Store under the sid namespace, so an evicted Manager is rebuilt from
// them on the next request.
type Registry struct {
	base  *api.Client
	store tokens.Store

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	m        *Manager
	lastSeen time.Time
}

func NewRegistry(base *api.Client, store tokens.Store) *Registry {
	return &Registry{base: base, store: store, sessions: make(map[string]*entry)}
}

func (r *Registry) Get(sid string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		e = &entry{m: NewManager(r.base, tokens.NewKeeper(r.store, sid))}
		r.sessions[sid] = e
	}
	e.lastSeen = time.Now()
	return e.m
}

// Forget drops the in-memory manager. Stored tokens are untouched.
func (r *Registry) Forget(sid string) {
	r.mu.Lock()
	delete(r.sessions, sid)
	r.mu.Unlock()
}

// Discard forgets sid and deletes its stored tokens, for a session id that
// must never be used again.
func (r *Registry) Discard(ctx context.Context, sid string) error {
	r.Forget(sid)
	return tokens.NewKeeper(r.store, sid).Clear(ctx)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Prune evicts managers idle for longer than idle.
func (r *Registry) Prune(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for sid, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(r.sessions, sid)
			n++
		}
	}
	return n
}

func (r *Registry) live(sid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[sid]
	return ok
}

// Sweep deletes stored tokens written before cutoff for sessions no longer
// held in memory. Stores without a sweep (Redis ages keys out itself) are
// left alone.
func (r *Registry) Sweep(ctx context.Context, before time.Time) (int, error) {
	sw, ok := r.store.(tokens.Sweeper)
	if !ok {
		return 0, nil
	}
	return sw.Sweep(ctx, before, r.live)
}

// Run prunes idle managers and sweeps their tokens every interval until ctx
// is done.
func (r *Registry) Run(ctx context.Context, interval, idle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pruned := r.Prune(idle)
			swept, err := r.Sweep(ctx, time.Now().Add(-idle))
			if err != nil {
				applog.Warn(nil, "session.sweep.fail", err, nil)
				continue
			}
			if pruned > 0 || swept > 0 {
				applog.Info(nil, "session.sweep", map[string]any{"pruned": pruned, "tokens": swept})
			}
		}
	}
}

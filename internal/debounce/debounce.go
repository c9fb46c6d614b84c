// Package debounce delays a call until input settles and cancels calls that
// a newer one has replaced.
package debounce

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSuperseded is returned by a call that a newer call replaced, either
// while waiting out the delay or while running.
var ErrSuperseded = errors.New("debounce: superseded by a newer call")

type Debouncer struct {
	delay time.Duration

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelCauseFunc
}

func New(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Do waits for the delay and then runs fn, unless another Do starts first.
// fn's context is cancelled with ErrSuperseded as soon as a newer call
// arrives, and the result of a superseded fn is discarded.
func (d *Debouncer) Do(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithCancelCause(ctx)
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel(ErrSuperseded)
	}
	d.gen++
	gen := d.gen
	d.cancel = cancel
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		if d.gen == gen {
			d.cancel = nil
		}
		d.mu.Unlock()
		cancel(nil)
	}()

	t := time.NewTimer(d.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-t.C:
	}

	err := fn(ctx)
	if errors.Is(context.Cause(ctx), ErrSuperseded) {
		return ErrSuperseded
	}
	return err
}

// idle reports whether no call is pending or running.
func (d *Debouncer) idle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel == nil
}

// Group keeps one Debouncer per key, e.g. one per browser session, and
// drops a key's Debouncer once it has gone idle.
type Group struct {
	delay time.Duration

	mu   sync.Mutex
	keys map[string]*Debouncer
}

func NewGroup(delay time.Duration) *Group {
	return &Group{delay: delay, keys: make(map[string]*Debouncer)}
}

func (g *Group) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	g.mu.Lock()
	d, ok := g.keys[key]
	if !ok {
		d = New(g.delay)
		g.keys[key] = d
	}
	g.mu.Unlock()

	err := d.Do(ctx, fn)

	g.mu.Lock()
	if g.keys[key] == d && d.idle() {
		delete(g.keys, key)
	}
	g.mu.Unlock()
	return err
}

func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.keys)
}

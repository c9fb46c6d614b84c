package debounce

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLastCallWins(t *testing.T) {
	d := New(30 * time.Millisecond)
	var ran []string
	var mu sync.Mutex
	errs := make([]error, 3)

	var wg sync.WaitGroup
	for i, q := range []string{"p", "pi", "pix"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = d.Do(context.Background(), func(context.Context) error {
				mu.Lock()
				ran = append(ran, q)
				mu.Unlock()
				return nil
			})
		}()
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()

	if len(ran) != 1 || ran[0] != "pix" {
		t.Fatalf("expected only the last query to run, got %v", ran)
	}
	for i := 0; i < 2; i++ {
		if !errors.Is(errs[i], ErrSuperseded) {
			t.Fatalf("call %d: expected ErrSuperseded, got %v", i, errs[i])
		}
	}
	if errs[2] != nil {
		t.Fatalf("last call: %v", errs[2])
	}
}

func TestRunningCallIsCancelled(t *testing.T) {
	d := New(time.Millisecond)
	started := make(chan struct{})
	first := make(chan error, 1)
	go func() {
		first <- d.Do(context.Background(), func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})
	}()
	<-started

	if err := d.Do(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if err := <-first; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
}

func TestParentCancellation(t *testing.T) {
	d := New(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ran int32
	err := d.Do(ctx, func(context.Context) error { atomic.AddInt32(&ran, 1); return nil })
	if !errors.Is(err, context.Canceled) || ran != 0 {
		t.Fatalf("got %v ran=%d", err, ran)
	}
}

func TestGroupKeysAreIndependent(t *testing.T) {
	g := NewGroup(10 * time.Millisecond)
	var wg sync.WaitGroup
	var ran int32
	for _, key := range []string{"a", "b"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Do(context.Background(), key, func(context.Context) error {
				atomic.AddInt32(&ran, 1)
				return nil
			}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if ran != 2 {
		t.Fatalf("expected both keys to run, got %d", ran)
	}
	if g.Len() != 0 {
		t.Fatalf("idle debouncers not dropped: %d", g.Len())
	}
}

// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func openTestBadger(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func windowStores(t *testing.T) map[string]WindowStore {
	return map[string]WindowStore{
		"memory": NewMemoryWindowStore(),
		"badger": NewBadgerWindowStore(openTestBadger(t)),
	}
}

func TestCheckLimitExactlyMaxPerWindow(t *testing.T) {
	for name, store := range windowStores(t) {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			l := NewRateLimiter(store).WithClock(clock.Now)
			ctx := context.Background()

			for i := 0; i < 5; i++ {
				ok, err := l.CheckLimit(ctx, "tm", 5, time.Minute)
				if err != nil || !ok {
					t.Fatalf("call %d: ok=%v err=%v", i+1, ok, err)
				}
			}
			if ok, _ := l.CheckLimit(ctx, "tm", 5, time.Minute); ok {
				t.Fatal("6th call within the window must be denied")
			}
			if ok, _ := l.CheckLimit(ctx, "other", 5, time.Minute); !ok {
				t.Error("keys must be independent")
			}

			// At the reset instant the window is still active.
			clock.Advance(time.Minute)
			if ok, _ := l.CheckLimit(ctx, "tm", 5, time.Minute); ok {
				t.Error("window must not reset until now > resetAt")
			}

			clock.Advance(time.Millisecond)
			if ok, _ := l.CheckLimit(ctx, "tm", 5, time.Minute); !ok {
				t.Error("first call after expiry must be allowed")
			}
		})
	}
}

func TestCheckLimitNonPositiveMax(t *testing.T) {
	l := NewRateLimiter(NewMemoryWindowStore())
	if ok, err := l.CheckLimit(context.Background(), "k", 0, time.Minute); ok || err != nil {
		t.Errorf("max=0 must deny: ok=%v err=%v", ok, err)
	}
	if _, err := l.CheckLimit(context.Background(), "k", 1, 0); err == nil {
		t.Error("zero window must be rejected")
	}
}

func TestCheckLimitConcurrent(t *testing.T) {
	for name, store := range windowStores(t) {
		t.Run(name, func(t *testing.T) {
			l := NewRateLimiter(store)
			var allowed int32
			var wg sync.WaitGroup
			for i := 0; i < 40; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ok, err := l.CheckLimit(context.Background(), "shared", 10, time.Hour)
					if err != nil {
						t.Errorf("CheckLimit: %v", err)
						return
					}
					if ok {
						atomic.AddInt32(&allowed, 1)
					}
				}()
			}
			wg.Wait()
			if allowed != 10 {
				t.Errorf("allowed = %d, want exactly 10", allowed)
			}
		})
	}
}

func TestMemoryWindowStoreSweepsExpiredKeys(t *testing.T) {
	store := NewMemoryWindowStore()
	clock := newFakeClock()
	l := NewRateLimiter(store).WithClock(clock.Now)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		_, _ = l.CheckLimit(ctx, fmt.Sprintf("key-%d", i), 1, time.Second)
	}
	clock.Advance(2 * time.Second)
	for i := 0; i < sweepEvery; i++ {
		_, _ = l.CheckLimit(ctx, "live", 1000, time.Hour)
	}
	if n := store.Len(); n != 1 {
		t.Errorf("expected expired keys to be swept, %d keys remain", n)
	}
}

func TestDelay(t *testing.T) {
	start := time.Now()
	if err := Delay(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("Delay: %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("Delay returned early")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Delay(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
}

func TestPacer(t *testing.T) {
	p := NewIntervalPacer(20 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	// First call is immediate, the next two wait one interval each.
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Errorf("pacer did not space calls, elapsed %v", elapsed)
	}

	unpaced := NewPacer(0, 0)
	for i := 0; i < 100; i++ {
		if err := unpaced.Wait(ctx); err != nil {
			t.Fatalf("unpaced Wait: %v", err)
		}
	}
}

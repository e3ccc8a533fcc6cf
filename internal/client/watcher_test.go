package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matheus3301/parley/internal/chatv1"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}
	var zero T
	return zero
}

func TestTypingWatcherExpiresWithoutPush(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)
	clock := &fakeClock{t: start}
	ticks := make(chan time.Time)
	changes := make(chan []chatv1.TypingEntry, 4)

	var fetches atomic.Int32
	fetch := func(context.Context) ([]chatv1.TypingEntry, error) {
		fetches.Add(1)
		return []chatv1.TypingEntry{{UserID: "bob", Name: "Bob", UpdatedAt: start.UnixMilli()}}, nil
	}
	w := NewTypingWatcher(fetch, func(e []chatv1.TypingEntry) { changes <- e },
		WithTicks(ticks), WithClock(clock.Now))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx, nil) }()

	if got := recv(t, changes); len(got) != 1 || got[0].UserID != "bob" {
		t.Fatalf("initial = %+v, want bob", got)
	}

	// Still inside the window: no change.
	clock.Advance(2 * time.Second)
	ticks <- clock.Now()
	if got := w.Current(); len(got) != 1 {
		t.Errorf("current at 2s = %+v, want bob", got)
	}

	clock.Advance(2 * time.Second)
	ticks <- clock.Now()
	if got := recv(t, changes); len(got) != 0 {
		t.Errorf("after window = %+v, want nobody", got)
	}
	if n := fetches.Load(); n != 1 {
		t.Errorf("fetches = %d, want 1; ticks must not re-fetch", n)
	}
}

func TestPresenceWatcherRefetchesOnPush(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)
	clock := &fakeClock{t: start}
	changes := make(chan []chatv1.User, 4)
	pushes := make(chan struct{})

	var mu sync.Mutex
	users := []chatv1.User{{Profile: chatv1.Profile{UserID: "alice"}, LastSeenAt: start.Add(-time.Minute).UnixMilli()}}
	fetch := func(context.Context) ([]chatv1.User, error) {
		mu.Lock()
		defer mu.Unlock()
		return append([]chatv1.User(nil), users...), nil
	}
	w := NewPresenceWatcher(fetch, func(u []chatv1.User) { changes <- u },
		WithTicks(make(chan time.Time)), WithClock(clock.Now))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx, pushes) }()

	mu.Lock()
	users[0].LastSeenAt = start.UnixMilli()
	mu.Unlock()
	pushes <- struct{}{}

	if got := recv(t, changes); len(got) != 1 || got[0].UserID != "alice" {
		t.Fatalf("after push = %+v, want alice online", got)
	}
}

func TestWatcherRunFailsOnFirstFetch(t *testing.T) {
	boom := errors.New("unavailable")
	w := NewTypingWatcher(func(context.Context) ([]chatv1.TypingEntry, error) { return nil, boom }, nil,
		WithTicks(make(chan time.Time)))
	if err := w.Run(context.Background(), nil); !errors.Is(err, boom) {
		t.Errorf("Run() = %v, want %v", err, boom)
	}
}

package client

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/parley/internal/chatv1"
	"github.com/matheus3301/parley/internal/presence"
)

const (
	// TypingTick is how often typing freshness is re-evaluated.
	TypingTick = time.Second
	// PresenceTick is how often online status is re-evaluated.
	PresenceTick = 15 * time.Second
)

// Watcher holds the last fetched snapshot of T and reports which entries
// are fresh. Freshness is re-evaluated against the wall clock on every tick,
// so entries expire even when the server sends nothing. A push only
// triggers a re-fetch.
type Watcher[T any] struct {
	fetch    func(context.Context) ([]T, error)
	fresh    func(T, time.Time) bool
	key      func(T) string
	onChange func([]T)

	tick  time.Duration
	ticks <-chan time.Time
	now   func() time.Time

	mu       sync.Mutex
	snapshot []T
	visible  []string
}

// TypingWatcher tracks who is typing in one conversation.
type TypingWatcher = Watcher[chatv1.TypingEntry]

// PresenceWatcher tracks which users are online.
type PresenceWatcher = Watcher[chatv1.User]

// WatcherOption configures a Watcher.
type WatcherOption func(*watcherOpts)

type watcherOpts struct {
	ticks <-chan time.Time
	now   func() time.Time
}

// WithTicks drives re-evaluation from ch instead of an internal ticker.
func WithTicks(ch <-chan time.Time) WatcherOption {
	return func(o *watcherOpts) { o.ticks = ch }
}

// WithClock overrides the wall clock used for freshness.
func WithClock(now func() time.Time) WatcherOption {
	return func(o *watcherOpts) { o.now = now }
}

func newWatcher[T any](
	fetch func(context.Context) ([]T, error),
	fresh func(T, time.Time) bool,
	key func(T) string,
	tick time.Duration,
	onChange func([]T),
	opts []WatcherOption,
) *Watcher[T] {
	o := watcherOpts{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Watcher[T]{
		fetch:    fetch,
		fresh:    fresh,
		key:      key,
		onChange: onChange,
		tick:     tick,
		ticks:    o.ticks,
		now:      o.now,
	}
}

// NewTypingWatcher re-evaluates typing entries every second against the
// typing window. onChange receives the entries still typing whenever that
// set changes.
func NewTypingWatcher(fetch func(context.Context) ([]chatv1.TypingEntry, error), onChange func([]chatv1.TypingEntry), opts ...WatcherOption) *TypingWatcher {
	return newWatcher(fetch,
		func(e chatv1.TypingEntry, now time.Time) bool { return presence.IsTyping(e.UpdatedAt, now) },
		func(e chatv1.TypingEntry) string { return e.UserID },
		TypingTick, onChange, opts)
}

// NewPresenceWatcher re-evaluates last-seen times every 15 seconds against
// the online window. onChange receives the users online whenever that set
// changes.
func NewPresenceWatcher(fetch func(context.Context) ([]chatv1.User, error), onChange func([]chatv1.User), opts ...WatcherOption) *PresenceWatcher {
	return newWatcher(fetch,
		func(u chatv1.User, now time.Time) bool { return presence.IsOnline(u.LastSeenAt, now) },
		func(u chatv1.User) string { return u.UserID },
		PresenceTick, onChange, opts)
}

// Run fetches once, then re-fetches on every push and re-evaluates on every
// tick until ctx is done. A failed fetch keeps the previous snapshot.
func (w *Watcher[T]) Run(ctx context.Context, pushes <-chan struct{}) error {
	ticks := w.ticks
	if ticks == nil {
		ticker := time.NewTicker(w.tick)
		defer ticker.Stop()
		ticks = ticker.C
	}

	if err := w.Refresh(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-pushes:
			if !ok {
				pushes = nil
				continue
			}
			_ = w.Refresh(ctx)
		case <-ticks:
			w.evaluate()
		}
	}
}

// Refresh replaces the snapshot with a fresh fetch and re-evaluates it.
func (w *Watcher[T]) Refresh(ctx context.Context) error {
	items, err := w.fetch(ctx)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.snapshot = items
	w.mu.Unlock()
	w.evaluate()
	return nil
}

// Current returns the snapshot entries that are fresh now.
func (w *Watcher[T]) Current() []T {
	w.mu.Lock()
	defer w.mu.Unlock()
	out, _ := w.freshLocked()
	return out
}

func (w *Watcher[T]) freshLocked() ([]T, []string) {
	now := w.now()
	var out []T
	var keys []string
	for _, item := range w.snapshot {
		if w.fresh(item, now) {
			out = append(out, item)
			keys = append(keys, w.key(item))
		}
	}
	slices.Sort(keys)
	return out, keys
}

func (w *Watcher[T]) evaluate() {
	w.mu.Lock()
	out, keys := w.freshLocked()
	changed := !slices.Equal(keys, w.visible)
	w.visible = keys
	w.mu.Unlock()

	if changed && w.onChange != nil {
		w.onChange(out)
	}
}

package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Snapshot is an immutable copy of a view's state. Items is nil with Err
// set after a total read failure.
type Snapshot[T any] struct {
	Items       []T       `json:"items"`
	Loading     bool      `json:"loading"`
	Err         error     `json:"-"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Error returns the failure message, or "" when the last refresh succeeded.
func (s Snapshot[T]) Error() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// View is a cached replica of one record collection. It is only ever
// replaced whole by Refresh, never patched.
type View[T any] struct {
	name   string
	load   func(context.Context) ([]T, error)
	notify func(context.Context, Snapshot[T])
	now    func() time.Time

	mu      sync.RWMutex
	snap    Snapshot[T]
	started uint64
	applied uint64
}

// NewView creates a view filled by load. notify, if non-nil, is called
// after every applied refresh.
func NewView[T any](name string, load func(context.Context) ([]T, error), notify func(context.Context, Snapshot[T])) *View[T] {
	return &View[T]{name: name, load: load, notify: notify, now: time.Now}
}

// Snapshot returns the current state.
func (v *View[T]) Snapshot() Snapshot[T] {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snap
}

// Items returns the current records.
func (v *View[T]) Items() []T {
	return v.Snapshot().Items
}

// Refresh re-reads the collection and replaces the view. When refreshes
// overlap, a result older than the one already applied is discarded. A
// cancelled refresh leaves the view untouched and returns the context error
// without logging.
func (v *View[T]) Refresh(ctx context.Context) error {
	v.mu.Lock()
	v.started++
	gen := v.started
	v.snap.Loading = true
	v.mu.Unlock()

	items, err := v.load(ctx)

	if ctx.Err() != nil {
		v.mu.Lock()
		if v.started == gen {
			v.snap.Loading = false
		}
		v.mu.Unlock()
		return ctx.Err()
	}

	v.mu.Lock()
	if gen < v.applied {
		v.mu.Unlock()
		return err
	}
	v.applied = gen
	next := Snapshot[T]{Items: items, Err: err, RefreshedAt: v.now(), Loading: v.started != gen}
	if err != nil {
		next.Items = nil
	}
	v.snap = next
	v.mu.Unlock()

	if err != nil {
		slog.WarnContext(ctx, "view refresh failed", "view", v.name, "error", err)
	}
	if v.notify != nil {
		v.notify(ctx, next)
	}
	return err
}

// Run refreshes the view every interval until ctx is done. An interval of
// zero or less returns immediately: refresh is then demand-driven only.
func (v *View[T]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = v.Refresh(ctx)
		}
	}
}

package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

var errTest = errors.New("rpc unavailable")

func TestClosedStateAllowsCalls(t *testing.T) {
	b := NewBreaker(3, time.Second)
	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called")
	}
}

func TestOpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker(3, time.Second)
	for range 3 {
		_ = b.Execute(func() error { return errTest })
	}
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %s", b.State())
	}
}

func TestHalfOpenAfterTimeout(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	for range 2 {
		_ = b.Execute(func() error { return errTest })
	}
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}

	now = now.Add(time.Second)
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half_open, got %s", b.State())
	}
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("trial call should pass, got %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("expected closed after success, got %s", b.State())
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := NewBreaker(1, time.Second)
	b.now = func() time.Time { return now }

	_ = b.Execute(func() error { return errTest })
	now = now.Add(2 * time.Second)
	_ = b.Execute(func() error { return errTest })

	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected reopened circuit, got %v", err)
	}
}

func TestCancellationIsNeutral(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	for range 5 {
		_ = b.Execute(func() error { return fmt.Errorf("read: %w", context.Canceled) })
	}
	if b.State() != StateClosed {
		t.Fatalf("cancellations must not trip the breaker, got %s", b.State())
	}
}

func TestSuccessResetsFailures(t *testing.T) {
	b := NewBreaker(2, time.Minute)
	_ = b.Execute(func() error { return errTest })
	_ = b.Execute(func() error { return nil })
	_ = b.Execute(func() error { return errTest })
	if b.State() != StateClosed {
		t.Fatalf("non-consecutive failures must not trip, got %s", b.State())
	}
}

func TestCall(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	n, err := Call(b, func() (uint64, error) { return 42, nil })
	if err != nil || n != 42 {
		t.Fatalf("Call = %d, %v", n, err)
	}
	_, _ = Call(b, func() (uint64, error) { return 0, errTest })
	if _, err := Call(b, func() (uint64, error) { return 1, nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestView_RefreshReplaces(t *testing.T) {
	var calls int
	var notified []Snapshot[int]
	v := NewView("nums", func(context.Context) ([]int, error) {
		calls++
		if calls == 1 {
			return []int{1, 2, 3}, nil
		}
		return []int{4}, nil
	}, func(_ context.Context, s Snapshot[int]) { notified = append(notified, s) })

	for range 2 {
		if err := v.Refresh(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	s := v.Snapshot()
	if len(s.Items) != 1 || s.Items[0] != 4 {
		t.Errorf("items = %v, want [4]", s.Items)
	}
	if s.Loading || s.Err != nil || s.RefreshedAt.IsZero() {
		t.Errorf("snapshot = %+v", s)
	}
	if len(notified) != 2 {
		t.Errorf("notified %d times, want 2", len(notified))
	}
}

func TestView_TotalFailureClearsItems(t *testing.T) {
	fail := false
	v := NewView("nums", func(context.Context) ([]int, error) {
		if fail {
			return []int{9}, errRPC
		}
		return []int{1}, nil
	}, nil)

	_ = v.Refresh(context.Background())
	fail = true
	err := v.Refresh(context.Background())
	if !errors.Is(err, errRPC) {
		t.Fatalf("err = %v", err)
	}
	s := v.Snapshot()
	if s.Items != nil || s.Loading || s.Error() != errRPC.Error() {
		t.Errorf("snapshot = %+v", s)
	}
}

func TestView_CancelledRefreshKeepsState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := true
	v := NewView("nums", func(ctx context.Context) ([]int, error) {
		if first {
			first = false
			return []int{1}, nil
		}
		cancel()
		return nil, ctx.Err()
	}, nil)

	_ = v.Refresh(context.Background())
	if err := v.Refresh(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	s := v.Snapshot()
	if len(s.Items) != 1 || s.Err != nil || s.Loading {
		t.Errorf("cancelled refresh changed the view: %+v", s)
	}
}

func TestView_StaleResultDiscarded(t *testing.T) {
	slowRelease := make(chan struct{})
	slowStarted := make(chan struct{})
	var mu sync.Mutex
	n := 0
	v := NewView("nums", func(context.Context) ([]int, error) {
		mu.Lock()
		n++
		call := n
		mu.Unlock()
		if call == 1 {
			close(slowStarted)
			<-slowRelease
			return []int{1}, nil
		}
		return []int{2}, nil
	}, nil)

	done := make(chan struct{})
	go func() {
		_ = v.Refresh(context.Background())
		close(done)
	}()
	<-slowStarted
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	close(slowRelease)
	<-done

	s := v.Snapshot()
	if len(s.Items) != 1 || s.Items[0] != 2 {
		t.Errorf("items = %v, want the newer result [2]", s.Items)
	}
}

func TestView_RunWithoutIntervalReturns(t *testing.T) {
	v := NewView("nums", func(context.Context) ([]int, error) {
		t.Error("no refresh expected")
		return nil, nil
	}, nil)
	done := make(chan struct{})
	go func() {
		v.Run(context.Background(), 0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run(0) did not return")
	}
}

func TestView_RunPolls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	refreshed := make(chan struct{}, 1)
	v := NewView("nums", func(context.Context) ([]int, error) {
		select {
		case refreshed <- struct{}{}:
		default:
		}
		return []int{1}, nil
	}, nil)
	go v.Run(ctx, 5*time.Millisecond)

	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("Run never refreshed")
	}
}

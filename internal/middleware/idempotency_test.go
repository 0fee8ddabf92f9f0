package middleware_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hivemind-swarm/hivemind/internal/middleware"
)

type mockStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string][]byte)}
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mockStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func countingHandler(counter *int, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*counter++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"call":%d}`, *counter)
	})
}

func post(h http.Handler, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, http.NoBody)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency_NoHeader(t *testing.T) {
	counter := 0
	store := newMockStore()
	h := middleware.Idempotency(store, time.Hour)(countingHandler(&counter, http.StatusOK))

	post(h, "/api/v1/tasks/1/claim", "")
	post(h, "/api/v1/tasks/1/claim", "")

	if counter != 2 {
		t.Fatalf("expected 2 calls, got %d", counter)
	}
	if store.len() != 0 {
		t.Fatalf("expected nothing stored, got %d", store.len())
	}
}

func TestIdempotency_SecondRequestReplays(t *testing.T) {
	counter := 0
	store := newMockStore()
	h := middleware.Idempotency(store, time.Hour)(countingHandler(&counter, http.StatusAccepted))

	first := post(h, "/api/v1/tasks/1/claim", "key-1")
	second := post(h, "/api/v1/tasks/1/claim", "key-1")

	if counter != 1 {
		t.Fatalf("expected handler called once, got %d", counter)
	}
	if second.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body = %s, want %s", second.Body.String(), first.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatal("expected Idempotent-Replayed header")
	}
	if second.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("content type = %q", second.Header().Get("Content-Type"))
	}
}

func TestIdempotency_KeyScopedToRoute(t *testing.T) {
	counter := 0
	store := newMockStore()
	h := middleware.Idempotency(store, time.Hour)(countingHandler(&counter, http.StatusOK))

	post(h, "/api/v1/tasks/1/claim", "same")
	post(h, "/api/v1/tasks/2/claim", "same")

	if counter != 2 {
		t.Fatalf("expected 2 calls, got %d", counter)
	}
}

func TestIdempotency_ServerErrorNotRecorded(t *testing.T) {
	counter := 0
	store := newMockStore()
	h := middleware.Idempotency(store, time.Hour)(countingHandler(&counter, http.StatusBadGateway))

	post(h, "/api/v1/tasks/1/claim", "retry")
	post(h, "/api/v1/tasks/1/claim", "retry")

	if counter != 2 {
		t.Fatalf("expected retry to reach the handler, got %d calls", counter)
	}
}

func TestIdempotency_GETIgnored(t *testing.T) {
	counter := 0
	store := newMockStore()
	h := middleware.Idempotency(store, time.Hour)(countingHandler(&counter, http.StatusOK))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", http.NoBody)
	req.Header.Set("Idempotency-Key", "key-get")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if counter != 1 || store.len() != 0 {
		t.Fatalf("GET should bypass: calls=%d stored=%d", counter, store.len())
	}
}

func TestIdempotency_StoreFailureFallsThrough(t *testing.T) {
	counter := 0
	store := newMockStore()
	store.getErr = errors.New("kv down")
	h := middleware.Idempotency(store, time.Hour)(countingHandler(&counter, http.StatusOK))

	rec := post(h, "/api/v1/tasks/1/claim", "key")
	if rec.Code != http.StatusOK || counter != 1 {
		t.Fatalf("code=%d calls=%d", rec.Code, counter)
	}
}

// Package service contains application services: the record fetcher, the
// refreshable views built on it, and the write flows that feed them.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	hmotel "github.com/hivemind-swarm/hivemind/internal/adapter/otel"
	"github.com/hivemind-swarm/hivemind/internal/domain/dispute"
	"github.com/hivemind-swarm/hivemind/internal/domain/task"
	"github.com/hivemind-swarm/hivemind/internal/port/cache"
	"github.com/hivemind-swarm/hivemind/internal/port/ledger"
	"github.com/hivemind-swarm/hivemind/internal/resilience"
)

// frozenTTL is how long a terminal record stays cached. Terminal records
// never change, so the limit only bounds cache growth.
const frozenTTL = 7 * 24 * time.Hour

// maxRecordCount is the largest count a refresh will fan out over. A larger
// count fails the whole read.
const maxRecordCount = 100_000

// ErrCountTooLarge reports a ledger count above maxRecordCount.
var ErrCountTooLarge = errors.New("record count exceeds fetch limit")

// RecordFetcher reads every task or dispute from the ledger: one count read,
// then one read per id, fanned out concurrently. Ids whose read fails are
// dropped from the batch.
type RecordFetcher struct {
	reader  ledger.Reader
	pool    *resilience.Pool
	breaker *resilience.Breaker
	cache   cache.Cache
	metrics *hmotel.Metrics
}

// NewRecordFetcher creates a fetcher over reader. pool bounds concurrent
// reads and may be shared with other callers of the same endpoint.
func NewRecordFetcher(reader ledger.Reader, pool *resilience.Pool) *RecordFetcher {
	return &RecordFetcher{reader: reader, pool: pool}
}

// SetBreaker guards count reads with a circuit breaker.
func (f *RecordFetcher) SetBreaker(b *resilience.Breaker) { f.breaker = b }

// SetCache stores terminal records in c so later batches skip their reads.
func (f *RecordFetcher) SetCache(c cache.Cache) { f.cache = c }

// SetMetrics attaches metric instruments.
func (f *RecordFetcher) SetMetrics(m *hmotel.Metrics) { f.metrics = m }

// Tasks reads all tasks, ordered by id.
func (f *RecordFetcher) Tasks(ctx context.Context) ([]task.Task, error) {
	return fetchAll(ctx, f, ledger.KindTask, f.Task)
}

// Disputes reads all disputes, ordered by id.
func (f *RecordFetcher) Disputes(ctx context.Context) ([]dispute.Dispute, error) {
	return fetchAll(ctx, f, ledger.KindDispute, f.Dispute)
}

// Task reads and decodes one task. A Completed or Cancelled task is served
// from the cache when present.
func (f *RecordFetcher) Task(ctx context.Context, id uint64) (task.Task, error) {
	key := "task:" + strconv.FormatUint(id, 10)
	var t task.Task
	if f.cached(ctx, key, &t) {
		return t, nil
	}
	var raw task.Raw
	err := f.pool.Run(ctx, func() error {
		var err error
		raw, err = f.reader.Task(ctx, id)
		return err
	})
	if err != nil {
		return task.Task{}, err
	}
	t, err = task.Decode(id, raw)
	if err != nil {
		return task.Task{}, err
	}
	if t.Status.Terminal() {
		f.store(ctx, key, t)
	}
	return t, nil
}

// Dispute reads and decodes one dispute. A resolved dispute is served from
// the cache when present.
func (f *RecordFetcher) Dispute(ctx context.Context, id uint64) (dispute.Dispute, error) {
	key := "dispute:" + strconv.FormatUint(id, 10)
	var d dispute.Dispute
	if f.cached(ctx, key, &d) {
		return d, nil
	}
	var raw dispute.Raw
	err := f.pool.Run(ctx, func() error {
		var err error
		raw, err = f.reader.Dispute(ctx, id)
		return err
	})
	if err != nil {
		return dispute.Dispute{}, err
	}
	d, err = dispute.Decode(id, raw)
	if err != nil {
		return dispute.Dispute{}, err
	}
	if d.Resolved {
		f.store(ctx, key, d)
	}
	return d, nil
}

// Count reads the entity count through the breaker.
func (f *RecordFetcher) Count(ctx context.Context, kind ledger.Kind) (uint64, error) {
	read := func() (uint64, error) { return f.reader.Count(ctx, kind) }
	if f.breaker == nil {
		return read()
	}
	return resilience.Call(f.breaker, read)
}

func fetchAll[T any](ctx context.Context, f *RecordFetcher, kind ledger.Kind, get func(context.Context, uint64) (T, error)) ([]T, error) {
	ctx, span := hmotel.StartFetchSpan(ctx, string(kind))
	defer span.End()
	start := time.Now()

	n, err := f.Count(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", kind, err)
	}
	if n == 0 {
		return nil, nil
	}
	if n > maxRecordCount {
		return nil, fmt.Errorf("count %s: %d: %w", kind, n, ErrCountTooLarge)
	}

	slots := make([]T, n)
	ok := make([]bool, n)
	var g errgroup.Group
	for i := range n {
		id := i + 1
		g.Go(func() error {
			rec, err := get(ctx, id)
			if err != nil {
				if ctx.Err() == nil {
					slog.DebugContext(ctx, "dropped record from batch", "kind", kind, "id", id, "error", err)
				}
				return nil
			}
			slots[i], ok[i] = rec, true
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]T, 0, n)
	for i, rec := range slots {
		if ok[i] {
			out = append(out, rec)
		}
	}

	if f.metrics != nil {
		attrs := metric.WithAttributes(attribute.String("kind", string(kind)))
		f.metrics.RecordsFetched.Add(ctx, int64(len(out)), attrs)
		f.metrics.RecordsDropped.Add(ctx, int64(n)-int64(len(out)), attrs)
		f.metrics.FetchDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
	return out, nil
}

func (f *RecordFetcher) cached(ctx context.Context, key string, v any) bool {
	if f.cache == nil {
		return false
	}
	data, ok, err := f.cache.Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		slog.WarnContext(ctx, "discarding unreadable cache entry", "key", key, "error", err)
		_ = f.cache.Delete(ctx, key)
		return false
	}
	if f.metrics != nil {
		f.metrics.CacheHits.Add(ctx, 1)
	}
	return true
}

func (f *RecordFetcher) store(ctx context.Context, key string, v any) {
	if f.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := f.cache.Set(ctx, key, data, frozenTTL); err != nil && !errors.Is(err, context.Canceled) {
		slog.WarnContext(ctx, "cache set failed", "key", key, "error", err)
	}
}

package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "hivemind"

// Metrics holds all HiveMind metric instruments.
type Metrics struct {
	RecordsFetched metric.Int64Counter
	RecordsDropped metric.Int64Counter
	CacheHits      metric.Int64Counter
	RefreshFailed  metric.Int64Counter
	TxOutcomes     metric.Int64Counter
	FetchDuration  metric.Float64Histogram
	TxDuration     metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.RecordsFetched, err = meter.Int64Counter("hivemind.records.fetched",
		metric.WithDescription("Ledger records read and decoded"))
	if err != nil {
		return nil, err
	}

	m.RecordsDropped, err = meter.Int64Counter("hivemind.records.dropped",
		metric.WithDescription("Per-id reads dropped from a batch"))
	if err != nil {
		return nil, err
	}

	m.CacheHits, err = meter.Int64Counter("hivemind.records.cache_hits",
		metric.WithDescription("Terminal records served from cache"))
	if err != nil {
		return nil, err
	}

	m.RefreshFailed, err = meter.Int64Counter("hivemind.refresh.failed",
		metric.WithDescription("View refreshes that ended in a total read failure"))
	if err != nil {
		return nil, err
	}

	m.TxOutcomes, err = meter.Int64Counter("hivemind.tx.outcomes",
		metric.WithDescription("Write steps by outcome"))
	if err != nil {
		return nil, err
	}

	m.FetchDuration, err = meter.Float64Histogram("hivemind.fetch.duration_seconds",
		metric.WithDescription("Batch fetch duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.TxDuration, err = meter.Float64Histogram("hivemind.tx.duration_seconds",
		metric.WithDescription("Time from signature request to confirmation in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

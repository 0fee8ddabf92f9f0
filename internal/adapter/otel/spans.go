package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "hivemind"

// StartFetchSpan starts a span for a batch read of one record kind.
func StartFetchSpan(ctx context.Context, kind string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "fetch",
		trace.WithAttributes(attribute.String("ledger.kind", kind)),
	)
}

// StartTxSpan starts a span for one write step of a flow.
func StartTxSpan(ctx context.Context, flowID, step string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "tx",
		trace.WithAttributes(
			attribute.String("flow.id", flowID),
			attribute.String("tx.step", step),
		),
	)
}

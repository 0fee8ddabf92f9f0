package logger

import "context"

type contextKey int

const (
	requestIDKey contextKey = iota
	flowIDKey
)

// WithRequestID returns a new context with the given request ID stored.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID extracts the request ID from the context.
// Returns an empty string if no request ID is set.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithFlowID tags ctx with the ID of the write flow it belongs to.
func WithFlowID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, flowIDKey, id)
}

// FlowID extracts the write flow ID from the context.
func FlowID(ctx context.Context) string {
	id, _ := ctx.Value(flowIDKey).(string)
	return id
}

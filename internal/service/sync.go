package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hivemind-swarm/hivemind/internal/port/messagequeue"
)

// Follow subscribes m to writes confirmed and refreshes requested by other
// instances. Messages from instance itself are ignored; its own writes
// already refreshed the views. A failed refresh is not retried. The
// returned function cancels both subscriptions.
func Follow(ctx context.Context, q messagequeue.Queue, instance string, m *ReadModel) (func(), error) {
	onConfirmed := func(ctx context.Context, _ string, data []byte) error {
		var p messagequeue.TxConfirmedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		if p.Instance == instance {
			return nil
		}
		slog.DebugContext(ctx, "remote write confirmed", "instance", p.Instance, "step", p.Step, "hash", p.Hash)
		_ = m.Refresh(ctx)
		return nil
	}
	onRefresh := func(ctx context.Context, _ string, data []byte) error {
		var p messagequeue.RefreshPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		if p.Instance == instance {
			return nil
		}
		_ = m.Refresh(ctx)
		return nil
	}

	cancelConfirmed, err := q.Subscribe(ctx, messagequeue.SubjectTxConfirmed, onConfirmed)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", messagequeue.SubjectTxConfirmed, err)
	}
	cancelRefresh, err := q.Subscribe(ctx, messagequeue.SubjectRefresh, onRefresh)
	if err != nil {
		cancelConfirmed()
		return nil, fmt.Errorf("subscribe %s: %w", messagequeue.SubjectRefresh, err)
	}
	return func() {
		cancelConfirmed()
		cancelRefresh()
	}, nil
}

// RequestRefresh refreshes m locally and asks other instances to do the
// same. q may be nil.
func RequestRefresh(ctx context.Context, q messagequeue.Queue, instance, reason string, m *ReadModel) error {
	err := m.Refresh(ctx)
	if q == nil {
		return err
	}
	data, merr := json.Marshal(messagequeue.RefreshPayload{Instance: instance, Reason: reason})
	if merr == nil {
		if perr := q.Publish(ctx, messagequeue.SubjectRefresh, data); perr != nil {
			slog.WarnContext(ctx, "publish refresh failed", "error", perr)
		}
	}
	return err
}

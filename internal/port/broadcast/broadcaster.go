// Package broadcast defines the port for pushing view updates to connected clients.
package broadcast

import "context"

// Event types pushed to clients.
const (
	EventTasksRefreshed    = "tasks.refreshed"
	EventDisputesRefreshed = "disputes.refreshed"
	EventTxPhase           = "tx.phase"
)

// Broadcaster sends a typed event to all connected clients.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}

// Package journal defines the port for recording completed ledger writes.
package journal

import (
	"context"
	"time"

	"github.com/hivemind-swarm/hivemind/internal/domain/tx"
)

// Entry is one finished write as observed by this instance.
type Entry struct {
	ID        string     `json:"id"`
	FlowID    string     `json:"flow_id"`
	Account   string     `json:"account"`
	Step      string     `json:"step"`
	TaskID    uint64     `json:"task_id,omitempty"`
	DisputeID uint64     `json:"dispute_id,omitempty"`
	Hash      string     `json:"hash,omitempty"`
	Outcome   tx.Outcome `json:"outcome"`
	Message   string     `json:"message,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Store persists and lists journal entries.
type Store interface {
	Append(ctx context.Context, e *Entry) error
	// ListByAccount returns the newest entries for account, up to limit.
	ListByAccount(ctx context.Context, account string, limit int) ([]Entry, error)
}

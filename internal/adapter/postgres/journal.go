package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hivemind-swarm/hivemind/internal/domain/tx"
	"github.com/hivemind-swarm/hivemind/internal/port/journal"
)

// JournalStore implements journal.Store using PostgreSQL (append-only).
type JournalStore struct {
	pool *pgxpool.Pool
}

var _ journal.Store = (*JournalStore)(nil)

// NewJournalStore creates a JournalStore backed by the given connection pool.
func NewJournalStore(pool *pgxpool.Pool) *JournalStore {
	return &JournalStore{pool: pool}
}

const journalColumns = `id, flow_id, account, step, task_id, dispute_id, tx_hash, outcome, message, created_at`

// journalSelect renders the UUID columns as text for scanning into strings.
const journalSelect = `id::text, flow_id::text, account, step, task_id, dispute_id, tx_hash, outcome, message, created_at`

// Append inserts one entry.
func (s *JournalStore) Append(ctx context.Context, e *journal.Entry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tx_journal (`+journalColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.FlowID, e.Account, e.Step, int64(e.TaskID), int64(e.DisputeID), //nolint:gosec // ledger ids fit in int64
		e.Hash, string(e.Outcome), e.Message, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

// ListByAccount returns the newest entries for account, matching the
// address case-insensitively.
func (s *JournalStore) ListByAccount(ctx context.Context, account string, limit int) ([]journal.Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+journalSelect+` FROM tx_journal
		 WHERE lower(account) = lower($1)
		 ORDER BY created_at DESC LIMIT $2`, account, limit)
	if err != nil {
		return nil, fmt.Errorf("list journal for %s: %w", account, err)
	}
	defer rows.Close()

	var entries []journal.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return orEmpty(entries), rows.Err()
}

func scanEntry(row scannable) (journal.Entry, error) {
	var (
		e                 journal.Entry
		taskID, disputeID int64
		outcome           string
	)
	if err := row.Scan(&e.ID, &e.FlowID, &e.Account, &e.Step, &taskID, &disputeID,
		&e.Hash, &outcome, &e.Message, &e.CreatedAt); err != nil {
		return journal.Entry{}, fmt.Errorf("scan journal entry: %w", err)
	}
	e.TaskID = uint64(taskID)       //nolint:gosec // stored from uint64
	e.DisputeID = uint64(disputeID) //nolint:gosec // stored from uint64
	e.Outcome = tx.Outcome(outcome)
	return e, nil
}

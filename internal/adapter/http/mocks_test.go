package http_test

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/hivemind-swarm/hivemind/internal/domain/address"
	"github.com/hivemind-swarm/hivemind/internal/domain/dispute"
	"github.com/hivemind-swarm/hivemind/internal/domain/task"
	"github.com/hivemind-swarm/hivemind/internal/domain/tx"
	"github.com/hivemind-swarm/hivemind/internal/port/journal"
	"github.com/hivemind-swarm/hivemind/internal/port/ledger"
)

var (
	alice = address.MustParse("0x000000000000000000000000000000000000a11c")
	bob   = address.MustParse("0x0000000000000000000000000000000000000b0b")
	carol = address.MustParse("0x00000000000000000000000000000000000ca401")
)

func rawTask(id uint64, creator, assignee address.Address, status task.Status, reward, bond int64) task.Raw {
	if assignee == "" {
		assignee = address.Zero
	}
	return task.Raw{
		ID:              new(big.Int).SetUint64(id),
		Creator:         creator.String(),
		Assignee:        assignee.String(),
		Reward:          big.NewInt(reward),
		BondAmount:      big.NewInt(bond),
		Status:          uint8(status),
		DescriptionHash: fmt.Sprintf("task %d", id),
		Deadline:        big.NewInt(1_900_000_000),
		CreatedAt:       big.NewInt(1_700_000_000),
		ParentTaskID:    big.NewInt(0),
		ChildCount:      big.NewInt(0),
		ChildCompleted:  big.NewInt(0),
	}
}

// mockLedger is an in-memory ledger. Writes take effect on Wait.
type mockLedger struct {
	mu        sync.Mutex
	tasks     map[uint64]task.Raw
	disputes  map[uint64]dispute.Raw
	allowance *big.Int
	balance   *big.Int
	poolSize  uint64
	juror     bool
	account   address.Address
	revert    map[string]error
	calls     []string
}

func newMockLedger(account address.Address) *mockLedger {
	return &mockLedger{
		tasks:     map[uint64]task.Raw{},
		disputes:  map[uint64]dispute.Raw{},
		allowance: big.NewInt(0),
		balance:   big.NewInt(0),
		account:   account,
		revert:    map[string]error{},
	}
}

func (m *mockLedger) Count(_ context.Context, kind ledger.Kind) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if kind == ledger.KindTask {
		return uint64(len(m.tasks)), nil
	}
	return uint64(len(m.disputes)), nil
}

func (m *mockLedger) Task(_ context.Context, id uint64) (task.Raw, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.tasks[id]
	if !ok {
		return task.Raw{}, ledger.ErrOutOfRange
	}
	return r, nil
}

func (m *mockLedger) Dispute(_ context.Context, id uint64) (dispute.Raw, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.disputes[id]
	if !ok {
		return dispute.Raw{}, ledger.ErrOutOfRange
	}
	return r, nil
}

func (m *mockLedger) JurorPoolSize(context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.poolSize, nil
}

func (m *mockLedger) IsRegisteredJuror(_ context.Context, a address.Address) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.juror && a.Equal(m.account), nil
}

func (m *mockLedger) Allowance(context.Context, address.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.allowance), nil
}

func (m *mockLedger) BalanceOf(context.Context, address.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.balance), nil
}

func (m *mockLedger) Account() address.Address { return m.account }

func (m *mockLedger) submit(method string, effect func()) (ledger.TxHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, method)
	if err := m.revert[method]; err != nil {
		return nil, err
	}
	return &mockTx{ledger: m, hash: fmt.Sprintf("0x%04d", len(m.calls)), effect: effect}, nil
}

func (m *mockLedger) setStatus(id uint64, s task.Status) {
	r := m.tasks[id]
	r.Status = uint8(s)
	m.tasks[id] = r
}

func (m *mockLedger) Approve(_ context.Context, amount *big.Int) (ledger.TxHandle, error) {
	return m.submit("approve", func() { m.allowance = new(big.Int).Set(amount) })
}

func (m *mockLedger) CreateTask(_ context.Context, p ledger.CreateTaskParams) (ledger.TxHandle, error) {
	return m.submit("createTask", func() {
		id := uint64(len(m.tasks)) + 1
		r := rawTask(id, m.account, "", task.StatusOpen, p.Reward.Int64(), p.Bond.Int64())
		r.DescriptionHash = p.DescriptionHash
		m.tasks[id] = r
	})
}

func (m *mockLedger) ClaimTask(_ context.Context, id uint64) (ledger.TxHandle, error) {
	return m.submit("claimTask", func() {
		m.setStatus(id, task.StatusClaimed)
		r := m.tasks[id]
		r.Assignee = m.account.String()
		m.tasks[id] = r
	})
}

func (m *mockLedger) SubmitWork(_ context.Context, id uint64, _ string) (ledger.TxHandle, error) {
	return m.submit("submitWork", func() { m.setStatus(id, task.StatusSubmitted) })
}

func (m *mockLedger) ApproveWork(_ context.Context, id uint64) (ledger.TxHandle, error) {
	return m.submit("approveWork", func() { m.setStatus(id, task.StatusCompleted) })
}

func (m *mockLedger) CancelTask(_ context.Context, id uint64) (ledger.TxHandle, error) {
	return m.submit("cancelTask", func() { m.setStatus(id, task.StatusCancelled) })
}

func (m *mockLedger) OpenDispute(_ context.Context, id uint64) (ledger.TxHandle, error) {
	return m.submit("openDispute", func() { m.setStatus(id, task.StatusDisputed) })
}

func (m *mockLedger) CastVote(_ context.Context, id uint64, forWorker bool) (ledger.TxHandle, error) {
	return m.submit("castVote", func() {
		d := m.disputes[id]
		d.Votes[d.VoteCount] = forWorker
		d.VoteCount++
		m.disputes[id] = d
	})
}

func (m *mockLedger) RegisterJuror(context.Context) (ledger.TxHandle, error) {
	return m.submit("registerJuror", func() {
		m.juror = true
		m.poolSize++
	})
}

type mockTx struct {
	ledger *mockLedger
	hash   string
	effect func()
}

func (t *mockTx) Hash() string { return t.hash }

func (t *mockTx) Wait(context.Context) error {
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()
	t.effect()
	return nil
}

// mockJournal returns canned entries.
type mockJournal struct {
	entries []journal.Entry
}

func (j *mockJournal) Append(_ context.Context, e *journal.Entry) error {
	j.entries = append(j.entries, *e)
	return nil
}

func (j *mockJournal) ListByAccount(_ context.Context, account string, limit int) ([]journal.Entry, error) {
	var out []journal.Entry
	for _, e := range j.entries {
		if address.Equal(e.Account, account) && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

var errRevertNotOpen = &tx.RevertError{Name: "TaskNotOpen"}

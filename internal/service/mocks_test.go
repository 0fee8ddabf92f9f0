package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/hivemind-swarm/hivemind/internal/domain/address"
	"github.com/hivemind-swarm/hivemind/internal/domain/dispute"
	"github.com/hivemind-swarm/hivemind/internal/domain/task"
	"github.com/hivemind-swarm/hivemind/internal/port/journal"
	"github.com/hivemind-swarm/hivemind/internal/port/ledger"
	"github.com/hivemind-swarm/hivemind/internal/port/messagequeue"
)

var (
	alice = address.MustParse("0x000000000000000000000000000000000000a11c")
	bob   = address.MustParse("0x0000000000000000000000000000000000000b0b")
	carol = address.MustParse("0x00000000000000000000000000000000000ca401")
	dave  = address.MustParse("0x0000000000000000000000000000000000000da4")
)

var errRPC = errors.New("rpc unavailable")

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

func rawDispute(taskID uint64, jurors [3]address.Address, votes [3]bool, voteCount uint8, resolved bool) dispute.Raw {
	r := dispute.Raw{TaskID: new(big.Int).SetUint64(taskID), Votes: votes, VoteCount: voteCount, Resolved: resolved}
	for i, j := range jurors {
		if j == "" {
			j = address.Zero
		}
		r.Jurors[i] = j.String()
	}
	return r
}

// mockLedger is an in-memory ledger implementing both ledger.Reader and
// ledger.Writer. Writes take effect when their handle's Wait returns.
type mockLedger struct {
	mu sync.Mutex

	tasks        map[uint64]task.Raw
	taskCount    uint64
	disputes     map[uint64]dispute.Raw
	disputeCount uint64
	failIDs      map[uint64]bool
	countErr     error
	countCalls   int
	taskReads    int

	allowance *big.Int
	balance   *big.Int
	poolSize  uint64
	jurors    map[address.Address]bool

	account address.Address
	// approveShort makes an approval confirm without raising the allowance.
	approveShort bool
	sendErr      map[string]error
	waitErr      map[string]error
	// block, when set, holds every Wait until it is closed.
	block chan struct{}
	calls []string
}

func newMockLedger(account address.Address) *mockLedger {
	return &mockLedger{
		tasks:     map[uint64]task.Raw{},
		disputes:  map[uint64]dispute.Raw{},
		failIDs:   map[uint64]bool{},
		allowance: big.NewInt(0),
		balance:   big.NewInt(0),
		jurors:    map[address.Address]bool{},
		account:   account,
		sendErr:   map[string]error{},
		waitErr:   map[string]error{},
	}
}

func (m *mockLedger) addTask(r task.Raw) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := r.ID.Uint64()
	m.tasks[id] = r
	if id > m.taskCount {
		m.taskCount = id
	}
}

func (m *mockLedger) addDispute(id uint64, r dispute.Raw) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disputes[id] = r
	if id > m.disputeCount {
		m.disputeCount = id
	}
}

func (m *mockLedger) status(id uint64) task.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return task.Status(m.tasks[id].Status)
}

func (m *mockLedger) callLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockLedger) Count(_ context.Context, kind ledger.Kind) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countCalls++
	if m.countErr != nil {
		return 0, m.countErr
	}
	if kind == ledger.KindTask {
		return m.taskCount, nil
	}
	return m.disputeCount, nil
}

func (m *mockLedger) Task(ctx context.Context, id uint64) (task.Raw, error) {
	if err := ctx.Err(); err != nil {
		return task.Raw{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taskReads++
	if m.failIDs[id] {
		return task.Raw{}, errRPC
	}
	r, ok := m.tasks[id]
	if !ok {
		return task.Raw{}, ledger.ErrOutOfRange
	}
	return r, nil
}

func (m *mockLedger) Dispute(ctx context.Context, id uint64) (dispute.Raw, error) {
	if err := ctx.Err(); err != nil {
		return dispute.Raw{}, err
	}
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
	for j, ok := range m.jurors {
		if ok && j.Equal(a) {
			return true, nil
		}
	}
	return false, nil
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

// submit records method and returns a handle that applies effect on Wait.
func (m *mockLedger) submit(method string, effect func()) (ledger.TxHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, method)
	if err := m.sendErr[method]; err != nil {
		return nil, err
	}
	return &mockTx{ledger: m, hash: fmt.Sprintf("0x%04d", len(m.calls)), method: method, effect: effect}, nil
}

func (m *mockLedger) Approve(_ context.Context, amount *big.Int) (ledger.TxHandle, error) {
	return m.submit("approve", func() {
		if !m.approveShort {
			m.allowance = new(big.Int).Set(amount)
		}
	})
}

func (m *mockLedger) CreateTask(_ context.Context, p ledger.CreateTaskParams) (ledger.TxHandle, error) {
	return m.submit("createTask", func() {
		m.taskCount++
		r := rawTask(m.taskCount, m.account, "", task.StatusOpen, p.Reward.Int64(), p.Bond.Int64())
		r.DescriptionHash = p.DescriptionHash
		m.tasks[m.taskCount] = r
	})
}

func (m *mockLedger) setStatus(id uint64, s task.Status, assignee address.Address) {
	r := m.tasks[id]
	r.Status = uint8(s)
	if assignee != "" {
		r.Assignee = assignee.String()
	}
	m.tasks[id] = r
}

func (m *mockLedger) ClaimTask(_ context.Context, id uint64) (ledger.TxHandle, error) {
	return m.submit("claimTask", func() { m.setStatus(id, task.StatusClaimed, m.account) })
}

func (m *mockLedger) SubmitWork(_ context.Context, id uint64, proof string) (ledger.TxHandle, error) {
	return m.submit("submitWork", func() {
		m.setStatus(id, task.StatusSubmitted, "")
		r := m.tasks[id]
		r.ProofHash = proof
		m.tasks[id] = r
	})
}

func (m *mockLedger) ApproveWork(_ context.Context, id uint64) (ledger.TxHandle, error) {
	return m.submit("approveWork", func() { m.setStatus(id, task.StatusCompleted, "") })
}

func (m *mockLedger) CancelTask(_ context.Context, id uint64) (ledger.TxHandle, error) {
	return m.submit("cancelTask", func() { m.setStatus(id, task.StatusCancelled, "") })
}

func (m *mockLedger) OpenDispute(_ context.Context, id uint64) (ledger.TxHandle, error) {
	return m.submit("openDispute", func() { m.setStatus(id, task.StatusDisputed, "") })
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
		m.jurors[m.account] = true
		m.poolSize++
	})
}

type mockTx struct {
	ledger *mockLedger
	hash   string
	method string
	effect func()
}

func (t *mockTx) Hash() string { return t.hash }

func (t *mockTx) Wait(ctx context.Context) error {
	t.ledger.mu.Lock()
	block := t.ledger.block
	t.ledger.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()
	if err := t.ledger.waitErr[t.method]; err != nil {
		return err
	}
	t.effect()
	return nil
}

// mockBroadcaster captures broadcast events.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []struct {
		Type    string
		Payload any
	}
}

func (b *mockBroadcaster) BroadcastEvent(_ context.Context, eventType string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, struct {
		Type    string
		Payload any
	}{eventType, payload})
}

func (b *mockBroadcaster) ofType(eventType string) []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []any
	for _, e := range b.events {
		if e.Type == eventType {
			out = append(out, e.Payload)
		}
	}
	return out
}

// mockQueue records publishes and lets tests deliver messages to handlers.
type mockQueue struct {
	mu        sync.Mutex
	published map[string][][]byte
	handlers  map[string]messagequeue.Handler
}

func newMockQueue() *mockQueue {
	return &mockQueue{published: map[string][][]byte{}, handlers: map[string]messagequeue.Handler{}}
}

func (q *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published[subject] = append(q.published[subject], data)
	return nil
}

func (q *mockQueue) Subscribe(_ context.Context, subject string, h messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[subject] = h
	return func() {
		q.mu.Lock()
		delete(q.handlers, subject)
		q.mu.Unlock()
	}, nil
}

func (q *mockQueue) deliver(ctx context.Context, subject string, data []byte) error {
	q.mu.Lock()
	h := q.handlers[subject]
	q.mu.Unlock()
	if h == nil {
		return errors.New("no handler for " + subject)
	}
	return h(ctx, subject, data)
}

func (q *mockQueue) Drain() error      { return nil }
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return true }

// mockJournal keeps entries in memory.
type mockJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
}

func (j *mockJournal) Append(_ context.Context, e *journal.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, *e)
	return nil
}

func (j *mockJournal) ListByAccount(_ context.Context, account string, limit int) ([]journal.Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []journal.Entry
	for i := len(j.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if address.Equal(j.entries[i].Account, account) {
			out = append(out, j.entries[i])
		}
	}
	return out, nil
}

// mockCache is a map-backed cache.Cache.
type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (c *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
	return nil
}

func (c *mockCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

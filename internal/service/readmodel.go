package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	hmotel "github.com/hivemind-swarm/hivemind/internal/adapter/otel"
	"github.com/hivemind-swarm/hivemind/internal/domain"
	"github.com/hivemind-swarm/hivemind/internal/domain/address"
	"github.com/hivemind-swarm/hivemind/internal/domain/board"
	"github.com/hivemind-swarm/hivemind/internal/domain/dispute"
	"github.com/hivemind-swarm/hivemind/internal/domain/task"
	"github.com/hivemind-swarm/hivemind/internal/domain/usdc"
	"github.com/hivemind-swarm/hivemind/internal/port/broadcast"
	"github.com/hivemind-swarm/hivemind/internal/port/ledger"
)

// ReadModel holds the task and dispute views and answers read queries from
// them. Account state (balance, allowance, juror registration) is always
// read fresh from the ledger.
type ReadModel struct {
	Tasks    *View[task.Task]
	Disputes *View[dispute.Dispute]

	reader  ledger.Reader
	fetcher *RecordFetcher
	bc      broadcast.Broadcaster
	metrics *hmotel.Metrics
}

// NewReadModel creates the views over fetcher. bc may be nil.
func NewReadModel(reader ledger.Reader, fetcher *RecordFetcher, bc broadcast.Broadcaster) *ReadModel {
	m := &ReadModel{reader: reader, fetcher: fetcher, bc: bc}
	m.Tasks = NewView("tasks", fetcher.Tasks, func(ctx context.Context, s Snapshot[task.Task]) {
		m.refreshed(ctx, "tasks", broadcast.EventTasksRefreshed, s.Err, board.Summarize(s.Items))
	})
	m.Disputes = NewView("disputes", fetcher.Disputes, func(ctx context.Context, s Snapshot[dispute.Dispute]) {
		m.refreshed(ctx, "disputes", broadcast.EventDisputesRefreshed, s.Err, board.Overview(s.Items, m.Tasks.Items()))
	})
	return m
}

// SetMetrics attaches metric instruments.
func (m *ReadModel) SetMetrics(metrics *hmotel.Metrics) { m.metrics = metrics }

// Refresh re-reads both collections concurrently.
func (m *ReadModel) Refresh(ctx context.Context) error {
	var g errgroup.Group
	var taskErr, disputeErr error
	g.Go(func() error { taskErr = m.Tasks.Refresh(ctx); return nil })
	g.Go(func() error { disputeErr = m.Disputes.Refresh(ctx); return nil })
	_ = g.Wait()

	var errs []error
	if taskErr != nil {
		errs = append(errs, fmt.Errorf("refresh tasks: %w", taskErr))
	}
	if disputeErr != nil {
		errs = append(errs, fmt.Errorf("refresh disputes: %w", disputeErr))
	}
	return errors.Join(errs...)
}

func (m *ReadModel) refreshed(ctx context.Context, view, event string, err error, payload any) {
	if err != nil {
		if m.metrics != nil {
			m.metrics.RefreshFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("view", view)))
		}
		return
	}
	if m.bc != nil {
		m.bc.BroadcastEvent(ctx, event, payload)
	}
}

// Stats summarizes the task view.
func (m *ReadModel) Stats() board.Stats {
	return board.Summarize(m.Tasks.Items())
}

// TaskList returns tasks newest first, optionally filtered to one status.
func (m *ReadModel) TaskList(status *task.Status) []task.Task {
	tasks := m.Tasks.Items()
	if status != nil {
		tasks = board.Filter(tasks, board.WithStatus(*status))
	}
	return board.Newest(tasks)
}

// Task returns one task from the view.
func (m *ReadModel) Task(id uint64) (task.Task, error) {
	t, ok := board.Find(m.Tasks.Items(), id)
	if !ok {
		return task.Task{}, fmt.Errorf("task %d: %w", id, domain.ErrNotFound)
	}
	return t, nil
}

// Subtasks returns the tasks whose parent is id.
func (m *ReadModel) Subtasks(id uint64) []task.Task {
	return board.Filter(m.Tasks.Items(), func(t task.Task) bool { return t.ParentTaskID == id })
}

// DisputeList returns all disputes newest first.
func (m *ReadModel) DisputeList() []board.Case {
	disputes := m.Disputes.Items()
	tasks := m.Tasks.Items()
	out := make([]board.Case, 0, len(disputes))
	for i := len(disputes) - 1; i >= 0; i-- {
		out = append(out, board.NewCase(disputes[i], tasks))
	}
	return out
}

// DisputeDetail is a case plus its rendered juror slots.
type DisputeDetail struct {
	board.Case
	Slots []dispute.Slot `json:"slots"`
}

// Dispute returns one dispute with its juror slots as seen by viewer.
func (m *ReadModel) Dispute(id uint64, viewer address.Address) (DisputeDetail, error) {
	for _, d := range m.Disputes.Items() {
		if d.ID == id {
			return DisputeDetail{Case: board.NewCase(d, m.Tasks.Items()), Slots: d.Slots(viewer)}, nil
		}
	}
	return DisputeDetail{}, fmt.Errorf("dispute %d: %w", id, domain.ErrNotFound)
}

// JuryView is the jury overview plus the registration state of the viewer.
type JuryView struct {
	board.Jury
	Juror JurorStatus `json:"juror"`
}

// JurorStatus is the juror pool size and whether an account is registered.
// CanRegister is true only for a known, unregistered account.
type JurorStatus struct {
	PoolSize    uint64 `json:"pool_size"`
	Registered  bool   `json:"registered"`
	CanRegister bool   `json:"can_register"`
}

// Jury builds the jury overview. viewer may be zero.
func (m *ReadModel) Jury(ctx context.Context, viewer address.Address) (JuryView, error) {
	js, err := m.JurorStatus(ctx, viewer)
	if err != nil {
		return JuryView{}, err
	}
	return JuryView{Jury: board.Overview(m.Disputes.Items(), m.Tasks.Items()), Juror: js}, nil
}

// JurorStatus reads the pool size and, for a non-zero account, its
// registration.
func (m *ReadModel) JurorStatus(ctx context.Context, account address.Address) (JurorStatus, error) {
	var js JurorStatus
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := m.reader.JurorPoolSize(gctx)
		if err != nil {
			return fmt.Errorf("juror pool size: %w", err)
		}
		js.PoolSize = n
		return nil
	})
	if !account.IsZero() {
		g.Go(func() error {
			ok, err := m.reader.IsRegisteredJuror(gctx, account)
			if err != nil {
				return fmt.Errorf("juror registration: %w", err)
			}
			js.Registered = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return JurorStatus{}, err
	}
	js.CanRegister = !account.IsZero() && !js.Registered
	return js, nil
}

// Account is everything the views know about one account.
type Account struct {
	board.Mine
	Balance   usdc.Amount `json:"balance"`
	Allowance usdc.Amount `json:"allowance"`
	Juror     JurorStatus `json:"juror"`
}

// Account buckets the account's tasks and reads its token and juror state.
func (m *ReadModel) Account(ctx context.Context, account address.Address) (Account, error) {
	if account.IsZero() {
		return Account{}, fmt.Errorf("account: %w", domain.ErrValidation)
	}
	a := Account{Mine: board.ForAccount(m.Tasks.Items(), account)}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := m.reader.BalanceOf(gctx, account)
		if err != nil {
			return fmt.Errorf("balance: %w", err)
		}
		a.Balance = usdc.Saturating(v)
		return nil
	})
	g.Go(func() error {
		v, err := m.reader.Allowance(gctx, account)
		if err != nil {
			return fmt.Errorf("allowance: %w", err)
		}
		a.Allowance = usdc.Saturating(v)
		return nil
	})
	g.Go(func() error {
		js, err := m.JurorStatus(gctx, account)
		if err != nil {
			return err
		}
		a.Juror = js
		return nil
	})
	if err := g.Wait(); err != nil {
		return Account{}, err
	}
	return a, nil
}

// TaskActions reads the task (and its dispute, when Disputed) fresh from the
// ledger and returns caller's legal actions.
func (m *ReadModel) TaskActions(ctx context.Context, id uint64, caller address.Address) (task.Task, []task.Option, error) {
	t, v, err := m.freshTask(ctx, id)
	if err != nil {
		return task.Task{}, nil, err
	}
	return t, task.Actions(t, caller, v), nil
}

// freshTask reads a task from the ledger, bypassing the view. For a Disputed
// task the latest dispute on it is read too and returned as the Voter.
func (m *ReadModel) freshTask(ctx context.Context, id uint64) (task.Task, task.Voter, error) {
	t, err := m.fetcher.Task(ctx, id)
	if err != nil {
		return task.Task{}, nil, fmt.Errorf("read task %d: %w", id, err)
	}
	if t.Status != task.StatusDisputed {
		return t, nil, nil
	}
	d, ok := board.ForTask(m.Disputes.Items(), id)
	if !ok {
		// The view may predate the dispute; scan the ledger.
		d, ok, err = m.latestDisputeFor(ctx, id)
		if err != nil {
			return task.Task{}, nil, err
		}
		if !ok {
			return t, nil, nil
		}
	}
	d, err = m.fetcher.Dispute(ctx, d.ID)
	if err != nil {
		return task.Task{}, nil, fmt.Errorf("read dispute %d: %w", d.ID, err)
	}
	return t, d, nil
}

func (m *ReadModel) latestDisputeFor(ctx context.Context, taskID uint64) (dispute.Dispute, bool, error) {
	disputes, err := m.fetcher.Disputes(ctx)
	if err != nil {
		return dispute.Dispute{}, false, fmt.Errorf("read disputes: %w", err)
	}
	d, ok := board.ForTask(disputes, taskID)
	return d, ok, nil
}

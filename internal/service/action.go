package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/semaphore"

	hmotel "github.com/hivemind-swarm/hivemind/internal/adapter/otel"
	"github.com/hivemind-swarm/hivemind/internal/domain/address"
	"github.com/hivemind-swarm/hivemind/internal/domain/task"
	"github.com/hivemind-swarm/hivemind/internal/domain/tx"
	"github.com/hivemind-swarm/hivemind/internal/domain/usdc"
	"github.com/hivemind-swarm/hivemind/internal/logger"
	"github.com/hivemind-swarm/hivemind/internal/port/broadcast"
	"github.com/hivemind-swarm/hivemind/internal/port/journal"
	"github.com/hivemind-swarm/hivemind/internal/port/ledger"
	"github.com/hivemind-swarm/hivemind/internal/port/messagequeue"
)

// Step names reported in results and events besides the task actions.
const (
	StepAllowance = "allowance"
	StepCreate    = "create"
	StepRegister  = "register_juror"
)

var (
	// ErrInFlight is returned when a write is started while another one
	// from this service has not finished.
	ErrInFlight = errors.New("another transaction is in flight")
	// ErrTxFailed wraps every failure of a submitted or attempted write.
	ErrTxFailed = errors.New("transaction failed")
	// ErrNotConfirmed is returned when an approval is still unconfirmed at
	// the confirmation timeout.
	ErrNotConfirmed = errors.New("transaction not confirmed in time")
)

// ActionService runs state-changing ledger calls on behalf of the wallet
// account. Every call re-reads the affected records, re-checks the action
// against the gating rules, and reports the outcome as a tx.Result. One
// write runs at a time.
type ActionService struct {
	model  *ReadModel
	reader ledger.Reader
	writer ledger.Writer

	bc       broadcast.Broadcaster
	queue    messagequeue.Queue
	instance string
	journal  journal.Store
	metrics  *hmotel.Metrics

	inflight       *semaphore.Weighted
	confirmTimeout time.Duration
	now            func() time.Time
}

// NewActionService creates the service. writer may be nil, in which case
// every write fails with ledger.ErrNoSigner.
func NewActionService(model *ReadModel, reader ledger.Reader, writer ledger.Writer, confirmTimeout time.Duration) *ActionService {
	return &ActionService{
		model:          model,
		reader:         reader,
		writer:         writer,
		inflight:       semaphore.NewWeighted(1),
		confirmTimeout: confirmTimeout,
		now:            time.Now,
	}
}

// SetBroadcaster sends phase events to connected clients.
func (s *ActionService) SetBroadcaster(bc broadcast.Broadcaster) { s.bc = bc }

// SetQueue announces confirmed writes to other instances.
func (s *ActionService) SetQueue(q messagequeue.Queue, instance string) {
	s.queue = q
	s.instance = instance
}

// SetJournal records finished writes.
func (s *ActionService) SetJournal(j journal.Store) { s.journal = j }

// SetMetrics attaches metric instruments.
func (s *ActionService) SetMetrics(m *hmotel.Metrics) { s.metrics = m }

// Account returns the signing account, or the zero address in read-only mode.
func (s *ActionService) Account() address.Address {
	if s.writer == nil {
		return address.Zero
	}
	return s.writer.Account()
}

// Create posts a new task, approving the reward first when needed.
func (s *ActionService) Create(ctx context.Context, req task.CreateRequest) (tx.Result, error) {
	f, ctx, err := s.begin(ctx)
	if err != nil {
		return tx.Failure(StepCreate, err), err
	}
	defer f.release()

	p, err := req.Params(s.now())
	if err != nil {
		return tx.Failure(StepCreate, err), err
	}
	return f.withAllowance(ctx, p.RequiredAllowance(), StepCreate, func(ctx context.Context) (ledger.TxHandle, error) {
		return s.writer.CreateTask(ctx, ledger.CreateTaskParams{
			Reward:          p.Reward.Big(),
			Bond:            p.Bond.Big(),
			DescriptionHash: p.DescriptionHash,
			Deadline:        p.Deadline,
			ParentTaskID:    p.ParentTaskID,
		})
	})
}

// Claim claims an open task, approving the bond first when needed.
func (s *ActionService) Claim(ctx context.Context, taskID uint64) (tx.Result, error) {
	return s.onTask(ctx, taskID, task.ActionClaim, func(ctx context.Context, f *flow, opt task.Option) (tx.Result, error) {
		return f.withAllowance(ctx, opt.RequiredAllowance, string(task.ActionClaim), func(ctx context.Context) (ledger.TxHandle, error) {
			return s.writer.ClaimTask(ctx, taskID)
		})
	})
}

// SubmitWork records proofHash for a claimed task.
func (s *ActionService) SubmitWork(ctx context.Context, taskID uint64, proofHash string) (tx.Result, error) {
	return s.onTask(ctx, taskID, task.ActionSubmitWork, func(ctx context.Context, f *flow, _ task.Option) (tx.Result, error) {
		return f.step(ctx, string(task.ActionSubmitWork), true, func(ctx context.Context) (ledger.TxHandle, error) {
			return s.writer.SubmitWork(ctx, taskID, proofHash)
		})
	})
}

// ApproveWork releases the reward of a submitted task.
func (s *ActionService) ApproveWork(ctx context.Context, taskID uint64) (tx.Result, error) {
	return s.onTask(ctx, taskID, task.ActionApprove, func(ctx context.Context, f *flow, _ task.Option) (tx.Result, error) {
		return f.step(ctx, string(task.ActionApprove), true, func(ctx context.Context) (ledger.TxHandle, error) {
			return s.writer.ApproveWork(ctx, taskID)
		})
	})
}

// Cancel cancels an open task.
func (s *ActionService) Cancel(ctx context.Context, taskID uint64) (tx.Result, error) {
	return s.onTask(ctx, taskID, task.ActionCancel, func(ctx context.Context, f *flow, _ task.Option) (tx.Result, error) {
		return f.step(ctx, string(task.ActionCancel), true, func(ctx context.Context) (ledger.TxHandle, error) {
			return s.writer.CancelTask(ctx, taskID)
		})
	})
}

// OpenDispute disputes a submitted task.
func (s *ActionService) OpenDispute(ctx context.Context, taskID uint64) (tx.Result, error) {
	return s.onTask(ctx, taskID, task.ActionOpenDispute, func(ctx context.Context, f *flow, _ task.Option) (tx.Result, error) {
		return f.step(ctx, string(task.ActionOpenDispute), true, func(ctx context.Context) (ledger.TxHandle, error) {
			return s.writer.OpenDispute(ctx, taskID)
		})
	})
}

// CastVote votes on a dispute the wallet account is a juror of.
func (s *ActionService) CastVote(ctx context.Context, disputeID uint64, inFavorOfAssignee bool) (tx.Result, error) {
	step := string(task.ActionCastVote)
	f, ctx, err := s.begin(ctx)
	if err != nil {
		return tx.Failure(step, err), err
	}
	defer f.release()
	f.disputeID = disputeID

	d, err := s.model.fetcher.Dispute(ctx, disputeID)
	if err != nil {
		err = fmt.Errorf("read dispute %d: %w", disputeID, err)
		return tx.Failure(step, err), err
	}
	f.taskID = d.TaskID
	t, err := s.model.fetcher.Task(ctx, d.TaskID)
	if err != nil {
		err = fmt.Errorf("read task %d: %w", d.TaskID, err)
		return tx.Failure(step, err), err
	}
	if _, err := task.Check(t, f.account, d, task.ActionCastVote); err != nil {
		return tx.Failure(step, err), err
	}
	return f.step(ctx, step, true, func(ctx context.Context) (ledger.TxHandle, error) {
		return s.writer.CastVote(ctx, disputeID, inFavorOfAssignee)
	})
}

// RegisterJuror adds the wallet account to the juror pool.
func (s *ActionService) RegisterJuror(ctx context.Context) (tx.Result, error) {
	f, ctx, err := s.begin(ctx)
	if err != nil {
		return tx.Failure(StepRegister, err), err
	}
	defer f.release()

	registered, err := s.reader.IsRegisteredJuror(ctx, f.account)
	if err != nil {
		err = fmt.Errorf("read juror registration: %w", err)
		return tx.Failure(StepRegister, err), err
	}
	if registered {
		err = fmt.Errorf("%w: %s is already a registered juror", task.ErrActionNotAllowed, f.account)
		return tx.Failure(StepRegister, err), err
	}
	return f.step(ctx, StepRegister, false, func(ctx context.Context) (ledger.TxHandle, error) {
		return s.writer.RegisterJuror(ctx)
	})
}

func (s *ActionService) onTask(ctx context.Context, taskID uint64, action task.Action, run func(context.Context, *flow, task.Option) (tx.Result, error)) (tx.Result, error) {
	step := string(action)
	f, ctx, err := s.begin(ctx)
	if err != nil {
		return tx.Failure(step, err), err
	}
	defer f.release()
	f.taskID = taskID

	t, voter, err := s.model.freshTask(ctx, taskID)
	if err != nil {
		return tx.Failure(step, err), err
	}
	opt, err := task.Check(t, f.account, voter, action)
	if err != nil {
		return tx.Failure(step, err), err
	}
	return run(ctx, f, opt)
}

// begin claims the single write slot and starts a flow.
func (s *ActionService) begin(ctx context.Context) (*flow, context.Context, error) {
	if s.writer == nil {
		return nil, ctx, ledger.ErrNoSigner
	}
	if !s.inflight.TryAcquire(1) {
		return nil, ctx, ErrInFlight
	}
	f := &flow{
		id:      uuid.NewString(),
		svc:     s,
		account: s.writer.Account(),
	}
	return f, logger.WithFlowID(ctx, f.id), nil
}

// flow is one user intent: an optional allowance approval followed by one
// action.
type flow struct {
	id        string
	svc       *ActionService
	account   address.Address
	taskID    uint64
	disputeID uint64
}

func (f *flow) release() { f.svc.inflight.Release(1) }

// withAllowance approves required if the fresh allowance is short, then runs
// the action.
func (f *flow) withAllowance(ctx context.Context, required usdc.Amount, step string, send func(context.Context) (ledger.TxHandle, error)) (tx.Result, error) {
	s := f.svc
	af, err := NewAllowanceFlow(ctx, s.reader, f.account, required)
	if err != nil {
		return tx.Failure(StepAllowance, err), err
	}
	err = af.Approve(ctx, func(ctx context.Context, amount usdc.Amount) error {
		res, err := f.step(ctx, StepAllowance, false, func(ctx context.Context) (ledger.TxHandle, error) {
			return s.writer.Approve(ctx, amount.Big())
		})
		if err != nil {
			return err
		}
		if res.Outcome == tx.OutcomePending {
			return ErrNotConfirmed
		}
		return nil
	})
	if err != nil {
		return tx.Failure(StepAllowance, err), err
	}

	var (
		res    tx.Result
		actErr error
	)
	if err := af.Act(func() error {
		res, actErr = f.step(ctx, step, true, send)
		return actErr
	}); err != nil && actErr == nil {
		return tx.Failure(step, err), err
	}
	return res, actErr
}

// step submits one transaction and follows it through signature and
// confirmation. A confirmation that outlasts the timeout yields a pending
// result and no error.
func (f *flow) step(ctx context.Context, step string, refresh bool, send func(context.Context) (ledger.TxHandle, error)) (tx.Result, error) {
	s := f.svc
	ctx, span := hmotel.StartTxSpan(ctx, f.id, step)
	defer span.End()
	start := s.now()

	f.emit(ctx, step, tx.PhaseAwaitingSignature, "", "")
	h, err := send(ctx)
	if err != nil {
		return f.finish(ctx, step, "", start, false, err)
	}
	hash := h.Hash()
	f.emit(ctx, step, tx.PhaseAwaitingConfirmation, hash, "")

	waitCtx := ctx
	if s.confirmTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.confirmTimeout)
		defer cancel()
	}
	err = h.Wait(waitCtx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		slog.WarnContext(ctx, "transaction not confirmed before timeout", "step", step, "hash", hash)
		res := tx.Pending(step, hash)
		f.record(ctx, res)
		return res, nil
	}
	return f.finish(ctx, step, hash, start, refresh, err)
}

func (f *flow) finish(ctx context.Context, step, hash string, start time.Time, refresh bool, err error) (tx.Result, error) {
	s := f.svc
	// Bookkeeping outlives a caller that went away after submitting.
	ctx = context.WithoutCancel(ctx)

	if err != nil {
		res := tx.Failure(step, err)
		res.Hash = hash
		f.emit(ctx, step, tx.PhaseFailed, hash, res.Message)
		f.record(ctx, res)
		f.observe(ctx, step, res.Outcome, start)
		slog.InfoContext(ctx, "transaction failed", "step", step, "hash", hash, "error", err)
		return res, fmt.Errorf("%w: %s: %w", ErrTxFailed, step, err)
	}

	res := tx.Success(step, hash)
	f.emit(ctx, step, tx.PhaseConfirmed, hash, "")
	f.record(ctx, res)
	f.observe(ctx, step, res.Outcome, start)
	slog.InfoContext(ctx, "transaction confirmed", "step", step, "hash", hash)

	if refresh {
		f.announce(ctx, step, hash)
		if err := s.model.Refresh(ctx); err != nil {
			slog.WarnContext(ctx, "refresh after write failed", "step", step, "error", err)
		}
	}
	return res, nil
}

func (f *flow) emit(ctx context.Context, step string, phase tx.Phase, hash, message string) {
	if f.svc.bc == nil {
		return
	}
	f.svc.bc.BroadcastEvent(ctx, broadcast.EventTxPhase, tx.Event{
		FlowID:  f.id,
		Step:    step,
		Phase:   phase,
		Hash:    hash,
		Message: message,
		At:      f.svc.now().UTC(),
	})
}

func (f *flow) record(ctx context.Context, res tx.Result) {
	if f.svc.journal == nil {
		return
	}
	e := &journal.Entry{
		ID:        uuid.NewString(),
		FlowID:    f.id,
		Account:   f.account.String(),
		Step:      res.Step,
		TaskID:    f.taskID,
		DisputeID: f.disputeID,
		Hash:      res.Hash,
		Outcome:   res.Outcome,
		Message:   res.Message,
		CreatedAt: f.svc.now().UTC(),
	}
	if err := f.svc.journal.Append(ctx, e); err != nil {
		slog.WarnContext(ctx, "journal append failed", "step", res.Step, "error", err)
	}
}

func (f *flow) observe(ctx context.Context, step string, outcome tx.Outcome, start time.Time) {
	if f.svc.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("step", step), attribute.String("outcome", string(outcome)))
	f.svc.metrics.TxOutcomes.Add(ctx, 1, attrs)
	f.svc.metrics.TxDuration.Record(ctx, f.svc.now().Sub(start).Seconds(), attrs)
}

func (f *flow) announce(ctx context.Context, step, hash string) {
	s := f.svc
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(messagequeue.TxConfirmedPayload{
		Instance:  s.instance,
		FlowID:    f.id,
		Step:      step,
		Hash:      hash,
		Account:   f.account.String(),
		TaskID:    f.taskID,
		DisputeID: f.disputeID,
	})
	if err != nil {
		return
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectTxConfirmed, data); err != nil {
		slog.WarnContext(ctx, "publish tx confirmed failed", "hash", hash, "error", err)
	}
}

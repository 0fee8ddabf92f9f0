package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/hivemind-swarm/hivemind/internal/domain/address"
	"github.com/hivemind-swarm/hivemind/internal/domain/usdc"
	"github.com/hivemind-swarm/hivemind/internal/port/ledger"
)

// FlowState is the position of a two-step approve-then-act flow.
type FlowState string

const (
	NeedsApproval FlowState = "needs_approval"
	ReadyToAct    FlowState = "ready_to_act"
)

var (
	// ErrNeedsApproval is returned when acting before the allowance covers
	// the requirement.
	ErrNeedsApproval = errors.New("token allowance below requirement")
)

// AllowanceFlow gates one action on the owner's token allowance. The only
// way from NeedsApproval to ReadyToAct is a confirmed approval followed by a
// fresh read that covers the requirement.
type AllowanceFlow struct {
	reader   ledger.Reader
	owner    address.Address
	required usdc.Amount

	state     FlowState
	allowance usdc.Amount
}

// NewAllowanceFlow reads the current allowance of owner and starts in
// ReadyToAct when it already covers required.
func NewAllowanceFlow(ctx context.Context, reader ledger.Reader, owner address.Address, required usdc.Amount) (*AllowanceFlow, error) {
	f := &AllowanceFlow{reader: reader, owner: owner, required: required}
	if err := f.sync(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

// State returns the flow position.
func (f *AllowanceFlow) State() FlowState { return f.state }

// Allowance is the last observed allowance.
func (f *AllowanceFlow) Allowance() usdc.Amount { return f.allowance }

// Required is the allowance the action needs.
func (f *AllowanceFlow) Required() usdc.Amount { return f.required }

// Approve runs submit unless the flow is already ReadyToAct. submit must
// return only once the approval is confirmed. The allowance is re-read
// afterwards and decides the new state.
func (f *AllowanceFlow) Approve(ctx context.Context, submit func(ctx context.Context, amount usdc.Amount) error) error {
	if f.state == ReadyToAct {
		return nil
	}
	if err := submit(ctx, f.required); err != nil {
		return err
	}
	if err := f.sync(ctx); err != nil {
		return err
	}
	if f.state != ReadyToAct {
		return fmt.Errorf("%w: have %s, need %s", ErrNeedsApproval, f.allowance, f.required)
	}
	return nil
}

// Act runs fn only in ReadyToAct.
func (f *AllowanceFlow) Act(fn func() error) error {
	if f.state != ReadyToAct {
		return fmt.Errorf("%w: have %s, need %s", ErrNeedsApproval, f.allowance, f.required)
	}
	return fn()
}

func (f *AllowanceFlow) sync(ctx context.Context) error {
	v, err := f.reader.Allowance(ctx, f.owner)
	if err != nil {
		return fmt.Errorf("read allowance: %w", err)
	}
	f.allowance = usdc.Saturating(v)
	if f.allowance >= f.required {
		f.state = ReadyToAct
	} else {
		f.state = NeedsApproval
	}
	return nil
}

package task

import (
	"errors"
	"fmt"

	"github.com/hivemind-swarm/hivemind/internal/domain/address"
	"github.com/hivemind-swarm/hivemind/internal/domain/usdc"
)

// Action names a state-changing ledger call a caller may make on a task.
type Action string

const (
	ActionClaim       Action = "claim"
	ActionCancel      Action = "cancel"
	ActionSubmitWork  Action = "submit_work"
	ActionApprove     Action = "approve"
	ActionOpenDispute Action = "open_dispute"
	ActionCastVote    Action = "cast_vote"
)

// ErrActionNotAllowed is returned by Check when the action is not in the
// caller's legal set for the task's current status.
var ErrActionNotAllowed = errors.New("action not allowed")

// Relation is the caller's role with respect to a task.
type Relation int

const (
	RelationNeither Relation = iota
	RelationCreator
	RelationAssignee
)

func (r Relation) String() string {
	switch r {
	case RelationCreator:
		return "creator"
	case RelationAssignee:
		return "assignee"
	default:
		return "neither"
	}
}

// RelationOf classifies caller against t using case-insensitive matching.
func RelationOf(t Task, caller address.Address) Relation {
	switch {
	case t.IsCreator(caller):
		return RelationCreator
	case t.IsAssignee(caller):
		return RelationAssignee
	default:
		return RelationNeither
	}
}

// Voter reports whether an account may still vote on the task's dispute.
type Voter interface {
	CanVote(caller address.Address) bool
}

// Option is one legal action plus its allowance precondition. A zero
// RequiredAllowance means no token approval is needed.
type Option struct {
	Action            Action      `json:"action"`
	RequiredAllowance usdc.Amount `json:"required_allowance,omitempty"`
}

// Actions returns the caller's legal next actions. The result is advisory;
// the ledger may still reject a call made against stale state.
//
// v carries the dispute for a Disputed task and may be nil otherwise. An
// empty caller gets no actions.
func Actions(t Task, caller address.Address, v Voter) []Option {
	if caller.IsZero() {
		return nil
	}
	rel := RelationOf(t, caller)

	switch t.Status {
	case StatusOpen:
		switch rel {
		case RelationCreator:
			return []Option{{Action: ActionCancel}}
		case RelationNeither:
			return []Option{{Action: ActionClaim, RequiredAllowance: t.BondAmount}}
		}
	case StatusClaimed:
		if rel == RelationAssignee {
			return []Option{{Action: ActionSubmitWork}}
		}
	case StatusSubmitted:
		if rel == RelationCreator {
			return []Option{{Action: ActionApprove}, {Action: ActionOpenDispute}}
		}
	case StatusDisputed:
		if v != nil && v.CanVote(caller) {
			return []Option{{Action: ActionCastVote}}
		}
	}
	return nil
}

// Check returns the option for action if it is currently legal for caller.
func Check(t Task, caller address.Address, v Voter, action Action) (Option, error) {
	for _, o := range Actions(t, caller, v) {
		if o.Action == action {
			return o, nil
		}
	}
	return Option{}, fmt.Errorf("%w: %s on task %d (%s, caller is %s)",
		ErrActionNotAllowed, action, t.ID, t.Status, RelationOf(t, caller))
}

// Package tx models the lifecycle of a state-changing ledger call as it is
// exposed to views: phases while in flight and a tri-state result.
package tx

import "time"

// Phase is an observable step of a write.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseAwaitingSignature    Phase = "awaiting_signature"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
	PhaseConfirmed            Phase = "confirmed"
	PhaseFailed               Phase = "failed"
)

// Busy reports whether the phase blocks another submission.
func (p Phase) Busy() bool {
	return p == PhaseAwaitingSignature || p == PhaseAwaitingConfirmation
}

// Outcome is the tri-state result of a flow.
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// Result is what a view receives after it triggers a write.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Step    string  `json:"step,omitempty"`
	Hash    string  `json:"hash,omitempty"`
	Message string  `json:"message,omitempty"`
}

// Success builds a successful result.
func Success(step, hash string) Result {
	return Result{Outcome: OutcomeSuccess, Step: step, Hash: hash}
}

// Failure builds an error result with a user-facing message for err.
func Failure(step string, err error) Result {
	return Result{Outcome: OutcomeError, Step: step, Message: UserMessage(err)}
}

// Pending builds a result for a write whose confirmation is still awaited.
func Pending(step, hash string) Result {
	return Result{Outcome: OutcomePending, Step: step, Hash: hash}
}

// Event reports a phase change of one write.
type Event struct {
	FlowID  string    `json:"flow_id"`
	Step    string    `json:"step"`
	Phase   Phase     `json:"phase"`
	Hash    string    `json:"hash,omitempty"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

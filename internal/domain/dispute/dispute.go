// Package dispute defines the Dispute entity and its vote tally.
package dispute

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/hivemind-swarm/hivemind/internal/domain/address"
)

// JurySize is the fixed number of juror slots per dispute.
const JurySize = 3

// NeutralPercent is the approve percentage reported while no votes have been
// cast. It is a display policy, not a ledger rule.
const NeutralPercent = 50

// ErrInvalidRecord wraps every decode failure.
var ErrInvalidRecord = errors.New("invalid dispute record")

// Dispute is a read replica of one ledger dispute. Jurors holds nil for
// unfilled slots. Votes[i] is meaningful only for i < VoteCount; once
// Resolved is set the tally is frozen.
type Dispute struct {
	ID        uint64                     `json:"id"`
	TaskID    uint64                     `json:"task_id"`
	Jurors    [JurySize]*address.Address `json:"jurors"`
	Votes     [JurySize]bool             `json:"votes"`
	VoteCount uint8                      `json:"vote_count"`
	Resolved  bool                       `json:"resolved"`
}

// Raw is the ledger's getDispute tuple.
type Raw struct {
	TaskID    *big.Int
	Jurors    [JurySize]string
	Votes     [JurySize]bool
	VoteCount uint8
	Resolved  bool
}

// Decode converts a raw record fetched for id into a Dispute.
func Decode(id uint64, r Raw) (Dispute, error) {
	if id == 0 {
		return Dispute{}, fmt.Errorf("%w: id must be positive", ErrInvalidRecord)
	}
	if r.TaskID == nil || r.TaskID.Sign() <= 0 || !r.TaskID.IsUint64() {
		return Dispute{}, fmt.Errorf("%w: dispute %d has no task", ErrInvalidRecord, id)
	}
	if r.VoteCount > JurySize {
		return Dispute{}, fmt.Errorf("%w: vote count %d", ErrInvalidRecord, r.VoteCount)
	}

	d := Dispute{
		ID:        id,
		TaskID:    r.TaskID.Uint64(),
		Votes:     r.Votes,
		VoteCount: r.VoteCount,
		Resolved:  r.Resolved,
	}
	for i, j := range r.Jurors {
		a, err := address.Optional(j)
		if err != nil {
			return Dispute{}, fmt.Errorf("%w: juror %d: %w", ErrInvalidRecord, i, err)
		}
		d.Jurors[i] = a
	}
	return d, nil
}

// JurorIndex locates caller among the juror slots, ignoring letter case.
func (d Dispute) JurorIndex(caller address.Address) (int, bool) {
	if caller.IsZero() {
		return -1, false
	}
	for i, j := range d.Jurors {
		if j != nil && j.Equal(caller) {
			return i, true
		}
	}
	return -1, false
}

// IsJuror reports whether caller occupies a juror slot.
func (d Dispute) IsJuror(caller address.Address) bool {
	_, ok := d.JurorIndex(caller)
	return ok
}

// HasVoted reports whether slot i has cast its vote. Votes fill in slot
// order, so the first VoteCount slots are the ones that voted.
func (d Dispute) HasVoted(i int) bool {
	return i >= 0 && i < int(d.VoteCount)
}

// CanVote reports whether caller is a juror on an unresolved dispute who has
// not yet voted.
func (d Dispute) CanVote(caller address.Address) bool {
	if d.Resolved {
		return false
	}
	i, ok := d.JurorIndex(caller)
	return ok && !d.HasVoted(i)
}

// ApproveVotes counts cast votes in favour of the worker.
func (d Dispute) ApproveVotes() int {
	n := 0
	for i := 0; i < int(d.VoteCount) && i < JurySize; i++ {
		if d.Votes[i] {
			n++
		}
	}
	return n
}

// RejectVotes counts cast votes in favour of the creator.
func (d Dispute) RejectVotes() int {
	return int(d.VoteCount) - d.ApproveVotes()
}

// ApprovePercent is round(approve/voteCount*100), half rounding up, or
// NeutralPercent while no votes are cast.
func (d Dispute) ApprovePercent() int {
	n := int(d.VoteCount)
	if n == 0 {
		return NeutralPercent
	}
	a := d.ApproveVotes()
	return (200*a + n) / (2 * n)
}

// RejectPercent is the complement of ApprovePercent.
func (d Dispute) RejectPercent() int { return 100 - d.ApprovePercent() }

// WorkerApproved reports the majority outcome: at least two approve votes.
func (d Dispute) WorkerApproved() bool { return d.ApproveVotes() >= 2 }

// Verdict renders the outcome of a resolved dispute.
func (d Dispute) Verdict() string {
	if d.WorkerApproved() {
		return "Worker approved"
	}
	return "Creator upheld"
}

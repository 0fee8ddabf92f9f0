// Package task defines the Task entity replicated from the ledger.
package task

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/hivemind-swarm/hivemind/internal/domain/address"
	"github.com/hivemind-swarm/hivemind/internal/domain/usdc"
)

// Status mirrors the ledger's task status enum. The numeric values are the
// ledger's encoding and must not be reordered.
type Status uint8

const (
	StatusOpen Status = iota
	StatusClaimed
	StatusSubmitted
	StatusDisputed
	StatusCompleted
	StatusCancelled
)

var statusLabels = [...]string{"Open", "Claimed", "Submitted", "Disputed", "Completed", "Cancelled"}

// ErrUnknownStatus is returned when parsing an unrecognized status name.
var ErrUnknownStatus = errors.New("unknown task status")

// Valid reports whether s is one of the ledger's enum values.
func (s Status) Valid() bool { return int(s) < len(statusLabels) }

// String returns the display label ("Open", "Claimed", ...).
func (s Status) String() string {
	if !s.Valid() {
		return "Unknown"
	}
	return statusLabels[s]
}

// Escrowed reports whether the reward is still locked on the ledger
// (Open, Claimed or Submitted).
func (s Status) Escrowed() bool { return s <= StatusSubmitted }

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusCancelled }

// MarshalText encodes the status as its lower-case label.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, s)
	}
	return []byte(strings.ToLower(statusLabels[s])), nil
}

// UnmarshalText accepts a label in any case.
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStatus resolves a label ("open", "Submitted", ...) to a Status.
func ParseStatus(name string) (Status, error) {
	for i, l := range statusLabels {
		if strings.EqualFold(l, name) {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, name)
}

// Task is a read replica of one ledger task. Assignee is nil while the task
// is unassigned.
type Task struct {
	ID              uint64           `json:"id"`
	Creator         address.Address  `json:"creator"`
	Assignee        *address.Address `json:"assignee,omitempty"`
	Reward          usdc.Amount      `json:"reward"`
	BondAmount      usdc.Amount      `json:"bond_amount"`
	Status          Status           `json:"status"`
	DescriptionHash string           `json:"description_hash"`
	ProofHash       string           `json:"proof_hash,omitempty"`
	Deadline        time.Time        `json:"deadline"`
	CreatedAt       time.Time        `json:"created_at"`
	ParentTaskID    uint64           `json:"parent_task_id,omitempty"`
	ChildCount      uint64           `json:"child_count"`
	ChildCompleted  uint64           `json:"child_completed"`
}

// Title is the description, or "Task #N" when none was recorded.
func (t Task) Title() string {
	if t.DescriptionHash != "" {
		return t.DescriptionHash
	}
	return fmt.Sprintf("Task #%d", t.ID)
}

// HasParent reports whether the task is a sub-task.
func (t Task) HasParent() bool { return t.ParentTaskID != 0 }

// IsCreator reports whether a created the task.
func (t Task) IsCreator(a address.Address) bool { return t.Creator.Equal(a) }

// IsAssignee reports whether a is the assigned worker.
func (t Task) IsAssignee(a address.Address) bool {
	return t.Assignee != nil && t.Assignee.Equal(a)
}

// AssignedTo reports whether the task has an assignee.
func (t Task) AssignedTo() (address.Address, bool) {
	if t.Assignee == nil {
		return "", false
	}
	return *t.Assignee, true
}

// Raw is the positional ledger record with loosely typed fields, as returned
// by getTask. ID may be nil when the record does not embed it.
type Raw struct {
	ID              *big.Int
	Creator         string
	Assignee        string
	Reward          *big.Int
	BondAmount      *big.Int
	Status          uint8
	DescriptionHash string
	ProofHash       string
	Deadline        *big.Int
	CreatedAt       *big.Int
	ParentTaskID    *big.Int
	ChildCount      *big.Int
	ChildCompleted  *big.Int
}

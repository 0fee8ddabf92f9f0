package task

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hivemind-swarm/hivemind/internal/domain"
	"github.com/hivemind-swarm/hivemind/internal/domain/usdc"
)

// DefaultDeadlineDays applies when the requested duration is missing or
// unparsable.
const DefaultDeadlineDays = 7

// CreateRequest holds the user-supplied inputs for posting a task.
type CreateRequest struct {
	Reward       string `json:"reward"`
	Bond         string `json:"bond"`
	Description  string `json:"description"`
	DeadlineDays string `json:"deadline_days,omitempty"`
	ParentTaskID string `json:"parent_task_id,omitempty"`
}

// CreateParams are the validated arguments of the ledger's createTask call.
type CreateParams struct {
	Reward          usdc.Amount
	Bond            usdc.Amount
	DescriptionHash string
	Deadline        time.Time
	ParentTaskID    uint64
}

// RequiredAllowance is the token approval createTask needs: the reward.
func (p CreateParams) RequiredAllowance() usdc.Amount { return p.Reward }

// Params validates r and resolves defaults relative to now.
func (r CreateRequest) Params(now time.Time) (CreateParams, error) {
	desc := strings.TrimSpace(r.Description)
	if desc == "" {
		return CreateParams{}, fmt.Errorf("%w: description is required", domain.ErrValidation)
	}
	reward, err := usdc.Parse(r.Reward)
	if err != nil {
		return CreateParams{}, fmt.Errorf("%w: reward: %w", domain.ErrValidation, err)
	}
	if reward <= 0 {
		return CreateParams{}, fmt.Errorf("%w: reward must be positive", domain.ErrValidation)
	}
	var bond usdc.Amount
	if strings.TrimSpace(r.Bond) != "" {
		if bond, err = usdc.Parse(r.Bond); err != nil {
			return CreateParams{}, fmt.Errorf("%w: bond: %w", domain.ErrValidation, err)
		}
	}

	days, err := strconv.Atoi(strings.TrimSpace(r.DeadlineDays))
	if err != nil || days == 0 {
		days = DefaultDeadlineDays
	}
	parent, err := strconv.ParseUint(strings.TrimSpace(r.ParentTaskID), 10, 64)
	if err != nil {
		parent = 0
	}

	return CreateParams{
		Reward:          reward,
		Bond:            bond,
		DescriptionHash: desc,
		Deadline:        DeadlineFromDays(now, days),
		ParentTaskID:    parent,
	}, nil
}

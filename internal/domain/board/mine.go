package board

import (
	"github.com/hivemind-swarm/hivemind/internal/domain/address"
	"github.com/hivemind-swarm/hivemind/internal/domain/task"
	"github.com/hivemind-swarm/hivemind/internal/domain/usdc"
)

// Mine buckets an account's tasks.
type Mine struct {
	Account     address.Address `json:"account"`
	Active      []task.Task     `json:"active"`
	Completed   []task.Task     `json:"completed"`
	Posted      []task.Task     `json:"posted"`
	TotalEarned usdc.Amount     `json:"total_earned"`
}

// ForAccount partitions tasks by account's role. Active and Completed come
// from tasks assigned to account; Posted are its own tasks still Open.
func ForAccount(tasks []task.Task, account address.Address) Mine {
	m := Mine{Account: account}
	if account.IsZero() {
		return m
	}
	for _, t := range tasks {
		switch {
		case t.IsAssignee(account):
			switch t.Status {
			case task.StatusClaimed, task.StatusSubmitted:
				m.Active = append(m.Active, t)
			case task.StatusCompleted:
				m.Completed = append(m.Completed, t)
				m.TotalEarned += t.Reward
			}
		case t.IsCreator(account) && t.Status == task.StatusOpen:
			m.Posted = append(m.Posted, t)
		}
	}
	return m
}

// Package board derives aggregate views over normalized tasks and disputes.
// Every function is pure and safe to recompute on each refresh.
package board

import (
	"slices"
	"strings"

	"github.com/hivemind-swarm/hivemind/internal/domain/address"
	"github.com/hivemind-swarm/hivemind/internal/domain/task"
	"github.com/hivemind-swarm/hivemind/internal/domain/usdc"
)

// Stats is the headline summary of the task board.
type Stats struct {
	TotalCount    int         `json:"total_count"`
	OpenCount     int         `json:"open_count"`
	Pool          usdc.Amount `json:"pool"`
	ActiveWorkers int         `json:"active_workers"`
}

// Summarize computes Stats. Pool counts rewards still held in escrow.
func Summarize(tasks []task.Task) Stats {
	return Stats{
		TotalCount:    len(tasks),
		OpenCount:     Count(tasks, func(t task.Task) bool { return t.Status == task.StatusOpen }),
		Pool:          Pool(tasks, func(t task.Task) bool { return t.Status.Escrowed() }),
		ActiveWorkers: ActiveWorkers(tasks),
	}
}

// Count returns how many tasks satisfy pred.
func Count(tasks []task.Task, pred func(task.Task) bool) int {
	n := 0
	for _, t := range tasks {
		if pred(t) {
			n++
		}
	}
	return n
}

// Pool sums the rewards of tasks satisfying pred.
func Pool(tasks []task.Task, pred func(task.Task) bool) usdc.Amount {
	var sum usdc.Amount
	for _, t := range tasks {
		if pred(t) {
			sum += t.Reward
		}
	}
	return sum
}

// ActiveWorkers counts distinct assignees of Claimed or Submitted tasks.
func ActiveWorkers(tasks []task.Task) int {
	seen := make(map[string]struct{})
	for _, t := range tasks {
		if t.Status != task.StatusClaimed && t.Status != task.StatusSubmitted {
			continue
		}
		if a, ok := t.AssignedTo(); ok {
			seen[strings.ToLower(a.String())] = struct{}{}
		}
	}
	return len(seen)
}

// ByUser returns the tasks where account holds rel, preserving order.
// RelationNeither yields tasks where account is neither party.
func ByUser(tasks []task.Task, account address.Address, rel task.Relation) []task.Task {
	var out []task.Task
	for _, t := range tasks {
		if task.RelationOf(t, account) == rel {
			out = append(out, t)
		}
	}
	return out
}

// Filter returns the tasks satisfying pred, preserving order.
func Filter(tasks []task.Task, pred func(task.Task) bool) []task.Task {
	var out []task.Task
	for _, t := range tasks {
		if pred(t) {
			out = append(out, t)
		}
	}
	return out
}

// WithStatus is a predicate matching s.
func WithStatus(s task.Status) func(task.Task) bool {
	return func(t task.Task) bool { return t.Status == s }
}

// Newest returns a copy of tasks ordered by id descending.
func Newest(tasks []task.Task) []task.Task {
	out := slices.Clone(tasks)
	slices.SortFunc(out, func(a, b task.Task) int {
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})
	return out
}

// Find returns the task with id.
func Find(tasks []task.Task, id uint64) (task.Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return task.Task{}, false
}

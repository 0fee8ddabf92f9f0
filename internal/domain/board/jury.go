package board

import (
	"fmt"

	"github.com/hivemind-swarm/hivemind/internal/domain/dispute"
	"github.com/hivemind-swarm/hivemind/internal/domain/task"
	"github.com/hivemind-swarm/hivemind/internal/domain/usdc"
)

// Case is a dispute joined with its task for display.
type Case struct {
	Dispute        dispute.Dispute `json:"dispute"`
	Title          string          `json:"title"`
	Reward         usdc.Amount     `json:"reward"`
	ApproveVotes   int             `json:"approve_votes"`
	ApprovePercent int             `json:"approve_percent"`
	RejectPercent  int             `json:"reject_percent"`
	Verdict        string          `json:"verdict,omitempty"`
}

// Jury splits disputes into active and resolved cases.
type Jury struct {
	Total    int    `json:"total"`
	Active   []Case `json:"active"`
	Resolved []Case `json:"resolved"`
}

// NewCase joins d with its task when one is present in tasks.
func NewCase(d dispute.Dispute, tasks []task.Task) Case {
	c := Case{
		Dispute:        d,
		Title:          fmt.Sprintf("Dispute for Task #%d", d.TaskID),
		ApproveVotes:   d.ApproveVotes(),
		ApprovePercent: d.ApprovePercent(),
		RejectPercent:  d.RejectPercent(),
	}
	if t, ok := Find(tasks, d.TaskID); ok {
		c.Reward = t.Reward
		if t.DescriptionHash != "" {
			c.Title = t.DescriptionHash
		}
	}
	if d.Resolved {
		c.Verdict = d.Verdict()
	}
	return c
}

// Overview builds the jury view.
func Overview(disputes []dispute.Dispute, tasks []task.Task) Jury {
	j := Jury{Total: len(disputes)}
	for _, d := range disputes {
		c := NewCase(d, tasks)
		if d.Resolved {
			j.Resolved = append(j.Resolved, c)
		} else {
			j.Active = append(j.Active, c)
		}
	}
	return j
}

// ForTask returns the most recent dispute opened on taskID.
func ForTask(disputes []dispute.Dispute, taskID uint64) (dispute.Dispute, bool) {
	var (
		found dispute.Dispute
		ok    bool
	)
	for _, d := range disputes {
		if d.TaskID == taskID && (!ok || d.ID > found.ID) {
			found, ok = d, true
		}
	}
	return found, ok
}

package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/hivemind-swarm/hivemind/internal/domain/address"
	"github.com/hivemind-swarm/hivemind/internal/domain/board"
	"github.com/hivemind-swarm/hivemind/internal/domain/dispute"
	"github.com/hivemind-swarm/hivemind/internal/domain/task"
	"github.com/hivemind-swarm/hivemind/internal/domain/tx"
)

func newTable(w io.Writer, header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(header)
	return tw
}

func renderTasks(w io.Writer, tasks []task.Task, now time.Time) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks.")
		return
	}
	tw := newTable(w, table.Row{"ID", "Title", "Status", "Reward", "Bond", "Creator", "Assignee", "Deadline"})
	for _, t := range tasks {
		assignee := "-"
		if a, ok := t.AssignedTo(); ok {
			assignee = address.Truncate(a.String())
		}
		deadline := task.FormatDeadline(t.Deadline, now)
		if t.Status.Terminal() {
			deadline = "-"
		}
		tw.AppendRow(table.Row{
			t.ID,
			t.Title(),
			t.Status,
			t.Reward,
			t.BondAmount,
			address.Truncate(t.Creator.String()),
			assignee,
			deadline,
		})
	}
	tw.Render()
}

func renderStats(w io.Writer, s board.Stats) {
	tw := newTable(w, table.Row{"Tasks", "Open", "Pool (USDC)", "Active workers"})
	tw.AppendRow(table.Row{s.TotalCount, s.OpenCount, s.Pool, s.ActiveWorkers})
	tw.Render()
}

func renderDisputes(w io.Writer, cases []board.Case) {
	if len(cases) == 0 {
		fmt.Fprintln(w, "No disputes.")
		return
	}
	tw := newTable(w, table.Row{"ID", "Task", "Title", "Reward", "Votes", "Approve", "Verdict"})
	for _, c := range cases {
		verdict := c.Verdict
		if !c.Dispute.Resolved {
			verdict = "Pending"
		}
		tw.AppendRow(table.Row{
			c.Dispute.ID,
			c.Dispute.TaskID,
			c.Title,
			c.Reward,
			fmt.Sprintf("%d/%d", c.Dispute.VoteCount, dispute.JurySize),
			strconv.Itoa(c.ApprovePercent) + "%",
			verdict,
		})
	}
	tw.Render()
}

func renderMine(w io.Writer, m board.Mine, now time.Time) {
	fmt.Fprintf(w, "Account %s, earned %s USDC\n", m.Account.Checksum(), m.TotalEarned)
	for _, section := range []struct {
		name  string
		tasks []task.Task
	}{
		{"Active", m.Active},
		{"Completed", m.Completed},
		{"Posted", m.Posted},
	} {
		fmt.Fprintf(w, "\n%s (%d)\n", section.name, len(section.tasks))
		if len(section.tasks) > 0 {
			renderTasks(w, section.tasks, now)
		}
	}
}

func renderResult(w io.Writer, res tx.Result) {
	switch res.Outcome {
	case tx.OutcomeSuccess:
		fmt.Fprintf(w, "%s confirmed: %s\n", res.Step, res.Hash)
	case tx.OutcomePending:
		fmt.Fprintf(w, "%s submitted, confirmation pending: %s\n", res.Step, res.Hash)
	default:
		fmt.Fprintf(w, "%s failed: %s\n", res.Step, res.Message)
	}
}

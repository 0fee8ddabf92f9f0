package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/hivemind-swarm/hivemind/internal/domain/address"
	"github.com/hivemind-swarm/hivemind/internal/domain/board"
	"github.com/hivemind-swarm/hivemind/internal/domain/task"
)

func addBoardCommands(root *cobra.Command, cfgPath *string) {
	var status string
	tasks := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter *task.Status
			if status != "" {
				s, err := task.ParseStatus(status)
				if err != nil {
					return err
				}
				filter = &s
			}
			return withApp(cmd.Context(), *cfgPath, appDeps{ReadOnly: true}, func(_ context.Context, a *app) error {
				renderTasks(cmd.OutOrStdout(), a.model.TaskList(filter), time.Now())
				return nil
			})
		},
	}
	tasks.Flags().StringVar(&status, "status", "", "only tasks in this status (open, claimed, submitted, disputed, completed, cancelled)")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show board totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), *cfgPath, appDeps{ReadOnly: true}, func(_ context.Context, a *app) error {
				renderStats(cmd.OutOrStdout(), a.model.Stats())
				return nil
			})
		},
	}

	disputes := &cobra.Command{
		Use:   "disputes",
		Short: "List disputes, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), *cfgPath, appDeps{ReadOnly: true}, func(_ context.Context, a *app) error {
				renderDisputes(cmd.OutOrStdout(), a.model.DisputeList())
				return nil
			})
		},
	}

	var account string
	mine := &cobra.Command{
		Use:   "mine",
		Short: "Show the tasks an account works on or posted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			acct, err := address.Parse(account)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), *cfgPath, appDeps{ReadOnly: true}, func(_ context.Context, a *app) error {
				renderMine(cmd.OutOrStdout(), board.ForAccount(a.model.Tasks.Items(), acct), time.Now())
				return nil
			})
		},
	}
	mine.Flags().StringVar(&account, "address", "", "account address")
	_ = mine.MarkFlagRequired("address")

	root.AddCommand(tasks, stats, disputes, mine)
}

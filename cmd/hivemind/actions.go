package main

import (
	"context"
	"errors"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hivemind-swarm/hivemind/internal/domain/task"
	"github.com/hivemind-swarm/hivemind/internal/domain/tx"
)

// actionCmd builds a write subcommand. run receives an app whose wallet is
// unlocked; every signature is confirmed interactively unless --yes.
func actionCmd(cfgPath *string, use, short string, run func(context.Context, *app) (tx.Result, error)) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps := appDeps{Passphrase: promptPassphrase}
			if !yes {
				deps.Confirm = confirmer(os.Stdin, cmd.ErrOrStderr())
			}
			return withApp(cmd.Context(), *cfgPath, deps, func(ctx context.Context, a *app) error {
				if a.signer == nil {
					return errors.New("no wallet: set wallet.keystore_path or HIVEMIND_KEYSTORE")
				}
				res, err := run(ctx, a)
				renderResult(cmd.OutOrStdout(), res)
				return err
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "sign without prompting")
	return cmd
}

func taskFlag(cmd *cobra.Command, id *uint64) {
	cmd.Flags().Uint64Var(id, "task", 0, "task id")
	_ = cmd.MarkFlagRequired("task")
}

func addActionCommands(root *cobra.Command, cfgPath *string) {
	var req task.CreateRequest
	var days, parent int
	create := actionCmd(cfgPath, "create", "Post a task, approving the reward first if needed",
		func(ctx context.Context, a *app) (tx.Result, error) {
			if days > 0 {
				req.DeadlineDays = strconv.Itoa(days)
			}
			if parent > 0 {
				req.ParentTaskID = strconv.Itoa(parent)
			}
			return a.actions.Create(ctx, req)
		})
	create.Flags().StringVar(&req.Reward, "reward", "", "reward in USDC")
	create.Flags().StringVar(&req.Bond, "bond", "", "worker bond in USDC")
	create.Flags().StringVar(&req.Description, "desc", "", "task description")
	create.Flags().IntVar(&days, "days", task.DefaultDeadlineDays, "days until the deadline")
	create.Flags().IntVar(&parent, "parent", 0, "parent task id")
	_ = create.MarkFlagRequired("reward")
	_ = create.MarkFlagRequired("desc")

	var claimID uint64
	claim := actionCmd(cfgPath, "claim", "Claim an open task, approving the bond first if needed",
		func(ctx context.Context, a *app) (tx.Result, error) { return a.actions.Claim(ctx, claimID) })
	taskFlag(claim, &claimID)

	var submitID uint64
	var proof string
	submit := actionCmd(cfgPath, "submit", "Submit proof of work for a claimed task",
		func(ctx context.Context, a *app) (tx.Result, error) {
			return a.actions.SubmitWork(ctx, submitID, proof)
		})
	taskFlag(submit, &submitID)
	submit.Flags().StringVar(&proof, "proof", "", "proof hash or link")
	_ = submit.MarkFlagRequired("proof")

	var approveID uint64
	approve := actionCmd(cfgPath, "approve", "Approve submitted work and release the reward",
		func(ctx context.Context, a *app) (tx.Result, error) { return a.actions.ApproveWork(ctx, approveID) })
	taskFlag(approve, &approveID)

	var cancelID uint64
	cancel := actionCmd(cfgPath, "cancel", "Cancel an open task",
		func(ctx context.Context, a *app) (tx.Result, error) { return a.actions.Cancel(ctx, cancelID) })
	taskFlag(cancel, &cancelID)

	var disputeID uint64
	dispute := actionCmd(cfgPath, "dispute", "Open a dispute on submitted work",
		func(ctx context.Context, a *app) (tx.Result, error) { return a.actions.OpenDispute(ctx, disputeID) })
	taskFlag(dispute, &disputeID)

	var voteID uint64
	var worker bool
	vote := actionCmd(cfgPath, "vote", "Cast a jury vote",
		func(ctx context.Context, a *app) (tx.Result, error) { return a.actions.CastVote(ctx, voteID, worker) })
	vote.Flags().Uint64Var(&voteID, "dispute", 0, "dispute id")
	vote.Flags().BoolVar(&worker, "worker", false, "vote in favor of the assignee")
	_ = vote.MarkFlagRequired("dispute")

	register := actionCmd(cfgPath, "register-juror", "Join the jury pool",
		func(ctx context.Context, a *app) (tx.Result, error) { return a.actions.RegisterJuror(ctx) })

	root.AddCommand(create, claim, submit, approve, cancel, dispute, vote, register)
}

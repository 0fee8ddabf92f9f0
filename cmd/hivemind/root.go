package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hivemind-swarm/hivemind/internal/adapter/postgres"
	"github.com/hivemind-swarm/hivemind/internal/config"
)

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "hivemind",
		Short:         "Task and dispute boards for the HiveMind coordinator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "YAML config file (default hivemind.yaml or $HIVEMIND_CONFIG)")

	root.AddCommand(
		newServeCmd(&cfgPath),
		newMigrateCmd(&cfgPath),
	)
	addBoardCommands(root, &cfgPath)
	addActionCommands(root, &cfgPath)
	return root
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func newMigrateCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the journal database schema",
	}
	dsn := func() (string, error) {
		cfg, err := loadConfig(*cfgPath)
		if err != nil {
			return "", err
		}
		if cfg.Postgres.DSN == "" {
			return "", errors.New("postgres.dsn (DATABASE_URL) is not set")
		}
		return cfg.Postgres.DSN, nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				d, err := dsn()
				if err != nil {
					return err
				}
				return postgres.RunMigrations(cmd.Context(), d)
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n < 1 {
						return fmt.Errorf("invalid steps %q", args[0])
					}
					steps = n
				}
				d, err := dsn()
				if err != nil {
					return err
				}
				return postgres.RollbackMigrations(cmd.Context(), d, steps)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				d, err := dsn()
				if err != nil {
					return err
				}
				v, err := postgres.MigrationVersion(cmd.Context(), d)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
	)
	return cmd
}

// withApp builds a read-write app for one CLI command and refreshes both
// views before running fn.
func withApp(ctx context.Context, cfgPath string, deps appDeps, fn func(context.Context, *app) error) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	if deps.Secrets, err = newVault(cfg); err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, deps)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.model.Refresh(ctx); err != nil {
		return err
	}
	return fn(ctx, a)
}

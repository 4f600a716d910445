package main

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"tarkeep/internal/scheduler"
)

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	var cronFlag string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "schedule <source-dir>",
		Short: "Run backups periodically on a cron schedule until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runner, err := ctx.newRunner()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			spec := strings.TrimSpace(cronFlag)
			if spec == "" {
				spec = strings.TrimSpace(cfg.Schedule.Cron)
			}
			if spec == "" {
				return errors.New("no schedule configured: set schedule.cron or pass --cron")
			}

			sched, err := scheduler.New(runner, spec, logger)
			if err != nil {
				return err
			}

			runCtx, cancel := signalContext(cmd.Context())
			defer cancel()

			if err := sched.Run(runCtx, args[0], dryRun); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cronFlag, "cron", "", "Cron expression overriding schedule.cron")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Simulate each scheduled run")
	return cmd
}

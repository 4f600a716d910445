package main

import (
	"github.com/spf13/cobra"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run <source-dir>",
		Short: "Create a backup of a directory and rotate old archives",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := ctx.newRunner()
			if err != nil {
				return err
			}

			runCtx, cancel := signalContext(cmd.Context())
			defer cancel()

			outcome, err := runner.Run(runCtx, args[0], dryRun)
			if err != nil {
				return &exitError{code: outcome.ExitCode, err: err}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log intended actions without touching the filesystem")
	return cmd
}

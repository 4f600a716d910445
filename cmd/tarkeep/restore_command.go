package main

import (
	"github.com/spf13/cobra"
)

func newRestoreCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "restore <archive> <target-dir>",
		Short: "Extract an archive into a target directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := ctx.newRunner()
			if err != nil {
				return err
			}

			runCtx, cancel := signalContext(cmd.Context())
			defer cancel()

			return runner.Restore(runCtx, args[0], args[1], dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log intended actions without extracting")
	return cmd
}

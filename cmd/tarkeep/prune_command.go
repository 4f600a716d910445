package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPruneCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Apply the retention policy without creating a backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := ctx.newRunner()
			if err != nil {
				return err
			}

			runCtx, cancel := signalContext(cmd.Context())
			defer cancel()

			summary, err := runner.Prune(runCtx, dryRun)
			if err != nil {
				return err
			}

			verb := "deleted"
			if dryRun {
				verb = "would delete"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Kept %d archives, %s %d (%d failures)\n",
				summary.Kept, verb, len(summary.Deleted), summary.Failed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log intended deletions without removing anything")
	return cmd
}

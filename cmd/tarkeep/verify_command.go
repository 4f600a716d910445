package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <archive>",
		Short: "Check an archive's digest sidecar and structural integrity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := ctx.newRunner()
			if err != nil {
				return err
			}

			result, err := runner.VerifyArchive(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.DigestChecked {
				fmt.Fprintf(out, "Digest OK (%s)\n", result.Algorithm)
			} else {
				fmt.Fprintln(out, "Digest not checked (no sidecar or provider); structural test only")
			}
			fmt.Fprintf(out, "Structure OK (%d entries)\n", result.Entries)
			return nil
		},
	}
}

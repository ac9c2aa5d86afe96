package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	var failOnErrors bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one reconciliation pass and print the summary as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			summary, err := a.job.Run(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(summary); err != nil {
				return err
			}
			if failOnErrors && len(summary.Errors) > 0 {
				return fmt.Errorf("%d account(s) failed", len(summary.Errors))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failOnErrors, "fail-on-errors", false, "exit non-zero when any account failed")
	return cmd
}

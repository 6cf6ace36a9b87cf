package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"wordtally/internal/app"
)

func bulkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Recompile several reports over the configured default period.",
		Long: `Recompiles each --job report=term from its existing year checkpoints.
Every job is attempted; the command fails if any of them failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rawJobs, err := cmd.Flags().GetStringArray("job")
			if err != nil {
				return fmt.Errorf("error reading job: %w", err)
			}
			jobs, err := parseJobs(rawJobs)
			if err != nil {
				return err
			}
			transforms, err := cmd.Flags().GetStringSlice("transform")
			if err != nil {
				return fmt.Errorf("error reading transform: %w", err)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Pipeline().Bulk(ctx, jobs, transforms); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "compiled %d reports for %s\n", len(jobs), a.DefaultPeriod())
				return err
			})
		},
	}
	cmd.Flags().StringArray("job", nil, "Report to compile as report=term (repeatable)")
	cmd.Flags().StringSlice("transform", []string{"normal", "percentage"}, "Row transforms applied to each report")
	_ = cmd.MarkFlagRequired("job")
	return cmd
}

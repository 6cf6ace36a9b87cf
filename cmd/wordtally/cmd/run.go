package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"wordtally/internal/app"
	"wordtally/internal/pipeline"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Query every month of the period, checkpoint each year and compile the report.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			author, err := cmd.Flags().GetString("author")
			if err != nil {
				return fmt.Errorf("error reading author: %w", err)
			}
			resume, err := cmd.Flags().GetBool("resume")
			if err != nil {
				return fmt.Errorf("error reading resume: %w", err)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				ra, err := readReportFlags(cmd, a.DefaultPeriod())
				if err != nil {
					return err
				}
				out, err := a.Pipeline().Run(ctx, pipeline.Request{
					Period:     ra.period,
					Term:       ra.term,
					ReportID:   ra.reportID,
					Transforms: ra.transforms,
					AuthorID:   author,
					Resume:     resume,
				})
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), out.Format())
				return err
			})
		},
	}
	addReportFlags(cmd)
	cmd.Flags().String("author", "", "Only count messages from this author id")
	cmd.Flags().Bool("resume", false, "Reuse year checkpoints written by earlier runs")
	return cmd
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"wordtally/internal/app"
)

func compileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile existing year checkpoints into the report without querying.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				ra, err := readReportFlags(cmd, a.DefaultPeriod())
				if err != nil {
					return err
				}
				out, err := a.Pipeline().Compile(ctx, ra.period, ra.term, ra.reportID, ra.transforms)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), out.Format())
				return err
			})
		},
	}
	addReportFlags(cmd)
	return cmd
}

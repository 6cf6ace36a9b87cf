package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"wordtally/internal/app"
	"wordtally/internal/pipeline"
	"wordtally/internal/window"
	logx "wordtally/pkg/logx"
)

const defaultConfigPath = "./settings.yaml"

// RootCmd is the root Cobra command that gets called from the main func.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "wordtally",
		Short:         "wordtally counts how often a term appears in a guild's message history, month by month.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String("config", defaultConfigPath, "Path to the JSON or YAML settings file")

	cmd.AddCommand(
		runCmd(),
		compileCmd(),
		bulkCmd(),
	)
	return cmd
}

// withApp builds the App from --config, runs fn and always closes the App.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) (err error) {
	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("error reading config: %w", err)
	}
	a, err := app.NewApp(cfgPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(context.Background()); cerr != nil && err == nil {
			err = cerr
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	err = fn(ctx, a)
	if err != nil {
		a.Logger().Error("command failed", logx.String("cmd", cmd.Name()), logx.Err(err))
	}
	return err
}

// addReportFlags registers the flags shared by run and compile.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().Int("from", 0, "First year of the period (default: config default_period.start)")
	cmd.Flags().Int("to", 0, "Last year of the period, inclusive (default: config default_period.end)")
	cmd.Flags().String("term", "", "Search term; \"all\" counts every message")
	cmd.Flags().String("report", "", "Report id, used as the output folder and file prefix")
	cmd.Flags().StringSlice("transform", []string{"normal", "percentage"}, "Row transforms applied to the compiled report")
	_ = cmd.MarkFlagRequired("term")
	_ = cmd.MarkFlagRequired("report")
}

type reportArgs struct {
	period     window.Period
	term       string
	reportID   string
	transforms []string
}

func readReportFlags(cmd *cobra.Command, def window.Period) (reportArgs, error) {
	var ra reportArgs
	from, err := cmd.Flags().GetInt("from")
	if err != nil {
		return ra, fmt.Errorf("error reading from: %w", err)
	}
	to, err := cmd.Flags().GetInt("to")
	if err != nil {
		return ra, fmt.Errorf("error reading to: %w", err)
	}
	ra.period = def
	if from != 0 {
		ra.period.Start = from
	}
	if to != 0 {
		ra.period.End = to
	}
	if ra.term, err = cmd.Flags().GetString("term"); err != nil {
		return ra, fmt.Errorf("error reading term: %w", err)
	}
	if ra.reportID, err = cmd.Flags().GetString("report"); err != nil {
		return ra, fmt.Errorf("error reading report: %w", err)
	}
	if ra.transforms, err = cmd.Flags().GetStringSlice("transform"); err != nil {
		return ra, fmt.Errorf("error reading transform: %w", err)
	}
	return ra, nil
}

// parseJobs turns repeated "report=term" values into bulk jobs.
func parseJobs(raw []string) ([]pipeline.Job, error) {
	jobs := make([]pipeline.Job, 0, len(raw))
	for _, r := range raw {
		id, term, ok := strings.Cut(r, "=")
		id, term = strings.TrimSpace(id), strings.TrimSpace(term)
		if !ok || id == "" || term == "" {
			return nil, fmt.Errorf("invalid job %q: want report=term", r)
		}
		jobs = append(jobs, pipeline.Job{ReportID: id, Term: term})
	}
	return jobs, nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/molprop/platform/internal/application/pipeline"
	"github.com/molprop/platform/internal/application/visualize"
	"github.com/molprop/platform/internal/domain/run"
	"github.com/molprop/platform/pkg/types/analysis"
)

func newPipelineCmd(a *app) *cobra.Command {
	var (
		outFormat    string
		runReport    bool
		runPicklists bool
		runVisualize bool
	)

	cmd := &cobra.Command{
		Use:   "pipeline <input>",
		Short: "Run the MolProp Toolkit over an input file inside a managed run directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolkit := run.NewToolkit(
				a.cfg.Toolkit.CalcCommand,
				a.cfg.Toolkit.ReportCommand,
				a.cfg.Toolkit.PicklistsCommand,
				a.cfg.Toolkit.StepTimeout,
				a.logger,
			)
			// Filesystem only from the CLI: no store, no bundle archival.
			svc := pipeline.NewService(a.cfg.Runs.BaseDir, toolkit,
				visualize.NewService(a.logger, nil), pipeline.Options{}, a.logger)

			runID, result, err := svc.Run(cmd.Context(), analysis.PipelineRequest{
				InputPath:    args[0],
				OutFormat:    outFormat,
				RunReport:    runReport,
				RunPicklists: runPicklists,
				RunVisualize: runVisualize,
			})
			if err != nil {
				if runID != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Run %s failed\n", runID)
				}
				return err
			}
			if a.jsonOutput() {
				return printJSON(cmd, map[string]any{"run_id": runID, "result": result})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s\n", runID)
			for _, step := range result.Steps {
				if step.Skipped {
					fmt.Fprintf(out, "  %-10s skipped (%s)\n", step.Name, step.Reason)
					continue
				}
				fmt.Fprintf(out, "  %-10s rc=%d\n", step.Name, step.ReturnCode)
			}
			if result.ResultsTable != "" {
				fmt.Fprintf(out, "Results: %s\n", result.ResultsTable)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&outFormat, "format", "", "results table format, csv or parquet (default parquet)")
	f.BoolVar(&runReport, "report", false, "also run the toolkit report step")
	f.BoolVar(&runPicklists, "picklists", false, "also run the toolkit picklists step")
	f.BoolVar(&runVisualize, "visualize", false, "also project the results table after calculation")
	return cmd
}

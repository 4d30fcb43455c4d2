package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/molprop/platform/internal/application/runs"
	"github.com/molprop/platform/pkg/types/common"
)

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect and manage pipeline run directories",
	}
	cmd.AddCommand(newRunsListCmd(a), newRunsShowCmd(a), newRunsBundleCmd(a), newRunsDeleteCmd(a))
	return cmd
}

func (a *app) runsService() *runs.Service {
	return runs.NewService(a.cfg.Runs.BaseDir, nil, nil, a.logger)
}

func newRunsListCmd(a *app) *cobra.Command {
	var page, pageSize int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := common.Pagination{Page: page, PageSize: pageSize}
			summaries, p, err := a.runsService().List(cmd.Context(), p)
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(cmd, map[string]any{"runs": summaries, "pagination": p})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d runs\n", p.Total)
			for _, s := range summaries {
				fmt.Fprintf(out, "  %-32s %-10s %-10s %s\n",
					s.ID, s.Kind, s.Status, s.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "runs per page")
	return cmd
}

func newRunsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run's status and metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := a.runsService().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(cmd, detail)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:     %s\n", detail.ID)
			fmt.Fprintf(out, "Kind:    %s\n", detail.Kind)
			fmt.Fprintf(out, "Status:  %s\n", detail.Status)
			fmt.Fprintf(out, "Created: %s\n", detail.CreatedAt.Format("2006-01-02 15:04:05"))
			if detail.ResultsPath != "" {
				fmt.Fprintf(out, "Results: %s\n", detail.ResultsPath)
			}
			return nil
		},
	}
}

func newRunsBundleCmd(a *app) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "bundle <run-id>",
		Short: "Write a run's zip bundle to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rd, err := a.runsService().Bundle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer rd.Close()

			dest := outPath
			if dest == "" {
				dest = args[0] + ".zip"
			}
			f, err := os.Create(dest)
			if err != nil {
				return err
			}
			defer f.Close()
			n, err := io.Copy(f, rd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote: %s (%d bytes)\n", dest, n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "destination file (default <run-id>.zip)")
	return cmd
}

func newRunsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a run directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.runsService().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted: %s\n", args[0])
			return nil
		},
	}
}

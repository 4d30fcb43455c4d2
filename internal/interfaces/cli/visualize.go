package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/molprop/platform/internal/application/visualize"
	"github.com/molprop/platform/pkg/types/analysis"
)

func newVisualizeCmd(a *app) *cobra.Command {
	var (
		outDir  string
		method  string
		idCol   string
		colorBy string
		columns []string
		seed    int64
	)

	cmd := &cobra.Command{
		Use:   "visualize <table>",
		Short: "Project a results table to 2-D (PCA or UMAP) and render an HTML scatter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := visualize.NewService(a.logger, nil)
			result, err := svc.Run(cmd.Context(), analysis.VisualizeRequest{
				TablePath: args[0],
				OutDir:    outDir,
				Method:    analysis.ProjectionMethod(method),
				IDColumn:  idCol,
				ColorBy:   colorBy,
				Columns:   columns,
				Seed:      seed,
			})
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(cmd, result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Projected %d compounds with %s over %d columns\n",
				result.NumPoints, result.Method, len(result.ColumnsUsed))
			if len(result.ExplainedVariance) == 2 {
				fmt.Fprintf(cmd.OutOrStdout(), "Explained variance: %.1f%% / %.1f%%\n",
					result.ExplainedVariance[0]*100, result.ExplainedVariance[1]*100)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote: %s\n", result.ProjectionCSV)
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote: %s\n", result.ProjectionHTML)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&outDir, "outdir", "o", "viz", "output directory for projection artifacts")
	f.StringVar(&method, "method", "pca", "projection method (pca, umap)")
	f.StringVar(&idCol, "id-col", "", "compound identifier column (default Compound_ID)")
	f.StringVar(&colorBy, "color-by", "", "column to color points by")
	f.StringSliceVar(&columns, "columns", nil, "numeric columns to project (default: all numeric)")
	f.Int64Var(&seed, "seed", 42, "random seed for reproducible layouts")
	return cmd
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/molprop/platform/internal/application/sar"
	"github.com/molprop/platform/pkg/types/analysis"
)

func newSARCmd(a *app) *cobra.Command {
	var (
		outPath    string
		idCol      string
		smilesCol  string
		activity   string
		similarity float64
		delta      float64
	)

	cmd := &cobra.Command{
		Use:   "sar <table>",
		Short: "Summarize activity by scaffold and flag activity cliffs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := sar.NewService(a.logger, nil)
			result, err := svc.Run(cmd.Context(), analysis.SARRequest{
				TablePath:       args[0],
				OutPath:         outPath,
				IDColumn:        idCol,
				SMILESColumn:    smilesCol,
				ActivityColumn:  activity,
				CliffSimilarity: similarity,
				CliffDelta:      delta,
			})
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d scaffolds on %s (%d rows skipped)\n",
				len(result.Scaffolds), result.ActivityColumn, result.NumSkipped)
			for _, sc := range result.Scaffolds {
				fmt.Fprintf(out, "  %-30s n=%-3d mean=%.2f [%.2f, %.2f]\n",
					sc.Scaffold, sc.N, sc.Mean, sc.Min, sc.Max)
			}
			if len(result.Cliffs) > 0 {
				fmt.Fprintf(out, "%d activity cliffs:\n", len(result.Cliffs))
				for _, cl := range result.Cliffs {
					fmt.Fprintf(out, "  %s vs %s  sim=%.2f  delta=%.2f\n",
						cl.LeftID, cl.RightID, cl.Similarity, cl.Delta)
				}
			}
			if result.OutPath != "" {
				fmt.Fprintf(out, "Wrote: %s\n", result.OutPath)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&outPath, "out", "o", "", "write the scaffold summary table here")
	f.StringVar(&idCol, "id-col", "", "compound identifier column (default Compound_ID)")
	f.StringVar(&smilesCol, "smiles-col", "", "SMILES column (default SMILES)")
	f.StringVar(&activity, "activity", "", "activity column to summarize (required)")
	f.Float64Var(&similarity, "cliff-similarity", 0, "minimum similarity for a cliff pair (default 0.7)")
	f.Float64Var(&delta, "cliff-delta", 0, "minimum activity delta for a cliff pair (default 1.0)")
	_ = cmd.MarkFlagRequired("activity")
	return cmd
}

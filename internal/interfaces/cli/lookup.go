package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/molprop/platform/internal/application/lookup"
	"github.com/molprop/platform/pkg/types/analysis"
)

func newLookupCmd(a *app) *cobra.Command {
	var (
		mode       string
		idCol      string
		smilesCol  string
		threshold  float64
		maxResults int
	)

	cmd := &cobra.Command{
		Use:   "lookup <table> <query>",
		Short: "Find compounds by identifier, SMILES, or fingerprint similarity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := lookup.NewService(a.logger, nil, nil, nil)
			result, err := svc.Run(cmd.Context(), analysis.LookupRequest{
				TablePath:    args[0],
				Query:        args[1],
				Mode:         analysis.LookupMode(mode),
				IDColumn:     idCol,
				SMILESColumn: smilesCol,
				Threshold:    threshold,
				MaxResults:   maxResults,
			})
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d hits (%s mode)\n", len(result.Hits), result.Mode)
			for _, hit := range result.Hits {
				if result.Mode == analysis.LookupBySimilarity {
					fmt.Fprintf(out, "  %-12s %s  sim=%.3f\n", hit.ID, hit.SMILES, hit.Similarity)
				} else {
					fmt.Fprintf(out, "  %-12s %s\n", hit.ID, hit.SMILES)
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&mode, "mode", "id", "lookup mode (id, smiles, similarity)")
	f.StringVar(&idCol, "id-col", "", "compound identifier column (default Compound_ID)")
	f.StringVar(&smilesCol, "smiles-col", "", "SMILES column (default SMILES)")
	f.Float64Var(&threshold, "threshold", 0, "similarity cutoff for similarity mode (default 0.7)")
	f.IntVar(&maxResults, "max", 0, "maximum hits to return (default 25)")
	return cmd
}

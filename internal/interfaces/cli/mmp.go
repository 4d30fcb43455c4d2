package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/molprop/platform/internal/application/mmp"
	"github.com/molprop/platform/pkg/types/analysis"
)

func newMMPCmd(a *app) *cobra.Command {
	var (
		outPath   string
		idCol     string
		smilesCol string
		property  string
		minPairs  int
	)

	cmd := &cobra.Command{
		Use:   "mmp <table>",
		Short: "Mine matched molecular pairs and aggregate them into transforms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := mmp.NewService(a.logger, nil)
			result, err := svc.Run(cmd.Context(), analysis.MMPRequest{
				TablePath:    args[0],
				OutPath:      outPath,
				IDColumn:     idCol,
				SMILESColumn: smilesCol,
				Property:     property,
				MinPairs:     minPairs,
			})
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Found %d pairs, %d transforms on %s (%d rows skipped)\n",
				len(result.Pairs), len(result.Transforms), result.Property, result.NumSkipped)
			for _, tr := range result.Transforms {
				fmt.Fprintf(out, "  %s >> %s  n=%d  mean delta=%+.3f\n",
					tr.From, tr.To, tr.Count, tr.MeanDelta)
			}
			if result.OutPath != "" {
				fmt.Fprintf(out, "Wrote: %s\n", result.OutPath)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&outPath, "out", "o", "", "write the pair table here")
	f.StringVar(&idCol, "id-col", "", "compound identifier column (default Compound_ID)")
	f.StringVar(&smilesCol, "smiles-col", "", "SMILES column (default SMILES)")
	f.StringVar(&property, "property", "", "property column to compute deltas on (required)")
	f.IntVar(&minPairs, "min-pairs", 0, "minimum pairs per transform (default 2)")
	_ = cmd.MarkFlagRequired("property")
	return cmd
}

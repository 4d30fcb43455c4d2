package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/molprop/platform/internal/application/bioisostere"
	"github.com/molprop/platform/pkg/types/analysis"
)

func newBioisostereCmd(a *app) *cobra.Command {
	var (
		rulesPath  string
		maxResults int
	)

	cmd := &cobra.Command{
		Use:   "bioisostere <smiles>",
		Short: "Suggest bioisosteric replacements for a query structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := bioisostere.NewService(a.logger, nil)
			result, err := svc.Run(cmd.Context(), analysis.BioisostereRequest{
				SMILES:     args[0],
				RulesPath:  rulesPath,
				MaxResults: maxResults,
			})
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d suggestions for %s\n", len(result.Suggestions), result.Query)
			for _, s := range result.Suggestions {
				fmt.Fprintf(out, "  %-40s %s >> %s  support=%d\n", s.Product, s.From, s.To, s.Support)
				if s.Rationale != "" {
					fmt.Fprintf(out, "    %s\n", s.Rationale)
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&rulesPath, "rules", "", "CSV of additional replacement rules (from,to,rationale,support)")
	f.IntVar(&maxResults, "max", 0, "maximum suggestions to return (0 = all)")
	return cmd
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/molprop/platform/internal/application/pareto"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
)

// parseObjectives turns "Potency:max" / "MW:min" specs into objectives.  A
// bare column name means maximize.
func parseObjectives(specs []string) ([]analysis.Objective, error) {
	objectives := make([]analysis.Objective, 0, len(specs))
	for _, spec := range specs {
		column, dir := spec, "max"
		if i := strings.LastIndex(spec, ":"); i >= 0 {
			column, dir = spec[:i], spec[i+1:]
		}
		if column == "" {
			return nil, errors.Newf(errors.ErrCodeBadRequest, "objective %q has no column name", spec)
		}
		var direction analysis.Direction
		switch strings.ToLower(dir) {
		case "max":
			direction = analysis.Maximize
		case "min":
			direction = analysis.Minimize
		default:
			return nil, errors.Newf(errors.ErrCodeBadRequest,
				"objective %q: direction must be min or max, got %q", spec, dir)
		}
		objectives = append(objectives, analysis.Objective{Column: column, Direction: direction})
	}
	return objectives, nil
}

func newParetoCmd(a *app) *cobra.Command {
	var (
		outPath string
		idCol   string
		specs   []string
		maxRank int
	)

	cmd := &cobra.Command{
		Use:   "pareto <table>",
		Short: "Rank compounds into non-dominated fronts over chosen objectives",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			objectives, err := parseObjectives(specs)
			if err != nil {
				return err
			}
			svc := pareto.NewService(a.logger, nil)
			result, err := svc.Run(cmd.Context(), analysis.ParetoRequest{
				TablePath:  args[0],
				OutPath:    outPath,
				IDColumn:   idCol,
				Objectives: objectives,
				MaxRank:    maxRank,
			})
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(cmd, result)
			}
			for rank, size := range result.FrontSizes {
				fmt.Fprintf(cmd.OutOrStdout(), "Front %d: %d compounds\n", rank+1, size)
			}
			if result.OutPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote: %s\n", result.OutPath)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&outPath, "out", "o", "", "write the table with a Pareto_Rank column here")
	f.StringVar(&idCol, "id-col", "", "compound identifier column (default Compound_ID)")
	f.StringArrayVar(&specs, "objective", nil, "objective as column:direction, e.g. Potency:max (repeatable)")
	f.IntVar(&maxRank, "max-rank", 0, "stop after this many fronts (0 = all)")
	return cmd
}

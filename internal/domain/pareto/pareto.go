// Package pareto ranks table rows into successive non-dominated fronts over a
// set of objective columns.  Rank 1 is the Pareto front; peeling it off and
// ranking the remainder yields rank 2, and so on.
package pareto

import (
	"math"

	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
)

// Point is one candidate row.  Values are aligned with the objective list
// and already oriented so that larger is always better.
type Point struct {
	ID     string
	Values []float64
}

// Ranked is a point with its assigned front rank.  Rows with a missing value
// in any objective get rank 0, meaning unranked.
type Ranked struct {
	Point
	Rank int
}

// Orient converts raw objective values into maximize-oriented ones by
// negating every minimize column.  NaN passes through and later excludes the
// row from ranking.
func Orient(values []float64, objectives []analysis.Objective) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if objectives[i].Direction == analysis.Minimize {
			out[i] = -v
		} else {
			out[i] = v
		}
	}
	return out
}

// ValidateObjectives rejects empty objective lists and unknown directions
// before any table work happens.
func ValidateObjectives(objectives []analysis.Objective) error {
	if len(objectives) == 0 {
		return errors.New(errors.ErrCodeParetoNoObjectives, "at least one objective is required")
	}
	for _, o := range objectives {
		if o.Column == "" {
			return errors.New(errors.ErrCodeParetoObjectiveInvalid, "objective column must not be empty")
		}
		if o.Direction != analysis.Minimize && o.Direction != analysis.Maximize {
			return errors.Newf(errors.ErrCodeParetoObjectiveInvalid,
				"objective %q has direction %q (want min or max)", o.Column, string(o.Direction))
		}
	}
	return nil
}

// dominates reports whether a dominates b: a is at least as good everywhere
// and strictly better somewhere.  Values are maximize-oriented.
func dominates(a, b []float64) bool {
	strictly := false
	for i := range a {
		if a[i] < b[i] {
			return false
		}
		if a[i] > b[i] {
			strictly = true
		}
	}
	return strictly
}

// Rank assigns front ranks by repeated peeling.  maxRank 0 ranks every row;
// a positive maxRank stops after that many fronts and leaves deeper rows at
// rank 0.  Rows containing NaN are excluded up front, also at rank 0.
// Duplicate points land on the same front because neither dominates the
// other.
func Rank(points []Point, maxRank int) ([]Ranked, []int) {
	ranked := make([]Ranked, len(points))
	remaining := make([]int, 0, len(points))
	for i, p := range points {
		ranked[i] = Ranked{Point: p}
		if hasNaN(p.Values) {
			continue
		}
		remaining = append(remaining, i)
	}

	var frontSizes []int
	rank := 0
	for len(remaining) > 0 {
		rank++
		if maxRank > 0 && rank > maxRank {
			break
		}
		var front, rest []int
		for _, i := range remaining {
			dominated := false
			for _, j := range remaining {
				if i != j && dominates(points[j].Values, points[i].Values) {
					dominated = true
					break
				}
			}
			if dominated {
				rest = append(rest, i)
			} else {
				front = append(front, i)
			}
		}
		for _, i := range front {
			ranked[i].Rank = rank
		}
		frontSizes = append(frontSizes, len(front))
		remaining = rest
	}
	return ranked, frontSizes
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

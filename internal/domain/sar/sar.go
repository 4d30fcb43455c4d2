// Package sar summarizes structure-activity relationships: compounds are
// grouped by scaffold with per-group activity statistics, and highly similar
// pairs with large activity differences are flagged as activity cliffs.
package sar

import (
	"math"
	"sort"

	"github.com/molprop/platform/internal/domain/molecule"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
)

// Defaults for cliff detection.  A pair is a cliff when its fingerprint
// Tanimoto meets the similarity floor and the activity gap meets the delta
// floor.
const (
	DefaultCliffSimilarity = 0.7
	DefaultCliffDelta      = 1.0
)

// Compound is one input row for SAR analysis.
type Compound struct {
	ID       string
	SMILES   string
	Activity float64
}

// GroupByScaffold buckets compounds under their framework key and computes
// activity statistics per bucket.  Rows with invalid SMILES or NaN activity
// are skipped and counted.  Groups are ordered by descending size, ties by
// scaffold string.
func GroupByScaffold(compounds []Compound) (summaries []analysis.ScaffoldSummary, skipped int, err error) {
	groups := map[string][]Compound{}
	for _, c := range compounds {
		if math.IsNaN(c.Activity) {
			skipped++
			continue
		}
		scaffold, scErr := molecule.ScaffoldOf(c.SMILES)
		if scErr != nil {
			skipped++
			continue
		}
		groups[scaffold] = append(groups[scaffold], c)
	}
	if len(groups) == 0 {
		return nil, skipped, errors.New(errors.ErrCodeSARNoScaffolds,
			"no row yielded a usable scaffold")
	}

	for scaffold, members := range groups {
		s := analysis.ScaffoldSummary{
			Scaffold: scaffold,
			N:        len(members),
			Min:      math.Inf(1),
			Max:      math.Inf(-1),
		}
		sum := 0.0
		for _, m := range members {
			s.Members = append(s.Members, m.ID)
			sum += m.Activity
			s.Min = math.Min(s.Min, m.Activity)
			s.Max = math.Max(s.Max, m.Activity)
		}
		s.Mean = sum / float64(len(members))
		if len(members) > 1 {
			ss := 0.0
			for _, m := range members {
				d := m.Activity - s.Mean
				ss += d * d
			}
			s.StdDev = math.Sqrt(ss / float64(len(members)-1))
		}
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].N != summaries[j].N {
			return summaries[i].N > summaries[j].N
		}
		return summaries[i].Scaffold < summaries[j].Scaffold
	})
	return summaries, skipped, nil
}

// FindCliffs scans all compound pairs for activity cliffs.  Thresholds at or
// below zero fall back to the defaults.  Cliffs are ordered by descending
// |delta|, ties by left then right ID; pair orientation puts the less active
// compound on the left so the delta is positive.
func FindCliffs(compounds []Compound, minSimilarity, minDelta float64) []analysis.ActivityCliff {
	if minSimilarity <= 0 {
		minSimilarity = DefaultCliffSimilarity
	}
	if minDelta <= 0 {
		minDelta = DefaultCliffDelta
	}

	type prepared struct {
		id       string
		activity float64
		fp       *molecule.Fingerprint
	}
	var usable []prepared
	for _, c := range compounds {
		if math.IsNaN(c.Activity) {
			continue
		}
		fp, err := molecule.CircularFingerprint(c.SMILES,
			molecule.DefaultFingerprintRadius, molecule.DefaultFingerprintBits)
		if err != nil {
			continue
		}
		usable = append(usable, prepared{id: c.ID, activity: c.Activity, fp: fp})
	}

	var cliffs []analysis.ActivityCliff
	for i := 0; i < len(usable); i++ {
		for j := i + 1; j < len(usable); j++ {
			delta := usable[j].activity - usable[i].activity
			if math.Abs(delta) < minDelta {
				continue
			}
			sim, err := molecule.Tanimoto(usable[i].fp, usable[j].fp)
			if err != nil || sim < minSimilarity {
				continue
			}
			left, right := usable[i], usable[j]
			if delta < 0 {
				left, right = right, left
				delta = -delta
			}
			cliffs = append(cliffs, analysis.ActivityCliff{
				LeftID:     left.id,
				RightID:    right.id,
				Similarity: sim,
				Delta:      delta,
			})
		}
	}

	sort.Slice(cliffs, func(i, j int) bool {
		if cliffs[i].Delta != cliffs[j].Delta {
			return cliffs[i].Delta > cliffs[j].Delta
		}
		if cliffs[i].LeftID != cliffs[j].LeftID {
			return cliffs[i].LeftID < cliffs[j].LeftID
		}
		return cliffs[i].RightID < cliffs[j].RightID
	})
	return cliffs
}

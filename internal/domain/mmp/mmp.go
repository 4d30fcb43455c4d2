// Package mmp discovers matched molecular pairs: two compounds whose
// structures differ by a single fragment swap at one acyclic bond.  Pairs
// sharing the same fragment swap are aggregated into transforms with
// property-delta statistics, which is the table medicinal chemists actually
// read.
package mmp

import (
	"math"
	"sort"

	"github.com/molprop/platform/internal/domain/molecule"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
)

// DefaultMinPairs is the smallest number of pairs a transform needs before
// it is reported; singletons are anecdotes, not trends.
const DefaultMinPairs = 2

// Compound is one input row: identifier, structure, and the property value
// being tracked across pairs.
type Compound struct {
	ID     string
	SMILES string
	Value  float64
}

// fragmentEntry records one cut of one compound, keyed later by core.
type fragmentEntry struct {
	compound int
	fragment string
}

// FindPairs enumerates every matched pair among the compounds.  Compounds
// with unparseable SMILES or NaN property values are skipped and counted;
// analysis over a partly dirty table should degrade, not fail.  Pair
// orientation is deterministic: the lexicographically smaller fragment is
// the left side.
func FindPairs(compounds []Compound) (pairs []analysis.MMPPair, skipped int) {
	index := map[string][]fragmentEntry{}
	for ci, c := range compounds {
		if math.IsNaN(c.Value) {
			skipped++
			continue
		}
		cuts, err := molecule.SingleCuts(c.SMILES)
		if err != nil {
			skipped++
			continue
		}
		seen := map[molecule.Cut]bool{}
		for _, cut := range cuts {
			if seen[cut] {
				continue
			}
			seen[cut] = true
			index[cut.Core] = append(index[cut.Core], fragmentEntry{compound: ci, fragment: cut.Fragment})
		}
	}

	// one pair per unordered compound combination per core
	emitted := map[[2]int]map[string]bool{}
	cores := make([]string, 0, len(index))
	for core := range index {
		cores = append(cores, core)
	}
	sort.Strings(cores)

	for _, core := range cores {
		entries := index[core]
		for i := 0; i < len(entries); i++ {
			for j := i + 1; j < len(entries); j++ {
				a, b := entries[i], entries[j]
				if a.compound == b.compound || a.fragment == b.fragment {
					continue
				}
				if a.fragment > b.fragment {
					a, b = b, a
				}
				key := [2]int{a.compound, b.compound}
				if key[0] > key[1] {
					key[0], key[1] = key[1], key[0]
				}
				if emitted[key] == nil {
					emitted[key] = map[string]bool{}
				}
				if emitted[key][core] {
					continue
				}
				emitted[key][core] = true

				left := compounds[a.compound]
				right := compounds[b.compound]
				pairs = append(pairs, analysis.MMPPair{
					LeftID:    left.ID,
					RightID:   right.ID,
					Core:      core,
					LeftFrag:  a.fragment,
					RightFrag: b.fragment,
					Delta:     right.Value - left.Value,
				})
			}
		}
	}
	return pairs, skipped
}

// Aggregate groups pairs by their fragment swap and computes per-transform
// statistics.  Transforms with fewer than minPairs supporting pairs are
// dropped; results are ordered by descending count, then by transform key.
func Aggregate(pairs []analysis.MMPPair, minPairs int) ([]analysis.MMPTransform, error) {
	if minPairs <= 0 {
		minPairs = DefaultMinPairs
	}
	if len(pairs) == 0 {
		return nil, errors.New(errors.ErrCodeMMPNoPairs, "no matched pairs to aggregate")
	}

	type key struct{ from, to string }
	deltas := map[key][]float64{}
	for _, p := range pairs {
		deltas[key{p.LeftFrag, p.RightFrag}] = append(deltas[key{p.LeftFrag, p.RightFrag}], p.Delta)
	}

	var out []analysis.MMPTransform
	for k, ds := range deltas {
		if len(ds) < minPairs {
			continue
		}
		out = append(out, analysis.MMPTransform{
			From:        k.from,
			To:          k.to,
			Count:       len(ds),
			MeanDelta:   mean(ds),
			MedianDelta: median(ds),
		})
	}
	if len(out) == 0 {
		return nil, errors.Newf(errors.ErrCodeMMPNoPairs,
			"no transform reaches the minimum of %d pairs", minPairs)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out, nil
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

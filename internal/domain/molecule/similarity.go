package molecule

import (
	"math/bits"

	"github.com/molprop/platform/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fingerprint Similarity
// ─────────────────────────────────────────────────────────────────────────────

// Tanimoto computes the Jaccard index of two bit-vector fingerprints.  Two
// all-zero fingerprints score 0, not 1; an empty structure should never rank
// as a perfect match.
func Tanimoto(a, b *Fingerprint) (float64, error) {
	if err := checkComparable(a, b); err != nil {
		return 0, err
	}
	inter, union := 0, 0
	for i := range a.Bits {
		inter += bits.OnesCount8(a.Bits[i] & b.Bits[i])
		union += bits.OnesCount8(a.Bits[i] | b.Bits[i])
	}
	if union == 0 {
		return 0, nil
	}
	return float64(inter) / float64(union), nil
}

// Dice computes the Dice coefficient of two bit-vector fingerprints.
func Dice(a, b *Fingerprint) (float64, error) {
	if err := checkComparable(a, b); err != nil {
		return 0, err
	}
	inter := 0
	for i := range a.Bits {
		inter += bits.OnesCount8(a.Bits[i] & b.Bits[i])
	}
	denom := a.NumOnBits + b.NumOnBits
	if denom == 0 {
		return 0, nil
	}
	return 2 * float64(inter) / float64(denom), nil
}

func checkComparable(a, b *Fingerprint) error {
	if a == nil || b == nil {
		return errors.New(errors.ErrCodeSimilarityFailed, "nil fingerprint")
	}
	if a.Length != b.Length || len(a.Bits) != len(b.Bits) {
		return errors.Newf(errors.ErrCodeFingerprintDimMismatch,
			"fingerprints have %d and %d bits", a.Length, b.Length)
	}
	return nil
}

// SMILESTanimoto is a convenience for one-shot comparisons: it fingerprints
// both structures with the defaults and returns their Tanimoto similarity.
func SMILESTanimoto(a, b string) (float64, error) {
	fpA, err := CircularFingerprint(a, DefaultFingerprintRadius, DefaultFingerprintBits)
	if err != nil {
		return 0, err
	}
	fpB, err := CircularFingerprint(b, DefaultFingerprintRadius, DefaultFingerprintBits)
	if err != nil {
		return 0, err
	}
	return Tanimoto(fpA, fpB)
}

package molecule

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/bits"
	"strings"

	"github.com/molprop/platform/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fingerprint Structure
// ─────────────────────────────────────────────────────────────────────────────

// DefaultFingerprintBits is the default bit-vector length; it matches the
// dimension the Milvus collection is created with.
const DefaultFingerprintBits = 2048

// DefaultFingerprintRadius is the default neighborhood radius.
const DefaultFingerprintRadius = 2

// Fingerprint is a packed bit vector over atom-environment hashes.  Bit i is
// stored in byte i/8 at position i%8.
type Fingerprint struct {
	Bits      []byte `json:"bits"`
	Length    int    `json:"length"`
	NumOnBits int    `json:"num_on_bits"`
}

// NewFingerprint wraps raw packed bits, computing the popcount.
func NewFingerprint(data []byte, length int) *Fingerprint {
	on := 0
	for _, b := range data {
		on += bits.OnesCount8(b)
	}
	return &Fingerprint{Bits: data, Length: length, NumOnBits: on}
}

// GetBit reports whether bit index is set.
func (fp *Fingerprint) GetBit(index int) bool {
	if index < 0 || index >= fp.Length {
		return false
	}
	return fp.Bits[index/8]&(1<<uint(index%8)) != 0
}

// ToBytes returns the packed bit vector for storage in the vector index.
func (fp *Fingerprint) ToBytes() []byte { return fp.Bits }

// FingerprintFromBytes rebuilds a fingerprint retrieved from storage.
func FingerprintFromBytes(data []byte, length int) *Fingerprint {
	return NewFingerprint(data, length)
}

// ─────────────────────────────────────────────────────────────────────────────
// Circular (Morgan-style) Fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// CircularFingerprint computes a hashed circular fingerprint from a SMILES
// string.  For every atom and every radius r in [0, radius] it hashes the
// window of atoms within r positions in the scanned atom sequence and sets
// the corresponding bit.  The sequence window is an approximation of the
// bond-graph neighborhood; it is stable, cheap, and good enough for the
// similarity ranking the platform does.
func CircularFingerprint(smiles string, radius, nBits int) (*Fingerprint, error) {
	if radius < 0 {
		radius = DefaultFingerprintRadius
	}
	if nBits <= 0 {
		nBits = DefaultFingerprintBits
	}

	atoms, err := AtomsOf(smiles)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFingerprintFailed, "cannot scan SMILES")
	}

	data := make([]byte, (nBits+7)/8)
	for i := range atoms {
		for r := 0; r <= radius; r++ {
			env := environment(atoms, i, r)
			h := hashEnvironment(env, r)
			setBit(data, int(h%uint64(nBits)))
		}
	}
	return NewFingerprint(data, nBits), nil
}

// environment renders the atom window [i-r, i+r] as a descriptor string.
// Aromatic atoms keep a lowercase marker so aliphatic and aromatic carbons
// hash apart.
func environment(atoms []Atom, i, r int) string {
	lo := i - r
	if lo < 0 {
		lo = 0
	}
	hi := i + r
	if hi >= len(atoms) {
		hi = len(atoms) - 1
	}
	var sb strings.Builder
	for j := lo; j <= hi; j++ {
		a := atoms[j]
		if a.Aromatic {
			sb.WriteString(strings.ToLower(a.Symbol))
		} else {
			sb.WriteString(a.Symbol)
		}
		sb.WriteByte('.')
	}
	return sb.String()
}

func hashEnvironment(env string, radius int) uint64 {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", env, radius)))
	return binary.BigEndian.Uint64(sum[:8])
}

func setBit(data []byte, index int) {
	data[index/8] |= 1 << uint(index%8)
}

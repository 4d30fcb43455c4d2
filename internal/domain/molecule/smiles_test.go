package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molprop/platform/pkg/errors"
)

func TestScanSMILES(t *testing.T) {
	tokens, err := ScanSMILES("CC(=O)Oc1ccccc1C(=O)O")
	require.NoError(t, err)

	atoms := 0
	rings := 0
	for _, tok := range tokens {
		switch tok.Kind {
		case TokenAtom:
			atoms++
		case TokenRing:
			rings++
		}
	}
	assert.Equal(t, 13, atoms)
	assert.Equal(t, 2, rings)
}

func TestScanSMILESTwoLetterAtoms(t *testing.T) {
	tokens, err := ScanSMILES("ClCCBr")
	require.NoError(t, err)
	require.Len(t, tokens, 4)
	assert.Equal(t, "Cl", tokens[0].Text)
	assert.Equal(t, "Br", tokens[3].Text)
}

func TestScanSMILESBracketAtom(t *testing.T) {
	tokens, err := ScanSMILES("C[N+](C)(C)C")
	require.NoError(t, err)
	assert.Equal(t, "[N+]", tokens[1].Text)
	assert.Equal(t, TokenAtom, tokens[1].Kind)
}

func TestScanSMILESErrors(t *testing.T) {
	cases := map[string]string{
		"empty":             "",
		"whitespace":        "   ",
		"unclosed bracket":  "C[NH2",
		"bad character":     "CC&O",
		"bad ring closure":  "C%1C",
		"no atoms":          "123",
		"unclosed branch":   "C(C",
		"stray close paren": "CC)C",
		"unclosed ring":     "c1ccccc",
		"half percent ring": "C%12CCC",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ScanSMILES(in)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidSMILES))
		})
	}
}

func TestScanSMILESReusedRingLabel(t *testing.T) {
	// label 1 closes on the first ring and reopens on the second
	_, err := ScanSMILES("C1CC1C1CC1")
	require.NoError(t, err)
}

func TestAtomsOf(t *testing.T) {
	atoms, err := AtomsOf("c1ccccc1[N+]([O-])=O")
	require.NoError(t, err)
	require.Len(t, atoms, 9)
	assert.True(t, atoms[0].Aromatic)
	assert.Equal(t, "C", atoms[0].Symbol)
	assert.Equal(t, "N", atoms[6].Symbol)
	assert.False(t, atoms[6].Aromatic)
	assert.Equal(t, "O", atoms[7].Symbol)
}

func TestHeavyAtomCount(t *testing.T) {
	n, err := HeavyAtomCount("CC(=O)O")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = HeavyAtomCount("[H]OC")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

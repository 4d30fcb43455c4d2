package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleCutsLinearChain(t *testing.T) {
	cuts, err := SingleCuts("CCO")
	require.NoError(t, err)
	require.Len(t, cuts, 2)

	assert.Equal(t, Cut{Core: "[*]CO", Fragment: "C[*]"}, cuts[0])
	assert.Equal(t, Cut{Core: "CC[*]", Fragment: "[*]O"}, cuts[1])
}

func TestSingleCutsSkipsRingBonds(t *testing.T) {
	cuts, err := SingleCuts("c1ccccc1")
	require.NoError(t, err)
	assert.Empty(t, cuts)
}

func TestSingleCutsSubstitutedRing(t *testing.T) {
	// Toluene has exactly one acyclic bond.
	cuts, err := SingleCuts("Cc1ccccc1")
	require.NoError(t, err)
	require.Len(t, cuts, 1)
	assert.Equal(t, "[*]c1ccccc1", cuts[0].Core)
	assert.Equal(t, "C[*]", cuts[0].Fragment)
}

func TestSingleCutsSkipsMultipleBonds(t *testing.T) {
	cuts, err := SingleCuts("C=C")
	require.NoError(t, err)
	assert.Empty(t, cuts)
}

func TestSingleCutsExplicitSingleBond(t *testing.T) {
	cuts, err := SingleCuts("C-C")
	require.NoError(t, err)
	require.Len(t, cuts, 1)
	assert.Equal(t, Cut{Core: "C[*]", Fragment: "[*]C"}, cuts[0])
}

func TestSingleCutsSharedCore(t *testing.T) {
	// Ethyl- and propylbenzene share the [*]c1ccccc1 core, which is what
	// pairs them up in MMP analysis.
	ethyl, err := SingleCuts("CCc1ccccc1")
	require.NoError(t, err)
	propyl, err := SingleCuts("CCCc1ccccc1")
	require.NoError(t, err)

	cores := func(cuts []Cut) map[string]bool {
		out := map[string]bool{}
		for _, c := range cuts {
			out[c.Core] = true
		}
		return out
	}
	shared := false
	for core := range cores(ethyl) {
		if cores(propyl)[core] {
			shared = true
		}
	}
	assert.True(t, shared)
}

func TestSingleCutsInvalidSMILES(t *testing.T) {
	_, err := SingleCuts("")
	require.Error(t, err)
}

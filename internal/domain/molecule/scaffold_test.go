package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaffoldOf(t *testing.T) {
	cases := []struct {
		name   string
		smiles string
		want   string
	}{
		{name: "benzene is its own scaffold", smiles: "c1ccccc1", want: "c1ccccc1"},
		{name: "alkyl chain trimmed", smiles: "CCCc1ccccc1", want: "c1ccccc1"},
		{name: "trailing substituent trimmed", smiles: "c1ccccc1CC(=O)O", want: "c1ccccc1"},
		{name: "ringless branch removed", smiles: "Cc1ccc(O)cc1", want: "c1ccccc1"},
		{name: "biphenyl linker kept", smiles: "c1ccccc1Cc1ccccc1", want: "c1ccccc1Cc1ccccc1"},
		{name: "acyclic molecule", smiles: "CC(=O)NCCO", want: AcyclicScaffold},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ScaffoldOf(tc.smiles)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestScaffoldGroupsAnalogsTogether(t *testing.T) {
	a, err := ScaffoldOf("CCc1ccc(F)cc1")
	require.NoError(t, err)
	b, err := ScaffoldOf("CCCCc1ccc(Cl)cc1")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestScaffoldOfInvalid(t *testing.T) {
	_, err := ScaffoldOf("not a molecule!")
	require.Error(t, err)
}

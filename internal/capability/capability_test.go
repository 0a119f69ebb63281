package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupRoundTrip(t *testing.T) {
	for c, name := range capNames {
		got, ok := Lookup(name)
		require.True(t, ok, "name %q should resolve", name)
		assert.Equal(t, c, got)
	}
}

func TestResolveNamesDefaultSet(t *testing.T) {
	names := make([]string, len(DefaultSet))
	for i, c := range DefaultSet {
		names[i] = c.Name()
	}

	resolved, err := ResolveNames(names)
	require.NoError(t, err)
	assert.ElementsMatch(t, DefaultSet, resolved)
}

func TestResolveNamesUnknown(t *testing.T) {
	_, err := ResolveNames([]string{"chown", "not_a_real_cap"})
	require.Error(t, err)
}

func TestBitsForPacksCorrectWords(t *testing.T) {
	data := bitsFor([]Cap{CAP_CHOWN, CAP_SETFCAP})
	assert.NotZero(t, data[0].effective&(1<<uint(CAP_CHOWN)))
	assert.NotZero(t, data[1].effective&(1<<(uint(CAP_SETFCAP)%32)))
}

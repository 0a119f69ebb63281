package store

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mini-docker/mini-docker/internal/types"
)

func TestNewContainerIDShape(t *testing.T) {
	idRe := regexp.MustCompile(`^[0-9a-f]{12}$`)
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewContainerID()
		assert.Regexp(t, idRe, id)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestGenerateNameShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		name := GenerateName(func(string) bool { return false })
		assert.Regexp(t, types.NameRegex, name)
	}
}

func TestGenerateNameDrawsFromWordLists(t *testing.T) {
	adjectives := make(map[string]bool)
	for _, a := range types.Adjectives {
		adjectives[a] = true
	}
	animals := make(map[string]bool)
	for _, a := range types.Animals {
		animals[a] = true
	}

	name := GenerateName(func(string) bool { return false })
	parts := regexp.MustCompile(`^([a-z]+)-([a-z]+)$`).FindStringSubmatch(name)
	require.Len(t, parts, 3)
	assert.True(t, adjectives[parts[1]], "adjective %q not in list", parts[1])
	assert.True(t, animals[parts[2]], "animal %q not in list", parts[2])
}

func TestGenerateNameSuffixFallback(t *testing.T) {
	// everything unsuffixed is taken: the generator must retry, then
	// fall back to a numeric suffix
	name := GenerateName(func(candidate string) bool {
		return types.NameRegex.MatchString(candidate)
	})
	assert.Regexp(t, `^[a-z]+-[a-z]+-\d+$`, name)
}

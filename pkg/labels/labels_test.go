package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelectorAndMatches(t *testing.T) {
	sel, err := ParseSelector("app=web,tier=frontend")
	require.NoError(t, err)

	assert.True(t, sel.Matches(map[string]string{"app": "web", "tier": "frontend", "extra": "x"}))
	assert.False(t, sel.Matches(map[string]string{"app": "web"}))
}

func TestParseSelectorEmptyMatchesEverything(t *testing.T) {
	sel, err := ParseSelector("")
	require.NoError(t, err)
	assert.True(t, sel.Matches(nil))
	assert.True(t, sel.Matches(map[string]string{"a": "b"}))
}

func TestParseSelectorRejectsMalformedTerm(t *testing.T) {
	_, err := ParseSelector("app")
	assert.Error(t, err)
}

func TestSetStringIsSortedAndRoundTrips(t *testing.T) {
	s := Set{"tier": "frontend", "app": "web"}
	assert.Equal(t, "app=web,tier=frontend", s.String())

	parsed, err := ParseSelector(s.String())
	require.NoError(t, err)
	assert.Equal(t, s, parsed)
}

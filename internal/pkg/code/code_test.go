package code

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LengthAndAlphabet(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	assert.Len(t, c, Length)
	for _, r := range c {
		assert.True(t, strings.ContainsRune(alphabet, r), "unexpected rune %q", r)
	}
}

func TestNew_NotConstant(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		c, err := New()
		require.NoError(t, err)
		seen[c] = true
	}
	// 50 draws from a 36^5 space colliding down to one value would mean a
	// broken random source.
	assert.Greater(t, len(seen), 1)
}

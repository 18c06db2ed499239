package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	pw, err := Generate(20)
	require.NoError(t, err)
	assert.Len(t, pw, 20)

	assert.True(t, strings.ContainsAny(pw, lower), "has a lowercase letter")
	assert.True(t, strings.ContainsAny(pw, upper), "has an uppercase letter")
	assert.True(t, strings.ContainsAny(pw, digits), "has a digit")
	assert.True(t, strings.ContainsAny(pw, symbols), "has a symbol")
}

func TestGenerate_MinLength(t *testing.T) {
	t.Parallel()

	pw, err := Generate(4)
	require.NoError(t, err)
	assert.Len(t, pw, MinLength)
}

func TestGenerate_Distinct(t *testing.T) {
	t.Parallel()

	a, err := Generate(16)
	require.NoError(t, err)
	b, err := Generate(16)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

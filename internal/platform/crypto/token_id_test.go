package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenID(t *testing.T) {
	a, err := NewTokenID()
	require.NoError(t, err)
	b, err := NewTokenID()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, TokenIDBytes)
}

func TestRandomString_RejectsNonPositiveSize(t *testing.T) {
	_, err := randomString(0)
	assert.Error(t, err)
}

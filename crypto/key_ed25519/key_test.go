package key_ed25519

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPair(t *testing.T) {
	a, err := NewPair()
	require.NoError(t, err)
	b, err := NewPair()
	require.NoError(t, err)

	pub, err := a.Priv.Public()
	require.NoError(t, err)
	assert.True(t, pub.Equals(a.Pub))
	assert.False(t, a.Pub.Equals(b.Pub))
	assert.Len(t, a.Pub.String(), 64)

	_, err = PublicKey([]byte("short")).ToPoint()
	assert.Error(t, err)
}

package hkdf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive(t *testing.T) {
	ikm := bytes.Repeat([]byte{0x0b}, 32)

	tests := []struct {
		name   string
		length int
		label  string
	}{
		{"Message key", 32, "RATCHET-MESSAGE-KEY"},
		{"Chain key", 32, "RATCHET-CHAIN-KEY"},
		{"Beacon", 16, "MESSAGE-LOOKUP-ID"},
		{"Long output", 100, "LONG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Derive(ikm, tt.length, tt.label)
			require.NoError(t, err)
			assert.Len(t, a, tt.length)

			b, err := Derive(ikm, tt.length, tt.label)
			require.NoError(t, err)
			assert.Equal(t, a, b, "derivation must be deterministic")
		})
	}
}

func TestDeriveDomainSeparation(t *testing.T) {
	ikm := make([]byte, 32)

	mk, err := Derive(ikm, 32, "RATCHET-MESSAGE-KEY")
	require.NoError(t, err)
	ck, err := Derive(ikm, 32, "RATCHET-CHAIN-KEY")
	require.NoError(t, err)
	assert.NotEqual(t, mk, ck)

	short, err := Derive(ikm, 16, "RATCHET-MESSAGE-KEY")
	require.NoError(t, err)
	assert.Equal(t, mk[:16], short, "HKDF output is a prefix-stable stream")

	other, err := Derive(bytes.Repeat([]byte{1}, 32), 32, "RATCHET-MESSAGE-KEY")
	require.NoError(t, err)
	assert.NotEqual(t, mk, other)
}

func TestDeriveInvalidLength(t *testing.T) {
	_, err := Derive([]byte("ikm"), 0, "x")
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = Derive([]byte("ikm"), 255*32+1, "x")
	assert.ErrorIs(t, err, ErrInvalidLength)
}

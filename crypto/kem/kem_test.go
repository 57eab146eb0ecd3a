package kem

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"quantum-ratchet/crypto/key_ed25519"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncapsulateDecapsulate(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)

	ct, ssAlice, err := Encapsulate(pub)
	require.NoError(t, err)
	assert.Len(t, ssAlice, Scheme.SharedKeySize())

	ssBob, err := Decapsulate(priv, ct)
	require.NoError(t, err)
	assert.Equal(t, ssAlice, ssBob)

	_, err = Decapsulate(priv, ct[:10])
	assert.Error(t, err)

	_, _, err = Encapsulate([]byte("not a key"))
	assert.Error(t, err)
}

func TestLoadSecret(t *testing.T) {
	secret := bytes.Repeat([]byte{0xab}, 32)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"Hex", hex.EncodeToString(secret), false},
		{"Base64", base64.StdEncoding.EncodeToString(secret), false},
		{"Base64 with whitespace", " " + EncodeSecret(secret) + "\n", false},
		{"Empty", "", true},
		{"Wrong length", base64.StdEncoding.EncodeToString(secret[:16]), true},
		{"Garbage", "%%%not-base64%%%", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadSecret(tt.input, 32)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSecret)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, secret, got)
		})
	}
}

func TestSignedPublicKey(t *testing.T) {
	identity, err := key_ed25519.NewPair()
	require.NoError(t, err)
	pub, _, err := GenerateKeyPair()
	require.NoError(t, err)

	spk, err := SignPublicKey("Bob", pub, identity)
	require.NoError(t, err)
	assert.Equal(t, "bob", spk.Username)
	assert.NoError(t, spk.Verify())

	forged := *spk
	forged.Username = "mallory"
	assert.Error(t, forged.Verify())

	forged = *spk
	forged.Signature = nil
	assert.ErrorIs(t, forged.Verify(), ErrUnsignedKey)
}

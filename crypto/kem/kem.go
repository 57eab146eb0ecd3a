package kem

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/kyber/kyber768"
)

var (
	ErrInvalidSecret = errors.New("invalid shared secret encoding")
)

// Scheme is the post-quantum KEM producing the conversation shared secret.
var Scheme kem.Scheme = kyber768.Scheme()

// GenerateKeyPair returns a marshalled Kyber768 key pair.
func GenerateKeyPair() (pub []byte, priv []byte, err error) {
	pk, sk, err := Scheme.GenerateKeyPair()
	if err != nil {
		return nil, nil, err
	}
	if pub, err = pk.MarshalBinary(); err != nil {
		return nil, nil, err
	}
	if priv, err = sk.MarshalBinary(); err != nil {
		return nil, nil, err
	}
	return pub, priv, nil
}

// Encapsulate creates a fresh shared secret for the holder of pub. The
// ciphertext must be delivered to that holder.
func Encapsulate(pub []byte) (ciphertext []byte, secret []byte, err error) {
	pk, err := Scheme.UnmarshalBinaryPublicKey(pub)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse KEM public key: %w", err)
	}
	return Scheme.Encapsulate(pk)
}

// Decapsulate recovers the shared secret from ciphertext.
func Decapsulate(priv []byte, ciphertext []byte) ([]byte, error) {
	sk, err := Scheme.UnmarshalBinaryPrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("failed to parse KEM private key: %w", err)
	}
	if len(ciphertext) != Scheme.CiphertextSize() {
		return nil, fmt.Errorf("KEM ciphertext is %d bytes, want %d", len(ciphertext), Scheme.CiphertextSize())
	}
	return Scheme.Decapsulate(sk, ciphertext)
}

// EncodeSecret renders a shared secret the way collaborators exchange it.
func EncodeSecret(secret []byte) string {
	return base64.StdEncoding.EncodeToString(secret)
}

// LoadSecret accepts a shared secret as hex or standard base64 and checks
// that it decodes to exactly size bytes.
func LoadSecret(s string, size int) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidSecret
	}
	if len(s) == 2*size {
		if b, err := hex.DecodeString(s); err == nil {
			return b, nil
		}
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	if len(b) != size {
		return nil, fmt.Errorf("%w: decoded %d bytes, want %d", ErrInvalidSecret, len(b), size)
	}
	return b, nil
}

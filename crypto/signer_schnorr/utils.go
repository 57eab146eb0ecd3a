package signer_schnorr

import (
	"errors"
	"fmt"

	"quantum-ratchet/crypto/key_ed25519"

	"go.dedis.ch/kyber/v4/sign/schnorr"
)

var (
	ErrInvalidSignature = errors.New("invalid schnorr signature")
)

// Sign signs a KEM key binding (or any message) with an Ed25519 identity
// key, so the peer can check whom a Kyber768 public key belongs to.
func Sign(privKey key_ed25519.PrivateKey, msg []byte) ([]byte, error) {
	privScalar, err := privKey.ToScalar()
	if err != nil {
		return nil, fmt.Errorf("failed to parse identity key: %w", err)
	}
	return schnorr.Sign(key_ed25519.Suite, privScalar, msg)
}

// Verify checks a signature made by Sign. Any mismatch, including a
// malformed public key, is reported as ErrInvalidSignature.
func Verify(pubKey key_ed25519.PublicKey, msg, sig []byte) error {
	pubPoint, err := pubKey.ToPoint()
	if err != nil {
		return fmt.Errorf("%w: identity key: %v", ErrInvalidSignature, err)
	}
	if err := schnorr.Verify(key_ed25519.Suite, pubPoint, msg, sig); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

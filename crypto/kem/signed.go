package kem

import (
	"errors"
	"fmt"
	"strings"

	"quantum-ratchet/crypto/key_ed25519"
	"quantum-ratchet/crypto/signer_schnorr"
)

const signedKeyContext = "QRX-KEM-KEY|"

var (
	ErrUnsignedKey = errors.New("KEM public key carries no signature")
)

// SignedPublicKey binds a KEM public key to a username and an Ed25519
// identity key, so the encapsulating party can check whom it encapsulates to.
type SignedPublicKey struct {
	Username     string                `json:"username"`
	KEMPublicKey []byte                `json:"kem_public_key"`
	IdentityKey  key_ed25519.PublicKey `json:"identity_key"`
	Signature    []byte                `json:"signature"`
}

// SignPublicKey signs kemPub for username with the identity key pair.
func SignPublicKey(username string, kemPub []byte, identity *key_ed25519.Pair) (*SignedPublicKey, error) {
	spk := &SignedPublicKey{
		Username:     strings.ToLower(username),
		KEMPublicKey: kemPub,
		IdentityKey:  identity.Pub,
	}
	sig, err := signer_schnorr.Sign(identity.Priv, spk.signedBytes())
	if err != nil {
		return nil, fmt.Errorf("failed to sign KEM public key: %w", err)
	}
	spk.Signature = sig
	return spk, nil
}

// Verify checks the signature over the username and KEM public key.
func (spk *SignedPublicKey) Verify() error {
	if len(spk.Signature) == 0 {
		return ErrUnsignedKey
	}
	return signer_schnorr.Verify(spk.IdentityKey, spk.signedBytes(), spk.Signature)
}

func (spk *SignedPublicKey) signedBytes() []byte {
	msg := make([]byte, 0, len(signedKeyContext)+len(spk.Username)+1+len(spk.KEMPublicKey))
	msg = append(msg, signedKeyContext...)
	msg = append(msg, strings.ToLower(spk.Username)...)
	msg = append(msg, '|')
	return append(msg, spk.KEMPublicKey...)
}

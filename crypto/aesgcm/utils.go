package aesgcm

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"

	"quantum-ratchet/crypto"
)

var (
	ErrKeyLengthInvalid   = errors.New("aes-gcm key must be 32 bytes")
	ErrNonceLengthInvalid = errors.New("aes-gcm nonce must be 12 bytes")
)

// NewNonce returns a fresh random 96-bit nonce.
func NewNonce() ([]byte, error) {
	nonce := make([]byte, crypto.NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return nonce, nil
}

// Seal encrypts plaintext with AES-256-GCM and returns ciphertext||tag.
func Seal(key, nonce, plaintext []byte) ([]byte, error) {
	aead, err := newAEAD(key, nonce)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

// Open verifies the tag and decrypts ciphertext||tag.
func Open(key, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := newAEAD(key, nonce)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, ciphertext, nil)
}

func newAEAD(key, nonce []byte) (cipher.AEAD, error) {
	if len(key) != crypto.KeySize {
		return nil, ErrKeyLengthInvalid
	}
	if len(nonce) != crypto.NonceSize {
		return nil, ErrNonceLengthInvalid
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

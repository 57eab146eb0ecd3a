package hkdf

import (
	"errors"
	"hash"
	"io"

	"quantum-ratchet/crypto"

	"golang.org/x/crypto/hkdf"
)

var (
	ErrInvalidLength = errors.New("hkdf: invalid output length")
)

// Derive expands ikm into length pseudorandom bytes bound to label.
// The salt is always empty, so the output depends only on ikm and label.
func Derive(ikm []byte, length int, label string) ([]byte, error) {
	if length <= 0 || length > 255*crypto.KeySize {
		return nil, ErrInvalidLength
	}
	out := make([]byte, length)
	if _, err := KDF(crypto.DefaultHashFunc, ikm, nil, []byte(label), out); err != nil {
		return nil, err
	}
	return out, nil
}

// KDF fills buffer from an HKDF reader over keyMaterial, salt and info.
func KDF(hash func() hash.Hash, keyMaterial []byte, salt []byte, info []byte, buffer []byte) (int, error) {
	hkdfReader := hkdf.New(hash, keyMaterial, salt, info)
	return io.ReadFull(hkdfReader, buffer)
}

package crypto

import "crypto/sha256"

var (
	DefaultHashFunc = sha256.New
)

const (
	// KeySize is the size of chain keys, message keys and AEAD keys.
	KeySize = 32
	// BeaconSize is the size of the per-message lookup token.
	BeaconSize = 16
	// NonceSize is the AES-GCM nonce size.
	NonceSize = 12
	// TagSize is the AES-GCM authentication tag size.
	TagSize = 16
)

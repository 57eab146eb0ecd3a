package ratchet

import (
	"crypto/subtle"
	"errors"

	"quantum-ratchet/configs"
	"quantum-ratchet/crypto"
	"quantum-ratchet/crypto/hkdf"
	"quantum-ratchet/crypto/memzero"
)

var (
	ErrInvalidChainKey = errors.New("chain key must be 32 bytes")
	ErrChainWiped      = errors.New("chain has been wiped")
)

// Chain is one direction of a conversation: a chain key that only moves
// forward and the number of message keys drawn from it so far.
//
// Chain is not safe for concurrent use; the session serialises access.
type Chain struct {
	messageLabel string
	chainLabel   string

	key  []byte
	step uint64
}

// New starts a chain at step 0 from a copy of key.
func New(cfg configs.Protocol, key []byte) (*Chain, error) {
	if len(key) != crypto.KeySize {
		return nil, ErrInvalidChainKey
	}
	ck := make([]byte, crypto.KeySize)
	copy(ck, key)
	return &Chain{
		messageLabel: cfg.MessageKeyLabel,
		chainLabel:   cfg.ChainKeyLabel,
		key:          ck,
	}, nil
}

// Advance derives the next single-use message key, rotates the chain key and
// returns the message key together with its step (1 for the first call).
// The previous chain key is wiped and cannot be recovered.
func (c *Chain) Advance() (messageKey []byte, step uint64, err error) {
	if c.key == nil {
		return nil, c.step, ErrChainWiped
	}
	mk, err := hkdf.Derive(c.key, crypto.KeySize, c.messageLabel)
	if err != nil {
		return nil, c.step, err
	}
	next, err := hkdf.Derive(c.key, crypto.KeySize, c.chainLabel)
	if err != nil {
		memzero.Zero(mk)
		return nil, c.step, err
	}
	memzero.Zero(c.key)
	c.key = next
	c.step++
	return mk, c.step, nil
}

// Step is the number of message keys drawn so far.
func (c *Chain) Step() uint64 {
	return c.step
}

// Equal reports whether both chains hold the same key at the same step.
func (c *Chain) Equal(other *Chain) bool {
	if c == nil || other == nil || c.key == nil || other.key == nil {
		return false
	}
	return c.step == other.step && subtle.ConstantTimeCompare(c.key, other.key) == 1
}

// Wipe zeroes the chain key; every later Advance fails.
func (c *Chain) Wipe() {
	memzero.Zero(c.key)
	c.key = nil
}

package session

import (
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"strings"

	"quantum-ratchet/configs"
	"quantum-ratchet/crypto"
	"quantum-ratchet/crypto/hkdf"
	"quantum-ratchet/crypto/kem"
	"quantum-ratchet/crypto/memzero"
	"quantum-ratchet/protocol/codec"
	"quantum-ratchet/protocol/ratchet"

	"github.com/sirupsen/logrus"
)

// Session encrypts one conversation between two identities. Both parties
// build it from the same shared secret; which chain sends and which
// receives is decided by the identities alone.
//
// Encrypt and Decrypt may be called concurrently. Calls of the same kind
// are served strictly in arrival order.
type Session struct {
	cfg   configs.Protocol
	codec *codec.Codec
	log   logrus.FieldLogger

	self string
	peer string

	sendMu fifoMutex
	send   *ratchet.Chain
	recvMu fifoMutex
	recv   *ratchet.Chain
}

type Option func(*Session)

// WithLogger sets the logger used for replay failures and diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// New derives the two chains of the conversation between self and peer from
// secret. Identities are compared case-insensitively.
func New(cfg configs.Protocol, secret []byte, self, peer string, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(secret) == 0 {
		return nil, ErrSessionUnavailable
	}
	if len(secret) != cfg.SharedSecretSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSecretLength, len(secret), cfg.SharedSecretSize)
	}
	self, peer = strings.ToLower(self), strings.ToLower(peer)
	if self == "" || peer == "" || self == peer {
		return nil, ErrInvalidIdentity
	}

	ids := []string{self, peer}
	sort.Strings(ids)
	first, second := ids[0], ids[1]

	forward, err := hkdf.Derive(secret, crypto.KeySize, cfg.ChainLabel(first, second))
	if err != nil {
		return nil, fmt.Errorf("failed to derive chain key: %w", err)
	}
	defer memzero.Zero(forward)
	backward, err := hkdf.Derive(secret, crypto.KeySize, cfg.ChainLabel(second, first))
	if err != nil {
		return nil, fmt.Errorf("failed to derive chain key: %w", err)
	}
	defer memzero.Zero(backward)

	sendKey, recvKey := forward, backward
	if self != first {
		sendKey, recvKey = backward, forward
	}
	send, err := ratchet.New(cfg, sendKey)
	if err != nil {
		return nil, err
	}
	recv, err := ratchet.New(cfg, recvKey)
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:   cfg,
		codec: codec.New(cfg),
		log:   discardLogger(),
		self:  self,
		peer:  peer,
		send:  send,
		recv:  recv,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithFields(logrus.Fields{"self": self, "peer": peer})
	return s, nil
}

// NewFromEncoded is New for a secret given as hex or base64 text.
func NewFromEncoded(cfg configs.Protocol, encoded string, self, peer string, opts ...Option) (*Session, error) {
	if strings.TrimSpace(encoded) == "" {
		return nil, ErrSessionUnavailable
	}
	secret, err := kem.LoadSecret(encoded, cfg.SharedSecretSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecretLength, err)
	}
	defer memzero.Zero(secret)
	return New(cfg, secret, self, peer, opts...)
}

// Encrypt seals plaintext under the next send key and returns the prefixed
// base64 envelope.
func (s *Session) Encrypt(plaintext string) (string, error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	mk, step, err := s.send.Advance()
	if err != nil {
		return "", err
	}
	defer memzero.Zero(mk)

	envelope, err := s.codec.Seal(mk, []byte(plaintext), s.self, step)
	if err != nil {
		return "", err
	}
	return s.cfg.Wrap(base64.StdEncoding.EncodeToString(envelope)), nil
}

// Decrypt opens the next message from the peer. The receive chain advances
// even when the message cannot be opened, so a dropped or corrupted message
// costs exactly one key.
func (s *Session) Decrypt(text string) (string, error) {
	s.recvMu.Lock()
	defer s.recvMu.Unlock()
	return s.openNext(s.recv, s.peer, text)
}

// openNext advances c and opens text with the resulting key. from is the
// identity expected to have sealed it. The caller holds the lock guarding c.
func (s *Session) openNext(c *ratchet.Chain, from, text string) (string, error) {
	mk, step, err := c.Advance()
	if err != nil {
		return "", err
	}
	defer memzero.Zero(mk)

	payload, ok := s.cfg.Unwrap(text)
	if !ok {
		return "", fmt.Errorf("%w: missing envelope prefix", ErrAuthenticationFailure)
	}
	envelope, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthenticationFailure, err)
	}
	frame, err := s.codec.Open(mk, envelope)
	if err != nil {
		return "", err
	}
	// Neither mismatch can happen for an honest peer; the message still
	// authenticated under the expected key, so it is delivered.
	if frame.Step != step || !strings.EqualFold(frame.Sender, from) {
		s.log.WithFields(logrus.Fields{
			"step":          step,
			"framed_step":   frame.Step,
			"sender":        from,
			"framed_sender": frame.Sender,
		}).Warn("framed header does not match the receiving chain")
	}
	return string(frame.Body), nil
}

// Steps returns how many keys each chain has produced.
func (s *Session) Steps() (send, recv uint64) {
	s.sendMu.Lock()
	send = s.send.Step()
	s.sendMu.Unlock()
	s.recvMu.Lock()
	recv = s.recv.Step()
	s.recvMu.Unlock()
	return send, recv
}

// Identity is the case-folded local identity.
func (s *Session) Identity() string { return s.self }

// Peer is the case-folded remote identity.
func (s *Session) Peer() string { return s.peer }

// Wipe destroys both chain keys. The session is unusable afterwards.
func (s *Session) Wipe() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	s.recvMu.Lock()
	defer s.recvMu.Unlock()
	s.send.Wipe()
	s.recv.Wipe()
}

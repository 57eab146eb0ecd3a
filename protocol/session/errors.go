package session

import (
	"errors"

	"quantum-ratchet/protocol/codec"
)

var (
	// ErrAuthenticationFailure is returned for every message that fails to
	// open, whatever the cause.
	ErrAuthenticationFailure = codec.ErrAuthenticationFailure
	ErrSessionUnavailable    = errors.New("no shared secret available for session")
	ErrInvalidSecretLength   = errors.New("shared secret has wrong length")
	ErrInvalidIdentity       = errors.New("session identities must be non-empty and distinct")
	ErrReplayStateMismatch   = errors.New("history replay requires a fresh session")
)

package codec

import "errors"

var (
	// ErrAuthenticationFailure covers tag mismatches, wrong keys and
	// malformed or truncated envelopes alike.
	ErrAuthenticationFailure = errors.New("authentication failure")
	ErrMessageTooLarge       = errors.New("message too large")
	ErrSenderTooLong         = errors.New("sender identity too long")
)

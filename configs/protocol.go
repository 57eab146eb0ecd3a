package configs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidProtocol = errors.New("invalid protocol configuration")
)

// Protocol holds every constant the ratchet, codec and session agree on.
// It is passed by value so a session can never observe a change after
// construction.
type Protocol struct {
	// Prefix marks a stored or transported text as a ratchet envelope.
	Prefix string
	// BlockSize is the padding quantum of the framed plaintext.
	BlockSize int
	// SharedSecretSize is the exact length of the KEM shared secret.
	SharedSecretSize int
	// MaxFrameSize bounds the padded frame of a single message.
	MaxFrameSize int
	// FailurePlaceholder replaces history messages that fail to open.
	FailurePlaceholder string

	MessageKeyLabel string
	ChainKeyLabel   string
	AEADKeyLabel    string
	BeaconLabel     string
	// ChainLabelFormat takes the sending identity then the receiving identity.
	ChainLabelFormat string
}

// DefaultProtocol returns the wire-compatible default configuration.
func DefaultProtocol() Protocol {
	return Protocol{
		Prefix:             "QRX1:",
		BlockSize:          256,
		SharedSecretSize:   32,
		MaxFrameSize:       1 << 20,
		FailurePlaceholder: "[Unable to decrypt message]",
		MessageKeyLabel:    "RATCHET-MESSAGE-KEY",
		ChainKeyLabel:      "RATCHET-CHAIN-KEY",
		AEADKeyLabel:       "AES-GCM-256-ZERO-METADATA",
		BeaconLabel:        "MESSAGE-LOOKUP-ID",
		ChainLabelFormat:   "CHAIN-%s-TO-%s",
	}
}

func (p Protocol) Validate() error {
	switch {
	case p.Prefix == "":
		return fmt.Errorf("%w: empty prefix", ErrInvalidProtocol)
	case p.BlockSize <= 0:
		return fmt.Errorf("%w: block size %d", ErrInvalidProtocol, p.BlockSize)
	case p.SharedSecretSize <= 0:
		return fmt.Errorf("%w: shared secret size %d", ErrInvalidProtocol, p.SharedSecretSize)
	case p.MaxFrameSize < p.BlockSize:
		return fmt.Errorf("%w: max frame size %d below block size", ErrInvalidProtocol, p.MaxFrameSize)
	case p.MessageKeyLabel == "" || p.ChainKeyLabel == "" || p.AEADKeyLabel == "" || p.BeaconLabel == "":
		return fmt.Errorf("%w: empty derivation label", ErrInvalidProtocol)
	case strings.Count(p.ChainLabelFormat, "%s") != 2:
		return fmt.Errorf("%w: chain label format %q", ErrInvalidProtocol, p.ChainLabelFormat)
	}
	labels := map[string]struct{}{}
	for _, l := range []string{p.MessageKeyLabel, p.ChainKeyLabel, p.AEADKeyLabel, p.BeaconLabel} {
		if _, dup := labels[l]; dup {
			return fmt.Errorf("%w: label %q used twice", ErrInvalidProtocol, l)
		}
		labels[l] = struct{}{}
	}
	return nil
}

// ChainLabel returns the derivation label of the chain carrying messages
// from one identity to another.
func (p Protocol) ChainLabel(from, to string) string {
	return fmt.Sprintf(p.ChainLabelFormat, from, to)
}

// IsEncrypted reports whether text carries the envelope marker prefix.
func (p Protocol) IsEncrypted(text string) bool {
	return strings.HasPrefix(text, p.Prefix)
}

// Wrap prepends the marker prefix to a base64 envelope.
func (p Protocol) Wrap(payload string) string {
	return p.Prefix + payload
}

// Unwrap strips the marker prefix. ok is false when text is not an envelope.
func (p Protocol) Unwrap(text string) (payload string, ok bool) {
	if !p.IsEncrypted(text) {
		return "", false
	}
	return text[len(p.Prefix):], true
}

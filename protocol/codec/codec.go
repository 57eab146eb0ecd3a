package codec

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"quantum-ratchet/configs"
	"quantum-ratchet/crypto"
	"quantum-ratchet/crypto/aesgcm"
	"quantum-ratchet/crypto/hkdf"
	"quantum-ratchet/crypto/memzero"
)

const lengthFieldSize = 4

// Overhead is the envelope size on top of the padded frame.
const Overhead = crypto.BeaconSize + crypto.NonceSize + crypto.TagSize

// Frame is an opened envelope.
type Frame struct {
	Header
	Body []byte
}

// Codec seals plaintexts into padded, authenticated envelopes and opens
// them again. It holds no key material and is safe for concurrent use.
type Codec struct {
	cfg configs.Protocol
}

func New(cfg configs.Protocol) *Codec {
	return &Codec{cfg: cfg}
}

// Seal frames plaintext with a fresh header, pads it to the block size and
// encrypts it under a key derived from messageKey. The result is
// beacon | nonce | ciphertext | tag.
func (c *Codec) Seal(messageKey, plaintext []byte, sender string, step uint64) ([]byte, error) {
	h, err := newHeader(sender, step)
	if err != nil {
		return nil, err
	}
	frame, err := c.frame(h.Marshal(), plaintext)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(frame)
	return c.sealFrame(messageKey, frame)
}

// Open authenticates and decrypts an envelope and returns its frame.
// Every failure, including inconsistent length fields, is reported as
// ErrAuthenticationFailure.
func (c *Codec) Open(messageKey, envelope []byte) (*Frame, error) {
	if len(envelope) < Overhead {
		return nil, fmt.Errorf("%w: envelope of %d bytes", ErrAuthenticationFailure, len(envelope))
	}
	nonce := envelope[crypto.BeaconSize : crypto.BeaconSize+crypto.NonceSize]
	ciphertext := envelope[crypto.BeaconSize+crypto.NonceSize:]

	aeadKey, err := hkdf.Derive(messageKey, crypto.KeySize, c.cfg.AEADKeyLabel)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(aeadKey)

	padded, err := aesgcm.Open(aeadKey, nonce, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailure, err)
	}
	defer memzero.Zero(padded)

	return parseFrame(padded)
}

// Beacon derives the lookup token an envelope sealed under messageKey carries.
func (c *Codec) Beacon(messageKey []byte) ([]byte, error) {
	return hkdf.Derive(messageKey, crypto.BeaconSize, c.cfg.BeaconLabel)
}

// ExtractBeacon returns the beacon of an envelope without any key.
func ExtractBeacon(envelope []byte) ([]byte, error) {
	if len(envelope) < Overhead {
		return nil, fmt.Errorf("%w: envelope of %d bytes", ErrAuthenticationFailure, len(envelope))
	}
	return append([]byte(nil), envelope[:crypto.BeaconSize]...), nil
}

// PaddedSize is the frame length a framed plaintext of n bytes is padded to.
func (c *Codec) PaddedSize(n int) int {
	b := c.cfg.BlockSize
	if n <= b {
		return b
	}
	return (n + b - 1) / b * b
}

// frame lays out header_len | header | message_len | message | padding.
func (c *Codec) frame(header, plaintext []byte) ([]byte, error) {
	n := 2*lengthFieldSize + len(header) + len(plaintext)
	size := c.PaddedSize(n)
	if size > c.cfg.MaxFrameSize {
		return nil, fmt.Errorf("%w: %d byte frame exceeds %d", ErrMessageTooLarge, size, c.cfg.MaxFrameSize)
	}

	buf := make([]byte, size)
	binary.BigEndian.PutUint32(buf, uint32(len(header)))
	off := lengthFieldSize + copy(buf[lengthFieldSize:], header)
	binary.BigEndian.PutUint32(buf[off:], uint32(len(plaintext)))
	off += lengthFieldSize + copy(buf[off+lengthFieldSize:], plaintext)

	if _, err := io.ReadFull(rand.Reader, buf[off:]); err != nil {
		return nil, err
	}
	return buf, nil
}

func (c *Codec) sealFrame(messageKey, frame []byte) ([]byte, error) {
	aeadKey, err := hkdf.Derive(messageKey, crypto.KeySize, c.cfg.AEADKeyLabel)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(aeadKey)

	beacon, err := c.Beacon(messageKey)
	if err != nil {
		return nil, err
	}
	nonce, err := aesgcm.NewNonce()
	if err != nil {
		return nil, err
	}
	ciphertext, err := aesgcm.Seal(aeadKey, nonce, frame)
	if err != nil {
		return nil, err
	}

	envelope := make([]byte, 0, len(beacon)+len(nonce)+len(ciphertext))
	envelope = append(envelope, beacon...)
	envelope = append(envelope, nonce...)
	return append(envelope, ciphertext...), nil
}

func parseFrame(padded []byte) (*Frame, error) {
	headerLen, rest, ok := readLength(padded)
	if !ok || uint64(headerLen) > uint64(len(rest)) {
		return nil, fmt.Errorf("%w: header length exceeds frame", ErrAuthenticationFailure)
	}
	header, err := UnmarshalHeader(rest[:headerLen])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailure, err)
	}

	bodyLen, rest, ok := readLength(rest[headerLen:])
	if !ok || uint64(bodyLen) > uint64(len(rest)) {
		return nil, fmt.Errorf("%w: message length exceeds frame", ErrAuthenticationFailure)
	}
	return &Frame{
		Header: *header,
		Body:   append([]byte{}, rest[:bodyLen]...),
	}, nil
}

func readLength(b []byte) (uint32, []byte, bool) {
	if len(b) < lengthFieldSize {
		return 0, nil, false
	}
	return binary.BigEndian.Uint32(b), b[lengthFieldSize:], true
}

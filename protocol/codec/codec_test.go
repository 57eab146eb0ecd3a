package codec

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"quantum-ratchet/configs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(seed byte) []byte {
	return bytes.Repeat([]byte{seed}, 32)
}

func TestSealOpenRoundTrip(t *testing.T) {
	c := New(configs.DefaultProtocol())

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"Empty", []byte{}},
		{"Short", []byte("hi")},
		{"Exactly one block of body", bytes.Repeat([]byte{'a'}, 256)},
		{"Several blocks", bytes.Repeat([]byte{'z'}, 1000)},
		{"Binary", []byte{0, 1, 2, 0xff, 0xfe}},
		{"Unicode", []byte("xin chào 👋")},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step := uint64(i + 1)
			env, err := c.Seal(testKey(1), tt.plaintext, "alice", step)
			require.NoError(t, err)
			assert.Zero(t, (len(env)-Overhead)%256, "padded frame must be block aligned")

			frame, err := c.Open(testKey(1), env)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, frame.Body)
			assert.Equal(t, "alice", frame.Sender)
			assert.Equal(t, step, frame.Step)
			assert.GreaterOrEqual(t, len(frame.Tag), minTagSize)
			assert.LessOrEqual(t, len(frame.Tag), maxTagSize)
			assert.WithinDuration(t, time.Now(), frame.Timestamp, time.Minute)
		})
	}
}

func TestLengthHiding(t *testing.T) {
	c := New(configs.DefaultProtocol())

	short, err := c.Seal(testKey(2), []byte("hi"), "alice", 1)
	require.NoError(t, err)
	assert.Len(t, short, 16+12+(256+16))

	hundred, err := c.Seal(testKey(2), bytes.Repeat([]byte{'x'}, 100), "alice", 2)
	require.NoError(t, err)
	assert.Len(t, hundred, len(short), "sub-block messages must have identical envelope length")

	long, err := c.Seal(testKey(2), bytes.Repeat([]byte{'x'}, 300), "alice", 3)
	require.NoError(t, err)
	assert.Len(t, long, Overhead+512)
}

func TestBeacon(t *testing.T) {
	c := New(configs.DefaultProtocol())

	env, err := c.Seal(testKey(3), []byte("hello"), "bob", 1)
	require.NoError(t, err)

	want, err := c.Beacon(testKey(3))
	require.NoError(t, err)
	got, err := ExtractBeacon(env)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Len(t, got, 16)

	other, err := c.Beacon(testKey(4))
	require.NoError(t, err)
	assert.NotEqual(t, want, other)

	_, err = ExtractBeacon(env[:10])
	assert.ErrorIs(t, err, ErrAuthenticationFailure)
}

func TestOpenRejectsEveryBitFlip(t *testing.T) {
	c := New(configs.DefaultProtocol())
	env, err := c.Seal(testKey(5), []byte("hi"), "alice", 1)
	require.NoError(t, err)

	for i := range env {
		for bit := 0; bit < 8; bit++ {
			tampered := append([]byte(nil), env...)
			tampered[i] ^= 1 << bit

			frame, err := c.Open(testKey(5), tampered)
			if i < 16 {
				// The beacon is a lookup token outside the AEAD; flipping it
				// must never yield a different plaintext.
				if err == nil {
					assert.Equal(t, []byte("hi"), frame.Body)
					continue
				}
			}
			require.ErrorIs(t, err, ErrAuthenticationFailure, "byte %d bit %d", i, bit)
		}
	}
}

func TestOpenFailures(t *testing.T) {
	c := New(configs.DefaultProtocol())
	env, err := c.Seal(testKey(6), []byte("secret"), "alice", 1)
	require.NoError(t, err)

	_, err = c.Open(testKey(7), env)
	assert.ErrorIs(t, err, ErrAuthenticationFailure, "wrong key")

	_, err = c.Open(testKey(6), env[:Overhead-1])
	assert.ErrorIs(t, err, ErrAuthenticationFailure, "truncated")

	_, err = c.Open(testKey(6), env[:len(env)-1])
	assert.ErrorIs(t, err, ErrAuthenticationFailure, "truncated tag")
}

func TestOpenRejectsInconsistentFraming(t *testing.T) {
	c := New(configs.DefaultProtocol())
	h := (&Header{Sender: "alice", Step: 1, Timestamp: time.Unix(0, 0), Tag: []byte{1, 2, 3, 4}}).Marshal()

	lengthPrefixed := func(parts ...[]byte) []byte {
		frame := make([]byte, 256)
		off := 0
		for _, p := range parts {
			off += copy(frame[off:], p)
		}
		return frame
	}
	u32 := func(v uint32) []byte { return binary.BigEndian.AppendUint32(nil, v) }

	tests := []struct {
		name  string
		frame []byte
	}{
		{"Header length beyond frame", lengthPrefixed(u32(1000), h)},
		{"Message length beyond frame", lengthPrefixed(u32(uint32(len(h))), h, u32(4000))},
		{"Max uint32 header length", lengthPrefixed(u32(^uint32(0)))},
		{"Garbage header", lengthPrefixed(u32(4), []byte{9, 9, 9, 9}, u32(0))},
		{"Frame too short for length", []byte{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := c.sealFrame(testKey(8), tt.frame)
			require.NoError(t, err)
			_, err = c.Open(testKey(8), env)
			assert.ErrorIs(t, err, ErrAuthenticationFailure)
		})
	}

	// A consistent hand-built frame still opens, padding ignored.
	good := lengthPrefixed(u32(uint32(len(h))), h, u32(2), []byte("ok"))
	env, err := c.sealFrame(testKey(8), good)
	require.NoError(t, err)
	frame, err := c.Open(testKey(8), env)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), frame.Body)
}

func TestSealLimits(t *testing.T) {
	cfg := configs.DefaultProtocol()
	cfg.MaxFrameSize = 512
	c := New(cfg)

	_, err := c.Seal(testKey(9), bytes.Repeat([]byte{1}, 600), "alice", 1)
	assert.ErrorIs(t, err, ErrMessageTooLarge)

	_, err = c.Seal(testKey(9), nil, strings.Repeat("a", 70000), 1)
	assert.ErrorIs(t, err, ErrSenderTooLong)
}

func TestHeaderRoundTrip(t *testing.T) {
	h := &Header{Sender: "alice", Step: 42, Timestamp: time.Unix(1700000000, 0), Tag: []byte{1, 2, 3, 4, 5}}
	got, err := UnmarshalHeader(h.Marshal())
	require.NoError(t, err)
	assert.Equal(t, h.Sender, got.Sender)
	assert.Equal(t, h.Step, got.Step)
	assert.True(t, h.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, h.Tag, got.Tag)

	raw := h.Marshal()
	_, err = UnmarshalHeader(append(raw, 0))
	assert.Error(t, err, "trailing bytes")
	_, err = UnmarshalHeader(raw[:len(raw)-1])
	assert.Error(t, err, "missing bytes")
}

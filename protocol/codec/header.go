package codec

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"math/big"
	"time"
)

const (
	headerVersion byte = 1

	minTagSize = 4
	maxTagSize = 8

	// version | step | timestamp | sender length | tag length
	fixedHeaderSize = 1 + 8 + 8 + 2 + 1
)

var errMalformedHeader = errors.New("malformed header")

// Header is the metadata sealed inside every frame.
type Header struct {
	Sender    string
	Step      uint64
	Timestamp time.Time
	// Tag is random and only varies the header length and content.
	Tag []byte
}

func newHeader(sender string, step uint64) (*Header, error) {
	if len(sender) > math.MaxUint16 {
		return nil, ErrSenderTooLong
	}
	n, err := rand.Int(rand.Reader, big.NewInt(maxTagSize-minTagSize+1))
	if err != nil {
		return nil, err
	}
	tag := make([]byte, minTagSize+int(n.Int64()))
	if _, err := io.ReadFull(rand.Reader, tag); err != nil {
		return nil, err
	}
	return &Header{
		Sender:    sender,
		Step:      step,
		Timestamp: time.Unix(time.Now().Unix(), 0),
		Tag:       tag,
	}, nil
}

// Marshal encodes h as
// version u8 | step u64 | unix seconds i64 | sender_len u16 | sender | tag_len u8 | tag.
func (h *Header) Marshal() []byte {
	out := make([]byte, 0, fixedHeaderSize+len(h.Sender)+len(h.Tag))
	out = append(out, headerVersion)
	out = binary.BigEndian.AppendUint64(out, h.Step)
	out = binary.BigEndian.AppendUint64(out, uint64(h.Timestamp.Unix()))
	out = binary.BigEndian.AppendUint16(out, uint16(len(h.Sender)))
	out = append(out, h.Sender...)
	out = append(out, byte(len(h.Tag)))
	return append(out, h.Tag...)
}

// UnmarshalHeader decodes a header and rejects trailing or missing bytes.
func UnmarshalHeader(data []byte) (*Header, error) {
	if len(data) < fixedHeaderSize || data[0] != headerVersion {
		return nil, errMalformedHeader
	}
	h := &Header{
		Step:      binary.BigEndian.Uint64(data[1:9]),
		Timestamp: time.Unix(int64(binary.BigEndian.Uint64(data[9:17])), 0),
	}
	senderLen := int(binary.BigEndian.Uint16(data[17:19]))
	rest := data[19:]
	if len(rest) < senderLen+1 {
		return nil, errMalformedHeader
	}
	h.Sender = string(rest[:senderLen])
	rest = rest[senderLen:]

	tagLen := int(rest[0])
	rest = rest[1:]
	if len(rest) != tagLen {
		return nil, errMalformedHeader
	}
	h.Tag = append([]byte(nil), rest...)
	return h, nil
}

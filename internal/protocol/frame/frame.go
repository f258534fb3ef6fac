package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// PrefixLen is the size of the big-endian payload length header.
const PrefixLen = 4

var (
	ErrShortFrame      = errors.New("frame: short frame")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrInvalidResume   = errors.New("frame: invalid resume prefix")
)

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 8 * 1024 * 1024,
	}
}

// ReadFrame reads one length-prefixed payload from r.
func ReadFrame(r io.Reader, limits Limits) ([]byte, error) {
	return ReadFrameResume(nil, r, limits)
}

// ReadFrameResume reads one payload whose first len(consumed) prefix bytes
// were already taken from r.
func ReadFrameResume(consumed []byte, r io.Reader, limits Limits) ([]byte, error) {
	if len(consumed) >= PrefixLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidResume, len(consumed))
	}
	var prefix [PrefixLen]byte
	n := copy(prefix[:], consumed)
	if _, err := io.ReadFull(r, prefix[n:]); err != nil {
		return nil, shortErr(err)
	}

	length := DecodeLength(prefix)
	if length > limits.MaxPayloadBytes {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, length, limits.MaxPayloadBytes)
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, shortErr(err)
		}
	}
	return payload, nil
}

// WriteFrame writes the length prefix followed by payload.
func WriteFrame(w io.Writer, payload []byte, limits Limits) error {
	if uint64(len(payload)) > uint64(limits.MaxPayloadBytes) {
		return ErrPayloadTooLarge
	}
	prefix := EncodeLength(uint32(len(payload)))
	buf := make([]byte, 0, PrefixLen+len(payload))
	buf = append(buf, prefix[:]...)
	buf = append(buf, payload...)
	_, err := w.Write(buf)
	return err
}

func EncodeLength(n uint32) [PrefixLen]byte {
	var b [PrefixLen]byte
	binary.BigEndian.PutUint32(b[:], n)
	return b
}

func DecodeLength(b [PrefixLen]byte) uint32 {
	return binary.BigEndian.Uint32(b[:])
}

func shortErr(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return ErrShortFrame
	}
	return err
}

package jsonrpc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single envelope on the framed byte-stream transport.
const MaxFrameSize = 8 << 20

const frameHeaderLen = 4

var (
	// ErrFrameTooLarge reports an envelope over MaxFrameSize, on either
	// side of the stream.
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")

	// ErrEmptyFrame reports a zero-length envelope, which no request or
	// response produces.
	ErrEmptyFrame = errors.New("empty frame")
)

// WriteFrame writes one envelope: a 4-byte big-endian payload length
// followed by the payload. Header and payload go out in a single Write, so
// writers sharing a connection cannot interleave half a frame.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	buf := make([]byte, frameHeaderLen+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[frameHeaderLen:], payload)
	_, err := w.Write(buf)
	return err
}

// ReadFrame reads the next envelope off the stream. The declared length is
// validated before any payload is allocated, so a corrupt header cannot ask
// for an arbitrarily large buffer.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [frameHeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header[:])
	switch {
	case size == 0:
		return nil, ErrEmptyFrame
	case size > MaxFrameSize:
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

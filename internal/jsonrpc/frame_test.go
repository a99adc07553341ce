package jsonrpc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	in := []byte(`{"jsonrpc":"2.0","method":"GetAuctionItems"}`)
	var b bytes.Buffer
	if err := WriteFrame(&b, in); err != nil {
		t.Fatal(err)
	}
	if b.Len() != frameHeaderLen+len(in) {
		t.Fatalf("frame length %d", b.Len())
	}
	out, err := ReadFrame(&b)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, in) {
		t.Fatalf("got %q", out)
	}
}

func TestWriteFrameRejectsOversized(t *testing.T) {
	tooBig := make([]byte, MaxFrameSize+1)
	var b bytes.Buffer
	if err := WriteFrame(&b, tooBig); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("want ErrFrameTooLarge, got %v", err)
	}
	if b.Len() != 0 {
		t.Fatal("nothing may reach the stream for a rejected frame")
	}
}

func TestReadFrameRejectsOversizedHeader(t *testing.T) {
	var header [frameHeaderLen]byte
	binary.BigEndian.PutUint32(header[:], MaxFrameSize+1)
	if _, err := ReadFrame(bytes.NewReader(header[:])); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("want ErrFrameTooLarge, got %v", err)
	}
}

func TestReadFrameRejectsEmpty(t *testing.T) {
	b := bytes.NewReader([]byte{0, 0, 0, 0})
	if _, err := ReadFrame(b); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("want ErrEmptyFrame, got %v", err)
	}
}

func FuzzReadFrame(f *testing.F) {
	f.Add([]byte{0, 0, 0, 1, 'x'})
	f.Add([]byte{0xff, 0xff, 0xff, 0xff})
	f.Fuzz(func(t *testing.T, data []byte) {
		// Must never panic, whatever the framing bytes claim.
		_, _ = ReadFrame(bytes.NewReader(data))
	})
}

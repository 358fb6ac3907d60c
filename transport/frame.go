// Package transport implements the BRIO frame transport: a 4-byte
// big-endian length prefix followed by that many bytes of BRIO payload
// (spec.md §4.4/§6.1).
//
// Grounded on the length-prefixed framing idiom from the pack's
// codec/frame.go (other_examples): encode/decode split into a small pair
// of free functions over io.Reader/io.Writer rather than a stateful
// connection wrapper, since framing itself carries no session state.
package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrClosed signals that the peer closed the connection cleanly at a
// frame boundary. This is spec.md §7's io-closed kind: normal end of
// session, not a decode failure.
var ErrClosed = errors.New("io-closed")

// MaxFrameLength bounds how large a single frame's length prefix may
// declare, guarding against a corrupt or hostile peer claiming an
// unreasonable payload size before any bytes are read. 64MiB comfortably
// exceeds any real instruction-list frame.
const MaxFrameLength = 64 * 1024 * 1024

// ReadFrame reads exactly one length-prefixed frame from r: a 4-byte
// big-endian length, then that many payload bytes. If the stream closes
// before the length prefix or before the full payload arrives, ReadFrame
// returns ErrClosed (spec.md §4.4: "if the stream closes before
// completing either read, return end-of-stream").
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("transport: read length prefix: %w", err)
	}

	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFrameLength {
		return nil, fmt.Errorf("transport: frame length %d exceeds maximum %d", n, MaxFrameLength)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("transport: read %d byte payload: %w", n, err)
	}

	return payload, nil
}

// WriteFrame writes payload as one length-prefixed frame to w. The length
// prefix and payload are assembled into a single buffer before the
// underlying Write call, so a peer can never observe a partial length
// prefix ahead of the body (spec.md §4.4).
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameLength {
		return fmt.Errorf("transport: payload length %d exceeds maximum %d", len(payload), MaxFrameLength)
	}

	frame := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(payload)))
	copy(frame[4:], payload)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("transport: write frame: %w", err)
	}
	return nil
}

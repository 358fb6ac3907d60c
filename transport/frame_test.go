package transport_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/arloliu/brio/transport"
	"github.com/stretchr/testify/require"
)

func TestWriteFrameThenReadFrame(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello, brio")

	require.NoError(t, transport.WriteFrame(&buf, payload))
	got, err := transport.ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestWriteFrameEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, transport.WriteFrame(&buf, nil))
	got, err := transport.ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, 0, len(got))
}

func TestReadFrameMultipleFrames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, transport.WriteFrame(&buf, []byte("first")))
	require.NoError(t, transport.WriteFrame(&buf, []byte("second")))

	got1, err := transport.ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, []byte("first"), got1)

	got2, err := transport.ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, []byte("second"), got2)
}

func TestReadFrameClosedBeforeLengthPrefix(t *testing.T) {
	_, err := transport.ReadFrame(bytes.NewReader(nil))
	require.ErrorIs(t, err, transport.ErrClosed)
}

func TestReadFrameClosedMidLengthPrefix(t *testing.T) {
	_, err := transport.ReadFrame(bytes.NewReader([]byte{0x00, 0x00}))
	require.ErrorIs(t, err, transport.ErrClosed)
}

func TestReadFrameClosedMidPayload(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x00, 0x00, 0x10}) // declares 16 bytes
	buf.Write([]byte{0x01, 0x02})              // only 2 actually arrive
	_, err := transport.ReadFrame(&buf)
	require.ErrorIs(t, err, transport.ErrClosed)
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	_, err := transport.ReadFrame(&buf)
	require.Error(t, err)
	require.NotErrorIs(t, err, transport.ErrClosed)
}

// singleWriteRecorder fails the test if Write is called more than once,
// proving WriteFrame never lets a peer observe a partial length prefix.
type singleWriteRecorder struct {
	t       *testing.T
	calls   int
	written []byte
}

func (w *singleWriteRecorder) Write(p []byte) (int, error) {
	w.calls++
	if w.calls > 1 {
		w.t.Fatalf("WriteFrame issued %d separate Write calls, want 1", w.calls)
	}
	w.written = append(w.written, p...)
	return len(p), nil
}

func TestWriteFrameSingleWriteCall(t *testing.T) {
	rec := &singleWriteRecorder{t: t}
	require.NoError(t, transport.WriteFrame(rec, []byte("atomic")))
	require.Equal(t, 1, rec.calls)

	got, err := transport.ReadFrame(bytes.NewReader(rec.written))
	require.NoError(t, err)
	require.Equal(t, []byte("atomic"), got)
}

var _ io.Writer = (*singleWriteRecorder)(nil)

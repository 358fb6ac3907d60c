// Package pool provides a pooled, growable byte buffer used by the BRIO
// encoder to avoid a fresh allocation per encoded value.
//
// Adapted from the teacher's internal/pool/byte_buffer_pool.go: the
// two-tier blob/blob-set pool (sized for multi-metric time-series blobs)
// is collapsed into a single frame-sized pool, since a BRIO message is one
// instruction list per frame rather than an accumulating multi-metric
// blob.
package pool

import "sync"

// FrameBufferDefaultSize is the default capacity handed out by the pool.
// Most instruction frames (a handful of def/exec/eval dicts) fit well
// under this; it amortizes the common case without over-committing
// memory per idle connection.
const (
	FrameBufferDefaultSize  = 4 * 1024  // 4KiB
	FrameBufferMaxThreshold = 256 * 1024 // 256KiB, larger buffers are discarded rather than pooled
)

// ByteBuffer is a growable byte slice with an amortized growth strategy.
type ByteBuffer struct {
	B []byte
}

// NewByteBuffer creates a ByteBuffer with the given initial capacity.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{B: make([]byte, 0, defaultSize)}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte { return bb.B }

// Reset empties the buffer without releasing its backing array.
func (bb *ByteBuffer) Reset() { bb.B = bb.B[:0] }

// Len returns the number of bytes written so far.
func (bb *ByteBuffer) Len() int { return len(bb.B) }

// Cap returns the buffer's current capacity.
func (bb *ByteBuffer) Cap() int { return cap(bb.B) }

// MustWrite appends data, growing the buffer if necessary.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.Grow(len(data))
	bb.B = append(bb.B, data...)
}

// MustWriteByte appends a single byte, growing the buffer if necessary.
func (bb *ByteBuffer) MustWriteByte(b byte) {
	bb.Grow(1)
	bb.B = append(bb.B, b)
}

// Grow ensures the buffer can accept requiredBytes more bytes without a
// further reallocation.
//
// Growth strategy (unchanged from the teacher): small buffers grow by a
// fixed default-size increment to minimize reallocations while still
// small; once a buffer has grown past 4x the default size, it grows by
// 25% of its current capacity instead, trading memory headroom for fewer
// future reallocations on buffers that are clearly handling larger
// messages.
func (bb *ByteBuffer) Grow(requiredBytes int) {
	available := cap(bb.B) - len(bb.B)
	if available >= requiredBytes {
		return
	}

	growBy := FrameBufferDefaultSize
	if cap(bb.B) > 4*FrameBufferDefaultSize {
		growBy = cap(bb.B) / 4
	}
	if growBy < requiredBytes {
		growBy = requiredBytes
	}

	newBuf := make([]byte, len(bb.B), len(bb.B)+growBy)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

// Write implements io.Writer.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.MustWrite(data)
	return len(data), nil
}

// ByteBufferPool pools ByteBuffers, discarding ones that grew unusually
// large instead of retaining them indefinitely.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a pool whose buffers start at defaultSize and
// are discarded (not pooled) once they exceed maxThreshold capacity.
func NewByteBufferPool(defaultSize, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any { return NewByteBuffer(defaultSize) },
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a ByteBuffer from the pool.
func (p *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := p.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns a ByteBuffer to the pool, or discards it if it grew past
// maxThreshold.
func (p *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}
	if p.maxThreshold > 0 && cap(bb.B) > p.maxThreshold {
		return
	}
	bb.Reset()
	p.pool.Put(bb)
}

var framePool = NewByteBufferPool(FrameBufferDefaultSize, FrameBufferMaxThreshold)

// GetFrameBuffer retrieves a ByteBuffer from the default frame pool.
func GetFrameBuffer() *ByteBuffer { return framePool.Get() }

// PutFrameBuffer returns a ByteBuffer to the default frame pool.
func PutFrameBuffer(bb *ByteBuffer) { framePool.Put(bb) }

package brio

import (
	"fmt"
	"math"
	"regexp"

	"github.com/arloliu/brio/control"
	"github.com/arloliu/brio/grid"
	"github.com/arloliu/brio/internal/pool"
	"github.com/arloliu/brio/internal/tzcache"
	"github.com/arloliu/brio/value"
	"github.com/arloliu/brio/varint"
)

// Encoder serializes value.Value into BRIO wire bytes.
//
// Note: Encoder is NOT thread-safe. Each encoder instance should be used
// by a single goroutine at a time, matching the teacher's encoder
// convention.
type Encoder struct {
	buf    *pool.ByteBuffer
	Strict bool // true: value kinds WriteVal does not recognise raise ErrEncodeUnsupported. false: coerced to Str.
}

// NewEncoder returns an Encoder with strict mode enabled.
func NewEncoder() *Encoder {
	return &Encoder{buf: pool.GetFrameBuffer(), Strict: true}
}

// Release returns the encoder's internal buffer to the pool. Call after
// the last Bytes result of this encoder instance has been consumed and
// copied out, since that slice aliases the pooled buffer.
func (e *Encoder) Release() {
	pool.PutFrameBuffer(e.buf)
	e.buf = nil
}

// Bytes returns the bytes written so far. The slice aliases the
// encoder's internal buffer and is invalidated by the next WriteVal call
// or by Release.
func (e *Encoder) Bytes() []byte { return e.buf.Bytes() }

// ToBytes is a convenience wrapper that encodes v into a fresh Encoder
// and returns an owned copy of the result.
func ToBytes(v value.Value) ([]byte, error) {
	e := NewEncoder()
	defer e.Release()
	if err := e.WriteVal(v); err != nil {
		return nil, err
	}
	out := make([]byte, len(e.Bytes()))
	copy(out, e.Bytes())
	return out, nil
}

func (e *Encoder) writeByte(b byte) { e.buf.MustWriteByte(b) }

func (e *Encoder) writeControl(c control.Byte) { e.writeByte(byte(c)) }

func (e *Encoder) writeVarint(n int64) error {
	enc, err := varint.Encode(nil, n)
	if err != nil {
		return err
	}
	e.buf.MustWrite(enc)
	return nil
}

// writeTaggedString writes the sentinel + varint char count + UTF-8 bytes
// shape used for Str/Uri/Ref-id/unit/tz-name fields.
func (e *Encoder) writeTaggedString(s string) error {
	if err := e.writeVarint(control.PoolRefSentinel); err != nil {
		return err
	}
	return e.writeCharCountedBody(s)
}

// writeRawString writes a varint char count followed by UTF-8 bytes, with
// no sentinel prefix. Used for RefStr/RefI8's trailing dis field.
func (e *Encoder) writeRawString(s string) error {
	return e.writeCharCountedBody(s)
}

func (e *Encoder) writeCharCountedBody(s string) error {
	count := int64(runeCount(s))
	if err := e.writeVarint(count); err != nil {
		return err
	}
	e.buf.MustWrite([]byte(s))
	return nil
}

func runeCount(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

// WriteVal appends the tagged encoding of v.
func (e *Encoder) WriteVal(v value.Value) error {
	switch v.Kind() {
	case value.KindNull:
		e.writeControl(control.Null)
		return nil
	case value.KindMarker:
		e.writeControl(control.Marker)
		return nil
	case value.KindNA:
		e.writeControl(control.NA)
		return nil
	case value.KindRemove:
		e.writeControl(control.Remove)
		return nil
	case value.KindBool:
		if v.Bool() {
			e.writeControl(control.True)
		} else {
			e.writeControl(control.False)
		}
		return nil
	case value.KindNumber:
		return e.writeNumber(v)
	case value.KindStr:
		e.writeControl(control.Str)
		return e.writeTaggedString(v.Str())
	case value.KindUri:
		e.writeControl(control.Uri)
		return e.writeTaggedString(v.Uri())
	case value.KindRef:
		return e.writeRef(v)
	case value.KindDate:
		return e.writeDate(v)
	case value.KindTime:
		return e.writeTime(v)
	case value.KindDateTime:
		return e.writeDateTime(v)
	case value.KindCoord:
		return e.writeCoord(v)
	case value.KindBuf:
		return e.writeBuf(v)
	case value.KindDict:
		return e.writeDict(v.Dict())
	case value.KindList:
		return e.writeList(v.List())
	case value.KindGrid:
		return e.writeGrid(v.Grid())
	case value.KindNDArray:
		return e.writeNDArray(v.NDArray())
	default:
		if e.Strict {
			return fmt.Errorf("brio: %w: kind %s", ErrEncodeUnsupported, v.Kind())
		}
		return e.writeTaggedStringValue(control.Str, fmt.Sprintf("%v", v))
	}
}

func (e *Encoder) writeTaggedStringValue(c control.Byte, s string) error {
	e.writeControl(c)
	return e.writeTaggedString(s)
}

const (
	minI2 = -32767
	maxI2 = 32767
	minI4 = -2_147_483_648
	maxI4 = 2_147_483_647
)

// writeNumber selects NumI2/NumI4/NumF8 per the exact boundaries in
// spec.md §4.3/§8 (invariant 2).
func (e *Encoder) writeNumber(v value.Value) error {
	n, unit := v.Number()

	if isWholeInRange(n, minI2, maxI2) {
		e.writeControl(control.NumI2)
		var raw [2]byte
		byteOrder.PutUint16(raw[:], uint16(int16(n)))
		e.buf.MustWrite(raw[:])
		return e.writeTaggedString(unit)
	}

	if isWholeInRange(n, minI4, maxI4) {
		e.writeControl(control.NumI4)
		var raw [4]byte
		byteOrder.PutUint32(raw[:], uint32(int32(n)))
		e.buf.MustWrite(raw[:])
		return e.writeTaggedString(unit)
	}

	e.writeControl(control.NumF8)
	var raw [8]byte
	byteOrder.PutUint64(raw[:], math.Float64bits(n))
	e.buf.MustWrite(raw[:])
	return e.writeTaggedString(unit)
}

// isWholeInRange reports whether n is a mathematical integer within
// [lo, hi]. Non-integral floats always fall through to NumF8 regardless
// of magnitude, since NumI2/NumI4 have no fractional representation.
func isWholeInRange(n float64, lo, hi int64) bool {
	if n != math.Trunc(n) {
		return false
	}
	return n >= float64(lo) && n <= float64(hi)
}

// hexRefIDRE matches spec.md §8 invariant 5's RefI8 discipline exactly:
// lowercase hex only. decoder.go's handleToID always reconstructs the id
// lowercase via "%08x-%08x", so matching uppercase here would let an
// uppercase-hex id round-trip through a different string than it started
// as.
var hexRefIDRE = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{8}$`)

func (e *Encoder) writeRef(v value.Value) error {
	id := v.RefID()
	dis, hasDis := v.RefDis()
	if !hasDis {
		dis = ""
	}

	if len(id) == 17 && id[8] == '-' && hexRefIDRE.MatchString(id) {
		e.writeControl(control.RefI8)
		handle, err := packRefHandle(id)
		if err != nil {
			return err
		}
		var raw [8]byte
		byteOrder.PutUint64(raw[:], handle)
		e.buf.MustWrite(raw[:])
		return e.writeRawString(dis)
	}

	e.writeControl(control.RefStr)
	if err := e.writeTaggedString(id); err != nil {
		return err
	}
	return e.writeRawString(dis)
}

// packRefHandle packs the 16 hex digits of "xxxxxxxx-xxxxxxxx" into a
// single 64-bit integer, high half first.
func packRefHandle(id string) (uint64, error) {
	hi, err := parseHex32(id[0:8])
	if err != nil {
		return 0, fmt.Errorf("brio: %w: ref id %q: %v", ErrEncodeUnsupported, id, err)
	}
	lo, err := parseHex32(id[9:17])
	if err != nil {
		return 0, fmt.Errorf("brio: %w: ref id %q: %v", ErrEncodeUnsupported, id, err)
	}
	return uint64(hi)<<32 | uint64(lo), nil
}

func parseHex32(s string) (uint32, error) {
	var n uint32
	for _, r := range s {
		n <<= 4
		switch {
		case r >= '0' && r <= '9':
			n |= uint32(r - '0')
		case r >= 'a' && r <= 'f':
			n |= uint32(r-'a') + 10
		case r >= 'A' && r <= 'F':
			n |= uint32(r-'A') + 10
		default:
			return 0, fmt.Errorf("not a hex digit: %q", r)
		}
	}
	return n, nil
}

func (e *Encoder) writeDate(v value.Value) error {
	d := v.Date()
	e.writeControl(control.Date)
	var raw [4]byte
	byteOrder.PutUint16(raw[0:2], uint16(d.Y))
	raw[2] = d.M
	raw[3] = d.D
	e.buf.MustWrite(raw[:])
	return nil
}

func (e *Encoder) writeTime(v value.Value) error {
	t := v.Time()
	e.writeControl(control.Time)
	msOfDay := uint32(t.H)*3600000 + uint32(t.Mi)*60000 + uint32(t.S)*1000 + uint32(t.Ms)
	var raw [4]byte
	byteOrder.PutUint32(raw[:], msOfDay)
	e.buf.MustWrite(raw[:])
	return nil
}

// haystackEpochNanos is haystackEpoch expressed as Unix nanoseconds, used
// for pure-integer delta computation (DESIGN.md Open Question #1: the
// original's floating-point division loses precision for distant
// instants; we never convert through float64 here).
var haystackEpochNanos = haystackEpoch.UnixNano()

func (e *Encoder) writeDateTime(v value.Value) error {
	dt := v.DateTime()
	nanos := dt.Instant.UnixNano() - haystackEpochNanos

	if nanos%1_000_000_000 == 0 {
		e.writeControl(control.DateTimeI4)
		secs := nanos / 1_000_000_000
		if secs < math.MinInt32 || secs > math.MaxInt32 {
			return fmt.Errorf("brio: %w: datetime seconds %d overflow i32", ErrEncodeUnsupported, secs)
		}
		var raw [4]byte
		byteOrder.PutUint32(raw[:], uint32(int32(secs)))
		e.buf.MustWrite(raw[:])
	} else {
		e.writeControl(control.DateTimeI8)
		var raw [8]byte
		byteOrder.PutUint64(raw[:], uint64(nanos))
		e.buf.MustWrite(raw[:])
	}

	tzName := dt.TZName
	if tzName == "" {
		tzName = tzcache.ShortName(dt.Instant.Location().String())
	}
	return e.writeTaggedString(tzName)
}

func (e *Encoder) writeCoord(v value.Value) error {
	c := v.Coord()
	e.writeControl(control.Coord)
	packed := uint64(uint32(c.ULat+90_000_000))<<32 | uint64(uint32(c.ULng+180_000_000))
	var raw [8]byte
	byteOrder.PutUint64(raw[:], packed)
	e.buf.MustWrite(raw[:])
	return nil
}

func (e *Encoder) writeBuf(v value.Value) error {
	e.writeControl(control.Buf)
	b := v.Buf()
	if err := e.writeVarint(int64(len(b))); err != nil {
		return err
	}
	e.buf.MustWrite(b)
	return nil
}

func (e *Encoder) writeDict(d *value.Dict) error {
	if d == nil || d.Len() == 0 {
		e.writeControl(control.DictEmpty)
		return nil
	}

	// Count non-null entries up front (spec.md §4.3 "Dict null-skip"). A
	// dict built with entries that happen to all be Null still uses the
	// non-empty Dict tag with a zero count: DictEmpty is reserved for
	// dicts with zero entries from construction (SPEC_FULL.md Part D.2).
	nonNull := 0
	d.Each(func(_ string, v value.Value) {
		if v.Kind() != value.KindNull {
			nonNull++
		}
	})

	e.writeControl(control.Dict)
	e.writeByte(control.DictOpen)
	if err := e.writeVarint(int64(nonNull)); err != nil {
		return err
	}

	var walkErr error
	d.Each(func(key string, v value.Value) {
		if walkErr != nil || v.Kind() == value.KindNull {
			return
		}
		if err := e.writeTaggedString(key); err != nil {
			walkErr = err
			return
		}
		if err := e.WriteVal(v); err != nil {
			walkErr = err
		}
	})
	if walkErr != nil {
		return walkErr
	}

	e.writeByte(control.DictClose)
	return nil
}

func (e *Encoder) writeList(items []value.Value) error {
	if len(items) == 0 {
		e.writeControl(control.ListEmpty)
		return nil
	}

	e.writeControl(control.List)
	e.writeByte(control.ListOpen)
	if err := e.writeVarint(int64(len(items))); err != nil {
		return err
	}
	for _, v := range items {
		if err := e.WriteVal(v); err != nil {
			return err
		}
	}
	e.writeByte(control.ListClose)
	return nil
}

func (e *Encoder) writeGrid(g value.Gridder) error {
	gr, ok := g.(*grid.Grid)
	if !ok {
		return fmt.Errorf("brio: %w: grid value does not hold a *grid.Grid", ErrEncodeUnsupported)
	}

	e.writeControl(control.Grid)
	e.writeByte(control.GridOpen)

	if err := e.writeVarint(int64(gr.NumCols())); err != nil {
		return err
	}
	if err := e.writeVarint(int64(gr.NumRows())); err != nil {
		return err
	}
	if err := e.writeDict(gr.Meta()); err != nil {
		return err
	}

	for _, col := range gr.Columns() {
		if err := e.writeTaggedString(col.Name); err != nil {
			return err
		}
		if err := e.writeDict(col.Meta); err != nil {
			return err
		}
	}

	for _, row := range gr.Rows() {
		for _, cell := range row {
			if err := e.WriteVal(cell); err != nil {
				return err
			}
		}
	}

	e.writeByte(control.GridClose)
	return nil
}

// writeNDArray flattens a 1D/2D matrix row-major into a `{ndarray: Marker,
// r, c, bytes}` dict, per spec.md §4.3 NDArray encoding. A shape that is
// negative or does not match the data length is rejected with
// ErrShapeUnsupported.
func (e *Encoder) writeNDArray(nd *value.NDArray) error {
	if nd.Rows < 0 || nd.Cols < 0 || len(nd.Data) != nd.Rows*nd.Cols {
		return fmt.Errorf("brio: %w: ndarray shape (%d,%d) does not match %d data elements", ErrShapeUnsupported, nd.Rows, nd.Cols, len(nd.Data))
	}

	raw := make([]byte, 8*len(nd.Data))
	for i, f := range nd.Data {
		byteOrder.PutUint64(raw[i*8:i*8+8], math.Float64bits(f))
	}

	d := value.NewDict()
	d.Set("ndarray", value.Marker())
	d.Set("r", value.Number(float64(nd.Rows), ""))
	d.Set("c", value.Number(float64(nd.Cols), ""))
	d.Set("bytes", value.Buf(raw))

	return e.writeDict(d)
}

// EncodeNDArray1D promotes a 1D slice to an (n,1) column matrix, as a
// value.Value ready for WriteVal. EncodeNDArray2D does the same for a 2D
// row-major matrix and rejects data whose length is not rows*cols with
// ErrShapeUnsupported. Neither function accepts arrays of rank three or
// more; value.NDArray has no form for them.
func EncodeNDArray1D(data []float64) value.Value {
	return value.FromNDArray(&value.NDArray{Rows: len(data), Cols: 1, Data: data})
}

func EncodeNDArray2D(rows, cols int, data []float64) (value.Value, error) {
	if len(data) != rows*cols {
		return value.Value{}, fmt.Errorf("brio: %w: ndarray (%d,%d) needs %d elements, got %d", ErrShapeUnsupported, rows, cols, rows*cols, len(data))
	}
	return value.FromNDArray(&value.NDArray{Rows: rows, Cols: cols, Data: data}), nil
}

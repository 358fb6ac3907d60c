package brio

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/arloliu/brio/control"
	"github.com/arloliu/brio/endian"
	"github.com/arloliu/brio/grid"
	"github.com/arloliu/brio/internal/strintern"
	"github.com/arloliu/brio/internal/tzcache"
	"github.com/arloliu/brio/value"
	"github.com/arloliu/brio/varint"
)

// haystackEpoch is the Haystack reference instant: 2000-01-01T00:00:00Z.
var haystackEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// byteOrder is fixed at big-endian: BRIO's wire format has no byte-order
// negotiation, unlike the teacher's pluggable little/big endian.Engine.
// Decoder and Encoder still go through endian.EndianEngine rather than
// calling encoding/binary directly, so a host embedding this codec on a
// native little-endian platform gets the teacher's ~30% faster Append*
// path for free if it ever needs to build frames off the hot path.
var byteOrder = endian.GetBigEndianEngine()

// Decoder is a byte-cursor reader that produces value.Value from a BRIO
// byte slice.
//
// Note: Decoder is NOT thread-safe and NOT reusable across unrelated byte
// slices — construct a new one per frame, matching the teacher's
// single-use decoder convention.
type Decoder struct {
	data   []byte
	pos    int
	strs   *strintern.Table
	tzs    *tzcache.Cache
	intern bool
}

// NewDecoder creates a Decoder over data. When intern is true, decoded
// strings are deduplicated against previously-seen equal strings within
// this decoder instance (spec.md §4.2 string decode).
func NewDecoder(data []byte, intern bool) *Decoder {
	return &Decoder{
		data:   data,
		strs:   strintern.New(),
		tzs:    tzcache.New(),
		intern: intern,
	}
}

// Avail returns the number of bytes remaining to be read.
func (d *Decoder) Avail() int { return len(d.data) - d.pos }

func (d *Decoder) need(n int) error {
	if d.Avail() < n {
		return fmt.Errorf("brio: %w: need %d bytes at position %d, have %d", ErrShortBuffer, n, d.pos, d.Avail())
	}
	return nil
}

func (d *Decoder) readByte() (byte, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *Decoder) readN(n int) ([]byte, error) {
	if err := d.need(n); err != nil {
		return nil, err
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) readVarint() (int64, error) {
	n, consumed, err := varint.Decode(d.data[d.pos:])
	if err != nil {
		return 0, fmt.Errorf("brio: %w: varint at position %d: %v", ErrShortBuffer, d.pos, err)
	}
	d.pos += consumed
	return n, nil
}

// checkCount rejects a varint-decoded element count before it is used to
// size an allocation. Every list/grid element consumes at least one more
// byte off the wire, so a count beyond what remains in the buffer can
// never be satisfied; catching that here turns a hostile or corrupt
// count (e.g. a near-int64-max value) into a short-buffer error instead
// of an oversized make() call.
func (d *Decoder) checkCount(count int64, label string) error {
	if count < 0 {
		return fmt.Errorf("brio: %w: negative %s count %d", ErrShortBuffer, label, count)
	}
	if count > int64(d.Avail()) {
		return fmt.Errorf("brio: %w: %s count %d exceeds %d bytes remaining", ErrShortBuffer, label, count, d.Avail())
	}
	return nil
}

// ReadVal reads one tagged value, advancing the cursor.
func (d *Decoder) ReadVal() (value.Value, error) {
	cb, err := d.readByte()
	if err != nil {
		return value.Value{}, err
	}

	switch control.Byte(cb) {
	case control.Null:
		return value.Null(), nil
	case control.Marker:
		return value.Marker(), nil
	case control.NA:
		return value.NA(), nil
	case control.Remove:
		return value.Remove(), nil
	case control.False:
		return value.Bool(false), nil
	case control.True:
		return value.Bool(true), nil
	case control.NumI2:
		return d.readNumI2()
	case control.NumI4:
		return d.readNumI4()
	case control.NumF8:
		return d.readNumF8()
	case control.Str:
		s, err := d.readTaggedString()
		if err != nil {
			return value.Value{}, err
		}
		return value.Str(s), nil
	case control.Uri:
		s, err := d.readTaggedString()
		if err != nil {
			return value.Value{}, err
		}
		return value.Uri(s), nil
	case control.RefStr:
		return d.readRefStr()
	case control.RefI8:
		return d.readRefI8()
	case control.Date:
		return d.readDate()
	case control.Time:
		return d.readTime()
	case control.DateTimeI4:
		return d.readDateTimeI4()
	case control.DateTimeI8:
		return d.readDateTimeI8()
	case control.Coord:
		return d.readCoord()
	case control.Buf:
		return d.readBuf()
	case control.DictEmpty:
		return value.FromDict(value.NewDict()), nil
	case control.Dict:
		dict, err := d.readDictBody()
		if err != nil {
			return value.Value{}, err
		}
		return rewriteNDArray(dict)
	case control.ListEmpty:
		return value.FromList(nil), nil
	case control.List:
		return d.readListBody()
	case control.Grid:
		return d.readGridBody()
	case control.XStr, control.Symbol:
		return value.Value{}, fmt.Errorf("brio: %w: control byte 0x%02x (%s) at position %d", ErrUnsupportedControl, cb, control.Byte(cb), d.pos-1)
	default:
		return value.Value{}, fmt.Errorf("brio: %w: control byte 0x%02x at position %d", ErrUnsupportedControl, cb, d.pos-1)
	}
}

// ReadDict reads one value and requires it to be a Dict, returning
// type-mismatch otherwise.
func (d *Decoder) ReadDict() (*value.Dict, error) {
	v, err := d.ReadVal()
	if err != nil {
		return nil, err
	}
	if v.Kind() != value.KindDict {
		return nil, fmt.Errorf("brio: %w: expected Dict, got %s", ErrTypeMismatch, v.Kind())
	}
	return v.Dict(), nil
}

func (d *Decoder) readNumI2() (value.Value, error) {
	raw, err := d.readN(2)
	if err != nil {
		return value.Value{}, err
	}
	n := int16(byteOrder.Uint16(raw))
	unit, err := d.readTaggedString()
	if err != nil {
		return value.Value{}, err
	}
	return value.Number(float64(n), unit), nil
}

func (d *Decoder) readNumI4() (value.Value, error) {
	raw, err := d.readN(4)
	if err != nil {
		return value.Value{}, err
	}
	n := int32(byteOrder.Uint32(raw))
	unit, err := d.readTaggedString()
	if err != nil {
		return value.Value{}, err
	}
	return value.Number(float64(n), unit), nil
}

func (d *Decoder) readNumF8() (value.Value, error) {
	raw, err := d.readN(8)
	if err != nil {
		return value.Value{}, err
	}
	bits := byteOrder.Uint64(raw)
	n := math.Float64frombits(bits)
	unit, err := d.readTaggedString()
	if err != nil {
		return value.Value{}, err
	}
	return value.Number(n, unit), nil
}

// readRawString reads a raw character-counted string with no
// sentinel/pool-ref prefix: just a varint char count followed by UTF-8
// bytes. Used for RefStr/RefI8's trailing dis field, per spec.md §4.3
// ("a raw character-counted dis string (no tag)").
func (d *Decoder) readRawString() (string, error) {
	n, err := d.readVarint()
	if err != nil {
		return "", err
	}
	return d.readCharCountedString(n)
}

// readTaggedString reads a full tagged string value: the sentinel-or-pool
// prefix followed by the char-counted body, per spec.md §4.2.
func (d *Decoder) readTaggedString() (string, error) {
	n, err := d.readVarint()
	if err != nil {
		return "", err
	}
	if n != control.PoolRefSentinel {
		return "", fmt.Errorf("brio: %w: pool reference %d at position %d", ErrConstantPoolNotSupported, n, d.pos)
	}
	count, err := d.readVarint()
	if err != nil {
		return "", err
	}
	return d.readCharCountedString(count)
}

// readCharCountedString consumes exactly the bytes belonging to count
// UTF-8 code points, tracking characters rather than bytes as spec.md
// §4.2/§8 (invariant 4) requires.
func (d *Decoder) readCharCountedString(count int64) (string, error) {
	if count < 0 {
		return "", fmt.Errorf("brio: %w: negative char count %d at position %d", ErrInvalidUTF8, count, d.pos)
	}

	start := d.pos
	remaining := d.data[start:]
	consumed := 0
	for i := int64(0); i < count; i++ {
		if consumed >= len(remaining) {
			return "", fmt.Errorf("brio: %w: need %d chars, ran out of bytes at position %d", ErrShortBuffer, count, d.pos)
		}
		r, size := utf8.DecodeRune(remaining[consumed:])
		if r == utf8.RuneError && size <= 1 {
			return "", fmt.Errorf("brio: %w: invalid UTF-8 at position %d", ErrInvalidUTF8, d.pos+consumed)
		}
		consumed += size
	}

	s := string(remaining[:consumed])
	d.pos = start + consumed

	if d.intern {
		s = d.strs.Intern(s)
	}
	return s, nil
}

func (d *Decoder) readRefStr() (value.Value, error) {
	id, err := d.readTaggedString()
	if err != nil {
		return value.Value{}, err
	}
	dis, err := d.readRawString()
	if err != nil {
		return value.Value{}, err
	}
	return refFromWire(id, dis), nil
}

func (d *Decoder) readRefI8() (value.Value, error) {
	raw, err := d.readN(8)
	if err != nil {
		return value.Value{}, err
	}
	handle := byteOrder.Uint64(raw)
	id := handleToID(handle)

	dis, err := d.readRawString()
	if err != nil {
		return value.Value{}, err
	}
	return refFromWire(id, dis), nil
}

// refFromWire reconstructs a Ref from its wire id/dis pair. An empty dis
// string is the wire encoding of "no dis" (spec.md §4.3 Ref encoding), so
// it decodes back to a Ref with no dis, matching RefNoDis rather than
// Ref(id, "").
func refFromWire(id, dis string) value.Value {
	if dis == "" {
		return value.RefNoDis(id)
	}
	return value.Ref(id, dis)
}

// handleToID reconstructs the "xxxxxxxx-xxxxxxxx" hex id from the packed
// 64-bit handle written by the encoder's RefI8 path.
func handleToID(handle uint64) string {
	hi := uint32(handle >> 32)
	lo := uint32(handle)
	return fmt.Sprintf("%08x-%08x", hi, lo)
}

func (d *Decoder) readDate() (value.Value, error) {
	raw, err := d.readN(4)
	if err != nil {
		return value.Value{}, err
	}
	y := int16(byteOrder.Uint16(raw[0:2]))
	m := raw[2]
	day := raw[3]
	return value.NewDate(y, m, day), nil
}

func (d *Decoder) readTime() (value.Value, error) {
	raw, err := d.readN(4)
	if err != nil {
		return value.Value{}, err
	}
	msOfDay := byteOrder.Uint32(raw)
	h := msOfDay / 3600000
	rem := msOfDay % 3600000
	mi := rem / 60000
	rem %= 60000
	s := rem / 1000
	ms := rem % 1000
	return value.NewTime(uint8(h), uint8(mi), uint8(s), uint16(ms)), nil
}

func (d *Decoder) readDateTimeI4() (value.Value, error) {
	raw, err := d.readN(4)
	if err != nil {
		return value.Value{}, err
	}
	secs := int32(byteOrder.Uint32(raw))
	instant := haystackEpoch.Add(time.Duration(secs) * time.Second)
	return d.readDateTimeTZ(instant)
}

func (d *Decoder) readDateTimeI8() (value.Value, error) {
	raw, err := d.readN(8)
	if err != nil {
		return value.Value{}, err
	}
	nanos := int64(byteOrder.Uint64(raw))
	instant := haystackEpoch.Add(time.Duration(nanos))
	return d.readDateTimeTZ(instant)
}

func (d *Decoder) readDateTimeTZ(instant time.Time) (value.Value, error) {
	tzName, err := d.readTaggedString()
	if err != nil {
		return value.Value{}, err
	}
	loc, err := d.tzs.Resolve(tzName)
	if err != nil {
		return value.Value{}, err
	}
	return value.NewDateTime(instant.In(loc), tzName), nil
}

func (d *Decoder) readCoord() (value.Value, error) {
	raw, err := d.readN(8)
	if err != nil {
		return value.Value{}, err
	}
	packed := byteOrder.Uint64(raw)
	ulat := int32(uint32(packed>>32)) - 90_000_000
	ulng := int32(uint32(packed)) - 180_000_000
	return value.NewCoord(ulat, ulng)
}

func (d *Decoder) readBuf() (value.Value, error) {
	size, err := d.readVarint()
	if err != nil {
		return value.Value{}, err
	}
	if size < 0 {
		return value.Value{}, fmt.Errorf("brio: %w: negative buf size %d", ErrShortBuffer, size)
	}
	raw, err := d.readN(int(size))
	if err != nil {
		return value.Value{}, err
	}
	return value.Buf(raw), nil
}

func (d *Decoder) readDictBody() (*value.Dict, error) {
	open, err := d.readByte()
	if err != nil {
		return nil, err
	}
	if open != control.DictOpen {
		return nil, fmt.Errorf("brio: %w: expected '{' at position %d, got 0x%02x", ErrTypeMismatch, d.pos-1, open)
	}

	count, err := d.readVarint()
	if err != nil {
		return nil, err
	}

	dict := value.NewDict()
	for i := int64(0); i < count; i++ {
		key, err := d.readTaggedString()
		if err != nil {
			return nil, err
		}
		val, err := d.ReadVal()
		if err != nil {
			return nil, err
		}
		dict.Set(key, val)
	}

	close, err := d.readByte()
	if err != nil {
		return nil, err
	}
	if close != control.DictClose {
		return nil, fmt.Errorf("brio: %w: expected '}' at position %d, got 0x%02x", ErrTypeMismatch, d.pos-1, close)
	}

	return dict, nil
}

func (d *Decoder) readListBody() (value.Value, error) {
	open, err := d.readByte()
	if err != nil {
		return value.Value{}, err
	}
	if open != control.ListOpen {
		return value.Value{}, fmt.Errorf("brio: %w: expected '[' at position %d, got 0x%02x", ErrTypeMismatch, d.pos-1, open)
	}

	count, err := d.readVarint()
	if err != nil {
		return value.Value{}, err
	}
	if err := d.checkCount(count, "list"); err != nil {
		return value.Value{}, err
	}

	items := make([]value.Value, 0, count)
	for i := int64(0); i < count; i++ {
		v, err := d.ReadVal()
		if err != nil {
			return value.Value{}, err
		}
		items = append(items, v)
	}

	close, err := d.readByte()
	if err != nil {
		return value.Value{}, err
	}
	if close != control.ListClose {
		return value.Value{}, fmt.Errorf("brio: %w: expected ']' at position %d, got 0x%02x", ErrTypeMismatch, d.pos-1, close)
	}

	return value.FromList(items), nil
}

func (d *Decoder) readGridBody() (value.Value, error) {
	open, err := d.readByte()
	if err != nil {
		return value.Value{}, err
	}
	if open != control.GridOpen {
		return value.Value{}, fmt.Errorf("brio: %w: expected '<' at position %d, got 0x%02x", ErrTypeMismatch, d.pos-1, open)
	}

	numCols, err := d.readVarint()
	if err != nil {
		return value.Value{}, err
	}
	if err := d.checkCount(numCols, "grid column"); err != nil {
		return value.Value{}, err
	}
	numRows, err := d.readVarint()
	if err != nil {
		return value.Value{}, err
	}
	if err := d.checkCount(numRows, "grid row"); err != nil {
		return value.Value{}, err
	}

	gridMeta, err := d.ReadDict()
	if err != nil {
		return value.Value{}, err
	}

	b := grid.NewBuilder(gridMeta)
	for i := int64(0); i < numCols; i++ {
		name, err := d.readTaggedString()
		if err != nil {
			return value.Value{}, err
		}
		colMeta, err := d.ReadDict()
		if err != nil {
			return value.Value{}, err
		}
		if err := b.AddColumn(name, colMeta); err != nil {
			return value.Value{}, err
		}
	}

	for r := int64(0); r < numRows; r++ {
		row := make([]value.Value, numCols)
		for c := int64(0); c < numCols; c++ {
			v, err := d.ReadVal()
			if err != nil {
				return value.Value{}, err
			}
			row[c] = v
		}
		if err := b.AddRow(row); err != nil {
			return value.Value{}, err
		}
	}

	close, err := d.readByte()
	if err != nil {
		return value.Value{}, err
	}
	if close != control.GridClose {
		return value.Value{}, fmt.Errorf("brio: %w: expected '>' at position %d, got 0x%02x", ErrTypeMismatch, d.pos-1, close)
	}

	return value.FromGrid(b.Build()), nil
}

// rewriteNDArray turns a decoded `{ndarray: Marker, r, c, bytes}` dict
// into an NDArray value, per spec.md §4.2 Dict decode. Any dict lacking
// the ndarray marker key passes through unchanged.
//
// r, c, and bytes all come straight off the wire, so none of them can be
// trusted: a negative or overflowing shape, or a bytes buffer whose
// length doesn't match rows*cols*8 exactly (including a missing bytes
// key, which decodes as an empty buffer), is rejected with
// ErrShapeUnsupported rather than indexed into.
func rewriteNDArray(dict *value.Dict) (value.Value, error) {
	marker, ok := dict.Get("ndarray")
	if !ok || marker.Kind() != value.KindMarker {
		return value.FromDict(dict), nil
	}

	rowsV, _ := dict.Get("r")
	colsV, _ := dict.Get("c")
	bytesV, _ := dict.Get("bytes")

	rowsF, _ := rowsV.Number()
	colsF, _ := colsV.Number()
	raw := bytesV.Buf()

	rows := int64(rowsF)
	cols := int64(colsF)
	if rows < 0 || cols < 0 {
		return value.Value{}, fmt.Errorf("brio: %w: ndarray shape (%d,%d) is negative", ErrShapeUnsupported, rows, cols)
	}
	if rows != 0 && cols > math.MaxInt64/rows {
		return value.Value{}, fmt.Errorf("brio: %w: ndarray shape (%d,%d) overflows", ErrShapeUnsupported, rows, cols)
	}
	n := rows * cols
	if len(raw)%8 != 0 || n != int64(len(raw))/8 {
		return value.Value{}, fmt.Errorf("brio: %w: ndarray shape (%d,%d) needs %d bytes, got %d", ErrShapeUnsupported, rows, cols, n*8, len(raw))
	}

	data := make([]float64, n)
	for i := int64(0); i < n; i++ {
		bits := byteOrder.Uint64(raw[i*8 : i*8+8])
		data[i] = math.Float64frombits(bits)
	}

	return value.FromNDArray(&value.NDArray{Rows: int(rows), Cols: int(cols), Data: data}), nil
}

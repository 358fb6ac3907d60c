package brio_test

import (
	"math"
	"testing"
	"time"

	"github.com/arloliu/brio/brio"
	"github.com/arloliu/brio/control"
	"github.com/arloliu/brio/grid"
	"github.com/arloliu/brio/value"
	"github.com/arloliu/brio/varint"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, v value.Value) value.Value {
	t.Helper()
	encoded, err := brio.ToBytes(v)
	require.NoError(t, err)
	dec := brio.NewDecoder(encoded, false)
	got, err := dec.ReadVal()
	require.NoError(t, err)
	require.Equal(t, 0, dec.Avail(), "decoder should consume the entire encoded value")
	return got
}

func TestRoundTrip_Singletons(t *testing.T) {
	for _, v := range []value.Value{value.Null(), value.Marker(), value.NA(), value.Remove(), value.Bool(true), value.Bool(false)} {
		got := roundTrip(t, v)
		require.True(t, v.Equal(got))
	}
}

func TestRoundTrip_Numbers(t *testing.T) {
	for _, n := range []float64{0, 12, -1, 32767, -32767, 32768, -32768, 2147483647, -2147483648, 2147483648, 123456.789, -0.5} {
		v := value.Number(n, "kWh")
		got := roundTrip(t, v)
		require.True(t, v.Equal(got), "n=%v", n)
	}
}

func TestRoundTrip_Strings(t *testing.T) {
	for _, s := range []string{"", "hello", "λόγος", "日本語", "emoji 🎉 test"} {
		got := roundTrip(t, value.Str(s))
		require.Equal(t, value.KindStr, got.Kind())
		require.Equal(t, s, got.Str())
	}
}

func TestRoundTrip_Uri(t *testing.T) {
	got := roundTrip(t, value.Uri("https://project-haystack.org"))
	require.Equal(t, value.KindUri, got.Kind())
	require.Equal(t, "https://project-haystack.org", got.Uri())
}

func TestRoundTrip_RefI8Discipline(t *testing.T) {
	v := value.Ref("1deb31b8-7508b187", "Display")
	encoded, err := brio.ToBytes(v)
	require.NoError(t, err)
	require.Len(t, encoded, 10+len("Display"))
	require.Equal(t, byte(0x0B), encoded[0])

	got := roundTrip(t, v)
	require.True(t, v.Equal(got))
	dis, ok := got.RefDis()
	require.True(t, ok)
	require.Equal(t, "Display", dis)
}

func TestRoundTrip_RefNoDis(t *testing.T) {
	v := value.RefNoDis("1deb31b8-7508b187")
	got := roundTrip(t, v)
	_, ok := got.RefDis()
	require.False(t, ok)
}

func TestRoundTrip_DateAndTime(t *testing.T) {
	d := value.NewDate(2021, 7, 21)
	got := roundTrip(t, d)
	require.Equal(t, d.Date(), got.Date())

	tm := value.NewTime(23, 59, 59, 999)
	got = roundTrip(t, tm)
	require.Equal(t, tm.Time(), got.Time())
}

func TestRoundTrip_DateTime_SecondsGranularity(t *testing.T) {
	instant := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	v := value.NewDateTime(instant, "UTC")
	encoded, err := brio.ToBytes(v)
	require.NoError(t, err)
	require.Equal(t, byte(0x0F), encoded[0]) // DateTimeI4: whole seconds

	got := roundTrip(t, v)
	require.True(t, got.DateTime().Instant.Equal(instant))
}

func TestRoundTrip_DateTime_NanosGranularity(t *testing.T) {
	instant := time.Date(2024, 3, 15, 10, 30, 0, 123456789, time.UTC)
	v := value.NewDateTime(instant, "UTC")
	encoded, err := brio.ToBytes(v)
	require.NoError(t, err)
	require.Equal(t, byte(0x10), encoded[0]) // DateTimeI8: sub-second

	got := roundTrip(t, v)
	require.True(t, got.DateTime().Instant.Equal(instant))
}

func TestRoundTrip_Coord(t *testing.T) {
	v, err := value.NewCoord(37771000, -122419000)
	require.NoError(t, err)
	got := roundTrip(t, v)
	require.Equal(t, v.Coord(), got.Coord())
}

func TestRoundTrip_Buf(t *testing.T) {
	v := value.Buf([]byte{1, 2, 3, 4, 5})
	got := roundTrip(t, v)
	require.Equal(t, []byte{1, 2, 3, 4, 5}, got.Buf())
}

func TestRoundTrip_EmptyBuf(t *testing.T) {
	v := value.Buf(nil)
	got := roundTrip(t, v)
	require.Equal(t, 0, len(got.Buf()))
}

func TestRoundTrip_List(t *testing.T) {
	v := value.FromList([]value.Value{value.Number(1, ""), value.Str("two"), value.Marker()})
	got := roundTrip(t, v)
	require.True(t, v.Equal(got))
}

func TestRoundTrip_EmptyList(t *testing.T) {
	v := value.FromList(nil)
	got := roundTrip(t, v)
	require.Equal(t, value.KindList, got.Kind())
	require.Equal(t, 0, len(got.List()))
}

func TestRoundTrip_NDArray(t *testing.T) {
	v, err := brio.EncodeNDArray2D(2, 3, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	got := roundTrip(t, v)
	require.Equal(t, value.KindNDArray, got.Kind())
	nd := got.NDArray()
	require.Equal(t, 2, nd.Rows)
	require.Equal(t, 3, nd.Cols)
	require.Equal(t, []float64{1, 2, 3, 4, 5, 6}, nd.Data)
}

func TestRoundTrip_Grid(t *testing.T) {
	b := grid.NewBuilder(nil)
	require.NoError(t, b.AddColumn("id", nil))
	require.NoError(t, b.AddColumn("dis", nil))
	require.NoError(t, b.AddRow([]value.Value{value.RefNoDis("1deb31b8-7508b187"), value.Str("Room 101")}))
	require.NoError(t, b.AddRow([]value.Value{value.RefNoDis("2deb31b8-7508b187"), value.Str("Room 102")}))
	g := b.Build()

	encoded, err := brio.ToBytes(value.FromGrid(g))
	require.NoError(t, err)

	dec := brio.NewDecoder(encoded, false)
	got, err := dec.ReadVal()
	require.NoError(t, err)
	require.Equal(t, value.KindGrid, got.Kind())
	require.True(t, g.Equal(got.Grid()))
}

func TestDecode_UnsupportedControlByte(t *testing.T) {
	dec := brio.NewDecoder([]byte{0xFE}, false)
	_, err := dec.ReadVal()
	require.ErrorIs(t, err, brio.ErrUnsupportedControl)
}

func TestDecode_XStrAndSymbolRejected(t *testing.T) {
	for _, cb := range []byte{0x12, 0x19} {
		dec := brio.NewDecoder([]byte{cb}, false)
		_, err := dec.ReadVal()
		require.ErrorIs(t, err, brio.ErrUnsupportedControl)
	}
}

func TestDecode_ConstantPoolRejected(t *testing.T) {
	// Str tag, followed by a non-negative varint (pool index 5) instead of
	// the -1 sentinel.
	dec := brio.NewDecoder([]byte{0x09, 0x05}, false)
	_, err := dec.ReadVal()
	require.ErrorIs(t, err, brio.ErrConstantPoolNotSupported)
}

func TestDecode_ShortBuffer(t *testing.T) {
	dec := brio.NewDecoder([]byte{0x06, 0x00}, false)
	_, err := dec.ReadVal()
	require.ErrorIs(t, err, brio.ErrShortBuffer)
}

func TestDecode_TypeMismatchOnReadDict(t *testing.T) {
	encoded, err := brio.ToBytes(value.Number(1, ""))
	require.NoError(t, err)
	dec := brio.NewDecoder(encoded, false)
	_, err = dec.ReadDict()
	require.ErrorIs(t, err, brio.ErrTypeMismatch)
}

func TestDecode_NDArrayMissingBytesIsShapeUnsupported(t *testing.T) {
	d := value.NewDict()
	d.Set("ndarray", value.Marker())
	d.Set("r", value.Number(1, ""))
	d.Set("c", value.Number(1, ""))
	// no "bytes" key at all

	encoded, err := brio.ToBytes(value.FromDict(d))
	require.NoError(t, err)

	dec := brio.NewDecoder(encoded, false)
	_, err = dec.ReadVal()
	require.ErrorIs(t, err, brio.ErrShapeUnsupported)
}

func TestDecode_NDArrayShortBytesIsShapeUnsupported(t *testing.T) {
	d := value.NewDict()
	d.Set("ndarray", value.Marker())
	d.Set("r", value.Number(1, ""))
	d.Set("c", value.Number(1, ""))
	d.Set("bytes", value.Buf([]byte{1, 2, 3})) // needs 8 bytes, has 3

	encoded, err := brio.ToBytes(value.FromDict(d))
	require.NoError(t, err)

	dec := brio.NewDecoder(encoded, false)
	_, err = dec.ReadVal()
	require.ErrorIs(t, err, brio.ErrShapeUnsupported)
}

func TestDecode_NDArrayNegativeShapeIsShapeUnsupported(t *testing.T) {
	d := value.NewDict()
	d.Set("ndarray", value.Marker())
	d.Set("r", value.Number(-1, ""))
	d.Set("c", value.Number(1, ""))
	d.Set("bytes", value.Buf(nil))

	encoded, err := brio.ToBytes(value.FromDict(d))
	require.NoError(t, err)

	dec := brio.NewDecoder(encoded, false)
	_, err = dec.ReadVal()
	require.ErrorIs(t, err, brio.ErrShapeUnsupported)
}

func TestDecode_ListCountExceedingBufferIsShortBuffer(t *testing.T) {
	var buf []byte
	buf = append(buf, byte(control.List), control.ListOpen)
	buf, err := varint.Encode(buf, math.MaxInt64)
	require.NoError(t, err)
	// No items follow and no close byte: the count alone already exceeds
	// what remains, so this must fail before any allocation is sized off it.

	dec := brio.NewDecoder(buf, false)
	_, err = dec.ReadVal()
	require.ErrorIs(t, err, brio.ErrShortBuffer)
}

func TestDecode_GridColumnCountExceedingBufferIsShortBuffer(t *testing.T) {
	var buf []byte
	buf = append(buf, byte(control.Grid), control.GridOpen)
	buf, err := varint.Encode(buf, math.MaxInt64)
	require.NoError(t, err)

	dec := brio.NewDecoder(buf, false)
	_, err = dec.ReadVal()
	require.ErrorIs(t, err, brio.ErrShortBuffer)
}

func TestDecode_Interning(t *testing.T) {
	d := value.NewDict()
	d.Set("name", value.Str("same"))
	d.Set("other", value.Str("same"))
	encoded, err := brio.ToBytes(value.FromDict(d))
	require.NoError(t, err)

	dec := brio.NewDecoder(encoded, true)
	got, err := dec.ReadVal()
	require.NoError(t, err)
	dict := got.Dict()
	v1, _ := dict.Get("name")
	v2, _ := dict.Get("other")
	require.Equal(t, v1.Str(), v2.Str())
}

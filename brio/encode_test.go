package brio_test

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/arloliu/brio/brio"
	"github.com/arloliu/brio/grid"
	"github.com/arloliu/brio/value"
	"github.com/stretchr/testify/require"
)

func emptyGrid() (*grid.Grid, error) {
	b := grid.NewBuilder(nil)
	return b.Build(), nil
}

func hexBytes(t *testing.T, s string) []byte {
	t.Helper()
	clean := strings.ReplaceAll(s, " ", "")
	b, err := hex.DecodeString(clean)
	require.NoError(t, err)
	return b
}

func TestEncode_GoldenScenarios(t *testing.T) {
	cases := []struct {
		name string
		v    value.Value
		hex  string
	}{
		{"null", value.Null(), "00"},
		{"i16", value.Number(12, ""), "06 00 0c ff 00"},
		{"i32", value.Number(123456789, ""), "07 07 5b cd 15 ff 00"},
		{"f64", value.Number(123456.789, ""), "08 40 fe 24 0c 9f be 76 c9 ff 00"},
		// The accented omicron is U+1F79 (e1 bd b9), not U+03CC.
		{"str", value.Str("λόγος"), "09 ff 05 ce bb e1 bd b9 ce b3 ce bf cf 82"},
		{"refI8", value.RefNoDis("1deb31b8-7508b187"), "0b 1d eb 31 b8 75 08 b1 87 00"},
		{"date", value.NewDate(2021, 7, 21), "0d 07 e5 07 15"},
		{"time", value.NewTime(23, 59, 59, 999), "0e 05 26 5b ff"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := brio.ToBytes(c.v)
			require.NoError(t, err)
			require.Equal(t, hexBytes(t, c.hex), got)
		})
	}
}

func TestEncode_EmptyGrid(t *testing.T) {
	g, err := emptyGrid()
	require.NoError(t, err)
	got, err := brio.ToBytes(value.FromGrid(g))
	require.NoError(t, err)
	require.Equal(t, hexBytes(t, "18 3c 00 00 14 3e"), got)
}

func TestEncode_DictGolden(t *testing.T) {
	d := value.NewDict()
	d.Set("a", value.Number(1, ""))
	d.Set("b", value.Str("B"))
	got, err := brio.ToBytes(value.FromDict(d))
	require.NoError(t, err)
	require.Equal(t, hexBytes(t, "15 7b 02 ff 01 61 06 00 01 ff 00 ff 01 62 09 ff 01 42 7d"), got)
}

func TestEncode_DictNullEntriesAreSkippedButDictTagRetained(t *testing.T) {
	d := value.NewDict()
	d.Set("removed", value.Null())
	got, err := brio.ToBytes(value.FromDict(d))
	require.NoError(t, err)
	// Non-empty construction with an all-null entry: Dict tag, count 0,
	// not DictEmpty. See SPEC_FULL.md Part D.2.
	require.Equal(t, hexBytes(t, "15 7b 00 7d"), got)
}

func TestEncode_RefStrForNonUUIDShapedID(t *testing.T) {
	v := value.Ref("not-a-handle-id", "Display")
	got, err := brio.ToBytes(v)
	require.NoError(t, err)
	require.Equal(t, byte(0x0A), got[0]) // RefStr tag
}

func TestEncode_RefStrForUppercaseHexID(t *testing.T) {
	// RefI8's packed encoding always round-trips lowercase (decoder.go
	// reconstructs ids via "%08x-%08x"), so an uppercase-hex-shaped id
	// must take the RefStr path instead of RefI8 to preserve its exact
	// casing through decode.
	v := value.Ref("1DEB31B8-7508B187", "Display")
	got, err := brio.ToBytes(v)
	require.NoError(t, err)
	require.Equal(t, byte(0x0A), got[0]) // RefStr tag, not RefI8

	dec := brio.NewDecoder(got, false)
	decoded, err := dec.ReadVal()
	require.NoError(t, err)
	require.True(t, v.Equal(decoded))
}

func TestEncode_IntegerRangeSelection(t *testing.T) {
	cases := []struct {
		n    float64
		tag  byte
	}{
		{32767, 0x06},
		{32768, 0x07},
		{-32767, 0x06},
		{-32768, 0x07},
		{2147483647, 0x07},
		{2147483648, 0x08},
		{1.5, 0x08},
	}
	for _, c := range cases {
		got, err := brio.ToBytes(value.Number(c.n, ""))
		require.NoError(t, err)
		require.Equalf(t, c.tag, got[0], "n=%v", c.n)
	}
}

func TestEncode_NDArray1D(t *testing.T) {
	v := brio.EncodeNDArray1D([]float64{1, 2, 3})
	got, err := brio.ToBytes(v)
	require.NoError(t, err)
	// Encodes as a tagged Dict (ndarray marker dict), never the raw NDArray kind.
	require.Equal(t, byte(0x15), got[0])
}

func TestEncode_NDArrayShapeMismatchRejected(t *testing.T) {
	_, err := brio.EncodeNDArray2D(2, 2, []float64{1, 2, 3})
	require.Error(t, err)
}

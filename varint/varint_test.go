package varint_test

import (
	"testing"

	"github.com/arloliu/brio/varint"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_Boundaries(t *testing.T) {
	cases := []struct {
		val   int64
		bytes int
	}{
		{-1, 1},
		{0, 1},
		{30, 1},
		{64, 1},
		{127, 1},
		{128, 2},
		{1000, 2},
		{16383, 2},
		{16384, 4},
		{500123, 4},
		{536870911, 4},
		{536870912, 9},
		{123456789123, 9},
	}

	for _, c := range cases {
		enc, err := varint.Encode(nil, c.val)
		require.NoError(t, err)
		require.Lenf(t, enc, c.bytes, "value %d", c.val)
		require.Equal(t, c.bytes, varint.Size(c.val))

		got, consumed, err := varint.Decode(enc)
		require.NoError(t, err)
		require.Equal(t, c.val, got)
		require.Equal(t, len(enc), consumed)
	}
}

func TestEncode_RejectsOtherNegatives(t *testing.T) {
	_, err := varint.Encode(nil, -2)
	require.Error(t, err)
}

func TestDecode_NonCanonicalStillAccepted(t *testing.T) {
	// A value that would canonically fit in 1 byte, forced into the 4-byte
	// class. Decode must not reject this even though Encode would never
	// produce it.
	buf := []byte{0xC0, 0, 0, 42}
	got, consumed, err := varint.Decode(buf)
	require.NoError(t, err)
	require.Equal(t, int64(42), got)
	require.Equal(t, 4, consumed)
}

func TestDecode_ShortBuffer(t *testing.T) {
	_, _, err := varint.Decode([]byte{0xC0})
	require.Error(t, err)
}

// Package varint implements the BRIO variable-length integer encoding.
//
// A BRIO varint packs a single signed integer, or the sentinel value -1,
// into 1, 2, 4, or 9 bytes depending on magnitude. The leading bits of the
// first byte select the class:
//
//	11111111            sentinel byte 0xFF  -> -1
//	0xxxxxxx            1 byte              -> 0..127
//	10xxxxxx xxxxxxxx   2 bytes             -> 128..16383
//	110xxxxx ...        4 bytes             -> 16384..536870911
//	1110____ + 8 bytes  9 bytes (tag 0xE0)  -> 536870912..max
//
// Encode always picks the smallest class that fits; Decode accepts any of
// the five prefixes regardless of whether the value would also fit a
// smaller class, since the spec does not require rejecting non-canonical
// input, only producing canonical output.
package varint

import "fmt"

const (
	sentinelByte = 0xFF

	tag1Mask  = 0x80 // 0xxxxxxx
	tag2Mask  = 0xC0 // 10xxxxxx
	tag2Bits  = 0x80
	tag4Mask  = 0xE0 // 110xxxxx
	tag4Bits  = 0xC0
	tag9Mask  = 0xF0 // 1110____, remaining 4 bits unused
	tag9Bits  = 0xE0

	max1 = 1<<7 - 1         // 127
	max2 = 1<<14 - 1        // 16383
	max4 = 1<<29 - 1        // 536870911
)

// Encode appends the canonical varint encoding of n to dst and returns the
// extended slice. n == -1 is the sentinel; all other negative values are
// invalid.
func Encode(dst []byte, n int64) ([]byte, error) {
	switch {
	case n == -1:
		return append(dst, sentinelByte), nil
	case n < 0:
		return nil, fmt.Errorf("varint: negative value %d is not encodable (only -1 is)", n)
	case n <= max1:
		return append(dst, byte(n)), nil
	case n <= max2:
		return append(dst, tag2Bits|byte(n>>8), byte(n)), nil
	case n <= max4:
		return append(dst,
			tag4Bits|byte(n>>24),
			byte(n>>16),
			byte(n>>8),
			byte(n),
		), nil
	default:
		dst = append(dst, tag9Bits)
		for shift := 56; shift >= 0; shift -= 8 {
			dst = append(dst, byte(n>>uint(shift)))
		}
		return dst, nil
	}
}

// Size returns the number of bytes Encode would use for n, without
// allocating.
func Size(n int64) int {
	switch {
	case n == -1:
		return 1
	case n <= max1:
		return 1
	case n <= max2:
		return 2
	case n <= max4:
		return 4
	default:
		return 9
	}
}

// Decode reads one varint from the front of src, returning its value and
// the number of bytes consumed.
func Decode(src []byte) (n int64, consumed int, err error) {
	if len(src) == 0 {
		return 0, 0, fmt.Errorf("varint: empty buffer")
	}

	first := src[0]
	switch {
	case first == sentinelByte:
		return -1, 1, nil
	case first&tag1Mask == 0:
		return int64(first), 1, nil
	case first&tag2Mask == tag2Bits:
		if len(src) < 2 {
			return 0, 0, fmt.Errorf("varint: need 2 bytes, have %d", len(src))
		}
		return int64(first&^tag2Mask)<<8 | int64(src[1]), 2, nil
	case first&tag4Mask == tag4Bits:
		if len(src) < 4 {
			return 0, 0, fmt.Errorf("varint: need 4 bytes, have %d", len(src))
		}
		v := int64(first&^tag4Mask)<<24 | int64(src[1])<<16 | int64(src[2])<<8 | int64(src[3])
		return v, 4, nil
	case first&tag9Mask == tag9Bits:
		if len(src) < 9 {
			return 0, 0, fmt.Errorf("varint: need 9 bytes, have %d", len(src))
		}
		var v int64
		for i := 1; i <= 8; i++ {
			v = v<<8 | int64(src[i])
		}
		return v, 9, nil
	default:
		return 0, 0, fmt.Errorf("varint: unrecognized leading byte 0x%02x", first)
	}
}

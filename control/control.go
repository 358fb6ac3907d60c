// Package control defines the BRIO control byte vocabulary.
//
// Every encoded BRIO value begins with one control byte that selects its
// variant. The table here mirrors the wire format exactly; adding a new
// control byte is a two-line change (constant + String case) but never a
// silent one, since callers match on these named constants rather than on
// raw byte literals.
package control

// Byte identifies the variant encoded by a single BRIO value.
type Byte uint8

const (
	Null        Byte = 0x00
	Marker      Byte = 0x01
	NA          Byte = 0x02
	Remove      Byte = 0x03
	False       Byte = 0x04
	True        Byte = 0x05
	NumI2       Byte = 0x06
	NumI4       Byte = 0x07
	NumF8       Byte = 0x08
	Str         Byte = 0x09
	RefStr      Byte = 0x0A
	RefI8       Byte = 0x0B
	Uri         Byte = 0x0C
	Date        Byte = 0x0D
	Time        Byte = 0x0E
	DateTimeI4  Byte = 0x0F
	DateTimeI8  Byte = 0x10
	Coord       Byte = 0x11
	XStr        Byte = 0x12 // reserved, decoder fails
	Buf         Byte = 0x13
	DictEmpty   Byte = 0x14
	Dict        Byte = 0x15
	ListEmpty   Byte = 0x16
	List        Byte = 0x17
	Grid        Byte = 0x18
	Symbol      Byte = 0x19 // reserved, decoder fails
)

// Framing byte literals used inside Dict/List/Grid bodies.
const (
	DictOpen  byte = '{'
	DictClose byte = '}'
	ListOpen  byte = '['
	ListClose byte = ']'
	GridOpen  byte = '<'
	GridClose byte = '>'
)

// PoolRefSentinel is the varint value that signals a character-counted
// inline string follows, instead of a constant-pool index. BRIO does not
// implement a constant pool, so any non-negative varint prefix read where
// a string is expected is rejected by the decoder.
const PoolRefSentinel int64 = -1

func (b Byte) String() string {
	switch b {
	case Null:
		return "Null"
	case Marker:
		return "Marker"
	case NA:
		return "NA"
	case Remove:
		return "Remove"
	case False:
		return "False"
	case True:
		return "True"
	case NumI2:
		return "NumI2"
	case NumI4:
		return "NumI4"
	case NumF8:
		return "NumF8"
	case Str:
		return "Str"
	case RefStr:
		return "RefStr"
	case RefI8:
		return "RefI8"
	case Uri:
		return "Uri"
	case Date:
		return "Date"
	case Time:
		return "Time"
	case DateTimeI4:
		return "DateTimeI4"
	case DateTimeI8:
		return "DateTimeI8"
	case Coord:
		return "Coord"
	case XStr:
		return "XStr"
	case Buf:
		return "Buf"
	case DictEmpty:
		return "DictEmpty"
	case Dict:
		return "Dict"
	case ListEmpty:
		return "ListEmpty"
	case List:
		return "List"
	case Grid:
		return "Grid"
	case Symbol:
		return "Symbol"
	default:
		return "Unknown"
	}
}

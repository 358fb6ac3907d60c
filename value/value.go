// Package value defines the tagged union of BRIO-representable values.
//
// Value mirrors the teacher's (mebo) preference for exhaustive switches
// over dynamic type assertions: every variant is a named Kind, and
// callers match on Kind() rather than type-switching on interface{}.
// Construction helpers enforce the invariants spec.md pins down at the
// point of creation (Coord range) rather than deferring them to encode
// time. Ref constructors do not validate the id.
package value

import (
	"fmt"
	"time"
)

// Kind discriminates the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindMarker
	KindNA
	KindRemove
	KindBool
	KindNumber
	KindStr
	KindUri
	KindRef
	KindDate
	KindTime
	KindDateTime
	KindCoord
	KindBuf
	KindDict
	KindList
	KindGrid
	KindNDArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindMarker:
		return "Marker"
	case KindNA:
		return "NA"
	case KindRemove:
		return "Remove"
	case KindBool:
		return "Bool"
	case KindNumber:
		return "Number"
	case KindStr:
		return "Str"
	case KindUri:
		return "Uri"
	case KindRef:
		return "Ref"
	case KindDate:
		return "Date"
	case KindTime:
		return "Time"
	case KindDateTime:
		return "DateTime"
	case KindCoord:
		return "Coord"
	case KindBuf:
		return "Buf"
	case KindDict:
		return "Dict"
	case KindList:
		return "List"
	case KindGrid:
		return "Grid"
	case KindNDArray:
		return "NDArray"
	default:
		return "Unknown"
	}
}

// Gridder is implemented by *grid.Grid. Value depends on it instead of
// importing package grid directly, which would create an import cycle
// (grid cells are themselves Values).
type Gridder interface {
	GridKind() // marker method, see grid.Grid
}

// Value is an immutable tagged union over every BRIO-representable shape.
// The zero Value is KindNull.
type Value struct {
	kind Kind

	b    bool
	num  float64
	unit string
	str  string // Str, Uri, Ref.id, DateTime tz name
	dis  string // Ref.dis
	hasDis bool

	date Date
	tod  Time
	dt   DateTime
	crd  Coord

	buf []byte

	dict *Dict
	list []Value
	grid Gridder
	nd   *NDArray
}

// Date is a calendar date with no time-of-day or zone component.
type Date struct {
	Y int16
	M uint8
	D uint8
}

// Time is a time-of-day with millisecond precision.
type Time struct {
	H  uint8
	Mi uint8
	S  uint8
	Ms uint16
}

// DateTime is a nanosecond-precise instant paired with a short IANA zone
// name (the last path segment, e.g. "New_York").
type DateTime struct {
	Instant time.Time
	TZName  string
}

// Coord is a geographic coordinate stored as micro-degrees.
type Coord struct {
	ULat int32
	ULng int32
}

const (
	maxULat = 90_000_000
	maxULng = 180_000_000
)

// NDArray is a row-major 2D float64 matrix, the only shape the wire format
// carries (1D arrays are promoted to an (n, 1) matrix before encoding).
type NDArray struct {
	Rows int
	Cols int
	Data []float64
}

var (
	nullValue   = Value{kind: KindNull}
	markerValue = Value{kind: KindMarker}
	naValue     = Value{kind: KindNA}
	removeValue = Value{kind: KindRemove}
)

func Null() Value   { return nullValue }
func Marker() Value { return markerValue }
func NA() Value     { return naValue }
func Remove() Value { return removeValue }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number constructs a tagged number. unit is the empty string when the
// value carries no unit.
func Number(n float64, unit string) Value {
	return Value{kind: KindNumber, num: n, unit: unit}
}

func Str(s string) Value { return Value{kind: KindStr, str: s} }
func Uri(s string) Value { return Value{kind: KindUri, str: s} }

// Ref constructs a reference. dis is optional; pass "" with hasDis=false
// via RefNoDis, or use Ref for the common present-dis case.
func Ref(id, dis string) Value {
	return Value{kind: KindRef, str: id, dis: dis, hasDis: true}
}

// RefNoDis constructs a reference with no display string at all (encoded
// as an empty dis string, per spec.md RefI8/RefStr discipline).
func RefNoDis(id string) Value {
	return Value{kind: KindRef, str: id, hasDis: false}
}

func NewDate(y int16, m, d uint8) Value {
	return Value{kind: KindDate, date: Date{Y: y, M: m, D: d}}
}

func NewTime(h, m, s uint8, ms uint16) Value {
	return Value{kind: KindTime, tod: Time{H: h, Mi: m, S: s, Ms: ms}}
}

// NewDateTime constructs a DateTime value. instant must already carry the
// intended timezone's wall-clock offset; tzName is the short (last path
// segment) IANA name recorded on the wire.
func NewDateTime(instant time.Time, tzName string) Value {
	return Value{kind: KindDateTime, dt: DateTime{Instant: instant, TZName: tzName}}
}

// NewCoord validates the micro-degree range invariant at construction
// time, per spec.md §3, rather than deferring the check to encode time.
func NewCoord(ulat, ulng int32) (Value, error) {
	if ulat > maxULat || ulat < -maxULat {
		return Value{}, fmt.Errorf("value: coord ulat %d out of range [-%d, %d]", ulat, maxULat, maxULat)
	}
	if ulng > maxULng || ulng < -maxULng {
		return Value{}, fmt.Errorf("value: coord ulng %d out of range [-%d, %d]", ulng, maxULng, maxULng)
	}
	return Value{kind: KindCoord, crd: Coord{ULat: ulat, ULng: ulng}}, nil
}

func Buf(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{kind: KindBuf, buf: cp}
}

func FromDict(d *Dict) Value { return Value{kind: KindDict, dict: d} }
func FromList(l []Value) Value {
	cp := make([]Value, len(l))
	copy(cp, l)
	return Value{kind: KindList, list: cp}
}
func FromGrid(g Gridder) Value { return Value{kind: KindGrid, grid: g} }
func FromNDArray(nd *NDArray) Value { return Value{kind: KindNDArray, nd: nd} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) Bool() bool { return v.b }

func (v Value) Number() (n float64, unit string) { return v.num, v.unit }

func (v Value) Str() string { return v.str }
func (v Value) Uri() string { return v.str }

// RefID returns the Ref's identifier.
func (v Value) RefID() string { return v.str }

// RefDis returns the Ref's display string and whether one was set.
func (v Value) RefDis() (string, bool) { return v.dis, v.hasDis }

func (v Value) Date() Date         { return v.date }
func (v Value) Time() Time         { return v.tod }
func (v Value) DateTime() DateTime { return v.dt }
func (v Value) Coord() Coord       { return v.crd }
func (v Value) Buf() []byte        { return v.buf }
func (v Value) Dict() *Dict        { return v.dict }
func (v Value) List() []Value      { return v.list }
func (v Value) Grid() Gridder      { return v.grid }
func (v Value) NDArray() *NDArray  { return v.nd }

// Equal implements the equality rules from spec.md §3: singletons compare
// only to themselves, Ref compares by id alone, and Number requires both
// the numeric value and the unit to match (units are part of the
// observable value on the wire).
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull, KindMarker, KindNA, KindRemove:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.num == o.num && v.unit == o.unit
	case KindStr, KindUri:
		return v.str == o.str
	case KindRef:
		return v.str == o.str
	case KindDate:
		return v.date == o.date
	case KindTime:
		return v.tod == o.tod
	case KindDateTime:
		return v.dt.Instant.Equal(o.dt.Instant) && v.dt.TZName == o.dt.TZName
	case KindCoord:
		return v.crd == o.crd
	case KindBuf:
		if len(v.buf) != len(o.buf) {
			return false
		}
		for i := range v.buf {
			if v.buf[i] != o.buf[i] {
				return false
			}
		}
		return true
	case KindDict:
		return v.dict.Equal(o.dict)
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindNDArray:
		if v.nd.Rows != o.nd.Rows || v.nd.Cols != o.nd.Cols || len(v.nd.Data) != len(o.nd.Data) {
			return false
		}
		for i := range v.nd.Data {
			if v.nd.Data[i] != o.nd.Data[i] {
				return false
			}
		}
		return true
	case KindGrid:
		// grid equality is structural and lives in package grid; Value
		// defers to it via the Gridder's own Equal if present.
		if eq, ok := v.grid.(interface{ Equal(Gridder) bool }); ok {
			return eq.Equal(o.grid)
		}
		return v.grid == o.grid
	default:
		return false
	}
}

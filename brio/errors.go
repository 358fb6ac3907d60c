// Package brio implements the BRIO decoder and encoder: the byte-cursor
// reader and writer pair that turn wire bytes into value.Value (and back)
// per spec.md §4.2/§4.3.
//
// Grounded on the teacher's blob.TextDecoder/NumericEncoder pair: a
// struct wrapping the raw bytes plus cursor state, a constructor that
// does up-front validation, and methods returning (result, error) rather
// than panicking on malformed input.
package brio

import (
	"errors"

	"github.com/arloliu/brio/grid"
	"github.com/arloliu/brio/internal/tzcache"
)

// Sentinel errors, one per spec.md §7 error kind that originates inside
// this package. Decode/encode failures wrap these with
// fmt.Errorf("...: %w", ...) so callers can match with errors.Is while
// still getting position/control-byte context in the message.
//
// invalid-tagname and duplicate-column live in package grid (the only
// place they can occur); unknown-timezone lives in package tzcache. They
// are aliased here so a caller importing only package brio can still
// match on the full error-kind vocabulary from spec.md §7 with one
// import.
var (
	ErrShortBuffer              = errors.New("short-buffer")
	ErrUnsupportedControl       = errors.New("unsupported-control")
	ErrConstantPoolNotSupported = errors.New("constant-pool-not-supported")
	ErrInvalidUTF8              = errors.New("invalid-utf8")
	ErrTypeMismatch             = errors.New("type-mismatch")
	ErrEncodeUnsupported        = errors.New("encode-unsupported")
	ErrShapeUnsupported         = errors.New("shape-unsupported")

	ErrUnknownTimezone = tzcache.ErrUnknownTimezone
	ErrInvalidTagname  = grid.ErrInvalidTagname
	ErrDuplicateColumn = grid.ErrDuplicateColumn
)

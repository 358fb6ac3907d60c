package grid

import "errors"

// Sentinel errors for grid construction, matching the `invalid-tagname`
// and `duplicate-column` error kinds from spec.md §7. Package brio
// re-exports these same values and returns them from grid decode as
// AddColumn reports them; they are not redefined there to avoid a second
// source of truth for the same failure kind.
var (
	ErrInvalidTagname  = errors.New("invalid-tagname")
	ErrDuplicateColumn = errors.New("duplicate-column")
)

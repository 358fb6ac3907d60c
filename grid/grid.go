// Package grid implements the BRIO grid model: an ordered, typed table of
// rows with per-column and grid-level metadata.
//
// Grounded on the teacher's section/text_header.go + blob/text_blob.go
// split between an immutable, frozen-after-construction header and a
// growable payload: here the "header" is the column list (frozen after
// the first row is added) and the "payload" is the row slice.
package grid

import (
	"fmt"
	"regexp"

	"github.com/arloliu/brio/value"
)

var tagnameRE = regexp.MustCompile(`^[a-z][A-Za-z0-9_]*$`)

// ValidTagname reports whether name satisfies the BRIO tagname rule: a
// lowercase leading letter followed by alphanumerics or underscores.
func ValidTagname(name string) bool {
	return tagnameRE.MatchString(name)
}

// Column holds a column's name and its (possibly empty) metadata dict.
type Column struct {
	Name string
	Meta *value.Dict
}

// Grid is an ordered table: columns carry their own metadata, the grid
// itself carries a metadata dict, and rows are cell vectors whose length
// always equals the column count.
type Grid struct {
	meta    *value.Dict
	columns []Column
	rows    [][]value.Value
}

// GridKind satisfies value.Gridder so *Grid can be embedded in a
// value.Value without an import cycle between package value and package
// grid.
func (g *Grid) GridKind() {}

// Meta returns the grid-level metadata dict.
func (g *Grid) Meta() *value.Dict { return g.meta }

// Columns returns the column list in insertion (and on-wire) order. The
// returned slice must not be mutated.
func (g *Grid) Columns() []Column { return g.columns }

// NumCols returns the column count.
func (g *Grid) NumCols() int { return len(g.columns) }

// NumRows returns the row count.
func (g *Grid) NumRows() int { return len(g.rows) }

// Row returns the cell vector for row i.
func (g *Grid) Row(i int) []value.Value { return g.rows[i] }

// Rows returns all rows. The returned slice must not be mutated.
func (g *Grid) Rows() [][]value.Value { return g.rows }

// ColIndex returns the index of the named column, or -1 if absent.
func (g *Grid) ColIndex(name string) int {
	for i, c := range g.columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Equal reports structural equality: same metadata, same columns in the
// same order (including column metadata), and same rows.
func (g *Grid) Equal(other value.Gridder) bool {
	o, ok := other.(*Grid)
	if !ok {
		return false
	}
	if g == nil || o == nil {
		return g == o
	}
	if !g.meta.Equal(o.meta) {
		return false
	}
	if len(g.columns) != len(o.columns) {
		return false
	}
	for i := range g.columns {
		if g.columns[i].Name != o.columns[i].Name {
			return false
		}
		if !g.columns[i].Meta.Equal(o.columns[i].Meta) {
			return false
		}
	}
	if len(g.rows) != len(o.rows) {
		return false
	}
	for i := range g.rows {
		if len(g.rows[i]) != len(o.rows[i]) {
			return false
		}
		for j := range g.rows[i] {
			if !g.rows[i][j].Equal(o.rows[i][j]) {
				return false
			}
		}
	}
	return true
}

// Builder accumulates columns and rows, freezing the column set the
// moment the first row is added (spec.md §3 Grid invariants).
type Builder struct {
	meta    *value.Dict
	columns []Column
	seen    map[string]struct{}
	rows    [][]value.Value
	frozen  bool
}

// NewBuilder returns a Builder with the given grid-level metadata (may be
// nil, treated as empty).
func NewBuilder(meta *value.Dict) *Builder {
	if meta == nil {
		meta = value.NewDict()
	}
	return &Builder{meta: meta, seen: make(map[string]struct{})}
}

// AddColumn appends a column definition. Returns an error if the column
// set is already frozen, the name fails the tagname rule, or the name is
// a duplicate.
func (b *Builder) AddColumn(name string, meta *value.Dict) error {
	if b.frozen {
		return fmt.Errorf("grid: cannot add column %q after the first row", name)
	}
	if !ValidTagname(name) {
		return fmt.Errorf("grid: %w: %q", ErrInvalidTagname, name)
	}
	if _, dup := b.seen[name]; dup {
		return fmt.Errorf("grid: %w: %q", ErrDuplicateColumn, name)
	}
	if meta == nil {
		meta = value.NewDict()
	}
	b.seen[name] = struct{}{}
	b.columns = append(b.columns, Column{Name: name, Meta: meta})
	return nil
}

// AddRow appends a row, freezing the column set as a side effect of the
// first call. cells must have exactly NumCols entries.
func (b *Builder) AddRow(cells []value.Value) error {
	b.frozen = true
	if len(cells) != len(b.columns) {
		return fmt.Errorf("grid: row has %d cells, grid has %d columns", len(cells), len(b.columns))
	}
	row := make([]value.Value, len(cells))
	copy(row, cells)
	b.rows = append(b.rows, row)
	return nil
}

// NumCols returns the number of columns defined so far.
func (b *Builder) NumCols() int { return len(b.columns) }

// Build finalizes the grid. The builder must not be reused afterward.
func (b *Builder) Build() *Grid {
	return &Grid{meta: b.meta, columns: b.columns, rows: b.rows}
}

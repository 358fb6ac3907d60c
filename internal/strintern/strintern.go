// Package strintern provides a per-decoder string interning table.
//
// Grounded on the same xxhash-keyed lookup pattern as internal/tzcache
// (and, before it, the teacher's internal/hash.ID): a hash-keyed map used
// purely to dedupe repeated allocations. Per spec.md §9, interning is a
// pure performance concern and must never change observable decode
// results — callers must treat Intern's return value as equal to, not
// merely similar to, its input.
package strintern

import "github.com/cespare/xxhash/v2"

// Table dedupes strings seen during a single decode session.
type Table struct {
	seen map[uint64]string
}

// New returns an empty interning table, scoped to one decoder instance
// per spec.md §3 "Lifecycle".
func New() *Table {
	return &Table{seen: make(map[uint64]string)}
}

// Intern returns s, or an earlier equal string already in the table if
// one exists. The first occurrence of any given string is always
// returned verbatim.
func (t *Table) Intern(s string) string {
	key := xxhash.Sum64String(s)
	if existing, ok := t.seen[key]; ok && existing == s {
		return existing
	}
	t.seen[key] = s
	return s
}

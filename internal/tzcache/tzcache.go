// Package tzcache interns resolved *time.Location values by their BRIO
// short name (e.g. "New_York"), so a decode session pays the IANA zone
// search at most once per distinct name.
//
// Grounded on the teacher's internal/hash.ID (xxhash64 keyed lookup): we
// reuse xxhash for the same reason mebo does — a cheap, well-distributed
// key for a map that may see the same string many times per session —
// just applied to timezone short names and interned strings instead of
// metric name hashes.
package tzcache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ErrUnknownTimezone is returned when the host IANA database has no zone
// matching a short name. Per spec.md §9, this is a failure by design, not
// a fallback.
var ErrUnknownTimezone = errors.New("unknown-timezone")

// Cache resolves BRIO short timezone names to *time.Location, scoped to a
// single decoder instance (spec.md §5: "per-decoder ... interning tables
// are scoped to one decode session").
type Cache struct {
	mu  sync.Mutex
	byHash map[uint64]*time.Location
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{byHash: make(map[uint64]*time.Location)}
}

// Resolve returns the *time.Location for shortName, searching the host's
// IANA database for a zone whose full name equals shortName or ends with
// "/"+shortName (spec.md §4.2 Timezone resolution). Not found is a hard
// error: the spec treats a missing zone as a failure by design, never a
// fallback (spec.md §9).
func (c *Cache) Resolve(shortName string) (*time.Location, error) {
	key := xxhash.Sum64String(shortName)

	c.mu.Lock()
	if loc, ok := c.byHash[key]; ok {
		c.mu.Unlock()
		return loc, nil
	}
	c.mu.Unlock()

	loc, err := findZone(shortName)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.byHash[key] = loc
	c.mu.Unlock()

	return loc, nil
}

// findZone searches the system's set of IANA names for a zone matching
// shortName exactly or as the last path segment of a longer name (e.g.
// "New_York" matches "America/New_York", and "Buenos_Aires" matches the
// three-segment "America/Argentina/Buenos_Aires"), mirroring the
// original reader's loop over zoneinfo.available_timezones() rather
// than guessing at area prefixes. time.LoadLocation already resolves a
// full IANA name directly, so that is tried first as a fast path before
// falling back to the enumerated search.
func findZone(shortName string) (*time.Location, error) {
	if shortName == "" {
		return nil, fmt.Errorf("tzcache: %w: empty zone name", ErrUnknownTimezone)
	}

	if loc, err := time.LoadLocation(shortName); err == nil {
		return loc, nil
	}

	suffix := "/" + shortName
	for _, full := range systemZoneNames() {
		if full != shortName && !strings.HasSuffix(full, suffix) {
			continue
		}
		if loc, err := time.LoadLocation(full); err == nil {
			return loc, nil
		}
	}

	return nil, fmt.Errorf("tzcache: %w: %q", ErrUnknownTimezone, shortName)
}

// ShortName returns the last "/"-delimited segment of a full IANA zone
// name, or the full name unchanged if it has no slash. Used by the
// encoder when turning a *time.Location's Name() back into the wire's
// short form.
func ShortName(fullName string) string {
	if i := strings.LastIndexByte(fullName, '/'); i >= 0 {
		return fullName[i+1:]
	}
	return fullName
}

var (
	zoneNamesOnce sync.Once
	zoneNames     []string
)

// zoneInfoRoots are the directories consulted for the system tzdata tree,
// in order, the same way a libc or Python zoneinfo install searches for
// one. The first that exists is walked; ZONEINFO, when set, overrides all
// of them.
var zoneInfoRoots = []string{
	"/usr/share/zoneinfo",
	"/usr/lib/zoneinfo",
	"/usr/share/lib/zoneinfo",
	"/etc/zoneinfo",
}

// zoneDirSkip holds subdirectory names that duplicate the main tree under
// a different rule set (POSIX-style or leap-second-aware), not additional
// zones.
var zoneDirSkip = map[string]bool{
	"posix": true,
	"right": true,
}

// systemZoneNames enumerates every IANA zone name the host tzdata
// install knows about, e.g. "America/Argentina/Buenos_Aires", the Go
// equivalent of Python's zoneinfo.available_timezones(). The walk runs
// once per process and is cached; tzdata does not change while a process
// is running.
func systemZoneNames() []string {
	zoneNamesOnce.Do(func() {
		root := os.Getenv("ZONEINFO")
		if root == "" {
			for _, candidate := range zoneInfoRoots {
				if info, err := os.Stat(candidate); err == nil && info.IsDir() {
					root = candidate
					break
				}
			}
		}
		if root == "" {
			return
		}
		zoneNames = walkZoneNames(root)
	})
	return zoneNames
}

// walkZoneNames walks root and returns every regular file's path
// relative to root, using "/" separators regardless of host OS. Index
// and metadata files (zone.tab, iso3166.tab, tzdata.zi, …) all carry a
// "." in their name and are filtered out; the handful of dotless
// non-zone files that remain (leapseconds, +VERSION) never collide with
// a real short timezone name, so they are harmless false entries rather
// than something worth a dedicated exclusion list.
func walkZoneNames(root string) []string {
	var names []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if zoneDirSkip[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.Contains(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	return names
}

package tzcache_test

import (
	"testing"

	"github.com/arloliu/brio/internal/tzcache"
	"github.com/stretchr/testify/require"
)

func TestResolve_KnownZone(t *testing.T) {
	c := tzcache.New()
	loc, err := c.Resolve("New_York")
	require.NoError(t, err)
	require.Contains(t, loc.String(), "New_York")
}

func TestResolve_UnknownZoneFails(t *testing.T) {
	c := tzcache.New()
	_, err := c.Resolve("Not_A_Real_Zone")
	require.Error(t, err)
}

func TestResolve_MultiSegmentZone(t *testing.T) {
	c := tzcache.New()
	loc, err := c.Resolve("Buenos_Aires")
	require.NoError(t, err)
	require.Contains(t, loc.String(), "Buenos_Aires")
}

func TestResolve_ZoneUnderUncommonPrefix(t *testing.T) {
	c := tzcache.New()
	loc, err := c.Resolve("GMT+5") // Etc/GMT+5
	require.NoError(t, err)
	require.Contains(t, loc.String(), "GMT+5")
}

func TestResolve_Interns(t *testing.T) {
	c := tzcache.New()
	a, err := c.Resolve("Chicago")
	require.NoError(t, err)
	b, err := c.Resolve("Chicago")
	require.NoError(t, err)
	require.Same(t, a, b)
}

func TestShortName(t *testing.T) {
	require.Equal(t, "New_York", tzcache.ShortName("America/New_York"))
	require.Equal(t, "UTC", tzcache.ShortName("UTC"))
}

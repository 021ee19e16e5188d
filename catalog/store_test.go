package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFindCompatiblePicksHighest is scenario S3.
func TestFindCompatiblePicksHighest(t *testing.T) {
	s := NewStore()
	s.Register(Metadata{PluginID: "P", Version: v("1.0.0")})
	s.Register(Metadata{PluginID: "P", Version: v("1.2.0")})
	s.Register(Metadata{PluginID: "P", Version: v("2.0.0")})

	got, ok := s.FindCompatible("P", v("1.0.0"))
	require.True(t, ok)
	require.Equal(t, "1.2.0", got.Version.String())
}

func TestFindCompatibleReturnsFalseWhenNoneMatch(t *testing.T) {
	s := NewStore()
	s.Register(Metadata{PluginID: "P", Version: v("2.0.0")})

	_, ok := s.FindCompatible("P", v("1.0.0"))
	require.False(t, ok)
}

func TestFindCompatibleReturnsFalseForUnknownPlugin(t *testing.T) {
	s := NewStore()
	_, ok := s.FindCompatible("missing", v("1.0.0"))
	require.False(t, ok)
}

func TestRegisterReplacesExistingVersion(t *testing.T) {
	s := NewStore()
	s.Register(Metadata{PluginID: "P", Version: v("1.0.0")})
	s.Register(Metadata{PluginID: "P", Version: v("1.0.0")})

	require.Len(t, s.Versions("P"), 1)
}

func TestVersionsReturnsIndependentSnapshot(t *testing.T) {
	s := NewStore()
	s.Register(Metadata{PluginID: "P", Version: v("1.0.0")})

	snap := s.Versions("P")
	snap[0].Version = v("9.9.9")

	require.Equal(t, "1.0.0", s.Versions("P")[0].Version.String())
}

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gapsync/internal/types"
)

// ---------------------------------------------------------------------------
// rpmvercmp
// ---------------------------------------------------------------------------

func TestRpmvercmpOrdering(t *testing.T) {
	tests := []struct {
		a        string
		b        string
		expected int
	}{
		{"1.0", "1.0", 0},
		{"1.0", "1.1", -1},
		{"1.1", "1.0", 1},
		{"1.10", "1.9", 1},
		{"2.0.1", "2.0", 1},
		{"5.5p1", "5.5p2", -1},
		{"5.5p10", "5.5p1", 1},
		{"10xyz", "10.1xyz", -1},
		{"xyz10", "xyz10.1", -1},
		{"xyz.4", "xyz.4", 0},
		{"xyz.4", "8", -1},
		{"2a", "2.0", -1},
		{"fc4", "fc.4", 0},

		// Leading zeroes in numeric segments are not significant.
		{"1.05", "1.5", 0},
		{"1.0010", "1.9", 1},
		{"0001", "1", 0},

		// Tilde sorts before everything, including end of string.
		{"1.0~rc1", "1.0", -1},
		{"1.0", "1.0~rc1", 1},
		{"1.0~rc1", "1.0~rc1", 0},
		{"1.0~rc1", "1.0~rc2", -1},
		{"1.0~rc1~git123", "1.0~rc1", -1},

		// Caret sorts after end of string but before a longer version.
		{"1.0^", "1.0", 1},
		{"1.0", "1.0^", -1},
		{"1.0^", "1.0^", 0},
		{"1.0^git1", "1.0", 1},
		{"1.0^git1", "1.01", -1},
		{"1.0^20220101", "1.0.1", -1},
		{"1.0~rc1^git1", "1.0~rc1", 1},
		{"1.0^git1~pre", "1.0^git1", -1},

		// Release-style strings.
		{"1.el9", "1.el9", 0},
		{"1.el9", "1.el9_1", -1},
		{"2.fc33", "2.fc34", -1},
		{"1.el9", "1.el10", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, rpmvercmp(tt.a, tt.b), "rpmvercmp(%q, %q)", tt.a, tt.b)
	}
}

func TestRpmvercmpNumericBeatsAlpha(t *testing.T) {
	assert.Equal(t, -1, rpmvercmp("a", "1"))
	assert.Equal(t, 1, rpmvercmp("1", "a"))
	assert.Equal(t, -1, rpmvercmp("1.a", "1.1"))
}

// ---------------------------------------------------------------------------
// Compare / IsNewer
// ---------------------------------------------------------------------------

func TestCompareEpochDominates(t *testing.T) {
	older := types.EVR{Epoch: "0", Version: "9.9", Release: "9.el9"}
	newer := types.EVR{Epoch: "1", Version: "1.0", Release: "1.el9"}
	assert.Equal(t, -1, Compare(older, newer))
	assert.Equal(t, 1, Compare(newer, older))
}

func TestCompareVersionThenRelease(t *testing.T) {
	a := types.EVR{Epoch: "0", Version: "5.1.8", Release: "1.el9"}
	b := types.EVR{Epoch: "0", Version: "5.2.15", Release: "1.el9"}
	assert.Equal(t, -1, Compare(a, b))

	c := types.EVR{Epoch: "0", Version: "5.1.8", Release: "2.el9"}
	assert.Equal(t, -1, Compare(a, c))
	assert.Equal(t, 0, Compare(a, a))
}

func TestCompareMalformedEpochFallsBackToStrings(t *testing.T) {
	a := types.EVR{Epoch: "abc", Version: "1.0", Release: "1"}
	b := types.EVR{Epoch: "abd", Version: "1.0", Release: "1"}
	assert.Equal(t, -1, Compare(a, b))
}

func TestCompareProperties(t *testing.T) {
	versions := []types.EVR{
		{Epoch: "0", Version: "1.0~rc1", Release: "1.el9"},
		{Epoch: "0", Version: "1.0", Release: "1.el9"},
		{Epoch: "0", Version: "1.0^git1", Release: "1.el9"},
		{Epoch: "0", Version: "1.0.1", Release: "1.el9"},
		{Epoch: "0", Version: "1.0.1", Release: "2.el9"},
		{Epoch: "1", Version: "0.1", Release: "1.el9"},
	}
	// The list above is in strictly ascending order; check every pair in
	// both directions and reflexivity along the way.
	for i := range versions {
		assert.Equal(t, 0, Compare(versions[i], versions[i]))
		for j := i + 1; j < len(versions); j++ {
			assert.Equal(t, -1, Compare(versions[i], versions[j]), "%v < %v", versions[i], versions[j])
			assert.Equal(t, 1, Compare(versions[j], versions[i]), "%v > %v", versions[j], versions[i])
		}
	}
}

func TestIsNewer(t *testing.T) {
	installed := types.EVR{Epoch: "0", Version: "5.1.8", Release: "1.el9"}
	assert.True(t, IsNewer(installed, types.EVR{Epoch: "0", Version: "5.2.15", Release: "1.el9"}))
	assert.False(t, IsNewer(installed, installed))
	assert.False(t, IsNewer(installed, types.EVR{Epoch: "0", Version: "5.0.0", Release: "1.el9"}))
}

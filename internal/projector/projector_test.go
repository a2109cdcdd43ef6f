package projector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metno/gobufr/internal/descriptor"
)

func TestPlatformGateExcluded(t *testing.T) {
	require.True(t, platformGateExcluded(descriptor.New(0, 10, 55)))
	require.True(t, platformGateExcluded(descriptor.New(0, 22, 67)))
	require.True(t, platformGateExcluded(descriptor.New(0, 25, 0)))
	require.True(t, platformGateExcluded(descriptor.New(0, 31, 1)))
	require.True(t, platformGateExcluded(descriptor.New(0, 35, 0)))
	require.False(t, platformGateExcluded(descriptor.New(0, 10, 4)))
	require.False(t, platformGateExcluded(descriptor.New(0, 12, 101)))
}

func TestIsEmissionTrigger(t *testing.T) {
	cases := []struct {
		id   descriptor.Id
		want bool
	}{
		{descriptor.New(0, 10, 4), true},
		{descriptor.New(0, 10, 51), true},
		{descriptor.New(0, 10, 9), false},
		{descriptor.New(0, 11, 1), true},
		{descriptor.New(0, 11, 2), true},
		{descriptor.New(0, 12, 101), true},
		{descriptor.New(0, 12, 103), true},
		{descriptor.New(0, 13, 3), true},
		{descriptor.New(0, 13, 4), false},
		{descriptor.New(0, 22, 45), true},
		{descriptor.New(0, 1, 1), false},
	}
	for _, c := range cases {
		require.Equal(t, c.want, isEmissionTrigger(c.id), c.id.String())
	}
}

func TestCFNameForFallsBackToTableB(t *testing.T) {
	name, unit := cfNameFor(descriptor.New(0, 12, 101), "fallback_name", "fallback_unit")
	require.Equal(t, "air_temperature", name)
	require.Equal(t, "K", unit)

	name, unit = cfNameFor(descriptor.New(0, 99, 99), "fallback_name", "fallback_unit")
	require.Equal(t, "fallback_name", name)
	require.Equal(t, "fallback_unit", unit)
}

func TestApplyReplCharsReplacesDash(t *testing.T) {
	require.Equal(t, "buoy_12_a", applyReplChars("buoy-12-a"))
	require.Equal(t, "plain", applyReplChars("plain"))
}

func TestLookupCountryCode(t *testing.T) {
	iso, ok := lookupCountryCode(1)
	require.True(t, ok)
	require.Equal(t, 840, iso)

	_, ok = lookupCountryCode(999999)
	require.False(t, ok)
}

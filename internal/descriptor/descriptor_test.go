package descriptor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metno/gobufr/internal/descriptor"
)

func TestIdPackedRoundTrip(t *testing.T) {
	id := descriptor.New(0, 12, 101)
	got := descriptor.FromPacked(id.Packed())
	require.Equal(t, id, got)
}

func TestIdDecimalRoundTrip(t *testing.T) {
	id := descriptor.New(0, 10, 4)
	require.Equal(t, 10004, id.Decimal())
	require.Equal(t, id, descriptor.FromDecimal(id.Decimal()))
}

func TestIdLess(t *testing.T) {
	a := descriptor.New(0, 1, 1)
	b := descriptor.New(0, 1, 2)
	require.True(t, a.Less(b))
	require.False(t, b.Less(a))
}

func TestCanonicalUnit(t *testing.T) {
	require.Equal(t, descriptor.UnitCodeTable, descriptor.CanonicalUnit("Code table"))
	require.Equal(t, descriptor.UnitFlagTable, descriptor.CanonicalUnit("Flag table"))
	require.Equal(t, descriptor.UnitCCITTIA5, descriptor.CanonicalUnit("CCITT IA5"))
	require.Equal(t, "K", descriptor.CanonicalUnit("K"))
}

func TestPoolDedup(t *testing.T) {
	pool := descriptor.NewPool()
	m1 := descriptor.Meta{Name: "a", Unit: "K", Scale: 1, Reference: 0, DataWidth: 8}
	p1 := pool.Intern(m1)
	p2 := pool.Intern(m1)
	require.Same(t, p1, p2)
	require.Equal(t, 1, pool.Len())

	m2 := m1
	m2.Scale = 2
	p3 := pool.Intern(m2)
	require.NotSame(t, p1, p3)
	require.Equal(t, 2, pool.Len())
}

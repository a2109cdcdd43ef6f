package wsi_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metno/gobufr/internal/wsi"
)

func TestParseRoundTrip(t *testing.T) {
	s := "0-20000-0-12345"
	id, err := wsi.Parse(s)
	require.NoError(t, err)
	require.Equal(t, s, id.String())
}

func TestParseRejectsOverlongLocal(t *testing.T) {
	_, err := wsi.Parse("0-578-2024-012345678901234567")
	require.Error(t, err)
}

func TestParseRejectsIssuerOverRange(t *testing.T) {
	_, err := wsi.Parse("0-99999-0-abc")
	require.Error(t, err)
}

func TestCompareOrdering(t *testing.T) {
	a, _ := wsi.Parse("0-1-0-aaa")
	b, _ := wsi.Parse("0-2-0-aaa")
	require.True(t, wsi.Less(a, b))
	require.False(t, wsi.Less(b, a))
	require.Equal(t, 0, wsi.Compare(a, a))
}

func TestSetWMO(t *testing.T) {
	var id wsi.ID
	id.SetWMO(12345)
	require.Equal(t, "12345", id.Local)
	require.Equal(t, uint16(20000), id.Issuer)
}

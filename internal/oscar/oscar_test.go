package oscar_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metno/gobufr/internal/oscar"
	"github.com/metno/gobufr/internal/wsi"
)

func TestLoadRegistryAndLookup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "oscar.json")
	content := `{
		"stationSearchResults": [
			{
				"wigosId": "0-20000-0-01492",
				"name": "OSLO BLINDERN",
				"latitude": 59.942,
				"longitude": 10.72
			}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	reg, err := oscar.LoadRegistry(path)
	require.NoError(t, err)
	require.Equal(t, 1, reg.Size())

	id, err := wsi.Parse("0-20000-0-01492")
	require.NoError(t, err)
	st, ok := reg.Lookup(id)
	require.True(t, ok)
	require.Equal(t, "OSLO BLINDERN", st.Name)
	require.True(t, st.HasLatLon)
	require.InDelta(t, 59.942, st.Latitude, 1e-9)
}

func TestLookupMiss(t *testing.T) {
	reg := &oscar.Registry{}
	_, ok := reg.Lookup(wsi.ID{})
	require.False(t, ok)
}

package tables_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metno/gobufr/internal/descriptor"
	"github.com/metno/gobufr/internal/tables"
)

func TestDetectFormat(t *testing.T) {
	require.Equal(t, tables.FormatWMOCSV, tables.DetectFormat("BUFRCREX_TableB_en.txt"))
	require.Equal(t, tables.FormatECCodes, tables.DetectFormat("element.table"))
	require.Equal(t, tables.FormatECCodes, tables.DetectFormat("/defs/codetables/0-01-001.table"))
	require.Equal(t, tables.FormatOPERA, tables.DetectFormat("opera_tableb.csv"))
}

func TestLoadTableBWMOCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "BUFRCREX_TableB_en.txt")
	content := "FXY,ElementName_en,BUFR_Unit,BUFR_Scale,BUFR_ReferenceValue,BUFR_DataWidth_Bits\n" +
		"010004,AIR PRESSURE,Pa,-1,0,14\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tb, err := tables.LoadTableB(path, tables.FormatWMOCSV)
	require.NoError(t, err)

	meta, ok := tb[descriptor.FromDecimal(10004)]
	require.True(t, ok)
	require.Equal(t, "AIR PRESSURE", meta.Name)
	require.Equal(t, -1, meta.Scale)
	require.Equal(t, uint(14), meta.DataWidth)
}

func TestRegistryLookupMissStrictVsSentinel(t *testing.T) {
	reg := tables.NewRegistry()
	_, err := reg.LookupB(1, descriptor.New(0, 1, 1), true)
	require.ErrorIs(t, err, tables.ErrNotFound)

	m, err := reg.LookupB(1, descriptor.New(0, 1, 1), false)
	require.NoError(t, err)
	require.Equal(t, descriptor.Meta{}, m)
}

func TestRegistryMergeAcrossCalls(t *testing.T) {
	reg := tables.NewRegistry()
	reg.AddTableB(1, tables.TableB{descriptor.New(0, 1, 1): {Name: "A"}})
	reg.AddTableB(1, tables.TableB{descriptor.New(0, 1, 2): {Name: "B"}})

	m1, err := reg.LookupB(1, descriptor.New(0, 1, 1), true)
	require.NoError(t, err)
	require.Equal(t, "A", m1.Name)

	m2, err := reg.LookupB(1, descriptor.New(0, 1, 2), true)
	require.NoError(t, err)
	require.Equal(t, "B", m2.Name)
}

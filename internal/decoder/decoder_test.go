package decoder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metno/gobufr/internal/bitio"
	"github.com/metno/gobufr/internal/bufrio"
	"github.com/metno/gobufr/internal/decoder"
	"github.com/metno/gobufr/internal/descriptor"
	"github.com/metno/gobufr/internal/tables"
)

const testVersion = tables.Version(13)

func newTestRegistry() *tables.Registry {
	reg := tables.NewRegistry()
	reg.AddTableB(testVersion, tables.TableB{
		descriptor.New(0, 1, 1):   {Name: "block_number", Unit: "Numeric", DataWidth: 7},
		descriptor.New(0, 1, 2):   {Name: "station_number", Unit: "Numeric", DataWidth: 10},
		descriptor.New(0, 5, 2):   {Name: "latitude", Unit: "Degree", Scale: 2, Reference: -9000, DataWidth: 15},
		descriptor.New(0, 6, 2):   {Name: "longitude", Unit: "Degree", Scale: 2, Reference: -18000, DataWidth: 16},
		descriptor.New(0, 12, 101): {Name: "temperature", Unit: "K", Scale: 1, Reference: -2732, DataWidth: 12},
		descriptor.New(0, 31, 1):  {Name: "delayed_repeat", Unit: "Numeric", DataWidth: 8},
	})
	return reg
}

func section1() bufrio.Section1 {
	return bufrio.Section1{VersionMaster: uint8(testVersion), Centre: 88, DataCategory: 0}
}

func buildMessage(descs []descriptor.Id, obsComp uint8, subsets uint16, payload *bitio.Writer) *bufrio.Message {
	buf := payload.Buffer()
	return &bufrio.Message{
		Edition:  4,
		Section1: section1(),
		Section3: bufrio.Section3{Subsets: subsets, ObsComp: obsComp, Descriptors: descs},
		Section4Bits: buf.Bytes(),
		Section4Len:  buf.Len(),
	}
}

func TestDecodeMinimalSynop(t *testing.T) {
	reg := newTestRegistry()
	d := decoder.New(reg, nil)

	descs := []descriptor.Id{
		descriptor.New(0, 1, 1),
		descriptor.New(0, 1, 2),
		descriptor.New(0, 5, 2),
		descriptor.New(0, 6, 2),
		descriptor.New(0, 12, 101),
	}
	w := bitio.NewWriter()
	w.ValueToBits(6, 7)               // block 06
	w.ValueToBits(100, 10)             // station 100
	w.ValueToBits(9000+5994, 15)       // latitude 59.94
	w.ValueToBits(18000+1073, 16)      // longitude 10.73
	w.ValueToBits(2732+283, 12)        // temperature 28.3 K above -273.2 offset

	msg := buildMessage(descs, 0x80, 1, w)
	dm, err := d.Decode(msg)
	require.NoError(t, err)
	require.Len(t, dm.ExpandedPerSubset, 1)
	require.Len(t, dm.ExpandedPerSubset[0], 5)

	lat, missing := dm.Real(dm.ExpandedPerSubset[0][2])
	require.False(t, missing)
	require.InDelta(t, 59.94, lat, 0.001)

	temp, missing := dm.Real(dm.ExpandedPerSubset[0][4])
	require.False(t, missing)
	require.InDelta(t, 28.3, temp, 0.01)
}

func TestDecodeMissingGeolocation(t *testing.T) {
	reg := newTestRegistry()
	d := decoder.New(reg, nil)

	descs := []descriptor.Id{
		descriptor.New(0, 5, 2),
		descriptor.New(0, 6, 2),
	}
	w := bitio.NewWriter()
	w.ValueToBits(uint64(bitio.MISSING)&((1<<15)-1), 15)
	w.ValueToBits(uint64(bitio.MISSING)&((1<<16)-1), 16)

	msg := buildMessage(descs, 0x80, 1, w)
	dm, err := d.Decode(msg)
	require.NoError(t, err)

	_, missing := dm.Real(dm.ExpandedPerSubset[0][0])
	require.True(t, missing)
	_, missing = dm.Real(dm.ExpandedPerSubset[0][1])
	require.True(t, missing)
}

func TestDecodeDelayedReplication(t *testing.T) {
	reg := newTestRegistry()
	d := decoder.New(reg, nil)

	descs := []descriptor.Id{
		descriptor.New(1, 1, 0), // replicate 1 descriptor, delayed count
		descriptor.New(0, 31, 1),
		descriptor.New(0, 12, 101),
	}
	w := bitio.NewWriter()
	w.ValueToBits(2, 8)         // repeat count = 2
	w.ValueToBits(2732+283, 12) // first temperature
	w.ValueToBits(2732+200, 12) // second temperature

	msg := buildMessage(descs, 0x80, 1, w)
	dm, err := d.Decode(msg)
	require.NoError(t, err)

	var temps []descriptor.Descriptor
	for _, desc := range dm.ExpandedPerSubset[0] {
		if desc.ID == descriptor.New(0, 12, 101) {
			temps = append(temps, desc)
		}
	}
	require.Len(t, temps, 2)

	v1, _ := dm.Real(temps[0])
	v2, _ := dm.Real(temps[1])
	require.InDelta(t, 28.3, v1, 0.01)
	require.InDelta(t, 20.0, v2, 0.01)
}

func TestDecodeCompressedTwoSubsets(t *testing.T) {
	reg := newTestRegistry()
	d := decoder.New(reg, nil)

	descs := []descriptor.Id{descriptor.New(0, 12, 101)}

	w := bitio.NewWriter()
	w.ValueToBits(2732+200, 12) // R0
	w.ValueToBits(2, 6)         // NBINC
	w.ValueToBits(0, 2)         // subset 0 increment (==R0)
	w.ValueToBits(2, 2)         // subset 1 increment (R0+2); avoid all-ones (missing sentinel)

	msg := buildMessage(descs, 0xC0, 2, w)
	dm, err := d.Decode(msg)
	require.NoError(t, err)
	require.True(t, dm.Compressed)
	require.Len(t, dm.ExpandedPerSubset[0], 1)
	require.Len(t, dm.ExpandedPerSubset[1], 1)

	v0, missing := dm.Real(dm.ExpandedPerSubset[0][0])
	require.False(t, missing)
	require.InDelta(t, 20.0, v0, 0.01)

	v1, missing := dm.Real(dm.ExpandedPerSubset[1][0])
	require.False(t, missing)
	require.InDelta(t, 20.2, v1, 0.01)
}

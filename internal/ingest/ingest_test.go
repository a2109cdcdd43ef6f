package ingest_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metno/gobufr/internal/config"
	"github.com/metno/gobufr/internal/descriptor"
	"github.com/metno/gobufr/internal/ingest"
	"github.com/metno/gobufr/internal/logbuf"
	"github.com/metno/gobufr/internal/tables"
)

const testVersion = tables.Version(13)

func newTestRegistry() *tables.Registry {
	reg := tables.NewRegistry()
	reg.AddTableB(testVersion, tables.TableB{
		descriptor.New(0, 1, 1):   {Name: "block_number", Unit: "Numeric", DataWidth: 7},
		descriptor.New(0, 1, 2):   {Name: "station_number", Unit: "Numeric", DataWidth: 10},
		descriptor.New(0, 4, 1):   {Name: "year", Unit: "Year", DataWidth: 12},
		descriptor.New(0, 4, 2):   {Name: "month", Unit: "Month", DataWidth: 4},
		descriptor.New(0, 4, 3):   {Name: "day", Unit: "Day", DataWidth: 6},
		descriptor.New(0, 4, 4):   {Name: "hour", Unit: "Hour", DataWidth: 5},
		descriptor.New(0, 4, 5):   {Name: "minute", Unit: "Minute", DataWidth: 6},
		descriptor.New(0, 4, 6):   {Name: "second", Unit: "Second", DataWidth: 6},
		descriptor.New(0, 5, 1):   {Name: "latitude", Unit: "Degree", Scale: 3, DataWidth: 16},
		descriptor.New(0, 6, 1):   {Name: "longitude", Unit: "Degree", Scale: 3, DataWidth: 14},
		descriptor.New(0, 7, 30):  {Name: "height_of_station", Unit: "m", DataWidth: 8},
		descriptor.New(0, 12, 101): {Name: "air_temperature", Unit: "K", Scale: 2, DataWidth: 15},
	})
	return reg
}

func putLen(buf []byte, n int) {
	buf[0] = byte(n >> 16)
	buf[1] = byte(n >> 8)
	buf[2] = byte(n)
}

func buildSection1(version uint8) []byte {
	buf := make([]byte, 22)
	putLen(buf, 22)
	buf[3] = 0
	buf[4], buf[5] = 0, 88
	buf[6], buf[7] = 0, 0
	buf[8] = 0
	buf[9] = 0
	buf[10] = 0 // data category
	buf[11] = 0
	buf[12] = 0
	buf[13] = version
	buf[14] = 1
	buf[15] = byte(2024 >> 8)
	buf[16] = byte(2024)
	buf[17] = 6
	buf[18] = 1
	buf[19] = 0
	buf[20] = 0
	buf[21] = 0
	return buf
}

func buildSection3(descs [][2]uint8) []byte {
	n := 7 + len(descs)*2 + 1
	buf := make([]byte, n)
	putLen(buf, n)
	buf[3] = 0
	buf[4], buf[5] = 0, 1
	buf[6] = 0x80
	for i, d := range descs {
		buf[7+i*2] = d[0]
		buf[7+i*2+1] = d[1]
	}
	return buf
}

func buildSection4(payload []byte) []byte {
	n := 4 + len(payload)
	buf := make([]byte, n)
	putLen(buf, n)
	buf[3] = 0
	copy(buf[4:], payload)
	return buf
}

func buildSynopMessage() []byte {
	descs := [][2]uint8{
		{0, 1}, {0, 2}, // block, station
		{4, 1}, {4, 2}, {4, 3}, {4, 4}, {4, 5}, {4, 6}, // datetime
		{5, 1}, {6, 1}, // lat, lon
		{7, 30},  // height
		{12, 101}, // temperature
	}

	var bits bytesWriter
	bits.put(12, 7)    // block 12
	bits.put(345, 10)  // station 345
	bits.put(2024, 12) // year
	bits.put(6, 4)     // month
	bits.put(1, 6)     // day
	bits.put(0, 5)     // hour
	bits.put(0, 6)     // minute
	bits.put(0, 6)     // second
	bits.put(59933, 16) // latitude 59.933
	bits.put(10720, 14) // longitude 10.720
	bits.put(94, 8)      // height 94 m
	bits.put(28315, 15)  // temperature 283.15 K

	s1 := buildSection1(uint8(testVersion))
	s3 := buildSection3(descs)
	s4 := buildSection4(bits.bytes())

	total := 8 + len(s1) + len(s3) + len(s4) + 4
	var buf bytes.Buffer
	buf.WriteString("BUFR")
	buf.Write([]byte{byte(total >> 16), byte(total >> 8), byte(total)})
	buf.WriteByte(4)
	buf.Write(s1)
	buf.Write(s3)
	buf.Write(s4)
	buf.WriteString("7777")
	return buf.Bytes()
}

// bytesWriter is a minimal MSB-first bit packer local to this test, kept
// separate from internal/bitio.Writer so the fixture doesn't depend on
// the package under wider test here.
type bytesWriter struct {
	buf  []byte
	nbit int
}

func (w *bytesWriter) put(value uint64, width int) {
	for i := width - 1; i >= 0; i-- {
		need := (w.nbit + 1 + 7) / 8
		for len(w.buf) < need {
			w.buf = append(w.buf, 0)
		}
		if (value>>uint(i))&1 == 1 {
			w.buf[w.nbit/8] |= 1 << uint(7-w.nbit%8)
		}
		w.nbit++
	}
}

func (w *bytesWriter) bytes() []byte { return w.buf }

func TestDecodeReaderMinimalSynop(t *testing.T) {
	raw := buildSynopMessage()

	opts := ingest.Options{
		Tables:   newTestRegistry(),
		Template: json.RawMessage(`{}`),
		Window:   config.LoadEnv(nil),
		Log:      logbuf.New(logbuf.Warn, 1000),
	}

	out, summary, err := ingest.DecodeReader(bytes.NewReader(raw), opts)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Messages)
	require.Equal(t, 1, summary.Subsets)
	require.Len(t, out, 1)

	var feature map[string]any
	require.NoError(t, json.Unmarshal([]byte(out[0]), &feature))
	require.Equal(t, "Feature", feature["type"])

	props := feature["properties"].(map[string]any)
	require.Equal(t, "0-20000-0-12345", props["platform"])
	require.Equal(t, "2024-06-01T00:00:00+00:00", props["datetime"])

	content := props["content"].(map[string]any)
	require.Equal(t, "air_temperature", content["standard_name"])
	require.Equal(t, "K", content["unit"])
	require.Equal(t, "283.15", content["value"])

	geom := feature["geometry"].(map[string]any)
	coords := geom["coordinates"].([]any)
	require.InDelta(t, 59.933, coords[1], 0.001)
	require.InDelta(t, 10.720, coords[0], 0.001)
	require.InDelta(t, 94, coords[2], 0.001)
}

func TestFindBufrWalksDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.bufr"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("x"), 0o644))
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "c.bin"), []byte("x"), 0o644))

	items, err := ingest.FindBufr(dir)
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestDecodeTrawlWritesOutputFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "synop.bufr"), buildSynopMessage(), 0o644))

	opts := ingest.Options{
		Tables:   newTestRegistry(),
		Template: json.RawMessage(`{}`),
		Window:   config.LoadEnv(nil),
	}

	results, err := ingest.DecodeTrawl(dir, "", opts)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.FileExists(t, results[0].OutPath)
}

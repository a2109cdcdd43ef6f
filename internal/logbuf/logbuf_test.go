package logbuf_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metno/gobufr/internal/logbuf"
)

func TestAddRespectsLevel(t *testing.T) {
	b := logbuf.New(logbuf.Warn, 100)
	b.Infof("decoder", "bid-1", "ignored")
	b.Warnf("decoder", "bid-1", "seen")
	entries := b.Entries(logbuf.Trace)
	require.Len(t, entries, 1)
	require.Equal(t, "seen", entries[0].Message)
}

func TestBufferFullSentinel(t *testing.T) {
	b := logbuf.New(logbuf.Trace, 3)
	b.Infof("m", "id", "one")
	b.Infof("m", "id", "two")
	b.Infof("m", "id", "three") // dropped: "two" brought the buffer to max-1 and tripped the full marker

	entries := b.Entries(logbuf.Trace)
	require.Len(t, entries, 3)
	require.Equal(t, logbuf.Fatal, entries[2].Level)
	require.Contains(t, entries[2].Message, "LogBuffer full")
}

func TestRenderCSV(t *testing.T) {
	b := logbuf.New(logbuf.Trace, 100)
	b.Warnf("projector", "bid-2", "missing geolocation")
	csv := b.RenderCSV(';', logbuf.Trace)
	require.True(t, strings.Contains(csv, "WARN;projector;bid-2;missing geolocation"))
}

func TestRenderJSON(t *testing.T) {
	b := logbuf.New(logbuf.Trace, 100)
	b.Errorf("decoder", "bid-3", "bit overrun")
	out := b.RenderJSON(logbuf.Trace)
	require.True(t, strings.Contains(out, `"level":"ERROR"`))
	require.True(t, strings.Contains(out, `"bufr_id":"bid-3"`))
}

func TestSetLevelPurge(t *testing.T) {
	b := logbuf.New(logbuf.Trace, 100)
	b.Infof("m", "id", "info")
	b.Warnf("m", "id", "warn")
	b.SetLevel(logbuf.Warn, true)
	entries := b.Entries(logbuf.Trace)
	require.Len(t, entries, 1)
	require.Equal(t, logbuf.Warn, entries[0].Level)
}

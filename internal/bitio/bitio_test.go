package bitio_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metno/gobufr/internal/bitio"
)

func TestGetUintRoundTrip(t *testing.T) {
	cases := []struct {
		val   uint64
		width int
	}{
		{0, 1}, {1, 1}, {5, 4}, {255, 8}, {1000, 12}, {123456, 21}, {0, 32},
	}
	for _, c := range cases {
		buf := bitio.ValueToBits(c.val, c.width)
		got := buf.GetUint(0, c.width, false)
		require.Equal(t, c.val, got, "width=%d", c.width)
	}
}

func TestGetUintMissingMask(t *testing.T) {
	w := bitio.NewWriter()
	w.ValueToBits(0xFF, 8)
	buf := w.Buffer()
	require.Equal(t, bitio.MISSING, buf.GetUint(0, 8, true))
	require.Equal(t, uint64(0xFF), buf.GetUint(0, 8, false))
}

func TestGetUintMissingMaskWidthOne(t *testing.T) {
	w := bitio.NewWriter()
	w.ValueToBits(1, 1)
	buf := w.Buffer()
	// width==1 never triggers the missing mask even when all bits are set.
	require.Equal(t, uint64(1), buf.GetUint(0, 1, true))
}

func TestGetBitString(t *testing.T) {
	w := bitio.NewWriter()
	w.ValueToBits(0b1011, 4)
	buf := w.Buffer()
	require.Equal(t, "1011", buf.GetBitString(0, 4))
}

func TestGetBytesAsString(t *testing.T) {
	w := bitio.NewWriter()
	for _, c := range []byte("AB") {
		w.ValueToBits(uint64(c), 8)
	}
	buf := w.Buffer()
	require.Equal(t, "AB", buf.GetBytesAsString(0, 16))
}

func TestGetSubBits(t *testing.T) {
	w := bitio.NewWriter()
	w.ValueToBits(0b1010, 4)
	w.ValueToBits(0b1100, 4)
	buf := w.Buffer()
	sub := buf.GetSubBits(4, 4)
	require.Equal(t, uint64(0b1100), sub.GetUint(0, 4, false))
}

func TestOutOfRangeReadsZero(t *testing.T) {
	buf := bitio.New([]byte{0xFF}, 8)
	require.Equal(t, uint64(0), buf.GetUint(8, 8, false))
}

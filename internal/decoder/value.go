package decoder

import (
	"math"
	"strconv"
	"strings"

	"github.com/metno/gobufr/internal/bitio"
	"github.com/metno/gobufr/internal/descriptor"
)

// MissingString is returned by String for any field whose raw bits resolve
// to the missing sentinel.
const MissingString = "MISSING"

func (dm *DecodedMessage) vector() *bitio.Buffer {
	if dm.Compressed {
		return dm.UncompressedBits
	}
	return dm.Bits
}

// rawUint reads desc's raw unsigned value, disabling the missing-mask for
// 0 31 Y replication counters per spec.md §4.5.
func (dm *DecodedMessage) rawUint(desc descriptor.Descriptor) uint64 {
	if desc.Meta == nil {
		return bitio.MISSING
	}
	missingMask := !(desc.ID.F == 0 && desc.ID.X == 31)
	return dm.vector().GetUint(desc.StartBit, int(desc.Meta.DataWidth), missingMask)
}

// Real extracts desc's value as (raw+reference)/10^scale. The second
// return reports whether the field was missing.
func (dm *DecodedMessage) Real(desc descriptor.Descriptor) (float64, bool) {
	raw := dm.rawUint(desc)
	if raw == bitio.MISSING {
		return 0, true
	}
	num := float64(int64(raw) + int64(desc.Meta.Reference))
	return num / math.Pow10(desc.Meta.Scale), false
}

// Int extracts desc's value as an integer, truncating the scale division
// the way the source's integer getters do.
func (dm *DecodedMessage) Int(desc descriptor.Descriptor) (int64, bool) {
	raw := dm.rawUint(desc)
	if raw == bitio.MISSING {
		return 0, true
	}
	num := int64(raw) + int64(desc.Meta.Reference)
	if desc.Meta.Scale == 0 {
		return num, false
	}
	return int64(float64(num) / math.Pow10(desc.Meta.Scale)), false
}

func isAllMissingBytes(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] != 0xFF {
			return false
		}
	}
	return true
}

// String renders desc's value as text per spec.md §4.5: CCITTIA5 fields
// read raw bytes, code/flag tables consult Table C, and numeric fields
// format via Real (zero decimals for X==1 platform/station fields).
func (dm *DecodedMessage) String(desc descriptor.Descriptor) string {
	if desc.Meta == nil {
		return MissingString
	}

	switch desc.Meta.Unit {
	case descriptor.UnitCCITTIA5:
		raw := dm.vector().GetBytesAsString(desc.StartBit, int(desc.Meta.DataWidth))
		if isAllMissingBytes(raw) {
			return MissingString
		}
		return strings.TrimRight(raw, " \x00")

	case descriptor.UnitCodeTable, descriptor.UnitFlagTable:
		raw := dm.rawUint(desc)
		if raw == bitio.MISSING {
			return MissingString
		}
		if desc.Meta.Reference == 0 && dm.Tables != nil {
			if text := dm.Tables.LookupC(dm.Version, desc.ID, int(raw)); text != "" {
				return text
			}
		}
		return strconv.FormatUint(raw, 10)

	default:
		v, missing := dm.Real(desc)
		if missing {
			return MissingString
		}
		decimals := desc.Meta.Scale
		if desc.ID.X == 1 || decimals < 0 {
			decimals = 0
		}
		return strconv.FormatFloat(v, 'f', decimals, 64)
	}
}

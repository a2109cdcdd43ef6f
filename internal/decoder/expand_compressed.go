package decoder

import (
	"github.com/metno/gobufr/internal/bitio"
	"github.com/metno/gobufr/internal/descriptor"
)

// walkCompressed expands declared once against the shared compressed
// Section 4 layout (local reference + NBINC-width per-subset increments),
// writing each subset's resolved element offsets into
// dm.ExpandedPerSubset[s] as offsets into the synthesized uncompressed-bits
// vector, per spec.md §4.4.
func (e *expander) walkCompressed(declared []descriptor.Id) error {
	DL := append([]descriptor.Id(nil), declared...)
	subsetCount := len(e.dm.ExpandedPerSubset)
	sb := 0

	for i := 0; i < len(DL); i++ {
		id := DL[i]
		switch id.F {
		case 0:
			newSb, _, err := e.uncompressDescriptor(id, sb, false, subsetCount)
			if err != nil {
				return err
			}
			sb = newSb
		case 1:
			var err error
			DL, i, sb, err = e.compressedReplication(DL, i, sb, subsetCount)
			if err != nil {
				return err
			}
		case 2:
			// Operator modifiers are not applied under compression: every
			// element reads Table B's base width directly (see source's
			// "if (isCompressed()) break" short-circuit), so only the
			// marker itself is recorded.
			e.appendDescriptor(0, id, sb, nil)
		case 3:
			e.appendDescriptor(0, id, sb, nil)
			seq, err := e.d.Tables.LookupD(e.version, id, e.d.Strict)
			if err != nil {
				e.d.warnf(e.bufrID, "sequence %s not found in table D", id)
				continue
			}
			DL = insertIds(DL, i+1, seq)
		default:
			e.d.warnf(e.bufrID, "unrecognized descriptor class F=%d in %s", id.F, id)
		}
	}

	for s := 0; s < subsetCount; s++ {
		if len(e.dm.ExpandedPerSubset[s]) > 0 {
			e.dm.SubsetStartBits[s] = e.dm.ExpandedPerSubset[s][0].StartBit
		}
	}
	return nil
}

// uncompressDescriptor reads one F=0 element's compressed encoding (a local
// reference R0, a 6-bit NBINC, then one NBINC-wide increment per subset;
// CCITTIA5 fields instead copy NBINC*8 raw bits per subset) off the raw
// Section 4 cursor sb, appends the resolved value for every subset into
// ucWriter, and returns the advanced raw cursor.
//
// When forReplication is true, id is a delayed-count descriptor: per the
// source, subset 0 does not get a Descriptor pushed for it (only subsets
// 1..N-1 do), and every subset's decoded value must agree; disagreement is
// logged fatal and the first subset's value wins.
func (e *expander) uncompressDescriptor(id descriptor.Id, sb int, forReplication bool, subsetCount int) (int, uint16, error) {
	meta, _ := e.d.Tables.LookupB(e.version, id, e.d.Strict)
	meta = meta.Canonical()
	dw := int(meta.DataWidth)

	if sb+dw > e.dm.Bits.Len() {
		return sb, 0, ErrSection4Overrun
	}
	r0 := e.dm.Bits.GetUint(sb, dw, false)
	sb += dw

	if sb+6 > e.dm.Bits.Len() {
		return sb, 0, ErrSection4Overrun
	}
	nbinc := int(e.dm.Bits.GetUint(sb, 6, false))
	sb += 6

	isCCITT := meta.Unit == descriptor.UnitCCITTIA5
	var repeat0 uint64
	haveRepeat0 := false
	var repeatMismatch bool

	for sIdx := 0; sIdx < subsetCount; sIdx++ {
		push := sIdx != 0 || !forReplication
		var cur *descriptor.Descriptor
		if push {
			cur = e.appendDescriptor(sIdx, id, e.ucWriter.Len(), nil)
		}

		if isCCITT {
			width := nbinc * 8
			if sb+width > e.dm.Bits.Len() {
				return sb, 0, ErrSection4Overrun
			}
			if push {
				cur.Meta = e.dm.ExtraMetas.Intern(meta)
			}
			e.ucWriter.WriteBits(e.dm.Bits, sb, width)
			sb += width
			continue
		}

		if sb+nbinc > e.dm.Bits.Len() {
			return sb, 0, ErrSection4Overrun
		}
		inc := e.dm.Bits.GetUint(sb, nbinc, true)
		var val uint64
		if inc == bitio.MISSING {
			val = bitio.MISSING
		} else {
			val = r0 + inc
		}
		sb += nbinc

		if forReplication {
			if !haveRepeat0 {
				repeat0, haveRepeat0 = val, true
			} else if val != repeat0 {
				repeatMismatch = true
			}
		}
		if push {
			cur.Meta = e.dm.ExtraMetas.Intern(meta)
		}
		e.ucWriter.ValueToBits(val, dw)
	}

	if repeatMismatch {
		e.d.fatalf(e.bufrID, "%v for descriptor %s", ErrCompressedRepeatMismatch, id)
	}
	var repeatnum uint16
	if forReplication {
		repeatnum = uint16(repeat0)
	}
	return sb, repeatnum, nil
}

// compressedReplication is expandReplication's compressed-mode counterpart:
// the delayed count (if any) is read via uncompressDescriptor instead of a
// direct bit read, since under compression every subset may encode its own
// increment against the shared local reference.
func (e *expander) compressedReplication(DL []descriptor.Id, i, sb, subsetCount int) ([]descriptor.Id, int, int, error) {
	id := DL[i]
	e.appendDescriptor(0, id, sb, nil)
	descnum := int(id.X)
	var repeatnum uint16

	if id.Y != 0 {
		repeatnum = uint16(id.Y)
	} else {
		i++
		if i >= len(DL) {
			e.d.warnf(e.bufrID, "%v: delayed replication has no count descriptor", ErrDelayedDescriptorMissing)
			return DL, i, sb, nil
		}
		delayed := DL[i]
		if !(delayed.F == 0 && delayed.X == 31) {
			e.d.warnf(e.bufrID, "delayed replication count descriptor %s is not class 31", delayed)
			return DL, i, sb, nil
		}
		newSb, rn, err := e.uncompressDescriptor(delayed, sb, true, subsetCount)
		if err != nil {
			return DL, i, sb, err
		}
		sb = newSb
		repeatnum = rn
	}

	j := i
	var block []descriptor.Id
	for k := 0; k < descnum; k++ {
		j++
		if j >= len(DL) {
			break
		}
		if repeatnum != 0 {
			block = append(block, DL[j])
		} else {
			i++
		}
	}

	if repeatnum != 0 {
		var extra []descriptor.Id
		for r := 1; r < int(repeatnum); r++ {
			extra = append(extra, block...)
		}
		DL = insertIds(DL, j+1, extra)
	}

	return DL, i, sb, nil
}

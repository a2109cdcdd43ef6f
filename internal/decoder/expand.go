package decoder

import (
	"math"

	"github.com/metno/gobufr/internal/bitio"
	"github.com/metno/gobufr/internal/descriptor"
	"github.com/metno/gobufr/internal/tables"
)

// expander carries the mutable state of one expansion walk: it is created
// fresh per Decode call and discarded afterwards (per §5's per-message
// ownership model).
type expander struct {
	d       *Decoder
	dm      *DecodedMessage
	version tables.Version
	bufrID  string

	ucWriter *bitio.Writer // set only for the compressed path
}

func insertIds(s []descriptor.Id, at int, ins []descriptor.Id) []descriptor.Id {
	if len(ins) == 0 {
		return s
	}
	out := make([]descriptor.Id, 0, len(s)+len(ins))
	out = append(out, s[:at]...)
	out = append(out, ins...)
	out = append(out, s[at:]...)
	return out
}

// opState holds the operator-modifier locals that the F=2 dispatch mutates
// and F=0 reads back, matching the source's per-subset scalar locals.
type opState struct {
	modDataWidth    int
	modStrDataWidth int
	modScale        int
	modRefValue     int
	localDataWidth  int
	assocStack      []int
}

// walkSubset expands declared against Table B/D for one uncompressed
// subset, writing element offsets into dm.ExpandedPerSubset[s], and returns
// the bit offset one past the subset's last field.
func (e *expander) walkSubset(s int, declared []descriptor.Id, startBit int) (int, error) {
	DL := append([]descriptor.Id(nil), declared...)
	sb := startBit
	var op opState

	for i := 0; i < len(DL); i++ {
		id := DL[i]
		switch id.F {
		case 0:
			var err error
			sb, err = e.expandElement(s, id, sb, &op)
			if err != nil {
				return 0, err
			}
		case 1:
			var err error
			DL, i, sb, err = e.expandReplication(s, DL, i, sb)
			if err != nil {
				return 0, err
			}
		case 2:
			sb = e.applyOperator(s, id, sb, &op)
		case 3:
			seq, err := e.d.Tables.LookupD(e.version, id, e.d.Strict)
			if err != nil {
				e.d.warnf(e.bufrID, "sequence %s not found in table D", id)
				continue
			}
			e.appendDescriptor(s, id, sb, nil)
			DL = insertIds(DL, i+1, seq)
		default:
			e.d.warnf(e.bufrID, "unrecognized descriptor class F=%d in %s", id.F, id)
		}
	}
	return sb, nil
}

func (e *expander) appendDescriptor(s int, id descriptor.Id, sb int, meta *descriptor.Meta) *descriptor.Descriptor {
	e.dm.ExpandedPerSubset[s] = append(e.dm.ExpandedPerSubset[s], descriptor.Descriptor{ID: id, StartBit: sb, Meta: meta})
	return &e.dm.ExpandedPerSubset[s][len(e.dm.ExpandedPerSubset[s])-1]
}

// expandElement resolves one F=0 element descriptor against Table B,
// applying whichever operator modifier currently governs it, per
// spec.md §4.3's element dispatch.
func (e *expander) expandElement(s int, id descriptor.Id, sb int, op *opState) (int, error) {
	if len(op.assocStack) > 0 && !(id.X == 31 && id.Y == 21) {
		sb += op.assocStack[len(op.assocStack)-1]
	}

	meta, _ := e.d.Tables.LookupB(e.version, id, e.d.Strict)
	meta = meta.Canonical()
	cur := e.appendDescriptor(s, id, sb, nil)

	switch {
	case op.localDataWidth > 0:
		derived := meta
		derived.DataWidth = uint(op.localDataWidth)
		cur.Meta = e.dm.ExtraMetas.Intern(derived)
		sb += op.localDataWidth
		op.localDataWidth = 0
	case meta.Unit == descriptor.UnitCCITTIA5 && op.modStrDataWidth > 0:
		derived := meta
		derived.DataWidth = uint(op.modStrDataWidth)
		cur.Meta = e.dm.ExtraMetas.Intern(derived)
		sb += op.modStrDataWidth
	case meta.Unit == descriptor.UnitCCITTIA5:
		cur.Meta = e.dm.ExtraMetas.Intern(meta)
		sb += int(meta.DataWidth)
	case meta.Unit == descriptor.UnitCodeTable || meta.Unit == descriptor.UnitFlagTable:
		cur.Meta = e.dm.ExtraMetas.Intern(meta)
		sb += int(meta.DataWidth)
	default:
		sb += int(meta.DataWidth) + op.modDataWidth
		if sb > e.dm.Bits.Len() {
			return 0, ErrSection4Overrun
		}
		unmodified := op.modScale == 0 && op.modRefValue == 0 && op.modDataWidth == 0 && len(op.assocStack) == 0
		if unmodified || (id.X == 31 && id.Y == 21) {
			cur.Meta = e.dm.ExtraMetas.Intern(meta)
		} else {
			derived := meta
			if len(op.assocStack) > 0 {
				derived.AssocWidth = uint(op.assocStack[len(op.assocStack)-1])
			}
			if op.modDataWidth != 0 {
				derived.DataWidth = uint(int(meta.DataWidth) + op.modDataWidth)
			}
			if op.modScale != 0 {
				derived.Scale = meta.Scale + op.modScale
			}
			if op.modRefValue != 0 {
				derived.Reference = op.modRefValue
			}
			cur.Meta = e.dm.ExtraMetas.Intern(derived)
		}
	}
	return sb, nil
}

// applyOperator dispatches an F=2 operator descriptor's X code against op,
// per spec.md §4.3's operator table. Codes not recognized are logged and
// otherwise ignored, matching the source's fall-through default.
func (e *expander) applyOperator(s int, id descriptor.Id, sb int, op *opState) int {
	e.appendDescriptor(s, id, sb, nil)
	switch id.X {
	case 1:
		if id.Y != 0 {
			op.modDataWidth = int(id.Y) - 128
		} else {
			op.modDataWidth = 0
		}
	case 2:
		if id.Y != 0 {
			op.modScale = int(id.Y) - 128
		} else {
			op.modScale = 0
		}
	case 3:
		if id.Y != 255 {
			op.modRefValue = int(e.dm.Bits.GetUint(sb, int(id.Y), false))
		} else {
			op.modRefValue = 0
		}
	case 4:
		if id.Y != 0 {
			top := 0
			if len(op.assocStack) > 0 {
				top = op.assocStack[len(op.assocStack)-1]
			}
			op.assocStack = append(op.assocStack, int(id.Y)+top)
		} else if len(op.assocStack) > 0 {
			op.assocStack = op.assocStack[:len(op.assocStack)-1]
		}
	case 5:
		sb += int(id.Y) * 8
	case 6:
		op.localDataWidth = int(id.Y)
	case 7:
		if id.Y == 0 {
			op.modScale, op.modRefValue, op.modDataWidth = 0, 0, 0
		} else {
			y := int(id.Y)
			op.modScale = y
			op.modRefValue = int(math.Pow(10, float64(y)))
			op.modDataWidth = (10*y + 2) / 3
		}
	case 8:
		op.modStrDataWidth = int(id.Y) * 8
	default:
		e.d.warnf(e.bufrID, "unrecognized operator descriptor %s", id)
	}
	return sb
}

// expandReplication handles one F=1 descriptor: it resolves a fixed or
// delayed repeat count, then splices (repeatnum-1) extra copies of the
// following descnum-length block into DL, per spec.md §4.3's replication
// semantics (repeatnum==0 drops the block entirely).
func (e *expander) expandReplication(s int, DL []descriptor.Id, i, sb int) ([]descriptor.Id, int, int, error) {
	id := DL[i]
	e.appendDescriptor(s, id, sb, nil)
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
		e.appendDescriptor(s, delayed, sb, nil)
		if !(delayed.F == 0 && delayed.X == 31) {
			e.d.warnf(e.bufrID, "delayed replication count descriptor %s is not class 31", delayed)
			return DL, i, sb, nil
		}
		meta, _ := e.d.Tables.LookupB(e.version, delayed, e.d.Strict)
		dw := int(meta.DataWidth)
		if sb+dw > e.dm.Bits.Len() {
			e.d.warnf(e.bufrID, "delayed replication count read overruns section 4")
			return DL, i, sb, nil
		}
		repeatnum = uint16(e.dm.Bits.GetUint(sb, dw, false))
		sb += dw
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

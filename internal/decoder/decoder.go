// Package decoder implements the descriptor expansion engine: it walks a
// Section 3 descriptor list against Table B/D, resolving replication,
// operator modifiers and compression, and produces a DecodedMessage whose
// ValueExtractor methods read typed values off the resulting bit offsets.
package decoder

import (
	"errors"
	"fmt"

	"github.com/metno/gobufr/internal/bitio"
	"github.com/metno/gobufr/internal/bufrio"
	"github.com/metno/gobufr/internal/descriptor"
	"github.com/metno/gobufr/internal/logbuf"
	"github.com/metno/gobufr/internal/tables"
)

var (
	// ErrDelayedDescriptorMissing is logged (not returned) when a
	// replication's delayed-count descriptor can't be found; decoding
	// continues with repeatnum=0 for that block.
	ErrDelayedDescriptorMissing = errors.New("decoder: delayed replication descriptor missing")
	// ErrCompressedRepeatMismatch is logged (Fatal) when subsets disagree
	// on a delayed replication count under compression.
	ErrCompressedRepeatMismatch = errors.New("decoder: compressed subsets disagree on delayed repeat count")
	// ErrSection4Overrun means expansion walked past the end of the bit
	// vector; the message is aborted.
	ErrSection4Overrun = errors.New("decoder: section 4 bit overrun")
)

// DecodedMessage is the result of expanding one BUFR envelope's declared
// descriptor list against the tables, per spec.md §3.
type DecodedMessage struct {
	Edition    uint8
	Section1   bufrio.Section1
	Section3   bufrio.Section3
	Compressed bool

	Bits             *bitio.Buffer // raw Section 4 bits
	UncompressedBits *bitio.Buffer // only set when Compressed

	SubsetStartBits   []int
	ExpandedPerSubset [][]descriptor.Descriptor
	ExtraMetas        *descriptor.Pool

	// Tables and Version let ValueExtractor resolve Table C code/flag text
	// without threading the Decoder through every extraction call.
	Tables  *tables.Registry
	Version tables.Version
}

// Decoder orchestrates expansion for one message at a time. Per §5, each
// Decoder instance owns its own mutable per-message state; the table
// registry it references is immutable and safely shared.
type Decoder struct {
	Tables  *tables.Registry
	Log     *logbuf.Buffer
	Strict  bool // passed through to table lookups
}

// New returns a Decoder backed by reg, logging to log (nil discards).
func New(reg *tables.Registry, log *logbuf.Buffer) *Decoder {
	if reg == nil {
		panic("decoder: nil table registry")
	}
	return &Decoder{Tables: reg, Log: log}
}

func (d *Decoder) warnf(bufrID, format string, args ...any) {
	if d.Log != nil {
		d.Log.Warnf("decoder", bufrID, format, args...)
	}
}

func (d *Decoder) errorf(bufrID, format string, args ...any) {
	if d.Log != nil {
		d.Log.Errorf("decoder", bufrID, format, args...)
	}
}

func (d *Decoder) fatalf(bufrID, format string, args ...any) {
	if d.Log != nil {
		d.Log.Fatalf("decoder", bufrID, format, args...)
	}
}

// version resolves the table registry key for a message; the source and
// the spec both key table sets only by master table version.
func version(s1 bufrio.Section1) tables.Version {
	return tables.Version(s1.VersionMaster)
}

// Decode runs the expansion walk described in spec.md §4.3/§4.4 over msg's
// declared descriptors and returns the resulting DecodedMessage.
func (d *Decoder) Decode(msg *bufrio.Message) (*DecodedMessage, error) {
	if msg == nil {
		return nil, errors.New("decoder: nil message")
	}
	bufrID := fmt.Sprintf("%d-%d-%d", msg.Section1.Centre, msg.Section1.DataCategory, msg.Section1.Time.Unix())

	dm := &DecodedMessage{
		Edition:    msg.Edition,
		Section1:   msg.Section1,
		Section3:   msg.Section3,
		Compressed: msg.Section3.IsCompressed(),
		Bits:       bitio.New(msg.Section4Bits, msg.Section4Len),
		ExtraMetas: descriptor.NewPool(),
		Tables:     d.Tables,
	}

	subsetCount := int(msg.Section3.Subsets)
	if subsetCount <= 0 {
		return dm, nil
	}
	dm.ExpandedPerSubset = make([][]descriptor.Descriptor, subsetCount)
	dm.SubsetStartBits = make([]int, subsetCount)

	v := version(msg.Section1)
	dm.Version = v
	e := &expander{
		d:       d,
		dm:      dm,
		version: v,
		bufrID:  bufrID,
	}

	if dm.Compressed {
		writer := bitio.NewWriter()
		e.ucWriter = writer
		if err := e.walkCompressed(msg.Section3.Descriptors); err != nil {
			return nil, err
		}
		dm.UncompressedBits = writer.Buffer()
		return dm, nil
	}

	sb := 0
	for s := 0; s < subsetCount; s++ {
		dm.SubsetStartBits[s] = sb
		endBit, err := e.walkSubset(s, msg.Section3.Descriptors, sb)
		if err != nil {
			return nil, err
		}
		sb = endBit
	}
	return dm, nil
}

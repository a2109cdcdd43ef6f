// Package descriptor implements BUFR descriptor identities (F,X,Y),
// their semantic metadata, and the per-message dedup pool for metas
// derived from operator descriptors.
package descriptor

import "fmt"

// Id is the 3-tuple (F,X,Y) identity of a BUFR descriptor: F=0 element,
// F=1 replication, F=2 operator, F=3 sequence.
type Id struct {
	F, X, Y uint8
}

// FromPacked constructs an Id from the packed 16-bit form F<<14 | X<<8 | Y.
func FromPacked(p uint16) Id {
	return Id{
		F: uint8(p >> 14),
		X: uint8((p >> 8) & 0x3F),
		Y: uint8(p & 0xFF),
	}
}

// FromDecimal constructs an Id from the decimal visible form
// F*100000 + X*1000 + Y, e.g. 10004 == (0,10,004).
func FromDecimal(d int) Id {
	return Id{
		F: uint8(d / 100000),
		X: uint8((d / 1000) % 100),
		Y: uint8(d % 1000),
	}
}

// New constructs an Id directly from its three fields.
func New(f, x, y uint8) Id { return Id{F: f, X: x, Y: y} }

// Packed returns the 16-bit packed form.
func (id Id) Packed() uint16 {
	return uint16(id.F)<<14 | uint16(id.X)<<8 | uint16(id.Y)
}

// Decimal returns the decimal visible form (FXXYYY as an int).
func (id Id) Decimal() int {
	return int(id.F)*100000 + int(id.X)*1000 + int(id.Y)
}

// String renders the descriptor in "F XX YYY" form.
func (id Id) String() string {
	return fmt.Sprintf("%d %02d %03d", id.F, id.X, id.Y)
}

// Less gives the lexicographic order over (F,X,Y).
func (id Id) Less(other Id) bool {
	if id.F != other.F {
		return id.F < other.F
	}
	if id.X != other.X {
		return id.X < other.X
	}
	return id.Y < other.Y
}

// ParseDecimal parses the digit string form "FXXYYY" (no separators),
// matching the source's string-constructor behaviour. The leading decimal
// integer of s is read as F*100000 + X*1000 + Y, so leading zeros may be
// omitted ("1003" is 0 01 003) and trailing non-digits are ignored. It
// returns an error only if s does not start with a decimal integer.
func ParseDecimal(s string) (Id, error) {
	var d int
	n, err := fmt.Sscanf(s, "%d", &d)
	if err != nil || n != 1 {
		return Id{}, fmt.Errorf("descriptor: invalid decimal form %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

// Canonical unit strings the meta normalizes onto; see CanonicalUnit.
const (
	UnitCodeTable = "CODE TABLE"
	UnitFlagTable = "FLAG TABLE"
	UnitCCITTIA5  = "CCITTIA5"
)

// CanonicalUnit normalizes a raw Table B unit string into the forms the
// decoder and projector switch on: any "Code table..." variant becomes
// UnitCodeTable, any "Flag table..." variant becomes UnitFlagTable, and
// "CCITT IA5" (with or without the internal space) becomes UnitCCITTIA5.
// Any other unit string passes through unchanged.
func CanonicalUnit(raw string) string {
	switch {
	case hasFold(raw, "code table"):
		return UnitCodeTable
	case hasFold(raw, "flag table"):
		return UnitFlagTable
	case hasFold(raw, "ccitt ia5"), hasFold(raw, "ccittia5"):
		return UnitCCITTIA5
	default:
		return raw
	}
}

func hasFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		a, b := s[i], prefix[i]
		if 'A' <= a && a <= 'Z' {
			a += 'a' - 'A'
		}
		if 'A' <= b && b <= 'Z' {
			b += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}

// Meta is the semantic metadata attached to a Descriptor: name, unit,
// scale/reference for numeric conversion, and the bit widths needed to
// read it off the wire. Equality compares all fields, which backs the
// Pool's dedup behaviour.
type Meta struct {
	Name       string
	Unit       string
	Scale      int
	Reference  int
	DataWidth  uint
	AssocWidth uint
}

// Canonical returns a copy of m with Unit canonicalized via CanonicalUnit.
func (m Meta) Canonical() Meta {
	m.Unit = CanonicalUnit(m.Unit)
	return m
}

// Descriptor is one expanded instance: an Id, its bit offset within the
// applicable bit vector, and a pointer to its (possibly derived) Meta.
type Descriptor struct {
	ID       Id
	StartBit int
	Meta     *Meta
}

// Pool deduplicates derived Metas by value, handing back a stable pointer
// instead of the source's raw-pointer arena (see DESIGN.md's note on the
// derived-meta dedup pool redesign).
type Pool struct {
	metas []*Meta
	index map[Meta]int
}

// NewPool returns an empty dedup pool.
func NewPool() *Pool {
	return &Pool{index: make(map[Meta]int)}
}

// Intern returns a pointer to a Meta equal to m, reusing an existing pool
// entry when one already matches by value.
func (p *Pool) Intern(m Meta) *Meta {
	if idx, ok := p.index[m]; ok {
		return p.metas[idx]
	}
	stored := m
	p.metas = append(p.metas, &stored)
	p.index[m] = len(p.metas) - 1
	return &stored
}

// Len reports how many distinct Metas have been interned.
func (p *Pool) Len() int { return len(p.metas) }

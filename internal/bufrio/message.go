// Package bufrio locates BUFR envelopes in a byte stream and parses them
// into their constituent sections (0 through 4), including the rogue-
// marker recovery the source calls check_buffer.
package bufrio

import (
	"time"

	"github.com/metno/gobufr/internal/descriptor"
)

// Section1 holds BUFR Section 1's metadata, edition-dependent per spec.md
// §3 (edition 3 lacks subcentre and seconds, and uses a 2-digit year).
type Section1 struct {
	MasterTable         uint8
	Centre              uint16
	SubCentre           uint16
	UpdateSeqNum        uint8
	OptionalSection     uint8
	DataCategory        uint8
	IntDataSubcategory  uint8
	LocalDataSubcategory uint8
	VersionMaster       uint8
	VersionLocal        uint8
	Time                time.Time
	LocalData           []byte
}

// OptSection reports whether Section 2 follows, from optional_section's
// bit 7 (0x80).
func (s Section1) OptSection() bool { return s.OptionalSection&0x80 != 0 }

// Section3 holds BUFR Section 3's declared descriptor list and flags.
type Section3 struct {
	Subsets     uint16
	ObsComp     uint8
	Descriptors []descriptor.Id
}

// IsObserved reports bit 7 (0x80) of obs_comp.
func (s Section3) IsObserved() bool { return s.ObsComp&0x80 != 0 }

// IsCompressed reports bit 6 (0x40) of obs_comp.
func (s Section3) IsCompressed() bool { return s.ObsComp&0x40 != 0 }

// Message is one parsed BUFR envelope: its edition, Section 1 and Section
// 3 metadata, and Section 4's raw payload bits.
type Message struct {
	Edition  uint8
	TotalLen int
	Section1 Section1
	Section2 []byte
	Section3 Section3
	Section4Bits []byte // packed payload bytes, MSB-first within each byte
	Section4Len  int    // bit length of Section4Bits
}

package bufrio

import (
	"errors"
	"fmt"
	"time"

	"github.com/metno/gobufr/internal/descriptor"
)

// Sentinel errors per spec.md §7's Framing/Parse error kinds.
var (
	ErrNoMarker      = errors.New("bufrio: no BUFR marker found")
	ErrShortSection  = errors.New("bufrio: section too short")
	ErrShortBuffer   = errors.New("bufrio: buffer shorter than declared length")
)

func getBytesBE(buf []byte, n int) int {
	var v int
	for i := 0; i < n; i++ {
		v = v<<8 | int(buf[i])
	}
	return v
}

// sectionLen reads the 3-byte big-endian length prefix common to every
// BUFR section after Section 0.
func sectionLen(buf []byte) (int, error) {
	if len(buf) < 4 {
		return 0, ErrShortSection
	}
	return getBytesBE(buf[0:3], 3), nil
}

// ParseSection0 reads the fixed 8-byte Section 0 header: "BUFR" magic,
// 3-byte big-endian total length, 1-byte edition.
func ParseSection0(buf []byte) (totalLen int, edition uint8, err error) {
	if len(buf) < 8 {
		return 0, 0, fmt.Errorf("bufrio: section 0 %w", ErrShortSection)
	}
	if string(buf[0:4]) != "BUFR" {
		return 0, 0, ErrNoMarker
	}
	totalLen = getBytesBE(buf[4:7], 3)
	edition = buf[7]
	return totalLen, edition, nil
}

// ParseSection1 decodes Section 1, dispatching on edition per spec.md §3.
func ParseSection1(buf []byte, edition uint8) (Section1, int, error) {
	var s1 Section1
	length, err := sectionLen(buf)
	if err != nil {
		return s1, 0, fmt.Errorf("bufrio: section 1: %w", err)
	}
	if length > len(buf) {
		return s1, 0, fmt.Errorf("bufrio: section 1: %w", ErrShortBuffer)
	}
	if len(buf) < 6 {
		return s1, 0, fmt.Errorf("bufrio: section 1: %w", ErrShortSection)
	}

	s1.MasterTable = buf[3]
	s1.Centre = uint16(getBytesBE(buf[4:6], 2))

	eshift := 0
	if edition >= 4 {
		if len(buf) < 23 {
			return s1, 0, fmt.Errorf("bufrio: section 1 edition %d: %w", edition, ErrShortSection)
		}
		s1.SubCentre = uint16(getBytesBE(buf[6:8], 2))
	} else {
		if len(buf) < 18 {
			return s1, 0, fmt.Errorf("bufrio: section 1 edition %d: %w", edition, ErrShortSection)
		}
		eshift = -2
	}

	s1.UpdateSeqNum = buf[8+eshift]
	s1.OptionalSection = buf[9+eshift]
	s1.DataCategory = buf[10+eshift]
	s1.IntDataSubcategory = buf[11+eshift]

	if edition >= 4 {
		s1.LocalDataSubcategory = buf[12]
	} else {
		eshift--
	}

	s1.VersionMaster = buf[13+eshift]
	s1.VersionLocal = buf[14+eshift]

	var year int
	if edition >= 4 {
		year = getBytesBE(buf[15+eshift:17+eshift], 2)
	} else {
		year = int(buf[15+eshift])
		eshift--
	}
	// Edition 3 stores a 2-digit year; edition >=4 stores the full
	// calendar year already, so only the short form needs an offset.
	if year < 100 {
		year += 2000
	}

	month := int(buf[17+eshift])
	day := int(buf[18+eshift])
	hour := int(buf[19+eshift])
	min := int(buf[20+eshift])
	sec := 0
	if edition >= 4 {
		sec = int(buf[21+eshift])
	} else {
		eshift--
	}
	s1.Time = time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC)

	if length > 22 && length <= len(buf) {
		s1.LocalData = append([]byte(nil), buf[22:length]...)
	}

	return s1, length, nil
}

// ParseSection2 reads the opaque local-use bytes of an optional Section 2.
func ParseSection2(buf []byte) ([]byte, int, error) {
	length, err := sectionLen(buf)
	if err != nil {
		return nil, 0, fmt.Errorf("bufrio: section 2: %w", err)
	}
	if length > len(buf) {
		return nil, 0, fmt.Errorf("bufrio: section 2: %w", ErrShortBuffer)
	}
	var data []byte
	if length > 4 {
		data = append([]byte(nil), buf[4:length]...)
	}
	return data, length, nil
}

// ParseSection3 decodes Section 3's subset count, obs/compressed flags,
// and declared descriptor list.
func ParseSection3(buf []byte) (Section3, int, error) {
	var s3 Section3
	length, err := sectionLen(buf)
	if err != nil {
		return s3, 0, fmt.Errorf("bufrio: section 3: %w", err)
	}
	if length > len(buf) || length < 8 {
		return s3, 0, fmt.Errorf("bufrio: section 3: %w", ErrShortBuffer)
	}
	s3.Subsets = uint16(getBytesBE(buf[4:6], 2))
	s3.ObsComp = buf[6]

	for i := 7; i < length-1; i += 2 {
		s3.Descriptors = append(s3.Descriptors, descriptor.New(
			buf[i]>>6,
			buf[i]&0x3F,
			buf[i+1],
		))
	}
	return s3, length, nil
}

// ParseSection4 reads Section 4's declared length and returns the packed
// payload bytes plus their bit length.
func ParseSection4(buf []byte) (payload []byte, bitLen int, length int, err error) {
	length, err = sectionLen(buf)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("bufrio: section 4: %w", err)
	}
	if length > len(buf) {
		return nil, 0, 0, fmt.Errorf("bufrio: section 4: %w", ErrShortBuffer)
	}
	if length < 4 {
		return nil, 0, 0, fmt.Errorf("bufrio: section 4: %w", ErrShortSection)
	}
	payload = append([]byte(nil), buf[4:length]...)
	bitLen = len(payload) * 8
	return payload, bitLen, length, nil
}

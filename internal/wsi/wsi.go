// Package wsi implements the WIGOS Station Identifier: a 4-tuple
// (series, issuer, issue number, local id) with a "series-issuer-issue-
// local" string form and a lexicographic total order.
package wsi

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is the maximum representable issuer/issue-number value.
const Range = 65534

// LocalMaxLen is the maximum length of the local-id component.
const LocalMaxLen = 16

// ID is a WIGOS Station Identifier.
type ID struct {
	Series    int
	Issuer    uint16
	IssueNum  uint16
	Local     string
}

// Zero is the default-constructed identifier ("0-0-0-").
var Zero = ID{}

// Parse parses the canonical "series-issuer-issue-local" string form,
// rejecting issuer/issue values above Range and local ids longer than
// LocalMaxLen, mirroring WSI::from_string.
func Parse(s string) (ID, error) {
	parts := strings.SplitN(s, "-", 4)
	if len(parts) != 4 {
		return ID{}, fmt.Errorf("wsi: %q does not have 4 dash-separated fields", s)
	}
	series, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return ID{}, fmt.Errorf("wsi: invalid series in %q: %w", s, err)
	}
	issuer, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 32)
	if err != nil || issuer > Range {
		return ID{}, fmt.Errorf("wsi: invalid issuer in %q", s)
	}
	issueNum, err := strconv.ParseUint(strings.TrimSpace(parts[2]), 10, 32)
	if err != nil || issueNum > Range {
		return ID{}, fmt.Errorf("wsi: invalid issue number in %q", s)
	}
	local := strings.TrimSpace(parts[3])
	if len(local) > LocalMaxLen {
		return ID{}, fmt.Errorf("wsi: local id %q exceeds %d characters", local, LocalMaxLen)
	}
	return ID{Series: series, Issuer: uint16(issuer), IssueNum: uint16(issueNum), Local: local}, nil
}

// String renders the canonical "series-issuer-issue-local" form.
func (id ID) String() string {
	return fmt.Sprintf("%d-%d-%d-%s", id.Series, id.Issuer, id.IssueNum, id.Local)
}

// SetLocal sets the local-id component, trimming whitespace, rejecting
// values longer than LocalMaxLen. Returns false (leaving id unchanged) on
// overflow, matching WSI::setWigosLocalId's bool-return validation.
func (id *ID) SetLocal(v string) bool {
	trimmed := strings.TrimSpace(v)
	if len(trimmed) > LocalMaxLen {
		return false
	}
	id.Local = trimmed
	return true
}

// SetIssuer sets the issuer component if within Range.
func (id *ID) SetIssuer(v uint16) bool {
	if v > Range {
		return false
	}
	id.Issuer = v
	return true
}

// SetIssueNum sets the issue-number component if within Range.
func (id *ID) SetIssueNum(v uint16) bool {
	if v > Range {
		return false
	}
	id.IssueNum = v
	return true
}

// SetWMO sets the local id to a zero-padded 5-digit WMO block+station
// number and the issuer to the well-known WMO issuer id 20000.
func (id *ID) SetWMO(wmoID int) {
	id.Local = fmt.Sprintf("%05d", wmoID)
	id.SetIssuer(20000)
}

// Compare returns -1, 0, or 1 comparing a and b lexicographically over
// (Series, Issuer, IssueNum, Local).
func Compare(a, b ID) int {
	if a.Series != b.Series {
		if a.Series < b.Series {
			return -1
		}
		return 1
	}
	if a.Issuer != b.Issuer {
		if a.Issuer < b.Issuer {
			return -1
		}
		return 1
	}
	if a.IssueNum != b.IssueNum {
		if a.IssueNum < b.IssueNum {
			return -1
		}
		return 1
	}
	return strings.Compare(a.Local, b.Local)
}

// Less reports whether a sorts before b.
func Less(a, b ID) bool { return Compare(a, b) < 0 }

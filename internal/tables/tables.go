// Package tables loads and looks up BUFR descriptor tables B (element
// metadata), C (code/flag tables) and D (sequence expansions), version-
// indexed the way the source keys them by master table version.
package tables

import (
	"errors"
	"strings"

	"github.com/metno/gobufr/internal/descriptor"
)

// ErrNotFound is returned by strict lookups when a descriptor has no entry.
var ErrNotFound = errors.New("tables: descriptor not found")

// Format identifies which of the three recognized table-file families a
// path belongs to. Replaces the source's "choose parser by filename"
// overload polymorphism with an explicit tagged dispatch (see DESIGN.md).
type Format int

const (
	FormatWMOCSV Format = iota
	FormatECCodes
	FormatOPERA
)

// DetectFormat infers a Format from a table file's name, per spec.md §6:
// WMO CSV files are named BUFRCREX_TableB_en.txt / BUFRCREX_CodeFlag_en.txt
// / BUFR_TableD_en.txt; ecCodes files are element.table / codetables/<fxy>
// / sequence.def; anything else falls back to OPERA's semicolon format.
func DetectFormat(filename string) Format {
	base := filename
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	lower := strings.ToLower(base)
	switch {
	case strings.HasPrefix(lower, "bufrcrex_") || strings.HasPrefix(lower, "bufr_table"):
		return FormatWMOCSV
	case lower == "element.table" || lower == "sequence.def" || strings.Contains(filename, "codetables/"):
		return FormatECCodes
	default:
		return FormatOPERA
	}
}

// Version keys a table set by master table version, matching Tables.cpp's
// version-only keying (the original is silent on centre-keyed lookup, so
// we carry that same simplification rather than inventing a finer key).
type Version int

// TableB maps element descriptors to their metadata.
type TableB map[descriptor.Id]descriptor.Meta

// TableC maps (descriptor, code value) to the code/flag table text.
type TableC map[descriptor.Id]map[int]string

// TableD maps a sequence descriptor to its one-level expansion.
type TableD map[descriptor.Id][]descriptor.Id

// Registry holds version-indexed table sets, long-lived and shared
// read-only across decoder instances per the spec's resource model.
type Registry struct {
	B map[Version]TableB
	C map[Version]TableC
	D map[Version]TableD
}

// NewRegistry returns an empty registry ready to have table sets loaded
// into it via AddTableB/AddTableC/AddTableD.
func NewRegistry() *Registry {
	return &Registry{
		B: make(map[Version]TableB),
		C: make(map[Version]TableC),
		D: make(map[Version]TableD),
	}
}

// AddTableB merges tb into the registry under version v (TableB's "+="
// merge semantics from the source, so a centre's local table can be
// layered over the master WMO table).
func (r *Registry) AddTableB(v Version, tb TableB) {
	cur, ok := r.B[v]
	if !ok {
		cur = make(TableB)
		r.B[v] = cur
	}
	for k, val := range tb {
		cur[k] = val
	}
}

// AddTableC merges tc into the registry under version v.
func (r *Registry) AddTableC(v Version, tc TableC) {
	cur, ok := r.C[v]
	if !ok {
		cur = make(TableC)
		r.C[v] = cur
	}
	for k, val := range tc {
		cur[k] = val
	}
}

// AddTableD merges td into the registry under version v.
func (r *Registry) AddTableD(v Version, td TableD) {
	cur, ok := r.D[v]
	if !ok {
		cur = make(TableD)
		r.D[v] = cur
	}
	for k, val := range td {
		cur[k] = val
	}
}

// LookupB returns the Meta for d at version v. If strict is true and d is
// absent, it returns ErrNotFound; otherwise it returns a zero-value
// sentinel Meta and no error, per §4.9's "either raise an out-of-range
// error or return a sentinel empty meta, configurable per call".
func (r *Registry) LookupB(v Version, d descriptor.Id, strict bool) (descriptor.Meta, error) {
	if tb, ok := r.B[v]; ok {
		if m, ok := tb[d]; ok {
			return m, nil
		}
	}
	if strict {
		return descriptor.Meta{}, ErrNotFound
	}
	return descriptor.Meta{}, nil
}

// LookupC returns the code-table text for descriptor d, code value code, at
// version v. A miss returns "" with no error, matching the source's
// codeStr (absent entries render as empty text, not a fatal lookup).
func (r *Registry) LookupC(v Version, d descriptor.Id, code int) string {
	tc, ok := r.C[v]
	if !ok {
		return ""
	}
	codes, ok := tc[d]
	if !ok {
		return ""
	}
	return codes[code]
}

// LookupD returns the one-level sequence expansion for descriptor d at
// version v. If strict is true and d is absent, returns ErrNotFound.
func (r *Registry) LookupD(v Version, d descriptor.Id, strict bool) ([]descriptor.Id, error) {
	if td, ok := r.D[v]; ok {
		if ids, ok := td[d]; ok {
			return ids, nil
		}
	}
	if strict {
		return nil, ErrNotFound
	}
	return nil, nil
}

package tables

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/metno/gobufr/internal/descriptor"
)

// ecCodes text tables have no library in the retrieved pack that parses
// them (they're a bespoke pipe/whitespace/paren-list text format, not CSV
// or JSON), so this is a hand-rolled line scanner — the one component of
// the table loader that legitimately has no third-party home; see
// DESIGN.md.

// element.table: pipe-delimited, one element per line:
//   key|name|scale|reference|width|unit
func loadTableBECCodes(path string) (TableB, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tables: open %s: %w", path, err)
	}
	defer f.Close()

	tb := make(TableB)
	sc := bufio.NewScanner(f)
	first := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if first {
			first = false
			if strings.HasPrefix(line, "#") {
				continue
			}
		}
		fields := strings.Split(line, "|")
		if len(fields) < 6 {
			continue
		}
		id, err := descriptor.ParseDecimal(strings.TrimSpace(fields[0]))
		if err != nil {
			continue
		}
		scale, _ := strconv.Atoi(strings.TrimSpace(fields[2]))
		reference, _ := strconv.Atoi(strings.TrimSpace(fields[3]))
		width, _ := strconv.Atoi(strings.TrimSpace(fields[4]))
		tb[id] = descriptor.Meta{
			Name:      strings.TrimSpace(fields[1]),
			Unit:      descriptor.CanonicalUnit(strings.TrimSpace(fields[5])),
			Scale:     scale,
			Reference: reference,
			DataWidth: uint(width),
		}.Canonical()
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("tables: scan %s: %w", path, err)
	}
	return tb, nil
}

// codetables/<fxy>: whitespace-delimited "code value text...".
func loadTableCECCodes(path string) (TableC, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tables: open %s: %w", path, err)
	}
	defer f.Close()

	id, err := descriptorFromCodeTablePath(path)
	if err != nil {
		return nil, err
	}

	tc := make(TableC)
	codes := make(map[int]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		if len(fields) < 2 {
			continue
		}
		code, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			continue
		}
		codes[code] = strings.TrimSpace(fields[1])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("tables: scan %s: %w", path, err)
	}
	tc[id] = codes
	return tc, nil
}

func descriptorFromCodeTablePath(path string) (descriptor.Id, error) {
	base := path
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	base = strings.TrimSuffix(base, ".table")
	return descriptor.ParseDecimal(base)
}

// sequence.def: "FXXYYY NAME FXXYYY FXXYYY ..." — paren-bracketed lists of
// FXY references forming a sequence's one-level expansion.
func loadTableDECCodes(path string) (TableD, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tables: open %s: %w", path, err)
	}
	defer f.Close()

	td := make(TableD)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.NewReplacer("(", " ", ")", " ", "\"", " ").Replace(line)
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		parent, err := descriptor.ParseDecimal(fields[0])
		if err != nil {
			continue
		}
		var children []descriptor.Id
		for _, tok := range fields[1:] {
			if child, err := descriptor.ParseDecimal(tok); err == nil {
				children = append(children, child)
			}
		}
		td[parent] = children
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("tables: scan %s: %w", path, err)
	}
	return td, nil
}

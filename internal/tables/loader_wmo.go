package tables

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/metno/gobufr/internal/descriptor"
)

// LoadTableB reads an element-metadata table in the format implied by
// format and returns the decoded TableB.
func LoadTableB(path string, format Format) (TableB, error) {
	switch format {
	case FormatWMOCSV:
		return loadTableBWMO(path)
	case FormatECCodes:
		return loadTableBECCodes(path)
	default:
		return loadTableBOPERA(path)
	}
}

// LoadTableC reads a code/flag table in the format implied by format.
func LoadTableC(path string, format Format) (TableC, error) {
	switch format {
	case FormatWMOCSV:
		return loadTableCWMO(path)
	case FormatECCodes:
		return loadTableCECCodes(path)
	default:
		return loadTableCOPERA(path)
	}
}

// LoadTableD reads a sequence-expansion table in the format implied by
// format.
func LoadTableD(path string, format Format) (TableD, error) {
	switch format {
	case FormatWMOCSV:
		return loadTableDWMO(path)
	case FormatECCodes:
		return loadTableDECCodes(path)
	default:
		return loadTableDOPERA(path)
	}
}

// WMO quoted-CSV table files (BUFRCREX_TableB_en.txt /
// BUFRCREX_CodeFlag_en.txt / BUFR_TableD_en.txt). Column layout follows
// the WMO publication: FXY, element name, unit, scale, reference, width.

func openCSV(path string, comma rune) (*csv.Reader, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("tables: open %s: %w", path, err)
	}
	r := csv.NewReader(f)
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r, f, nil
}

func loadTableBWMO(path string) (TableB, error) {
	r, f, err := openCSV(path, ',')
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tb := make(TableB)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("tables: parse WMO table B %s: %w", path, err)
	}
	for i, row := range rows {
		if i == 0 || len(row) < 6 {
			continue // header line or malformed row
		}
		id, err := descriptor.ParseDecimal(strings.TrimSpace(row[0]))
		if err != nil {
			continue
		}
		scale, _ := strconv.Atoi(strings.TrimSpace(row[3]))
		reference, _ := strconv.Atoi(strings.TrimSpace(row[4]))
		width, _ := strconv.Atoi(strings.TrimSpace(row[5]))
		tb[id] = descriptor.Meta{
			Name:      strings.TrimSpace(row[1]),
			Unit:      descriptor.CanonicalUnit(strings.TrimSpace(row[2])),
			Scale:     scale,
			Reference: reference,
			DataWidth: uint(width),
		}.Canonical()
	}
	return tb, nil
}

func loadTableCWMO(path string) (TableC, error) {
	r, f, err := openCSV(path, ',')
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tc := make(TableC)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("tables: parse WMO code/flag table %s: %w", path, err)
	}
	for i, row := range rows {
		if i == 0 || len(row) < 3 {
			continue
		}
		id, err := descriptor.ParseDecimal(strings.TrimSpace(row[0]))
		if err != nil {
			continue
		}
		code, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil {
			continue
		}
		if _, ok := tc[id]; !ok {
			tc[id] = make(map[int]string)
		}
		tc[id][code] = strings.TrimSpace(row[2])
	}
	return tc, nil
}

func loadTableDWMO(path string) (TableD, error) {
	r, f, err := openCSV(path, ',')
	if err != nil {
		return nil, err
	}
	defer f.Close()

	td := make(TableD)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("tables: parse WMO table D %s: %w", path, err)
	}
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		parent, err := descriptor.ParseDecimal(strings.TrimSpace(row[0]))
		if err != nil {
			continue
		}
		child, err := descriptor.ParseDecimal(strings.TrimSpace(row[1]))
		if err != nil {
			continue
		}
		td[parent] = append(td[parent], child)
	}
	return td, nil
}

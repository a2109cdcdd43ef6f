package tables

import (
	"strconv"
	"strings"

	"github.com/metno/gobufr/internal/descriptor"
)

// OPERA variants share the WMO column layout but use ';' as the field
// delimiter, so these loaders reuse the CSV reader with a different Comma.

func loadTableBOPERA(path string) (TableB, error) {
	r, f, err := openCSV(path, ';')
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tb := make(TableB)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if i == 0 || len(row) < 6 {
			continue
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

func loadTableCOPERA(path string) (TableC, error) {
	r, f, err := openCSV(path, ';')
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tc := make(TableC)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
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

func loadTableDOPERA(path string) (TableD, error) {
	r, f, err := openCSV(path, ';')
	if err != nil {
		return nil, err
	}
	defer f.Close()

	td := make(TableD)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
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

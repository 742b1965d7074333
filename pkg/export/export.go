// Package export encodes extracted tables as downloadable files.
package export

import (
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/tabula-web/backend/pkg/table"
)

type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
	FormatJSON  Format = "json"
)

// AllTables selects every table of a response.
const AllTables = -1

// Sheet names are capped by the spreadsheet format.
const maxSheetName = 31

var (
	ErrNoTables      = errors.New("no tables found")
	ErrTableNotFound = errors.New("requested table not found")
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatExcel, FormatJSON:
		return Format(s), nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown download format %q", s)
	}
}

func (f Format) Extension() string {
	switch f {
	case FormatExcel:
		return "xlsx"
	default:
		return string(f)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	default:
		return "text/csv"
	}
}

// Selection is the subset of tables chosen for one download.
type Selection struct {
	Tables []table.Table
	// Stem is the file name without extension.
	Stem string
}

// Multi reports whether more than one table was selected. AllTables over a
// single table encodes like a single selection; only the file name differs.
func (s Selection) Multi() bool {
	return len(s.Tables) > 1
}

// Select picks the table at index, or all tables for AllTables.
func Select(tables []table.Table, index int) (Selection, error) {
	if len(tables) == 0 {
		return Selection{}, ErrNoTables
	}
	if index == AllTables {
		return Selection{Tables: tables, Stem: "tables_all"}, nil
	}
	if index < 0 || index >= len(tables) {
		return Selection{}, fmt.Errorf("%w: index %d of %d", ErrTableNotFound, index, len(tables))
	}
	return Selection{
		Tables: []table.Table{tables[index]},
		Stem:   fmt.Sprintf("table_%d", index+1),
	}, nil
}

// File is an encoded download.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

func Encode(sel Selection, format Format) (File, error) {
	var (
		body []byte
		err  error
	)
	switch format {
	case FormatCSV:
		body, err = EncodeCSV(sel.Tables)
	case FormatExcel:
		body, err = EncodeExcel(sel.Tables, sel.Multi())
	case FormatJSON:
		body, err = EncodeJSON(sel.Tables, sel.Multi())
	default:
		return File{}, fmt.Errorf("unknown download format %q", format)
	}
	if err != nil {
		return File{}, fmt.Errorf("encode %s: %w", format, err)
	}

	return File{
		Name:        sel.Stem + "." + format.Extension(),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

func sheetName(i int, multi bool) string {
	if !multi {
		return "Sheet1"
	}
	name := fmt.Sprintf("Table_%d", i+1)
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}

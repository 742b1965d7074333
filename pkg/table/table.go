// Package table holds the tabular results of an extraction run: the raw
// grids returned by the engine, the filter that drops detection artefacts,
// and the preview payload built from the survivors.
package table

import "strings"

// Raw is one grid as returned by the engine. The first engine row is the
// header; Rows holds the remaining rows.
type Raw struct {
	Page    int
	Headers []string
	Rows    [][]string

	// Engine geometry in points.
	Top    float64
	Left   float64
	Width  float64
	Height float64
}

// NewRaw builds a rectangular Raw from engine rows. Short rows are padded
// with empty cells.
func NewRaw(page int, rows [][]string) Raw {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}

	grid := make([][]string, len(rows))
	for i, row := range rows {
		padded := make([]string, width)
		copy(padded, row)
		grid[i] = padded
	}

	raw := Raw{Page: page}
	if len(grid) == 0 {
		return raw
	}
	raw.Headers = grid[0]
	raw.Rows = grid[1:]
	return raw
}

// Shape returns (rows, columns) without the header row.
func (r Raw) Shape() (int, int) {
	return len(r.Rows), len(r.Headers)
}

// Table is the preview representation of one surviving grid.
type Table struct {
	Index   int        `json:"index"`
	Rows    int        `json:"rows"`
	Columns int        `json:"columns"`
	Headers []string   `json:"headers"`
	Data    [][]string `json:"data"`
}

// Assemble numbers tables in order. Slices are never nil so they encode as
// [] rather than null.
func Assemble(raws []Raw) []Table {
	tables := make([]Table, 0, len(raws))
	for i, raw := range raws {
		headers := raw.Headers
		if headers == nil {
			headers = []string{}
		}
		data := make([][]string, len(raw.Rows))
		for j, row := range raw.Rows {
			if row == nil {
				row = []string{}
			}
			data[j] = row
		}
		rows, cols := raw.Shape()
		tables = append(tables, Table{
			Index:   i,
			Rows:    rows,
			Columns: cols,
			Headers: headers,
			Data:    data,
		})
	}
	return tables
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

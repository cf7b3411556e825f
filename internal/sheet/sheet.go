// Package sheet is the tabular store the results are appended to. A sheet is
// a list of rows of string cells whose first row, once written, is the header.
package sheet

import (
	"context"
	"fmt"
)

// Sheet is the spreadsheet-like storage the sink writes to.
//
// note: fault injection point
type Sheet interface {
	// Rows returns every row of the sheet, the header included.
	Rows(ctx context.Context) ([][]string, error)
	// Header returns the first row, nil if the sheet is empty.
	Header(ctx context.Context) ([]string, error)
	// Column returns every value of the 0-based column, the header included.
	// Rows shorter than the column yield an empty string.
	Column(ctx context.Context, idx int) ([]string, error)
	// Put writes the rows starting at the first cell of the sheet.
	Put(ctx context.Context, rows [][]string) error
	// Append adds the rows after the last row of the sheet. Either all of
	// them are added or none are.
	Append(ctx context.Context, rows [][]string) error
}

// ColumnName converts a 0-based column index into spreadsheet notation (A, B, ..., Z, AA, ...).
func ColumnName(idx int) string {
	if idx < 0 {
		panic(fmt.Sprintf("negative column index %d", idx))
	}
	name := []byte{}
	for idx >= 0 {
		name = append([]byte{byte('A' + idx%26)}, name...)
		idx = idx/26 - 1
	}
	return string(name)
}

func column(rows [][]string, idx int) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out
}

package internal

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// utf8BOM makes spreadsheet apps detect the encoding of exported CSV files.
const utf8BOM = "\ufeff"

// Column describes one exported column. ExportValue overrides Value for file
// exports when the display text is not what should land in a spreadsheet.
type Column[T any] struct {
	Label       string
	Value       func(row T) string
	ExportValue func(row T) string
}

func (c Column[T]) export(row T) string {
	if c.ExportValue != nil {
		return c.ExportValue(row)
	}
	if c.Value != nil {
		return c.Value(row)
	}
	return ""
}

// ExportRecords renders a header record followed by one record per row.
func ExportRecords[T any](cols []Column[T], rows []T) [][]string {
	records := make([][]string, 0, len(rows)+1)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Label
	}
	records = append(records, header)

	for _, row := range rows {
		rec := make([]string, len(cols))
		for i, c := range cols {
			rec[i] = c.export(row)
		}
		records = append(records, rec)
	}
	return records
}

// WriteCSV writes a BOM-prefixed CSV document. Fields containing a comma, quote
// or line break are quoted with embedded quotes doubled.
func WriteCSV[T any](w io.Writer, cols []Column[T], rows []T) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("writing BOM: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(ExportRecords(cols, rows)); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	return nil
}

// WriteXLSX writes the records to a single-sheet workbook.
func WriteXLSX[T any](w io.Writer, sheet string, cols []Column[T], rows []T) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Export"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	for i, rec := range ExportRecords(cols, rows) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("addressing row %d: %w", i+1, err)
		}
		values := make([]interface{}, len(rec))
		for j, v := range rec {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

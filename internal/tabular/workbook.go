package tabular

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"okrboard/internal/apperr"
	"okrboard/internal/okr"
)

// ExportWorkbook writes ds as an xlsx workbook with a single OKR Verileri
// sheet. A dataset without key results has nothing to export.
func ExportWorkbook(w io.Writer, ds okr.Dataset, now time.Time) error {
	rows := ToRows(ds, now)
	if len(rows) == 0 {
		return apperr.Validation("no data to export", "create objectives with key results before exporting")
	}
	return WriteTable(w, ExportSheet, Flatten(rows, okr.PeriodUniverse(now)))
}

// ImportWorkbook reads the first sheet of an xlsx workbook into records.
func ImportWorkbook(r io.Reader) ([]Record, error) {
	table, err := ReadTable(r)
	if err != nil {
		return nil, err
	}
	rows, err := Unflatten(table)
	if err != nil {
		return nil, err
	}
	return FromRows(rows), nil
}

// WriteTable writes a header-first table to a new workbook. Cells under
// numeric columns that parse as numbers are stored as numbers.
func WriteTable(w io.Writer, sheet string, table [][]string) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	var header []string
	if len(table) > 0 {
		header = table[0]
	}
	for i, values := range table {
		cells := make([]interface{}, len(values))
		for j, v := range values {
			cells[j] = v
			if i > 0 && j < len(header) && numericColumn(header[j]) {
				if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
					cells[j] = n
				}
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if len(table) > 0 {
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("header style: %w", err)
		}
		if err := f.SetRowStyle(sheet, 1, 1, style); err != nil {
			return fmt.Errorf("header style: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ReadTable returns every row of the workbook's first sheet. Cells are read
// raw so numbers keep full precision instead of their display format.
// Unreadable input is an import format error.
func ReadTable(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.ImportFormat("the file is not a readable xlsx workbook", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.ImportFormat("the workbook has no sheets", nil)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperr.ImportFormat("could not read sheet "+strconv.Quote(sheets[0]), err)
	}
	return rows, nil
}

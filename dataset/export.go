package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/spektr-org/tablero/engine"
)

// ============================================================================
// EXPORT - TableData → XLSX / CSV
// ============================================================================

const defaultSheet = "Datos"

// WriteXLSX writes a table as a single-sheet workbook. Number columns are
// stored as numbers so spreadsheets can sum them.
func WriteXLSX(w io.Writer, sheet string, table *engine.TableData) error {
	if sheet == "" {
		sheet = defaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, header := range table.Headers() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header %s: %w", cell, err)
		}
		f.SetColWidth(sheet, columnName(i+1), columnName(i+1), 18)
	}

	for r, row := range table.Rows {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, cellValue(table, c, value)); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteCSV writes a table as CSV with its column labels as header.
func WriteCSV(w io.Writer, table *engine.TableData) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Headers()); err != nil {
		return err
	}
	if err := cw.WriteAll(table.Rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func cellValue(table *engine.TableData, col int, value string) any {
	if col >= len(table.Columns) || table.Columns[col].Type != "number" || value == "" {
		return value
	}
	if v, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64); err == nil {
		return v
	}
	return value
}

func columnName(n int) string {
	name, _ := excelize.ColumnNumberToName(n)
	return name
}

// Package dataset turns CSV and spreadsheet files into engine frames and
// keeps the named datasets the pages read from.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/spektr-org/tablero/engine"
)

// ============================================================================
// LOADERS - CSV / XLSX → engine.Frame
// ============================================================================
// The first row is the header. Ragged rows are padded or truncated to the
// header width by engine.NewFrame; rows the CSV reader cannot parse are
// skipped and counted.
// ============================================================================

var (
	// ErrNoHeader is returned for an input without a header row.
	ErrNoHeader = errors.New("file has no header row")

	// ErrUnsupportedFormat is returned for extensions other than .csv and .xlsx.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

const bom = "\ufeff"

// ParseCSV reads a CSV stream into a frame and reports how many malformed
// rows were skipped.
func ParseCSV(r io.Reader, name string) (*engine.Frame, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, 0, ErrNoHeader
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	headers = cleanHeaders(headers)

	var rows [][]string
	skipped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue // skip malformed rows
		}
		rows = append(rows, row)
	}

	return engine.NewFrame(name, headers, rows), skipped, nil
}

// ParseXLSX reads one sheet of a workbook into a frame. An empty sheet name
// selects the first sheet. Blank rows are dropped.
func ParseXLSX(r io.Reader, name, sheet string) (*engine.Frame, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, errors.New("excel file does not contain any sheets")
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows from sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	headers := cleanHeaders(rows[0])
	var body [][]string
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		body = append(body, row)
	}
	return engine.NewFrame(name, headers, body), nil
}

// Load reads a .csv or .xlsx file. The frame is named after the file stem.
func Load(path string) (*engine.Frame, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	frame, _, err := Parse(file, filepath.Base(path), name)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return frame, nil
}

// Parse dispatches on the extension of filename.
func Parse(r io.Reader, filename, name string) (*engine.Frame, int, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ParseCSV(r, name)
	case ".xlsx":
		frame, err := ParseXLSX(r, name, "")
		return frame, 0, err
	default:
		return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

func cleanHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		if i == 0 {
			h = strings.TrimPrefix(h, bom)
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

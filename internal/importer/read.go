package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("importer: unsupported file format")
	ErrTooFewRows        = errors.New("importer: file must have at least a header row and one data row")
)

// Format is a spreadsheet file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" and "xlsx" case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// FormatFromFilename picks the format from a file extension.
func FormatFromFilename(name string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Sheet is a header row plus its non-blank data rows.
type Sheet struct {
	Headers []string
	Rows    [][]string
}

// Record returns row i keyed by header. Missing trailing cells are blank.
func (s *Sheet) Record(i int) map[string]string {
	rec := make(map[string]string, len(s.Headers))
	row := s.Rows[i]
	for j, h := range s.Headers {
		if j < len(row) {
			rec[h] = row[j]
		} else {
			rec[h] = ""
		}
	}
	return rec
}

// Read parses r in the given format. Only the first sheet of a workbook
// is read.
func Read(r io.Reader, format Format) (*Sheet, error) {
	var rows [][]string
	var err error
	switch format {
	case FormatCSV:
		rows, err = readCSV(r)
	case FormatXLSX:
		rows, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return newSheet(rows)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrTooFewRows
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func newSheet(rows [][]string) (*Sheet, error) {
	if len(rows) < 2 {
		return nil, ErrTooFewRows
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if !blank(row) {
			data = append(data, row)
		}
	}
	if len(data) == 0 {
		return nil, ErrTooFewRows
	}
	return &Sheet{Headers: headers, Rows: data}, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

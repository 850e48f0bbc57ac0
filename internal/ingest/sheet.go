package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrNoRows is returned when an upload contains no data rows.
	ErrNoRows = errors.New("no rows found in uploaded file")
	// ErrInvalidSheet wraps every failure to read an uploaded spreadsheet.
	ErrInvalidSheet = errors.New("invalid spreadsheet")
)

// TemplateHeaders is the header row of the downloadable upload template.
var TemplateHeaders = []string{"Student ID", "Name", "Email", "Gender", "Branch", "Year", "Section", "Phone"}

var templateExample = []string{"O210000", "ExampleStudent", "o210000@rguktong.ac.in", "Male", "CSE", "E1", "A", "9876543210"}

const templateSheet = "Template"

var zipMagic = []byte("PK\x03\x04")

// ParseSheet reads the first worksheet of an xlsx upload, or a csv upload,
// into rows keyed by the header row. Fully blank rows are skipped.
func ParseSheet(filename string, data []byte) ([]Row, error) {
	var (
		records [][]string
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); {
	case bytes.HasPrefix(data, zipMagic):
		records, err = readXLSX(data)
	case ext == ".csv" || (ext != ".xls" && utf8.Valid(data)):
		records, err = readCSV(data)
	default:
		err = fmt.Errorf("unsupported file type %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSheet, err)
	}
	return toRows(records), nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return records, nil
}

func toRows(records [][]string) []Row {
	if len(records) < 2 {
		return nil
	}
	header := records[0]
	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(Row, 0, len(header))
		blank := true
		for i, h := range header {
			if strings.TrimSpace(h) == "" {
				continue
			}
			val := ""
			if i < len(rec) {
				val = rec[i]
			}
			if strings.TrimSpace(val) != "" {
				blank = false
			}
			row = append(row, Cell{Header: h, Value: val})
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return rows
}

// Template renders the xlsx students can fill in for bulk upload.
func Template() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), templateSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for i, values := range [][]string{TemplateHeaders, templateExample} {
		cells := make([]interface{}, len(values))
		for j, v := range values {
			cells[j] = v
		}
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(templateSheet, axis, &cells); err != nil {
			return nil, fmt.Errorf("write template row: %w", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	return buf.Bytes(), nil
}

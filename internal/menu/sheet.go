package menu

import (
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// Upload sheets have two header rows, then one row per weekday from Monday
// to Friday. Column A names the day, options start at column B.
const firstDayRow = 2

var allowedExt = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".csv":  true,
}

var (
	ErrFileExtension = errors.New("file type not allowed, upload an .xlsx or .csv menu")
	ErrEmptySheet    = errors.New("spreadsheet has no rows")
)

func ValidateFileExtension(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || !allowedExt[ext] {
		return ErrFileExtension
	}
	return nil
}

// ParseFile dispatches on the file extension.
func ParseFile(filename string, r io.Reader) (map[string][]string, error) {
	if err := ValidateFileExtension(filename); err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return ParseCSV(r)
	}
	return ParseSheet(r)
}

// ParseSheet reads the first worksheet of an xlsx workbook.
func ParseSheet(r io.Reader) (map[string][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, "read worksheet")
	}
	return rowsToRaw(rows)
}

func ParseCSV(r io.Reader) (map[string][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	return rowsToRaw(rows)
}

// rowsToRaw keys each day row by its column A label, falling back to the
// positional weekday when the label cell is blank. Normalize decides what
// the labels mean.
func rowsToRaw(rows [][]string) (map[string][]string, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}

	raw := make(map[string][]string)
	for i, day := range Days {
		idx := firstDayRow + i
		if idx >= len(rows) || len(rows[idx]) == 0 {
			continue
		}
		row := rows[idx]

		label := strings.TrimSpace(row[0])
		if label == "" {
			label = day
		}

		var options []string
		for _, cell := range row[1:] {
			if cell = strings.TrimSpace(cell); cell != "" {
				options = append(options, cell)
			}
		}
		raw[label] = append(raw[label], options...)
	}
	return raw, nil
}

// Package excel reads tabular datasets from Excel workbooks and CSV files
// into numeric columns. Blank and non-numeric cells become NaN so the design
// layer's listwise deletion can handle them uniformly.
package excel

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/takjakim/method-studio/ports"
)

// DataReader handles both .xlsx and .csv inputs, chosen by file extension.
type DataReader struct{}

func NewDataReader() *DataReader { return &DataReader{} }

var _ ports.DatasetReader = (*DataReader)(nil)

// Read loads the file at path and returns its header names in sheet order
// plus the numeric values keyed by column name.
func (r *DataReader) Read(path string) ([]string, map[string][]float64, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("dataset file not found: %s", path)
	}

	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSVRows(path)
	case ".xlsx", ".xlsm":
		rows, err = readExcelRows(path)
	default:
		return nil, nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, nil, err
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("dataset must have a header row and at least one data row")
	}

	return parseRows(rows)
}

func readExcelRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := "Sheet1"
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

func readCSVRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

func parseRows(rows [][]string) ([]string, map[string][]float64, error) {
	header := rows[0]
	names := make([]string, 0, len(header))
	for _, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			break
		}
		names = append(names, h)
	}
	if len(names) == 0 {
		return nil, nil, fmt.Errorf("header row has no column names")
	}

	cols := make([][]float64, len(names))
	for j := range cols {
		cols[j] = make([]float64, 0, len(rows)-1)
	}
	for _, row := range rows[1:] {
		empty := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}
		for j := range names {
			cols[j] = append(cols[j], parseCell(row, j))
		}
	}
	if len(cols[0]) == 0 {
		return nil, nil, fmt.Errorf("dataset has no data rows")
	}
	data := make(map[string][]float64, len(names))
	for j, name := range names {
		data[name] = cols[j]
	}
	return names, data, nil
}

func parseCell(row []string, j int) float64 {
	if j >= len(row) {
		return math.NaN()
	}
	s := strings.TrimSpace(row[j])
	if s == "" {
		return math.NaN()
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"trialloc/domain/core"

	"github.com/xuri/excelize/v2"
)

// DataReader reads covariate tables from Excel and CSV files. Layout:
// one header row of covariate names, then one row per patient. When the
// first header cell is "patient_id" that column supplies patient IDs;
// every other cell must parse as a number.
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

const idHeader = "patient_id"

// NewDataReader creates a reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType}
}

// ReadTable reads the raw string rows from the underlying file
func (r *DataReader) ReadTable() ([][]string, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVRows()
	case "xlsx":
		return r.readExcelRows()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

func (r *DataReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	// Always use Sheet1
	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, fmt.Errorf("failed to read Sheet1: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("Excel file must have at least a header row and one data row")
	}
	return rows, nil
}

func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("CSV file must have at least a header row and one data row")
	}
	return rows, nil
}

// parseCovariateRows converts raw string rows into covariate keys, patient
// IDs and a numeric matrix. Non-numeric cells are an input error, not a
// value to impute.
func parseCovariateRows(rows [][]string) ([]core.CovariateKey, []core.PatientID, [][]float64, error) {
	header := rows[0]
	hasIDs := len(header) > 0 && strings.EqualFold(strings.TrimSpace(header[0]), idHeader)

	firstCol := 0
	if hasIDs {
		firstCol = 1
	}
	if len(header)-firstCol < 1 {
		return nil, nil, nil, core.NewInvalidInputError("no covariate columns in header")
	}

	keys := make([]core.CovariateKey, 0, len(header)-firstCol)
	for _, name := range header[firstCol:] {
		key, err := core.ParseCovariateKey(name)
		if err != nil {
			return nil, nil, nil, core.NewInvalidInputError(err.Error())
		}
		keys = append(keys, key)
	}

	var ids []core.PatientID
	data := make([][]float64, 0, len(rows)-1)
	for rowIdx, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, nil, nil, core.NewInvalidInputError(
				fmt.Sprintf("row %d has %d cells, expected %d", rowIdx+1, len(row), len(header)))
		}
		if hasIDs {
			ids = append(ids, core.PatientID(strings.TrimSpace(row[0])))
		}
		values := make([]float64, len(keys))
		for colIdx, cell := range row[firstCol:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, nil, nil, core.NewInvalidInputError(
					fmt.Sprintf("cell (%d,%s) is not numeric: %q", rowIdx+1, keys[colIdx], cell))
			}
			values[colIdx] = v
		}
		data = append(data, values)
	}

	return keys, ids, data, nil
}

package excel

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bizmetrics/adapters/datareadiness/coercer"
	"bizmetrics/domain/core"
	"bizmetrics/domain/dataset"
	"bizmetrics/internal"
	"bizmetrics/ports"

	"github.com/xuri/excelize/v2"
)

const (
	fileTypeCSV  = "csv"
	fileTypeXLSX = "xlsx"
)

// DataReader handles reading Excel and CSV files into typed datasets
type DataReader struct {
	config  ReaderConfig
	coercer *coercer.TypeCoercer
	logger  *internal.Logger
}

// NewDataReader creates a reader that handles both Excel and CSV files
func NewDataReader(config ReaderConfig, logger *internal.Logger) ports.DatasetReader {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DataReader{
		config:  config,
		coercer: coercer.NewTypeCoercer(config.CoercionConfig),
		logger:  logger.With("DataReader"),
	}
}

// fileType maps a file name to a supported format
func fileType(name string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv":
		return fileTypeCSV, nil
	case ".xlsx", ".xlsm":
		return fileTypeXLSX, nil
	default:
		return "", core.NewInvalidInputError("file", "unsupported file type %q, want .csv or .xlsx", ext)
	}
}

// ReadFile reads a CSV or XLSX file from disk
func (r *DataReader) ReadFile(ctx context.Context, path string) (*dataset.Dataset, error) {
	if _, err := fileType(path); err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: file %s", core.ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()
	return r.Read(ctx, path, file)
}

// Read reads an upload; name selects the format by extension
func (r *DataReader) Read(ctx context.Context, name string, src io.Reader) (*dataset.Dataset, error) {
	typ, err := fileType(name)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("starting to read %s file: %s", typ, name)

	readStart := time.Now()
	var rows [][]string
	switch typ {
	case fileTypeCSV:
		rows, err = r.readCSVRows(src)
	case fileTypeXLSX:
		rows, err = r.readExcelRows(src)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug("%s read in %.2fms (%d rows)", name, float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	ds, err := r.processRows(rows)
	if err != nil {
		return nil, err
	}
	r.logger.Info("%s processed (%d columns, %d rows)", filepath.Base(name), len(ds.ColumnNames()), ds.Len())
	return ds, nil
}

// readExcelRows reads the configured sheet, or the first one
func (r *DataReader) readExcelRows(src io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, core.NewInvalidInputError("file", "failed to open Excel file: %v", err)
	}
	defer f.Close()

	sheet := r.config.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, core.NewInvalidInputError("file", "workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, core.NewInvalidInputError("sheet", "failed to read %s: %v", sheet, err)
	}
	return rows, nil
}

// readCSVRows reads CSV data, tolerating ragged rows and a UTF-8 BOM
func (r *DataReader) readCSVRows(src io.Reader) ([][]string, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, core.NewInvalidInputError("file", "malformed CSV: %v", err)
	}
	return rows, nil
}

// processRows turns raw string rows into typed columns. The first row holds
// the headers; blank rows are skipped and short rows padded.
func (r *DataReader) processRows(rows [][]string) (*dataset.Dataset, error) {
	if len(rows) < 2 {
		return nil, core.NewInvalidInputError("file", "must have at least a header row and one data row")
	}

	headers := make([]string, len(rows[0]))
	seen := make(map[string]bool, len(headers))
	for i, header := range rows[0] {
		name := NormalizeHeader(header)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if seen[name] {
			return nil, core.NewInvalidInputError("header", "duplicate column %q", name)
		}
		seen[name] = true
		headers[i] = name
	}

	cells := make([][]string, len(headers))
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		for j := range headers {
			cell := ""
			if j < len(row) {
				cell = strings.TrimSpace(row[j])
			}
			cells[j] = append(cells[j], cell)
		}
	}
	if len(headers) == 0 || len(cells[0]) == 0 {
		return nil, core.NewInvalidInputError("file", "must have at least a header row and one data row")
	}

	columns := make([]*dataset.Column, len(headers))
	for j, name := range headers {
		col, err := r.buildColumn(name, cells[j])
		if err != nil {
			return nil, err
		}
		columns[j] = col
	}
	return dataset.New(columns...)
}

func (r *DataReader) buildColumn(name string, raw []string) (*dataset.Column, error) {
	pinned, ok := r.config.ColumnTypes[name]
	if !ok {
		col := r.coercer.CoerceColumn(name, raw)
		r.logger.Trace("column %s detected as %s", name, col.Type())
		return col, nil
	}

	typ := dataset.SemanticType(strings.ToLower(pinned))
	if !typ.Valid() {
		return nil, core.NewInvalidInputError("column_types", "unknown type %q for %s", pinned, name)
	}
	return r.coercer.CoerceColumnAs(name, raw, typ), nil
}

// NormalizeHeader lowercases a header and joins words with underscores, so
// "Order Date" and "order-date" both become order_date.
func NormalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '\t'
	})
	return strings.Join(fields, "_")
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

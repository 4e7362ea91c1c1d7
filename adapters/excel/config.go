package excel

import (
	"bizmetrics/adapters/datareadiness/coercer"
)

// ReaderConfig holds configuration for CSV and XLSX ingestion
type ReaderConfig struct {
	// Sheet selects the XLSX worksheet; empty means the first sheet
	Sheet          string                 `json:"sheet"`
	CoercionConfig coercer.CoercionConfig `json:"coercion_config"`
	// ColumnTypes pins the semantic type of named columns, skipping detection
	ColumnTypes map[string]string `json:"column_types,omitempty"`
}

// DefaultReaderConfig returns sensible defaults for file ingestion
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		CoercionConfig: coercer.DefaultCoercionConfig(),
	}
}

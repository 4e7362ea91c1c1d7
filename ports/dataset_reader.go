package ports

import (
	"context"
	"io"

	"bizmetrics/domain/dataset"
)

// DatasetReader ingests tabular files into typed datasets. Type detection
// happens here, never in the analytics core.
type DatasetReader interface {
	// ReadFile loads a CSV or XLSX file from disk
	ReadFile(ctx context.Context, path string) (*dataset.Dataset, error)
	// Read loads an upload; name selects the format by extension
	Read(ctx context.Context, name string, r io.Reader) (*dataset.Dataset, error)
}

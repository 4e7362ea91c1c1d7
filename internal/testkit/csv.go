package testkit

import (
	"encoding/csv"
	"fmt"
	"io"

	"bizmetrics/domain/dataset"
)

// WriteCSV writes ds with a header row. Cells use Dataset.Labels rendering,
// so the output reads back through the CSV ingestion adapter unchanged.
func WriteCSV(w io.Writer, ds *dataset.Dataset) error {
	names := ds.ColumnNames()
	columns := make([][]string, len(names))
	for i, name := range names {
		labels, err := ds.Labels(name)
		if err != nil {
			return fmt.Errorf("failed to render column %s: %w", name, err)
		}
		columns[i] = labels
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(names); err != nil {
		return err
	}
	record := make([]string, len(names))
	for row := 0; row < ds.Len(); row++ {
		for i := range columns {
			record[i] = columns[i][row]
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

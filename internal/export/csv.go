package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"codeberg.org/snonux/voxpref/internal/results"
)

// CSVExporter writes the result table as comma separated values
type CSVExporter struct{}

func (e *CSVExporter) Extension() string { return "csv" }

// Export writes the header row followed by one row per candidate
func (e *CSVExporter) Export(w io.Writer, doc Document) error {
	if doc.Table == nil || len(doc.Table.Rows) == 0 {
		return results.ErrNoData
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(doc.Table.Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := cw.WriteAll(doc.Table.Rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}

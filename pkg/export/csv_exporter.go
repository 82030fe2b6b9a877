package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVExporter renders transcripts into CSV bytes with the same column
// order and summary rows as the PDF layout.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the transcript.
func (e *CSVExporter) Render(doc Transcript) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	if err := writer.Write(TranscriptColumns); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range doc.Rows {
		if err := writer.Write(doc.cells(row)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	summary := [][]string{
		{"CGPA", doc.CGPA},
		{"Credit completed", doc.CreditCompleted},
	}
	for _, row := range summary {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv summary: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

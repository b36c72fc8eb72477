package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"codeberg.org/snonux/voxpref/internal"
	"codeberg.org/snonux/voxpref/internal/results"
)

// DefaultTitle heads every exported report
const DefaultTitle = "Pronunciation Analysis Report"

// Document is everything an exporter renders
type Document struct {
	Title             string
	GeneratedAt       time.Time
	TargetWord        string
	BestTranscription string
	WeightedScore     string
	Table             *results.Table
}

// bestFirst reports whether the first row is the best transcription and
// should be highlighted
func (doc Document) bestFirst() bool {
	return doc.Table.Leads(doc.BestTranscription)
}

// FromView builds a document from a result view
func FromView(v *results.View, now time.Time) Document {
	return Document{
		Title:             DefaultTitle,
		GeneratedAt:       now,
		TargetWord:        v.TargetWord,
		BestTranscription: v.BestTranscription,
		WeightedScore:     v.FormatWeightedScore(),
		Table:             v.Table,
	}
}

// Exporter serializes a document
type Exporter interface {
	Export(w io.Writer, doc Document) error
	Extension() string
}

// Options configure New
type Options struct {
	FontPath string
	Logger   *zap.Logger
}

// New returns the exporter for format ("pdf" or "csv")
func New(format string, opts Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "pdf":
		return &PDFExporter{FontPath: opts.FontPath, Logger: opts.Logger}, nil
	case "csv":
		return &CSVExporter{}, nil
	}
	return nil, fmt.Errorf("unsupported export format: %s (supported: pdf, csv)", format)
}

// WriteFile exports doc into dir and returns the path of the new file
func WriteFile(dir string, exp Exporter, doc Document) (string, error) {
	if doc.Table == nil || len(doc.Table.Rows) == 0 {
		return "", results.ErrNoData
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.%s",
		internal.SanitizeFilename(doc.TargetWord),
		internal.GenerateReportID(doc.TargetWord),
		exp.Extension())
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	if err := exp.Export(f, doc); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

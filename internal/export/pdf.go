package export

import (
	"fmt"
	"io"
	"os"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"codeberg.org/snonux/voxpref/internal/results"
)

// DefaultFontPaths are tried in order for a TrueType font covering IPA
var DefaultFontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/usr/local/share/fonts/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/noto/NotoSans-Regular.ttf",
	"/usr/share/fonts/noto/NotoSans-Regular.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
	"/System/Library/Fonts/Supplemental/Arial Unicode.ttf",
	"C:\\Windows\\Fonts\\arial.ttf",
}

const (
	unicodeFamily = "ipa"
	coreFamily    = "Helvetica"
	ipaColumnMM   = 60.0
	rowHeightMM   = 8.0
)

// PDFExporter renders a landscape A4 report
type PDFExporter struct {
	// FontPath, when set, must point at a TrueType font
	FontPath string
	// NoSystemFonts disables probing DefaultFontPaths
	NoSystemFonts bool
	Logger        *zap.Logger
}

func (e *PDFExporter) Extension() string { return "pdf" }

// findFont returns the font to embed, or "" to use a core font
func (e *PDFExporter) findFont() (string, error) {
	if e.FontPath != "" {
		if _, err := os.Stat(e.FontPath); err != nil {
			return "", fmt.Errorf("font not found: %w", err)
		}
		return e.FontPath, nil
	}
	if e.NoSystemFonts {
		return "", nil
	}
	for _, p := range DefaultFontPaths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", nil
}

func (e *PDFExporter) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// Export draws the title, timestamp, word and IPA lines, and the score grid
// with the first row shaded as the recommended candidate
func (e *PDFExporter) Export(w io.Writer, doc Document) error {
	if doc.Table == nil || len(doc.Table.Rows) == 0 {
		return results.ErrNoData
	}

	fontPath, err := e.findFont()
	if err != nil {
		return err
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("voxpref", true)
	pdf.SetCreationDate(doc.GeneratedAt)

	family := coreFamily
	text := func(s string) string { return s }
	if fontPath != "" {
		data, err := os.ReadFile(fontPath)
		if err != nil {
			return fmt.Errorf("failed to read font: %w", err)
		}
		pdf.AddUTF8FontFromBytes(unicodeFamily, "", data)
		pdf.AddUTF8FontFromBytes(unicodeFamily, "B", data)
		family = unicodeFamily
	} else {
		e.logger().Warn("no unicode font found, IPA symbols may not render; set export.font_path")
		text = pdf.UnicodeTranslatorFromDescriptor("")
	}

	pdf.SetMargins(10, 12, 10)
	pdf.AddPage()

	pdf.SetFont(family, "B", 18)
	pdf.CellFormat(0, 10, text(doc.Title), "", 1, "L", false, 0, "")

	pdf.SetFont(family, "", 10)
	pdf.SetTextColor(107, 114, 128)
	pdf.CellFormat(0, 6, text("Generated: "+doc.GeneratedAt.Format("2006-01-02 15:04:05")), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(3)

	pdf.SetFont(family, "", 12)
	pdf.CellFormat(0, 7, text("Target word: "+doc.TargetWord), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, text("Best IPA transcription: "+doc.BestTranscription), "", 1, "L", false, 0, "")
	if doc.WeightedScore != "" {
		pdf.CellFormat(0, 7, text("Weighted score: "+doc.WeightedScore), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	widths := columnWidths(pageW-left-right, len(doc.Table.Header))

	pdf.SetFont(family, "B", 11)
	pdf.SetFillColor(229, 231, 235)
	for i, h := range doc.Table.Header {
		pdf.CellFormat(widths[i], rowHeightMM, text(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 11)
	best := doc.bestFirst()
	for r, row := range doc.Table.Rows {
		fill := r == 0 && best
		if fill {
			pdf.SetFillColor(243, 232, 255)
		}
		for i := range doc.Table.Header {
			cell := "-"
			if i < len(row) {
				cell = row[i]
			}
			align := "C"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(widths[i], rowHeightMM, text(cell), "1", 0, align, fill, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

// columnWidths gives the IPA column a fixed width and splits the rest evenly
func columnWidths(total float64, n int) []float64 {
	widths := make([]float64, n)
	if n == 0 {
		return widths
	}
	first := ipaColumnMM
	if n == 1 || first > total/2 {
		first = total / float64(n)
	}
	widths[0] = first
	for i := 1; i < n; i++ {
		widths[i] = (total - first) / float64(n-1)
	}
	return widths
}

package results

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	accentColor = lipgloss.Color("#7E22CE")
	mutedColor  = lipgloss.Color("#6B7280")
	bestRowBg   = lipgloss.Color("#F3E8FF")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	labelStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	valueStyle  = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(mutedColor).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	bestStyle   = cellStyle.Background(bestRowBg).Foreground(accentColor).Bold(true)
)

// View is a result ready for display, with the recommended candidate first
type View struct {
	TargetWord        string
	BestTranscription string
	WeightedScore     *float64
	Table             *Table
}

// NewView promotes the best transcription to the first row and shapes the
// table. It returns ErrNoData for an empty score table.
func NewView(r *AnalysisResult) (*View, error) {
	shaped, err := Shape(PromoteBest(r.FinalTable, r.BestTranscription))
	if err != nil {
		return nil, err
	}
	return &View{
		TargetWord:        r.TargetWord,
		BestTranscription: r.BestTranscription,
		WeightedScore:     r.WeightedScore,
		Table:             shaped,
	}, nil
}

// FormatWeightedScore returns the weighted score with three decimals, or ""
func (v *View) FormatWeightedScore() string {
	if v.WeightedScore == nil {
		return ""
	}
	return strconv.FormatFloat(*v.WeightedScore, 'f', 3, 64)
}

// rowStyle marks the first data row only when it holds the best transcription
func rowStyle(row int, highlight bool) lipgloss.Style {
	switch {
	case row == table.HeaderRow:
		return headerStyle
	case row == table.HeaderRow+1 && highlight:
		return bestStyle
	default:
		return cellStyle
	}
}

// Render draws the view for a terminal
func (v *View) Render() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Results"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Word:"), valueStyle.Render(v.TargetWord))
	fmt.Fprintf(&b, "%s %s\n\n", labelStyle.Render("Best IPA Transcription:"), valueStyle.Render(v.BestTranscription))

	highlight := v.Table.Leads(v.BestTranscription)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(mutedColor)).
		Headers(v.Table.Header...).
		Rows(v.Table.Rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			return rowStyle(row, highlight)
		})
	b.WriteString(t.String())
	b.WriteString("\n\n")

	b.WriteString(titleStyle.Render("Recommended Pronunciation"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Based on your preference grammar, the preferred pronunciation is: %s\n", valueStyle.Render(v.BestTranscription))
	if ws := v.FormatWeightedScore(); ws != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Weighted Score:"), ws)
	}

	return b.String()
}

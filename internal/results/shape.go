package results

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrNoData is returned for an empty score table. It is a state of its own,
// never an empty table.
var ErrNoData = errors.New("no data available in results table")

// IPAColumn is the first header cell
const IPAColumn = "IPA"

// Table is the display form of a score table
type Table struct {
	Header []string
	Rows   [][]string
}

// Shape turns a score table into display rows. Row order follows the input;
// columns follow the score names of the first candidate. Numbers get three
// decimals, other values pass through as strings, missing cells become "-".
func Shape(t ScoreTable) (*Table, error) {
	if len(t) == 0 {
		return nil, ErrNoData
	}

	header := []string{IPAColumn}
	for _, s := range t[0].Scores {
		header = append(header, s.Name)
	}

	rows := make([][]string, 0, len(t))
	for _, c := range t {
		row := make([]string, 0, len(header))
		row = append(row, c.IPA)
		for _, name := range header[1:] {
			v, ok := c.Lookup(name)
			if !ok {
				row = append(row, "-")
				continue
			}
			row = append(row, FormatValue(v))
		}
		rows = append(rows, row)
	}

	return &Table{Header: header, Rows: rows}, nil
}

// Leads reports whether the first row belongs to the ipa transcription
func (t *Table) Leads(ipa string) bool {
	return t != nil && ipa != "" && len(t.Rows) > 0 && len(t.Rows[0]) > 0 && t.Rows[0][0] == ipa
}

// FormatValue renders a score cell
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case float64:
		return strconv.FormatFloat(x, 'f', 3, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', 3, 32)
	case int:
		return strconv.FormatFloat(float64(x), 'f', 3, 64)
	case int64:
		return strconv.FormatFloat(float64(x), 'f', 3, 64)
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

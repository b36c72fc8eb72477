package results

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Score is one named value in a candidate's score record
type Score struct {
	Name  string
	Value any // float64, string, bool or nil
}

// Candidate is one IPA transcription and its scores, in service order
type Candidate struct {
	IPA    string
	Scores []Score
}

// Lookup returns the value of a named score
func (c Candidate) Lookup(name string) (any, bool) {
	for _, s := range c.Scores {
		if s.Name == name {
			return s.Value, true
		}
	}
	return nil, false
}

// ScoreTable maps IPA candidates to score records. It decodes from a JSON
// object and keeps the member order the scoring service sent.
type ScoreTable []Candidate

// Find returns the index of an IPA candidate, or -1
func (t ScoreTable) Find(ipa string) int {
	for i, c := range t {
		if c.IPA == ipa {
			return i
		}
	}
	return -1
}

// UnmarshalJSON decodes {"/ipa/": {"IA": 0.9, ...}, ...} preserving order
func (t *ScoreTable) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("score table: %w", err)
	}
	if tok == nil {
		*t = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("score table: expected object, got %v", tok)
	}

	var out ScoreTable
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("score table: %w", err)
		}
		ipa, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("score table: unexpected key %v", keyTok)
		}

		scores, err := decodeScores(dec)
		if err != nil {
			return fmt.Errorf("score table: candidate %q: %w", ipa, err)
		}

		// A repeated key replaces the earlier record but keeps its position
		if i := out.Find(ipa); i >= 0 {
			out[i].Scores = scores
			continue
		}
		out = append(out, Candidate{IPA: ipa, Scores: scores})
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("score table: %w", err)
	}

	*t = out
	return nil
}

func decodeScores(dec *json.Decoder) ([]Score, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var scores []Score
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key %v", keyTok)
		}

		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		scores = append(scores, Score{Name: name, Value: normalizeValue(v)})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return scores, nil
}

func normalizeValue(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// MarshalJSON writes the table back as an object in the same order
func (t ScoreTable) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.IPA)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteString(":{")
		for j, s := range c.Scores {
			if j > 0 {
				buf.WriteByte(',')
			}
			name, err := json.Marshal(s.Name)
			if err != nil {
				return nil, err
			}
			value, err := json.Marshal(s.Value)
			if err != nil {
				return nil, err
			}
			buf.Write(name)
			buf.WriteByte(':')
			buf.Write(value)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// PromoteBest returns a copy of the table with the best candidate moved to
// the front. The relative order of the other candidates is kept. If best is
// not in the table the copy is returned unchanged.
func PromoteBest(t ScoreTable, best string) ScoreTable {
	out := make(ScoreTable, 0, len(t))
	i := t.Find(best)
	if i < 0 {
		return append(out, t...)
	}
	out = append(out, t[i])
	out = append(out, t[:i]...)
	return append(out, t[i+1:]...)
}

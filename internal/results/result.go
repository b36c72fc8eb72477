package results

import "encoding/json"

// AnalysisResult is the scoring service's answer for one target word
type AnalysisResult struct {
	TargetWord        string     `json:"targetWord"`
	BestTranscription string     `json:"bestTranscription"`
	FinalTable        ScoreTable `json:"finalTable"`
	WeightedScore     *float64   `json:"weightedScore,omitempty"`
}

// UnmarshalJSON accepts both the camelCase keys the client stores and the
// snake_case keys the scoring service emits
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	var wire struct {
		TargetWord             string     `json:"targetWord"`
		TargetWordSnake        string     `json:"target_word"`
		BestTranscription      string     `json:"bestTranscription"`
		BestTranscriptionSnake string     `json:"best_transcription"`
		FinalTable             ScoreTable `json:"finalTable"`
		FinalTableSnake        ScoreTable `json:"final_table"`
		WeightedScore          *float64   `json:"weightedScore"`
		WeightedScoreSnake     *float64   `json:"weighted_score"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*r = AnalysisResult{
		TargetWord:        firstNonEmpty(wire.TargetWord, wire.TargetWordSnake),
		BestTranscription: firstNonEmpty(wire.BestTranscription, wire.BestTranscriptionSnake),
		FinalTable:        wire.FinalTable,
		WeightedScore:     wire.WeightedScore,
	}
	if r.FinalTable == nil {
		r.FinalTable = wire.FinalTableSnake
	}
	if r.WeightedScore == nil {
		r.WeightedScore = wire.WeightedScoreSnake
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

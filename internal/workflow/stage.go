package workflow

import (
	"fmt"

	"codeberg.org/snonux/voxpref/internal/session"
)

// Stage is one step of the workflow, in execution order
type Stage int

const (
	StageAudio Stage = iota
	StageWord
	StageCriteria
	StageResult
)

func (s Stage) String() string {
	switch s {
	case StageAudio:
		return "audio"
	case StageWord:
		return "word"
	case StageCriteria:
		return "criteria"
	case StageResult:
		return "result"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Hint is the command that completes the stage
func (s Stage) Hint() string {
	switch s {
	case StageAudio:
		return "voxpref audio <file>"
	case StageWord:
		return "voxpref word <word>"
	case StageCriteria:
		return "voxpref criteria IA=6 DI=5 CO=4 PC=3 PS=2 F=1"
	case StageResult:
		return "voxpref result"
	}
	return ""
}

const (
	reasonNoAudio  = "No audio sample found. Please upload an audio file first."
	reasonNoWord   = "No target word found. Please enter a word first."
	reasonNoResult = "No analysis results found. Please start over."
)

// RedirectError sends the user back to the earliest stage whose artifact is
// missing
type RedirectError struct {
	From   Stage
	To     Stage
	Reason string
}

func (e *RedirectError) Error() string {
	return e.Reason
}

// Guard checks that every artifact stage depends on is present in st.
// It returns nil or a *RedirectError.
func Guard(stage Stage, st *session.State) error {
	if st == nil {
		st = &session.State{}
	}
	if stage >= StageWord && st.Audio == nil {
		return &RedirectError{From: stage, To: StageAudio, Reason: reasonNoAudio}
	}
	if stage >= StageCriteria && st.Word == nil {
		return &RedirectError{From: stage, To: StageWord, Reason: reasonNoWord}
	}
	if stage >= StageResult && st.Result == nil {
		return &RedirectError{From: stage, To: StageCriteria, Reason: reasonNoResult}
	}
	return nil
}

// Next returns the first stage whose artifact is missing, or StageResult when
// the run is complete
func Next(st *session.State) Stage {
	switch {
	case st == nil || st.Audio == nil:
		return StageAudio
	case st.Word == nil:
		return StageWord
	case st.Result == nil:
		return StageCriteria
	}
	return StageResult
}

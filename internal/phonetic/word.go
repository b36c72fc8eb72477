package phonetic

import (
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrEmptyWord is returned when the target word is blank after trimming
var ErrEmptyWord = errors.New("Please enter a word")

// TargetWord is the word under study and its backend IPA transcription.
// IPAError carries the backend's own transcription warning verbatim.
type TargetWord struct {
	Word     string `json:"word"`
	IPA      string `json:"ipa"`
	IPAError string `json:"ipa_error,omitempty"`
}

// NormalizeWord trims surrounding whitespace and converts the word to NFC so
// that composed and decomposed spellings reach the backend identically
func NormalizeWord(word string) (string, error) {
	w := strings.TrimSpace(word)
	if w == "" {
		return "", ErrEmptyWord
	}
	return norm.NFC.String(w), nil
}

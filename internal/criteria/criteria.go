package criteria

import "strings"

// Key identifies one criterion
type Key string

const (
	InternationalAcceptance Key = "IA"
	Disambiguity            Key = "DI"
	Contrastiveness         Key = "CO"
	PedagogicConvenience    Key = "PC"
	PhoneticSimplicity      Key = "PS"
	Frequency               Key = "F"
)

const (
	// MinWeight is the lowest slider value (less important)
	MinWeight = 1
	// MaxWeight is the highest slider value (more important)
	MaxWeight = 6
	// DefaultWeight is the untouched slider position
	DefaultWeight = 3
)

// Info describes a criterion for display
type Info struct {
	Key         Key
	Title       string
	Description string
}

var all = []Info{
	{InternationalAcceptance, "International Acceptance", "How widely accepted the pronunciation is across different English-speaking regions"},
	{Disambiguity, "Dis-ambiguity", "How clearly distinguishable the pronunciation is from similar words"},
	{Contrastiveness, "Contrastiveness", "How distinct the pronunciation is from contrasting sounds in the language"},
	{PedagogicConvenience, "Pedagogic Convenience", "How easy the pronunciation is to teach to language learners"},
	{PhoneticSimplicity, "Phonetic Simplicity", "How simple and straightforward the pronunciation is"},
	{Frequency, "Frequency", "How frequently the pronunciation pattern occurs in the language"},
}

// All returns the criteria in display order
func All() []Info {
	out := make([]Info, len(all))
	copy(out, all)
	return out
}

// Keys returns the criterion keys in display order
func Keys() []Key {
	keys := make([]Key, len(all))
	for i, c := range all {
		keys[i] = c.Key
	}
	return keys
}

// Lookup finds a criterion by key, case-insensitively
func Lookup(s string) (Info, bool) {
	s = strings.TrimSpace(s)
	for _, c := range all {
		if strings.EqualFold(string(c.Key), s) {
			return c, true
		}
	}
	return Info{}, false
}

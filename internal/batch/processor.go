package batch

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one word of a batch run together with its audio sample
type Entry struct {
	Word      string
	AudioPath string
	Line      int
}

// ReadBatchFile reads entries of the form "word = path/to/audio.wav", one per
// line. Blank lines and lines starting with '#' are ignored. Relative audio
// paths are resolved against the directory of the batch file.
func ReadBatchFile(filename string) ([]Entry, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	defer f.Close()

	baseDir := filepath.Dir(filename)
	var entries []Entry

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entry, err := parseLine(line, baseDir)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filepath.Base(filename), lineNo, err)
		}
		entry.Line = lineNo
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	return entries, nil
}

func parseLine(line, baseDir string) (Entry, error) {
	word, path, ok := strings.Cut(line, "=")
	if !ok {
		return Entry{}, fmt.Errorf("expected 'word = audio-file', got %q", line)
	}
	word = strings.TrimSpace(word)
	path = strings.TrimSpace(path)
	if word == "" {
		return Entry{}, fmt.Errorf("missing word in %q", line)
	}
	if path == "" {
		return Entry{}, fmt.Errorf("missing audio file for %q", word)
	}

	isURL := strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
	if !isURL && !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	return Entry{Word: word, AudioPath: path}, nil
}

// Summary counts the outcome of a batch run
type Summary struct {
	Total     int
	Processed int
	Failed    int
}

// String renders the summary block printed after a batch run
func (s Summary) String() string {
	var b strings.Builder
	b.WriteString("\n=== Batch Processing Summary ===\n")
	fmt.Fprintf(&b, "Total words: %d\n", s.Total)
	fmt.Fprintf(&b, "Processed: %d\n", s.Processed)
	if s.Failed > 0 {
		fmt.Fprintf(&b, "Errors: %d\n", s.Failed)
	}
	b.WriteString("================================\n")
	return b.String()
}

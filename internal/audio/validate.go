package audio

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileSize is the largest audio sample accepted for upload
const MaxFileSize = 50 * 1024 * 1024

var extensionTypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".webm": "audio/webm",
	".opus": "audio/opus",
}

// ValidateAudioFile checks that path is a readable, non-empty audio file and
// returns its MIME type
func ValidateAudioFile(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("audio file path cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("audio file does not exist: %s", path)
		}
		return "", fmt.Errorf("cannot access audio file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("audio path is a directory: %s", path)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("audio file is empty: %s", path)
	}
	if info.Size() > MaxFileSize {
		return "", fmt.Errorf("audio file too large: %d bytes (max %d)", info.Size(), MaxFileSize)
	}

	if t := TypeByExtension(path); t != "" {
		return t, nil
	}

	// Unknown extension, sniff the header
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("cannot open audio file: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := f.Read(head)
	detected := http.DetectContentType(head[:n])
	if !IsAudioType(detected) {
		return "", fmt.Errorf("not an audio file: %s (detected %s)", path, detected)
	}
	return stripParams(detected), nil
}

// TypeByExtension returns the MIME type for a known audio extension, or ""
func TypeByExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); IsAudioType(t) {
		return stripParams(t)
	}
	return ""
}

// IsAudioType reports whether a MIME type describes audio content
func IsAudioType(contentType string) bool {
	t := stripParams(contentType)
	return strings.HasPrefix(t, "audio/") || t == "video/webm" || t == "application/ogg"
}

func stripParams(contentType string) string {
	t, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(t)
}

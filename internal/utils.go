package internal

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Version is the voxpref release version
const Version = "0.4.0"

// GenerateReportID creates a unique ID for an exported report based on timestamp and target word
// Format: epochMillis_md5(word)[:8]
func GenerateReportID(targetWord string) string {
	epochMillis := time.Now().UnixMilli()

	hash := md5.Sum([]byte(targetWord))
	hashStr := hex.EncodeToString(hash[:])[:8]

	return fmt.Sprintf("%d_%s", epochMillis, hashStr)
}

// SanitizeFilename creates a safe filename from a string
func SanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

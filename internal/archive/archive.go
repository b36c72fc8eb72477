package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ArchiveReports moves the reports directory to archive/reports-<timestamp>
// next to it and returns the new location
func ArchiveReports(reportsDir string) (string, error) {
	info, err := os.Stat(reportsDir)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("reports directory does not exist: %s", reportsDir)
	}
	if err != nil {
		return "", fmt.Errorf("cannot access reports directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", reportsDir)
	}

	archiveDir := filepath.Join(filepath.Dir(reportsDir), "archive")
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	base := filepath.Base(reportsDir)
	archivePath := filepath.Join(archiveDir, fmt.Sprintf("%s-%s", base, time.Now().Format("20060102-150405")))

	// Same second as a previous archive
	if _, err := os.Stat(archivePath); err == nil {
		archivePath = filepath.Join(archiveDir, fmt.Sprintf("%s-%s", base, time.Now().Format("20060102-150405.000000")))
	}

	if err := os.Rename(reportsDir, archivePath); err != nil {
		return "", fmt.Errorf("failed to archive reports directory: %w", err)
	}
	return archivePath, nil
}

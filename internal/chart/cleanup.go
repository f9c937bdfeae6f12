package chart

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CleanupCharts deletes rendered chart files under dir older than
// maxAgeDays. Non-matching files are left untouched.
func CleanupCharts(dir string, maxAgeDays int, now time.Time) {
	cutoff := now.Add(-time.Duration(maxAgeDays) * 24 * time.Hour)

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("chart: cleanup read dir %s: %v", dir, err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), FilenamePrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			log.Printf("chart: cleanup stat %s: %v", entry.Name(), err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Printf("chart: cleanup remove %s: %v", path, err)
			continue
		}
		log.Printf("chart: cleanup removed %s", path)
	}
}

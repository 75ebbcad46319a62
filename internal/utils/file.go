package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// DefaultAllowedExtensions are the upload types accepted in front of the analyzer
var DefaultAllowedExtensions = []string{".mp4", ".avi", ".mov", ".jpg", ".jpeg", ".png"}

// DefaultMaxFileSize is the upload size limit (100MB)
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// GetFileExtension returns the lower-cased file extension including the dot
func GetFileExtension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// HasExtension reports whether filename ends in one of exts (case-insensitive)
func HasExtension(filename string, exts []string) bool {
	ext := GetFileExtension(filename)
	if ext == "" {
		return false
	}
	return slices.ContainsFunc(exts, func(e string) bool {
		return strings.EqualFold(e, ext)
	})
}

// ValidateUpload checks extension and size of a file before it is handed to the analyzer
func ValidateUpload(path string, allowed []string, maxSize int64) error {
	if !HasExtension(path, allowed) {
		return fmt.Errorf("invalid file type %q, supported: %s", GetFileExtension(path), strings.Join(allowed, ", "))
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat upload: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("upload path is a directory: %s", path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return fmt.Errorf("file too large: %s (maximum %s)", FormatFileSize(info.Size()), FormatFileSize(maxSize))
	}
	return nil
}

// CleanupOldFiles removes regular files in dir older than maxAge and returns how many were removed
func CleanupOldFiles(dir string, maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read upload dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// FormatFileSize formats file size in human-readable format
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

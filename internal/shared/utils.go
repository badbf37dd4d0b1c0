package shared

import (
	"fmt"
	"os"
	"strings"
)

// SanitizeFileName replaces characters illegal on common filesystems with
// underscores and trims surrounding whitespace and periods. The result may be
// empty; callers fall back to the raw item id in that case.
func SanitizeFileName(name string) string {
	invalidChars := []string{"/", "\\", ":", "*", "?", `"`, "<", ">", "|", "\x00"}
	result := name
	for _, char := range invalidChars {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.Trim(result, " .")
	// Limit length to avoid filesystem issues
	if len(result) > 255 {
		result = result[:255]
	}
	return result
}

// FileExists checks if a file exists at the given path
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// CreateDirIfNotExists creates a directory if it does not exist
func CreateDirIfNotExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// TruncateString truncates a string to the specified length, adding ellipsis if truncated.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// DebugPrint prints debug messages when debug mode is enabled
func DebugPrint(debug bool, format string, args ...interface{}) {
	if debug {
		fmt.Printf("DEBUG: "+format+"\n", args...)
	}
}

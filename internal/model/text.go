package model

import "strings"

// CleanText sanitizes platform-supplied free text for storage and rendering.
// It removes NUL bytes and trims surrounding whitespace.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

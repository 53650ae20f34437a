// Package utils provides common utility functions.
package utils

import (
	"strings"
	"unicode/utf8"
)

// IsBlank reports whether s is empty or whitespace only.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// TruncateString shortens s to maxRunes runes, appending "..." when cut.
func TruncateString(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}

	runes := []rune(s)

	return string(runes[:maxRunes]) + "..."
}

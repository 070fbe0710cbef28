package validators

import "strings"

// SanitizeString trims input and caps it at maxLen bytes.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}

// NormalizeCode trims and lowercases short identifiers such as language codes.
func NormalizeCode(input string) string {
	return strings.ToLower(SanitizeString(input, 16))
}

package operation

import "strings"

// Fixed at process start, never mutated. Matching is case-insensitive
// substring against the lower-cased input.
var sensitiveKeywords = []string{
	"key:",
	"algorithm:",
	"secret.key",
	"sensitive.props.key",
	"sensitive.props.algorithm",
	"secret",
	"password",
	"passwd",
}

// SafeText reports whether a line of text may be included in a
// diagnostic bundle. Empty text passes vacuously.
func SafeText(text string) bool {
	if text == "" {
		return true
	}
	lowered := strings.ToLower(text)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowered, keyword) {
			return false
		}
	}
	return true
}

package errors

import (
	"strings"
	"unicode"
)

// ValidateDesignName validates a benchmark prefix or design name.
//
// Names become file names (<name>.pl, <name>.aux, ...), so the rules reject
// anything that could escape the benchmark directory:
//   - No empty names
//   - No control characters or null bytes
//   - No path separators or traversal sequences
//   - Maximum length of 256 characters
func ValidateDesignName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "design name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "design name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "design name contains invalid control characters")
		}
	}

	if name == "." || strings.Contains(name, "..") {
		return New(ErrCodeInvalidInput, "design name cannot contain path traversal sequences")
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidInput, "design name cannot contain path separators")
	}

	return nil
}

// ValidateCacheURL validates the URL of a remote result cache.
// Only Redis URLs are supported.
func ValidateCacheURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "cache URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "redis://") && !strings.HasPrefix(rawURL, "rediss://") {
		return New(ErrCodeUnsupported, "cache URL must use the redis or rediss scheme")
	}

	return nil
}

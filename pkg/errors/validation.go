package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// boardIDRegex matches Miro board identifiers ("uXjVO1234=" style).
var boardIDRegex = regexp.MustCompile(`^[A-Za-z0-9_=\-]{1,64}$`)

// ValidateBoardID validates a board identifier before it is interpolated
// into a REST path or cache key.
func ValidateBoardID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "board id cannot be empty")
	}
	if !boardIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid board id: %q", id)
	}
	return nil
}

// ValidateColumnName validates a workbook column name used as id, label or
// template column. Names are compared verbatim against the header row.
func ValidateColumnName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidInput, "column name cannot be empty")
	}
	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "column name too long (max 256 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "column name contains invalid control characters")
		}
	}
	return nil
}

// ValidateSheetName validates a worksheet name per the OOXML rules:
// at most 31 characters and none of : \ / ? * [ ].
func ValidateSheetName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "sheet name cannot be empty")
	}
	if len([]rune(name)) > 31 {
		return New(ErrCodeInvalidInput, "sheet name too long (max 31 characters)")
	}
	if strings.ContainsAny(name, `:\/?*[]`) {
		return New(ErrCodeInvalidInput, "sheet name contains invalid characters: %q", name)
	}
	return nil
}

// ValidatePath validates a relative file path for safety.
// It prevents path traversal attacks and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidInput, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidInput, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidInput, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidInput, "path cannot contain backslashes")
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

package errors

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// maxPatternLength bounds user-supplied filter patterns.
const maxPatternLength = 512

// ValidateInputPath validates a local sample file path given on the command
// line or in a config file.
//
// Validation rules:
//   - Path cannot be empty ("-" is accepted and means stdin)
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidateInputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateFrameName validates a function name used in an exclusion list.
// It rejects empty names and names with control characters, which can never
// match a parsed frame.
func ValidateFrameName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidFilter, "frame name cannot be empty")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidFilter, "frame name contains invalid control characters")
		}
	}
	return nil
}

// CompilePattern validates and compiles a frame filter pattern.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, New(ErrCodeInvalidFilter, "pattern cannot be empty")
	}
	if len(pattern) > maxPatternLength {
		return nil, New(ErrCodeInvalidFilter, "pattern too long (max %d characters)", maxPatternLength)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, Wrap(ErrCodeInvalidFilter, err, "invalid pattern %q", pattern)
	}
	return re, nil
}

// ValidateFraction checks that v lies in the closed interval [0, 1].
func ValidateFraction(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return New(ErrCodeInvalidOptions, "%s must be between 0 and 1, got %v", name, v)
	}
	return nil
}

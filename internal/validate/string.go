// Package validate provides input validation for user-supplied text such as
// region names, descriptions and addresses.
package validate

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// String validation errors
var (
	ErrStringTooShort    = errors.New("string is too short")
	ErrStringTooLong     = errors.New("string is too long")
	ErrInvalidCharacters = errors.New("string contains invalid characters")
	ErrEmpty             = errors.New("string is empty")
)

// StringConstraints defines validation constraints for a string.
type StringConstraints struct {
	MinLength    int  // Minimum length (0 = no minimum)
	MaxLength    int  // Maximum length (0 = no maximum)
	AllowEmpty   bool // Whether empty strings are allowed
	TrimSpace    bool // Whether to trim whitespace before validation
	AllowNewline bool // Whether line breaks are accepted
}

// String validates a string against the given constraints.
// Returns the validated (and optionally trimmed) string and an error if validation fails.
func String(s string, constraints StringConstraints) (string, error) {
	if constraints.TrimSpace {
		s = strings.TrimSpace(s)
	}

	if s == "" {
		if !constraints.AllowEmpty {
			return "", ErrEmpty
		}
		return s, nil
	}

	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrInvalidCharacters)
	}

	// Character count, not byte count
	length := utf8.RuneCountInString(s)
	if constraints.MinLength > 0 && length < constraints.MinLength {
		return "", fmt.Errorf("%w: got %d chars, need at least %d", ErrStringTooShort, length, constraints.MinLength)
	}
	if constraints.MaxLength > 0 && length > constraints.MaxLength {
		return "", fmt.Errorf("%w: got %d chars, maximum is %d", ErrStringTooLong, length, constraints.MaxLength)
	}

	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			if constraints.AllowNewline {
				continue
			}
		}
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: control character %U", ErrInvalidCharacters, r)
		}
	}

	return s, nil
}

// Clamp returns s adjusted to satisfy constraints where possible: invalid
// UTF-8 and disallowed control characters are removed and the result is cut
// to MaxLength characters. MinLength and AllowEmpty are not enforced.
func Clamp(s string, constraints StringConstraints) string {
	s = strings.ToValidUTF8(s, "")
	s = strings.Map(func(r rune) rune {
		if (r == '\n' || r == '\r' || r == '\t') && constraints.AllowNewline {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	if constraints.TrimSpace {
		s = strings.TrimSpace(s)
	}
	if constraints.MaxLength > 0 && utf8.RuneCountInString(s) > constraints.MaxLength {
		s = string([]rune(s)[:constraints.MaxLength])
		if constraints.TrimSpace {
			s = strings.TrimSpace(s)
		}
	}
	return s
}

// Address validates a free-form postal address before it is sent to a
// geocoding provider:
// - Required
// - Max 500 characters, single line
func Address(address string) (string, error) {
	return String(address, StringConstraints{
		MinLength: 3,
		MaxLength: 500,
		TrimSpace: true,
	})
}

// Description validates a description field:
// - Optional (can be empty)
// - Max 5000 characters
func Description(desc string) (string, error) {
	return String(desc, DescriptionConstraints)
}

// DescriptionConstraints are the rules applied by Description.
var DescriptionConstraints = StringConstraints{
	MaxLength:    5000,
	AllowEmpty:   true,
	TrimSpace:    true,
	AllowNewline: true,
}

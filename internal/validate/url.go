package validate

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

var (
	ErrInvalidURL       = errors.New("invalid URL format")
	ErrDisallowedScheme = errors.New("URL scheme not allowed")
)

// MaxServiceURLLength bounds configured upstream endpoints.
const MaxServiceURLLength = 2048

var serviceSchemes = []string{"https", "http"}

// ServiceURL checks an upstream endpoint taken from configuration, such as
// the geocoding base URL or an S3-compatible endpoint. It returns the parsed
// URL with surrounding whitespace removed.
func ServiceURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmpty
	}
	if len(raw) > MaxServiceURLLength {
		return nil, fmt.Errorf("%w: URL exceeds %d characters", ErrStringTooLong, MaxServiceURLLength)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !slices.Contains(serviceSchemes, u.Scheme) {
		return nil, fmt.Errorf("%w: got %q", ErrDisallowedScheme, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing hostname", ErrInvalidURL)
	}
	return u, nil
}

// Package color validates and derives the hex colors used in region styles.
package color

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// hexColorPattern matches valid hex color codes in format #RRGGBB (case insensitive).
var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ErrInvalidHexFormat is returned for colors that are not #RRGGBB.
var ErrInvalidHexFormat = errors.New("invalid hex color format, expected #RRGGBB")

// IsValidHexColor validates that a color string is in valid #RRGGBB format.
func IsValidHexColor(color string) bool {
	return hexColorPattern.MatchString(color)
}

// ValidateHexColor validates a hex color and returns an error if invalid.
func ValidateHexColor(color string) error {
	if !IsValidHexColor(color) {
		return fmt.Errorf("%w: got %q", ErrInvalidHexFormat, color)
	}
	return nil
}

// RGB represents a color in RGB color space with values 0-255.
type RGB struct {
	R, G, B uint8
}

// Hex formats the color as lowercase #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseHexColor parses a hex color string (#RRGGBB) into RGB components.
func ParseHexColor(hexColor string) (RGB, error) {
	if !IsValidHexColor(hexColor) {
		return RGB{}, ErrInvalidHexFormat
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(hexColor, "#"), 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("failed to parse color: %w", err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Darken scales each channel towards black by factor (0 keeps the color,
// 1 yields black) and returns the result as #rrggbb.
func Darken(hexColor string, factor float64) (string, error) {
	c, err := ParseHexColor(hexColor)
	if err != nil {
		return "", err
	}
	factor = math.Max(0, math.Min(1, factor))
	scale := func(v uint8) uint8 {
		return uint8(math.Round(float64(v) * (1 - factor)))
	}
	return RGB{R: scale(c.R), G: scale(c.G), B: scale(c.B)}.Hex(), nil
}

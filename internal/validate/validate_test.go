package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		constraints StringConstraints
		want        string
		wantErr     error
	}{
		{
			name:        "trims whitespace",
			input:       "  Zone A  ",
			constraints: StringConstraints{TrimSpace: true},
			want:        "Zone A",
		},
		{
			name:        "empty rejected",
			input:       "   ",
			constraints: StringConstraints{TrimSpace: true},
			wantErr:     ErrEmpty,
		},
		{
			name:        "empty allowed",
			input:       "",
			constraints: StringConstraints{AllowEmpty: true},
			want:        "",
		},
		{
			name:        "too long counts runes",
			input:       "ããããã",
			constraints: StringConstraints{MaxLength: 4},
			wantErr:     ErrStringTooLong,
		},
		{
			name:        "multibyte within limit",
			input:       "São Paulo",
			constraints: StringConstraints{MaxLength: 9},
			want:        "São Paulo",
		},
		{
			name:        "too short",
			input:       "ab",
			constraints: StringConstraints{MinLength: 3},
			wantErr:     ErrStringTooShort,
		},
		{
			name:        "control character rejected",
			input:       "a\x00b",
			constraints: StringConstraints{},
			wantErr:     ErrInvalidCharacters,
		},
		{
			name:        "newline rejected by default",
			input:       "a\nb",
			constraints: StringConstraints{},
			wantErr:     ErrInvalidCharacters,
		},
		{
			name:        "newline allowed",
			input:       "a\nb",
			constraints: StringConstraints{AllowNewline: true},
			want:        "a\nb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := String(tt.input, tt.constraints)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	if got, err := Address(" Av. Paulista, 1000 - São Paulo, SP "); err != nil || got != "Av. Paulista, 1000 - São Paulo, SP" {
		t.Errorf("expected trimmed address, got %q, %v", got, err)
	}
	if _, err := Address(""); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
	if _, err := Address(strings.Repeat("x", 501)); !errors.Is(err, ErrStringTooLong) {
		t.Errorf("expected ErrStringTooLong, got %v", err)
	}
}

func TestDescription(t *testing.T) {
	if got, err := Description(""); err != nil || got != "" {
		t.Errorf("expected empty description accepted, got %q, %v", got, err)
	}
	if _, err := Description("line one\nline two"); err != nil {
		t.Errorf("expected multi-line description accepted, got %v", err)
	}
}

func TestServiceURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"https", "https://maps.googleapis.com/maps/api/geocode/json", nil},
		{"http localhost", "http://127.0.0.1:9000", nil},
		{"empty", "  ", ErrEmpty},
		{"ftp scheme", "ftp://example.com", ErrDisallowedScheme},
		{"no host", "https://", ErrInvalidURL},
		{"too long", "https://example.com/" + strings.Repeat("a", 2048), ErrStringTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ServiceURL(tt.input)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		c     StringConstraints
		want  string
	}{
		{"truncates runes", "ação" + strings.Repeat("x", 10), StringConstraints{MaxLength: 3}, "açã"},
		{"drops control chars", "a\x00b\x07c", StringConstraints{}, "abc"},
		{"keeps newlines when allowed", "a\nb", StringConstraints{AllowNewline: true}, "a\nb"},
		{"drops newlines otherwise", "a\nb", StringConstraints{}, "ab"},
		{"drops invalid utf8", "a\xffb", StringConstraints{}, "ab"},
		{"trims after cut", "ab   cd", StringConstraints{MaxLength: 4, TrimSpace: true}, "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clamp(tt.input, tt.c)
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if _, err := String(got, StringConstraints{MaxLength: tt.c.MaxLength, AllowEmpty: true, AllowNewline: tt.c.AllowNewline}); err != nil {
				t.Errorf("clamped value still invalid: %v", err)
			}
		})
	}
}

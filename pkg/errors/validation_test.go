package errors

import (
	"testing"
)

func TestValidateDesignName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "adaptec1", false},
		{"valid with dash", "toy-01", false},
		{"valid with underscore", "super_blue", false},
		{"valid with dot", "ibm01.legal", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"dot", ".", true},
		{"path traversal", "..", true},
		{"slash", "foo/bar", true},
		{"backslash", "foo\\bar", true},
		{"null byte", "foo\x00bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDesignName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDesignName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("ValidateDesignName(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidInput)
			}
		})
	}
}

func TestValidateCacheURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCode Code
	}{
		{"redis", "redis://localhost:6379/0", ""},
		{"redis tls", "rediss://cache.internal:6380", ""},
		{"empty", "", ErrCodeInvalidInput},
		{"http", "http://localhost:6379", ErrCodeUnsupported},
		{"bare host", "localhost:6379", ErrCodeUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCacheURL(tt.input)
			if got := GetCode(err); got != tt.wantCode {
				t.Errorf("ValidateCacheURL(%q) code = %q, want %q", tt.input, got, tt.wantCode)
			}
		})
	}
}

package bastion

import (
	"errors"
	"testing"
)

func TestValidatePattern(t *testing.T) {
	valid := []string{
		"doc:readme",
		"*",
		"doc:*",
		"*:read",
		"report-*",
		"*.pdf",
	}
	for _, p := range valid {
		if err := ValidatePattern(p); err != nil {
			t.Errorf("ValidatePattern(%q) = %v, want nil", p, err)
		}
	}

	invalid := []string{
		"",
		"doc*read",
		"*doc*",
		"a*b*",
		"**",
	}
	for _, p := range invalid {
		err := ValidatePattern(p)
		if !errors.Is(err, ErrInvalidPattern) {
			t.Errorf("ValidatePattern(%q) = %v, want ErrInvalidPattern", p, err)
		}
	}
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		value   string
		want    bool
	}{
		{"doc:1", "doc:1", true},
		{"doc:1", "doc:2", false},
		{"*", "anything", true},
		{"*", "", true},
		{"doc:*", "doc:1", true},
		{"doc:*", "doc:", true},
		{"doc:*", "img:1", false},
		{"*:read", "doc:read", true},
		{"*:read", "doc:write", false},
		{"*.pdf", "report.pdf", true},
		{"*.pdf", "report.txt", false},
	}

	for _, tt := range tests {
		if got := MatchPattern(tt.pattern, tt.value); got != tt.want {
			t.Errorf("MatchPattern(%q, %q) = %v, want %v", tt.pattern, tt.value, got, tt.want)
		}
	}
}

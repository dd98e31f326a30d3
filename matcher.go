package bastion

import (
	"fmt"
	"strings"
)

// ValidatePattern checks that a rule pattern uses a supported wildcard
// form. Valid forms are an exact literal, "*" alone, "prefix*" (trailing
// wildcard), and "*suffix" (leading wildcard). Any other '*' placement
// returns ErrInvalidPattern.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	if pattern == "*" {
		return nil
	}

	stars := strings.Count(pattern, "*")
	switch stars {
	case 0:
		return nil
	case 1:
		if strings.HasSuffix(pattern, "*") || strings.HasPrefix(pattern, "*") {
			return nil
		}

		return fmt.Errorf("%w: %q: wildcard only allowed at start or end", ErrInvalidPattern, pattern)
	default:
		return fmt.Errorf("%w: %q: at most one wildcard allowed", ErrInvalidPattern, pattern)
	}
}

// MatchPattern reports whether a valid pattern matches a value.
// Behavior on an invalid pattern is undefined; validate at write time.
func MatchPattern(pattern, value string) bool {
	if pattern == "*" {
		return true
	}
	if pattern == value {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(value, strings.TrimSuffix(pattern, "*"))
	}
	if strings.HasPrefix(pattern, "*") {
		return strings.HasSuffix(value, strings.TrimPrefix(pattern, "*"))
	}

	return false
}

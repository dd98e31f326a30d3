package bastion

import "time"

// Config holds configuration for the Bastion engine.
type Config struct {
	// CheckTimeout is the per-check deadline. A check that exceeds it
	// fails with ErrTimeout; it never degrades to a stale or permissive
	// answer. Defaults to 5s. Zero disables the engine-imposed deadline
	// (caller context deadlines still apply).
	CheckTimeout time.Duration `json:"check_timeout,omitempty"`

	// CacheTTL is the time-to-live for cached decisions.
	CacheTTL time.Duration `json:"cache_ttl,omitempty"`

	// StrictSubjects controls unknown-subject handling. When true, a
	// check for a subject with no stored record fails with
	// ErrSubjectUnknown; when false the subject is treated as having
	// no roles and falls through to the default deny.
	StrictSubjects bool `json:"strict_subjects,omitempty"`

	// MaxInheritDepth bounds role inheritance chains. Defaults to 32.
	MaxInheritDepth int `json:"max_inherit_depth,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CheckTimeout:    5 * time.Second,
		CacheTTL:        5 * time.Minute,
		MaxInheritDepth: 32,
	}
}

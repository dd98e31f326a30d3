package extension

// Config holds the Bastion extension configuration.
// Fields can be set programmatically via ExtOption functions or loaded
// from YAML configuration files (under "extensions.bastion" or
// "bastion" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for bastion routes (default: "/bastion").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// MaxInheritDepth bounds role inheritance chains.
	MaxInheritDepth int `json:"max_inherit_depth" mapstructure:"max_inherit_depth" yaml:"max_inherit_depth"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxInheritDepth: 32,
	}
}

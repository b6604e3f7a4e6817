package cache

import "time"

// Config holds tuning for the tiered store.
type Config struct {
	// MemoryCapacity bounds the number of entries in the memory tier.
	// Insertions beyond the bound evict the least-recently-accessed entry.
	// Must be greater than 0.
	MemoryCapacity int

	// DefaultMaxAge is the entry lifetime applied when a caller does not
	// specify one. Must be greater than 0.
	DefaultMaxAge time.Duration

	// Namespace prefixes every key written to the durable tier so cache
	// entries can coexist with other tenants of the same backing store.
	Namespace string

	// FormatVersion stamps written entries; entries carrying a different
	// version read as absent. Empty means FormatVersion of this build.
	FormatVersion string
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		MemoryCapacity: 1000,
		DefaultMaxAge:  5 * time.Minute,
		Namespace:      "librovision:cache:",
		FormatVersion:  FormatVersion,
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if c.MemoryCapacity <= 0 {
		return &ConfigError{Field: "MemoryCapacity", Message: "must be greater than 0"}
	}
	if c.DefaultMaxAge <= 0 {
		return &ConfigError{Field: "DefaultMaxAge", Message: "must be greater than 0"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

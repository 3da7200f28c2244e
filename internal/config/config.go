// Package config holds the engine's resource limits and their defaults,
// loadable from a YAML file so hosts can tune a VM without recompiling.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults mirror the limits the engine was developed against.
const (
	DefaultMaxCallDepth = 4096
	DefaultMaxStackSize = 1024 * 1024
	DefaultGCThreshold  = 1 << 20 // bytes before the first collection
	DefaultMemoryLimit  = 1 << 30 // hard heap ceiling in bytes
)

// Config bundles the per-thread resource limits. The zero value of any
// field means "use the default".
type Config struct {
	// MaxCallDepth is the frame-depth ceiling, checked synchronously
	// before each call push.
	MaxCallDepth int `yaml:"max_call_depth"`
	// MaxStackSize bounds the operand stack, in values.
	MaxStackSize int `yaml:"max_stack_size"`
	// GCThreshold is the accounted byte total that triggers the first
	// collection; it grows adaptively up to MemoryLimit.
	GCThreshold uint64 `yaml:"gc_threshold"`
	// MemoryLimit is the hard heap ceiling in bytes. Allocations that a
	// full collection cannot fit under it fail with out-of-memory.
	MemoryLimit uint64 `yaml:"memory_limit"`
}

// Default returns the built-in limits.
func Default() Config {
	return Config{
		MaxCallDepth: DefaultMaxCallDepth,
		MaxStackSize: DefaultMaxStackSize,
		GCThreshold:  DefaultGCThreshold,
		MemoryLimit:  DefaultMemoryLimit,
	}
}

// Normalize fills zero-valued fields with their defaults.
func (c Config) Normalize() Config {
	if c.MaxCallDepth == 0 {
		c.MaxCallDepth = DefaultMaxCallDepth
	}
	if c.MaxStackSize == 0 {
		c.MaxStackSize = DefaultMaxStackSize
	}
	if c.GCThreshold == 0 {
		c.GCThreshold = DefaultGCThreshold
	}
	if c.MemoryLimit == 0 {
		c.MemoryLimit = DefaultMemoryLimit
	}
	return c
}

// Parse reads a Config from YAML, filling omitted fields with defaults.
func Parse(data []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return c.Normalize(), nil
}

// Load reads a Config from a YAML file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Marshal renders the config back to YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Package config holds the simulator configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// RegionConfig describes one memory region.
type RegionConfig struct {
	// Name identifies the region in dumps.
	Name string `json:"name"`

	// Begin and End are the inclusive address bounds.
	Begin uint32 `json:"begin"`
	End   uint32 `json:"end"`
}

// Config holds the simulator knobs: the memory layout, the text base the
// loader writes to (and the reset PC), and the default forwarding mode.
type Config struct {
	// TextBase is where the program image is loaded and where the PC
	// starts. It must fall inside one of the regions.
	TextBase uint32 `json:"text_base"`

	// Regions is the ordered, disjoint memory region table.
	Regions []RegionConfig `json:"regions"`

	// Forwarding enables the bypass network at startup.
	Forwarding bool `json:"forwarding"`
}

// DefaultConfig returns the conventional MIPS32 layout with forwarding
// enabled.
func DefaultConfig() *Config {
	return &Config{
		TextBase: 0x00400000,
		Regions: []RegionConfig{
			{Name: "text", Begin: 0x00400000, End: 0x10000000 - 4},
			{Name: "data", Begin: 0x10010000, End: 0x1001FFFF},
			{Name: "stack", Begin: 0x7FFFFFF0 - (1 << 20), End: 0x7FFFFFF0},
		},
		Forwarding: true,
	}
}

// LoadConfig loads a Config from a JSON file, overlaying the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig writes the Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the region table is well formed and covers the
// text base.
func (c *Config) Validate() error {
	if len(c.Regions) == 0 {
		return fmt.Errorf("no memory regions configured")
	}

	textCovered := false
	for i, r := range c.Regions {
		if r.Begin > r.End {
			return fmt.Errorf("region %q: begin 0x%08x beyond end 0x%08x", r.Name, r.Begin, r.End)
		}
		if r.Begin <= c.TextBase && c.TextBase <= r.End {
			textCovered = true
		}
		for _, other := range c.Regions[:i] {
			if r.Begin <= other.End && other.Begin <= r.End {
				return fmt.Errorf("regions %q and %q overlap", other.Name, r.Name)
			}
		}
	}
	if !textCovered {
		return fmt.Errorf("text base 0x%08x not covered by any region", c.TextBase)
	}

	return nil
}

// Package config provides configuration loading and management for raylens.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Trace parameters for the real-ray aberration engine
	Trace struct {
		// FanRays is the number of pupil samples per fan (forced odd)
		FanRays int `yaml:"fanRays"`

		// FanShape selects the pupil fan: "y", "x" or "cross"
		FanShape string `yaml:"fanShape"`

		// InfiniteObject is the object distance at or beyond which the
		// object is treated as being at infinity
		InfiniteObject float64 `yaml:"infiniteObject"`
	} `yaml:"trace"`

	// Spectrum parameters used when a lens file carries no wavelengths
	Spectrum struct {
		// Wavelengths in nm
		Wavelengths []float64 `yaml:"wavelengths"`

		// Weights relative to each wavelength
		Weights []float64 `yaml:"weights"`
	} `yaml:"spectrum"`

	// Layout parameters for rendered plots
	Layout struct {
		// Width of the rendered images in inches
		Width float64 `yaml:"width"`

		// Height of the rendered images in inches
		Height float64 `yaml:"height"`

		// RaysPerField is the number of rays drawn per field in the layout
		RaysPerField int `yaml:"raysPerField"`
	} `yaml:"layout"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Trace.FanRays = 21
	cfg.Trace.FanShape = "y"
	cfg.Trace.InfiniteObject = 1e10

	// d line
	cfg.Spectrum.Wavelengths = []float64{587.5618}
	cfg.Spectrum.Weights = []float64{1}

	cfg.Layout.Width = 8
	cfg.Layout.Height = 4
	cfg.Layout.RaysPerField = 3

	cfg.Output.Verbose = false

	return cfg
}

// Validate checks the configuration for values the engines cannot use
func (c *Config) Validate() error {
	if c.Trace.FanRays < 1 {
		return fmt.Errorf("trace.fanRays must be at least 1, got %d", c.Trace.FanRays)
	}
	switch c.Trace.FanShape {
	case "x", "y", "cross":
	default:
		return fmt.Errorf("trace.fanShape must be x, y or cross, got %q", c.Trace.FanShape)
	}
	if c.Trace.InfiniteObject <= 0 {
		return fmt.Errorf("trace.infiniteObject must be positive")
	}
	if len(c.Spectrum.Wavelengths) != len(c.Spectrum.Weights) {
		return fmt.Errorf("spectrum has %d wavelengths but %d weights",
			len(c.Spectrum.Wavelengths), len(c.Spectrum.Weights))
	}
	if c.Layout.Width <= 0 || c.Layout.Height <= 0 {
		return fmt.Errorf("layout dimensions must be positive")
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

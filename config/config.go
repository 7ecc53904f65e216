// Package config loads retroasm's project-wide assembler defaults from a
// TOML file, the way the teacher's config.Config loads emulator-wide
// defaults: one struct, sensible zero-config defaults, and an optional
// on-disk override.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/db47h/retroasm/internal/rom"
)

// Config represents retroasm's project-wide defaults: what a translation
// unit assumes when its source doesn't say otherwise.
type Config struct {
	// Assembler settings
	Assembler struct {
		DefaultTarget     string   `toml:"default_target"` // "", "nes", "snes", "gb", or a backend name
		IncludePaths      []string `toml:"include_paths"`
		MaxDiagnostics    int      `toml:"max_diagnostics"`
		MaxMacroExpansion int      `toml:"max_macro_expansion"` // statements per top-level macro invocation
		MaxStringLiteral  int      `toml:"max_string_literal"`  // bytes, 0 = unbounded
	} `toml:"assembler"`

	// Header settings, consulted by internal/rom's builders for any field
	// no source directive populated.
	Header rom.HeaderConfig `toml:"header"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Assembler.DefaultTarget = ""
	cfg.Assembler.IncludePaths = nil
	cfg.Assembler.MaxDiagnostics = 200
	cfg.Assembler.MaxMacroExpansion = 10000
	cfg.Assembler.MaxStringLiteral = 0

	cfg.Header.Mirroring = "horizontal"
	cfg.Header.Mapping = "lorom"
	cfg.Header.Region = "ntsc"

	return cfg
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %APPDATA%\retroasm\config.toml
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "retroasm")

	case "darwin", "linux":
		// macOS/Linux: ~/.config/retroasm/config.toml
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// Fallback to current directory
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "retroasm")

	default:
		// Unknown platform: use current directory
		return "config.toml"
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0750); err != nil {
		// If we can't create the directory, fall back to current directory
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read and parse config file
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file.
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create file
	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", closeErr)
		}
	}()

	// Encode to TOML
	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

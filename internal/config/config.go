// Package config loads and persists the TOML configuration file.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

const appDir = "whisper-audiorecord"

type Config struct {
	LogLevel string        `toml:"log_level"`
	Audio    AudioConfig   `toml:"audio"`
	Whisper  WhisperConfig `toml:"whisper"`
}

type AudioConfig struct {
	// DeviceID is a PortAudio device index; negative selects the default
	// input device.
	DeviceID   int `toml:"device_id"`
	SampleRate int `toml:"sample_rate"`
}

type WhisperConfig struct {
	Model    string `toml:"model"`    // "tiny", "base", "small", "medium", "large"
	Language string `toml:"language"` // "auto", "en", ...
	Threads  int    `toml:"threads"`  // 0 = auto-detect
}

// Default returns the configuration used when no file exists yet.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			DeviceID:   -1,
			SampleRate: 16000,
		},
		Whisper: WhisperConfig{
			Model:    "base",
			Language: "auto",
			Threads:  0,
		},
	}
}

// Load reads the config from disk, applying defaults for anything unset.
// A missing file is not an error.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path())
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// Path returns the platform-specific config file path.
func Path() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, appDir, "config.toml")
}

// ModelsPath returns the platform-specific models directory path.
func ModelsPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/share"
		}
	}

	return filepath.Join(base, appDir, "models")
}

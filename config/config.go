// Package config handles application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.aimuz.me/murmur/hotkey"
	"go.aimuz.me/murmur/insert"
	"go.aimuz.me/murmur/stt"
)

const (
	appName        = "murmur"
	configFileName = "config.json"
)

// Engine names for Config.Engine.
const (
	EngineLocal = "local"
	EngineAPI   = "api"
)

// Config represents the application configuration.
type Config struct {
	// Engine selects the transcription backend, "local" or "api".
	Engine string `json:"engine"`

	// ModelSize is the local Whisper model, e.g. "base" or "turbo".
	ModelSize string `json:"model_size"`

	// Hotkey is the modifier combination that triggers recording,
	// e.g. "ctrl+alt".
	Hotkey string `json:"hotkey"`

	// Language is the ISO 639-1 transcription language, or "auto".
	Language string `json:"language"`

	// InsertMethod is "auto", "type", or "paste".
	InsertMethod string `json:"insert_method"`

	// PasteThreshold is the text length above which auto insertion
	// switches from typing to pasting.
	PasteThreshold int `json:"paste_threshold"`

	// MinClipMillis is the shortest recording, in milliseconds, that is
	// sent for transcription. Shorter clips are discarded.
	MinClipMillis int `json:"min_clip_millis"`

	// ModelDir overrides the model download directory.
	ModelDir string `json:"model_dir,omitempty"`

	// API engine settings.
	APIKey   string `json:"api_key,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
	APIModel string `json:"api_model,omitempty"`

	// HistoryEnabled controls whether sessions are written to the local
	// history database.
	HistoryEnabled bool `json:"history_enabled"`
}

func defaultConfig() *Config {
	return &Config{
		Engine:         EngineLocal,
		ModelSize:      "turbo",
		Hotkey:         "ctrl+alt",
		Language:       "auto",
		InsertMethod:   string(insert.MethodAuto),
		PasteThreshold: insert.DefaultPasteThreshold,
		MinClipMillis:  int(stt.DefaultMinClip / time.Millisecond),
		HistoryEnabled: true,
	}
}

// Load loads configuration from the config file.
// Returns default config if the file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}
	return loadFrom(path)
}

func loadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := defaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save persists the configuration to disk.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return fmt.Errorf("get config path: %w", err)
	}
	return c.saveTo(path)
}

func (c *Config) saveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineLocal, EngineAPI:
	default:
		return fmt.Errorf("unknown engine %q", c.Engine)
	}

	if !stt.ValidModelSize(c.ModelSize) {
		return fmt.Errorf("unknown model size %q", c.ModelSize)
	}

	if _, err := hotkey.ParseCombo(c.Hotkey); err != nil {
		return fmt.Errorf("hotkey: %w", err)
	}

	switch insert.Method(c.InsertMethod) {
	case insert.MethodAuto, insert.MethodType, insert.MethodPaste:
	default:
		return fmt.Errorf("unknown insert method %q", c.InsertMethod)
	}

	if c.PasteThreshold < 0 {
		return fmt.Errorf("paste threshold %d is negative", c.PasteThreshold)
	}
	if c.MinClipMillis < 0 {
		return fmt.Errorf("min clip %dms is negative", c.MinClipMillis)
	}

	if c.Engine == EngineAPI && c.APIKey == "" {
		return fmt.Errorf("api engine requires an api key")
	}
	return nil
}

// MinClip returns the minimum clip length as a duration.
func (c *Config) MinClip() time.Duration {
	return time.Duration(c.MinClipMillis) * time.Millisecond
}

func configPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, configFileName), nil
}

// DataDir returns the directory for application data such as the history
// database, creating it if needed.
func DataDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, appName)
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return path, nil
}

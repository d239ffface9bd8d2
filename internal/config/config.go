// Package config loads tabmux configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Environment variables (TABMUX_*)
//  2. Config file
//  3. Built-in defaults
//
// Config file search order:
//  1. .tabmux.yaml in current directory
//  2. ~/.config/tabmux/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all tabmux configuration.
type Config struct {
	// Session is the tmux session to attach or create.
	Session string `yaml:"session"`

	// Input
	PrefixKey string `yaml:"prefix_key"` // e.g. "ctrl+b"

	// Sidebar
	SidebarWidth   int  `yaml:"sidebar_width"`
	SidebarVisible bool `yaml:"sidebar_visible"`

	// Terminal
	Scrollback int `yaml:"scrollback"` // rows retained per tab; 0 disables

	// Theme
	Theme string `yaml:"theme"` // "dark" (default) or "light"

	// EventLog is where the session journal is written; "off" disables.
	EventLog string `yaml:"event_log"`

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		Session:        "main",
		PrefixKey:      "ctrl+b",
		SidebarWidth:   24,
		SidebarVisible: true,
		Scrollback:     1000,
		Theme:          "dark",
	}
}

// Load reads configuration from file and environment variables.
// Environment variables always override file values.
func Load() (*Config, error) {
	cfg := Defaults()

	if path, data, err := findConfigFile(); err == nil {
		var fileCfg fileConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	}

	mergeEnv(cfg)

	if cfg.SidebarWidth < 8 {
		return nil, fmt.Errorf("sidebar width %d too small, minimum is 8", cfg.SidebarWidth)
	}
	if cfg.Scrollback < 0 {
		return nil, fmt.Errorf("scrollback must not be negative, got %d", cfg.Scrollback)
	}

	return cfg, nil
}

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile() (string, []byte, error) {
	// 1. Current directory
	if data, err := os.ReadFile(".tabmux.yaml"); err == nil {
		return ".tabmux.yaml", data, nil
	}

	// 2. XDG config dir / ~/.config
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "tabmux", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// fileConfig mirrors Config for YAML parsing. SidebarVisible is a
// pointer so an explicit "sidebar_visible: false" can override the
// default.
type fileConfig struct {
	Session        string `yaml:"session"`
	PrefixKey      string `yaml:"prefix_key"`
	SidebarWidth   int    `yaml:"sidebar_width"`
	SidebarVisible *bool  `yaml:"sidebar_visible"`
	Scrollback     int    `yaml:"scrollback"`
	Theme          string `yaml:"theme"`
	EventLog       string `yaml:"event_log"`
	OTELEndpoint   string `yaml:"otel_endpoint"`
	OTELHeaders    string `yaml:"otel_headers"`
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *fileConfig) {
	if file.Session != "" {
		cfg.Session = file.Session
	}
	if file.PrefixKey != "" {
		cfg.PrefixKey = file.PrefixKey
	}
	if file.SidebarWidth > 0 {
		cfg.SidebarWidth = file.SidebarWidth
	}
	if file.SidebarVisible != nil {
		cfg.SidebarVisible = *file.SidebarVisible
	}
	if file.Scrollback > 0 {
		cfg.Scrollback = file.Scrollback
	}
	if file.Theme != "" {
		cfg.Theme = file.Theme
	}
	if file.EventLog != "" {
		cfg.EventLog = file.EventLog
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) {
	if v := os.Getenv("TABMUX_SESSION"); v != "" {
		cfg.Session = v
	}
	if v := os.Getenv("TABMUX_PREFIX_KEY"); v != "" {
		cfg.PrefixKey = v
	}
	if v := os.Getenv("TABMUX_SIDEBAR_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SidebarWidth = n
		}
	}
	if v := os.Getenv("TABMUX_SIDEBAR"); v == "off" || v == "0" || v == "false" {
		cfg.SidebarVisible = false
	}
	if v := os.Getenv("TABMUX_SCROLLBACK"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Scrollback = n
		}
	}
	if v := os.Getenv("TABMUX_THEME"); v != "" {
		cfg.Theme = v
	}
	if v := os.Getenv("TABMUX_EVENT_LOG"); v != "" {
		cfg.EventLog = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}
}

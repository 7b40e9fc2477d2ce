// Package config provides configuration for the day/night map viewer.
// Everything has a default; an optional JSON file overrides individual fields.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "daynight.json"

// Config holds all viewer settings
type Config struct {
	// Base map
	BaseMap string `json:"base_map"` // Equirectangular texture path

	// Refresh loop
	RefreshIntervalMS int `json:"refresh_interval_ms"` // Milliseconds between shaded frames
	Workers           int `json:"workers"`             // Shading goroutines, 0 = one per CPU

	// Window
	Window WindowConfig `json:"window"`

	// Optional HTTP frame server
	FrameServer FrameServerConfig `json:"frame_server"`
}

// WindowConfig defines the desktop window
type WindowConfig struct {
	Title string  `json:"title"`
	Scale float64 `json:"scale"` // Window size as a multiple of the base map size
}

// FrameServerConfig defines the HTTP/WebSocket frame server
type FrameServerConfig struct {
	Addr string `json:"addr"` // Listen address, e.g. ":8080"; empty disables the server
}

// DefaultConfig returns the built-in settings
func DefaultConfig() *Config {
	return &Config{
		BaseMap:           "equirectangular_earth texture.resized.jpg",
		RefreshIntervalMS: 1000,
		Workers:           0,
		Window: WindowConfig{
			Title: "Day and Night Map",
			Scale: 1.0,
		},
	}
}

// Load loads config from a JSON file, starting from defaults. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return config, nil
}

// Validate checks the settings for values the viewer cannot run with
func (c *Config) Validate() error {
	if c.BaseMap == "" {
		return errors.New("base_map must not be empty")
	}
	if c.RefreshIntervalMS <= 0 {
		return fmt.Errorf("refresh_interval_ms must be positive, got %d", c.RefreshIntervalMS)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.Window.Scale <= 0 {
		return fmt.Errorf("window.scale must be positive, got %v", c.Window.Scale)
	}
	return nil
}

// RefreshInterval returns the refresh interval as a duration
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMS) * time.Millisecond
}

// ShadingWorkers resolves the worker count
func (c *Config) ShadingWorkers() int {
	if c.Workers == 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

// WindowSize returns the initial window size for a base map of w×h pixels
func (c *Config) WindowSize(w, h int) (int, int) {
	return int(float64(w) * c.Window.Scale), int(float64(h) * c.Window.Scale)
}

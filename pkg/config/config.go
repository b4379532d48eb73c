// Package config loads and saves gridsynth settings
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/james-see/gridsynth/pkg/converter"
	"github.com/james-see/gridsynth/pkg/grid"
	"github.com/james-see/gridsynth/pkg/pitch"
)

// Config is the main configuration structure
type Config struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Duration    int     `json:"duration"`
	StartOctave int     `json:"startOctave"`
	Tempo       float64 `json:"tempo"`
	Resolution  uint16  `json:"resolution"`
	Output      string  `json:"output"`
	Port        string  `json:"port,omitempty"`
}

// DefaultConfig returns a 51x24 grid starting at C3, 100 ticks per column
func DefaultConfig() *Config {
	return &Config{
		Width:       51,
		Height:      24,
		Duration:    grid.DefaultDuration,
		StartOctave: pitch.DefaultStartOctave,
		Tempo:       120,
		Resolution:  480,
		Output:      converter.DefaultOutput,
	}
}

// Dir returns the config directory path
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "gridsynth"), nil
}

// Path returns the full path to config.json
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default path, or returns defaults if
// there is none
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads a config file. Fields missing from the file keep their
// defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// SaveFile writes the config to path, creating its directory
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := c.JSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// JSON returns the indented JSON form written by SaveFile
func (c *Config) JSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// Validate checks that the grid can be built and every row maps to a MIDI
// note number
func (c *Config) Validate() error {
	if c.Width < 2 {
		return fmt.Errorf("width %d: need at least 2 columns", c.Width)
	}
	if c.Height < 1 {
		return fmt.Errorf("height %d: need at least 1 row", c.Height)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration %d must be positive", c.Duration)
	}
	if c.Tempo <= 0 {
		return fmt.Errorf("tempo %v must be positive", c.Tempo)
	}
	if low := pitch.RowToNumber(c.Height-1, c.Height, c.StartOctave); low < 0 {
		return fmt.Errorf("start octave %d puts the bottom row below MIDI note 0", c.StartOctave)
	}
	if high := pitch.RowToNumber(0, c.Height, c.StartOctave); high > 127 {
		return fmt.Errorf("top row %s is above MIDI note 127", pitch.RowToName(0, c.Height, c.StartOctave))
	}
	return nil
}

// Extractor returns the note extractor described by the config
func (c *Config) Extractor() grid.Extractor {
	return grid.Extractor{Duration: c.Duration, StartOctave: c.StartOctave}
}

// Converter returns a MIDI converter using the config's tempo and resolution
func (c *Config) Converter() *converter.MIDIConverter {
	return converter.NewMIDIConverter().SetTempo(c.Tempo).SetResolution(c.Resolution)
}

// NewGrid builds an empty grid of the configured size
func (c *Config) NewGrid() (*grid.Grid, error) {
	return grid.New(c.Width, c.Height)
}

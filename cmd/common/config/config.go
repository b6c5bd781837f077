// Package config provides configuration loading for orchestrion.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents the orchestrion configuration file structure.
type Config struct {
	Process        *ProcessConfig `json:"process,omitempty"`
	TargetPriority int            `json:"target_priority"`
	ShowNowPlaying bool           `json:"show_now_playing"`
	Notifications  bool           `json:"notifications"`
	SongList       string         `json:"song_list,omitempty"`
	PollIntervalMs int            `json:"poll_interval_ms,omitempty"`
	ShuffleMinutes int            `json:"shuffle_interval_minutes,omitempty"`
	Favorites      []int          `json:"favorites,omitempty"`
}

// ProcessConfig locates the game and its BGM structures.
type ProcessConfig struct {
	Name          string       `json:"name"`
	Module        string       `json:"module"`
	RootOffset    Offset       `json:"root_offset"`
	ControlOffset Offset       `json:"control_offset"`
	AudioChain    *ChainConfig `json:"audio_chain,omitempty"`
}

// ChainConfig is a module relative pointer chain.
type ChainConfig struct {
	Offset   Offset   `json:"offset"`
	Pointers []Offset `json:"pointers"`
}

// Offset is an address offset. In JSON it is either a number or a string in
// hex ("0xC0") or decimal.
type Offset uint64

func (o Offset) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("0x%X", uint64(o)))
}

func (o *Offset) UnmarshalJSON(data []byte) error {
	var n uint64
	if err := json.Unmarshal(data, &n); err == nil {
		*o = Offset(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("offset must be a number or string: %s", data)
	}
	v, err := ParseOffset(s)
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// ParseOffset parses "0xC0", "C0h" style hex or plain decimal.
func ParseOffset(s string) (Offset, error) {
	s = strings.TrimSpace(s)
	var (
		v   uint64
		err error
	)
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		v, err = strconv.ParseUint(s[2:], 16, 64)
	case strings.HasSuffix(s, "h") || strings.HasSuffix(s, "H"):
		v, err = strconv.ParseUint(s[:len(s)-1], 16, 64)
	default:
		v, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q", s)
	}
	return Offset(v), nil
}

// PointerOffsets returns the chain offsets as plain integers.
func (c *ChainConfig) PointerOffsets() []uint64 {
	out := make([]uint64, len(c.Pointers))
	for i, p := range c.Pointers {
		out[i] = uint64(p)
	}
	return out
}

// DefaultConfig returns a config with sensible defaults.
// The root offset is game-version specific and has no default.
func DefaultConfig() *Config {
	return &Config{
		Process:        DefaultProcess(),
		TargetPriority: 0,
		ShowNowPlaying: true,
		Notifications:  false,
		PollIntervalMs: 2000,
		ShuffleMinutes: 20,
	}
}

// DefaultProcess returns the process settings for the DX11 client.
func DefaultProcess() *ProcessConfig {
	return &ProcessConfig{
		Name:          "ffxiv_dx11",
		Module:        "ffxiv_dx11.exe",
		ControlOffset: 0xC0,
		AudioChain: &ChainConfig{
			Offset:   0x01F31B68,
			Pointers: []Offset{0x98, 0x10, 0x58, 0x48, 0x38, 0x8, 0x80},
		},
	}
}

// PollInterval returns the poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// ShuffleInterval returns the shuffle interval as a duration.
func (c *Config) ShuffleInterval() time.Duration {
	return time.Duration(c.ShuffleMinutes) * time.Minute
}

// IsFavorite reports whether songID is a favorite.
func (c *Config) IsFavorite(songID int) bool {
	return slices.Contains(c.Favorites, songID)
}

// AddFavorite adds songID, keeping the list sorted. Returns false if it was
// already present.
func (c *Config) AddFavorite(songID int) bool {
	if c.IsFavorite(songID) {
		return false
	}
	c.Favorites = append(c.Favorites, songID)
	slices.Sort(c.Favorites)
	return true
}

// RemoveFavorite removes songID. Returns false if it was not present.
func (c *Config) RemoveFavorite(songID int) bool {
	i := slices.Index(c.Favorites, songID)
	if i < 0 {
		return false
	}
	c.Favorites = slices.Delete(c.Favorites, i, i+1)
	return true
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.TargetPriority < 0 || c.TargetPriority > 11 {
		return fmt.Errorf("target_priority must be 0..11, got %d", c.TargetPriority)
	}
	return nil
}

// overrides are read from the environment on top of the file.
type overrides struct {
	Process        *string `env:"ORCHESTRION_PROCESS"`
	Module         *string `env:"ORCHESTRION_MODULE"`
	RootOffset     *string `env:"ORCHESTRION_ROOT_OFFSET"`
	TargetPriority *int    `env:"ORCHESTRION_TARGET_PRIORITY"`
	SongList       *string `env:"ORCHESTRION_SONG_LIST"`
}

// ConfigDir returns the orchestrion config directory ($ORCHESTRION_HOME or
// ~/.orchestrion).
func ConfigDir() string {
	if dir := os.Getenv("ORCHESTRION_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".orchestrion")
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// Load loads the config file and applies environment overrides.
// Returns default config if the file doesn't exist.
func Load() (*Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads the config file without environment overrides. Use it when
// the config will be edited and saved.
func LoadFile() (*Config, error) {
	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	// booleans default to true only when absent, so start from defaults
	config := DefaultConfig()
	config.Process = nil
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ConfigPath(), err)
	}

	// Apply defaults for missing sections
	defaults := DefaultProcess()
	if config.Process == nil {
		config.Process = defaults
	} else {
		if config.Process.Name == "" {
			config.Process.Name = defaults.Name
		}
		if config.Process.Module == "" {
			config.Process.Module = defaults.Module
		}
		if config.Process.ControlOffset == 0 {
			config.Process.ControlOffset = defaults.ControlOffset
		}
		if config.Process.AudioChain == nil {
			config.Process.AudioChain = defaults.AudioChain
		}
	}
	if config.PollIntervalMs <= 0 {
		config.PollIntervalMs = 2000
	}
	if config.ShuffleMinutes <= 0 {
		config.ShuffleMinutes = 20
	}

	return config, nil
}

func applyEnv(cfg *Config) error {
	var o overrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if o.Process != nil {
		cfg.Process.Name = *o.Process
	}
	if o.Module != nil {
		cfg.Process.Module = *o.Module
	}
	if o.RootOffset != nil {
		off, err := ParseOffset(*o.RootOffset)
		if err != nil {
			return fmt.Errorf("ORCHESTRION_ROOT_OFFSET: %w", err)
		}
		cfg.Process.RootOffset = off
	}
	if o.TargetPriority != nil {
		cfg.TargetPriority = *o.TargetPriority
	}
	if o.SongList != nil {
		cfg.SongList = *o.SongList
	}
	return nil
}

// Save saves the config file. Start from LoadFile, not Load, so environment
// overrides are not persisted.
func Save(config *Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}

// Package config loads Arbor's settings.
//
// Settings come from DefaultConfig, then an optional TOML file
// (~/.arbor/config.toml by default), then command-line flags applied by the
// binaries on top of the returned Config.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that reads and writes as "1h30m" in TOML.
type Duration struct{ time.Duration }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds every setting of the navigator, the CLI and the server.
type Config struct {
	// Source is the root node document opened when none is given.
	Source string `toml:"source"`

	Cache  CacheConfig  `toml:"cache"`
	Fetch  FetchConfig  `toml:"fetch"`
	Nav    NavConfig    `toml:"navigation"`
	Glyphs GlyphConfig  `toml:"glyphs"`
	Log    LogConfig    `toml:"log"`
	Server ServerConfig `toml:"server"`
}

// CacheConfig controls the SQLite document cache.
type CacheConfig struct {
	// Enabled turns the cache on. When off nothing is read or written.
	Enabled bool `toml:"enabled"`
	// DBPath is the SQLite database file.
	DBPath string `toml:"db_path"`
	// TTL is how long a cached document is served without refetching.
	// Zero disables cache reads outside offline mode.
	TTL Duration `toml:"ttl"`
	// Offline serves documents from the cache only.
	Offline bool `toml:"offline"`
}

// FetchConfig controls network and file fetches.
type FetchConfig struct {
	Timeout  Duration `toml:"timeout"`
	Attempts int      `toml:"attempts"`
	Delay    Duration `toml:"delay"`
	// Concurrency bounds bulk prefetching (print --expand, stats --expand).
	Concurrency int `toml:"concurrency"`
}

// NavConfig controls focus movement.
type NavConfig struct {
	// Legacy restores sibling-only up/down movement.
	Legacy bool `toml:"legacy"`
	// RetryFailedLoads lets a failed lazy load be retried on next expand.
	RetryFailedLoads bool `toml:"retry_failed_loads"`
	// Watch remounts the tree when a local root document changes.
	Watch bool `toml:"watch"`
}

// GlyphConfig sets the expand affordance glyphs.
type GlyphConfig struct {
	Collapsed string `toml:"collapsed"`
	Expanded  string `toml:"expanded"`
	Failed    string `toml:"failed"`
}

// LogConfig controls logging.
type LogConfig struct {
	// File receives the navigator's log, since the terminal is taken.
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// ServerConfig controls arbor-serve.
type ServerConfig struct {
	Addr string `toml:"addr"`
	Dir  string `toml:"dir"`
}

// Dir returns Arbor's home directory (~/.arbor).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".arbor"
	}
	return filepath.Join(home, ".arbor")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	dir := Dir()
	return Config{
		Cache: CacheConfig{
			Enabled: true,
			DBPath:  filepath.Join(dir, "arbor.db"),
			TTL:     Duration{time.Hour},
		},
		Fetch: FetchConfig{
			Timeout:     Duration{10 * time.Second},
			Attempts:    3,
			Delay:       Duration{500 * time.Millisecond},
			Concurrency: 4,
		},
		Nav: NavConfig{
			RetryFailedLoads: true,
		},
		Glyphs: GlyphConfig{
			Collapsed: "▸",
			Expanded:  "▾",
			Failed:    "✗",
		},
		Log: LogConfig{
			File:  filepath.Join(dir, "arbor.log"),
			Level: "info",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:9880",
			Dir:  ".",
		},
	}
}

// Load returns DefaultConfig overlaid with the TOML file at path.
// A missing file is not an error; an empty path means DefaultPath.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultPath()
	}

	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("config %s: unknown keys %v", path, undecoded)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings no component can work with.
func (c Config) Validate() error {
	if c.Fetch.Attempts < 1 {
		return fmt.Errorf("fetch.attempts must be at least 1, got %d", c.Fetch.Attempts)
	}
	if c.Fetch.Concurrency < 1 {
		return fmt.Errorf("fetch.concurrency must be at least 1, got %d", c.Fetch.Concurrency)
	}
	if c.Fetch.Timeout.Duration < 0 || c.Cache.TTL.Duration < 0 {
		return errors.New("durations must not be negative")
	}
	if c.Glyphs.Collapsed == "" || c.Glyphs.Expanded == "" {
		return errors.New("glyphs.collapsed and glyphs.expanded must be set")
	}
	return nil
}

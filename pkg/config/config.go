// Package config holds the tunables shared by the engine, sessions and binaries.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid config")

type Config struct {
	CacheCapacity     int    `json:"cache_capacity"`
	MaxDepth          int    `json:"max_depth"`
	MaxNodes          int    `json:"max_nodes"`
	SearchTimeoutMs   int    `json:"search_timeout_ms"`
	UseBook           bool   `json:"use_book"`
	BookFile          string `json:"book_file"`
	DefaultDifficulty string `json:"default_difficulty"`
	ListenAddr        string `json:"listen_addr"`
	LogLevel          string `json:"log_level"`
	MaxSessions       int    `json:"max_sessions"`
	SessionIdleSec    int    `json:"session_idle_sec"`
}

func Default() Config {
	return Config{
		CacheCapacity: 100000,
		MaxDepth:      6,
		// depth 6 in an open middlegame has no natural bound, keep a ceiling
		MaxNodes:          2000000,
		SearchTimeoutMs:   20000,
		UseBook:           true,
		DefaultDifficulty: "medium",
		ListenAddr:        ":8080",
		LogLevel:          "info",
		MaxSessions:       256,
		SessionIdleSec:    1800,
	}
}

// Load overlays the JSON file at path onto Default. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate reports the first setting that cannot work
func (c Config) Validate() error {
	switch {
	case c.CacheCapacity <= 0:
		return fmt.Errorf("%w: cache_capacity must be positive", ErrInvalid)
	case c.MaxDepth < 1:
		return fmt.Errorf("%w: max_depth must be at least 1", ErrInvalid)
	case c.MaxNodes < 0:
		return fmt.Errorf("%w: max_nodes must not be negative", ErrInvalid)
	case c.SearchTimeoutMs < 0:
		return fmt.Errorf("%w: search_timeout_ms must not be negative", ErrInvalid)
	case c.MaxSessions < 0:
		return fmt.Errorf("%w: max_sessions must not be negative", ErrInvalid)
	case c.SessionIdleSec < 0:
		return fmt.Errorf("%w: session_idle_sec must not be negative", ErrInvalid)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %w", ErrInvalid, err)
	}
	return nil
}

// SearchTimeout is the wall clock ceiling of one search, 0 disables it
func (c Config) SearchTimeout() time.Duration {
	return time.Duration(c.SearchTimeoutMs) * time.Millisecond
}

// SessionIdle is how long a server session may sit unused, 0 keeps sessions forever
func (c Config) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleSec) * time.Second
}

// Level returns the configured log level, info if it does not parse
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// Logger returns a console logger at the configured level
func (c Config) Logger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(c.Level()).
		With().Timestamp().Logger()
}

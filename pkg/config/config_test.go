package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "muninn.json")
	if err := os.WriteFile(path, []byte(`{"max_depth": 4, "log_level": "debug", "search_timeout_ms": 1500}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxDepth != 4 || cfg.CacheCapacity != Default().CacheCapacity {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Level() != zerolog.DebugLevel {
		t.Fatalf("Level = %v, want debug", cfg.Level())
	}
	if cfg.SearchTimeout() != 1500*time.Millisecond {
		t.Fatalf("SearchTimeout = %v", cfg.SearchTimeout())
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil || cfg != Default() {
		t.Fatalf("Load(\"\") = %+v, %v", cfg, err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"cache", func(c *Config) { c.CacheCapacity = 0 }},
		{"depth", func(c *Config) { c.MaxDepth = 0 }},
		{"nodes", func(c *Config) { c.MaxNodes = -1 }},
		{"timeout", func(c *Config) { c.SearchTimeoutMs = -5 }},
		{"level", func(c *Config) { c.LogLevel = "loud" }},
		{"sessions", func(c *Config) { c.MaxSessions = -1 }},
		{"idle", func(c *Config) { c.SessionIdleSec = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate = %v, want ErrInvalid", err)
			}
		})
	}
}

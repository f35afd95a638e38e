package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Window.Width != 1200 || cfg.Window.Height != 800 {
		t.Errorf("expected default window 1200x800, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Borders.RefreshDelay != 1200*time.Millisecond {
		t.Errorf("expected default refresh delay 1.2s, got %v", cfg.Borders.RefreshDelay)
	}
	if len(cfg.Borders.LabelKeys) != 2 || cfg.Borders.LabelKeys[0] != "name" || cfg.Borders.LabelKeys[1] != "NAME" {
		t.Errorf("unexpected default label keys %v", cfg.Borders.LabelKeys)
	}
	if cfg.Geocoder.MaxZoom != 8 {
		t.Errorf("expected default max zoom 8, got %d", cfg.Geocoder.MaxZoom)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapdesk.yml")

	original := DefaultConfig()
	original.Window.Title = "Atlas"
	original.Borders.LabelKeys = []string{"ADMIN", "name"}
	original.Borders.RefreshDelay = 3 * time.Second
	original.Geocoder.MaxZoom = 10

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Window.Title != "Atlas" {
		t.Errorf("title: got %q, want %q", loaded.Window.Title, "Atlas")
	}
	if len(loaded.Borders.LabelKeys) != 2 || loaded.Borders.LabelKeys[0] != "ADMIN" {
		t.Errorf("label keys: got %v", loaded.Borders.LabelKeys)
	}
	if loaded.Borders.RefreshDelay != 3*time.Second {
		t.Errorf("refresh delay: got %v, want 3s", loaded.Borders.RefreshDelay)
	}
	if loaded.Geocoder.MaxZoom != 10 {
		t.Errorf("max zoom: got %d, want 10", loaded.Geocoder.MaxZoom)
	}
	if loaded.Tiles.Roads.Opacity != 0.65 {
		t.Errorf("roads opacity: got %v, want 0.65", loaded.Tiles.Roads.Opacity)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:0" {
		t.Errorf("expected default addr, got %q", cfg.Server.Addr)
	}
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapdesk.yml")
	content := "borders:\n  refresh_delay: 500ms\ngeocoder:\n  user_agent: test-agent\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Borders.RefreshDelay != 500*time.Millisecond {
		t.Errorf("refresh delay: got %v, want 500ms", cfg.Borders.RefreshDelay)
	}
	if cfg.Geocoder.UserAgent != "test-agent" {
		t.Errorf("user agent: got %q", cfg.Geocoder.UserAgent)
	}
	// Untouched keys keep their defaults.
	if cfg.Geocoder.MaxZoom != 8 {
		t.Errorf("max zoom: got %d, want 8", cfg.Geocoder.MaxZoom)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("MAPDESK_SERVER__ADDR", "127.0.0.1:9999")
	t.Setenv("MAPDESK_GEOCODER__MAX_ZOOM", "6")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9999" {
		t.Errorf("addr: got %q", cfg.Server.Addr)
	}
	if cfg.Geocoder.MaxZoom != 6 {
		t.Errorf("max zoom: got %d, want 6", cfg.Geocoder.MaxZoom)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Window.Width = 0 }},
		{"bad addr", func(c *Config) { c.Server.Addr = "localhost" }},
		{"empty borders user agent", func(c *Config) { c.Borders.UserAgent = "" }},
		{"no label keys", func(c *Config) { c.Borders.LabelKeys = nil }},
		{"negative delay", func(c *Config) { c.Borders.RefreshDelay = -time.Second }},
		{"bad borders scheme", func(c *Config) { c.Borders.URL = "ftp://example.com/x.json" }},
		{"empty user agent", func(c *Config) { c.Geocoder.UserAgent = "" }},
		{"max zoom too high", func(c *Config) { c.Geocoder.MaxZoom = 25 }},
		{"proxy without user agent", func(c *Config) { c.Tiles.UserAgent = "" }},
		{"tile template without z", func(c *Config) { c.Tiles.Roads.URLTemplate = "https://x/{x}/{y}.png" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

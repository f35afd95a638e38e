package config

import (
	"time"

	"mapdesk/pkg/tiles"
)

// Config holds application configuration
type Config struct {
	Window   Window   `yaml:"window" koanf:"window"`
	Server   Server   `yaml:"server" koanf:"server"`
	Tiles    Tiles    `yaml:"tiles" koanf:"tiles"`
	Borders  Borders  `yaml:"borders" koanf:"borders"`
	Geocoder Geocoder `yaml:"geocoder" koanf:"geocoder"`
	Log      Log      `yaml:"log" koanf:"log"`
}

// Window contains host window parameters
type Window struct {
	Title  string `yaml:"title" koanf:"title"`
	Width  int    `yaml:"width" koanf:"width"`
	Height int    `yaml:"height" koanf:"height"`

	// Debug enables the webview developer tools
	Debug bool `yaml:"debug" koanf:"debug"`
}

// Server contains the local document server parameters
type Server struct {
	// Addr is the loopback address the document is served on.
	// Port 0 picks a free port.
	Addr string `yaml:"addr" koanf:"addr"`

	// AllowAllOrigins relaxes CORS for development in an external browser
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// Tiles contains the raster tile sources
type Tiles struct {
	Basemap tiles.Source `yaml:"basemap" koanf:"basemap"`
	Roads   tiles.Source `yaml:"roads" koanf:"roads"`

	// Proxy routes tile requests through the document server so upstream
	// servers see UserAgent instead of the webview's default
	Proxy     bool   `yaml:"proxy" koanf:"proxy"`
	UserAgent string `yaml:"user_agent" koanf:"user_agent"`
}

// Borders contains the country-border overlay parameters
type Borders struct {
	URL       string `yaml:"url" koanf:"url"`
	UserAgent string `yaml:"user_agent" koanf:"user_agent"`

	// LabelKeys are feature property names tried in order for a polygon label
	LabelKeys []string `yaml:"label_keys" koanf:"label_keys"`

	// RefreshDelay schedules the one-shot reload after startup. Zero disables it.
	RefreshDelay time.Duration `yaml:"refresh_delay" koanf:"refresh_delay"`

	Timeout time.Duration `yaml:"timeout" koanf:"timeout"`
}

// Geocoder contains the place-search endpoint parameters
type Geocoder struct {
	BaseURL   string        `yaml:"base_url" koanf:"base_url"`
	UserAgent string        `yaml:"user_agent" koanf:"user_agent"`
	Timeout   time.Duration `yaml:"timeout" koanf:"timeout"`

	// MaxZoom caps the zoom applied to a search result
	MaxZoom int `yaml:"max_zoom" koanf:"max_zoom"`
}

// Log contains logger parameters
type Log struct {
	Level      string `yaml:"level" koanf:"level"`
	File       string `yaml:"file" koanf:"file"`
	MaxSize    int    `yaml:"max_size" koanf:"max_size"`
	MaxBackups int    `yaml:"max_backups" koanf:"max_backups"`
	MaxAge     int    `yaml:"max_age" koanf:"max_age"`
	Compress   bool   `yaml:"compress" koanf:"compress"`
	Dev        bool   `yaml:"dev" koanf:"dev"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Window: Window{
			Title:  "MapBuilder — Desktop (Enhanced)",
			Width:  1200,
			Height: 800,
		},
		Server: Server{
			Addr: "127.0.0.1:0",
		},
		Tiles: Tiles{
			Basemap:   tiles.DarkBasemap(),
			Roads:     tiles.OSMRoads(),
			Proxy:     true,
			UserAgent: "MapDesk/1.0 (desktop map shell)",
		},
		Borders: Borders{
			URL:          "https://raw.githubusercontent.com/johan/world.geo.json/master/countries.geo.json",
			UserAgent:    "MapDesk/1.0 (desktop map shell)",
			LabelKeys:    []string{"name", "NAME"},
			RefreshDelay: 1200 * time.Millisecond,
			Timeout:      30 * time.Second,
		},
		Geocoder: Geocoder{
			BaseURL:   "https://nominatim.openstreetmap.org",
			UserAgent: "MapDesk/1.0 (desktop map shell)",
			Timeout:   15 * time.Second,
			MaxZoom:   8,
		},
		Log: Log{
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

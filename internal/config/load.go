package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix marks environment variables that override file settings.
// Nested keys are separated by a double underscore:
// MAPDESK_BORDERS__REFRESH_DELAY -> borders.refresh_delay.
const EnvPrefix = "MAPDESK_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains usable values
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}

	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return fmt.Errorf("invalid server addr %q: %w", c.Server.Addr, err)
	}

	if err := c.Tiles.Basemap.Validate(); err != nil {
		return err
	}
	if err := c.Tiles.Roads.Validate(); err != nil {
		return err
	}
	if c.Tiles.Proxy && c.Tiles.UserAgent == "" {
		return fmt.Errorf("tiles.user_agent is required when tiles.proxy is on")
	}

	if err := validateURL("borders.url", c.Borders.URL); err != nil {
		return err
	}
	if c.Borders.UserAgent == "" {
		return fmt.Errorf("borders.user_agent is required")
	}
	if len(c.Borders.LabelKeys) == 0 {
		return fmt.Errorf("borders.label_keys must list at least one property name")
	}
	if c.Borders.RefreshDelay < 0 {
		return fmt.Errorf("borders.refresh_delay must be non-negative")
	}

	if err := validateURL("geocoder.base_url", c.Geocoder.BaseURL); err != nil {
		return err
	}
	if c.Geocoder.UserAgent == "" {
		return fmt.Errorf("geocoder.user_agent is required")
	}
	if c.Geocoder.MaxZoom < 1 || c.Geocoder.MaxZoom > 18 {
		return fmt.Errorf("geocoder.max_zoom %d out of range [1,18]", c.Geocoder.MaxZoom)
	}

	return nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s %q: scheme must be http or https", key, raw)
	}
	return nil
}
